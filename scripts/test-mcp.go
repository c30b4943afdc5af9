package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Smoke test for the MCP binary: starts it over stdio against a throwaway
// store and walks the tool surface.
//
//	go build -o job-tracker-mcp ./cmd && go run ./scripts/test-mcp.go -binary ./job-tracker-mcp
func main() {
	binary := flag.String("binary", "./job-tracker-mcp", "path to the MCP server binary")
	flag.Parse()

	fmt.Println("MCP server smoke test")
	fmt.Println()

	if _, err := os.Stat(*binary); os.IsNotExist(err) {
		fmt.Printf("Binary %s not found. Build it with 'go build -o job-tracker-mcp ./cmd' first.\n", *binary)
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "job-tracker-mcp")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	tester := &MCPTester{
		binary: *binary,
		env: []string{
			"DB_PATH=" + filepath.Join(dir, "jobs.db"),
			"LOG_FILE=" + filepath.Join(dir, "mcp.log"),
		},
	}

	if err := tester.RunTests(); err != nil {
		fmt.Printf("FAILED: %v\n", err)
		fmt.Printf("Server log: %s\n", filepath.Join(dir, "mcp.log"))
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("All tests passed")
}

type MCPTester struct {
	binary string
	env    []string
	client *client.Client
	jobID  int64
}

func (t *MCPTester) RunTests() error {
	c, err := client.NewStdioMCPClient(t.binary, t.env)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	defer c.Close()
	t.client = c

	tests := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"Initialize connection", t.testInitialize},
		{"List tools", t.testListTools},
		{"Add job", t.testAddJob},
		{"Search jobs", t.testSearchJobs},
		{"Update job status", t.testUpdateStatus},
		{"Read stats resource", t.testStats},
	}

	for _, test := range tests {
		fmt.Printf("%s... ", test.name)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := test.fn(ctx)
		cancel()
		if err != nil {
			fmt.Println("FAILED")
			return fmt.Errorf("test '%s' failed: %w", test.name, err)
		}
		fmt.Println("ok")
	}

	return nil
}

func (t *MCPTester) testInitialize(ctx context.Context) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    "job-tracker-smoke",
		Version: "1.0.0",
	}

	result, err := t.client.Initialize(ctx, req)
	if err != nil {
		return err
	}
	if result.ServerInfo.Name != "job-tracker" {
		return fmt.Errorf("unexpected server name %q", result.ServerInfo.Name)
	}
	return nil
}

func (t *MCPTester) testListTools(ctx context.Context) error {
	result, err := t.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return err
	}

	found := make(map[string]bool)
	for _, tool := range result.Tools {
		found[tool.Name] = true
	}
	for _, expected := range []string{"list_jobs", "search_jobs", "get_job", "add_job", "update_job_status", "delete_job"} {
		if !found[expected] {
			return fmt.Errorf("missing tool: %s", expected)
		}
	}
	return nil
}

func (t *MCPTester) testAddJob(ctx context.Context) error {
	var resp struct {
		Success bool `json:"success"`
		Job     struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"job"`
	}
	err := t.callTool(ctx, "add_job", map[string]interface{}{
		"jobTitle":   "Smoke Test Engineer",
		"company":    "Smoke Co",
		"remoteType": "remote",
		"notes":      "added by the MCP smoke test",
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success || resp.Job.ID == 0 {
		return fmt.Errorf("add_job did not return a stored job")
	}
	if resp.Job.Status != "applied" {
		return fmt.Errorf("expected default status applied, got %q", resp.Job.Status)
	}
	t.jobID = resp.Job.ID
	return nil
}

func (t *MCPTester) testSearchJobs(ctx context.Context) error {
	var resp struct {
		Jobs []struct {
			ID int64 `json:"id"`
		} `json:"jobs"`
	}
	if err := t.callTool(ctx, "search_jobs", map[string]interface{}{"query": "smoke"}, &resp); err != nil {
		return err
	}
	for _, job := range resp.Jobs {
		if job.ID == t.jobID {
			return nil
		}
	}
	return fmt.Errorf("stored job %d not found in search results", t.jobID)
}

func (t *MCPTester) testUpdateStatus(ctx context.Context) error {
	var resp struct {
		Success bool `json:"success"`
		Job     struct {
			Status string  `json:"status"`
			Notes  *string `json:"notes"`
		} `json:"job"`
	}
	err := t.callTool(ctx, "update_job_status", map[string]interface{}{
		"id":     t.jobID,
		"status": "interview",
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Job.Status != "interview" {
		return fmt.Errorf("expected status interview, got %q", resp.Job.Status)
	}
	if resp.Job.Notes == nil {
		return fmt.Errorf("status update dropped the notes")
	}
	return nil
}

func (t *MCPTester) testStats(ctx context.Context) error {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "jobs://stats"

	result, err := t.client.ReadResource(ctx, req)
	if err != nil {
		return err
	}
	if len(result.Contents) == 0 {
		return fmt.Errorf("no contents in stats resource")
	}
	text, ok := result.Contents[0].(mcp.TextResourceContents)
	if !ok {
		return fmt.Errorf("unexpected content type %T", result.Contents[0])
	}

	var stats struct {
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal([]byte(text.Text), &stats); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}
	if stats.Total < 1 {
		return fmt.Errorf("expected at least one job, got %d", stats.Total)
	}
	return nil
}

// callTool invokes a tool and decodes its JSON text result into out
func (t *MCPTester) callTool(ctx context.Context, name string, args map[string]interface{}, out interface{}) error {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return err
	}
	if len(result.Content) == 0 {
		return fmt.Errorf("no content in %s response", name)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return fmt.Errorf("unexpected content type %T", result.Content[0])
	}
	if result.IsError {
		return fmt.Errorf("%s returned an error: %s", name, text.Text)
	}
	return json.Unmarshal([]byte(text.Text), out)
}
