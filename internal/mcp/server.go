package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
)

// StatsURI is the resource exposing application statistics
const StatsURI = "jobs://stats"

type toolFunc func(ctx context.Context, params json.RawMessage) (toolResponse, error)

// Server wraps the MCP server with our application logic
type Server struct {
	mcpServer *server.MCPServer
	handler   *Handler
	logger    zerolog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(jobService *services.JobService, logger zerolog.Logger) (*Server, error) {
	// Create the MCP server
	mcpServer := server.NewMCPServer(
		"job-tracker",
		"1.0.0",
		server.WithLogging(),
	)

	s := &Server{
		mcpServer: mcpServer,
		handler:   NewHandler(jobService, logger),
		logger:    logger,
	}

	// Register handlers
	s.registerTools()
	s.registerResources()
	s.registerPrompts()

	return s, nil
}

// Serve starts the MCP server on stdio
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Debug().Msg("Starting MCP server ServeStdio")
	err := server.ServeStdio(s.mcpServer)
	if err != nil {
		s.logger.Error().Err(err).Msg("MCP server ServeStdio error")
	}
	return err
}

func pagingProperties() map[string]interface{} {
	return map[string]interface{}{
		"limit": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum number of results to return (default: 100)",
			"minimum":     1,
			"maximum":     services.MaxLimit,
		},
		"offset": map[string]interface{}{
			"type":        "integer",
			"description": "Number of results to skip",
			"minimum":     0,
		},
	}
}

// registerTools registers MCP tools
func (s *Server) registerTools() {
	listProps := pagingProperties()
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_jobs",
		Description: "List tracked job applications ordered by company. Use when the user asks what they have applied to or wants an overview of their pipeline.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: listProps,
		},
	}, s.toolHandler("list_jobs", s.handler.handleListJobs))

	searchProps := pagingProperties()
	searchProps["query"] = map[string]interface{}{
		"type":        "string",
		"description": "Case-insensitive text matched against job title, company and notes",
	}
	searchProps["status"] = map[string]interface{}{
		"type":        "string",
		"description": "Only return applications with this status",
		"enum":        models.Statuses,
	}
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "search_jobs",
		Description: "Search job applications by text and status. Use when the user asks about a specific company or role, or e.g. 'which applications are at interview stage?'.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: searchProps,
		},
	}, s.toolHandler("search_jobs", s.handler.handleSearchJobs))

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_job",
		Description: "Get a single job application by ID. stale is set when an open application has had no update for 14 days.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"id": idProperty("ID of the job")},
			Required:   []string{"id"},
		},
	}, s.toolHandler("get_job", s.handler.handleGetJob))

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "add_job",
		Description: "Record a new job application. Use when the user says they applied somewhere or wants to start tracking a role.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"jobTitle": map[string]interface{}{"type": "string", "description": "Role title"},
				"company":  map[string]interface{}{"type": "string", "description": "Company name"},
				"location": map[string]interface{}{"type": "string", "description": "Where the job is based"},
				"remoteType": map[string]interface{}{
					"type":        "string",
					"description": "Work mode (default: on-site)",
					"enum":        models.RemoteTypes,
				},
				"salaryMin": map[string]interface{}{"type": "integer", "description": "Lower salary bound"},
				"salaryMax": map[string]interface{}{"type": "integer", "description": "Upper salary bound"},
				"status": map[string]interface{}{
					"type":        "string",
					"description": "Application status (default: applied)",
					"enum":        models.Statuses,
				},
				"jobUrl": map[string]interface{}{"type": "string", "description": "Link to the posting"},
				"notes":  map[string]interface{}{"type": "string", "description": "Free-form notes"},
			},
			Required: []string{"jobTitle", "company"},
		},
	}, s.toolHandler("add_job", s.handler.handleAddJob))

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "update_job_status",
		Description: "Move a job application to a new status, e.g. after an interview invite, an offer or a rejection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": idProperty("ID of the job"),
				"status": map[string]interface{}{
					"type":        "string",
					"description": "New status",
					"enum":        models.Statuses,
				},
				"notes": map[string]interface{}{
					"type":        "string",
					"description": "Replaces the job's notes when given",
				},
			},
			Required: []string{"id", "status"},
		},
	}, s.toolHandler("update_job_status", s.handler.handleUpdateJobStatus))

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_job",
		Description: "Delete a job application by ID",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"id": idProperty("ID of the job to delete")},
			Required:   []string{"id"},
		},
	}, s.toolHandler("delete_job", s.handler.handleDeleteJob))

	s.logger.Info().Int("count", 6).Msg("Registered MCP tools")
}

func idProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"minimum":     1,
	}
}

// registerResources registers MCP resources
func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.Resource{
		URI:         StatsURI,
		Name:        "Job Statistics",
		Description: "Counts of job applications per status and group, and how many have gone stale",
		MIMEType:    "application/json",
	}, s.createStatsHandler())

	s.logger.Info().Int("count", 1).Msg("Registered MCP resources")
}

// registerPrompts registers MCP prompts
func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.Prompt{
		Name:        "log_application",
		Description: "Template for recording a job application",
		Arguments: []mcp.PromptArgument{
			{
				Name:        "company",
				Description: "Company applied to",
				Required:    true,
			},
			{
				Name:        "jobTitle",
				Description: "Role applied for",
				Required:    true,
			},
			{
				Name:        "details",
				Description: "Anything else worth noting, such as salary, location or work mode",
				Required:    false,
			},
		},
	}, s.createLogApplicationHandler())

	s.logger.Info().Int("count", 1).Msg("Registered MCP prompts")
}

// toolHandler adapts a Handler method to the MCP tool signature
func (s *Server) toolHandler(name string, fn toolFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.logger.Debug().Str("tool", name).Msg("MCP tool called")

		// Convert arguments to JSON for the handler
		jsonData, err := json.Marshal(request.GetArguments())
		if err != nil {
			return errorResult(fmt.Sprintf("Failed to parse arguments: %v", err)), nil
		}

		result, err := fn(ctx, jsonData)
		if err != nil {
			return errorResult(fmt.Sprintf("Error: %v", err)), nil
		}

		resultJSON, err := result.ToJSON()
		if err != nil {
			return errorResult(fmt.Sprintf("Failed to marshal result: %v", err)), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{
					Type: "text",
					Text: string(resultJSON),
				},
			},
			IsError: result.Failed(),
		}, nil
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
		IsError: true,
	}
}

func (s *Server) createStatsHandler() server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats, err := s.handler.jobService.Stats(ctx, time.Now())
		if err != nil {
			return nil, err
		}

		statsJSON, err := stats.ToJSON()
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(statsJSON),
			},
		}, nil
	}
}

func (s *Server) createLogApplicationHandler() server.PromptHandlerFunc {
	return func(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		company := request.Params.Arguments["company"]
		jobTitle := request.Params.Arguments["jobTitle"]
		details := strings.TrimSpace(request.Params.Arguments["details"])

		text := fmt.Sprintf("I applied for the %s role at %s. Record it with the add_job tool.", jobTitle, company)
		if details != "" {
			text += " Details: " + details
		}

		return &mcp.GetPromptResult{
			Description: "Record a job application",
			Messages: []mcp.PromptMessage{
				{
					Role: "user",
					Content: mcp.TextContent{
						Type: "text",
						Text: text,
					},
				},
			},
		}, nil
	}
}
