package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ksred/job-tracker/internal/models"
	"github.com/ksred/job-tracker/internal/services"
)

func newListCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List job applications ordered by company",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _ := newAPI()
			page, err := api.ListJobs(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			printJobs(cmd.OutOrStdout(), page.Data)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d\n", page.Pagination.CurrentPageCount, page.Pagination.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", services.DefaultLimit, "maximum number of jobs to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of jobs to skip")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		status        string
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search job applications by title, company or notes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria := services.SearchCriteria{Status: status}
			if len(args) == 1 {
				criteria.Term = args[0]
			}

			api, _ := newAPI()
			page, err := api.SearchJobs(cmd.Context(), criteria, limit, offset)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), page)
			}
			printJobs(cmd.OutOrStdout(), page.Data)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only jobs with this status ("+strings.Join(models.Statuses, ", ")+")")
	cmd.Flags().IntVar(&limit, "limit", services.DefaultLimit, "maximum number of jobs to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of jobs to skip")
	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		fields                  models.JobFields
		location, jobURL, notes string
		salaryMin, salaryMax    int64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new job application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("location") {
				fields.Location = &location
			}
			if flags.Changed("url") {
				fields.JobURL = &jobURL
			}
			if flags.Changed("notes") {
				fields.Notes = &notes
			}
			if flags.Changed("salary-min") {
				fields.SalaryMin = &salaryMin
			}
			if flags.Changed("salary-max") {
				fields.SalaryMax = &salaryMax
			}

			store, err := newStore(cmd.Context())
			if err != nil {
				return err
			}
			job, err := store.Add(cmd.Context(), fields)
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), job)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&fields.Title, "title", "", "role title")
	flags.StringVar(&fields.Company, "company", "", "company name")
	flags.StringVar(&location, "location", "", "where the job is based")
	flags.StringVar(&fields.RemoteType, "remote-type", "", "work mode ("+strings.Join(models.RemoteTypes, ", ")+")")
	flags.Int64Var(&salaryMin, "salary-min", 0, "lower salary bound")
	flags.Int64Var(&salaryMax, "salary-max", 0, "upper salary bound")
	flags.StringVar(&fields.Status, "status", "", "application status (default applied)")
	flags.StringVar(&jobURL, "url", "", "link to the posting")
	flags.StringVar(&notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func newUpdateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update-status <id> <status>",
		Short: "Move a job application to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !models.IsValidStatus(args[1]) {
				return fmt.Errorf("invalid status %q, must be one of: %s", args[1], strings.Join(models.Statuses, ", "))
			}

			store, err := newStore(cmd.Context())
			if err != nil {
				return err
			}
			job, err := store.UpdateStatus(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), job)
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a job application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			store, err := newStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted job %d\n", id)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show application counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _ := newAPI()
			stats, err := api.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), stats)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Total\t%d\n", stats.Total)
			for _, status := range models.Statuses {
				fmt.Fprintf(w, "%s\t%d\n", status, stats.ByStatus[status])
			}
			fmt.Fprintf(w, "stale\t%d\n", stats.Stale)
			return w.Flush()
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show API server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _ := newAPI()
			status, err := api.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), status)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Status\t%s\n", status.Status)
			fmt.Fprintf(w, "Version\t%s\n", status.Version)
			fmt.Fprintf(w, "Schema\tv%d\n", status.SchemaVersion)
			fmt.Fprintf(w, "Environment\t%s\n", status.Environment)
			fmt.Fprintf(w, "Uptime\t%s\n", (time.Duration(status.Uptime) * time.Second).String())
			return w.Flush()
		},
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJob(w io.Writer, job models.Job) error {
	if jsonOutput {
		return printJSON(w, job)
	}
	printJobs(w, []models.Job{job})
	return nil
}

func printJobs(out io.Writer, jobs []models.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCOMPANY\tTITLE\tSTATUS\tMODE\tSALARY\tUPDATED")
	for _, job := range jobs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			job.ID,
			job.Company,
			job.Title,
			job.Status,
			job.RemoteType,
			salaryRange(job),
			time.UnixMilli(job.LastUpdated).Format("2006-01-02"),
		)
	}
	_ = w.Flush()
}

func salaryRange(job models.Job) string {
	switch {
	case job.SalaryMin != nil && job.SalaryMax != nil:
		return fmt.Sprintf("%d-%d", *job.SalaryMin, *job.SalaryMax)
	case job.SalaryMin != nil:
		return fmt.Sprintf("%d+", *job.SalaryMin)
	case job.SalaryMax != nil:
		return fmt.Sprintf("up to %d", *job.SalaryMax)
	default:
		return "-"
	}
}
