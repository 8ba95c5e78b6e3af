package admin

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cloo-solutions/examvault/internal/database"
	"github.com/cloo-solutions/examvault/internal/domain"
	"github.com/cloo-solutions/examvault/internal/service"
	"github.com/spf13/cobra"
)

const pollInterval = 500 * time.Millisecond

func BatchCmd() *cobra.Command {
	return runJobCmd("batch", "Ingest every supported file under a remote folder",
		"Ingest every supported file under the remote folder. Files whose content is already stored are skipped.",
		func(s *service.IngestionService) startFunc { return s.StartBatch })
}

func SyncCmd() *cobra.Command {
	return runJobCmd("sync", "Reconcile the store with a remote folder",
		"Ingest new remote files, re-process modified ones and soft delete documents whose remote file is gone.",
		func(s *service.IngestionService) startFunc { return s.StartSync })
}

type startFunc func(ctx context.Context, in service.RunInput) (string, error)

func runJobCmd(use, short, long string, pick func(*service.IngestionService) startFunc) *cobra.Command {
	var (
		in   service.RunInput
		wait bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long + " The command returns once the job has finished.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			ctx := context.Background()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			var progress io.Writer
			if wait && outputFormat == outputText {
				progress = os.Stderr
			}
			return runJob(ctx, cmd.OutOrStdout(), progress, pick(a.svc), a.svc, in, outputFormat, wait)
		},
	}

	cmd.Flags().StringVar(&in.RootID, "root", "", "Remote folder ID to ingest from")
	cmd.Flags().StringVar(&in.Label, "label", "", "Free-form label stored on the job")
	cmd.Flags().StringVar(&in.PathPrefix, "path-prefix", "", "Path prepended to remote file paths (e.g. AQA/GCSE)")
	cmd.Flags().IntVarP(&in.Concurrency, "concurrency", "c", 0, "Files processed in parallel (0 uses EXAMVAULT_DEFAULT_CONCURRENCY)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Show live progress and print the finished job")
	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")
	_ = cmd.MarkFlagRequired("root")

	return cmd
}

// runJob starts a job and, with wait, follows it to completion. A job that
// ends failed is reported as an error.
func runJob(ctx context.Context, out, progress io.Writer, start startFunc, jobs jobStatusReader, in service.RunInput, format string, wait bool) error {
	jobID, err := start(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to start job: %w", err)
	}

	if !wait {
		if format == outputJSON {
			return printJSON(out, map[string]string{"job_id": jobID})
		}
		fmt.Fprintf(out, "Job started: %s\n", jobID)
		return nil
	}

	job, err := watchJob(ctx, jobs, jobID, pollInterval, progress)
	if err != nil {
		return fmt.Errorf("failed to follow job %s: %w", jobID, err)
	}
	if err := printJob(out, format, job); err != nil {
		return err
	}
	if job.Status == domain.JobStatusFailed {
		return fmt.Errorf("job %s failed", job.ID)
	}
	return nil
}

func JobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job <id>",
		Short: "Show an ingestion job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			ctx := context.Background()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			job, err := a.svc.GetJobStatus(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to get job: %w", err)
			}
			return printJob(cmd.OutOrStdout(), outputFormat, job)
		},
	}

	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

func ReapCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "reap",
		Short: "Permanently remove documents deleted longer ago than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			ctx := context.Background()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("days") {
				days = a.cfg.RetentionDays
			}

			deleted, err := a.svc.Reap(ctx, days)
			if err != nil {
				return fmt.Errorf("failed to reap documents: %w", err)
			}

			if outputFormat == outputJSON {
				return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": deleted, "retention_days": days})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d documents deleted more than %d days ago\n", deleted, days)
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 0, "Retention window in days (defaults to EXAMVAULT_RETENTION_DAYS)")
	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

func DocumentsCmd() *cobra.Command {
	var (
		status string
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List stored documents, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")
			ctx := context.Background()

			a, err := newApp(ctx, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			page, err := a.svc.ListDocuments(ctx, service.ListDocumentsInput{
				Status: domain.DocumentStatus(status),
				Cursor: cursor,
				Limit:  limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}
			return printDocuments(cmd.OutOrStdout(), outputFormat, page)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (processing, completed, failed, deleted)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().StringP("output", "o", outputText, "Output format (text or json)")

	return cmd
}

func printDocuments(w io.Writer, format string, page *service.DocumentPage) error {
	if format == outputJSON {
		items := make([]map[string]any, len(page.Items))
		for i, d := range page.Items {
			items[i] = map[string]any{
				"id":          d.ID,
				"filename":    d.Filename,
				"title":       d.Title,
				"status":      d.Status,
				"chunk_count": d.ChunkCount,
				"file_key":    d.FileKey,
				"created_at":  d.CreatedAt,
			}
		}
		return printJSON(w, map[string]any{
			"items":    items,
			"cursor":   page.NextCursor,
			"has_more": page.HasMore,
		})
	}

	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No documents found")
		return nil
	}
	fmt.Fprintln(w, "Documents:")
	for _, d := range page.Items {
		fmt.Fprintf(w, "  %s  %-10s %4d chunks  %s\n", d.ID, d.Status, d.ChunkCount, d.Filename)
	}
	if page.HasMore && page.NextCursor != "" {
		fmt.Fprintf(w, "\nMore results available. Use --cursor %s\n", page.NextCursor)
	}
	return nil
}

func MigrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending migrations from EXAMVAULT_MIGRATIONS_DIR, or roll back with --down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if down > 0 {
				return database.MigrateDown(cfg.DatabaseURL, cfg.MigrationsDir, down)
			}
			return database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir)
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "Roll back this many migrations instead of applying")

	return cmd
}
