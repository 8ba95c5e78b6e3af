package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/examvault/internal/api/handlers"
	"github.com/cloo-solutions/examvault/internal/jobs"
	"github.com/cloo-solutions/examvault/internal/server"
	"github.com/cloo-solutions/examvault/internal/service"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and background workers",
		Long:  "Start the examvault admin API, the retention reaper and, when SYNC_ROOT_ID is set, the scheduled sync",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides EXAMVAULT_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	a, err := newApp(ctx, appOptions{migrate: !noMigrate})
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	if portFlag, _ := cmd.Flags().GetString("port"); portFlag != "" {
		cfg.Port = portFlag
	}

	workers := []*jobs.Worker{
		jobs.NewWorker("retention", jobs.NewRetentionProcessor(a.svc, cfg.RetentionDays), cfg.ReapInterval),
	}
	if cfg.HasScheduledSync() {
		syncInput := service.RunInput{
			RootID:     cfg.SyncRootID,
			Label:      "scheduled",
			PathPrefix: cfg.SyncPathPrefix,
		}
		workers = append(workers, jobs.NewWorker("sync", jobs.NewSyncProcessor(a.svc, syncInput), cfg.SyncInterval, jobs.WithRunOnStart()))
	}
	for _, w := range workers {
		go w.Start(ctx)
	}

	if cfg.AdminToken == "" {
		log.Println("EXAMVAULT_ADMIN_TOKEN not set: /v1 admin API disabled")
	}

	router := server.NewRouter(server.RouterConfig{
		AdminToken:       cfg.AdminToken,
		IngestionHandler: handlers.NewIngestionHandler(a.svc, cfg.RetentionDays),
		DocumentHandler:  handlers.NewDocumentHandler(a.svc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case <-quit:
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}
	log.Println("shutting down...")

	// A worker mid-round finishes that round before Stop returns.
	for _, w := range workers {
		w.Stop()
	}
	if runErr != nil {
		return runErr
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("waiting for running jobs to finish")
	return nil
}
