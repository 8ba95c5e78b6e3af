package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/examvault/internal/cli"
	"github.com/cloo-solutions/examvault/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "examvaultd",
		Short: "Exam document ingestion daemon and CLI",
		Long:  "examvaultd runs the ingestion API server and drives batch ingestion, incremental sync and retention from the command line",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.BatchCmd())
	rootCmd.AddCommand(admin.SyncCmd())
	rootCmd.AddCommand(admin.JobCmd())
	rootCmd.AddCommand(admin.ReapCmd())
	rootCmd.AddCommand(admin.DocumentsCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
