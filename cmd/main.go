package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/jobassist-backend/internal/app"
	"github.com/yungbote/jobassist-backend/internal/data/db"
)

var (
	serveAddr  string
	migrateAll bool
)

var rootCmd = &cobra.Command{
	Use:   "jobassist",
	Short: "Job-scoped technician assistant API",
	Long: `Serves the job assistant chat API.

Configuration comes from the environment (DB_*, POSTGRES_*, LLM_*, PINECONE_*,
REDIS_*, OTEL_*). Running without a subcommand is the same as "serve".`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	Long: `Migrates the conversation and message tables.

With --all the job, client, property, equipment, event and note read models
are created too. Those belong to other services in production; use --all only
for local databases.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serveAddr, "addr", "", "listen address (default from ADDR or PORT)")
	migrateCmd.Flags().BoolVar(&migrateAll, "all", false, "also create read-model tables")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := app.New(ctx, app.LoadConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx, serveAddr)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := app.Open(app.LoadConfig())
	if err != nil {
		return err
	}
	defer a.Close()

	gdb := a.DB.DB().WithContext(cmd.Context())
	if migrateAll {
		err = db.AutoMigrateAll(gdb)
	} else {
		err = db.AutoMigrateOwned(gdb)
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.Log.Info("Migration complete", "all", migrateAll)
	return nil
}
