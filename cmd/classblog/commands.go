package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classblog/internal/config"
	"classblog/internal/database"
	"classblog/internal/middleware"
	"classblog/internal/observability"
	"classblog/internal/seed"
	"classblog/internal/server"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	middleware.SetupLogger(cfg.Env, os.Getenv("LOG_LEVEL"))
	return cfg, nil
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
				ServiceName:  observability.ServiceName,
				Environment:  cfg.Env,
				Enabled:      cfg.TracingEnabled,
				Exporter:     cfg.TracingExporter,
				OTLPEndpoint: cfg.OTLPEndpoint,
				SamplerRatio: cfg.TracingSampleRatio,
			})
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}

			srv, err := server.NewServer(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err = <-errCh:
			case <-ctx.Done():
				middleware.Logger.Info("shutting down server")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			if terr := shutdownTracing(shutdownCtx); terr != nil {
				middleware.Logger.Error("tracer shutdown failed", "error", terr)
			}
			return err
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			middleware.Logger.Info("migrations applied")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	var opts seed.Options
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with a demo classroom",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				// Seeding adds known-password accounts.
				return errors.New("refusing to seed a production database")
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			defer closeDatabase(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			summary, err := seed.NewSeeder(db, opts.RandSeed).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Seeded %d users, %d blogs, %d comments, %d likes.\nAll demo accounts use the password: %s\n",
				summary.Users, summary.Blogs, summary.Comments, summary.Likes, seed.DemoPassword)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.Students, "students", 10, "Number of generated student accounts")
	flags.IntVar(&opts.Blogs, "blogs", 20, "Number of generated blogs")
	flags.IntVar(&opts.MaxComments, "max-comments", 4, "Maximum top-level comments per published blog")
	flags.BoolVar(&opts.Clean, "clean", false, "Delete all existing data first")
	flags.Int64Var(&opts.RandSeed, "rand-seed", 0, "Seed for generated content (0 = random)")
	return cmd
}

func openDatabase() (*gorm.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dialector, err := database.Dialector(cfg)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dialector)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
