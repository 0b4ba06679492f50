package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/coreybb/promptbook/api"
	"github.com/coreybb/promptbook/config"
	"github.com/coreybb/promptbook/datastore"
	"github.com/coreybb/promptbook/ebook"
	"github.com/coreybb/promptbook/processing"
	rh "github.com/coreybb/promptbook/route-handlers"
	"github.com/coreybb/promptbook/storage"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the Promptbook HTTP API.

Examples:
  promptbook serve                 # Start on the configured port (default 8080)
  promptbook serve --port 3000     # Start on a custom port
  promptbook serve --migrate       # Apply the schema before serving`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}

		db, err := setupDatabase(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("database setup failed: %w", err)
		}
		defer db.Close()

		if serveMigrate {
			if err := datastore.ApplySchema(ctx, db); err != nil {
				return err
			}
			logger.Info("schema applied")
		}

		exportRepo := datastore.NewExportRepository(db)
		uploads := storage.NewLocalUploadStore(cfg.UploadsRoot)
		logger.Info("reading uploads", "root", uploads.BasePath())
		generator := ebook.NewGenerator(cfg.GeneratorConfig(logger), uploads)
		exportProcessor := processing.NewExportProcessor(exportRepo, generator, logger)
		exportHandler := rh.NewExportHandler(exportRepo, exportProcessor)

		router := api.SetupRoutes(exportHandler, api.Options{
			RequestTimeout:   cfg.HTTP.RequestTimeout,
			CORSOrigins:      cfg.HTTP.CORSOrigins,
			ExportRateLimit:  cfg.HTTP.ExportRateLimit,
			ExportRateWindow: cfg.HTTP.ExportRateWindow,
		})

		return startServer(ctx, cfg, router, logger)
	},
}

func init() {
	serveCmd.Flags().String("port", "", "port to listen on")
	_ = v.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply the database schema before serving")

	rootCmd.AddCommand(serveCmd)
}

// startServer serves until ctx is cancelled, then shuts down gracefully.
func startServer(ctx context.Context, cfg *config.Config, router http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server gracefully stopped")
	return nil
}
