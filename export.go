package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coreybb/promptbook/datastore"
	"github.com/coreybb/promptbook/ebook"
	"github.com/coreybb/promptbook/models"
	"github.com/coreybb/promptbook/processing"
	"github.com/coreybb/promptbook/storage"
)

var (
	outputPath   string
	outputFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <export-id>",
	Short: "Render a stored export to a file",
	Long: `Render an export stored in the database and mark it EXPORTED.

Examples:
  promptbook export 0b6f...            # writes <title-slug>.pdf
  promptbook export 0b6f... -f epub    # writes <title-slug>.epub
  promptbook export 0b6f... -o out.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, ok := ebook.ParseFormat(outputFormat)
		if !ok {
			return fmt.Errorf("unknown format %q (want pdf or epub)", outputFormat)
		}

		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}

		db, err := setupDatabase(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("database setup failed: %w", err)
		}
		defer db.Close()

		generator := ebook.NewGenerator(cfg.GeneratorConfig(logger), storage.NewLocalUploadStore(cfg.UploadsRoot))
		processor := processing.NewExportProcessor(datastore.NewExportRepository(db), generator, logger)

		artifact, err := processor.GenerateExport(ctx, args[0], format)
		if err != nil {
			return err
		}
		return writeArtifact(cmd, artifact)
	},
}

var renderCmd = &cobra.Command{
	Use:   "render <aggregate.json>",
	Short: "Render an export aggregate from a JSON file",
	Long: `Render a fully hydrated export (the JSON returned by GET /api/exports/{id})
without touching the database. Images are read from the uploads root.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, ok := ebook.ParseFormat(outputFormat)
		if !ok {
			return fmt.Errorf("unknown format %q (want pdf or epub)", outputFormat)
		}

		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read aggregate: %w", err)
		}
		var export models.EbookExport
		if err := json.Unmarshal(raw, &export); err != nil {
			return fmt.Errorf("failed to decode aggregate %s: %w", args[0], err)
		}

		generator := ebook.NewGenerator(cfg.GeneratorConfig(logger), storage.NewLocalUploadStore(cfg.UploadsRoot))
		artifact, err := generator.Generate(cmd.Context(), &export, format)
		if err != nil {
			return err
		}
		return writeArtifact(cmd, artifact)
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, renderCmd} {
		c.Flags().StringVarP(&outputPath, "out", "o", "", "output file (default: <title-slug>.<ext>)")
		c.Flags().StringVarP(&outputFormat, "format", "f", string(ebook.FormatPDF), "output format: pdf or epub")
		rootCmd.AddCommand(c)
	}
}

func writeArtifact(cmd *cobra.Command, artifact *ebook.Artifact) error {
	path := outputPath
	if path == "" {
		path = artifact.Filename
	}
	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d pages, %d bytes)\n", path, artifact.PageCount, len(artifact.Data))
	return nil
}
