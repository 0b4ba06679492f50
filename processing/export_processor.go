package processing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreybb/promptbook/ebook"
	"github.com/coreybb/promptbook/models"
)

// ErrExportNotFound is returned when the requested export does not exist.
var ErrExportNotFound = errors.New("export not found")

// Generation stages reported in GenerationError.
const (
	StageLoad     = "load"
	StageGenerate = "generate"
	StageStatus   = "status"
)

// GenerationError is any failure after the export was known to exist, or a
// load failure other than not-found. Err carries the diagnostic detail.
type GenerationError struct {
	ExportID string
	Stage    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("export %s failed at %s: %v", e.ExportID, e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ExportStore is the persistence the processor needs.
type ExportStore interface {
	GetExportAggregate(ctx context.Context, exportID string) (*models.EbookExport, error)
	UpdateExportStatus(ctx context.Context, exportID string, status models.ExportStatus, now time.Time) error
}

// ArtifactGenerator renders a hydrated export.
type ArtifactGenerator interface {
	Generate(ctx context.Context, export *models.EbookExport, format ebook.Format) (*ebook.Artifact, error)
}

// ExportProcessor loads an export, renders it and records the export.
type ExportProcessor struct {
	Store     ExportStore
	Generator ArtifactGenerator
	Now       func() time.Time
	logger    *slog.Logger
}

// NewExportProcessor creates a new ExportProcessor.
func NewExportProcessor(store ExportStore, generator ArtifactGenerator, logger *slog.Logger) *ExportProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportProcessor{
		Store:     store,
		Generator: generator,
		Now:       time.Now,
		logger:    logger.With("component", "ExportProcessor"),
	}
}

// GenerateExport produces the artifact for an export and, only once the
// artifact exists, marks the export EXPORTED. If the status cannot be
// recorded the artifact is discarded and a GenerationError returned.
func (p *ExportProcessor) GenerateExport(ctx context.Context, exportID string, format ebook.Format) (*ebook.Artifact, error) {
	export, err := p.Store.GetExportAggregate(ctx, exportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("export %s: %w", exportID, ErrExportNotFound)
		}
		return nil, &GenerationError{ExportID: exportID, Stage: StageLoad, Err: err}
	}

	p.logger.Info("generating export", "export_id", exportID, "format", string(format), "entries", len(export.Prompts))

	artifact, err := p.Generator.Generate(ctx, export, format)
	if err != nil {
		p.logger.Error("export generation failed", "export_id", exportID, "error", err)
		return nil, &GenerationError{ExportID: exportID, Stage: StageGenerate, Err: err}
	}

	now := p.Now()
	if err := p.Store.UpdateExportStatus(ctx, exportID, models.ExportStatusExported, now); err != nil {
		p.logger.Error("failed to mark export as exported", "export_id", exportID, "error", err)
		return nil, &GenerationError{ExportID: exportID, Stage: StageStatus, Err: err}
	}
	export.MarkExported(now)

	p.logger.Info("export complete", "export_id", exportID, "filename", artifact.Filename, "bytes", len(artifact.Data))
	return artifact, nil
}
