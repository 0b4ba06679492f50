package ebook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/coreybb/promptbook/models"
	"github.com/coreybb/promptbook/storage"
)

// ErrGeneration wraps every failure to produce an artifact.
var ErrGeneration = errors.New("ebook generation failed")

// Format is an output document format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
)

// ParseFormat accepts "pdf" or "epub" in any case. An empty string means PDF.
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, true
	case FormatEPUB:
		return FormatEPUB, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatEPUB {
		return "application/epub+zip"
	}
	return "application/pdf"
}

// Extension returns the file extension of the format, with the dot.
func (f Format) Extension() string {
	if f == FormatEPUB {
		return ".epub"
	}
	return ".pdf"
}

// Config configures a Generator. Zero values select defaults.
type Config struct {
	Logger          *slog.Logger
	Fonts           FontOptions
	BodyChunkSize   int
	SampleChunkSize int
	MaxAssetBytes   int64
	AssetWorkers    int
	Timeout         time.Duration
	Now             func() time.Time
}

// Artifact is a rendered ebook ready to be sent to a client.
type Artifact struct {
	Data         []byte
	Filename     string
	ContentType  string
	Format       Format
	PageCount    int
	LogicalPages int
}

// Generator turns a hydrated export into a PDF or EPUB document.
type Generator struct {
	cfg      Config
	resolver *AssetResolver
	logger   *slog.Logger
}

// NewGenerator creates a Generator reading images from store.
func NewGenerator(cfg Config, store storage.UploadStore) *Generator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger.With("component", "Generator")
	logger.Info("ebook generator ready", "fonts", fontLabel(cfg.Fonts), "timeout", cfg.Timeout)
	return &Generator{
		cfg:      cfg,
		resolver: NewAssetResolver(store, cfg.MaxAssetBytes, cfg.AssetWorkers, cfg.Logger),
		logger:   logger,
	}
}

// Generate projects, composes and renders the export. Missing images never
// fail generation; anything else does and wraps ErrGeneration.
func (g *Generator) Generate(ctx context.Context, export *models.EbookExport, format Format) (*Artifact, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	startTime := time.Now()

	book, err := Project(export)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	log := g.logger.With("export_id", book.ID, "format", string(format))
	log.Debug("projected export", "chapters", len(book.Chapters), "has_about", book.HasAbout())

	assets := g.resolver.ResolveAll(ctx, ImageReferences(book))
	for ref, a := range assets {
		if !a.OK() {
			log.Debug("image unavailable", "ref", ref, "error", a.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	doc := Compose(book, assets, g.cfg.Now(), ComposeOptions{
		BodyChunkSize:   g.cfg.BodyChunkSize,
		SampleChunkSize: g.cfg.SampleChunkSize,
	})

	artifact := &Artifact{
		Filename:     SafeFilename(book.Title) + format.Extension(),
		ContentType:  format.ContentType(),
		Format:       format,
		LogicalPages: len(doc.Pages),
	}

	switch format {
	case FormatPDF:
		data, err := RenderPDF(doc, g.cfg.Fonts, g.cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		pages, err := pdfapi.PageCount(bytes.NewReader(data), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: rendered pdf does not parse: %w", ErrGeneration, err)
		}
		if pages < artifact.LogicalPages {
			return nil, fmt.Errorf("%w: rendered pdf has %d pages for %d logical pages", ErrGeneration, pages, artifact.LogicalPages)
		}
		artifact.Data = data
		artifact.PageCount = pages
	case FormatEPUB:
		data, err := RenderEPUB(doc, g.cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
		}
		artifact.Data = data
		artifact.PageCount = artifact.LogicalPages
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrGeneration, format)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	log.Info("generated ebook",
		"filename", artifact.Filename,
		"bytes", len(artifact.Data),
		"pages", artifact.PageCount,
		"logical_pages", artifact.LogicalPages,
		"took", time.Since(startTime),
	)
	return artifact, nil
}

func fontLabel(f FontOptions) string {
	if f.UTF8() {
		return f.Family
	}
	return "core"
}
