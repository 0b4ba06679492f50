package routehandlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coreybb/promptbook/datastore"
	"github.com/coreybb/promptbook/ebook"
	"github.com/coreybb/promptbook/models"
	"github.com/coreybb/promptbook/processing"
	"github.com/coreybb/promptbook/webutil"
)

const (
	msgEbookNotFound    = "Ebook not found"
	msgGenerationFailed = "Failed to generate PDF"
	msgPromptsNotFound  = "One or more prompts not found"
	msgInvalidExportID  = "Invalid export ID format"
	msgInvalidEntryID   = "Invalid entry ID format"
	msgInvalidPageID    = "Invalid page ID format"
	msgInvalidSampleID  = "Invalid sample output ID format"
	msgInvalidFormat    = "Invalid format value. Must be one of: pdf, epub"
	queryParamFormat    = "format"
	urlParamID          = "id"
	urlParamEntryID     = "entryID"
	urlParamPageID      = "pageID"
)

// ExportRepository is the persistence used by ExportHandler.
type ExportRepository interface {
	GetExportAggregate(ctx context.Context, exportID string) (*models.EbookExport, error)
	ListExports(ctx context.Context) ([]models.ExportSummary, error)
	CreateExport(ctx context.Context, req models.NewExportRequest, now time.Time) (*models.EbookExport, error)
	UpdateExport(ctx context.Context, exportID string, upd models.ExportUpdate, now time.Time) error
	DeleteExport(ctx context.Context, exportID string) error
	ReorderEntries(ctx context.Context, exportID string, orders []models.EntryOrder, now time.Time) error
	UpdateEntry(ctx context.Context, exportID, entryID string, upd models.EntryUpdate) (*models.EbookPromptEntry, error)
	SetSampleInclusion(ctx context.Context, sampleID string, include bool) error
	CreatePage(ctx context.Context, page *models.EbookPage) error
	UpdatePage(ctx context.Context, exportID, pageID string, upd models.PageUpdate, now time.Time) (*models.EbookPage, error)
	DeletePage(ctx context.Context, exportID, pageID string) error
}

// DocumentExporter renders an export to a downloadable artifact.
type DocumentExporter interface {
	GenerateExport(ctx context.Context, exportID string, format ebook.Format) (*ebook.Artifact, error)
}

// ExportHandler serves the export API.
type ExportHandler struct {
	Repo      ExportRepository
	Processor DocumentExporter
	Now       func() time.Time
}

// NewExportHandler creates a new ExportHandler using the system clock.
func NewExportHandler(repo ExportRepository, processor DocumentExporter) *ExportHandler {
	return &ExportHandler{Repo: repo, Processor: processor, Now: time.Now}
}

type reorderEntriesRequest struct {
	Prompts []models.EntryOrder `json:"prompts" validate:"required,min=1,dive"`
}

func pathUUID(r *http.Request, param, msg string) (string, error) {
	id := chi.URLParam(r, param)
	if _, err := uuid.Parse(id); err != nil {
		return "", webutil.ErrBadRequest(msg)
	}
	return id, nil
}

// HandleGetExports lists export summaries.
func (h *ExportHandler) HandleGetExports(w http.ResponseWriter, r *http.Request) error {
	exports, err := h.Repo.ListExports(r.Context())
	if err != nil {
		return fmt.Errorf("failed to list exports: %w", err)
	}
	if exports == nil {
		exports = []models.ExportSummary{}
	}
	webutil.RespondWithJSON(w, http.StatusOK, exports)
	return nil
}

// HandleCreateExport creates a DRAFT export from the selected prompts.
func (h *ExportHandler) HandleCreateExport(w http.ResponseWriter, r *http.Request) error {
	var req models.NewExportRequest
	if err := webutil.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	export, err := h.Repo.CreateExport(r.Context(), req, h.Now())
	if err != nil {
		if errors.Is(err, datastore.ErrPromptsNotFound) {
			return webutil.ErrBadRequestWrap(msgPromptsNotFound, err)
		}
		return fmt.Errorf("failed to create export: %w", err)
	}

	webutil.RespondWithJSON(w, http.StatusCreated, export)
	return nil
}

// HandleGetExport returns the hydrated export aggregate.
func (h *ExportHandler) HandleGetExport(w http.ResponseWriter, r *http.Request) error {
	exportID, err := pathUUID(r, urlParamID, msgInvalidExportID)
	if err != nil {
		return err
	}

	export, err := h.Repo.GetExportAggregate(r.Context(), exportID)
	if err != nil {
		return h.notFoundOr(err, "failed to retrieve export %s", exportID)
	}

	webutil.RespondWithJSON(w, http.StatusOK, export)
	return nil
}

// HandleUpdateExport applies a partial metadata update and returns the export.
func (h *ExportHandler) HandleUpdateExport(w http.ResponseWriter, r *http.Request) error {
	exportID, err := pathUUID(r, urlParamID, msgInvalidExportID)
	if err != nil {
		return err
	}

	var upd models.ExportUpdate
	if err := webutil.DecodeJSON(w, r, &upd); err != nil {
		return err
	}

	if err := h.Repo.UpdateExport(r.Context(), exportID, upd, h.Now()); err != nil {
		return h.notFoundOr(err, "failed to update export %s", exportID)
	}

	export, err := h.Repo.GetExportAggregate(r.Context(), exportID)
	if err != nil {
		return h.notFoundOr(err, "failed to reload export %s", exportID)
	}
	webutil.RespondWithJSON(w, http.StatusOK, export)
	return nil
}

// HandleDeleteExport deletes an export with its entries and pages.
func (h *ExportHandler) HandleDeleteExport(w http.ResponseWriter, r *http.Request) error {
	exportID, err := pathUUID(r, urlParamID, msgInvalidExportID)
	if err != nil {
		return err
	}

	if err := h.Repo.DeleteExport(r.Context(), exportID); err != nil {
		return h.notFoundOr(err, "failed to delete export %s", exportID)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// HandleReorderEntries assigns new orders to entries of an export.
func (h *ExportHandler) HandleReorderEntries(w http.ResponseWriter, r *http.Request) error {
	exportID, err := pathUUID(r, urlParamID, msgInvalidExportID)
	if err != nil {
		return err
	}

	var req reorderEntriesRequest
	if err := webutil.DecodeJSON(w, r, &req); err != nil {
		return err
	}

	if err := h.Repo.ReorderEntries(r.Context(), exportID, req.Prompts, h.Now()); err != nil {
		return h.notFoundOr(err, "failed to reorder entries of export %s", exportID)
	}
	webutil.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
	return nil
}

// HandleUpdateEntry edits the overrides of a single entry.
func (h *ExportHandler) HandleUpdateEntry(w http.ResponseWriter, r *http.Request) error {
	exportID, err := pathUUID(r, urlParamID, msgInvalidExportID)
	if err != nil {
		return err
	}
	entryID, err := pathUUID(r, urlParamEntryID, msgInvalidEntryID)
	if err != nil {
		return err
	}

	var upd models.EntryUpdate
	if err := webutil.DecodeJSON(w, r, &upd); err != nil {
		return err
	}

	entry, err := h.Repo.UpdateEntry(r.Context(), exportID, entryID, upd)
	if err != nil {
		return h.notFoundOr(err, "failed to update entry %s", entryID)
	}
	webutil.RespondWithJSON(w, http.StatusOK, entry)
	return nil
}

// HandleCreatePage adds a custom page to an export.
func (h *ExportHandler) HandleCreatePage(w http.ResponseWriter, r *http.Request) error {
	exportID, err := pathUUID(r, urlParamID, msgInvalidExportID)
	if err != nil {
		return err
	}

	var in models.PageInput
	if err := webutil.DecodeJSON(w, r, &in); err != nil {
		return err
	}

	page := models.EbookPage{
		ID:        uuid.NewString(),
		EbookID:   exportID,
		Title:     in.Title,
		Content:   in.Content,
		Order:     in.Order,
		PageType:  in.PageType,
		ImageURL:  in.ImageURL,
		CreatedAt: h.Now().UTC(),
	}
	if err := h.Repo.CreatePage(r.Context(), &page); err != nil {
		return h.notFoundOr(err, "failed to create page for export %s", exportID)
	}
	webutil.RespondWithJSON(w, http.StatusCreated, page)
	return nil
}

// HandleUpdatePage edits a custom page.
func (h *ExportHandler) HandleUpdatePage(w http.ResponseWriter, r *http.Request) error {
	exportID, err := pathUUID(r, urlParamID, msgInvalidExportID)
	if err != nil {
		return err
	}
	pageID, err := pathUUID(r, urlParamPageID, msgInvalidPageID)
	if err != nil {
		return err
	}

	var upd models.PageUpdate
	if err := webutil.DecodeJSON(w, r, &upd); err != nil {
		return err
	}

	page, err := h.Repo.UpdatePage(r.Context(), exportID, pageID, upd, h.Now())
	if err != nil {
		return h.notFoundOr(err, "failed to update page %s", pageID)
	}
	webutil.RespondWithJSON(w, http.StatusOK, page)
	return nil
}

// HandleDeletePage removes a custom page.
func (h *ExportHandler) HandleDeletePage(w http.ResponseWriter, r *http.Request) error {
	exportID, err := pathUUID(r, urlParamID, msgInvalidExportID)
	if err != nil {
		return err
	}
	pageID, err := pathUUID(r, urlParamPageID, msgInvalidPageID)
	if err != nil {
		return err
	}

	if err := h.Repo.DeletePage(r.Context(), exportID, pageID); err != nil {
		return h.notFoundOr(err, "failed to delete page %s", pageID)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// HandleUpdateSampleInclusion toggles whether a sample output is exported.
func (h *ExportHandler) HandleUpdateSampleInclusion(w http.ResponseWriter, r *http.Request) error {
	sampleID, err := pathUUID(r, urlParamID, msgInvalidSampleID)
	if err != nil {
		return err
	}

	var upd models.SampleInclusionUpdate
	if err := webutil.DecodeJSON(w, r, &upd); err != nil {
		return err
	}

	if err := h.Repo.SetSampleInclusion(r.Context(), sampleID, *upd.IncludeInExport); err != nil {
		return h.notFoundOr(err, "failed to update sample output %s", sampleID)
	}
	webutil.RespondWithJSON(w, http.StatusOK, map[string]any{"id": sampleID, "includeInExport": *upd.IncludeInExport})
	return nil
}

// HandleExportDocument renders the export and streams it as an attachment.
// The format query parameter selects pdf (default) or epub.
func (h *ExportHandler) HandleExportDocument(w http.ResponseWriter, r *http.Request) error {
	exportID := chi.URLParam(r, urlParamID)
	if _, err := uuid.Parse(exportID); err != nil {
		return webutil.ErrNotFound(msgEbookNotFound)
	}

	format, ok := ebook.ParseFormat(r.URL.Query().Get(queryParamFormat))
	if !ok {
		return webutil.ErrBadRequest(msgInvalidFormat)
	}

	artifact, err := h.Processor.GenerateExport(r.Context(), exportID, format)
	if err != nil {
		if errors.Is(err, processing.ErrExportNotFound) {
			return webutil.ErrNotFoundWrap(msgEbookNotFound, err)
		}
		return webutil.NewHTTPErrorWrap(http.StatusInternalServerError, msgGenerationFailed, err).
			WithDetails(generationDetails(err))
	}

	webutil.RespondWithAttachment(w, artifact.Filename, artifact.ContentType, artifact.Data)
	return nil
}

// generationDetails returns the innermost cause, without the export id and
// stage prefix the processor adds.
func generationDetails(err error) string {
	var genErr *processing.GenerationError
	if errors.As(err, &genErr) && genErr.Err != nil {
		return genErr.Err.Error()
	}
	return err.Error()
}

func (h *ExportHandler) notFoundOr(err error, format string, args ...any) error {
	if isNotFound(err) {
		return webutil.ErrNotFoundWrap("", err)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
