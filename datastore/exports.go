package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/coreybb/promptbook/models"
)

const defaultExportTitlePrefix = "Prompt Collection - "

const exportColumns = `
	id, title, subtitle, author, cover_image, about_text, include_categories,
	include_tags, thank_you_title, thank_you_message, status, created_at, updated_at`

const entryColumns = `
	id, ebook_id, prompt_id, sort_order, custom_title, custom_intro,
	include_instructions, include_samples, created_at`

type ExportRepository struct {
	db *sql.DB
}

func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// GetExportAggregate loads an export with its entries, each entry's prompt,
// category, tags and sample outputs, and the custom pages, all from one
// consistent snapshot. A missing export wraps sql.ErrNoRows.
func (r *ExportRepository) GetExportAggregate(ctx context.Context, exportID string) (*models.EbookExport, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	export, err := getExport(ctx, tx, exportID)
	if err != nil {
		return nil, err
	}

	entries, err := getEntries(ctx, tx, exportID)
	if err != nil {
		return nil, err
	}

	promptIDs := make([]string, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.PromptID]; !ok {
			seen[e.PromptID] = struct{}{}
			promptIDs = append(promptIDs, e.PromptID)
		}
	}

	tags, err := getTagsForPrompts(ctx, tx, promptIDs)
	if err != nil {
		return nil, err
	}
	samples, err := getSamplesForPrompts(ctx, tx, promptIDs)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		pid := entries[i].PromptID
		entries[i].Prompt.Tags = tags[pid]
		entries[i].Prompt.SampleOutputs = samples[pid]
		if entries[i].Prompt.Tags == nil {
			entries[i].Prompt.Tags = []models.Tag{}
		}
		if entries[i].Prompt.SampleOutputs == nil {
			entries[i].Prompt.SampleOutputs = []models.SampleOutput{}
		}
	}
	export.Prompts = entries

	pages, err := getPages(ctx, tx, exportID)
	if err != nil {
		return nil, err
	}
	export.CustomPages = pages

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to finish read transaction: %w", err)
	}
	return export, nil
}

func getExport(ctx context.Context, q queryer, exportID string) (*models.EbookExport, error) {
	query := `SELECT ` + exportColumns + ` FROM ebook_exports WHERE id = $1`

	var e models.EbookExport
	var status string
	err := q.QueryRowContext(ctx, query, exportID).Scan(
		&e.ID, &e.Title, &e.Subtitle, &e.Author, &e.CoverImage, &e.AboutText, &e.IncludeCategories,
		&e.IncludeTags, &e.ThankYouTitle, &e.ThankYouMessage, &status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("export not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get export by ID: %w", err)
	}
	e.Status = models.ExportStatus(status)
	return &e, nil
}

// Equal sort_order values fall back to insertion sequence, so repeated reads
// of an export list entries identically.
const (
	entryOrdering = "ep.sort_order ASC, ep.seq ASC"
	pageOrdering  = "sort_order ASC, seq ASC"
)

func getEntries(ctx context.Context, q queryer, exportID string) ([]models.EbookPromptEntry, error) {
	query := `
		SELECT ep.id, ep.ebook_id, ep.prompt_id, ep.sort_order, ep.custom_title, ep.custom_intro,
		       ep.include_instructions, ep.include_samples, ep.created_at,
		       p.id, p.title, p.content, p.instructions, p.prompt_type, p.created_at,
		       c.id, c.name, c.color
		FROM ebook_prompts ep
		JOIN prompts p ON p.id = ep.prompt_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE ep.ebook_id = $1
		ORDER BY ` + entryOrdering + `
	`
	rows, err := q.QueryContext(ctx, query, exportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for export %s: %w", exportID, err)
	}
	defer rows.Close()

	entries := []models.EbookPromptEntry{}
	for rows.Next() {
		var e models.EbookPromptEntry
		var catID, catName, catColor sql.NullString
		if err := rows.Scan(
			&e.ID, &e.EbookID, &e.PromptID, &e.Order, &e.CustomTitle, &e.CustomIntro,
			&e.IncludeInstructions, &e.IncludeSamples, &e.CreatedAt,
			&e.Prompt.ID, &e.Prompt.Title, &e.Prompt.Content, &e.Prompt.Instructions, &e.Prompt.PromptType, &e.Prompt.CreatedAt,
			&catID, &catName, &catColor,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entry row for export %s: %w", exportID, err)
		}
		if catID.Valid {
			e.Prompt.Category = &models.Category{ID: catID.String, Name: catName.String, Color: catColor.String}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows for export %s: %w", exportID, err)
	}
	return entries, nil
}

func getTagsForPrompts(ctx context.Context, q queryer, promptIDs []string) (map[string][]models.Tag, error) {
	out := make(map[string][]models.Tag)
	if len(promptIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT pt.prompt_id, t.id, t.name, t.color
		FROM prompt_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.prompt_id = ANY($1)
		ORDER BY t.name ASC
	`
	rows, err := q.QueryContext(ctx, query, pq.Array(promptIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query tags for prompts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var promptID string
		var t models.Tag
		if err := rows.Scan(&promptID, &t.ID, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		out[promptID] = append(out[promptID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag rows: %w", err)
	}
	return out, nil
}

func getSamplesForPrompts(ctx context.Context, q queryer, promptIDs []string) (map[string][]models.SampleOutput, error) {
	out := make(map[string][]models.SampleOutput)
	if len(promptIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT prompt_id, id, title, content, output_type, file_path, include_in_export
		FROM sample_outputs
		WHERE prompt_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`
	rows, err := q.QueryContext(ctx, query, pq.Array(promptIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query sample outputs for prompts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var promptID, outputType string
		var s models.SampleOutput
		if err := rows.Scan(&promptID, &s.ID, &s.Title, &s.Content, &outputType, &s.FilePath, &s.IncludeInExport); err != nil {
			return nil, fmt.Errorf("failed to scan sample output row: %w", err)
		}
		s.OutputType = models.SampleOutputType(outputType)
		out[promptID] = append(out[promptID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sample output rows: %w", err)
	}
	return out, nil
}

// DefaultExportTitle is the title given to exports created without one.
func DefaultExportTitle(now time.Time) string {
	return defaultExportTitlePrefix + now.Format("1/2/2006")
}

// CreateExport inserts a DRAFT export with one entry per prompt, ordered by
// selection index. Every prompt must exist, otherwise ErrPromptsNotFound.
func (r *ExportRepository) CreateExport(ctx context.Context, req models.NewExportRequest, now time.Time) (*models.EbookExport, error) {
	if len(req.PromptIDs) == 0 {
		return nil, fmt.Errorf("at least one prompt ID is required: %w", ErrPromptsNotFound)
	}
	now = now.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var found int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompts WHERE id = ANY($1)`, pq.Array(req.PromptIDs)).Scan(&found)
	if err != nil {
		return nil, fmt.Errorf("failed to verify prompts: %w", err)
	}
	if found != len(req.PromptIDs) {
		return nil, fmt.Errorf("%d of %d prompts exist: %w", found, len(req.PromptIDs), ErrPromptsNotFound)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultExportTitle(now)
	}
	exportID := uuid.NewString()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ebook_exports (id, title, subtitle, author, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, exportID, title, req.Subtitle, req.Author, string(models.ExportStatusDraft), now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert export: %w", err)
	}

	for i, promptID := range req.PromptIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ebook_prompts (id, ebook_id, prompt_id, sort_order, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.NewString(), exportID, promptID, i, now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert entry for prompt %s: %w", promptID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit export: %w", err)
	}
	return r.GetExportAggregate(ctx, exportID)
}

// ListExports returns export summaries, most recently updated first.
func (r *ExportRepository) ListExports(ctx context.Context) ([]models.ExportSummary, error) {
	query := `
		SELECT e.id, e.title, e.subtitle, e.author, e.status, e.created_at, e.updated_at,
		       (SELECT COUNT(*) FROM ebook_prompts ep WHERE ep.ebook_id = e.id),
		       (SELECT COUNT(*) FROM ebook_pages pg WHERE pg.ebook_id = e.id)
		FROM ebook_exports e
		ORDER BY e.updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	summaries := []models.ExportSummary{}
	for rows.Next() {
		var s models.ExportSummary
		var status string
		if err := rows.Scan(&s.ID, &s.Title, &s.Subtitle, &s.Author, &status, &s.CreatedAt, &s.UpdatedAt, &s.PromptCount, &s.PageCount); err != nil {
			return nil, fmt.Errorf("failed to scan export row: %w", err)
		}
		s.Status = models.ExportStatus(status)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating export rows: %w", err)
	}
	return summaries, nil
}

// UpdateExport applies a partial metadata update.
func (r *ExportRepository) UpdateExport(ctx context.Context, exportID string, upd models.ExportUpdate, now time.Time) error {
	var set updateSet
	if upd.Title != nil {
		set.add("title", *upd.Title)
	}
	if upd.Subtitle != nil {
		set.add("subtitle", *upd.Subtitle)
	}
	if upd.Author != nil {
		set.add("author", *upd.Author)
	}
	if upd.CoverImage != nil {
		set.add("cover_image", *upd.CoverImage)
	}
	if upd.AboutText != nil {
		set.add("about_text", *upd.AboutText)
	}
	if upd.IncludeCategories != nil {
		set.add("include_categories", *upd.IncludeCategories)
	}
	if upd.IncludeTags != nil {
		set.add("include_tags", *upd.IncludeTags)
	}
	if upd.ThankYouTitle != nil {
		set.add("thank_you_title", *upd.ThankYouTitle)
	}
	if upd.ThankYouMessage != nil {
		set.add("thank_you_message", *upd.ThankYouMessage)
	}
	if upd.Status != nil {
		set.add("status", string(*upd.Status))
	}
	set.add("updated_at", now.UTC())

	cols, next := set.clause()
	query := fmt.Sprintf(`UPDATE ebook_exports SET %s WHERE id = $%d`, cols, next)
	res, err := r.db.ExecContext(ctx, query, append(set.args, exportID)...)
	if err != nil {
		return fmt.Errorf("failed to update export %s: %w", exportID, err)
	}
	return requireRowsAffected(res, "export")
}

// UpdateExportStatus sets the lifecycle status of an export.
func (r *ExportRepository) UpdateExportStatus(ctx context.Context, exportID string, status models.ExportStatus, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ebook_exports SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), now.UTC(), exportID,
	)
	if err != nil {
		return fmt.Errorf("failed to update status of export %s: %w", exportID, err)
	}
	return requireRowsAffected(res, "export")
}

// ReorderEntries assigns new order values to entries of one export atomically.
// An entry that does not belong to the export aborts the whole reorder.
func (r *ExportRepository) ReorderEntries(ctx context.Context, exportID string, orders []models.EntryOrder, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, o := range orders {
		res, err := tx.ExecContext(ctx,
			`UPDATE ebook_prompts SET sort_order = $1 WHERE id = $2 AND ebook_id = $3`,
			o.Order, o.ID, exportID,
		)
		if err != nil {
			return fmt.Errorf("failed to reorder entry %s: %w", o.ID, err)
		}
		if err := requireRowsAffected(res, "entry "+o.ID); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE ebook_exports SET updated_at = $1 WHERE id = $2`, now.UTC(), exportID)
	if err != nil {
		return fmt.Errorf("failed to touch export %s: %w", exportID, err)
	}
	if err := requireRowsAffected(res, "export"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

// UpdateEntry applies a partial update to an entry's overrides and returns the entry
// without its prompt.
func (r *ExportRepository) UpdateEntry(ctx context.Context, exportID, entryID string, upd models.EntryUpdate) (*models.EbookPromptEntry, error) {
	var set updateSet
	if upd.CustomTitle != nil {
		set.add("custom_title", *upd.CustomTitle)
	}
	if upd.CustomIntro != nil {
		set.add("custom_intro", *upd.CustomIntro)
	}
	if upd.IncludeInstructions != nil {
		set.add("include_instructions", *upd.IncludeInstructions)
	}
	if upd.IncludeSamples != nil {
		set.add("include_samples", *upd.IncludeSamples)
	}

	var row *sql.Row
	if set.empty() {
		row = r.db.QueryRowContext(ctx,
			`SELECT `+entryColumns+` FROM ebook_prompts WHERE id = $1 AND ebook_id = $2`,
			entryID, exportID,
		)
	} else {
		cols, next := set.clause()
		query := fmt.Sprintf(`UPDATE ebook_prompts SET %s WHERE id = $%d AND ebook_id = $%d RETURNING %s`,
			cols, next, next+1, entryColumns)
		row = r.db.QueryRowContext(ctx, query, append(set.args, entryID, exportID)...)
	}

	var e models.EbookPromptEntry
	err := row.Scan(&e.ID, &e.EbookID, &e.PromptID, &e.Order, &e.CustomTitle, &e.CustomIntro,
		&e.IncludeInstructions, &e.IncludeSamples, &e.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("entry not found: %w", err)
		}
		return nil, fmt.Errorf("failed to update entry %s: %w", entryID, err)
	}
	return &e, nil
}

// SetSampleInclusion toggles whether a sample output is printed in exports.
func (r *ExportRepository) SetSampleInclusion(ctx context.Context, sampleID string, include bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sample_outputs SET include_in_export = $1 WHERE id = $2`,
		include, sampleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sample output %s: %w", sampleID, err)
	}
	return requireRowsAffected(res, "sample output")
}

// DeleteExport removes an export; entries and pages cascade.
func (r *ExportRepository) DeleteExport(ctx context.Context, exportID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ebook_exports WHERE id = $1`, exportID)
	if err != nil {
		return fmt.Errorf("failed to delete export %s: %w", exportID, err)
	}
	return requireRowsAffected(res, "export")
}
