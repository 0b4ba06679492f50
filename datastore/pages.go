package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coreybb/promptbook/models"
)

const pageColumns = `id, ebook_id, title, content, sort_order, page_type, image_url, created_at, updated_at`

func scanPage(s interface{ Scan(...any) error }) (models.EbookPage, error) {
	var p models.EbookPage
	var pageType string
	err := s.Scan(&p.ID, &p.EbookID, &p.Title, &p.Content, &p.Order, &pageType, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	p.PageType = models.PageType(pageType)
	return p, err
}

func getPages(ctx context.Context, q queryer, exportID string) ([]models.EbookPage, error) {
	query := `SELECT ` + pageColumns + ` FROM ebook_pages WHERE ebook_id = $1 ORDER BY ` + pageOrdering
	rows, err := q.QueryContext(ctx, query, exportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages for export %s: %w", exportID, err)
	}
	defer rows.Close()

	pages := []models.EbookPage{}
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page row for export %s: %w", exportID, err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating page rows for export %s: %w", exportID, err)
	}
	return pages, nil
}

// CreatePage inserts a custom page. A missing export wraps sql.ErrNoRows.
func (r *ExportRepository) CreatePage(ctx context.Context, page *models.EbookPage) error {
	if page.CreatedAt.IsZero() {
		page.CreatedAt = time.Now().UTC()
	}
	page.UpdatedAt = page.CreatedAt

	query := `
		INSERT INTO ebook_pages (id, ebook_id, title, content, sort_order, page_type, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		page.ID, page.EbookID, page.Title, page.Content, page.Order, string(page.PageType), page.ImageURL,
		page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("export not found: %w", sql.ErrNoRows)
		}
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// UpdatePage applies a partial update to a page of the given export.
func (r *ExportRepository) UpdatePage(ctx context.Context, exportID, pageID string, upd models.PageUpdate, now time.Time) (*models.EbookPage, error) {
	var set updateSet
	if upd.Title != nil {
		set.add("title", *upd.Title)
	}
	if upd.Content != nil {
		set.add("content", *upd.Content)
	}
	if upd.Order != nil {
		set.add("sort_order", *upd.Order)
	}
	if upd.PageType != nil {
		set.add("page_type", string(*upd.PageType))
	}
	if upd.ImageURL != nil {
		set.add("image_url", *upd.ImageURL)
	}
	set.add("updated_at", now.UTC())

	cols, next := set.clause()
	query := fmt.Sprintf(`UPDATE ebook_pages SET %s WHERE id = $%d AND ebook_id = $%d RETURNING %s`,
		cols, next, next+1, pageColumns)

	p, err := scanPage(r.db.QueryRowContext(ctx, query, append(set.args, pageID, exportID)...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("page not found: %w", err)
		}
		return nil, fmt.Errorf("failed to update page %s: %w", pageID, err)
	}
	return &p, nil
}

// DeletePage removes a page of the given export.
func (r *ExportRepository) DeletePage(ctx context.Context, exportID, pageID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ebook_pages WHERE id = $1 AND ebook_id = $2`, pageID, exportID)
	if err != nil {
		return fmt.Errorf("failed to delete page %s: %w", pageID, err)
	}
	return requireRowsAffected(res, "page")
}
