package models

import "time"

// ExportStatus is the lifecycle state of an ebook export.
type ExportStatus string

const (
	ExportStatusDraft    ExportStatus = "DRAFT"
	ExportStatusReady    ExportStatus = "READY"
	ExportStatusExported ExportStatus = "EXPORTED"
)

// DefaultThankYouTitle is used on the back page when no title is configured.
const DefaultThankYouTitle = "Thank You"

// EbookExport is an export job: ebook metadata plus the ordered prompts it prints.
type EbookExport struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Subtitle          string             `json:"subtitle,omitempty"`
	Author            string             `json:"author,omitempty"`
	CoverImage        string             `json:"coverImage,omitempty"`
	AboutText         string             `json:"aboutText,omitempty"`
	IncludeCategories bool               `json:"includeCategories"`
	IncludeTags       bool               `json:"includeTags"`
	ThankYouTitle     string             `json:"thankYouTitle,omitempty"`
	ThankYouMessage   string             `json:"thankYouMessage,omitempty"`
	Status            ExportStatus       `json:"status"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
	Prompts           []EbookPromptEntry `json:"prompts"`
	CustomPages       []EbookPage        `json:"customPages"`
}

// EbookPromptEntry associates an export with a source prompt and carries
// export-specific overrides. Order is zero-based and may have gaps.
type EbookPromptEntry struct {
	ID                  string    `json:"id"`
	EbookID             string    `json:"ebookId"`
	PromptID            string    `json:"promptId"`
	Order               int       `json:"order"`
	CustomTitle         string    `json:"customTitle,omitempty"`
	CustomIntro         string    `json:"customIntro,omitempty"`
	IncludeInstructions bool      `json:"includeInstructions"`
	IncludeSamples      bool      `json:"includeSamples"`
	CreatedAt           time.Time `json:"createdAt"`
	Prompt              Prompt    `json:"prompt"`
}

// EntryOrder is a single order reassignment used when reordering entries.
type EntryOrder struct {
	ID    string `json:"id" validate:"required,uuid"`
	Order int    `json:"order" validate:"gte=0"`
}

// MarkExported records a successful export.
func (e *EbookExport) MarkExported(at time.Time) {
	e.Status = ExportStatusExported
	e.UpdatedAt = at
}

// NewExportRequest selects the prompts of a new export. Entries are created
// in selection order.
type NewExportRequest struct {
	PromptIDs []string `json:"promptIds" validate:"required,min=1,dive,uuid"`
	Title     string   `json:"title,omitempty" validate:"max=200"`
	Subtitle  string   `json:"subtitle,omitempty" validate:"max=200"`
	Author    string   `json:"author,omitempty" validate:"max=200"`
}

// ExportUpdate is a partial update of export metadata. Nil fields are left unchanged.
type ExportUpdate struct {
	Title             *string       `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Subtitle          *string       `json:"subtitle,omitempty" validate:"omitempty,max=200"`
	Author            *string       `json:"author,omitempty" validate:"omitempty,max=200"`
	CoverImage        *string       `json:"coverImage,omitempty"`
	AboutText         *string       `json:"aboutText,omitempty"`
	IncludeCategories *bool         `json:"includeCategories,omitempty"`
	IncludeTags       *bool         `json:"includeTags,omitempty"`
	ThankYouTitle     *string       `json:"thankYouTitle,omitempty" validate:"omitempty,max=200"`
	ThankYouMessage   *string       `json:"thankYouMessage,omitempty"`
	Status            *ExportStatus `json:"status,omitempty" validate:"omitempty,oneof=DRAFT READY EXPORTED"`
}

// EntryUpdate is a partial update of a prompt entry's overrides.
type EntryUpdate struct {
	CustomTitle         *string `json:"customTitle,omitempty" validate:"omitempty,max=200"`
	CustomIntro         *string `json:"customIntro,omitempty"`
	IncludeInstructions *bool   `json:"includeInstructions,omitempty"`
	IncludeSamples      *bool   `json:"includeSamples,omitempty"`
}

// ExportSummary is the list view of an export.
type ExportSummary struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Subtitle    string       `json:"subtitle,omitempty"`
	Author      string       `json:"author,omitempty"`
	Status      ExportStatus `json:"status"`
	PromptCount int          `json:"promptCount"`
	PageCount   int          `json:"pageCount"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
