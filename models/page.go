package models

import "time"

// PageType defines the set of allowed custom page kinds.
type PageType string

const (
	PageTypeText    PageType = "TEXT"
	PageTypeImage   PageType = "IMAGE"
	PageTypeDivider PageType = "DIVIDER"
	PageTypeCover   PageType = "COVER"
	PageTypeAbout   PageType = "ABOUT"
)

// EbookPage is a custom page attached to an export. Pages are stored and
// ordered but are not part of the generated page sequence.
type EbookPage struct {
	ID        string    `json:"id"`
	EbookID   string    `json:"ebookId"`
	Title     string    `json:"title,omitempty"`
	Content   string    `json:"content"`
	Order     int       `json:"order"`
	PageType  PageType  `json:"pageType"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PageInput creates a custom page.
type PageInput struct {
	Title    string   `json:"title,omitempty" validate:"max=200"`
	Content  string   `json:"content"`
	Order    int      `json:"order" validate:"gte=0"`
	PageType PageType `json:"pageType" validate:"required,oneof=TEXT IMAGE DIVIDER COVER ABOUT"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// PageUpdate is a partial update of a custom page.
type PageUpdate struct {
	Title    *string   `json:"title,omitempty" validate:"omitempty,max=200"`
	Content  *string   `json:"content,omitempty"`
	Order    *int      `json:"order,omitempty" validate:"omitempty,gte=0"`
	PageType *PageType `json:"pageType,omitempty" validate:"omitempty,oneof=TEXT IMAGE DIVIDER COVER ABOUT"`
	ImageURL *string   `json:"imageUrl,omitempty"`
}
