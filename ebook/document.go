package ebook

import (
	"strings"
	"time"
)

// PageKind identifies a logical page in the composed document.
type PageKind int

const (
	PageCover PageKind = iota
	PageContents
	PageAbout
	PageChapter
	PageBack
)

func (k PageKind) String() string {
	switch k {
	case PageCover:
		return "cover"
	case PageContents:
		return "contents"
	case PageAbout:
		return "about"
	case PageChapter:
		return "chapter"
	case PageBack:
		return "back"
	default:
		return "unknown"
	}
}

// BlockKind identifies how a block is laid out.
type BlockKind int

const (
	BlockTitle BlockKind = iota
	BlockSubtitle
	BlockByline
	BlockSectionTitle
	BlockChapterTitle
	BlockTypeBadge
	BlockTags
	BlockIntro
	BlockLabel
	BlockParagraph
	BlockInstructions
	BlockCode
	BlockSample
	BlockSampleTitle
	BlockSampleText
	BlockCaption
	BlockImage
	BlockNotice
	BlockAttachment
	BlockTOCEntry
	BlockDivider
	BlockFootnote
)

// Badge is a small labelled chip such as a tag.
type Badge struct {
	Text  string
	Color string
}

// Block is one unit of page content. Only the fields relevant to Kind are set.
type Block struct {
	Kind     BlockKind
	Text     string
	Badges   []Badge
	PageRef  int
	Asset    *Asset
	MaxW     float64
	MaxH     float64
	Children []Block
}

// Page is a logical page. Renderers may spill a page over several physical
// pages, but never merge two logical pages.
type Page struct {
	Kind   PageKind
	Header string
	Blocks []Block
}

// Document is the fully composed, renderer-independent ebook.
type Document struct {
	Title       string
	Subtitle    string
	Author      string
	GeneratedAt time.Time
	Pages       []Page
}

// Count returns the number of pages of the given kind.
func (d *Document) Count(kind PageKind) int {
	n := 0
	for _, p := range d.Pages {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// Text returns the page's visible text, one block per line, children indented.
func (p Page) Text() string {
	var b strings.Builder
	writeBlockText(&b, p.Blocks, "")
	return b.String()
}

func writeBlockText(b *strings.Builder, blocks []Block, indent string) {
	for _, blk := range blocks {
		switch {
		case blk.Kind == BlockImage:
			b.WriteString(indent + "[image " + blk.Asset.Path + "]\n")
		case blk.Kind == BlockDivider:
			b.WriteString(indent + "---\n")
		case len(blk.Badges) > 0:
			names := make([]string, len(blk.Badges))
			for i, badge := range blk.Badges {
				names[i] = badge.Text
			}
			b.WriteString(indent + strings.Join(names, " | ") + "\n")
		case blk.Text != "":
			b.WriteString(indent + blk.Text + "\n")
		}
		if len(blk.Children) > 0 {
			writeBlockText(b, blk.Children, indent+"  ")
		}
	}
}
