package ebook

import (
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	epub "github.com/go-shiori/go-epub"
)

const epubStyles = `body { font-family: serif; color: #374151; line-height: 1.6; }
h1 { text-align: center; color: #1f2937; }
h2 { color: #1f2937; }
.cover { text-align: center; }
.subtitle, .byline, .footnote { text-align: center; color: #6b7280; }
.badge, .tag { display: inline-block; padding: 2px 8px; margin: 0 4px 4px 0; background: #f3f4f6; border-radius: 4px; font-size: 0.8em; }
.intro { font-style: italic; color: #4f46e5; background: #f0f9ff; padding: 8px; }
.instructions { background: #eff6ff; padding: 8px; }
pre { font-family: monospace; white-space: pre-wrap; background: #f9fafb; padding: 8px; }
.sample { background: #f3f4f6; padding: 8px; margin: 8px 0; }
.caption, .attachment { font-size: 0.8em; color: #6b7280; }
.notice { font-style: italic; color: #ef4444; }
.toc { list-style: none; padding: 0; }
.toc li span { float: right; }
`

// RenderEPUB serializes a composed document to EPUB bytes, one section per
// logical page. go-epub only writes to disk, so the book is written to a
// scratch directory and read back.
func RenderEPUB(doc *Document, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	e, err := epub.NewEpub(doc.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to create epub: %w", err)
	}
	e.SetLang("en")
	if doc.Author != "" {
		e.SetAuthor(doc.Author)
	}
	if doc.Subtitle != "" {
		e.SetDescription(doc.Subtitle)
	}

	css, err := e.AddCSS("data:text/css;base64,"+base64.StdEncoding.EncodeToString([]byte(epubStyles)), "book.css")
	if err != nil {
		return nil, fmt.Errorf("failed to add stylesheet to epub: %w", err)
	}

	w := &epubWriter{book: e, logger: logger}
	for i, page := range doc.Pages {
		body := w.page(page)
		title := sectionTitle(page, i)
		if _, err := e.AddSection(body, title, fmt.Sprintf("page-%03d.xhtml", i+1), css); err != nil {
			return nil, fmt.Errorf("failed to add %s section to epub: %w", page.Kind, err)
		}
	}

	dir, err := os.MkdirTemp("", "promptbook-epub-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "book.epub")
	if err := e.Write(out); err != nil {
		return nil, fmt.Errorf("failed to write epub file: %w", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read back epub file: %w", err)
	}
	return data, nil
}

func sectionTitle(page Page, i int) string {
	switch page.Kind {
	case PageCover:
		return "Cover"
	case PageContents:
		return "Table of Contents"
	case PageAbout:
		return "About"
	case PageBack:
		return "Thank You"
	}
	for _, blk := range page.Blocks {
		if blk.Kind == BlockChapterTitle {
			return blk.Text
		}
	}
	return "Section " + strconv.Itoa(i+1)
}

type epubWriter struct {
	book     *epub.Epub
	imageSeq int
	logger   *slog.Logger
}

func (w *epubWriter) page(page Page) string {
	var b strings.Builder
	if page.Kind == PageCover || page.Kind == PageBack {
		b.WriteString(`<div class="cover">`)
		w.blocks(&b, page.Blocks)
		b.WriteString(`</div>`)
		return b.String()
	}
	w.blocks(&b, page.Blocks)
	return b.String()
}

func (w *epubWriter) blocks(b *strings.Builder, blocks []Block) {
	inTOC := false
	for _, blk := range blocks {
		if blk.Kind == BlockTOCEntry && !inTOC {
			b.WriteString(`<ul class="toc">`)
			inTOC = true
		} else if blk.Kind != BlockTOCEntry && inTOC {
			b.WriteString(`</ul>`)
			inTOC = false
		}
		w.block(b, blk)
	}
	if inTOC {
		b.WriteString(`</ul>`)
	}
}

func (w *epubWriter) block(b *strings.Builder, blk Block) {
	esc := html.EscapeString(blk.Text)
	switch blk.Kind {
	case BlockTitle:
		fmt.Fprintf(b, "<h1>%s</h1>", esc)
	case BlockSubtitle:
		fmt.Fprintf(b, `<p class="subtitle">%s</p>`, esc)
	case BlockByline:
		fmt.Fprintf(b, `<p class="byline">%s</p>`, esc)
	case BlockSectionTitle, BlockChapterTitle:
		fmt.Fprintf(b, "<h2>%s</h2>", esc)
	case BlockTypeBadge:
		fmt.Fprintf(b, `<p><span class="badge">%s</span></p>`, esc)
	case BlockTags:
		b.WriteString("<p>")
		for _, badge := range blk.Badges {
			style := ""
			if _, ok := parseHexColor(badge.Color); ok {
				style = fmt.Sprintf(` style="color: %s"`, html.EscapeString(badge.Color))
			}
			fmt.Fprintf(b, `<span class="tag"%s>%s</span>`, style, html.EscapeString(badge.Text))
		}
		b.WriteString("</p>")
	case BlockIntro:
		fmt.Fprintf(b, `<p class="intro">%s</p>`, esc)
	case BlockLabel:
		fmt.Fprintf(b, "<h3>%s</h3>", esc)
	case BlockParagraph:
		fmt.Fprintf(b, "<p>%s</p>", esc)
	case BlockInstructions:
		fmt.Fprintf(b, `<p class="instructions">%s</p>`, esc)
	case BlockCode:
		fmt.Fprintf(b, "<pre>%s</pre>", esc)
	case BlockSample:
		b.WriteString(`<div class="sample">`)
		w.blocks(b, blk.Children)
		b.WriteString(`</div>`)
	case BlockSampleTitle:
		fmt.Fprintf(b, "<h4>%s</h4>", esc)
	case BlockSampleText:
		fmt.Fprintf(b, "<p>%s</p>", esc)
	case BlockCaption:
		fmt.Fprintf(b, `<p class="caption">%s</p>`, esc)
	case BlockAttachment:
		fmt.Fprintf(b, `<p class="attachment">%s</p>`, esc)
	case BlockNotice:
		fmt.Fprintf(b, `<p class="notice">%s</p>`, esc)
	case BlockFootnote:
		fmt.Fprintf(b, `<p class="footnote">%s</p>`, esc)
	case BlockTOCEntry:
		fmt.Fprintf(b, "<li>%s <span>%d</span></li>", esc, blk.PageRef)
	case BlockDivider:
		b.WriteString("<hr/>")
	case BlockImage:
		w.image(b, blk)
	}
}

func (w *epubWriter) image(b *strings.Builder, blk Block) {
	w.imageSeq++
	name := fmt.Sprintf("image-%03d%s", w.imageSeq, filepath.Ext(blk.Asset.Path))
	src, err := w.book.AddImage(blk.Asset.DataURI(), name)
	if err != nil {
		w.logger.Warn("failed to embed image in epub", "path", blk.Asset.Path, "error", err)
		fmt.Fprintf(b, `<p class="notice">%s</p>`, html.EscapeString("Image could not be loaded: "+blk.Asset.Ref))
		return
	}
	fmt.Fprintf(b, `<p><img src="%s" alt="%s" style="max-width: %.0fpx; max-height: %.0fpx"/></p>`,
		src, html.EscapeString(filepath.Base(blk.Asset.Path)), blk.MaxW, blk.MaxH)
}
