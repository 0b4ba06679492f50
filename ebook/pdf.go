package ebook

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	pageMargin   = 50.0
	footerOffset = 30.0
	lineHeight   = 1.6

	coreSans = "Helvetica"
	coreMono = "Courier"
)

// rgb is a color as 0-255 components.
type rgb struct{ r, g, b int }

var (
	colorInk        = rgb{31, 41, 55}
	colorBody       = rgb{55, 65, 81}
	colorMuted      = rgb{107, 114, 128}
	colorRule       = rgb{229, 231, 235}
	colorDots       = rgb{209, 213, 219}
	colorBrand      = rgb{79, 70, 229}
	colorWhite      = rgb{255, 255, 255}
	colorCoverMuted = rgb{220, 218, 250}
	colorAlert      = rgb{239, 68, 68}
	colorChip       = rgb{243, 244, 246}
	colorIntroBg    = rgb{240, 249, 255}
	colorInstrBg    = rgb{239, 246, 255}
	colorCodeBg     = rgb{249, 250, 251}
	colorCodeInk    = rgb{17, 24, 39}
)

// FontOptions selects the text fonts. With an empty Family the PDF core
// fonts are used and text is translated to cp1252; otherwise Family-Regular.ttf,
// Family-Bold.ttf and Family-Italic.ttf are loaded from Dir as UTF-8 fonts.
type FontOptions struct {
	Dir    string
	Family string
}

// UTF8 reports whether a TrueType family is configured.
func (f FontOptions) UTF8() bool {
	return f.Family != ""
}

// Files returns the font files a UTF-8 family needs, keyed by fpdf style.
func (f FontOptions) Files() map[string]string {
	return map[string]string{
		"":  f.Family + "-Regular.ttf",
		"B": f.Family + "-Bold.ttf",
		"I": f.Family + "-Italic.ttf",
	}
}

// pageState is what header and footer callbacks need to know about the
// logical page being drawn.
type pageState struct {
	kind   PageKind
	header string
}

type pdfRenderer struct {
	pdf      *fpdf.Fpdf
	fonts    FontOptions
	sans     string
	tr       func(string) string
	pending  pageState
	current  pageState
	imageSeq int
	dropped  int
	logger   *slog.Logger
}

// RenderPDF serializes a composed document to PDF bytes.
func RenderPDF(doc *Document, fonts FontOptions, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pdf := fpdf.New("P", "pt", "A4", fonts.Dir)
	r := &pdfRenderer{
		pdf:    pdf,
		fonts:  fonts,
		sans:   coreSans,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		logger: logger,
	}
	if fonts.UTF8() {
		for style, file := range fonts.Files() {
			pdf.AddUTF8Font(fonts.Family, style, file)
		}
		r.sans = fonts.Family
	}

	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCompression(true)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(doc.Title, true)
	pdf.SetSubject(doc.Subtitle, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.SetCreator("promptbook", true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetHeaderFuncMode(r.header, false)
	pdf.SetFooterFunc(r.footer)

	for _, page := range doc.Pages {
		r.pending = pageState{kind: page.Kind, header: page.Header}
		pdf.AddPage()
		switch page.Kind {
		case PageCover, PageBack:
			r.renderCoverStyle(page)
		default:
			r.renderBlocks(page.Blocks)
		}
		if pdf.Err() {
			return nil, fmt.Errorf("failed to lay out %s page: %w", page.Kind, pdf.Error())
		}
		if r.dropped > 0 {
			logger.Warn("characters outside cp1252 replaced; set ebook.font_family for UTF-8 output",
				"page", page.Kind.String(), "dropped", r.dropped)
			r.dropped = 0
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// header runs at the start of every physical page, including automatic
// page breaks, so the state swap happens here.
func (r *pdfRenderer) header() {
	r.current = r.pending
	w, h := r.pdf.GetPageSize()

	if r.current.kind == PageCover || r.current.kind == PageBack {
		r.fill(colorBrand)
		r.pdf.Rect(0, 0, w, h, "F")
		return
	}
	if r.current.header == "" {
		return
	}
	r.font("", 8)
	r.ink(colorMuted)
	r.pdf.SetY(pageMargin - 30)
	r.pdf.CellFormat(0, 10, r.text(r.current.header, false), "", 1, "C", false, 0, "")
	r.draw(colorRule)
	r.pdf.SetLineWidth(1)
	y := r.pdf.GetY() + 6
	r.pdf.Line(pageMargin, y, w-pageMargin, y)
	r.pdf.SetY(pageMargin)
}

func (r *pdfRenderer) footer() {
	if r.current.kind == PageCover || r.current.kind == PageBack {
		return
	}
	r.font("", 10)
	r.ink(colorMuted)
	r.pdf.SetY(-footerOffset)
	r.pdf.CellFormat(0, 10, strconv.Itoa(r.pdf.PageNo()-1), "", 0, "C", false, 0, "")
}

func (r *pdfRenderer) renderCoverStyle(page Page) {
	_, h := r.pdf.GetPageSize()
	r.pdf.SetY(h * 0.28)
	for _, blk := range page.Blocks {
		switch blk.Kind {
		case BlockImage:
			r.image(blk, true)
			r.pdf.Ln(40)
		case BlockNotice:
			r.font("I", 12)
			r.ink(colorCoverMuted)
			r.multi(blk.Text, 12, "C", false, false)
			r.pdf.Ln(20)
		case BlockTitle:
			r.font("B", 36)
			r.ink(colorWhite)
			r.multi(blk.Text, 36*1.2, "C", false, false)
			r.pdf.Ln(30)
		case BlockSubtitle:
			r.font("", 18)
			r.ink(colorCoverMuted)
			r.multi(blk.Text, 18*1.4, "C", false, false)
			r.pdf.Ln(40)
		case BlockByline, BlockFootnote:
			r.pdf.Ln(20)
			r.font("", 14)
			r.ink(colorCoverMuted)
			r.multi(blk.Text, 14*1.4, "C", false, false)
		}
	}
}

func (r *pdfRenderer) renderBlocks(blocks []Block) {
	for _, blk := range blocks {
		r.renderBlock(blk)
	}
}

func (r *pdfRenderer) renderBlock(blk Block) {
	switch blk.Kind {
	case BlockSectionTitle:
		r.font("B", 22)
		r.ink(colorInk)
		r.multi(blk.Text, 30, "C", false, false)
		r.pdf.Ln(20)
	case BlockChapterTitle:
		r.pdf.Ln(10)
		r.font("B", 18)
		r.ink(colorInk)
		r.multi(blk.Text, 24, "L", false, false)
		r.pdf.Ln(12)
	case BlockTypeBadge:
		r.chips([]Badge{{Text: blk.Text}}, 10)
		r.pdf.Ln(10)
	case BlockTags:
		r.chips(blk.Badges, 9)
		r.pdf.Ln(10)
	case BlockIntro:
		r.font("I", 12)
		r.ink(colorBrand)
		r.fill(colorIntroBg)
		r.multi(blk.Text, 12*1.5, "L", true, false)
		r.pdf.Ln(12)
	case BlockLabel:
		r.pdf.Ln(12)
		r.font("B", 12)
		r.ink(colorInk)
		r.multi(blk.Text, 16, "L", false, false)
		r.pdf.Ln(6)
	case BlockParagraph:
		r.font("", 11)
		r.ink(colorBody)
		r.multi(blk.Text, 11*lineHeight, "J", false, false)
		r.pdf.Ln(8)
	case BlockInstructions:
		r.font("", 11)
		r.ink(colorBody)
		r.fill(colorInstrBg)
		r.multi(blk.Text, 11*lineHeight, "L", true, false)
		r.pdf.Ln(10)
	case BlockCode:
		r.pdf.SetFont(coreMono, "", 10.5)
		r.ink(colorCodeInk)
		r.fill(colorCodeBg)
		r.multi(blk.Text, 10.5*1.5, "L", true, true)
		r.pdf.Ln(10)
	case BlockSample:
		r.fill(colorChip)
		for _, child := range blk.Children {
			r.renderSampleChild(child)
		}
		r.pdf.Ln(10)
	case BlockTOCEntry:
		r.tocLine(blk)
	case BlockDivider:
		r.pdf.Ln(20)
		w, _ := r.pdf.GetPageSize()
		r.draw(colorRule)
		r.pdf.SetLineWidth(1)
		y := r.pdf.GetY()
		r.pdf.Line(pageMargin, y, w-pageMargin, y)
		r.pdf.Ln(20)
	default:
		r.renderSampleChild(blk)
	}
}

func (r *pdfRenderer) renderSampleChild(blk Block) {
	switch blk.Kind {
	case BlockSampleTitle:
		r.font("B", 10)
		r.ink(colorInk)
		r.fill(colorChip)
		r.multi(blk.Text, 14, "L", true, false)
	case BlockSampleText:
		r.font("", 10)
		r.ink(colorBody)
		r.fill(colorChip)
		r.multi(blk.Text, 14, "L", true, false)
	case BlockCaption, BlockAttachment:
		r.font("", 9)
		r.ink(colorMuted)
		r.fill(colorChip)
		r.multi(blk.Text, 13, "L", true, false)
	case BlockNotice:
		r.font("I", 9)
		r.ink(colorAlert)
		r.fill(colorChip)
		r.multi(blk.Text, 13, "L", true, false)
	case BlockImage:
		r.pdf.Ln(6)
		r.image(blk, false)
		r.pdf.Ln(6)
	}
}

// image places a resolved asset scaled into its box. An asset the PDF
// writer cannot accept degrades to a notice like a missing file would.
func (r *pdfRenderer) image(blk Block, centered bool) {
	prepared, err := prepareImage(*blk.Asset)
	if err != nil {
		r.logger.Warn("image not embeddable, rendering notice", "path", blk.Asset.Path, "error", err)
		r.font("I", 9)
		r.ink(colorAlert)
		r.multi("Image could not be loaded: "+blk.Asset.Ref, 13, "C", false, false)
		return
	}

	r.imageSeq++
	name := fmt.Sprintf("img%03d", r.imageSeq)
	opts := fpdf.ImageOptions{ImageType: prepared.imageType}
	r.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(prepared.data))

	w, h := fitBox(float64(prepared.width), float64(prepared.height), blk.MaxW, blk.MaxH)
	x := pageMargin
	if centered {
		pageW, _ := r.pdf.GetPageSize()
		x = (pageW - w) / 2
	}
	r.pdf.ImageOptions(name, x, 0, w, h, true, opts, 0, "")
}

func (r *pdfRenderer) chips(badges []Badge, size float64) {
	r.font("", size)
	pageW, _ := r.pdf.GetPageSize()
	right := pageW - pageMargin
	chipH := size + 6
	x := pageMargin
	y := r.pdf.GetY()

	for _, badge := range badges {
		label := r.text(badge.Text, false)
		w := r.pdf.GetStringWidth(label) + 12
		if x+w > right && x > pageMargin {
			x = pageMargin
			y += chipH + 5
		}
		r.fill(colorChip)
		r.ink(colorMuted)
		if c, ok := parseHexColor(badge.Color); ok {
			r.ink(c)
		}
		r.pdf.SetXY(x, y)
		r.pdf.CellFormat(w, chipH, label, "", 0, "C", true, 0, "")
		x += w + 5
	}
	r.pdf.SetXY(pageMargin, y+chipH)
}

func (r *pdfRenderer) tocLine(blk Block) {
	r.font("", 11)
	r.ink(colorBody)
	pageW, _ := r.pdf.GetPageSize()
	avail := pageW - 2*pageMargin
	num := strconv.Itoa(blk.PageRef)
	numW := r.pdf.GetStringWidth(num) + 4

	label := r.fitWidth(r.text(blk.Text, false), avail-numW-30)
	labelW := r.pdf.GetStringWidth(label)

	y := r.pdf.GetY()
	r.pdf.CellFormat(labelW+2, 18, label, "", 0, "L", false, 0, "")

	dotsFrom := pageMargin + labelW + 10
	dotsTo := pageMargin + avail - numW - 6
	if dotsTo > dotsFrom {
		r.draw(colorDots)
		r.pdf.SetLineWidth(1)
		r.pdf.SetDashPattern([]float64{1, 2}, 0)
		r.pdf.Line(dotsFrom, y+13, dotsTo, y+13)
		r.pdf.SetDashPattern([]float64{}, 0)
	}

	r.pdf.SetX(pageMargin + avail - numW)
	r.pdf.CellFormat(numW, 18, num, "", 1, "R", false, 0, "")
	r.pdf.Ln(4)
}

func (r *pdfRenderer) multi(s string, h float64, align string, fill, mono bool) {
	r.pdf.SetX(pageMargin)
	r.pdf.MultiCell(0, h, r.text(s, mono), "", align, fill)
}

func (r *pdfRenderer) font(style string, size float64) {
	r.pdf.SetFont(r.sans, style, size)
}

// text prepares a string for the current font: core fonts need cp1252.
// Runes cp1252 cannot hold are counted in r.dropped.
func (r *pdfRenderer) text(s string, mono bool) string {
	if r.fonts.UTF8() && !mono {
		return s
	}
	for _, c := range s {
		if _, ok := charmap.Windows1252.EncodeRune(c); !ok {
			r.dropped++
		}
	}
	return r.tr(s)
}

// fitWidth cuts an already translated label so it fits maxW, adding "...".
// Core font strings are cp1252 bytes, so they are cut per byte, not per rune.
func (r *pdfRenderer) fitWidth(s string, maxW float64) string {
	if r.pdf.GetStringWidth(s) <= maxW {
		return s
	}
	const ellipsis = "..."
	maxW -= r.pdf.GetStringWidth(ellipsis)

	cut := 0
	for i := 0; i < len(s); {
		size := 1
		if r.fonts.UTF8() {
			_, size = utf8.DecodeRuneInString(s[i:])
		}
		if r.pdf.GetStringWidth(s[:i+size]) > maxW {
			break
		}
		i += size
		cut = i
	}
	return strings.TrimSpace(s[:cut]) + ellipsis
}

func (r *pdfRenderer) ink(c rgb)  { r.pdf.SetTextColor(c.r, c.g, c.b) }
func (r *pdfRenderer) fill(c rgb) { r.pdf.SetFillColor(c.r, c.g, c.b) }
func (r *pdfRenderer) draw(c rgb) { r.pdf.SetDrawColor(c.r, c.g, c.b) }

func parseHexColor(s string) (rgb, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return rgb{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}, true
}
