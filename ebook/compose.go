package ebook

import (
	"fmt"
	"time"

	"github.com/coreybb/promptbook/models"
)

const (
	coverImageMaxW  = 200
	coverImageMaxH  = 200
	sampleImageMaxW = 300
	sampleImageMaxH = 200

	// Estimated page of the first section after the cover and contents pages.
	firstSectionPage = 3

	generatedDateLayout = "January 2, 2006"
)

// ComposeOptions controls paragraph sizes.
type ComposeOptions struct {
	BodyChunkSize   int
	SampleChunkSize int
}

func (o ComposeOptions) withDefaults() ComposeOptions {
	if o.BodyChunkSize <= 0 {
		o.BodyChunkSize = DefaultBodyChunkSize
	}
	if o.SampleChunkSize <= 0 {
		o.SampleChunkSize = DefaultSampleChunkSize
	}
	return o
}

// ImageReferences lists every image reference the composer will ask for.
func ImageReferences(book *Book) []string {
	var refs []string
	if book.CoverImage != "" {
		refs = append(refs, book.CoverImage)
	}
	for _, ch := range book.Chapters {
		for _, s := range ch.Samples {
			if s.Kind == SampleImage && s.FilePath != "" {
				refs = append(refs, s.FilePath)
			}
		}
	}
	return refs
}

// Compose lays out the page sequence: cover, contents, optional about page,
// one page per chapter and the back page. assets holds resolved images keyed
// by reference; a missing or failed entry produces a notice, never an error.
func Compose(book *Book, assets map[string]Asset, generatedAt time.Time, opts ComposeOptions) *Document {
	opts = opts.withDefaults()

	doc := &Document{
		Title:       book.Title,
		Subtitle:    book.Subtitle,
		Author:      book.Author,
		GeneratedAt: generatedAt,
	}

	doc.Pages = append(doc.Pages, coverPage(book, assets))
	doc.Pages = append(doc.Pages, contentsPage(book))
	if book.HasAbout() {
		doc.Pages = append(doc.Pages, aboutPage(book, opts))
	}
	for i, ch := range book.Chapters {
		last := i == len(book.Chapters)-1
		doc.Pages = append(doc.Pages, chapterPage(book, ch, assets, opts, last))
	}
	doc.Pages = append(doc.Pages, backPage(book, generatedAt))
	return doc
}

func coverPage(book *Book, assets map[string]Asset) Page {
	page := Page{Kind: PageCover}

	if book.CoverImage != "" {
		if asset := lookupAsset(assets, book.CoverImage); asset.OK() {
			page.Blocks = append(page.Blocks, Block{Kind: BlockImage, Asset: &asset, MaxW: coverImageMaxW, MaxH: coverImageMaxH})
		} else {
			page.Blocks = append(page.Blocks, Block{Kind: BlockNotice, Text: "Cover image unavailable"})
		}
	}

	page.Blocks = append(page.Blocks, Block{Kind: BlockTitle, Text: book.Title})
	if book.Subtitle != "" {
		page.Blocks = append(page.Blocks, Block{Kind: BlockSubtitle, Text: book.Subtitle})
	}
	if book.Author != "" {
		page.Blocks = append(page.Blocks, Block{Kind: BlockByline, Text: "by " + book.Author})
	}
	return page
}

// contentsPage estimates page numbers by assuming every section fits on one
// page: About is page 3 when present and chapters follow one page each.
func contentsPage(book *Book) Page {
	page := Page{Kind: PageContents, Header: book.Title}
	page.Blocks = append(page.Blocks, Block{Kind: BlockSectionTitle, Text: "Table of Contents"})

	next := firstSectionPage
	if book.HasAbout() {
		page.Blocks = append(page.Blocks, Block{Kind: BlockTOCEntry, Text: "About", PageRef: next})
		next++
	}
	for i, ch := range book.Chapters {
		page.Blocks = append(page.Blocks, Block{
			Kind:    BlockTOCEntry,
			Text:    fmt.Sprintf("%d. %s", ch.Number, ch.Title),
			PageRef: next + i,
		})
	}
	return page
}

func aboutPage(book *Book, opts ComposeOptions) Page {
	page := Page{Kind: PageAbout, Header: book.Title}
	page.Blocks = append(page.Blocks, Block{Kind: BlockSectionTitle, Text: "About"})
	for _, chunk := range displayChunks(NormalizeMarkup(book.AboutText), opts.BodyChunkSize) {
		page.Blocks = append(page.Blocks, Block{Kind: BlockParagraph, Text: chunk})
	}
	return page
}

func chapterPage(book *Book, ch Chapter, assets map[string]Asset, opts ComposeOptions, last bool) Page {
	page := Page{Kind: PageChapter, Header: book.Title}
	add := func(b Block) { page.Blocks = append(page.Blocks, b) }

	add(Block{Kind: BlockChapterTitle, Text: fmt.Sprintf("Chapter %d: %s", ch.Number, ch.Title)})

	if book.IncludeCategories && ch.PromptType != "" {
		add(Block{Kind: BlockTypeBadge, Text: ch.PromptType})
	}
	if book.IncludeTags && len(ch.Tags) > 0 {
		add(Block{Kind: BlockTags, Badges: tagBadges(ch.Tags)})
	}
	if ch.Intro != "" {
		add(Block{Kind: BlockIntro, Text: ch.Intro})
	}

	if ch.Instructions != "" {
		add(Block{Kind: BlockLabel, Text: "Instructions"})
		for _, chunk := range displayChunks(NormalizeMarkup(ch.Instructions), opts.BodyChunkSize) {
			add(Block{Kind: BlockInstructions, Text: chunk})
		}
	}

	add(Block{Kind: BlockLabel, Text: "Prompt"})
	for _, chunk := range displayChunks(ch.Content, opts.BodyChunkSize) {
		add(Block{Kind: BlockCode, Text: chunk})
	}

	if len(ch.Samples) > 0 {
		add(Block{Kind: BlockLabel, Text: "Sample Outputs"})
		for _, s := range ch.Samples {
			add(sampleBlock(s, assets, opts))
		}
	}

	if !last {
		add(Block{Kind: BlockDivider})
	}
	return page
}

func sampleBlock(s Sample, assets map[string]Asset, opts ComposeOptions) Block {
	card := Block{Kind: BlockSample}
	add := func(b Block) { card.Children = append(card.Children, b) }

	if s.Title != "" {
		add(Block{Kind: BlockSampleTitle, Text: s.Title})
	}
	if s.Content != "" {
		for _, chunk := range displayChunks(s.Content, opts.SampleChunkSize) {
			add(Block{Kind: BlockSampleText, Text: chunk})
		}
	}

	switch {
	case s.Kind == SampleImage && s.FilePath != "":
		add(Block{Kind: BlockCaption, Text: "Image: " + s.FileName()})
		if asset := lookupAsset(assets, s.FilePath); asset.OK() {
			add(Block{Kind: BlockImage, Asset: &asset, MaxW: sampleImageMaxW, MaxH: sampleImageMaxH})
		} else {
			add(Block{Kind: BlockNotice, Text: "Image could not be loaded: " + s.FilePath})
		}
	case s.Kind != SampleImage && s.FilePath != "" && s.Content == "":
		add(Block{Kind: BlockAttachment, Text: "Attachment: " + s.FileName()})
	}
	return card
}

func backPage(book *Book, generatedAt time.Time) Page {
	page := Page{Kind: PageBack}
	page.Blocks = append(page.Blocks, Block{Kind: BlockTitle, Text: book.ThankYouTitle})
	if msg := NormalizeMarkup(book.ThankYouMessage); msg != "" {
		page.Blocks = append(page.Blocks, Block{Kind: BlockSubtitle, Text: msg})
	}
	page.Blocks = append(page.Blocks, Block{Kind: BlockFootnote, Text: "Generated on " + generatedAt.Format(generatedDateLayout)})
	return page
}

func tagBadges(tags []models.Tag) []Badge {
	badges := make([]Badge, 0, len(tags))
	for _, t := range tags {
		badges = append(badges, Badge{Text: t.Name, Color: t.Color})
	}
	return badges
}

func lookupAsset(assets map[string]Asset, ref string) Asset {
	if asset, ok := assets[ref]; ok {
		return asset
	}
	return Asset{Ref: ref, Err: fmt.Errorf("%w: %s was not resolved", ErrAssetUnavailable, ref)}
}
