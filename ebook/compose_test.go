package ebook

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreybb/promptbook/models"
	"github.com/coreybb/promptbook/storage"
)

func compose(t *testing.T, export *models.EbookExport, assets map[string]Asset) *Document {
	t.Helper()
	book, err := Project(export)
	require.NoError(t, err)
	return Compose(book, assets, fixedNow, ComposeOptions{})
}

func kinds(doc *Document) []PageKind {
	out := make([]PageKind, len(doc.Pages))
	for i, p := range doc.Pages {
		out[i] = p.Kind
	}
	return out
}

func blocksOf(p Page, kind BlockKind) []Block {
	var out []Block
	for _, b := range p.Blocks {
		if b.Kind == kind {
			out = append(out, b)
		}
		for _, c := range b.Children {
			if c.Kind == kind {
				out = append(out, c)
			}
		}
	}
	return out
}

func TestCompose_PageSequence(t *testing.T) {
	tests := []struct {
		name      string
		aboutText string
		entries   int
		want      []PageKind
	}{
		{name: "no about, no prompts", entries: 0, want: []PageKind{PageCover, PageContents, PageBack}},
		{name: "about, one prompt", aboutText: "Hi", entries: 1, want: []PageKind{PageCover, PageContents, PageAbout, PageChapter, PageBack}},
		{name: "three prompts", entries: 3, want: []PageKind{PageCover, PageContents, PageChapter, PageChapter, PageChapter, PageBack}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			export := &models.EbookExport{Title: "Book", AboutText: tt.aboutText}
			for i := 0; i < tt.entries; i++ {
				export.Prompts = append(export.Prompts, models.EbookPromptEntry{Order: i, Prompt: models.Prompt{Title: "P", Content: "c"}})
			}

			doc := compose(t, export, nil)

			assert.Equal(t, tt.want, kinds(doc))
			assert.Equal(t, 1, doc.Count(PageCover))
			assert.Equal(t, 1, doc.Count(PageContents))
			assert.Equal(t, 1, doc.Count(PageBack))
			assert.Equal(t, tt.entries, doc.Count(PageChapter))
		})
	}
}

func TestCompose_MarketingScenario(t *testing.T) {
	doc := compose(t, marketingExport(), nil)

	require.Equal(t, []PageKind{PageCover, PageContents, PageChapter, PageChapter, PageBack}, kinds(doc))

	toc := blocksOf(doc.Pages[1], BlockTOCEntry)
	require.Len(t, toc, 2)
	assert.Equal(t, "1. Launch Tweet", toc[0].Text)
	assert.Equal(t, 3, toc[0].PageRef)
	assert.Equal(t, "2. Email Subject Lines", toc[1].Text)
	assert.Equal(t, 4, toc[1].PageRef)

	first := doc.Pages[2]
	assert.Equal(t, "Chapter 1: Launch Tweet", blocksOf(first, BlockChapterTitle)[0].Text)
	assert.NotContains(t, first.Text(), "Instructions")
	assert.NotContains(t, first.Text(), "Sample Outputs")
	assert.Len(t, blocksOf(first, BlockDivider), 1)

	second := doc.Pages[3]
	text := second.Text()
	assert.Contains(t, text, "Chapter 2: Email Subject Lines")
	assert.Contains(t, text, "EMAIL")
	assert.Contains(t, text, "email")
	assert.Contains(t, text, "Instructions")
	assert.Contains(t, text, "Use bold claims sparingly")
	assert.Contains(t, text, "Write five subject lines. Keep them short.")
	assert.Contains(t, text, "Big news inside")
	assert.NotContains(t, text, "not exported")
	assert.Empty(t, blocksOf(second, BlockDivider), "no divider after the last chapter")

	back := doc.Pages[4].Text()
	assert.Contains(t, back, "Thank You")
	assert.Contains(t, back, "Thanks for reading")
	assert.Contains(t, back, "Generated on March 4, 2025")
}

func TestCompose_AboutShiftsPageEstimates(t *testing.T) {
	export := marketingExport()
	export.AboutText = "## About this book\nA **short** intro. Second sentence."

	doc := compose(t, export, nil)

	require.Equal(t, PageAbout, doc.Pages[2].Kind)
	toc := blocksOf(doc.Pages[1], BlockTOCEntry)
	require.Len(t, toc, 3)
	assert.Equal(t, "About", toc[0].Text)
	assert.Equal(t, 3, toc[0].PageRef)
	assert.Equal(t, 4, toc[1].PageRef)
	assert.Equal(t, 5, toc[2].PageRef)

	about := doc.Pages[2].Text()
	assert.Contains(t, about, "About this book")
	assert.NotContains(t, about, "**")
	assert.NotContains(t, about, "##")
}

func TestCompose_CategoriesAndTagsToggles(t *testing.T) {
	export := marketingExport()
	export.IncludeCategories = false
	export.IncludeTags = false

	doc := compose(t, export, nil)

	for _, p := range doc.Pages {
		assert.Empty(t, blocksOf(p, BlockTypeBadge))
		assert.Empty(t, blocksOf(p, BlockTags))
	}
}

func TestCompose_PromptContentIsVerbatim(t *testing.T) {
	export := &models.EbookExport{Title: "Raw", Prompts: []models.EbookPromptEntry{{
		Prompt: models.Prompt{Title: "Raw", Content: "Keep **these** markers"},
	}}}

	doc := compose(t, export, nil)

	code := blocksOf(doc.Pages[2], BlockCode)
	require.Len(t, code, 1)
	assert.Equal(t, "Keep **these** markers", code[0].Text)
}

func TestCompose_CustomIntro(t *testing.T) {
	export := marketingExport()
	export.Prompts[1].CustomIntro = "Use this for launches"

	doc := compose(t, export, nil)

	intro := blocksOf(doc.Pages[2], BlockIntro)
	require.Len(t, intro, 1)
	assert.Equal(t, "Use this for launches", intro[0].Text)
	assert.Empty(t, blocksOf(doc.Pages[3], BlockIntro))
}

func TestCompose_ImageSampleEmbeddedWhenPresent(t *testing.T) {
	base := t.TempDir()
	writeFile(t, base, "uploads/images/logo.png", pngBytes(t, 8, 8))
	resolver := NewAssetResolver(storage.NewLocalUploadStore(base), 0, 0, nil)

	book, err := Project(imageSampleExport("/uploads/images/logo.png"))
	require.NoError(t, err)
	assets := resolver.ResolveAll(context.Background(), ImageReferences(book))

	doc := Compose(book, assets, fixedNow, ComposeOptions{})
	chapter := doc.Pages[2]

	assert.Len(t, blocksOf(chapter, BlockImage), 1)
	assert.Contains(t, chapter.Text(), "Image: logo.png")
	assert.NotContains(t, chapter.Text(), "could not be loaded")
}

func TestCompose_ImageSampleMissingRendersNotice(t *testing.T) {
	resolver := NewAssetResolver(storage.NewLocalUploadStore(t.TempDir()), 0, 0, nil)

	book, err := Project(imageSampleExport("/uploads/images/logo.png"))
	require.NoError(t, err)
	assets := resolver.ResolveAll(context.Background(), ImageReferences(book))

	doc := Compose(book, assets, fixedNow, ComposeOptions{})
	chapter := doc.Pages[2]

	assert.Empty(t, blocksOf(chapter, BlockImage))
	assert.Contains(t, chapter.Text(), "Image could not be loaded: /uploads/images/logo.png")
}

func TestCompose_AttachmentNotice(t *testing.T) {
	export := &models.EbookExport{Title: "Files", Prompts: []models.EbookPromptEntry{{
		IncludeSamples: true,
		Prompt: models.Prompt{Title: "Report", Content: "c", SampleOutputs: []models.SampleOutput{
			{OutputType: models.SampleOutputFile, FilePath: "/uploads/files/report.pdf", IncludeInExport: true},
			{OutputType: models.SampleOutputText, Content: "has content", FilePath: "/uploads/files/other.txt", IncludeInExport: true},
		}},
	}}}

	doc := compose(t, export, nil)

	attachments := blocksOf(doc.Pages[2], BlockAttachment)
	require.Len(t, attachments, 1)
	assert.Equal(t, "Attachment: report.pdf", attachments[0].Text)
}

func TestCompose_CoverImage(t *testing.T) {
	export := &models.EbookExport{Title: "Covered", CoverImage: "/uploads/images/cover.png", Author: "Sam", Subtitle: "Sub"}

	missing := compose(t, export, nil)
	assert.Equal(t, "Cover image unavailable\nCovered\nSub\nby Sam\n", missing.Pages[0].Text())

	asset := Asset{Ref: export.CoverImage, Path: "uploads/images/cover.png", MimeType: "image/png", Data: []byte{1}}
	present := compose(t, export, map[string]Asset{export.CoverImage: asset})
	assert.Equal(t, "[image uploads/images/cover.png]\nCovered\nSub\nby Sam\n", present.Pages[0].Text())
}

func TestCompose_LongContentIsChunked(t *testing.T) {
	content := strings.Repeat("This sentence is about forty characters. ", 60)
	export := &models.EbookExport{Title: "Long", Prompts: []models.EbookPromptEntry{{
		Prompt: models.Prompt{Title: "Long", Content: content},
	}}}

	doc := compose(t, export, nil)

	code := blocksOf(doc.Pages[2], BlockCode)
	assert.Greater(t, len(code), 1)
	for _, c := range code {
		assert.LessOrEqual(t, len([]rune(c.Text)), DefaultBodyChunkSize+1)
	}
}

func TestCompose_Idempotent(t *testing.T) {
	a := compose(t, marketingExport(), nil)
	b := compose(t, marketingExport(), nil)

	require.Equal(t, kinds(a), kinds(b))
	for i := range a.Pages {
		assert.Equal(t, a.Pages[i].Text(), b.Pages[i].Text())
	}
}
