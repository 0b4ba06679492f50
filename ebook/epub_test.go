package ebook

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEPUB(t *testing.T) {
	export := marketingExport()
	export.Prompts[0].Prompt.Content = "Use <angle> & ampersands"
	doc := compose(t, export, nil)

	data, err := RenderEPUB(doc, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	sections := 0
	var chapterOne string
	for _, f := range zr.File {
		if strings.Contains(f.Name, "page-") && strings.HasSuffix(f.Name, ".xhtml") {
			sections++
		}
		if strings.HasSuffix(f.Name, "page-003.xhtml") {
			rc, err := f.Open()
			require.NoError(t, err)
			b, err := io.ReadAll(rc)
			rc.Close()
			require.NoError(t, err)
			chapterOne = string(b)
		}
	}
	assert.Equal(t, len(doc.Pages), sections)
	assert.Contains(t, chapterOne, "Chapter 1: Launch Tweet")
	assert.Contains(t, chapterOne, "&lt;angle&gt; &amp; ampersands")
}

func TestRenderEPUB_EmbedsImage(t *testing.T) {
	asset := Asset{Ref: "logo.png", Path: "uploads/images/logo.png", MimeType: "image/png", Data: pngBytes(t, 4, 4)}
	book, err := Project(imageSampleExport("logo.png"))
	require.NoError(t, err)
	doc := Compose(book, map[string]Asset{"logo.png": asset}, fixedNow, ComposeOptions{})

	data, err := RenderEPUB(doc, nil)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	found := false
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "image-001.png") {
			found = true
		}
	}
	assert.True(t, found, "embedded image missing from archive")
}

func TestSectionTitle(t *testing.T) {
	assert.Equal(t, "Cover", sectionTitle(Page{Kind: PageCover}, 0))
	assert.Equal(t, "Chapter 2: X", sectionTitle(Page{Kind: PageChapter, Blocks: []Block{{Kind: BlockChapterTitle, Text: "Chapter 2: X"}}}, 3))
	assert.Equal(t, "Section 4", sectionTitle(Page{Kind: PageChapter}, 3))
}
