package ebook

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coreybb/promptbook/models"
)

var fixedNow = time.Date(2025, time.March, 4, 10, 30, 0, 0, time.UTC)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: 120, B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeFile(t *testing.T, base, rel string, data []byte) {
	t.Helper()
	full := filepath.Join(base, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, data, 0o644))
}

// marketingExport has two entries stored out of order; the order-0 entry
// excludes instructions.
func marketingExport() *models.EbookExport {
	return &models.EbookExport{
		ID:                "ebook-1",
		Title:             "Marketing Prompts",
		Subtitle:          "Campaign ideas",
		Author:            "Dana",
		IncludeCategories: true,
		IncludeTags:       true,
		ThankYouMessage:   "Thanks for **reading**",
		Status:            models.ExportStatusDraft,
		Prompts: []models.EbookPromptEntry{
			{
				ID:                  "entry-b",
				Order:               1,
				IncludeInstructions: true,
				IncludeSamples:      true,
				Prompt: models.Prompt{
					ID:           "prompt-b",
					Title:        "Email Subject Lines",
					Content:      "Write five subject lines. Keep them short.",
					Instructions: "Use **bold** claims sparingly",
					PromptType:   "EMAIL",
					Tags:         []models.Tag{{Name: "email", Color: "#3b82f6"}},
					SampleOutputs: []models.SampleOutput{
						{Title: "Example", Content: "Big news inside", OutputType: models.SampleOutputText, IncludeInExport: true},
						{Title: "Hidden", Content: "not exported", OutputType: models.SampleOutputText, IncludeInExport: false},
					},
				},
			},
			{
				ID:                  "entry-a",
				Order:               0,
				CustomTitle:         "Launch Tweet",
				IncludeInstructions: false,
				IncludeSamples:      false,
				Prompt: models.Prompt{
					ID:           "prompt-a",
					Title:        "Social Post",
					Content:      "Draft a tweet announcing the launch.",
					Instructions: "Mention the date",
					PromptType:   "SOCIAL",
					SampleOutputs: []models.SampleOutput{
						{Title: "Tweet", Content: "We are live", OutputType: models.SampleOutputText, IncludeInExport: true},
					},
				},
			},
		},
	}
}

func imageSampleExport(filePath string) *models.EbookExport {
	return &models.EbookExport{
		ID:    "ebook-img",
		Title: "Image Prompts",
		Prompts: []models.EbookPromptEntry{
			{
				ID:             "entry-img",
				IncludeSamples: true,
				Prompt: models.Prompt{
					Title:   "Logo",
					Content: "Design a logo.",
					SampleOutputs: []models.SampleOutput{
						{Title: "Render", OutputType: models.SampleOutputImage, FilePath: filePath, IncludeInExport: true},
					},
				},
			},
		},
	}
}
