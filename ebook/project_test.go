package ebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreybb/promptbook/models"
)

func TestProject_NilExport(t *testing.T) {
	book, err := Project(nil)
	assert.Nil(t, book)
	assert.ErrorIs(t, err, ErrNilExport)
}

func TestProject_SortsAndAppliesOverrides(t *testing.T) {
	export := marketingExport()

	book, err := Project(export)
	require.NoError(t, err)

	require.Len(t, book.Chapters, 2)
	assert.Equal(t, "entry-a", book.Chapters[0].EntryID)
	assert.Equal(t, 1, book.Chapters[0].Number)
	assert.Equal(t, "Launch Tweet", book.Chapters[0].Title)
	assert.Empty(t, book.Chapters[0].Instructions)
	assert.Empty(t, book.Chapters[0].Samples)

	assert.Equal(t, "entry-b", book.Chapters[1].EntryID)
	assert.Equal(t, 2, book.Chapters[1].Number)
	assert.Equal(t, "Email Subject Lines", book.Chapters[1].Title)
	assert.Equal(t, "Use **bold** claims sparingly", book.Chapters[1].Instructions)

	// Input slice order is untouched.
	assert.Equal(t, "entry-b", export.Prompts[0].ID)
}

func TestProject_Defaults(t *testing.T) {
	book, err := Project(&models.EbookExport{Title: "T", ThankYouTitle: "   ", AboutText: "  "})
	require.NoError(t, err)

	assert.Equal(t, models.DefaultThankYouTitle, book.ThankYouTitle)
	assert.False(t, book.HasAbout())
	assert.Empty(t, book.Chapters)
}

func TestProject_StableOnEqualOrder(t *testing.T) {
	export := &models.EbookExport{Prompts: []models.EbookPromptEntry{
		{ID: "first", Order: 2},
		{ID: "second", Order: 2},
		{ID: "zero", Order: 0},
	}}

	book, err := Project(export)
	require.NoError(t, err)

	ids := []string{book.Chapters[0].EntryID, book.Chapters[1].EntryID, book.Chapters[2].EntryID}
	assert.Equal(t, []string{"zero", "first", "second"}, ids)
}

func TestProject_SampleInclusion(t *testing.T) {
	samples := []models.SampleOutput{
		{Title: "kept", OutputType: models.SampleOutputText, IncludeInExport: true},
		{Title: "dropped", OutputType: models.SampleOutputText, IncludeInExport: false},
		{Title: "pic", OutputType: models.SampleOutputImage, FilePath: "/uploads/images/p.png", IncludeInExport: true},
		{Title: "doc", OutputType: models.SampleOutputFile, FilePath: `C:\files\report.pdf`, IncludeInExport: true},
	}

	tests := []struct {
		name           string
		includeSamples bool
		want           []string
	}{
		{name: "entry includes samples", includeSamples: true, want: []string{"kept", "pic", "doc"}},
		{name: "entry excludes samples", includeSamples: false, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			export := &models.EbookExport{Prompts: []models.EbookPromptEntry{{
				IncludeSamples: tt.includeSamples,
				Prompt:         models.Prompt{SampleOutputs: samples},
			}}}

			book, err := Project(export)
			require.NoError(t, err)

			var got []string
			for _, s := range book.Chapters[0].Samples {
				got = append(got, s.Title)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProject_SampleKinds(t *testing.T) {
	export := &models.EbookExport{Prompts: []models.EbookPromptEntry{{
		IncludeSamples: true,
		Prompt: models.Prompt{SampleOutputs: []models.SampleOutput{
			{OutputType: models.SampleOutputText, IncludeInExport: true},
			{OutputType: models.SampleOutputImage, IncludeInExport: true},
			{OutputType: models.SampleOutputFile, FilePath: `C:\files\report.pdf`, IncludeInExport: true},
		}},
	}}}

	book, err := Project(export)
	require.NoError(t, err)

	samples := book.Chapters[0].Samples
	require.Len(t, samples, 3)
	assert.Equal(t, SampleText, samples[0].Kind)
	assert.Equal(t, SampleImage, samples[1].Kind)
	assert.Equal(t, SampleAttachment, samples[2].Kind)
	assert.Equal(t, "report.pdf", samples[2].FileName())
}

func TestProject_BlankInstructionsOmitted(t *testing.T) {
	export := &models.EbookExport{Prompts: []models.EbookPromptEntry{{
		IncludeInstructions: true,
		Prompt:              models.Prompt{Instructions: "  \n "},
	}}}

	book, err := Project(export)
	require.NoError(t, err)
	assert.Empty(t, book.Chapters[0].Instructions)
}
