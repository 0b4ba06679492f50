package ebook

import (
	"errors"
	"sort"
	"strings"

	"github.com/coreybb/promptbook/models"
)

// ErrNilExport is returned when Project is called without an export.
var ErrNilExport = errors.New("ebook: export is nil")

// SampleKind is the render-time variant of a sample output.
type SampleKind int

const (
	SampleText SampleKind = iota
	SampleImage
	SampleAttachment
)

// Book is the render-ready projection of an export.
type Book struct {
	ID                string
	Title             string
	Subtitle          string
	Author            string
	CoverImage        string
	AboutText         string
	IncludeCategories bool
	IncludeTags       bool
	ThankYouTitle     string
	ThankYouMessage   string
	Chapters          []Chapter
}

// HasAbout reports whether the about page is part of the document.
func (b *Book) HasAbout() bool {
	return b.AboutText != ""
}

// Chapter is one prompt entry with overrides and inclusion toggles already applied.
type Chapter struct {
	EntryID      string
	Number       int
	Title        string
	Intro        string
	PromptType   string
	Tags         []models.Tag
	Instructions string
	Content      string
	Samples      []Sample
}

// Sample is a sample output that passed both inclusion toggles.
type Sample struct {
	Kind     SampleKind
	Title    string
	Content  string
	FilePath string
}

// FileName returns the last path segment of the sample's file path.
func (s Sample) FileName() string {
	return lastSegment(s.FilePath)
}

// Project flattens a hydrated export into a Book. It never mutates the input.
func Project(export *models.EbookExport) (*Book, error) {
	if export == nil {
		return nil, ErrNilExport
	}

	thankYouTitle := strings.TrimSpace(export.ThankYouTitle)
	if thankYouTitle == "" {
		thankYouTitle = models.DefaultThankYouTitle
	}

	book := &Book{
		ID:                export.ID,
		Title:             export.Title,
		Subtitle:          strings.TrimSpace(export.Subtitle),
		Author:            strings.TrimSpace(export.Author),
		CoverImage:        strings.TrimSpace(export.CoverImage),
		AboutText:         strings.TrimSpace(export.AboutText),
		IncludeCategories: export.IncludeCategories,
		IncludeTags:       export.IncludeTags,
		ThankYouTitle:     thankYouTitle,
		ThankYouMessage:   strings.TrimSpace(export.ThankYouMessage),
	}

	entries := make([]models.EbookPromptEntry, len(export.Prompts))
	copy(entries, export.Prompts)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Order < entries[j].Order
	})

	book.Chapters = make([]Chapter, 0, len(entries))
	for i, entry := range entries {
		book.Chapters = append(book.Chapters, projectChapter(i+1, entry))
	}
	return book, nil
}

func projectChapter(number int, entry models.EbookPromptEntry) Chapter {
	p := entry.Prompt

	title := p.Title
	if strings.TrimSpace(entry.CustomTitle) != "" {
		title = entry.CustomTitle
	}

	ch := Chapter{
		EntryID:    entry.ID,
		Number:     number,
		Title:      title,
		Intro:      strings.TrimSpace(entry.CustomIntro),
		PromptType: p.PromptType,
		Tags:       p.Tags,
		Content:    p.Content,
	}

	if entry.IncludeInstructions && strings.TrimSpace(p.Instructions) != "" {
		ch.Instructions = p.Instructions
	}

	if entry.IncludeSamples {
		for _, so := range p.SampleOutputs {
			if !so.IncludeInExport {
				continue
			}
			ch.Samples = append(ch.Samples, Sample{
				Kind:     sampleKind(so.OutputType),
				Title:    strings.TrimSpace(so.Title),
				Content:  so.Content,
				FilePath: strings.TrimSpace(so.FilePath),
			})
		}
	}
	return ch
}

func sampleKind(t models.SampleOutputType) SampleKind {
	switch t {
	case models.SampleOutputImage:
		return SampleImage
	case models.SampleOutputFile:
		return SampleAttachment
	default:
		return SampleText
	}
}

func lastSegment(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
