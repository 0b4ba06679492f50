package ebook

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultBodyChunkSize bounds paragraphs of about text, instructions and prompt content.
	DefaultBodyChunkSize = 1000
	// DefaultSampleChunkSize bounds paragraphs of sample output content.
	DefaultSampleChunkSize = 500

	sentenceSeparator = ". "
	bullet            = "•"
)

var (
	boldRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe  = regexp.MustCompile(`_(.*?)_`)
	quoteRe   = regexp.MustCompile(`(?m)^> (.+)$`)
	listRe    = regexp.MustCompile(`(?m)^- (.+)$`)
	headingRe = regexp.MustCompile(`(?m)^#{1,6} (.+)$`)
	stripTags = bluemonday.StripTagsPolicy()
	// Only common rich-text tags count as HTML; <PRODUCT> style placeholders do not.
	htmlTagRe = regexp.MustCompile(`(?i)</?(?:a|b|i|u|p|br|hr|em|strong|span|div|ul|ol|li|h[1-6]|blockquote|code|pre)(?:\s+[a-z:-]+="[^"]*")*\s*/?>`)
	crlfRe    = regexp.MustCompile(`\r\n?`)
)

// NormalizeMarkup turns the editor's lightweight markup into plain text.
// Bold and italic markers are dropped, quotes and dash lists become bullets,
// numbered lists are kept and heading markers are removed. Pasted rich-text
// tags are stripped first; any other angle-bracket text is kept as written.
// The transform is lossy and display-only.
func NormalizeMarkup(s string) string {
	if s == "" {
		return ""
	}
	s = crlfRe.ReplaceAllString(s, "\n")
	s = stripHTMLTags(s)

	s = boldRe.ReplaceAllString(s, "$1")
	s = italicRe.ReplaceAllString(s, "$1")
	s = quoteRe.ReplaceAllString(s, bullet+" $1")
	s = listRe.ReplaceAllString(s, bullet+" $1")
	s = headingRe.ReplaceAllString(s, "$1")

	return strings.TrimSpace(norm.NFC.String(s))
}

// stripHTMLTags removes known tags and decodes entities. Angle brackets
// outside known tags are escaped before sanitizing so they survive.
func stripHTMLTags(s string) string {
	tags := htmlTagRe.FindAllStringIndex(s, -1)
	if tags == nil {
		return s
	}
	var b strings.Builder
	prev := 0
	for _, loc := range tags {
		b.WriteString(escapeAngles(s[prev:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		prev = loc[1]
	}
	b.WriteString(escapeAngles(s[prev:]))
	return html.UnescapeString(stripTags.Sanitize(b.String()))
}

var angleEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

func escapeAngles(s string) string {
	return angleEscaper.Replace(s)
}

// SplitIntoChunks splits text on ". " into paragraphs of at most max runes.
// Sentences are accumulated greedily; a sentence longer than max is returned
// whole rather than cut. strings.Join(chunks, ". ") always equals text, and
// the result is never empty.
func SplitIntoChunks(text string, max int) []string {
	if max <= 0 {
		max = DefaultBodyChunkSize
	}
	if !strings.Contains(text, sentenceSeparator) {
		return []string{text}
	}

	sepLen := utf8.RuneCountInString(sentenceSeparator)
	var (
		chunks     []string
		current    strings.Builder
		currentLen int
		started    bool
	)
	for _, sentence := range strings.Split(text, sentenceSeparator) {
		n := utf8.RuneCountInString(sentence)
		if !started {
			current.WriteString(sentence)
			currentLen = n
			started = true
			continue
		}
		if currentLen+sepLen+n > max && currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(sentence)
			currentLen = n
			continue
		}
		current.WriteString(sentenceSeparator)
		current.WriteString(sentence)
		currentLen += sepLen + n
	}
	chunks = append(chunks, current.String())

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// displayChunks chunks text and restores the sentence period that the split
// consumed at the end of every chunk but the last.
func displayChunks(text string, max int) []string {
	chunks := SplitIntoChunks(text, max)
	out := make([]string, 0, len(chunks))
	for i, c := range chunks {
		if i < len(chunks)-1 {
			c += "."
		}
		if strings.TrimSpace(c) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(c))
	}
	return out
}
