package ebook

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "bold", in: "a **strong** claim", want: "a strong claim"},
		{name: "italic", in: "an _emphasised_ word", want: "an emphasised word"},
		{name: "quote", in: "> quoted line", want: "• quoted line"},
		{name: "dash list", in: "- one\n- two", want: "• one\n• two"},
		{name: "numbered list kept", in: "1. first\n2. second", want: "1. first\n2. second"},
		{name: "headings", in: "## Title\n###### Small", want: "Title\nSmall"},
		{name: "crlf", in: "- one\r\n- two", want: "• one\n• two"},
		{name: "html stripped", in: "<p>Hello &amp; <b>bye</b></p>", want: "Hello & bye"},
		{name: "html with attributes", in: `<span class="x">Hi</span><br/>there`, want: "Hithere"},
		{name: "placeholder kept", in: "Replace <PRODUCT> with your product name.", want: "Replace <PRODUCT> with your product name."},
		{name: "placeholders with spaces", in: "Write about <your topic> in <N> words", want: "Write about <your topic> in <N> words"},
		{name: "comparison kept", in: "if a<b and c>d then", want: "if a<b and c>d then"},
		{name: "placeholder beside html", in: "<p>Replace <PRODUCT> &amp; <b>ship</b></p>", want: "Replace <PRODUCT> & ship"},
		{name: "entities untouched without html", in: "Tom &amp; Jerry", want: "Tom &amp; Jerry"},
		{name: "nfc", in: "café", want: "café"},
		{name: "trimmed", in: "  padded  ", want: "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeMarkup(tt.in))
		})
	}
}

func TestSplitIntoChunks_NoSeparator(t *testing.T) {
	assert.Equal(t, []string{"one sentence only"}, SplitIntoChunks("one sentence only", 5))
	assert.Equal(t, []string{""}, SplitIntoChunks("", 10))
}

func TestSplitIntoChunks_Greedy(t *testing.T) {
	text := "aaaa. bbbb. cccc. dddd"

	chunks := SplitIntoChunks(text, 10)

	assert.Equal(t, []string{"aaaa. bbbb", "cccc. dddd"}, chunks)
}

func TestSplitIntoChunks_LongSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("x", 50)
	text := "short. " + long + ". tail"

	chunks := SplitIntoChunks(text, 10)

	assert.Equal(t, []string{"short", long, "tail"}, chunks)
}

func TestSplitIntoChunks_DefaultMax(t *testing.T) {
	text := strings.Repeat("word word word. ", 200)

	for _, c := range SplitIntoChunks(text, 0) {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), DefaultBodyChunkSize)
	}
}

func TestSplitIntoChunks_RoundTripAndBounded(t *testing.T) {
	inputs := []string{
		"",
		"no delimiter here",
		"One. Two. Three.",
		". leading separator",
		"trailing separator. ",
		"double.. separators. . here",
		"Ünïcödé sentences. Are counted in runes. Not bytes. ✓✓✓✓✓✓✓✓",
		strings.Repeat("The quick brown fox jumps. ", 120),
		"tiny. " + strings.Repeat("y", 700) + ". tiny again",
	}
	maxes := []int{1, 7, 20, 100, 500, 1000}

	for _, in := range inputs {
		for _, max := range maxes {
			chunks := SplitIntoChunks(in, max)

			assert.NotEmpty(t, chunks)
			assert.Equal(t, in, strings.Join(chunks, ". "), "round trip for max=%d", max)

			for _, c := range chunks {
				if utf8.RuneCountInString(c) > max {
					assert.LessOrEqual(t, nonEmptySentences(c), 1, "over-long chunk %q must hold one sentence (max=%d)", c, max)
				}
			}
		}
	}
}

func nonEmptySentences(chunk string) int {
	n := 0
	for _, s := range strings.Split(chunk, ". ") {
		if s != "" {
			n++
		}
	}
	return n
}

func TestDisplayChunks_RestoresPeriods(t *testing.T) {
	chunks := displayChunks("aaaa. bbbb. cccc. dddd", 10)

	assert.Equal(t, []string{"aaaa. bbbb.", "cccc. dddd"}, chunks)
}

func TestDisplayChunks_DropsBlank(t *testing.T) {
	assert.Empty(t, displayChunks("", 10))
}
