package ebook

import (
	"regexp"
	"strings"
)

var (
	unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// SafeFilename turns a title into a lowercase, hyphenated download name
// without extension. It falls back to "ebook" when nothing usable remains.
func SafeFilename(title string) string {
	name := unsafeFilenameRe.ReplaceAllString(title, "")
	name = strings.TrimSpace(name)
	name = whitespaceRe.ReplaceAllString(name, "-")
	name = strings.ToLower(name)
	if strings.Trim(name, "-") == "" {
		return "ebook"
	}
	return name
}
