package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	manyBlanks   = regexp.MustCompile(`[ \t]{2,}`)
)

// Clean normalizes extracted text: NFC form, LF line endings, at most one blank line in a row,
// no runs of spaces or tabs, and no surrounding whitespace.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	text = manyBlanks.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
