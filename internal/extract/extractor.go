// Package extract provides text extraction from various document formats.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrTooLarge is returned by Extract for files above the configured size limit.
var ErrTooLarge = errors.New("file too large")

// Extractor extracts plain text from document files.
type Extractor struct {
	maxBytes int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxBytes rejects files larger than n bytes. n <= 0 disables the limit.
func WithMaxBytes(n int64) Option {
	return func(e *Extractor) {
		e.maxBytes = n
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the file at path and returns its text content.
// For plain text files (.txt, .md, .rst), content is returned as-is (UTF-8 validated).
// For PDF, DOCX, ODT, RTF, HTML and Excel, text is extracted from the document format.
// Returns an error if the file cannot be read, exceeds the size limit or the format is unsupported.
func (e *Extractor) Extract(path string) (string, error) {
	if e.maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat file: %w", err)
		}
		if info.Size() > e.maxBytes {
			return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, info.Size(), e.maxBytes)
		}
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".odt":
		return extractCat(content, "ODT")
	case ".rtf":
		return extractCat(content, "RTF")
	case ".html", ".htm":
		return extractHTML(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		// .txt, .md, .rst and anything unrecognised
		return extractPlain(content)
	}
}
