// Package contextfmt renders reconstructed parent documents into the bounded context block
// handed to the generative model.
package contextfmt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Markers appended where text was cut.
const (
	DocTruncated     = "\n…[TRUNCATED]"
	ContextTruncated = "\n…[CONTEXT TRUNCATED]"
)

const (
	blockSeparator = "\n\n"
	docBoundary    = "\n\n[DOC"
)

// Formatter renders context blocks. Lengths are counted in runes.
type Formatter struct {
	maxPerDoc  int
	maxContext int
	hardLimit  int
}

// New returns a Formatter bounded by cfg.
func New(cfg config.ContextConfig) *Formatter {
	return &Formatter{
		maxPerDoc:  cfg.MaxCharsPerDoc,
		maxContext: cfg.MaxContextChars,
		hardLimit:  cfg.HardLimit,
	}
}

// Format renders parents in order as "[DOC i] source=<source>\n<text>" blocks.
func (f *Formatter) Format(parents []*models.ScoredParent) string {
	blocks := make([]string, 0, len(parents))
	total := 0
	for i, p := range parents {
		text := p.Text()
		if f.maxPerDoc > 0 && utf8.RuneCountInString(text) > f.maxPerDoc {
			text = rtrim(utils.Prefix(text, f.maxPerDoc)) + DocTruncated
		}
		block := fmt.Sprintf("[DOC %d] source=%s\n%s", i+1, p.Source(), text)
		n := utf8.RuneCountInString(block)

		if f.maxContext > 0 && total+n > f.maxContext {
			remain := f.maxContext - total
			if remain > 0 {
				blocks = append(blocks, rtrim(utils.Prefix(block, remain))+ContextTruncated)
			}
			break
		}
		blocks = append(blocks, block)
		total += n + utf8.RuneCountInString(blockSeparator)
	}
	return f.Trim(strings.Join(blocks, blockSeparator))
}

// Trim cuts s to the hard limit. It prefers the last document boundary inside the limit when
// that boundary lies in the second half; otherwise it cuts at the limit.
func (f *Formatter) Trim(s string) string {
	if f.hardLimit <= 0 || utf8.RuneCountInString(s) <= f.hardLimit {
		return s
	}
	head := utils.Prefix(s, f.hardLimit)
	cut := strings.LastIndex(head, docBoundary)
	if cut < 0 || utf8.RuneCountInString(head[:cut])*2 < f.hardLimit {
		return head
	}
	return rtrim(head[:cut])
}

func rtrim(s string) string {
	return strings.TrimRightFunc(s, unicode.IsSpace)
}
