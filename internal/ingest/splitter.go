package ingest

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order, from paragraph breaks down to single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter splits text recursively on separators into pieces of at most Size runes, with
// about Overlap runes repeated between neighbours.
type Splitter struct {
	Size       int
	Overlap    int
	Separators []string
}

// NewSplitter returns a Splitter using DefaultSeparators. Overlap is clamped below size.
func NewSplitter(size, overlap int) *Splitter {
	if overlap >= size {
		overlap = size / 5
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Splitter{Size: size, Overlap: overlap, Separators: DefaultSeparators}
}

// Split returns the pieces of text in order. Whitespace-only pieces are dropped.
func (s *Splitter) Split(text string) []string {
	if s.Size <= 0 {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}
	return s.split(text, s.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitOn(text, separator) {
		if runeLen(piece) < s.Size {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, s.merge(good, separator)...)
	}
	return out
}

// merge packs pieces into chunks of at most Size runes, carrying trailing pieces forward as
// overlap.
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)
	var (
		out     []string
		current []string
		total   int
	)
	joinedLen := func(n int) int {
		if len(current) > 0 {
			return total + n + sepLen
		}
		return total + n
	}
	for _, p := range pieces {
		n := runeLen(p)
		if joinedLen(n) > s.Size {
			if len(current) > 0 {
				if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
					out = append(out, doc)
				}
				for total > s.Overlap || (total > 0 && joinedLen(n) > s.Size) {
					drop := runeLen(current[0])
					if len(current) > 1 {
						drop += sepLen
					}
					total -= drop
					current = current[1:]
				}
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		out = append(out, doc)
	}
	return out
}

func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, separator)
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
