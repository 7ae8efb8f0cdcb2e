package rerank

import (
	"context"
	"strings"

	"github.com/hyperjump/kotae/internal/embedding"
)

// Lexical scores passages by query-term coverage plus a bonus for the query appearing verbatim.
// It needs no model and is used when no cross-encoder is installed.
type Lexical struct{}

// NewLexical returns a lexical reranker.
func NewLexical() *Lexical {
	return &Lexical{}
}

// Score returns coverage in [0, 1], plus 0.5 when the whole normalized query occurs in the passage.
func (l *Lexical) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	terms := uniqueWords(query)
	phrase := strings.Join(embedding.Words(query), " ")
	scores := make([]float64, len(passages))
	if len(terms) == 0 {
		return scores, nil
	}
	for i, p := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		words := embedding.Words(p)
		present := make(map[string]bool, len(words))
		for _, w := range words {
			present[w] = true
		}
		matched := 0
		for _, t := range terms {
			if present[t] {
				matched++
			}
		}
		score := float64(matched) / float64(len(terms))
		if len(terms) > 1 && strings.Contains(strings.Join(words, " "), phrase) {
			score += 0.5
		}
		scores[i] = score
	}
	return scores, nil
}

// Name returns "lexical".
func (l *Lexical) Name() string { return ProviderLexical }

// Close is a no-op.
func (l *Lexical) Close() error { return nil }

func uniqueWords(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range embedding.Words(s) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
