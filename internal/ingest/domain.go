package ingest

import (
	"path/filepath"

	"github.com/hyperjump/kotae/internal/config"
)

// Classifier assigns a domain to a source path from glob rules. The first matching rule wins.
type Classifier struct {
	rules    []config.DomainRule
	fallback string
}

// NewClassifier returns a Classifier that falls back to fallback when no rule matches.
func NewClassifier(rules []config.DomainRule, fallback string) *Classifier {
	return &Classifier{rules: rules, fallback: fallback}
}

// Domain returns the domain for path. A rule matches either the full path or the base name.
func (c *Classifier) Domain(path string) string {
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, r := range c.rules {
		if ok, _ := filepath.Match(r.Pattern, slashed); ok {
			return r.Domain
		}
		if ok, _ := filepath.Match(r.Pattern, base); ok {
			return r.Domain
		}
	}
	return c.fallback
}
