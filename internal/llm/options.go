package llm

import "go.uber.org/zap"

// Option configures an OpenAI client.
type Option func(*OpenAI)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *OpenAI) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPDoer replaces the HTTP client, mainly for tests.
func WithHTTPDoer(d HTTPDoer) Option {
	return func(c *OpenAI) {
		c.http = d
	}
}
