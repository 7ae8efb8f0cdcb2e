package llm

import (
	"context"
	"sync"
)

// Func adapts a function to Generator.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// Name returns "func".
func (f Func) Name() string { return "func" }

// Scripted replays canned responses in order, repeating the last one, and records every request.
type Scripted struct {
	Responses []string
	Err       error

	mu    sync.Mutex
	calls []Request
}

// NewScripted returns a generator that answers with responses in order.
func NewScripted(responses ...string) *Scripted {
	return &Scripted{Responses: responses}
}

// Generate records req and returns the next response or Err.
func (s *Scripted) Generate(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.calls)
	s.calls = append(s.calls, req)
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", nil
	}
	if n >= len(s.Responses) {
		n = len(s.Responses) - 1
	}
	return s.Responses[n], nil
}

// Name returns "scripted".
func (s *Scripted) Name() string { return "scripted" }

// Calls returns a copy of the recorded requests.
func (s *Scripted) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}
