//go:build !cgo
// +build !cgo

package embedding

import "errors"

// ErrONNXUnavailable is returned by NewBERTSession in builds without CGO.
var ErrONNXUnavailable = errors.New("ONNX runtime requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// BERTSession is unavailable without CGO.
type BERTSession struct{}

// NewBERTSession always fails without CGO.
func NewBERTSession(_ string, _ int, _ string, _ int) (*BERTSession, error) {
	return nil, ErrONNXUnavailable
}

// MaxTokens returns 0.
func (s *BERTSession) MaxTokens() int { return 0 }

// Run always fails without CGO.
func (s *BERTSession) Run(_, _, _ []int64) ([]float32, error) { return nil, ErrONNXUnavailable }

// Close is a no-op.
func (s *BERTSession) Close() error { return nil }
