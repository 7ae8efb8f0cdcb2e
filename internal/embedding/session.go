//go:build cgo
// +build cgo

package embedding

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var ortInit sync.Mutex

// BERTSession wraps an ONNX Runtime session over a BERT-style graph with fixed-length
// input_ids, attention_mask and token_type_ids inputs and a single float output.
// Run is serialized; the session reuses pre-allocated tensors.
type BERTSession struct {
	session       *ort.AdvancedSession
	maxTokens     int
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
	mu            sync.Mutex
}

// NewBERTSession loads modelPath. The output tensor is shaped (1, outputWidth).
func NewBERTSession(modelPath string, maxTokens int, outputName string, outputWidth int) (*BERTSession, error) {
	ortInit.Lock()
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			ortInit.Unlock()
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}
	ortInit.Unlock()

	s := &BERTSession{maxTokens: maxTokens}
	shape := ort.NewShape(1, int64(maxTokens))
	var err error
	if s.inputIDs, err = ort.NewTensor(shape, make([]int64, maxTokens)); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if s.attentionMask, err = ort.NewTensor(shape, make([]int64, maxTokens)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if s.tokenTypeIDs, err = ort.NewTensor(shape, make([]int64, maxTokens)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if s.output, err = ort.NewTensor(ort.NewShape(1, int64(outputWidth)), make([]float32, outputWidth)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	s.session, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{outputName},
		[]ort.ArbitraryTensor{s.inputIDs, s.attentionMask, s.tokenTypeIDs},
		[]ort.ArbitraryTensor{s.output},
		nil,
	)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return s, nil
}

// MaxTokens returns the fixed input length.
func (s *BERTSession) MaxTokens() int {
	return s.maxTokens
}

// Run copies the inputs into the session tensors and returns a copy of the output.
func (s *BERTSession) Run(inputIDs, attentionMask, tokenTypeIDs []int64) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, fmt.Errorf("session closed")
	}

	copy(s.inputIDs.GetData(), inputIDs)
	copy(s.attentionMask.GetData(), attentionMask)
	copy(s.tokenTypeIDs.GetData(), tokenTypeIDs)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	data := s.output.GetData()
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

// Close destroys the session and tensors.
func (s *BERTSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.session != nil {
		err = s.session.Destroy()
		s.session = nil
	}
	if s.inputIDs != nil {
		_ = s.inputIDs.Destroy()
	}
	if s.attentionMask != nil {
		_ = s.attentionMask.Destroy()
	}
	if s.tokenTypeIDs != nil {
		_ = s.tokenTypeIDs.Destroy()
	}
	if s.output != nil {
		_ = s.output.Destroy()
	}
	s.inputIDs, s.attentionMask, s.tokenTypeIDs, s.output = nil, nil, nil, nil
	return err
}
