package embedding

import (
	"strings"
	"unicode"
)

const (
	clsToken = 101
	sepToken = 102
	vocab    = 30000
)

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
	// TokenizePair encodes [CLS] a [SEP] b [SEP] for cross-encoders; b gets token type 1.
	TokenizePair(a, b string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs.
type SimpleTokenizer struct{}

// Tokenize splits text into words and produces padded token IDs up to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = clsToken
	attentionMask[0] = 1

	pos := 1
	for _, word := range Words(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = wordID(word)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = sepToken
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// TokenizePair truncates the longer side first until both segments fit.
func (t *SimpleTokenizer) TokenizePair(a, b string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	wa, wb := Words(a), Words(b)
	budget := maxTokens - 3
	if budget < 0 {
		budget = 0
	}
	for len(wa)+len(wb) > budget {
		if len(wa) >= len(wb) {
			wa = wa[:len(wa)-1]
		} else {
			wb = wb[:len(wb)-1]
		}
	}

	pos := 0
	put := func(id, typ int64) {
		if pos < maxTokens {
			inputIDs[pos] = id
			attentionMask[pos] = 1
			tokenTypeIDs[pos] = typ
			pos++
		}
	}
	put(clsToken, 0)
	for _, w := range wa {
		put(wordID(w), 0)
	}
	put(sepToken, 0)
	for _, w := range wb {
		put(wordID(w), 1)
	}
	put(sepToken, 1)
	return inputIDs, attentionMask, tokenTypeIDs
}

func wordID(word string) int64 {
	return int64(HashString(word)%(vocab-1000)) + 1000
}

// Words lowercases text and splits it on anything that is not a letter or digit.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
