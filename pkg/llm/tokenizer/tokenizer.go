// Package tokenizer counts and trims text by model tokens.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used for every count.
const DefaultEncoding = "cl100k_base"

// runesPerToken approximates token counts when no encoder is available.
const runesPerToken = 4

// Tokenizer wraps a tiktoken encoder. A nil *Tokenizer is usable and falls
// back to a rune-based approximation.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: load %s: %w", DefaultEncoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		n := len([]rune(text))
		return (n + runesPerToken - 1) / runesPerToken
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate returns the longest prefix of text that fits in max tokens.
func (t *Tokenizer) Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if t == nil || t.enc == nil {
		r := []rune(text)
		if len(r) <= max*runesPerToken {
			return text
		}
		return string(r[:max*runesPerToken])
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text
	}
	return t.enc.Decode(tokens[:max])
}
