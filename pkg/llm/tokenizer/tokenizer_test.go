package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallback(t *testing.T) {
	var tok *Tokenizer

	assert.Equal(t, 0, tok.CountTokens(""))
	assert.Equal(t, 1, tok.CountTokens("abc"))
	assert.Equal(t, 2, tok.CountTokens("abcde"))

	text := strings.Repeat("ab", 10)
	assert.Equal(t, text, tok.Truncate(text, 5))
	assert.Equal(t, "abababab", tok.Truncate(text, 2))
	assert.Equal(t, "", tok.Truncate(text, 0))

	// multi-byte runes are never split
	assert.Equal(t, "héll", tok.Truncate("héllo wörld", 1))
}
