// Package token estimates the model-token cost of text. It lazily initializes
// the cl100k_base encoding on first use and falls back to a character-based
// heuristic if initialization fails (e.g. no network to fetch the BPE ranks).
package token

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	once     sync.Once
	encoding *tiktoken.Tiktoken
)

func initEncoding() {
	once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
}

// Count returns the token count of text under cl100k_base. Deterministic for
// a given input; callers must count whole strings rather than summing
// sub-estimates when the exact boundary matters, because the tokenizer may
// merge across concatenation points.
func Count(text string) int {
	initEncoding()
	if encoding != nil {
		return len(encoding.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast returns a heuristic estimate: max(runes/4, word count), minimum
// 1 for non-empty text.
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	runes := len([]rune(trimmed))
	words := len(strings.Fields(trimmed))
	estimate := runes / 4
	if estimate < words {
		estimate = words
	}
	if estimate == 0 {
		estimate = 1
	}
	return estimate
}
