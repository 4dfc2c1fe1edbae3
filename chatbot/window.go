package chatbot

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

const truncatedSuffix = " ...(truncated)"

// Window keeps the most recent history entries within a token budget
type Window struct {
	size      int
	maxTokens int
	codec     tokenizer.Codec
}

// NewWindow returns a Window keeping the last size entries. Outputs longer than maxTokens tokens are
// truncated; a maxTokens of 0 disables truncation.
func NewWindow(size, maxTokens int) (*Window, error) {
	if size < 1 {
		return nil, fmt.Errorf("window size must be at least 1, got %d", size)
	}

	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}

	return &Window{size: size, maxTokens: maxTokens, codec: codec}, nil
}

// Size returns the number of entries kept
func (w *Window) Size() int {
	return w.size
}

// Apply returns the last Size entries, with long outputs truncated. The result is never nil.
func (w *Window) Apply(entries []HistoryEntry) []HistoryEntry {
	if len(entries) > w.size {
		entries = entries[len(entries)-w.size:]
	}

	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntry{Input: e.Input, Output: w.truncate(e.Output)}
	}
	return out
}

func (w *Window) truncate(s string) string {
	if w.maxTokens <= 0 || s == "" {
		return s
	}

	ids, _, err := w.codec.Encode(s)
	if err != nil || len(ids) <= w.maxTokens {
		return s
	}

	head, err := w.codec.Decode(ids[:w.maxTokens])
	if err != nil {
		return s
	}
	return head + truncatedSuffix
}
