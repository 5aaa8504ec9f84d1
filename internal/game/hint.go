package game

import (
	"fmt"
	"strings"
	"time"
)

// NewHint validates a spymaster's clue. The count is capped at 9, the size of
// the larger team.
func NewHint(word string, count int, by string, at time.Time) (Hint, error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return Hint{}, fmt.Errorf("empty word: %w", ErrInvalidHint)
	}
	if count < MinHintSize || count > MaxHintSize {
		return Hint{}, fmt.Errorf("count %d outside [%d,%d]: %w", count, MinHintSize, MaxHintSize, ErrInvalidHint)
	}
	return Hint{Word: word, Count: count, SubmittedBy: by, SubmittedAt: at.UTC()}, nil
}
