package engine

import (
	"context"
	"iter"
	"strings"
	"time"
)

// Default typing delays, matching the pace a user perceives as a live agent
// typing a reply.
const (
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultWordDelay    = 50 * time.Millisecond
)

// Typewriter delivers a finished response one word at a time to emulate
// live typing. The response is split on single spaces only, so newlines
// stay inside their tokens. Each emitted chunk is a token followed by
// exactly one space, the final token included; concatenating all chunks
// and trimming the trailing space reproduces the source string.
type Typewriter struct {
	initialDelay time.Duration
	wordDelay    time.Duration
}

// NewTypewriter creates a Typewriter with the given delays. The initial
// delay runs once before the first token, modeling a thinking pause; the
// word delay runs between consecutive tokens. Zero delays are valid.
func NewTypewriter(initialDelay, wordDelay time.Duration) Typewriter {
	return Typewriter{
		initialDelay: initialDelay,
		wordDelay:    wordDelay,
	}
}

// Stream emits the tokens of response in their original order, on the
// typewriter's schedule. Emission stops as soon as ctx is cancelled or the
// consumer stops iterating; no chunk is produced after that, and no timer
// keeps running once the iterator returns.
func (t Typewriter) Stream(ctx context.Context, response string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if response == "" {
			return
		}
		if !sleep(ctx, t.initialDelay) {
			return
		}
		// Split on single spaces, not all whitespace: newlines belong to
		// their tokens so the reassembled text keeps its formatting.
		for i, word := range strings.Split(response, " ") {
			if i > 0 && !sleep(ctx, t.wordDelay) {
				return
			}
			if !yield(word+" ", nil) {
				return
			}
		}
	}
}

// sleep waits for d unless ctx is cancelled first, and reports whether the
// full wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
