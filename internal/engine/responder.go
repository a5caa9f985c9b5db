package engine

import (
	"context"
	"iter"

	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
)

// Metadata attached to successfully streamed replies. The confidence is a
// display constant; no real uncertainty estimation happens here.
const (
	ReplyConfidence = 0.95
	ReplySource     = "AI Assistant"
)

// Responder produces the assistant side of a conversation: it routes the
// latest user message to a category, looks up the canned template, and
// streams it through the typewriter. It is stateless and safe to share.
type Responder struct {
	typewriter Typewriter
}

// NewResponder creates a Responder streaming through the given typewriter.
func NewResponder(typewriter Typewriter) Responder {
	return Responder{typewriter: typewriter}
}

// Chat classifies the conversation and returns the routed category together
// with an iterator delivering the reply chunks on the typing schedule. The
// iterator honors ctx cancellation and consumer detach.
func (r Responder) Chat(ctx context.Context, messages []models.Message) (Category, iter.Seq2[string, error]) {
	category := Classify(messages)
	return category, r.typewriter.Stream(ctx, Response(category))
}
