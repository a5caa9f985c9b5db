package models

import "time"

// Message represents an individual communication entry within a support
// conversation. Once appended to a session's log a message is never changed,
// with one exception: the session may attach feedback to it exactly once,
// which is done by replacing the stored record rather than mutating it.
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time

	// Kind marks messages produced by the troubleshooting guide or the
	// escalation hand-off. Regular replies leave it empty.
	Kind Kind

	Metadata Metadata
}

// Metadata carries the support-specific annotations of an assistant message.
type Metadata struct {
	// Confidence is in [0,1]. It is a configured constant per message kind,
	// not a measured quantity.
	Confidence float64
	Source     string
	Escalated  bool
	Feedback   Feedback
}

// Role represents the role of a message participant.
type Role string

// Kind classifies special assistant messages.
type Kind string

// Feedback is the thumbs-up/thumbs-down annotation a user can attach to an
// assistant message.
type Feedback string

const (
	// RoleUser represents a user message.
	RoleUser Role = "user"
	// RoleAssistant represents an assistant message.
	RoleAssistant Role = "assistant"
	// RoleSystem represents a system message.
	RoleSystem Role = "system"

	// KindTroubleshooting marks a guided troubleshooting step.
	KindTroubleshooting Kind = "troubleshooting"
	// KindKnowledge marks a reply sourced from the knowledge base.
	KindKnowledge Kind = "knowledge"
	// KindEscalation marks the hand-off to a human agent.
	KindEscalation Kind = "escalation"

	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
)
