package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
)

// troubleshootingSteps are the guided suggestions offered one at a time
// while a sequence is active.
var troubleshootingSteps = []string{
	"Let's start by checking your internet connection. Can you try opening another website?",
	"Please try clearing your browser cache and cookies. Go to Settings > Privacy > Clear browsing data.",
	"Try disabling any browser extensions temporarily. Go to Settings > Extensions and toggle them off.",
	"Let's check if this happens in an incognito/private browsing window.",
	"Please try restarting your browser completely and test again.",
}

const (
	guideStartConfidence = 0.8
	guideStepDecrement   = 0.1
)

const resolvedText = "Great! I'm glad that resolved your issue. Is there anything else I can help you with today?"

const escalationText = "I understand this issue requires more specialized assistance. " +
	"I'm connecting you with one of our human support agents who can provide more detailed help. " +
	"Your conversation history will be shared with them."

// GuideState tracks one session's position in the guided troubleshooting
// sequence. The zero value is idle; Step is only meaningful while Active.
type GuideState struct {
	Active bool
	Step   int
}

// Guide drives the bounded troubleshooting sequence. Negative feedback
// advances to the next step with a confidence that drops a fixed amount per
// step, positive feedback ends the sequence, and negative feedback on the
// final step escalates to a human. Escalation is a one-shot action: the
// state it leaves behind is always idle.
type Guide struct {
	steps           []string
	startConfidence float64
	stepDecrement   float64
}

// NewGuide creates a Guide over the built-in step list.
func NewGuide() Guide {
	return Guide{
		steps:           troubleshootingSteps,
		startConfidence: guideStartConfidence,
		stepDecrement:   guideStepDecrement,
	}
}

// Len returns the number of steps in the sequence.
func (g Guide) Len() int {
	return len(g.steps)
}

// Start begins a new sequence at the first step.
func (g Guide) Start() GuideState {
	return GuideState{Active: true}
}

// Advance applies one round of user feedback to an active sequence and
// returns the replacement state together with the assistant's follow-up
// message.
func (g Guide) Advance(state GuideState, positive bool) (GuideState, models.Message) {
	if positive {
		return GuideState{}, assistantMessage(resolvedText, "", models.Metadata{Confidence: 1})
	}

	next := state.Step + 1
	if next >= len(g.steps) {
		// Steps exhausted.
		return g.Escalate()
	}

	msg := assistantMessage(
		"Let's try the next step: "+g.steps[next],
		models.KindTroubleshooting,
		models.Metadata{Confidence: g.startConfidence - float64(next)*g.stepDecrement},
	)
	return GuideState{Active: true, Step: next}, msg
}

// Escalate hands the conversation off to a human agent immediately,
// regardless of the current step, and resets the sequence. It never fails.
func (g Guide) Escalate() (GuideState, models.Message) {
	return GuideState{}, assistantMessage(escalationText, models.KindEscalation, models.Metadata{
		Confidence: 1,
		Escalated:  true,
	})
}

func assistantMessage(content string, kind models.Kind, metadata models.Metadata) models.Message {
	return models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		Kind:      kind,
		Metadata:  metadata,
	}
}
