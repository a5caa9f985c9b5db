package engine

import (
	"testing"

	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuideNegativeRunEndsInEscalation(t *testing.T) {
	guide := NewGuide()
	require.Equal(t, 5, guide.Len())

	state := guide.Start()
	require.Equal(t, GuideState{Active: true, Step: 0}, state)

	lastConfidence := 1.0
	for wantStep := 1; wantStep <= 4; wantStep++ {
		var msg models.Message
		state, msg = guide.Advance(state, false)

		assert.Equal(t, GuideState{Active: true, Step: wantStep}, state)
		assert.Equal(t, models.RoleAssistant, msg.Role)
		assert.Equal(t, models.KindTroubleshooting, msg.Kind)
		assert.Contains(t, msg.Content, "Let's try the next step: ")
		assert.InDelta(t, 0.8-float64(wantStep)*0.1, msg.Metadata.Confidence, 1e-9)
		assert.Less(t, msg.Metadata.Confidence, lastConfidence,
			"confidence must strictly decrease per step")
		lastConfidence = msg.Metadata.Confidence
	}

	// Negative feedback on the final step exhausts the sequence.
	state, msg := guide.Advance(state, false)
	assert.Equal(t, GuideState{}, state)
	assert.Equal(t, models.KindEscalation, msg.Kind)
	assert.True(t, msg.Metadata.Escalated)
	assert.InDelta(t, 1.0, msg.Metadata.Confidence, 1e-9)
}

func TestGuidePositiveFeedbackResets(t *testing.T) {
	guide := NewGuide()

	state := guide.Start()
	state, _ = guide.Advance(state, false)
	state, _ = guide.Advance(state, false)
	require.Equal(t, GuideState{Active: true, Step: 2}, state)

	state, msg := guide.Advance(state, true)
	assert.Equal(t, GuideState{}, state)
	assert.Equal(t, models.Kind(""), msg.Kind)
	assert.False(t, msg.Metadata.Escalated)
	assert.InDelta(t, 1.0, msg.Metadata.Confidence, 1e-9)

	// A fresh sequence begins again at the first step.
	assert.Equal(t, GuideState{Active: true, Step: 0}, guide.Start())
}

func TestGuideDirectEscalation(t *testing.T) {
	guide := NewGuide()

	state, msg := guide.Escalate()
	assert.Equal(t, GuideState{}, state)
	assert.Equal(t, models.KindEscalation, msg.Kind)
	assert.True(t, msg.Metadata.Escalated)
	assert.InDelta(t, 1.0, msg.Metadata.Confidence, 1e-9)
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.Timestamp.IsZero())
}
