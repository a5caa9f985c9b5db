package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelcorporan/AI-Customer-support/internal/engine"
	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
)

// User-side texts echoed into the log for the yes/no prompt answers.
const (
	answerWorked     = "Yes, that worked!"
	answerDidNotHelp = "No, that didn't help."
)

// HandleTroubleshoot applies one round of guided-troubleshooting feedback.
// It expects "session_id" and "answer" (yes|no) form fields, appends the
// user's answer and the guide's follow-up to the log, and persists the new
// guide position on the session. It renders both appended messages.
func (m Main) HandleTroubleshoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	answer := r.FormValue("answer")
	if answer != "yes" && answer != "no" {
		http.Error(w, "answer must be yes or no", http.StatusBadRequest)
		return
	}

	sess, err := m.store.Session(r.Context(), r.FormValue("session_id"))
	if err != nil {
		m.logger.Error("Failed to load session", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !sess.TroubleshootingActive {
		http.Error(w, "no active troubleshooting sequence", http.StatusBadRequest)
		return
	}

	content := answerDidNotHelp
	if answer == "yes" {
		content = answerWorked
	}
	um := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
	userMsgID, err := m.store.AddMessage(r.Context(), sess.ID, um)
	if err != nil {
		m.logger.Error("Failed to add user message", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	um.ID = userMsgID

	state := engine.GuideState{Active: true, Step: sess.TroubleshootingStep}
	state, reply := m.guide.Advance(state, answer == "yes")

	if err := m.appendGuideMessage(w, r, sess, state, um, reply); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleEscalate hands the session off to a human agent immediately,
// bypassing any remaining troubleshooting steps. It expects a "session_id"
// form field, always succeeds, and resets the guide state.
func (m Main) HandleEscalate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess, err := m.store.Session(r.Context(), r.FormValue("session_id"))
	if err != nil {
		m.logger.Error("Failed to load session", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	state, reply := m.guide.Escalate()

	if err := m.appendGuideMessage(w, r, sess, state, models.Message{}, reply); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// appendGuideMessage stores the guide's reply, persists the replacement
// guide state on the session, and renders the user answer (when present)
// followed by the reply.
func (m Main) appendGuideMessage(
	w http.ResponseWriter,
	r *http.Request,
	sess models.Session,
	state engine.GuideState,
	userMsg models.Message,
	reply models.Message,
) error {
	replyID, err := m.store.AddMessage(r.Context(), sess.ID, reply)
	if err != nil {
		m.logger.Error("Failed to add reply", slog.String(errLoggerKey, err.Error()))
		return err
	}
	reply.ID = replyID

	sess.TroubleshootingActive = state.Active
	sess.TroubleshootingStep = state.Step
	if err := m.store.UpdateSession(r.Context(), sess); err != nil {
		m.logger.Error("Failed to update session", slog.String(errLoggerKey, err.Error()))
		return err
	}

	if userMsg.ID != "" {
		view, err := m.messageView(userMsg, "ended")
		if err != nil {
			return err
		}
		if err := m.templates.ExecuteTemplate(w, "user_message", view); err != nil {
			return err
		}
	}

	view, err := m.messageView(reply, "ended")
	if err != nil {
		return err
	}
	return m.templates.ExecuteTemplate(w, "ai_message", view)
}
