package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
)

// HandleFeedback attaches thumbs-up/thumbs-down feedback to an assistant
// message. It expects "session_id", "message_id", and "feedback"
// (positive|negative) form fields. Feedback is attached at most once: a
// message that already carries feedback is left untouched and the request
// is treated as a no-op, so a stale UI control can never corrupt the log.
func (m Main) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.FormValue("session_id")
	messageID := r.FormValue("message_id")
	feedback := models.Feedback(r.FormValue("feedback"))
	if sessionID == "" || messageID == "" {
		http.Error(w, "session_id and message_id are required", http.StatusBadRequest)
		return
	}
	if feedback != models.FeedbackPositive && feedback != models.FeedbackNegative {
		http.Error(w, "feedback must be positive or negative", http.StatusBadRequest)
		return
	}

	messages, err := m.store.Messages(r.Context(), sessionID)
	if err != nil {
		m.logger.Error("Failed to get messages",
			slog.String("sessionID", sessionID),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	idx := slices.IndexFunc(messages, func(msg models.Message) bool { return msg.ID == messageID })
	if idx == -1 {
		http.Error(w, "message not found", http.StatusNotFound)
		return
	}

	msg := messages[idx]
	if msg.Metadata.Feedback == "" {
		msg.Metadata.Feedback = feedback
		if err := m.store.UpdateMessage(r.Context(), sessionID, msg); err != nil {
			m.logger.Error("Failed to update message",
				slog.String("messageID", messageID),
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	view, err := m.messageView(msg, "ended")
	if err != nil {
		m.logger.Error("Failed to render contents",
			slog.String("messageID", messageID),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := m.templates.ExecuteTemplate(w, "ai_message", view); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
