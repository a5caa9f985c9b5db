package handlers

import (
	"log/slog"
	"net/http"
)

type homePageData struct {
	Sessions         []session
	CurrentSessionID string
	Messages         []message

	TroubleshootingActive bool
	TroubleshootingStep   int
}

// HandleHome renders the main chat page. Without a session_id query
// parameter it shows the session list and an empty chatbox; with one it
// loads that session's message log and troubleshooting state. The
// presentation layer only observes this data, all mutations go through the
// POST handlers.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	sessions, err := m.store.Sessions(r.Context())
	if err != nil {
		m.logger.Error("Failed to get sessions", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := homePageData{
		CurrentSessionID: r.URL.Query().Get("session_id"),
	}

	data.Sessions = make([]session, len(sessions))
	for i, s := range sessions {
		data.Sessions[i] = session{
			ID:     s.ID,
			Title:  s.Title,
			Active: s.ID == data.CurrentSessionID,
		}
	}

	if data.CurrentSessionID != "" {
		sess, err := m.store.Session(r.Context(), data.CurrentSessionID)
		if err != nil {
			m.logger.Error("Failed to load session",
				slog.String("sessionID", data.CurrentSessionID),
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data.TroubleshootingActive = sess.TroubleshootingActive
		data.TroubleshootingStep = sess.TroubleshootingStep

		messages, err := m.store.Messages(r.Context(), data.CurrentSessionID)
		if err != nil {
			m.logger.Error("Failed to get messages",
				slog.String("sessionID", data.CurrentSessionID),
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		data.Messages = make([]message, len(messages))
		for i := range messages {
			data.Messages[i], err = m.messageView(messages[i], "ended")
			if err != nil {
				m.logger.Error("Failed to render contents", slog.String(errLoggerKey, err.Error()))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
