package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
)

type apiChatRequest struct {
	Messages []apiChatMessage `json:"messages"`
}

type apiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HandleAPIChat serves the transport-level chat contract: a JSON message
// list in, a chunked plain-text word stream out. Only the last user-role
// message participates in routing; the whole payload is the response text
// with no framing, each token followed by a single space. The stream stops
// as soon as the client goes away, so an abandoned request never keeps
// emitting.
func (m Main) HandleAPIChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req apiChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.logger.Error("Failed to decode request", slog.String(errLoggerKey, err.Error()))
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// An empty or malformed message list is not an error; it routes to the
	// fallback reply downstream.
	messages := make([]models.Message, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = models.Message{
			Role:      models.Role(msg.Role),
			Content:   msg.Content,
			Timestamp: time.Now(),
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	flusher, canFlush := w.(http.Flusher)

	_, chunks := m.responder.Chat(r.Context(), messages)
	for chunk, err := range chunks {
		if err != nil {
			m.logger.Error("Error from responder", slog.String(errLoggerKey, err.Error()))
			return
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			// Client is gone; the iterator stops with us.
			m.logger.Debug("Client disconnected mid-stream", slog.String(errLoggerKey, err.Error()))
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}
