package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rafaelcorporan/AI-Customer-support/internal/engine"
	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
	"github.com/tmaxmax/go-sse"
)

type session struct {
	ID    string
	Title string

	Active bool
}

type message struct {
	ID        string
	Role      string
	Kind      string
	Content   template.HTML
	Timestamp time.Time

	ConfidencePct int
	Escalated     bool
	Feedback      string

	StreamingState string
}

// SSE event types for real-time updates.
var (
	sessionsSSEType        = sse.Type("sessions")
	messagesSSEType        = sse.Type("messages")
	troubleshootingSSEType = sse.Type("troubleshooting")
)

// Metadata for the fixed apology shown when a reply cannot be delivered.
const (
	apologyConfidence = 0.5
	apologySource     = "Error Handler"
)

const maxTitleLen = 40

// sessionTitle derives a session title from its first user message.
func sessionTitle(msg string) string {
	title := strings.Join(strings.Fields(msg), " ")
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen] + "..."
	}
	return title
}

func (m Main) messageView(msg models.Message, streamingState string) (message, error) {
	content, err := models.RenderContent(msg.Content)
	if err != nil {
		return message{}, fmt.Errorf("failed to render content: %w", err)
	}
	return message{
		ID:             msg.ID,
		Role:           string(msg.Role),
		Kind:           string(msg.Kind),
		Content:        template.HTML(content),
		Timestamp:      msg.Timestamp,
		ConfidencePct:  int(math.Round(msg.Metadata.Confidence * 100)),
		Escalated:      msg.Metadata.Escalated,
		Feedback:       string(msg.Metadata.Feedback),
		StreamingState: streamingState,
	}, nil
}

// HandleChats processes chat interactions through HTTP POST requests,
// managing both new session creation and message handling. It accepts user
// messages through form data, appends them to the session log, and initiates
// asynchronous streaming of the canned reply.
//
// The handler expects a "message" form field and an optional "session_id"
// field. If no session_id is provided, it creates a new support session
// seeded with the assistant greeting. The reply is streamed through
// Server-Sent Events (SSE) while the handler renders either a complete
// chatbox template for new sessions or individual message templates for
// existing ones.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	msg := r.FormValue("message")
	if msg == "" {
		m.logger.Error("Message is required")
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	var err error

	sessionID := r.FormValue("session_id")
	// We track if this is a new session to determine the appropriate template rendering strategy
	isNewSession := false
	if sessionID == "" {
		sessionID, err = m.newSession(r.Context(), msg)
		if err != nil {
			m.logger.Error("Failed to create new session", slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		isNewSession = true
	} else {
		if _, err := m.store.Session(r.Context(), sessionID); err != nil {
			m.logger.Error("Failed to load session",
				slog.String("sessionID", sessionID),
				slog.String(errLoggerKey, err.Error()))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	// We create two messages: user's input and a placeholder for the streamed reply
	um := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleUser,
		Content:   msg,
		Timestamp: time.Now(),
	}
	userMsgID, err := m.store.AddMessage(r.Context(), sessionID, um)
	if err != nil {
		m.logger.Error("Failed to add user message",
			slog.String("message", fmt.Sprintf("%+v", um)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	um.ID = userMsgID

	am := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Timestamp: time.Now(),
	}
	aiMsgID, err := m.store.AddMessage(r.Context(), sessionID, am)
	if err != nil {
		m.logger.Error("Failed to add assistant message",
			slog.String("message", fmt.Sprintf("%+v", am)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	am.ID = aiMsgID

	messages, err := m.store.Messages(r.Context(), sessionID)
	if err != nil {
		m.logger.Error("Failed to get messages",
			slog.String("sessionID", sessionID),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// Start async streaming of the reply
	go m.chat(sessionID, messages)

	if isNewSession {
		// For new sessions, we prepare all messages with appropriate streaming states
		msgs := make([]message, len(messages))
		for i := range messages {
			// Mark only the streamed reply as "loading", others as "ended"
			streamingState := "ended"
			if messages[i].ID == aiMsgID {
				streamingState = "loading"
			}
			msgs[i], err = m.messageView(messages[i], streamingState)
			if err != nil {
				m.logger.Error("Failed to render contents",
					slog.String("message", fmt.Sprintf("%+v", messages[i])),
					slog.String(errLoggerKey, err.Error()))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}

		data := homePageData{
			CurrentSessionID: sessionID,
			Messages:         msgs,
		}
		err = m.templates.ExecuteTemplate(w, "chatbox", data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	userView, err := m.messageView(um, "ended")
	if err != nil {
		m.logger.Error("Failed to render contents",
			slog.String("message", fmt.Sprintf("%+v", um)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = m.templates.ExecuteTemplate(w, "user_message", userView)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	aiView, err := m.messageView(am, "loading")
	if err != nil {
		m.logger.Error("Failed to render contents",
			slog.String("message", fmt.Sprintf("%+v", am)),
			slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	err = m.templates.ExecuteTemplate(w, "ai_message", aiView)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// newSession creates a session titled after the first user message and seeds
// it with the assistant greeting, then refreshes the session list for
// connected clients.
func (m Main) newSession(ctx context.Context, firstMessage string) (string, error) {
	newSession := models.Session{
		ID:        uuid.New().String(),
		Title:     sessionTitle(firstMessage),
		CreatedAt: time.Now(),
	}
	newSessionID, err := m.store.AddSession(ctx, newSession)
	if err != nil {
		return "", fmt.Errorf("failed to add session: %w", err)
	}
	newSession.ID = newSessionID

	greeting := models.Message{
		ID:        uuid.New().String(),
		Role:      models.RoleAssistant,
		Content:   engine.Greeting,
		Timestamp: time.Now(),
		Metadata:  models.Metadata{Confidence: 1},
	}
	if _, err := m.store.AddMessage(ctx, newSession.ID, greeting); err != nil {
		return "", fmt.Errorf("failed to add greeting: %w", err)
	}

	divs, err := m.sessionDivs(newSession.ID)
	if err != nil {
		return "", fmt.Errorf("failed to create session divs: %w", err)
	}

	msg := sse.Message{
		Type: sessionsSSEType,
	}
	msg.AppendData(divs)

	if err := m.sseSrv.Publish(&msg, sessionsSSETopic); err != nil {
		return "", fmt.Errorf("failed to publish sessions: %w", err)
	}

	return newSession.ID, nil
}

// chat streams the canned reply for the latest user message into the
// placeholder assistant message, publishing every accumulated state over
// SSE. A delivery failure downgrades the reply to the fixed apology and
// leaves the session usable.
func (m Main) chat(sessionID string, messages []models.Message) {
	// Ensure SSE connection cleanup on function exit
	defer func() {
		e := &sse.Message{Type: sse.Type("closeMessage")}
		e.AppendData("bye")
		_ = m.sseSrv.Publish(e)
	}()

	aiMsg := messages[len(messages)-1]

	category, chunks := m.responder.Chat(context.Background(), messages)

	for chunk, err := range chunks {
		if err != nil {
			m.logger.Error("Error from responder", slog.String(errLoggerKey, err.Error()))
			m.deliveryFailure(sessionID, aiMsg)
			return
		}

		aiMsg.Content += chunk

		if err := m.store.UpdateMessage(context.Background(), sessionID, aiMsg); err != nil {
			m.logger.Error("Failed to update message",
				slog.String("message", fmt.Sprintf("%+v", aiMsg)),
				slog.String(errLoggerKey, err.Error()))
			return
		}

		if err := m.publishMessage(aiMsg); err != nil {
			m.logger.Error("Failed to publish message",
				slog.String("message", fmt.Sprintf("%+v", aiMsg)),
				slog.String(errLoggerKey, err.Error()))
			m.deliveryFailure(sessionID, aiMsg)
			return
		}
	}

	// The stream pads every token with a trailing space; the stored record
	// keeps the reassembled text without it.
	aiMsg.Content = strings.TrimRight(aiMsg.Content, " ")
	aiMsg.Metadata = models.Metadata{
		Confidence: engine.ReplyConfidence,
		Source:     engine.ReplySource,
	}
	if err := m.store.UpdateMessage(context.Background(), sessionID, aiMsg); err != nil {
		m.logger.Error("Failed to finalize message",
			slog.String("message", fmt.Sprintf("%+v", aiMsg)),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	// A technical-error routing starts the guided troubleshooting sequence
	// for this session.
	if category == engine.CategoryTechnical {
		m.startTroubleshooting(sessionID)
	}
}

func (m Main) publishMessage(aiMsg models.Message) error {
	content, err := models.RenderContent(aiMsg.Content)
	if err != nil {
		return fmt.Errorf("failed to render content: %w", err)
	}

	msg := sse.Message{
		Type: messagesSSEType,
	}
	msg.AppendData(content)
	return m.sseSrv.Publish(&msg, messageIDTopic(aiMsg.ID))
}

// deliveryFailure replaces a half-delivered reply with the fixed apology.
// The session stays consistent and accepts the next submission; no retry is
// attempted.
func (m Main) deliveryFailure(sessionID string, aiMsg models.Message) {
	aiMsg.Content = engine.Apology
	aiMsg.Kind = ""
	aiMsg.Metadata = models.Metadata{
		Confidence: apologyConfidence,
		Source:     apologySource,
	}

	if err := m.store.UpdateMessage(context.Background(), sessionID, aiMsg); err != nil {
		m.logger.Error("Failed to store apology",
			slog.String("message", fmt.Sprintf("%+v", aiMsg)),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	if err := m.publishMessage(aiMsg); err != nil {
		m.logger.Error("Failed to publish apology", slog.String(errLoggerKey, err.Error()))
	}
}

// startTroubleshooting activates the guided sequence on the session record
// and tells connected clients to show the yes/no prompt.
func (m Main) startTroubleshooting(sessionID string) {
	sess, err := m.store.Session(context.Background(), sessionID)
	if err != nil {
		m.logger.Error("Failed to load session",
			slog.String("sessionID", sessionID),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	state := m.guide.Start()
	sess.TroubleshootingActive = state.Active
	sess.TroubleshootingStep = state.Step
	if err := m.store.UpdateSession(context.Background(), sess); err != nil {
		m.logger.Error("Failed to update session",
			slog.String("sessionID", sessionID),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	e := &sse.Message{Type: troubleshootingSSEType}
	e.AppendData("start")
	_ = m.sseSrv.Publish(e)
}

func (m Main) sessionDivs(activeID string) (string, error) {
	sessions, err := m.store.Sessions(context.Background())
	if err != nil {
		return "", fmt.Errorf("failed to get sessions: %w", err)
	}

	var sb strings.Builder
	for _, s := range sessions {
		err := m.templates.ExecuteTemplate(&sb, "session_title", session{
			ID:     s.ID,
			Title:  s.Title,
			Active: s.ID == activeID,
		})
		if err != nil {
			return "", fmt.Errorf("failed to execute session_title template: %w", err)
		}
	}
	return sb.String(), nil
}
