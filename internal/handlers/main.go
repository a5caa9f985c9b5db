package handlers

import (
	"context"
	"fmt"
	"html/template"
	"iter"
	"log/slog"
	"net/http"
	"time"

	supportchat "github.com/rafaelcorporan/AI-Customer-support"
	"github.com/rafaelcorporan/AI-Customer-support/internal/engine"
	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
	"github.com/tmaxmax/go-sse"
)

// Responder produces the assistant side of a conversation. It routes the
// given message history to a support category and returns an iterator that
// yields reply chunks and potential errors on the typing schedule.
type Responder interface {
	Chat(ctx context.Context, messages []models.Message) (engine.Category, iter.Seq2[string, error])
}

// Store defines the interface for managing session and message persistence.
// It provides methods for creating, reading, and updating sessions and their
// associated messages. The session's message log is append-only; UpdateMessage
// exists to land streamed content and one-shot feedback on stored records.
type Store interface {
	Sessions(ctx context.Context) ([]models.Session, error)
	Session(ctx context.Context, id string) (models.Session, error)
	AddSession(ctx context.Context, session models.Session) (string, error)
	UpdateSession(ctx context.Context, session models.Session) error

	Messages(ctx context.Context, sessionID string) ([]models.Message, error)
	AddMessage(ctx context.Context, sessionID string, message models.Message) (string, error)
	UpdateMessage(ctx context.Context, sessionID string, message models.Message) error
}

// Main handles the core functionality of the support chat, managing
// server-sent events, HTML templates, and interactions between the response
// engine and the Store.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	responder Responder
	guide     engine.Guide
	store     Store

	logger *slog.Logger
}

const sessionsSSETopic = "sessions"

const errLoggerKey = "err"

// NewMain creates a new Main instance with the provided Responder, Store,
// and troubleshooting Guide. It initializes the SSE server with default
// configurations and parses the required HTML templates from the embedded
// filesystem. The SSE server is configured to handle both default events and
// message-specific topics. A nil logger falls back to slog.Default.
func NewMain(responder Responder, store Store, guide engine.Guide, logger *slog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		supportchat.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return Main{
		sseSrv: &sse.Server{
			OnSession: func(s *sse.Session) (sse.Subscription, bool) {
				// We start with default topics that all clients should subscribe to
				topics := []string{sse.DefaultTopic, sessionsSSETopic}

				// We create a message-specific topic if the client requests updates for a particular message
				messageID := s.Req.URL.Query().Get("message_id")
				if messageID != "" {
					topics = append(topics, messageIDTopic(messageID))
				}

				return sse.Subscription{
					Client:      s,
					LastEventID: s.LastEventID,
					Topics:      topics,
				}, true
			},
		},
		templates: tmpl,
		responder: responder,
		guide:     guide,
		store:     store,
		logger:    logger,
	}, nil
}

func messageIDTopic(messageID string) string {
	return fmt.Sprintf("message-%s", messageID)
}

// HandleSSE serves the server-sent events endpoints the web client
// subscribes to for streamed replies and session list updates.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)
}

// Shutdown gracefully terminates the Main instance's SSE server. It
// broadcasts a close message to all connected clients and waits up to 5
// seconds for connections to terminate. After the timeout, any remaining
// connections are forcefully closed.
func (m Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeChat")}
	// We create a close event that complies with SSE spec requiring data
	e.AppendData("bye")

	// We ignore the error here since we're shutting down anyway
	_ = m.sseSrv.Publish(e)

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
