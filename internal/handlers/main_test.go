package handlers_test

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rafaelcorporan/AI-Customer-support/internal/engine"
	"github.com/rafaelcorporan/AI-Customer-support/internal/handlers"
	"github.com/rafaelcorporan/AI-Customer-support/internal/models"
)

// errResponder simulates a delivery failure on the first chunk.
type errResponder struct{}

type mockStore struct {
	mu       sync.Mutex
	sessions []models.Session
	messages map[string][]models.Message
	err      error
}

// newTestMain wires handlers against the real zero-delay engine so streamed
// replies finish immediately.
func newTestMain(t *testing.T, store handlers.Store) handlers.Main {
	t.Helper()
	responder := engine.NewResponder(engine.NewTypewriter(0, 0))
	main, err := handlers.NewMain(responder, store, engine.NewGuide(), nil)
	if err != nil {
		t.Fatalf("NewMain() error = %v", err)
	}
	return main
}

func TestNewMain(t *testing.T) {
	main := newTestMain(t, &mockStore{})

	if main.Shutdown(context.Background()) != nil {
		t.Error("Shutdown() should not return error")
	}
}

func TestHandleHome(t *testing.T) {
	store := &mockStore{
		sessions: []models.Session{
			{ID: "1", Title: "Login trouble", TroubleshootingActive: true, TroubleshootingStep: 2},
		},
		messages: map[string][]models.Message{
			"1": {{ID: "1", Role: models.RoleUser, Content: "Hello"}},
		},
	}
	main := newTestMain(t, store)

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "Home page without session",
			url:        "/",
			wantStatus: http.StatusOK,
			wantBody:   "Login trouble", // Should contain session title
		},
		{
			name:       "Home page with session",
			url:        "/?session_id=1",
			wantStatus: http.StatusOK,
			wantBody:   "Hello", // Should contain message content
		},
		{
			name:       "Troubleshooting prompt shown for active session",
			url:        "/?session_id=1",
			wantStatus: http.StatusOK,
			wantBody:   "Did this step help resolve your issue?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			main.HandleHome(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleHome() status = %v, want %v", w.Code, tt.wantStatus)
			}

			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("HandleHome() body = %v, want to contain %v", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleChats(t *testing.T) {
	store := &mockStore{
		sessions: []models.Session{{ID: "1", Title: "Existing"}},
		messages: map[string][]models.Message{},
	}
	main := newTestMain(t, store)

	tests := []struct {
		name       string
		method     string
		message    string
		sessionID  string
		wantStatus int
	}{
		{
			name:       "Invalid method",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "Empty message",
			method:     http.MethodPost,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "New session",
			method:     http.MethodPost,
			message:    "Hello",
			wantStatus: http.StatusOK,
		},
		{
			name:       "Existing session",
			method:     http.MethodPost,
			message:    "Hello",
			sessionID:  "1",
			wantStatus: http.StatusOK,
		},
		{
			name:       "Unknown session",
			method:     http.MethodPost,
			message:    "Hello",
			sessionID:  "no-such",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			form.Set("message", tt.message)
			form.Set("session_id", tt.sessionID)
			req := httptest.NewRequest(tt.method, "/chats", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()

			main.HandleChats(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("HandleChats() status = %v, want %v", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleChatsSeedsGreeting(t *testing.T) {
	store := &mockStore{messages: map[string][]models.Message{}}
	main := newTestMain(t, store)

	form := strings.NewReader("message=I+have+login+problems")
	req := httptest.NewRequest(http.MethodPost, "/chats", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	main.HandleChats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("HandleChats() status = %v", w.Code)
	}
	if !strings.Contains(w.Body.String(), "AI support assistant") {
		t.Errorf("new session should render the greeting, body = %v", w.Body.String())
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(store.sessions))
	}
	if got := store.sessions[0].Title; got != "I have login problems" {
		t.Errorf("session title = %q", got)
	}
}

func TestHandleChatsPreservesReplyFormatting(t *testing.T) {
	store := &mockStore{
		sessions: []models.Session{{ID: "1"}},
		messages: map[string][]models.Message{"1": {}},
	}
	main := newTestMain(t, store)

	form := strings.NewReader("message=I+cannot+login&session_id=1")
	req := httptest.NewRequest(http.MethodPost, "/chats", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	main.HandleChats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("HandleChats() status = %v", w.Code)
	}

	// The stored reply is the reassembled stream; the numbered list must
	// keep its line breaks.
	want := engine.Response(engine.CategoryLogin)
	deadline := time.Now().Add(2 * time.Second)
	for store.lastMessage("1").Content != want {
		if time.Now().After(deadline) {
			t.Fatalf("stored reply = %q, want %q", store.lastMessage("1").Content, want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandleFeedback(t *testing.T) {
	assistantMsg := models.Message{
		ID:      "a1",
		Role:    models.RoleAssistant,
		Content: "Try resetting your password",
	}
	store := &mockStore{
		sessions: []models.Session{{ID: "1"}},
		messages: map[string][]models.Message{"1": {assistantMsg}},
	}
	main := newTestMain(t, store)

	post := func(fields url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(fields.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		main.HandleFeedback(w, req)
		return w
	}

	valid := url.Values{"session_id": {"1"}, "message_id": {"a1"}, "feedback": {"negative"}}

	if w := post(url.Values{"session_id": {"1"}, "message_id": {"a1"}, "feedback": {"meh"}}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid feedback status = %v", w.Code)
	}

	if w := post(valid); w.Code != http.StatusOK {
		t.Fatalf("first feedback status = %v", w.Code)
	}
	if got := store.feedback("1", "a1"); got != models.FeedbackNegative {
		t.Fatalf("feedback = %q, want negative", got)
	}

	// Attaching feedback again is a no-op: the stored value and the message
	// count stay as they are, and the session remains operable.
	repeat := url.Values{"session_id": {"1"}, "message_id": {"a1"}, "feedback": {"positive"}}
	if w := post(repeat); w.Code != http.StatusOK {
		t.Fatalf("repeat feedback status = %v", w.Code)
	}
	if got := store.feedback("1", "a1"); got != models.FeedbackNegative {
		t.Errorf("feedback after repeat = %q, want negative", got)
	}
	if got := store.messageCount("1"); got != 1 {
		t.Errorf("message count after repeat = %d, want 1", got)
	}
}

func TestHandleTroubleshoot(t *testing.T) {
	store := &mockStore{
		sessions: []models.Session{{ID: "1", TroubleshootingActive: true, TroubleshootingStep: 0}},
		messages: map[string][]models.Message{"1": {}},
	}
	main := newTestMain(t, store)

	post := func(answer string) *httptest.ResponseRecorder {
		form := url.Values{"session_id": {"1"}, "answer": {answer}}
		req := httptest.NewRequest(http.MethodPost, "/troubleshoot", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		main.HandleTroubleshoot(w, req)
		return w
	}

	if w := post("maybe"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid answer status = %v", w.Code)
	}

	w := post("no")
	if w.Code != http.StatusOK {
		t.Fatalf("negative answer status = %v", w.Code)
	}
	if !strings.Contains(w.Body.String(), "try the next step:") {
		t.Errorf("negative answer should render the next step, body = %v", w.Body.String())
	}
	if sess := store.session("1"); !sess.TroubleshootingActive || sess.TroubleshootingStep != 1 {
		t.Errorf("session state = %+v, want active at step 1", sess)
	}

	w = post("yes")
	if w.Code != http.StatusOK {
		t.Fatalf("positive answer status = %v", w.Code)
	}
	if sess := store.session("1"); sess.TroubleshootingActive || sess.TroubleshootingStep != 0 {
		t.Errorf("session state = %+v, want idle at step 0", sess)
	}

	// The sequence has ended; further answers are rejected.
	if w := post("no"); w.Code != http.StatusBadRequest {
		t.Errorf("answer without active sequence status = %v", w.Code)
	}
}

func TestHandleTroubleshootExhaustionEscalates(t *testing.T) {
	lastStep := engine.NewGuide().Len() - 1
	store := &mockStore{
		sessions: []models.Session{{ID: "1", TroubleshootingActive: true, TroubleshootingStep: lastStep}},
		messages: map[string][]models.Message{"1": {}},
	}
	main := newTestMain(t, store)

	form := url.Values{"session_id": {"1"}, "answer": {"no"}}
	req := httptest.NewRequest(http.MethodPost, "/troubleshoot", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	main.HandleTroubleshoot(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("HandleTroubleshoot() status = %v", w.Code)
	}
	if !strings.Contains(w.Body.String(), "human support agents") {
		t.Errorf("exhaustion should render the escalation message, body = %v", w.Body.String())
	}
	if sess := store.session("1"); sess.TroubleshootingActive {
		t.Errorf("session state = %+v, want idle after escalation", sess)
	}

	msg := store.lastMessage("1")
	if !msg.Metadata.Escalated || msg.Metadata.Confidence != 1.0 {
		t.Errorf("escalation metadata = %+v, want escalated with confidence 1.0", msg.Metadata)
	}
}

func TestHandleEscalate(t *testing.T) {
	store := &mockStore{
		sessions: []models.Session{{ID: "1", TroubleshootingActive: true, TroubleshootingStep: 2}},
		messages: map[string][]models.Message{"1": {}},
	}
	main := newTestMain(t, store)

	form := url.Values{"session_id": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/escalate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	main.HandleEscalate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("HandleEscalate() status = %v", w.Code)
	}
	if sess := store.session("1"); sess.TroubleshootingActive || sess.TroubleshootingStep != 0 {
		t.Errorf("session state = %+v, want idle at step 0", sess)
	}
	if msg := store.lastMessage("1"); !msg.Metadata.Escalated {
		t.Errorf("escalation metadata = %+v, want escalated", msg.Metadata)
	}
}

func TestHandleAPIChat(t *testing.T) {
	main := newTestMain(t, &mockStore{})

	tests := []struct {
		name     string
		body     string
		wantBody string
	}{
		{
			name:     "login message streams the login template",
			body:     `{"messages":[{"role":"user","content":"I can't login, my password is wrong"}]}`,
			wantBody: engine.Response(engine.CategoryLogin),
		},
		{
			name:     "empty message list streams the fallback template",
			body:     `{"messages":[]}`,
			wantBody: engine.Response(engine.CategoryGeneral),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			main.HandleAPIChat(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("HandleAPIChat() status = %v", w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
				t.Errorf("Content-Type = %q", ct)
			}

			// Every token is padded with one trailing space, the last
			// included, and newlines survive inside their tokens; the body
			// is the template verbatim plus the final pad.
			want := tt.wantBody + " "
			if got := w.Body.String(); got != want {
				t.Errorf("HandleAPIChat() body = %q, want %q", got, want)
			}
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{"))
		w := httptest.NewRecorder()

		main.HandleAPIChat(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("HandleAPIChat() status = %v", w.Code)
		}
	})
}

func TestDeliveryFailureStoresApology(t *testing.T) {
	store := &mockStore{
		sessions: []models.Session{{ID: "1"}},
		messages: map[string][]models.Message{"1": {}},
	}
	main, err := handlers.NewMain(errResponder{}, store, engine.NewGuide(), nil)
	if err != nil {
		t.Fatal(err)
	}

	form := strings.NewReader("message=hello&session_id=1")
	req := httptest.NewRequest(http.MethodPost, "/chats", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	main.HandleChats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("HandleChats() status = %v", w.Code)
	}

	store.waitForContent(t, "1", "trouble connecting")

	msg := store.lastMessage("1")
	if msg.Metadata.Confidence != 0.5 || msg.Metadata.Source != "Error Handler" {
		t.Errorf("apology metadata = %+v", msg.Metadata)
	}
}

func (errResponder) Chat(context.Context, []models.Message) (engine.Category, iter.Seq2[string, error]) {
	return engine.CategoryGeneral, func(yield func(string, error) bool) {
		yield("", fmt.Errorf("transport unreachable"))
	}
}

func (m *mockStore) Sessions(context.Context) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.sessions), nil
}

func (m *mockStore) Session(_ context.Context, id string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.Session{}, m.err
	}
	idx := slices.IndexFunc(m.sessions, func(s models.Session) bool { return s.ID == id })
	if idx == -1 {
		return models.Session{}, fmt.Errorf("session %s is not found", id)
	}
	return m.sessions[idx], nil
}

func (m *mockStore) AddSession(_ context.Context, session models.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sessions = append(m.sessions, session)
	if m.messages == nil {
		m.messages = map[string][]models.Message{}
	}
	return session.ID, nil
}

func (m *mockStore) UpdateSession(_ context.Context, session models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.sessions, func(s models.Session) bool { return s.ID == session.ID })
	if idx == -1 {
		return fmt.Errorf("session not found")
	}
	m.sessions[idx] = session
	return m.err
}

func (m *mockStore) Messages(_ context.Context, sessionID string) ([]models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return slices.Clone(m.messages[sessionID]), nil
}

func (m *mockStore) AddMessage(_ context.Context, sessionID string, msg models.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return msg.ID, nil
}

func (m *mockStore) UpdateMessage(_ context.Context, sessionID string, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.messages[sessionID], func(s models.Message) bool { return s.ID == msg.ID })
	if idx == -1 {
		return fmt.Errorf("message not found")
	}
	m.messages[sessionID][idx] = msg
	return m.err
}

func (m *mockStore) session(id string) models.Session {
	s, _ := m.Session(context.Background(), id)
	return s
}

func (m *mockStore) feedback(sessionID, messageID string) models.Feedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := slices.IndexFunc(m.messages[sessionID], func(s models.Message) bool { return s.ID == messageID })
	if idx == -1 {
		return ""
	}
	return m.messages[sessionID][idx].Metadata.Feedback
}

func (m *mockStore) messageCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages[sessionID])
}

func (m *mockStore) lastMessage(sessionID string) models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[sessionID]
	if len(msgs) == 0 {
		return models.Message{}
	}
	return msgs[len(msgs)-1]
}

// waitForContent polls until the session's last message contains substr,
// covering the handoff to the async streaming goroutine.
func (m *mockStore) waitForContent(t *testing.T, sessionID, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(m.lastMessage(sessionID).Content, substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q in session %s", substr, sessionID)
}
