package ui

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"voice-practice-client/internal/models"
	"voice-practice-client/internal/session"
)

// fakeSession records controller calls.
type fakeSession struct {
	mu      sync.Mutex
	started int
	stopped int
	cred    string
	level   string
	topic   string
	msgs    []models.ChatMessage

	startCh chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{startCh: make(chan struct{}, 1)}
}

func (s *fakeSession) Start(ctx context.Context) error {
	s.mu.Lock()
	s.started++
	s.mu.Unlock()
	s.startCh <- struct{}{}
	return nil
}

func (s *fakeSession) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

func (s *fakeSession) SaveCredential(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = value
	return nil
}

func (s *fakeSession) SetLevel(level string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

func (s *fakeSession) SetTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topic = topic
}

func (s *fakeSession) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ChatMessage{}, s.msgs...)
}

func (s *fakeSession) State() session.State {
	return session.StateIdle
}

func TestHandleAction_RoutesToSession(t *testing.T) {
	sess := newFakeSession()
	hub := NewHub(sess)
	go hub.Run()
	defer hub.Close()

	hub.handleAction(Action{Type: ActionSaveCredential, Value: "key-123"})
	hub.handleAction(Action{Type: ActionSetLevel, Value: "advanced"})
	hub.handleAction(Action{Type: ActionSetTopic, Value: "travel"})
	hub.handleAction(Action{Type: ActionStop})

	hub.handleAction(Action{Type: ActionStart})
	select {
	case <-sess.startCh:
	case <-time.After(2 * time.Second):
		t.Fatal("start action never reached the session")
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.cred != "key-123" {
		t.Errorf("expected credential saved, got %q", sess.cred)
	}
	if sess.level != "advanced" {
		t.Errorf("expected level set, got %q", sess.level)
	}
	if sess.topic != "travel" {
		t.Errorf("expected topic set, got %q", sess.topic)
	}
	if sess.stopped != 1 {
		t.Errorf("expected one stop, got %d", sess.stopped)
	}
	if sess.started != 1 {
		t.Errorf("expected one start, got %d", sess.started)
	}
}

func TestHandleAction_UnknownActionIgnored(t *testing.T) {
	sess := newFakeSession()
	hub := NewHub(sess)

	hub.handleAction(Action{Type: "reboot"})

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.started != 0 || sess.stopped != 0 {
		t.Error("unknown action must not touch the session")
	}
}

func TestActionDecoding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Action
	}{
		{"start", `{"type":"start"}`, Action{Type: "start"}},
		{"with value", `{"type":"set_level","value":"beginner"}`, Action{Type: "set_level", Value: "beginner"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Action
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTranscriptEndpoint(t *testing.T) {
	sess := newFakeSession()
	sess.msgs = []models.ChatMessage{
		{Speaker: models.SpeakerUser, Text: "I go to school"},
		{Speaker: models.SpeakerAssistant, Text: "Nice!"},
	}
	hub := NewHub(sess)
	router := NewRouter(hub)

	req := httptest.NewRequest("GET", "/v1/transcript", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []models.ChatMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].Text != "I go to school" {
		t.Errorf("unexpected transcript %v", got)
	}
}

func TestSessionEndpoint(t *testing.T) {
	hub := NewHub(newFakeSession())
	router := NewRouter(hub)

	req := httptest.NewRequest("GET", "/v1/session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["state"] != "IDLE" {
		t.Errorf("expected IDLE, got %q", got["state"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	hub := NewHub(newFakeSession())
	router := NewRouter(hub)

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != 200 {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}
