package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"voice-practice-client/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local control surface; the browser UI is served from the same host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRouter constructs the HTTP router for the UI server.
func NewRouter(hub *Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Group(func(r chi.Router) {
		r.Use(observability.RequestLogger)
		r.Get("/v1/transcript", hub.handleTranscript)
		r.Get("/v1/session", hub.handleSession)
	})

	// The request logger's response recorder does not implement
	// http.Hijacker, so the websocket route stays outside that group.
	r.Get("/v1/ws", hub.handleWS)

	return r
}

// handleTranscript returns the finalized transcript log.
func (h *Hub) handleTranscript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.sess.Messages()); err != nil {
		log.Warn().Err(err).Msg("Failed to encode transcript")
	}
}

// handleSession returns the current session state.
func (h *Hub) handleSession(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"state": h.sess.State().String(),
	})
}

// handleWS upgrades the connection and attaches the client to the hub.
// New clients receive a snapshot of the transcript and state first.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("UI websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan Event, sendBuffer)}
	c.send <- Event{Type: EventState, State: h.sess.State().String()}
	if msgs := h.sess.Messages(); len(msgs) > 0 {
		c.send <- Event{Type: EventMessages, Messages: msgs}
	}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// Server is the UI HTTP server.
type Server struct {
	server *http.Server
	addr   string
}

// NewServer creates the UI server for the given hub.
func NewServer(addr string, hub *Hub) *Server {
	return &Server{
		addr: addr,
		server: &http.Server{
			Addr:        addr,
			Handler:     NewRouter(hub),
			ReadTimeout: 5 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
	}
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.addr).Msg("Starting UI server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("UI server error")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down UI server")
	return s.server.Shutdown(ctx)
}
