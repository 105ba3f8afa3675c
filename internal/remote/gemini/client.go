package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voice-practice-client/internal/observability/logging"
	"voice-practice-client/internal/remote"
)

// DefaultEndpoint is the Gemini Live websocket endpoint.
const DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

// Dialer opens Gemini Live connections.
type Dialer struct {
	endpoint string
}

// NewDialer creates a dialer. An empty endpoint selects the default.
func NewDialer(endpoint string) *Dialer {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Dialer{endpoint: endpoint}
}

// Dial opens the websocket, sends the session setup payload and starts the
// read loop. The handler's OnOpen fires once the service acknowledges the
// setup; audio sent before that is deferred in order.
func (d *Dialer) Dial(ctx context.Context, credential string, cfg remote.SessionConfig, h remote.Handler) (remote.Conn, error) {
	u := d.endpoint + "?key=" + url.QueryEscape(credential)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: HTTP %d", remote.ErrCredentialRejected, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %v", remote.ErrConnectionFailed, err)
	}

	c := &Conn{
		ws:       ws,
		handler:  h,
		mimeType: fmt.Sprintf("audio/pcm;rate=%d", cfg.InputSampleRate),
		logger:   logging.WithComponent("gemini"),
	}

	if err := c.writeSetup(cfg); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("%w: send setup: %v", remote.ErrConnectionFailed, err)
	}

	go c.readLoop()
	return c, nil
}

// Conn is one open Gemini Live connection.
type Conn struct {
	ws       *websocket.Conn
	handler  remote.Handler
	mimeType string
	logger   zerolog.Logger

	// writeMu serializes websocket writes; gorilla permits one writer.
	writeMu sync.Mutex

	mu      sync.Mutex
	ready   bool
	closed  bool
	pending []string // base64 frames deferred until setup completes
}

func (c *Conn) writeSetup(cfg remote.SessionConfig) error {
	setup := &setupPayload{
		Model: cfg.Model,
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
	}
	if cfg.SystemInstruction != "" {
		setup.SystemInstruction = &content{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}
	if cfg.TranscribeInput {
		setup.InputAudioTranscription = &transcriptionSetup{}
	}
	if cfg.TranscribeOutput {
		setup.OutputAudioTranscription = &transcriptionSetup{}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(clientMessage{Setup: setup})
}

// SendAudio transmits one raw PCM frame. Frames sent before the service
// acknowledges the setup are queued and flushed in order.
func (c *Conn) SendAudio(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := base64.StdEncoding.EncodeToString(frame)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: connection closed", remote.ErrConnectionFailed)
	}
	if !c.ready {
		c.pending = append(c.pending, data)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.writeChunkLocked(data)
}

func (c *Conn) writeChunkLocked(data string) error {
	return c.ws.WriteJSON(clientMessage{
		RealtimeInput: &realtimeInput{
			MediaChunks: []blob{{MimeType: c.mimeType, Data: data}},
		},
	})
}

func (c *Conn) readLoop() {
	for {
		var msg serverMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			c.fail(err)
			return
		}

		if msg.SetupComplete != nil {
			c.flushPending()
			c.handler.OnOpen()
			continue
		}
		if msg.ServerContent != nil {
			c.handler.OnEvent(toEvent(msg.ServerContent))
		}
	}
}

// flushPending marks the connection ready and writes every deferred frame
// in order, before any concurrent SendAudio can write.
func (c *Conn) flushPending() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.writeMu.Lock()
	c.ready = true
	c.mu.Unlock()
	defer c.writeMu.Unlock()

	for _, data := range pending {
		if err := c.writeChunkLocked(data); err != nil {
			return
		}
	}
}

func toEvent(sc *serverContent) remote.ServerEvent {
	ev := remote.ServerEvent{
		TurnComplete: sc.TurnComplete,
		Interrupted:  sc.Interrupted,
	}
	if sc.InputTranscription != nil {
		ev.InputTranscript = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		ev.OutputTranscript = sc.OutputTranscription.Text
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" {
				ev.Audio = append(ev.Audio, p.InlineData.Data)
			}
		}
	}
	return ev
}

func (c *Conn) fail(err error) {
	c.mu.Lock()
	closed := c.closed
	c.closed = true
	c.mu.Unlock()

	if !closed {
		c.logger.Warn().Err(err).Msg("Connection read failed")
		c.handler.OnError(classify(err))
	}
	c.handler.OnClose()
}

// classify maps a websocket read error to the client's error taxonomy.
// A policy-violation close at setup time means the service rejected the
// credential or configuration.
func classify(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		switch ce.Code {
		case websocket.ClosePolicyViolation, websocket.CloseUnsupportedData, websocket.CloseInvalidFramePayloadData:
			return fmt.Errorf("%w: %v", remote.ErrCredentialRejected, err)
		}
	}
	return fmt.Errorf("%w: %v", remote.ErrConnectionFailed, err)
}

// Close tears the connection down. Idempotent; a locally closed connection
// reports OnClose without OnError.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.logger.Debug().Msg("Connection closed by client")
	return c.ws.Close()
}
