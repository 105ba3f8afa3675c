// Package mock provides a scripted remote dialer for testing and offline
// development without a live service credential. It simulates realistic
// session behavior: progressive partial transcripts for both speakers,
// audio fragments, and exactly one turn-complete per exchange.
package mock

import (
	"context"
	"sync"

	"voice-practice-client/internal/remote"
)

// Exchange is one scripted conversational turn: what the user is heard
// saying, what the assistant replies, and the assistant's speech audio.
type Exchange struct {
	UserPartials      []string // Progressive user transcript fragments
	AssistantPartials []string // Progressive assistant transcript fragments
	Audio             []string // Base64 PCM fragments of assistant speech
}

// DefaultExchanges provides sample exchanges for simulation.
var DefaultExchanges = []Exchange{
	{
		UserPartials:      []string{"I go", " to school", " every day"},
		AssistantPartials: []string{"That's great!", " What do you study?"},
		Audio:             []string{"AAAAAAAA", "AAAAAAAAAAAAAAAA"},
	},
	{
		UserPartials:      []string{"I study", " English"},
		AssistantPartials: []string{"English is", " a useful language."},
		Audio:             []string{"AAAAAAAA"},
	},
	{
		UserPartials:      []string{"Thank you"},
		AssistantPartials: []string{"You're welcome!"},
		Audio:             []string{"AAAAAAAA"},
	},
}

// Dialer implements remote.Dialer with scripted connections.
type Dialer struct {
	// DialErr, when set, makes Dial fail with it.
	DialErr error

	// ManualOpen suppresses the automatic OnOpen so a test can fire it
	// explicitly with Conn.CompleteSetup.
	ManualOpen bool

	exchanges []Exchange

	mu    sync.Mutex
	conns []*Conn
}

// NewDialer creates a dialer cycling through the given exchanges.
// With no exchanges it uses DefaultExchanges.
func NewDialer(exchanges ...Exchange) *Dialer {
	if len(exchanges) == 0 {
		exchanges = DefaultExchanges
	}
	return &Dialer{exchanges: exchanges}
}

// Dial creates a scripted connection. Unless ManualOpen is set, the
// handler's OnOpen fires asynchronously, like a real connection.
func (d *Dialer) Dial(ctx context.Context, credential string, cfg remote.SessionConfig, h remote.Handler) (remote.Conn, error) {
	if d.DialErr != nil {
		return nil, d.DialErr
	}

	c := &Conn{
		handler:   h,
		exchanges: d.exchanges,
	}

	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()

	if !d.ManualOpen {
		go h.OnOpen()
	}
	return c, nil
}

// Conns returns every connection the dialer has opened.
func (d *Dialer) Conns() []*Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Conn{}, d.conns...)
}

// LastConn returns the most recently opened connection, or nil.
func (d *Dialer) LastConn() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// Conn is one scripted connection. Besides replaying the script frame by
// frame, it lets a test drive events directly with Emit and Fail.
type Conn struct {
	handler remote.Handler

	mu        sync.Mutex
	exchanges []Exchange
	exchange  int // current exchange
	partial   int // next user partial within the exchange
	frames    int // audio frames received
	closed    bool
}

// SendAudio advances the script: each frame surfaces the next user partial;
// once the user partials are exhausted the assistant's reply plays out and
// the turn completes.
func (c *Conn) SendAudio(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return remote.ErrConnectionFailed
	}
	c.frames++

	if c.exchange >= len(c.exchanges) {
		return nil
	}
	ex := c.exchanges[c.exchange]

	if c.partial < len(ex.UserPartials) {
		text := ex.UserPartials[c.partial]
		c.partial++
		go c.handler.OnEvent(remote.ServerEvent{InputTranscript: text})
		return nil
	}

	// User side done; reply and complete the turn.
	c.exchange++
	c.partial = 0
	go func() {
		for _, text := range ex.AssistantPartials {
			c.handler.OnEvent(remote.ServerEvent{OutputTranscript: text})
		}
		if len(ex.Audio) > 0 {
			c.handler.OnEvent(remote.ServerEvent{Audio: ex.Audio})
		}
		c.handler.OnEvent(remote.ServerEvent{TurnComplete: true})
	}()
	return nil
}

// Frames reports how many audio frames were sent on this connection.
func (c *Conn) Frames() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// CompleteSetup fires OnOpen. Used with Dialer.ManualOpen.
func (c *Conn) CompleteSetup() {
	c.handler.OnOpen()
}

// Emit delivers an arbitrary server event, bypassing the script.
func (c *Conn) Emit(ev remote.ServerEvent) {
	c.handler.OnEvent(ev)
}

// Fail simulates an unrecoverable connection error: OnError then OnClose,
// like a real connection dropping.
func (c *Conn) Fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.handler.OnError(err)
	c.handler.OnClose()
}

// Closed reports whether the connection has been torn down.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close tears the connection down and fires OnClose once. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.handler.OnClose()
	return nil
}
