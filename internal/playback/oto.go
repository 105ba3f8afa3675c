package playback

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays scheduled buffers through the speaker using oto. One player
// is created per buffer; buffers are scheduled sequentially by the
// Scheduler, so players never overlap audibly.
//
// oto allows a single context per process, so one OtoSink is created at
// startup and shared across sessions.
type OtoSink struct {
	ctx        *oto.Context
	sampleRate int
	channels   int

	mu         sync.Mutex
	players    map[Handle]*oto.Player
	timers     map[Handle]*time.Timer
	onFinished func(Handle)
}

// NewOtoSink opens the output audio device at the given rate.
func NewOtoSink(sampleRate, channels int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open output device: %w", err)
	}
	<-ready

	return &OtoSink{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
		players:    make(map[Handle]*oto.Player),
		timers:     make(map[Handle]*time.Timer),
	}, nil
}

// SetFinishedFunc registers the callback invoked when a buffer plays to the
// end. Must be set before the first Start.
func (s *OtoSink) SetFinishedFunc(fn func(Handle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinished = fn
}

// Start schedules pcm to begin playing after delay.
func (s *OtoSink) Start(h Handle, pcm []byte, delay time.Duration) {
	dur := time.Duration(len(pcm)) * time.Second / time.Duration(s.sampleRate*s.channels*2)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[h] = time.AfterFunc(delay, func() {
		s.play(h, pcm, dur)
	})
}

func (s *OtoSink) play(h Handle, pcm []byte, dur time.Duration) {
	s.mu.Lock()
	if _, pending := s.timers[h]; !pending {
		// Stopped before the start timer fired.
		s.mu.Unlock()
		return
	}
	p := s.ctx.NewPlayer(bytes.NewReader(pcm))
	s.players[h] = p
	// Re-arm the timer slot as the end-of-playback notification.
	s.timers[h] = time.AfterFunc(dur+20*time.Millisecond, func() {
		s.finish(h)
	})
	s.mu.Unlock()

	p.Play()
}

func (s *OtoSink) finish(h Handle) {
	s.mu.Lock()
	p := s.players[h]
	delete(s.players, h)
	delete(s.timers, h)
	fn := s.onFinished
	s.mu.Unlock()

	if p != nil {
		_ = p.Close()
	}
	if fn != nil {
		fn(h)
	}
}

// Stop force-stops a buffer, whether it is still pending or already playing.
// No finished notification is emitted for stopped buffers.
func (s *OtoSink) Stop(h Handle) {
	s.mu.Lock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
	p := s.players[h]
	delete(s.players, h)
	s.mu.Unlock()

	if p != nil {
		p.Pause()
		_ = p.Close()
	}
}

// StopAll force-stops every pending and playing buffer.
func (s *OtoSink) StopAll() {
	s.mu.Lock()
	handles := make([]Handle, 0, len(s.timers)+len(s.players))
	for h := range s.timers {
		handles = append(handles, h)
	}
	for h := range s.players {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	seen := make(map[Handle]struct{}, len(handles))
	for _, h := range handles {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		s.Stop(h)
	}
}
