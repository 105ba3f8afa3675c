// Package playback decodes inbound audio fragments and schedules them for
// gapless sequential playback.
package playback

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Decode errors. A fragment that fails to decode is dropped; the session
// continues.
var (
	ErrEmptyFragment = errors.New("empty audio fragment")
	ErrBadEncoding   = errors.New("fragment is not valid base64")
	ErrOddLength     = errors.New("fragment is not whole 16-bit samples")
)

// Handle identifies one scheduled playback buffer.
type Handle uint64

// Sink plays scheduled PCM buffers. Start begins playback of pcm after
// delay; Stop force-stops a buffer that may or may not have started.
type Sink interface {
	Start(h Handle, pcm []byte, delay time.Duration)
	Stop(h Handle)
}

type entry struct {
	start time.Time
	end   time.Time
}

// Scheduler owns the playback cursor and the set of tracked buffers.
//
// The cursor is monotonically non-decreasing except when Flush resets it to
// zero. Each enqueued buffer starts at max(cursor, now), so two buffers are
// never scheduled to overlap. Thread-safe.
type Scheduler struct {
	mu         sync.Mutex
	sink       Sink
	sampleRate int
	channels   int
	now        func() time.Time

	cursor  time.Time
	tracked map[Handle]entry
	next    Handle
}

// NewScheduler creates a scheduler playing 16-bit PCM at the given rate.
func NewScheduler(sink Sink, sampleRate, channels int) *Scheduler {
	return &Scheduler{
		sink:       sink,
		sampleRate: sampleRate,
		channels:   channels,
		now:        time.Now,
		tracked:    make(map[Handle]entry),
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Enqueue decodes a base64 PCM fragment and schedules it to start
// immediately after the previously scheduled buffer ends, or now if the
// cursor has fallen behind. Returns the buffer handle.
func (s *Scheduler) Enqueue(fragment string) (Handle, error) {
	if fragment == "" {
		return 0, ErrEmptyFragment
	}
	pcm, err := base64.StdEncoding.DecodeString(fragment)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadEncoding, err)
	}
	return s.EnqueuePCM(pcm)
}

// EnqueuePCM schedules an already-decoded 16-bit little-endian PCM buffer.
func (s *Scheduler) EnqueuePCM(pcm []byte) (Handle, error) {
	if len(pcm) == 0 {
		return 0, ErrEmptyFragment
	}
	if len(pcm)%2 != 0 {
		return 0, ErrOddLength
	}

	s.mu.Lock()
	now := s.now()
	start := s.cursor
	if start.Before(now) {
		start = now
	}
	dur := s.duration(len(pcm))

	s.next++
	h := s.next
	s.tracked[h] = entry{start: start, end: start.Add(dur)}
	s.cursor = start.Add(dur)
	delay := start.Sub(now)
	s.mu.Unlock()

	s.sink.Start(h, pcm, delay)
	return h, nil
}

// Finished removes a buffer from the tracked set after it played to the end.
// Unknown handles (already flushed) are ignored.
func (s *Scheduler) Finished(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, h)
}

// Flush force-stops every tracked buffer and resets the cursor to zero, so
// the next fragment starts as soon as it arrives. Returns the number of
// buffers stopped.
func (s *Scheduler) Flush() int {
	s.mu.Lock()
	handles := make([]Handle, 0, len(s.tracked))
	for h := range s.tracked {
		handles = append(handles, h)
	}
	s.tracked = make(map[Handle]entry)
	s.cursor = time.Time{}
	s.mu.Unlock()

	for _, h := range handles {
		s.sink.Stop(h)
	}
	return len(handles)
}

// Tracked returns the number of buffers currently tracked.
func (s *Scheduler) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked)
}

// Cursor returns the next scheduled start time. The zero time means the
// next buffer starts immediately.
func (s *Scheduler) Cursor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

func (s *Scheduler) duration(pcmBytes int) time.Duration {
	bytesPerSecond := s.sampleRate * s.channels * 2
	return time.Duration(pcmBytes) * time.Second / time.Duration(bytesPerSecond)
}
