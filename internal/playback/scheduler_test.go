package playback

import (
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingSink implements Sink and records every start/stop.
type recordingSink struct {
	mu      sync.Mutex
	starts  []sinkStart
	stopped []Handle
}

type sinkStart struct {
	h     Handle
	bytes int
	delay time.Duration
}

func (r *recordingSink) Start(h Handle, pcm []byte, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, sinkStart{h: h, bytes: len(pcm), delay: delay})
}

func (r *recordingSink) Stop(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, h)
}

// pcmFragment returns a base64 fragment of n 16-bit samples.
func pcmFragment(n int) string {
	return base64.StdEncoding.EncodeToString(make([]byte, n*2))
}

func newTestScheduler(sink Sink) (*Scheduler, time.Time) {
	s := NewScheduler(sink, 24000, 1)
	base := time.Unix(1000, 0)
	s.SetClock(func() time.Time { return base })
	return s, base
}

func TestScheduler_SequentialNoOverlap(t *testing.T) {
	sink := &recordingSink{}
	s, base := newTestScheduler(sink)

	// 24000 samples = exactly one second at 24 kHz.
	if _, err := s.Enqueue(pcmFragment(24000)); err != nil {
		t.Fatalf("enqueue 1: %v", err)
	}
	if _, err := s.Enqueue(pcmFragment(12000)); err != nil {
		t.Fatalf("enqueue 2: %v", err)
	}
	if _, err := s.Enqueue(pcmFragment(6000)); err != nil {
		t.Fatalf("enqueue 3: %v", err)
	}

	if len(sink.starts) != 3 {
		t.Fatalf("expected 3 starts, got %d", len(sink.starts))
	}
	wantDelays := []time.Duration{0, time.Second, 1500 * time.Millisecond}
	for i, want := range wantDelays {
		if sink.starts[i].delay != want {
			t.Errorf("buffer %d: expected delay %v, got %v", i, want, sink.starts[i].delay)
		}
	}

	wantCursor := base.Add(1750 * time.Millisecond)
	if !s.Cursor().Equal(wantCursor) {
		t.Errorf("expected cursor %v, got %v", wantCursor, s.Cursor())
	}
}

func TestScheduler_CursorNeverBehindNow(t *testing.T) {
	sink := &recordingSink{}
	s := NewScheduler(sink, 24000, 1)

	now := time.Unix(1000, 0)
	s.SetClock(func() time.Time { return now })

	if _, err := s.Enqueue(pcmFragment(2400)); err != nil { // 100ms
		t.Fatalf("enqueue: %v", err)
	}

	// The first buffer finished long ago; the next must start now, not at
	// the stale cursor.
	now = now.Add(10 * time.Second)
	if _, err := s.Enqueue(pcmFragment(2400)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if sink.starts[1].delay != 0 {
		t.Errorf("expected second buffer to start immediately, got delay %v", sink.starts[1].delay)
	}
	if got, want := s.Cursor(), now.Add(100*time.Millisecond); !got.Equal(want) {
		t.Errorf("expected cursor %v, got %v", want, got)
	}
}

func TestScheduler_InterruptionFlushesEverything(t *testing.T) {
	sink := &recordingSink{}
	s, _ := newTestScheduler(sink)

	for i := 0; i < 3; i++ {
		if _, err := s.Enqueue(pcmFragment(2400)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if s.Tracked() != 3 {
		t.Fatalf("expected 3 tracked buffers, got %d", s.Tracked())
	}

	stopped := s.Flush()

	if stopped != 3 {
		t.Errorf("expected 3 buffers stopped, got %d", stopped)
	}
	if s.Tracked() != 0 {
		t.Errorf("expected empty tracked set, got %d", s.Tracked())
	}
	if !s.Cursor().IsZero() {
		t.Errorf("expected cursor reset to zero, got %v", s.Cursor())
	}
	if len(sink.stopped) != 3 {
		t.Errorf("expected 3 sink stops, got %d", len(sink.stopped))
	}
}

func TestScheduler_FragmentAfterFlushStartsNow(t *testing.T) {
	sink := &recordingSink{}
	s, _ := newTestScheduler(sink)

	// Build up a cursor well in the future, then interrupt.
	for i := 0; i < 5; i++ {
		if _, err := s.Enqueue(pcmFragment(24000)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	s.Flush()

	if _, err := s.Enqueue(pcmFragment(2400)); err != nil {
		t.Fatalf("enqueue after flush: %v", err)
	}

	last := sink.starts[len(sink.starts)-1]
	if last.delay != 0 {
		t.Errorf("expected post-interruption buffer to start now, got delay %v", last.delay)
	}
}

func TestScheduler_FinishedRemovesFromTrackedSet(t *testing.T) {
	sink := &recordingSink{}
	s, _ := newTestScheduler(sink)

	h, err := s.Enqueue(pcmFragment(2400))
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if s.Tracked() != 1 {
		t.Fatalf("expected 1 tracked, got %d", s.Tracked())
	}

	s.Finished(h)
	if s.Tracked() != 0 {
		t.Errorf("expected 0 tracked after finish, got %d", s.Tracked())
	}

	// Finished on a flushed/unknown handle is a no-op.
	s.Finished(h)
	s.Finished(Handle(999))
}

func TestScheduler_FinishedDoesNotResetCursor(t *testing.T) {
	sink := &recordingSink{}
	s, base := newTestScheduler(sink)

	h, _ := s.Enqueue(pcmFragment(24000))
	s.Finished(h)

	if got, want := s.Cursor(), base.Add(time.Second); !got.Equal(want) {
		t.Errorf("expected cursor %v after normal completion, got %v", want, got)
	}
}

func TestScheduler_DecodeErrors(t *testing.T) {
	sink := &recordingSink{}
	s, _ := newTestScheduler(sink)

	tests := []struct {
		name     string
		fragment string
		wantErr  error
	}{
		{"empty", "", ErrEmptyFragment},
		{"not base64", "!!!not-base64!!!", ErrBadEncoding},
		{"odd length", base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), ErrOddLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Enqueue(tt.fragment)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// Dropped fragments must not disturb the schedule.
	if len(sink.starts) != 0 {
		t.Errorf("expected no starts for dropped fragments, got %d", len(sink.starts))
	}
	if s.Tracked() != 0 {
		t.Errorf("expected nothing tracked, got %d", s.Tracked())
	}
	if !s.Cursor().IsZero() {
		t.Errorf("expected untouched cursor, got %v", s.Cursor())
	}

	// And a good fragment still plays afterwards.
	if _, err := s.Enqueue(pcmFragment(2400)); err != nil {
		t.Fatalf("enqueue after drops: %v", err)
	}
	if len(sink.starts) != 1 {
		t.Errorf("expected 1 start, got %d", len(sink.starts))
	}
}
