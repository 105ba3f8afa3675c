// devsession runs a full practice session against the scripted mock
// service, with no microphone, speakers or credential required. Useful for
// exercising the session pipeline end to end during development.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"voice-practice-client/internal/capture"
	"voice-practice-client/internal/config"
	"voice-practice-client/internal/credential"
	"voice-practice-client/internal/events"
	"voice-practice-client/internal/models"
	"voice-practice-client/internal/playback"
	"voice-practice-client/internal/remote/mock"
	"voice-practice-client/internal/session"
)

// WAV header is 44 bytes for standard PCM files.
const wavHeaderSize = 44

func main() {
	audioFile := flag.String("audio", "", "optional WAV file (16kHz 16-bit mono) to stream instead of silence")
	frameInterval := flag.Duration("interval", 100*time.Millisecond, "delay between simulated microphone frames")
	duration := flag.Duration("duration", 10*time.Second, "how long to run the session")
	flag.Parse()

	cfg := config.Load()

	var pcm []byte
	if *audioFile != "" {
		var err error
		pcm, err = readWAV(*audioFile, cfg.Audio.CaptureSampleRate)
		if err != nil {
			log.Fatalf("Failed to read audio file: %v", err)
		}
		log.Printf("Streaming %d bytes of PCM from %s", len(pcm), *audioFile)
	}

	factory := func(c capture.Config) (capture.Source, error) {
		return newFileSource(pcm, c, *frameInterval), nil
	}

	scheduler := playback.NewScheduler(discardSink{}, cfg.Audio.PlaybackSampleRate, cfg.Audio.Channels)
	controller := session.NewController(cfg,
		credential.NewMemoryStore("dev-credential"),
		mock.NewDialer(),
		factory,
		scheduler,
		events.New(&events.Config{Enabled: false}),
		&consoleNotifier{},
	)

	if err := controller.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-time.After(*duration):
	case <-sig:
	}

	controller.Stop()

	fmt.Println("\n--- transcript ---")
	for _, m := range controller.Messages() {
		fmt.Printf("%s: %s\n", m.Speaker, m.Text)
	}
}

// readWAV loads the PCM payload of a 16-bit mono WAV file.
func readWAV(path string, wantRate int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	sampleRate := int(binary.LittleEndian.Uint32(header[24:28]))
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	if audioFormat != 1 || bitsPerSample != 16 {
		return nil, fmt.Errorf("only 16-bit PCM supported")
	}
	if sampleRate != wantRate {
		log.Printf("Warning: sample rate is %d Hz, expected %d Hz", sampleRate, wantRate)
	}

	return io.ReadAll(f)
}

// fileSource replays PCM (or silence) as fixed-size microphone frames on a
// ticker, standing in for a real capture device.
type fileSource struct {
	pcm      []byte
	cfg      capture.Config
	interval time.Duration

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
}

func newFileSource(pcm []byte, cfg capture.Config, interval time.Duration) *fileSource {
	return &fileSource{
		pcm:      pcm,
		cfg:      cfg,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (s *fileSource) Start(onFrame func([]byte), onError func(error)) error {
	frameBytes := s.cfg.FrameSamples * s.cfg.Channels * 2
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		offset := 0
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				frame := make([]byte, frameBytes)
				if len(s.pcm) > 0 {
					// Loop over the file.
					for i := range frame {
						frame[i] = s.pcm[(offset+i)%len(s.pcm)]
					}
					offset = (offset + frameBytes) % len(s.pcm)
				}
				onFrame(frame)
			}
		}
	}()
	return nil
}

func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.stop)
	}
	return nil
}

// discardSink drops scheduled audio; devsession has no speakers.
type discardSink struct{}

func (discardSink) Start(playback.Handle, []byte, time.Duration) {}
func (discardSink) Stop(playback.Handle)                         {}

// consoleNotifier prints session updates to stdout.
type consoleNotifier struct{}

func (consoleNotifier) NotifyState(s session.State) {
	fmt.Printf("[state] %s\n", s)
}

func (consoleNotifier) NotifyPartial(speaker models.Speaker, text string) {
	fmt.Printf("[partial] %s: %s\n", speaker, text)
}

func (consoleNotifier) NotifyMessages(msgs []models.ChatMessage) {
	for _, m := range msgs {
		fmt.Printf("[final] %s: %s\n", m.Speaker, m.Text)
	}
}

func (consoleNotifier) NotifyStatus(text string) {
	fmt.Printf("[status] %s\n", text)
}
