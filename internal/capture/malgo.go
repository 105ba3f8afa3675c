package capture

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoSource captures microphone audio with miniaudio (malgo) and slices
// it into fixed-size frames.
type MalgoSource struct {
	cfg Config

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	framer  *Framer
	started bool
	closed  bool
}

// NewMalgoSource is a Factory for real microphone capture.
func NewMalgoSource(cfg Config) (Source, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: init audio context: %v", ErrDeviceDenied, err)
	}
	return &MalgoSource{
		cfg:    cfg,
		ctx:    ctx,
		framer: NewFramer(cfg.FrameSamples),
	}, nil
}

// Start opens the capture device and begins delivering frames.
func (s *MalgoSource) Start(onFrame func([]byte), onError func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("capture source is closed")
	}
	if s.started {
		return fmt.Errorf("capture source already started")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(s.cfg.Channels)
	deviceConfig.SampleRate = uint32(s.cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			var frames [][]byte
			s.framer.Push(input, func(frame []byte) {
				frames = append(frames, frame)
			})
			s.mu.Unlock()

			for _, f := range frames {
				onFrame(f)
			}
		},
		Stop: func() {
			s.mu.Lock()
			stopped := s.closed
			s.mu.Unlock()
			if !stopped {
				onError(fmt.Errorf("capture device stopped unexpectedly"))
			}
		},
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("%w: init capture device: %v", ErrDeviceDenied, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("%w: start capture device: %v", ErrDeviceDenied, err)
	}

	s.device = device
	s.started = true
	return nil
}

// Close stops capture and releases the device and context. Idempotent.
func (s *MalgoSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	device := s.device
	s.device = nil
	ctx := s.ctx
	s.ctx = nil
	s.framer.Reset()
	s.mu.Unlock()

	if device != nil {
		_ = device.Stop()
		device.Uninit()
	}
	if ctx != nil {
		_ = ctx.Uninit()
		ctx.Free()
	}
	return nil
}
