package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-practice-client/internal/capture"
	"voice-practice-client/internal/config"
	"voice-practice-client/internal/credential"
	"voice-practice-client/internal/events"
	"voice-practice-client/internal/models"
	"voice-practice-client/internal/observability/logging"
	"voice-practice-client/internal/observability/metrics"
	"voice-practice-client/internal/playback"
	"voice-practice-client/internal/remote"
	"voice-practice-client/internal/turns"
)

// Notifier receives UI-facing updates from the controller. Implementations
// must not block; updates arrive on session goroutines.
type Notifier interface {
	NotifyState(s State)
	NotifyPartial(speaker models.Speaker, text string)
	NotifyMessages(msgs []models.ChatMessage)
	NotifyStatus(text string)
}

type noopNotifier struct{}

func (noopNotifier) NotifyState(State)                    {}
func (noopNotifier) NotifyPartial(models.Speaker, string) {}
func (noopNotifier) NotifyMessages([]models.ChatMessage)  {}
func (noopNotifier) NotifyStatus(string)                  {}

// Controller drives the session lifecycle: Idle → Connecting → Active →
// Stopping → Idle. All remote callbacks carry the session ID they were
// created for; callbacks from a session that is no longer current are
// discarded.
type Controller struct {
	cfg        *config.Configuration
	creds      credential.Store
	dialer     remote.Dialer
	captureFac capture.Factory
	scheduler  *playback.Scheduler
	exporter   *events.Exporter
	notifier   Notifier
	metrics    *metrics.Metrics

	agg *turns.Aggregator
	log *turns.Log

	// lifecycleMu serializes Start, Stop and remote-close teardown: a start
	// racing an in-flight stop waits for teardown to finish instead of
	// having its Connecting state reset to Idle. c.mu only guards fields.
	lifecycleMu sync.Mutex

	mu           sync.Mutex
	state        State
	sessionID    string
	conn         remote.Conn
	source       capture.Source
	turnSeq      uint64
	level        string
	topic        string
	startedAt    time.Time
	connectStart time.Time
}

// NewController creates an idle session controller.
func NewController(
	cfg *config.Configuration,
	creds credential.Store,
	dialer remote.Dialer,
	captureFac capture.Factory,
	scheduler *playback.Scheduler,
	exporter *events.Exporter,
	notifier Notifier,
) *Controller {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Controller{
		cfg:        cfg,
		creds:      creds,
		dialer:     dialer,
		captureFac: captureFac,
		scheduler:  scheduler,
		exporter:   exporter,
		notifier:   notifier,
		metrics:    metrics.DefaultMetrics,
		agg:        turns.NewAggregator(),
		log:        turns.NewLog(),
		level:      cfg.Practice.Level,
		topic:      cfg.Practice.Topic,
	}
}

// SetNotifier replaces the UI notifier. Must be called before Start.
func (c *Controller) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	c.notifier = n
}

// Start begins a new practice session. A session already in progress is
// stopped first. Without a stored credential it returns ErrCredentialMissing
// and asks the user for one.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	// Run the full stop sequence first; a no-op when already idle.
	c.stopLocked()

	c.mu.Lock()
	cred, err := c.creds.Load()
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, credential.ErrNotFound) {
			c.notifier.NotifyStatus("Enter your API credential to start practicing.")
			return ErrCredentialMissing
		}
		return err
	}

	id := uuid.NewString()
	c.sessionID = id
	c.state = StateConnecting
	c.turnSeq = 0
	c.startedAt = time.Now()
	c.connectStart = time.Now()
	level, topic := c.level, c.topic
	c.mu.Unlock()

	c.metrics.RecordSessionStart()
	c.notifier.NotifyState(StateConnecting)

	logger := logging.WithSession(id)
	logger.Info().
		Str("model", c.cfg.Remote.Model).
		Str("level", level).
		Str("topic", topic).
		Msg("Starting practice session")

	sessionCfg := remote.SessionConfig{
		Model:             c.cfg.Remote.Model,
		SystemInstruction: SystemInstruction(c.cfg.Practice.Persona, level, topic),
		TranscribeInput:   true,
		TranscribeOutput:  true,
		InputSampleRate:   c.cfg.Audio.CaptureSampleRate,
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Remote.ConnectTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(dialCtx, cred, sessionCfg, &sessionHandler{c: c, id: id})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect")
		if errors.Is(err, remote.ErrCredentialRejected) {
			if delErr := c.creds.Delete(); delErr != nil {
				logger.Warn().Err(delErr).Msg("Failed to discard rejected credential")
			}
			c.abortStart(id, FailureCredentialInvalid,
				"The service rejected your credential. Please enter it again.")
		} else {
			c.abortStart(id, FailureConnection,
				"Could not connect to the practice service.")
		}
		return err
	}

	// Store the connection before capture starts so no frame is dropped.
	c.mu.Lock()
	if c.sessionID != id {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	c.mu.Unlock()

	source, err := c.openCapture(id)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open microphone")
		c.abortStart(id, FailurePermissionDenied,
			"Microphone unavailable. Check your input device and permissions.")
		return err
	}

	c.mu.Lock()
	if c.sessionID != id {
		c.mu.Unlock()
		_ = source.Close()
		return nil
	}
	c.source = source
	c.mu.Unlock()

	return nil
}

func (c *Controller) openCapture(id string) (capture.Source, error) {
	source, err := c.captureFac(capture.Config{
		SampleRate:   c.cfg.Audio.CaptureSampleRate,
		Channels:     c.cfg.Audio.Channels,
		FrameSamples: c.cfg.Audio.FrameSamples,
	})
	if err != nil {
		return nil, err
	}
	err = source.Start(
		func(frame []byte) { c.sendFrame(id, frame) },
		func(err error) { c.captureFailed(id, err) },
	)
	if err != nil {
		_ = source.Close()
		return nil, err
	}
	return source, nil
}

// Stop ends the current session. Idempotent; stopping an idle controller is
// a no-op.
func (c *Controller) Stop() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.stopLocked()
}

func (c *Controller) stopLocked() {
	c.mu.Lock()
	if c.state == StateIdle || c.state == StateStopping {
		c.mu.Unlock()
		return
	}
	id := c.sessionID
	conn, source := c.conn, c.source
	started := c.startedAt
	c.conn, c.source = nil, nil
	c.sessionID = ""
	c.state = StateStopping
	c.mu.Unlock()

	c.notifier.NotifyState(StateStopping)
	c.teardown(id, conn, source, started, "Session stopped")
}

// teardown releases session resources and returns the controller to Idle.
func (c *Controller) teardown(id string, conn remote.Conn, source capture.Source, started time.Time, msg string) {
	if source != nil {
		_ = source.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
	flushed := c.scheduler.Flush()
	c.agg.Reset()
	c.metrics.SetBuffersActive(0)
	c.metrics.RecordSessionEnd(time.Since(started).Seconds())

	logger := logging.WithSession(id)
	logger.Info().
		Int("buffersFlushed", flushed).
		Dur("duration", time.Since(started)).
		Msg(msg)

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.notifier.NotifyState(StateIdle)
}

// abortStart unwinds a session that failed before becoming active.
func (c *Controller) abortStart(id, kind, status string) {
	c.mu.Lock()
	if c.sessionID != id {
		c.mu.Unlock()
		return
	}
	conn, source := c.conn, c.source
	started := c.startedAt
	c.conn, c.source = nil, nil
	c.sessionID = ""
	c.state = StateStopping
	c.mu.Unlock()

	c.metrics.RecordSessionFailure(kind)
	c.notifier.NotifyStatus(status)
	c.teardown(id, conn, source, started, "Session aborted")
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the current session's identifier, or "" when idle.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns the finalized transcript log.
func (c *Controller) Messages() []models.ChatMessage {
	return c.log.Messages()
}

// SaveCredential stores a credential for future sessions.
func (c *Controller) SaveCredential(value string) error {
	if err := c.creds.Save(value); err != nil {
		return err
	}
	c.notifier.NotifyStatus("Credential saved. You can start practicing.")
	return nil
}

// SetLevel changes the practice level. Takes effect on the next session.
func (c *Controller) SetLevel(level string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
}

// SetTopic changes the practice topic. Takes effect on the next session.
func (c *Controller) SetTopic(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topic = topic
}

// Level returns the current practice level.
func (c *Controller) Level() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Topic returns the current practice topic.
func (c *Controller) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

func (c *Controller) isCurrent(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID == id
}

// sendFrame forwards one microphone frame to the remote connection.
func (c *Controller) sendFrame(id string, frame []byte) {
	c.mu.Lock()
	conn := c.conn
	current := c.sessionID == id
	c.mu.Unlock()

	if !current || conn == nil {
		return
	}
	if err := conn.SendAudio(context.Background(), frame); err != nil {
		logger := logging.WithSession(id)
		logger.Warn().Err(err).Msg("Failed to send audio frame")
		return
	}
	c.metrics.RecordFrameSent(len(frame))
}

// captureFailed handles an unexpected microphone failure mid-session.
func (c *Controller) captureFailed(id string, err error) {
	if !c.isCurrent(id) {
		return
	}
	logger := logging.WithSession(id)
	logger.Error().Err(err).Msg("Microphone capture failed")
	c.metrics.RecordSessionFailure(FailureCapture)
	c.notifier.NotifyStatus("Microphone failure ended the session.")
	c.Stop()
}

// sessionHandler binds remote callbacks to the session they were created
// for, so events from a superseded connection cannot leak into a new one.
type sessionHandler struct {
	c  *Controller
	id string
}

func (h *sessionHandler) OnOpen()                       { h.c.handleOpen(h.id) }
func (h *sessionHandler) OnEvent(ev remote.ServerEvent) { h.c.handleEvent(h.id, ev) }
func (h *sessionHandler) OnError(err error)             { h.c.handleError(h.id, err) }
func (h *sessionHandler) OnClose()                      { h.c.handleClose(h.id) }

func (c *Controller) handleOpen(id string) {
	c.mu.Lock()
	if c.sessionID != id || c.state != StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateActive
	connectStart := c.connectStart
	c.mu.Unlock()

	c.metrics.RecordConnect(time.Since(connectStart).Seconds())
	logger := logging.WithSession(id)
	logger.Info().Msg("Session active")
	c.notifier.NotifyState(StateActive)
}

func (c *Controller) handleEvent(id string, ev remote.ServerEvent) {
	if !c.isCurrent(id) {
		return
	}

	if ev.InputTranscript != "" {
		c.addPartial(id, models.SpeakerUser, ev.InputTranscript)
	}
	if ev.OutputTranscript != "" {
		c.addPartial(id, models.SpeakerAssistant, ev.OutputTranscript)
	}

	for _, frag := range ev.Audio {
		if _, err := c.scheduler.Enqueue(frag); err != nil {
			c.metrics.RecordDecodeError()
			logger := logging.WithSession(id)
			logger.Warn().Err(err).Msg("Dropped undecodable audio fragment")
			continue
		}
		c.metrics.RecordFragmentScheduled()
	}
	if len(ev.Audio) > 0 {
		c.metrics.SetBuffersActive(c.scheduler.Tracked())
	}

	if ev.Interrupted {
		c.handleInterruption(id)
	}
	if ev.TurnComplete {
		c.completeTurn(id)
	}
}

// addPartial accumulates a transcript fragment and surfaces the speaker's
// growing partial text.
func (c *Controller) addPartial(id string, speaker models.Speaker, text string) {
	partial := c.agg.AddFragment(speaker, text)
	if partial == "" {
		return
	}
	c.metrics.RecordPartialTranscript(string(speaker))
	c.notifier.NotifyPartial(speaker, partial)

	ev := models.TranscriptPartial{
		EventType: events.EventTypePartial,
		SessionID: id,
		Speaker:   speaker,
		Text:      partial,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := c.exporter.PublishPartial(context.Background(), ev); err != nil {
		logger := logging.WithSession(id)
		logger.Warn().Err(err).Msg("Failed to export partial transcript")
	}
}

// handleInterruption force-stops all pending playback so the assistant goes
// quiet immediately.
func (c *Controller) handleInterruption(id string) {
	flushed := c.scheduler.Flush()
	c.metrics.RecordInterruption()
	c.metrics.SetBuffersActive(0)
	logger := logging.WithSession(id)
	logger.Info().Int("buffersFlushed", flushed).Msg("Assistant interrupted")
}

// completeTurn finalizes the accumulated partials into chat messages and
// exports them.
func (c *Controller) completeTurn(id string) {
	msgs := c.agg.CompleteTurn()

	c.mu.Lock()
	c.turnSeq++
	seq := c.turnSeq
	c.mu.Unlock()

	c.log.Append(msgs...)

	speakers := make([]string, 0, len(msgs))
	for _, m := range msgs {
		speakers = append(speakers, string(m.Speaker))
	}
	c.metrics.RecordTurnComplete(speakers)

	logger := logging.WithTurn(id, seq)
	logger.Info().Int("messages", len(msgs)).Msg("Turn completed")

	if len(msgs) == 0 {
		return
	}
	c.notifier.NotifyMessages(msgs)

	now := time.Now().UnixMilli()
	for _, m := range msgs {
		ev := models.TranscriptFinal{
			EventType: events.EventTypeFinal,
			SessionID: id,
			Speaker:   m.Speaker,
			Text:      m.Text,
			TurnSeq:   seq,
			Timestamp: now,
		}
		if err := c.exporter.PublishFinal(context.Background(), ev); err != nil {
			logger.Warn().Err(err).Msg("Failed to export final transcript")
		}
	}
}

// handleError classifies an unrecoverable connection error. Teardown
// follows in handleClose.
func (c *Controller) handleError(id string, err error) {
	if !c.isCurrent(id) {
		return
	}
	logger := logging.WithSession(id)
	kind := FailureConnection
	status := "Connection to the practice service was lost."
	if errors.Is(err, remote.ErrCredentialRejected) {
		kind = FailureCredentialInvalid
		status = "The service rejected your credential. Please enter it again."
		if delErr := c.creds.Delete(); delErr != nil {
			logger.Warn().Err(delErr).Msg("Failed to discard rejected credential")
		}
	}
	c.metrics.RecordSessionFailure(kind)
	logger.Error().Err(err).Str("kind", kind).Msg("Session failed")
	c.notifier.NotifyStatus(status)
}

// handleClose tears down a session ended from the remote side. The stale-id
// check runs before taking lifecycleMu: closes triggered by our own teardown
// (the session id is already cleared) must not wait on the lifecycle lock.
func (c *Controller) handleClose(id string) {
	if !c.isCurrent(id) {
		return
	}
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.mu.Lock()
	if c.sessionID != id {
		c.mu.Unlock()
		return
	}
	conn, source := c.conn, c.source
	started := c.startedAt
	c.conn, c.source = nil, nil
	c.sessionID = ""
	c.state = StateStopping
	c.mu.Unlock()

	c.teardown(id, conn, source, started, "Session closed by remote")
}
