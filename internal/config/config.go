// Package config loads client configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Configuration holds all client configuration, grouped by concern.
type Configuration struct {
	Service       ServiceConfig
	Audio         AudioConfig
	Remote        RemoteConfig
	Practice      PracticeConfig
	Export        ExportConfig
	UI            UIConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal string // identity stamped on exported events
	AutoStart bool   // start a session immediately on launch
}

// AudioConfig holds capture and playback parameters.
// Sample rates are dictated by the remote service: 16 kHz mono PCM16LE in,
// 24 kHz mono PCM16LE out.
type AudioConfig struct {
	CaptureSampleRate  int
	PlaybackSampleRate int
	Channels           int
	FrameSamples       int // microphone frame size in samples
}

// RemoteConfig holds remote session settings.
type RemoteConfig struct {
	Model          string
	Endpoint       string // websocket endpoint; empty means the default
	ConnectTimeout time.Duration
}

// PracticeConfig holds conversation practice settings.
type PracticeConfig struct {
	Persona string
	Level   string
	Topic   string
}

// ExportConfig holds Kafka transcript export configuration.
type ExportConfig struct {
	Enabled      bool
	Brokers      []string
	TopicPartial string
	TopicFinal   string
	Principal    string
}

// UIConfig holds the local UI server configuration.
type UIConfig struct {
	Addr string
}

// ObservabilityConfig holds logging and metrics configuration.
type ObservabilityConfig struct {
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

const defaultPersona = "You are a friendly and patient conversation partner helping a student practice spoken English. Keep replies short and natural, ask follow-up questions, and gently correct mistakes."

// Load reads configuration from the environment, falling back to defaults
// for anything unset or unparsable.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "voice-practice-client")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
			AutoStart: envOrDefaultBool("AUTO_START", false),
		},
		Audio: AudioConfig{
			CaptureSampleRate:  envOrDefaultInt("AUDIO_CAPTURE_SAMPLE_RATE_HZ", 16000),
			PlaybackSampleRate: envOrDefaultInt("AUDIO_PLAYBACK_SAMPLE_RATE_HZ", 24000),
			Channels:           envOrDefaultInt("AUDIO_CHANNELS", 1),
			FrameSamples:       envOrDefaultInt("AUDIO_FRAME_SAMPLES", 2048),
		},
		Remote: RemoteConfig{
			Model:          envOrDefault("REMOTE_MODEL", "models/gemini-2.0-flash-live-001"),
			Endpoint:       envOrDefault("REMOTE_ENDPOINT", ""),
			ConnectTimeout: envOrDefaultDuration("REMOTE_CONNECT_TIMEOUT", 15*time.Second),
		},
		Practice: PracticeConfig{
			Persona: envOrDefault("PRACTICE_PERSONA", defaultPersona),
			Level:   envOrDefault("PRACTICE_LEVEL", "beginner"),
			Topic:   envOrDefault("PRACTICE_TOPIC", "daily life"),
		},
		Export: ExportConfig{
			Enabled:      envOrDefaultBool("EXPORT_ENABLED", false),
			Brokers:      envOrDefaultList("EXPORT_BROKERS", nil),
			TopicPartial: envOrDefault("EXPORT_TOPIC_PARTIAL", "practice.transcript.partial"),
			TopicFinal:   envOrDefault("EXPORT_TOPIC_FINAL", "practice.transcript.final"),
			Principal:    envOrDefault("EXPORT_PRINCIPAL", principal),
		},
		UI: UIConfig{
			Addr: envOrDefault("UI_ADDR", ":8080"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			LogFormat:   envOrDefault("LOG_FORMAT", "json"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
