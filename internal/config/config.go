package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration for the meetscribe client.
type Config struct {
	Server ServerConfig
	Audio  AudioConfig
	Relay  RelayConfig
}

type ServerConfig struct {
	BaseURL        string
	SocketURL      string
	RequestTimeout time.Duration
}

type AudioConfig struct {
	RecorderCommand     string
	InputFormat         string
	MicrophoneDevice    string
	ScreenMonitorDevice string
	SampleRate          int
	Channels            int
	MicChunkInterval    time.Duration
	ScreenChunkInterval time.Duration
}

type RelayConfig struct {
	QueueSize int
	Language  string
}

// Load resolves configuration from an optional .env file, environment
// variables, and sensible defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Server: ServerConfig{
			BaseURL:        envOrDefault("MEETSCRIBE_SERVER_URL", "http://localhost:5000"),
			SocketURL:      strings.TrimSpace(os.Getenv("MEETSCRIBE_SOCKET_URL")),
			RequestTimeout: time.Duration(envOrDefaultInt("MEETSCRIBE_REQUEST_TIMEOUT_S", 600)) * time.Second,
		},
		Audio: AudioConfig{
			RecorderCommand:     envOrDefault("MEETSCRIBE_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:         envOrDefault("MEETSCRIBE_AUDIO_INPUT_FORMAT", "pulse"),
			MicrophoneDevice:    envOrDefault("MEETSCRIBE_MIC_DEVICE", "default"),
			ScreenMonitorDevice: strings.TrimSpace(os.Getenv("MEETSCRIBE_SCREEN_MONITOR_DEVICE")),
			SampleRate:          envOrDefaultInt("MEETSCRIBE_SAMPLE_RATE", 16000),
			Channels:            envOrDefaultInt("MEETSCRIBE_CHANNELS", 1),
			MicChunkInterval:    time.Duration(envOrDefaultInt("MEETSCRIBE_MIC_CHUNK_MS", 2000)) * time.Millisecond,
			ScreenChunkInterval: time.Duration(envOrDefaultInt("MEETSCRIBE_SCREEN_CHUNK_MS", 1000)) * time.Millisecond,
		},
		Relay: RelayConfig{
			QueueSize: envOrDefaultInt("MEETSCRIBE_RELAY_QUEUE", 32),
			Language:  envOrDefault("MEETSCRIBE_DEFAULT_LANGUAGE", "vi"),
		},
	}

	if cfg.Server.SocketURL == "" {
		cfg.Server.SocketURL = deriveSocketURL(cfg.Server.BaseURL)
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.MicChunkInterval <= 0 {
		cfg.Audio.MicChunkInterval = 2 * time.Second
	}
	if cfg.Audio.ScreenChunkInterval <= 0 {
		cfg.Audio.ScreenChunkInterval = time.Second
	}
	if cfg.Relay.QueueSize <= 0 {
		cfg.Relay.QueueSize = 32
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 600 * time.Second
	}

	return cfg, nil
}

func deriveSocketURL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws"
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
