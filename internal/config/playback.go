package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// PlaybackConfig controls per-guild queue limits and idle disconnects.
type PlaybackConfig struct {
	// MaxQueueLength caps the number of pending items per guild; requests
	// beyond the cap are rejected, not silently dropped.
	MaxQueueLength int `env:"PLAYBACK_MAX_QUEUE, default=16"`

	// IdleWindow is how long a guild may sit idle in a voice channel
	// before the bot disconnects on its own.
	IdleWindow time.Duration `env:"PLAYBACK_IDLE_WINDOW, default=5m"`
}

func NewPlaybackConfigFromEnv() (*PlaybackConfig, error) {
	var cfg PlaybackConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.MaxQueueLength < 1 {
		return nil, fmt.Errorf("PLAYBACK_MAX_QUEUE must be at least 1, got %d", cfg.MaxQueueLength)
	}
	if cfg.IdleWindow <= 0 {
		return nil, fmt.Errorf("PLAYBACK_IDLE_WINDOW must be positive, got %s", cfg.IdleWindow)
	}

	return &cfg, nil
}
