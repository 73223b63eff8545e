package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// AudioConfig controls the processed-audio cache and the FFmpeg invocation.
type AudioConfig struct {
	// CacheCapacityBytes bounds the in-memory tier of the audio cache.
	CacheCapacityBytes int64 `env:"AUDIO_CACHE_CAPACITY_BYTES, default=67108864"`

	// DiskCachePath is the directory for the on-disk cache tier.
	// Leaving it empty disables the disk tier entirely.
	DiskCachePath string `env:"AUDIO_DISK_CACHE_PATH"`

	// SpoolDir holds raw sound files fetched from blob storage.
	SpoolDir string `env:"AUDIO_SPOOL_DIR, default=spool"`

	FFmpegPath    string        `env:"AUDIO_FFMPEG_PATH, default=ffmpeg"`
	FFmpegTimeout time.Duration `env:"AUDIO_FFMPEG_TIMEOUT, default=30s"`
}

func NewAudioConfigFromEnv() (*AudioConfig, error) {
	var cfg AudioConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.CacheCapacityBytes <= 0 {
		return nil, fmt.Errorf("AUDIO_CACHE_CAPACITY_BYTES must be positive, got %d", cfg.CacheCapacityBytes)
	}
	if cfg.FFmpegTimeout <= 0 {
		return nil, fmt.Errorf("AUDIO_FFMPEG_TIMEOUT must be positive, got %s", cfg.FFmpegTimeout)
	}

	return &cfg, nil
}
