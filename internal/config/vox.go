package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// VoxConfig controls the word-clip library and concatenation defaults.
type VoxConfig struct {
	// ClipRoot is the directory scanned for clip groups; each subdirectory
	// is one group of word-named audio files (e.g. vox/hello.wav).
	ClipRoot string `env:"VOX_CLIP_ROOT, required"`

	// DefaultGroup is the clip group used when a request names none.
	DefaultGroup string `env:"VOX_DEFAULT_GROUP, default=vox"`

	// DefaultGapMS is the silence inserted between words when the request
	// does not specify a gap.
	DefaultGapMS int `env:"VOX_DEFAULT_GAP_MS, default=60"`

	// MaxGapMS bounds the per-request gap.
	MaxGapMS int `env:"VOX_MAX_GAP_MS, default=2000"`
}

func NewVoxConfigFromEnv() (*VoxConfig, error) {
	var cfg VoxConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, err
	}
	if cfg.DefaultGapMS < 0 || cfg.DefaultGapMS > cfg.MaxGapMS {
		return nil, fmt.Errorf("VOX_DEFAULT_GAP_MS must be in [0, %d], got %d", cfg.MaxGapMS, cfg.DefaultGapMS)
	}

	return &cfg, nil
}
