package playback

import (
	"time"

	"github.com/cpike5/discordbot-sub011/internal/audio"
)

// Mode selects how an item enters a guild's queue.
type Mode int

const (
	// ModeQueue appends the item to the tail of the queue.
	ModeQueue Mode = iota
	// ModeReplace discards all pending items, preempts the one
	// currently streaming and plays this item instead.
	ModeReplace
)

func (m Mode) String() string {
	switch m {
	case ModeQueue:
		return "queue"
	case ModeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// SoundSource plays a sound from the guild's library.
type SoundSource struct {
	SoundID string
}

// VoxSource plays a synthesized word-clip announcement.
type VoxSource struct {
	Group   string
	Message string
	// Gap is the inter-word silence. Negative selects the configured
	// default.
	Gap time.Duration
}

// Item is one playback request. Exactly one of Sound and Vox is set.
// Items are immutable once enqueued.
type Item struct {
	ID          string
	GuildID     string
	ChannelID   string
	RequesterID string
	Mode        Mode
	Sound       *SoundSource
	Vox         *VoxSource
	// Filter overrides the sound's default filter spec when non-zero.
	// It has no effect on vox items.
	Filter     audio.FilterSpec
	EnqueuedAt time.Time
}
