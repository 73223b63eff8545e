// Package announce moves scheduled announcement jobs between the
// scheduler and the bot over a Redis stream. The scheduler publishes
// each due run as a stream entry; the bot consumes them through a
// consumer group so restarts do not drop or replay jobs.
package announce

import (
	"time"
)

const (
	// Stream is the Redis stream that carries announcement jobs.
	Stream = "announcement_jobs"

	// ConsumerGroup is the group the bot reads jobs through.
	ConsumerGroup = "announcement_players"
)

// Job is a single scheduled playback of an announcement sound.
type Job struct {
	AnnouncementID string
	GuildID        string
	SoundID        string
	SoundName      string

	// TargetChannelID is the voice channel to play in. Empty means the
	// consumer picks the busiest channel at run time.
	TargetChannelID string

	RunAt time.Time
}
