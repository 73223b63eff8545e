package playback

import (
	"errors"
	"fmt"
)

// ErrClosed indicates the manager has been shut down and accepts no
// further items.
var ErrClosed = errors.New("playback manager is shut down")

// QueueFullError is returned synchronously when a queue-mode item
// would push a guild's pending queue past its limit.
type QueueFullError struct {
	GuildID string
	Limit   int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("playback queue for guild %s is full (limit %d)", e.GuildID, e.Limit)
}

var _ error = (*QueueFullError)(nil)
