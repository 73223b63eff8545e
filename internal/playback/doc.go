// Package playback runs per-guild playback queues.
//
// Each guild gets a lazily created session holding a FIFO queue and at
// most one drain goroutine, so a slow item for one guild never stalls
// another. Items are submitted in queue mode (append) or replace mode
// (discard pending, preempt the current stream). Failures resolving or
// sending an item drop that item and the queue moves on; repeated
// connection losses within a short window tear the guild's session
// down. An idle session is disconnected and reaped after a configured
// window with no activity.
package playback
