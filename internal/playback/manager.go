package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cpike5/discordbot-sub011/internal/audio"
	"github.com/cpike5/discordbot-sub011/internal/opus"
	"github.com/cpike5/discordbot-sub011/internal/voice"
)

// Repeated connection losses inside failureWindow tear a guild's
// session down instead of grinding through the rest of its queue.
const (
	failureWindow = 30 * time.Second
	failureLimit  = 3
)

// Resolver resolves a sound id to a playable local file and the
// sound's default filter spec.
type Resolver interface {
	ResolveSound(ctx context.Context, guildID, soundID string) (string, audio.FilterSpec, error)
}

// Pipeline produces processed audio for a source file.
type Pipeline interface {
	Process(ctx context.Context, path string, spec audio.FilterSpec) (*audio.Lease, error)
}

// Synthesizer renders vox announcements.
type Synthesizer interface {
	Synthesize(ctx context.Context, group, message string, gap time.Duration) (*audio.Lease, error)
}

// Voice is the slice of the voice manager the drain loop drives.
type Voice interface {
	Join(ctx context.Context, guildID, channelID string) error
	Leave(guildID string) error
	Send(ctx context.Context, guildID string, source *opus.FrameReader) error
}

// Outcome classifies how a playback item ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// JournalEntry records the fate of one playback item.
type JournalEntry struct {
	Item     Item
	Outcome  Outcome
	Duration time.Duration
	Error    string
}

// Journal persists playback outcomes. Entries are recorded from a
// goroutine off the drain loop, so implementations may block.
type Journal interface {
	RecordPlayback(ctx context.Context, entry JournalEntry)
}

// ManagerOptions configure a Manager. Voice, Resolver, Pipeline and
// Synthesizer are required; Journal may be nil.
type ManagerOptions struct {
	Voice          Voice
	Resolver       Resolver
	Pipeline       Pipeline
	Synthesizer    Synthesizer
	Journal        Journal
	MaxQueueLength int
	IdleWindow     time.Duration
	Logger         *slog.Logger
}

// Manager owns every guild's playback session: a FIFO queue drained by
// one goroutine per guild, an idle timer that disconnects quiet
// sessions, and a failure counter that tears down sessions losing
// their connection repeatedly.
type Manager struct {
	voice       Voice
	resolver    Resolver
	pipeline    Pipeline
	synthesizer Synthesizer
	journal     Journal
	maxQueue    int
	idleWindow  time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// session is one guild's playback state. All fields are guarded by the
// manager mutex.
type session struct {
	guildID   string
	queue     []Item
	playing   bool
	current   *currentItem
	idleTimer *time.Timer
	failures  []time.Time
}

type currentItem struct {
	item   Item
	cancel context.CancelFunc
}

func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		voice:       opts.Voice,
		resolver:    opts.Resolver,
		pipeline:    opts.Pipeline,
		synthesizer: opts.Synthesizer,
		journal:     opts.Journal,
		maxQueue:    opts.MaxQueueLength,
		idleWindow:  opts.IdleWindow,
		logger:      logger,
		sessions:    make(map[string]*session),
	}
}

// Enqueue submits an item to its guild's queue and returns without
// waiting for playback. Queue-mode items past the queue limit are
// rejected with QueueFullError; replace-mode items always fit because
// they discard the pending queue first.
func (m *Manager) Enqueue(item Item) error {
	if err := validateItem(item); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	s := m.sessionLocked(item.GuildID)

	switch item.Mode {
	case ModeReplace:
		s.queue = s.queue[:0]
		if s.current != nil {
			s.current.cancel()
		}
		s.queue = append(s.queue, item)
	default:
		if len(s.queue) >= m.maxQueue {
			m.mu.Unlock()
			return &QueueFullError{GuildID: item.GuildID, Limit: m.maxQueue}
		}
		s.queue = append(s.queue, item)
	}

	m.stopIdleTimerLocked(s)
	started := false
	if !s.playing {
		s.playing = true
		started = true
	}
	m.mu.Unlock()

	m.logger.Info("enqueued playback item",
		"guild_id", item.GuildID,
		"item_id", item.ID,
		"mode", item.Mode.String(),
	)
	if started {
		go m.drain(s)
	}
	return nil
}

// Stop cancels the current item and discards the guild's pending
// queue. The voice connection stays up; the idle supervisor reaps it
// later.
func (m *Manager) Stop(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[guildID]
	if !ok {
		return
	}
	s.queue = nil
	if s.current != nil {
		s.current.cancel()
	}
}

// Disconnect stops playback like Stop and leaves the voice channel
// immediately.
func (m *Manager) Disconnect(guildID string) error {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if ok {
		s.queue = nil
		if s.current != nil {
			s.current.cancel()
		}
		m.stopIdleTimerLocked(s)
		if !s.playing {
			delete(m.sessions, guildID)
		}
	}
	m.mu.Unlock()

	return m.voice.Leave(guildID)
}

// Shutdown cancels all in-flight playback, discards every queue and
// stops the idle timers. The manager rejects new items afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, s := range m.sessions {
		s.queue = nil
		if s.current != nil {
			s.current.cancel()
		}
		m.stopIdleTimerLocked(s)
	}
}

func validateItem(item Item) error {
	if item.GuildID == "" || item.ChannelID == "" {
		return errors.New("item requires a guild and a channel")
	}
	if (item.Sound == nil) == (item.Vox == nil) {
		return errors.New("item requires exactly one source")
	}
	return nil
}

func (m *Manager) sessionLocked(guildID string) *session {
	s, ok := m.sessions[guildID]
	if !ok {
		s = &session{guildID: guildID}
		m.sessions[guildID] = s
	}
	return s
}

// drain pops and plays items until the guild's queue is empty. It is
// the only goroutine streaming for its guild.
func (m *Manager) drain(s *session) {
	for {
		m.mu.Lock()
		if len(s.queue) == 0 {
			s.playing = false
			s.current = nil
			m.armIdleTimerLocked(s)
			m.mu.Unlock()
			return
		}
		item := s.queue[0]
		s.queue = s.queue[1:]
		ctx, cancel := context.WithCancel(context.Background())
		s.current = &currentItem{item: item, cancel: cancel}
		m.mu.Unlock()

		m.play(ctx, item)
		cancel()

		m.mu.Lock()
		s.current = nil
		m.mu.Unlock()
	}
}

// play resolves and streams one item. Errors drop the item so the
// queue keeps moving.
func (m *Manager) play(ctx context.Context, item Item) {
	logger := m.logger.With("guild_id", item.GuildID, "item_id", item.ID)

	lease, err := m.resolveItem(ctx, item)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("playback cancelled while resolving")
			m.record(item, OutcomeCancelled, 0, err)
			return
		}
		logger.Error("unable to resolve playback item", "error", err)
		m.record(item, OutcomeFailed, 0, err)
		return
	}
	defer lease.Release()

	duration, err := opus.BlobDuration(lease.Bytes())
	if err != nil {
		logger.Error("cached blob is corrupt", "error", err)
		m.record(item, OutcomeFailed, 0, err)
		return
	}

	if err := m.voice.Join(ctx, item.GuildID, item.ChannelID); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("playback cancelled while joining")
			m.record(item, OutcomeCancelled, duration, err)
			return
		}
		logger.Error("unable to join voice channel", "channel_id", item.ChannelID, "error", err)
		m.record(item, OutcomeFailed, duration, err)
		return
	}

	err = m.voice.Send(ctx, item.GuildID, opus.NewFrameReader(bytes.NewReader(lease.Bytes())))
	switch {
	case err == nil:
		logger.Info("playback complete", "duration", duration)
		m.record(item, OutcomeCompleted, duration, nil)
		m.clearFailures(item.GuildID)
	case errors.Is(err, context.Canceled):
		logger.Info("playback cancelled")
		m.record(item, OutcomeCancelled, duration, err)
	case errors.Is(err, voice.ErrConnectionLost):
		logger.Warn("connection lost during playback", "error", err)
		m.record(item, OutcomeFailed, duration, err)
		m.recordConnectionLoss(item.GuildID)
	default:
		logger.Error("playback failed", "error", err)
		m.record(item, OutcomeFailed, duration, err)
	}
}

func (m *Manager) resolveItem(ctx context.Context, item Item) (*audio.Lease, error) {
	switch {
	case item.Sound != nil:
		path, defaultSpec, err := m.resolver.ResolveSound(ctx, item.GuildID, item.Sound.SoundID)
		if err != nil {
			return nil, fmt.Errorf("unable to resolve sound %q: %w", item.Sound.SoundID, err)
		}
		spec := item.Filter
		if spec.IsZero() {
			spec = defaultSpec
		}
		return m.pipeline.Process(ctx, path, spec)
	case item.Vox != nil:
		return m.synthesizer.Synthesize(ctx, item.Vox.Group, item.Vox.Message, item.Vox.Gap)
	default:
		return nil, errors.New("item has no source")
	}
}

func (m *Manager) record(item Item, outcome Outcome, duration time.Duration, err error) {
	if m.journal == nil {
		return
	}
	entry := JournalEntry{
		Item:     item,
		Outcome:  outcome,
		Duration: duration,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	go m.journal.RecordPlayback(context.Background(), entry)
}

// recordConnectionLoss counts a lost connection toward the guild's
// failure window and tears the session down once the limit is hit.
func (m *Manager) recordConnectionLoss(guildID string) {
	m.mu.Lock()
	s := m.sessionLocked(guildID)
	now := time.Now()
	recent := s.failures[:0]
	for _, at := range s.failures {
		if now.Sub(at) <= failureWindow {
			recent = append(recent, at)
		}
	}
	s.failures = append(recent, now)
	if len(s.failures) < failureLimit {
		m.mu.Unlock()
		return
	}
	s.failures = nil
	s.queue = nil
	m.mu.Unlock()

	m.logger.Error("closing session after repeated connection losses", "guild_id", guildID)
	if err := m.voice.Leave(guildID); err != nil {
		m.logger.Error("failed to leave after repeated losses", "guild_id", guildID, "error", err)
	}
}

func (m *Manager) clearFailures(guildID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[guildID]; ok {
		s.failures = nil
	}
}

func (m *Manager) stopIdleTimerLocked(s *session) {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (m *Manager) armIdleTimerLocked(s *session) {
	if m.closed || m.idleWindow <= 0 {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(m.idleWindow, func() {
		m.autoLeave(s.guildID)
	})
}

// autoLeave disconnects and reaps a session that stayed idle for the
// whole window. Activity that slipped in after the timer fired aborts
// the leave.
func (m *Manager) autoLeave(guildID string) {
	m.mu.Lock()
	s, ok := m.sessions[guildID]
	if !ok {
		m.mu.Unlock()
		return
	}
	if s.playing || len(s.queue) > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, guildID)
	m.mu.Unlock()

	m.logger.Info("auto-leaving idle voice channel", "guild_id", guildID)
	if err := m.voice.Leave(guildID); err != nil {
		m.logger.Error("failed to auto-leave", "guild_id", guildID, "error", err)
	}
}
