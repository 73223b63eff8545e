package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cpike5/discordbot-sub011/internal/opus"
)

// ErrConnectionLost indicates the voice transport dropped while a
// stream was in flight.
var ErrConnectionLost = errors.New("voice connection lost")

// ErrNotConnected indicates a send was attempted for a guild with no
// established voice connection.
var ErrNotConnected = errors.New("not connected to a voice channel")

// Dialer establishes voice connections. Dialing a guild that is
// already connected must move the existing connection to the new
// channel rather than open a second one.
type Dialer interface {
	Dial(ctx context.Context, guildID, channelID string) (Handle, error)
}

// Handle is a live voice-channel connection.
type Handle interface {
	// ChannelID returns the channel the handle is connected to.
	ChannelID() string
	// WriteFrame transmits one opus frame, honoring ctx cancellation.
	WriteFrame(ctx context.Context, frame []byte) error
	Close() error
}

// Manager owns the voice connection of every guild. All operations on
// one guild are serialized through a per-guild lock, so at most one
// stream is in flight per guild and joins or leaves never race a send.
type Manager struct {
	dialer Dialer
	logger *slog.Logger

	mu    sync.Mutex
	conns map[string]*conn
}

// conn guards one guild's connection. Once created it is never removed
// from the arena, so every operation for the guild contends on the
// same lock.
type conn struct {
	mu     sync.Mutex
	handle Handle
}

func NewManager(dialer Dialer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dialer: dialer,
		logger: logger,
		conns:  make(map[string]*conn),
	}
}

func (m *Manager) guard(guildID string) *conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[guildID]
	if !ok {
		c = &conn{}
		m.conns[guildID] = c
	}
	return c
}

// Join connects the guild to channelID. If the guild is already
// connected elsewhere the connection is moved; joining the current
// channel is a no-op.
func (m *Manager) Join(ctx context.Context, guildID, channelID string) error {
	c := m.guard(guildID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil && c.handle.ChannelID() == channelID {
		return nil
	}
	handle, err := m.dialer.Dial(ctx, guildID, channelID)
	if err != nil {
		return fmt.Errorf("unable to join the voice channel: %w", err)
	}
	c.handle = handle
	m.logger.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)
	return nil
}

// Leave disconnects the guild's voice connection. Leaving a guild with
// no connection is a no-op. A Leave issued while a Send is in flight
// waits for it; cancel the send's context first to stop it early.
func (m *Manager) Leave(guildID string) error {
	c := m.guard(guildID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil {
		return nil
	}
	err := c.handle.Close()
	c.handle = nil
	if err != nil {
		return fmt.Errorf("unable to disconnect: %w", err)
	}
	m.logger.Info("left voice channel", "guild_id", guildID)
	return nil
}

// Send streams frames from source into the guild's connection,
// blocking until the stream is exhausted, ctx is cancelled, or the
// transport fails. Cancellation leaves the connection usable for the
// next item; a transport failure tears the handle down so the next
// Join redials, and surfaces ErrConnectionLost.
func (m *Manager) Send(ctx context.Context, guildID string, source *opus.FrameReader) error {
	c := m.guard(guildID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle == nil {
		return ErrNotConnected
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("unable to read frame: %w", err)
		}
		if err := c.handle.WriteFrame(ctx, frame); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if closeErr := c.handle.Close(); closeErr != nil {
				m.logger.Error("failed to close lost connection", "guild_id", guildID, "error", closeErr)
			}
			c.handle = nil
			m.logger.Warn("voice connection lost mid-send", "guild_id", guildID, "error", err)
			if errors.Is(err, ErrConnectionLost) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrConnectionLost, err)
		}
	}
}
