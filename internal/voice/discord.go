package voice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

// frameSendTimeout bounds how long a single frame may sit unaccepted
// by the transport before the connection is declared lost.
const frameSendTimeout = time.Minute

// DiscordDialer implements Dialer on a discordgo session.
// discordgo moves the existing connection when a connected guild joins
// another channel, which is exactly the Dialer contract.
type DiscordDialer struct {
	session *discordgo.Session
}

func NewDiscordDialer(session *discordgo.Session) *DiscordDialer {
	return &DiscordDialer{session: session}
}

func (d *DiscordDialer) Dial(ctx context.Context, guildID, channelID string) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := d.session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	if err := vc.Speaking(true); err != nil {
		return nil, fmt.Errorf("error setting speaking state to 'true': %w", err)
	}
	return &discordHandle{vc: vc, channelID: channelID}, nil
}

var _ Dialer = (*DiscordDialer)(nil)

type discordHandle struct {
	vc        *discordgo.VoiceConnection
	channelID string
}

func (h *discordHandle) ChannelID() string {
	return h.channelID
}

// WriteFrame hands one frame to discordgo's send channel, which paces
// transmission itself.
func (h *discordHandle) WriteFrame(ctx context.Context, frame []byte) error {
	timer := time.NewTimer(frameSendTimeout)
	defer timer.Stop()

	select {
	case h.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrConnectionLost
	}
}

func (h *discordHandle) Close() error {
	if err := h.vc.Speaking(false); err != nil {
		slog.Error("failed to stop speaking", "error", err)
	}
	return h.vc.Disconnect()
}

// MaxAttendedChannel returns the id of the guild's voice channel with
// the most members in it, counted from the guild's voice states. It
// returns "" when every voice channel is empty. Ties go to the channel
// listed first.
func MaxAttendedChannel(guild *discordgo.Guild) string {
	attendance := make(map[string]int)
	for _, state := range guild.VoiceStates {
		if state.ChannelID != "" {
			attendance[state.ChannelID]++
		}
	}

	var maxAttendedID string
	maxAttended := 0
	for _, channel := range guild.Channels {
		if channel.Type != discordgo.ChannelTypeGuildVoice {
			continue
		}

		if n := attendance[channel.ID]; n > maxAttended {
			maxAttendedID = channel.ID
			maxAttended = n
		}
	}

	return maxAttendedID
}
