package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/cpike5/discordbot-sub011/internal/datalayer"
	"github.com/cpike5/discordbot-sub011/internal/generator"
	"github.com/cpike5/discordbot-sub011/internal/playback"
	"github.com/cpike5/discordbot-sub011/internal/repository"
)

// Player is the slice of the playback manager the handlers drive.
type Player interface {
	Enqueue(item playback.Item) error
	Stop(guildID string)
	Disconnect(guildID string) error
}

// VoxChecker reports which words of a message have no clip.
type VoxChecker interface {
	Check(group, message string) []string
}

// ClipLibrary is the rescannable word-clip index.
type ClipLibrary interface {
	Scan() error
	Groups() []string
	Words(group string) []string
}

// ChannelLocator finds the voice channel a user currently occupies.
type ChannelLocator func(guildID, userID string) (string, bool)

// Deps are the collaborators behind the interaction handlers.
type Deps struct {
	Sounds        repository.SoundStore
	Announcements repository.AnnouncementStore
	Storage       datalayer.BlobStorage
	Player        Player
	Vox           VoxChecker
	Library       ClipLibrary
	Locator       ChannelLocator
	DefaultGroup  string
	IDs           generator.Generator[string]
	HTTPClient    HTTPClient
}

// NewInteractionHandler wires every flow into a FlowManager and returns
// the router. Errors that reach the router turn into an ephemeral
// message; a *UserError carries its own text, anything else is logged
// and reported generically.
func NewInteractionHandler(deps Deps) func(DiscordSession, *discordgo.InteractionCreate) {
	if deps.IDs == nil {
		deps.IDs = &generator.UUIDV4Generator{}
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = http.DefaultClient
	}

	fm := NewFlowManager(deps.IDs)
	fm.RegisterFlow(PingFlow)
	fm.RegisterFlow(soundPlayFlow(deps))
	fm.RegisterFlow(soundAddFlow(deps))
	fm.RegisterFlow(soundListFlow(deps))
	fm.RegisterFlow(soundRemoveFlow(deps))
	fm.RegisterFlow(voxSayFlow(deps))
	fm.RegisterFlow(voxCheckFlow(deps))
	fm.RegisterFlow(voxRescanFlow(deps))
	fm.RegisterFlow(announceAddFlow(deps))
	fm.RegisterFlow(announceListFlow(deps))
	fm.RegisterFlow(announceRemoveFlow(deps))
	fm.RegisterFlow(stopFlow(deps))
	fm.RegisterFlow(leaveFlow(deps))

	return func(s DiscordSession, i *discordgo.InteractionCreate) {
		err := fm.Router(s, i)
		if err == nil {
			return
		}

		var userErr *UserError
		if errors.As(err, &userErr) {
			respondEphemeral(s, i, userErr.Message)
			return
		}

		slog.Error("Interaction failed", "error", err)
		respondEphemeral(s, i, "Something went wrong.")
	}
}

func matchCommand(name string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		return i.ApplicationCommandData().Name == name
	}
}

func matchSubcommand(name, sub string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionApplicationCommand {
			return false
		}
		data := i.ApplicationCommandData()
		return data.Name == name && len(data.Options) > 0 && data.Options[0].Name == sub
	}
}

func matchComponent(componentID string) func(*discordgo.InteractionCreate) bool {
	return func(i *discordgo.InteractionCreate) bool {
		if i.Type != discordgo.InteractionMessageComponent {
			return false
		}
		return strings.HasPrefix(i.MessageComponentData().CustomID, componentID+":")
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func respondEphemeral(s DiscordSession, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("Failed to respond to interaction", "error", err)
	}
}

func updateMessage(s DiscordSession, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: data,
	})
}
