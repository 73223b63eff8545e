package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/cpike5/discordbot-sub011/internal/audio"
)

var (
	dmPermission = false

	pitchMin  = audio.MinPitch
	gapMin    = float64(0)
	gapMaxMS  = float64(2000)
	nameMaxLn = 80
)

var filterOptions = []*discordgo.ApplicationCommandOption{
	{
		Name:        "pitch",
		Type:        discordgo.ApplicationCommandOptionNumber,
		Description: "Playback rate multiplier. 1.0 leaves the sound unchanged.",
		MinValue:    &pitchMin,
		MaxValue:    audio.MaxPitch,
	},
	{
		Name:        "echo",
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Description: "Add an echo effect.",
	},
	{
		Name:        "distort",
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Description: "Add a distortion effect.",
	},
}

var soundPlayOptions = append([]*discordgo.ApplicationCommandOption{
	{
		Name:        "name",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "The name of the sound to play.",
		Required:    true,
	},
	{
		Name:        "replace",
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Description: "Cut off whatever is playing instead of queueing behind it.",
	},
}, filterOptions...)

var soundAddOptions = append([]*discordgo.ApplicationCommandOption{
	{
		Name:        "audio",
		Type:        discordgo.ApplicationCommandOptionAttachment,
		Description: "The audio file to add.",
		Required:    true,
	},
	{
		Name:        "name",
		Type:        discordgo.ApplicationCommandOptionString,
		Description: "The name of the sound. Defaults to the file name if not provided.",
		MaxLength:   nameMaxLn,
	},
}, filterOptions...)

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:         "ping",
		Description:  "Check that the bot is alive",
		DMPermission: &dmPermission,
	},
	{
		Name:         "sound",
		Description:  "Manage and play this server's sound library",
		DMPermission: &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "play",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Play a sound in your voice channel",
				Options:     soundPlayOptions,
			},
			{
				Name:        "add",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Add a sound from a file attachment",
				Options:     soundAddOptions,
			},
			{
				Name:        "list",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "List this server's sounds",
			},
			{
				Name:        "remove",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Remove a sound from this server",
			},
		},
	},
	{
		Name:         "vox",
		Description:  "Word-clip announcements",
		DMPermission: &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "say",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Speak a message from word clips in your voice channel",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "message",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The message to speak.",
						Required:    true,
					},
					{
						Name:        "group",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The clip group to draw words from.",
					},
					{
						Name:        "gap",
						Type:        discordgo.ApplicationCommandOptionInteger,
						Description: "Milliseconds of silence between words.",
						MinValue:    &gapMin,
						MaxValue:    gapMaxMS,
					},
					{
						Name:        "replace",
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Description: "Cut off whatever is playing instead of queueing behind it.",
					},
				},
			},
			{
				Name:        "check",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Check which words of a message have clips",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "message",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The message to check.",
						Required:    true,
					},
					{
						Name:        "group",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The clip group to check against.",
					},
				},
			},
			{
				Name:        "rescan",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Rescan the clip library on disk",
			},
		},
	},
	{
		Name:         "announce",
		Description:  "Scheduled sound announcements",
		DMPermission: &dmPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "add",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Schedule a sound on a cron expression",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Name:        "sound",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The name of the sound to announce.",
						Required:    true,
					},
					{
						Name:        "cron",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The cron expression for the announcement.",
						Required:    true,
					},
					{
						Name:        "channel",
						Type:        discordgo.ApplicationCommandOptionChannel,
						Description: "Voice channel to play in. Defaults to the busiest channel.",
						ChannelTypes: []discordgo.ChannelType{
							discordgo.ChannelTypeGuildVoice,
						},
					},
				},
			},
			{
				Name:        "list",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "List this server's announcements",
			},
			{
				Name:        "remove",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Remove an announcement",
			},
		},
	},
	{
		Name:         "stop",
		Description:  "Stop playback and clear the queue",
		DMPermission: &dmPermission,
	},
	{
		Name:         "leave",
		Description:  "Disconnect from the voice channel",
		DMPermission: &dmPermission,
	},
}

func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
