package handler

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

func stopFlow(deps Deps) *Flow {
	return &Flow{
		ID: "stop",
		Root: &Node{
			ID:      "stop",
			Matcher: matchCommand("stop"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				deps.Player.Stop(i.GuildID)
				return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Content: "Stopped.",
					},
				})
			},
		},
	}
}

func leaveFlow(deps Deps) *Flow {
	return &Flow{
		ID: "leave",
		Root: &Node{
			ID:      "leave",
			Matcher: matchCommand("leave"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				if err := deps.Player.Disconnect(i.GuildID); err != nil {
					slog.Warn("Failed to disconnect", "guildID", i.GuildID, "error", err)
				}
				return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Content: "Left the voice channel.",
					},
				})
			},
		},
	}
}
