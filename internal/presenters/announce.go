package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/cpike5/discordbot-sub011/internal/repository"
)

const ComponentIDAnnounceRemoveSelect = "announce_remove_select"

var noAnnouncementsResponse = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseChannelMessageWithSource,
	Data: &discordgo.InteractionResponseData{
		Content: "No announcements scheduled.",
	},
}

// AnnouncementList renders a guild's scheduled announcements.
func AnnouncementList(announcements []repository.Announcement) *discordgo.InteractionResponse {
	if len(announcements) == 0 {
		return noAnnouncementsResponse
	}

	var b strings.Builder
	b.WriteString("**Announcements**\n")
	for _, a := range announcements {
		fmt.Fprintf(&b, "- **%s** on `%s`", a.SoundName, a.Cron)
		if a.ChannelID != "" {
			fmt.Fprintf(&b, " in <#%s>", a.ChannelID)
		}
		b.WriteString("\n")
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: b.String(),
		},
	}
}

var announceSelectMinValues = 1

// AnnounceRemoveSelect asks which announcement to remove.
func AnnounceRemoveSelect(announcements []repository.Announcement, instanceID string) *discordgo.InteractionResponse {
	if len(announcements) > maxSelectOptions {
		announcements = announcements[:maxSelectOptions]
	}

	options := make([]discordgo.SelectMenuOption, 0, len(announcements))
	for _, a := range announcements {
		options = append(options, discordgo.SelectMenuOption{
			Label: fmt.Sprintf("%s (%s)", a.SoundName, a.Cron),
			Value: a.ID,
		})
	}

	menu := discordgo.SelectMenu{
		CustomID:    ComponentIDAnnounceRemoveSelect + ":" + instanceID,
		Placeholder: "Select an announcement",
		MinValues:   &announceSelectMinValues,
		MaxValues:   1,
		Options:     options,
	}

	row := discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			menu,
		},
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Choose an announcement to remove:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				row,
			},
		},
	}
}
