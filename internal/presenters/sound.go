package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"github.com/cpike5/discordbot-sub011/internal/repository"
)

const (
	ComponentIDSoundRemoveSelect  = "sound_remove_select"
	ComponentIDSoundRemoveConfirm = "sound_remove_confirm"
	ComponentIDSoundRemoveCancel  = "sound_remove_cancel"
)

// Discord caps select menus at 25 options.
const maxSelectOptions = 25

var noSoundsResponse = &discordgo.InteractionResponse{
	Type: discordgo.InteractionResponseChannelMessageWithSource,
	Data: &discordgo.InteractionResponseData{
		Content: "No sounds here yet. Add one with `/sound add`.",
	},
}

// SoundList renders a guild's sound library.
func SoundList(sounds []repository.Sound) *discordgo.InteractionResponse {
	if len(sounds) == 0 {
		return noSoundsResponse
	}

	var b strings.Builder
	b.WriteString("**Sounds**\n")
	for _, sound := range sounds {
		fmt.Fprintf(&b, "- **%s** (%s)", sound.Name, humanize.Bytes(uint64(sound.FileSize)))
		if key := sound.Filter.Key(); key != "" {
			fmt.Fprintf(&b, " `%s`", key)
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

var soundSelectMinValues = 1

// SoundRemoveSelect asks which sound to remove.
func SoundRemoveSelect(sounds []repository.Sound, instanceID string) *discordgo.InteractionResponse {
	if len(sounds) > maxSelectOptions {
		sounds = sounds[:maxSelectOptions]
	}

	options := make([]discordgo.SelectMenuOption, 0, len(sounds))
	for _, sound := range sounds {
		options = append(options, discordgo.SelectMenuOption{
			Label: sound.Name,
			Value: sound.ID,
		})
	}

	menu := discordgo.SelectMenu{
		CustomID:    ComponentIDSoundRemoveSelect + ":" + instanceID,
		Placeholder: "Select a sound",
		MinValues:   &soundSelectMinValues,
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
			Content: "Choose a sound to remove:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				row,
			},
		},
	}
}

// SoundRemoveConfirm asks for a final yes/no before the delete.
func SoundRemoveConfirm(name, instanceID string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content: fmt.Sprintf("Remove **%s**? This cannot be undone.", name),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Remove",
						Style:    discordgo.DangerButton,
						CustomID: ComponentIDSoundRemoveConfirm + ":" + instanceID,
					},
					discordgo.Button{
						Label:    "Keep",
						Style:    discordgo.SecondaryButton,
						CustomID: ComponentIDSoundRemoveCancel + ":" + instanceID,
					},
				},
			},
		},
	}
}

// PlainUpdate replaces a component message with plain text. The empty
// component slice is what clears the buttons.
func PlainUpdate(content string) *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		Content:    content,
		Components: []discordgo.MessageComponent{},
	}
}
