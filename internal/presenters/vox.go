package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// VoxMissingWords names the words of a message that have no clip.
func VoxMissingWords(group string, missing []string) string {
	return fmt.Sprintf("No clips in **%s** for: %s", group, strings.Join(missing, ", "))
}

// VoxCheck reports whether every word of a message is speakable.
func VoxCheck(group string, missing []string) *discordgo.InteractionResponse {
	content := fmt.Sprintf("Every word has a clip in **%s**.", group)
	if len(missing) > 0 {
		content = VoxMissingWords(group, missing)
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}
