package presenters_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/cpike5/discordbot-sub011/internal/audio"
	"github.com/cpike5/discordbot-sub011/internal/presenters"
	"github.com/cpike5/discordbot-sub011/internal/repository"
)

func TestSoundList(t *testing.T) {
	tests := []struct {
		name  string
		input []repository.Sound
		want  *discordgo.InteractionResponse
	}{
		{
			name:  "no sounds",
			input: []repository.Sound{},
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "No sounds here yet. Add one with `/sound add`.",
				},
			},
		},
		{
			name: "sounds with sizes and filters",
			input: []repository.Sound{
				{
					ID:       "test-sound-1",
					Name:     "airhorn",
					FileSize: 2048,
				},
				{
					ID:       "test-sound-2",
					Name:     "deep voice",
					FileSize: 512,
					Filter:   audio.FilterSpec{Pitch: 0.5, Distort: true},
				},
			},
			want: &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "**Sounds**\n" +
						"- **airhorn** (2.0 kB)\n" +
						"- **deep voice** (512 B) `pitch=0.5,distort`\n",
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := presenters.SoundList(tt.input)
			diff := cmp.Diff(got, tt.want)
			if diff != "" {
				t.Errorf("SoundList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSoundRemoveSelect(t *testing.T) {
	input := []repository.Sound{
		{ID: "test-sound-1", Name: "airhorn"},
		{ID: "test-sound-2", Name: "sad trombone"},
	}

	want := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Choose a sound to remove:",
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.SelectMenu{
							CustomID:    "sound_remove_select:instance-1",
							Placeholder: "Select a sound",
							MinValues:   &[]int{1}[0],
							MaxValues:   1,
							Options: []discordgo.SelectMenuOption{
								{
									Label: "airhorn",
									Value: "test-sound-1",
								},
								{
									Label: "sad trombone",
									Value: "test-sound-2",
								},
							},
						},
					},
				},
			},
		},
	}

	got := presenters.SoundRemoveSelect(input, "instance-1")
	diff := cmp.Diff(got, want)
	if diff != "" {
		t.Errorf("SoundRemoveSelect() mismatch (-want +got):\n%s", diff)
	}
}

func TestSoundRemoveConfirm(t *testing.T) {
	want := &discordgo.InteractionResponseData{
		Content: "Remove **airhorn**? This cannot be undone.",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Remove",
						Style:    discordgo.DangerButton,
						CustomID: "sound_remove_confirm:instance-1",
					},
					discordgo.Button{
						Label:    "Keep",
						Style:    discordgo.SecondaryButton,
						CustomID: "sound_remove_cancel:instance-1",
					},
				},
			},
		},
	}

	got := presenters.SoundRemoveConfirm("airhorn", "instance-1")
	diff := cmp.Diff(got, want)
	if diff != "" {
		t.Errorf("SoundRemoveConfirm() mismatch (-want +got):\n%s", diff)
	}
}

func TestSoundRemoveSelectTruncatesToComponentLimit(t *testing.T) {
	var input []repository.Sound
	for i := 0; i < 30; i++ {
		input = append(input, repository.Sound{ID: "id", Name: "name"})
	}

	got := presenters.SoundRemoveSelect(input, "instance-1")
	row := got.Data.Components[0].(discordgo.ActionsRow)
	menu := row.Components[0].(discordgo.SelectMenu)
	if len(menu.Options) != 25 {
		t.Errorf("expected 25 options, got %d", len(menu.Options))
	}
}
