package handler_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/cpike5/discordbot-sub011/internal/audio"
	"github.com/cpike5/discordbot-sub011/internal/handler"
	"github.com/cpike5/discordbot-sub011/internal/playback"
	"github.com/cpike5/discordbot-sub011/internal/repository"
)

func TestCommandToPlayRequest(t *testing.T) {
	tc := []struct {
		name    string
		options []*discordgo.ApplicationCommandInteractionDataOption
		want    *handler.PlaySoundRequest
		err     bool
	}{
		{
			name:    "name only",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("name", "airhorn")},
			want:    &handler.PlaySoundRequest{Name: "airhorn"},
		},
		{
			name: "all options",
			options: []*discordgo.ApplicationCommandInteractionDataOption{
				stringOption("name", "airhorn"),
				boolOption("replace", true),
				numberOption("pitch", 1.5),
				boolOption("echo", true),
				boolOption("distort", true),
			},
			want: &handler.PlaySoundRequest{
				Name:    "airhorn",
				Replace: true,
				Filter:  audio.FilterSpec{Pitch: 1.5, Echo: true, Distort: true},
			},
		},
		{
			name:    "missing name",
			options: []*discordgo.ApplicationCommandInteractionDataOption{boolOption("replace", true)},
			err:     true,
		},
		{
			name: "pitch out of range",
			options: []*discordgo.ApplicationCommandInteractionDataOption{
				stringOption("name", "airhorn"),
				numberOption("pitch", 3),
			},
			err: true,
		},
		{
			name: "wrong type for name",
			options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "name", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
			},
			err: true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := handler.CommandToPlayRequest(tt.options)
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommandToAddSoundRequest(t *testing.T) {
	attachment := &discordgo.MessageAttachment{
		ID:       "att-1",
		Filename: "airhorn.mp3",
		Size:     2048,
		ProxyURL: "https://media.example/airhorn.mp3",
	}

	tc := []struct {
		name        string
		attachments map[string]*discordgo.MessageAttachment
		options     []*discordgo.ApplicationCommandInteractionDataOption
		want        *handler.AddSoundRequest
		err         bool
	}{
		{
			name:        "name defaults to filename without extension",
			attachments: map[string]*discordgo.MessageAttachment{"att-1": attachment},
			want:        &handler.AddSoundRequest{Attachment: attachment, Name: "airhorn"},
		},
		{
			name:        "explicit name wins",
			attachments: map[string]*discordgo.MessageAttachment{"att-1": attachment},
			options:     []*discordgo.ApplicationCommandInteractionDataOption{stringOption("name", "horn of doom")},
			want:        &handler.AddSoundRequest{Attachment: attachment, Name: "horn of doom"},
		},
		{
			name:        "filter options",
			attachments: map[string]*discordgo.MessageAttachment{"att-1": attachment},
			options: []*discordgo.ApplicationCommandInteractionDataOption{
				numberOption("pitch", 0.5),
				boolOption("distort", true),
			},
			want: &handler.AddSoundRequest{
				Attachment: attachment,
				Name:       "airhorn",
				Filter:     audio.FilterSpec{Pitch: 0.5, Distort: true},
			},
		},
		{
			name:        "no attachments",
			attachments: map[string]*discordgo.MessageAttachment{},
			err:         true,
		},
		{
			name: "two attachments",
			attachments: map[string]*discordgo.MessageAttachment{
				"att-1": attachment,
				"att-2": attachment,
			},
			err: true,
		},
		{
			name:        "pitch out of range",
			attachments: map[string]*discordgo.MessageAttachment{"att-1": attachment},
			options:     []*discordgo.ApplicationCommandInteractionDataOption{numberOption("pitch", 0.1)},
			err:         true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := handler.CommandToAddSoundRequest(tt.attachments, tt.options)
			if tt.err {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("request mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSoundPlayFlow(t *testing.T) {
	airhorn := repository.Sound{
		ID:        "sound-1",
		GuildID:   "guild-1",
		Name:      "airhorn",
		ObjectKey: "sounds/sound-1",
		FileSize:  2048,
	}

	newHandler := func(player *fakePlayer, channelID string) func(handler.DiscordSession, *discordgo.InteractionCreate) {
		return handler.NewInteractionHandler(handler.Deps{
			Sounds:  newFakeSoundStore(airhorn),
			Player:  player,
			Locator: locateAt(channelID),
			IDs:     &deterministicIDGenerator{},
		})
	}

	t.Run("queues the sound", func(t *testing.T) {
		player := &fakePlayer{}
		session := &mockSession{}
		h := newHandler(player, "voice-1")

		h(session, commandInteraction("sound", subcommand("play", stringOption("name", "airhorn"))))

		if len(player.items) != 1 {
			t.Fatalf("expected 1 enqueued item, got %d", len(player.items))
		}
		got := player.items[0]
		if got.EnqueuedAt.IsZero() {
			t.Error("EnqueuedAt was not set")
		}
		got.EnqueuedAt = time.Time{}

		want := playback.Item{
			ID:          "determinism",
			GuildID:     "guild-1",
			ChannelID:   "voice-1",
			RequesterID: "user-1",
			Mode:        playback.ModeQueue,
			Sound:       &playback.SoundSource{SoundID: "sound-1"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("item mismatch (-want +got):\n%s", diff)
		}
		if session.Resp == nil || session.Resp.Data.Content != "Queued **airhorn**." {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})

	t.Run("replace mode", func(t *testing.T) {
		player := &fakePlayer{}
		session := &mockSession{}
		h := newHandler(player, "voice-1")

		h(session, commandInteraction("sound", subcommand("play",
			stringOption("name", "airhorn"),
			boolOption("replace", true),
		)))

		if len(player.items) != 1 || player.items[0].Mode != playback.ModeReplace {
			t.Fatalf("expected one replace-mode item, got %+v", player.items)
		}
		if session.Resp == nil || session.Resp.Data.Content != "Playing **airhorn**." {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})

	t.Run("rejects callers outside voice", func(t *testing.T) {
		player := &fakePlayer{}
		session := &mockSession{}
		h := newHandler(player, "")

		h(session, commandInteraction("sound", subcommand("play", stringOption("name", "airhorn"))))

		if len(player.items) != 0 {
			t.Fatalf("expected nothing enqueued, got %+v", player.items)
		}
		if session.Resp == nil || session.Resp.Data.Content != "Join a voice channel first." {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
		if session.Resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
			t.Error("expected an ephemeral response")
		}
	})

	t.Run("unknown sound", func(t *testing.T) {
		player := &fakePlayer{}
		session := &mockSession{}
		h := newHandler(player, "voice-1")

		h(session, commandInteraction("sound", subcommand("play", stringOption("name", "ghost"))))

		if session.Resp == nil || session.Resp.Data.Content != "No sound named **ghost** here." {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})

	t.Run("full queue", func(t *testing.T) {
		player := &fakePlayer{enqueueErr: &playback.QueueFullError{GuildID: "guild-1", Limit: 4}}
		session := &mockSession{}
		h := newHandler(player, "voice-1")

		h(session, commandInteraction("sound", subcommand("play", stringOption("name", "airhorn"))))

		if session.Resp == nil || session.Resp.Data.Content != "The queue is full (4 items)." {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})
}

func addSoundInteraction(attachment *discordgo.MessageAttachment, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:    discordgo.InteractionApplicationCommand,
			GuildID: "guild-1",
			Member:  &discordgo.Member{User: &discordgo.User{ID: "user-1"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    "sound",
				Options: []*discordgo.ApplicationCommandInteractionDataOption{subcommand("add", options...)},
				Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
					Attachments: map[string]*discordgo.MessageAttachment{attachment.ID: attachment},
				},
			},
		},
	}
}

func TestSoundAddFlow(t *testing.T) {
	attachment := &discordgo.MessageAttachment{
		ID:       "att-1",
		Filename: "airhorn.mp3",
		Size:     2048,
		ProxyURL: "https://media.example/airhorn.mp3",
	}

	t.Run("stores the blob and the metadata", func(t *testing.T) {
		sounds := newFakeSoundStore()
		storage := newFakeBlobStorage()
		session := &mockSession{}
		h := handler.NewInteractionHandler(handler.Deps{
			Sounds:     sounds,
			Storage:    storage,
			IDs:        &deterministicIDGenerator{},
			HTTPClient: &fakeHTTPClient{body: "not really audio"},
		})

		h(session, addSoundInteraction(attachment))

		if session.Resp == nil || session.Resp.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
			t.Fatalf("expected a deferred response, got %+v", session.Resp)
		}
		if len(session.Edits) != 1 {
			t.Fatalf("expected 1 edit, got %d", len(session.Edits))
		}
		if got := *session.Edits[0].Content; got != "Added **airhorn** (2.0 kB)." {
			t.Errorf("unexpected edit content %q", got)
		}

		blob, ok := storage.objects["sounds/determinism"]
		if !ok {
			t.Fatalf("blob was not stored, objects: %v", storage.objects)
		}
		if string(blob) != "not really audio" {
			t.Errorf("stored blob %q", blob)
		}

		saved, ok := sounds.sounds["determinism"]
		if !ok {
			t.Fatal("sound row was not saved")
		}
		want := repository.Sound{
			ID:         "determinism",
			GuildID:    "guild-1",
			Name:       "airhorn",
			ObjectKey:  "sounds/determinism",
			FileSize:   2048,
			UploaderID: "user-1",
		}
		if diff := cmp.Diff(want, saved); diff != "" {
			t.Errorf("saved sound mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		sounds := newFakeSoundStore(repository.Sound{
			ID:      "sound-1",
			GuildID: "guild-1",
			Name:    "airhorn",
		})
		storage := newFakeBlobStorage()
		session := &mockSession{}
		h := handler.NewInteractionHandler(handler.Deps{
			Sounds:     sounds,
			Storage:    storage,
			IDs:        &deterministicIDGenerator{},
			HTTPClient: &fakeHTTPClient{body: "not really audio"},
		})

		h(session, addSoundInteraction(attachment))

		if len(session.Edits) != 1 {
			t.Fatalf("expected 1 edit, got %d", len(session.Edits))
		}
		if got := *session.Edits[0].Content; got != "A sound named **airhorn** already exists." {
			t.Errorf("unexpected edit content %q", got)
		}
		if len(storage.objects) != 0 {
			t.Errorf("expected no blob stored, got %v", storage.objects)
		}
	})

	t.Run("rejects uploads past the storage cap", func(t *testing.T) {
		sounds := newFakeSoundStore(repository.Sound{
			ID:       "sound-1",
			GuildID:  "guild-1",
			Name:     "wall of sound",
			FileSize: handler.MaxStorageSize - 1024,
		})
		storage := newFakeBlobStorage()
		session := &mockSession{}
		h := handler.NewInteractionHandler(handler.Deps{
			Sounds:     sounds,
			Storage:    storage,
			IDs:        &deterministicIDGenerator{},
			HTTPClient: &fakeHTTPClient{body: "not really audio"},
		})

		h(session, addSoundInteraction(attachment))

		if len(session.Edits) != 1 {
			t.Fatalf("expected 1 edit, got %d", len(session.Edits))
		}
		if got := *session.Edits[0].Content; !strings.HasPrefix(got, "Not enough space:") {
			t.Errorf("unexpected edit content %q", got)
		}
		if len(storage.objects) != 0 {
			t.Errorf("expected no blob stored, got %v", storage.objects)
		}
	})
}

func TestSoundListFlow(t *testing.T) {
	sounds := newFakeSoundStore(repository.Sound{
		ID:       "sound-1",
		GuildID:  "guild-1",
		Name:     "airhorn",
		FileSize: 2048,
	})
	session := &mockSession{}
	h := handler.NewInteractionHandler(handler.Deps{
		Sounds: sounds,
		IDs:    &deterministicIDGenerator{},
	})

	h(session, commandInteraction("sound", subcommand("list")))

	want := "**Sounds**\n- **airhorn** (2.0 kB)\n"
	if session.Resp == nil || session.Resp.Data.Content != want {
		t.Errorf("unexpected response: %+v", session.Resp)
	}
}

func TestSoundRemoveFlow(t *testing.T) {
	airhorn := repository.Sound{
		ID:        "sound-1",
		GuildID:   "guild-1",
		Name:      "airhorn",
		ObjectKey: "sounds/sound-1",
		FileSize:  2048,
	}

	t.Run("select then confirm deletes the sound", func(t *testing.T) {
		sounds := newFakeSoundStore(airhorn)
		storage := newFakeBlobStorage()
		h := handler.NewInteractionHandler(handler.Deps{
			Sounds:  sounds,
			Storage: storage,
			IDs:     &deterministicIDGenerator{},
		})

		session := &mockSession{}
		h(session, commandInteraction("sound", subcommand("remove")))
		if session.Resp == nil || session.Resp.Data.Content != "Choose a sound to remove:" {
			t.Fatalf("unexpected select response: %+v", session.Resp)
		}

		session = &mockSession{}
		h(session, componentInteraction("sound_remove_select:determinism", "sound-1"))
		if session.Resp == nil || session.Resp.Type != discordgo.InteractionResponseUpdateMessage {
			t.Fatalf("expected an update response, got %+v", session.Resp)
		}
		if session.Resp.Data.Content != "Remove **airhorn**? This cannot be undone." {
			t.Errorf("unexpected confirm content %q", session.Resp.Data.Content)
		}

		session = &mockSession{}
		h(session, componentInteraction("sound_remove_confirm:determinism"))
		if session.Resp == nil || session.Resp.Data.Content != "Removed **airhorn**." {
			t.Errorf("unexpected final content: %+v", session.Resp)
		}
		if len(sounds.sounds) != 0 {
			t.Errorf("sound row still present: %v", sounds.sounds)
		}
		if diff := cmp.Diff([]string{"sounds/sound-1"}, storage.removed); diff != "" {
			t.Errorf("removed blobs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("cancel keeps the sound", func(t *testing.T) {
		sounds := newFakeSoundStore(airhorn)
		storage := newFakeBlobStorage()
		h := handler.NewInteractionHandler(handler.Deps{
			Sounds:  sounds,
			Storage: storage,
			IDs:     &deterministicIDGenerator{},
		})

		session := &mockSession{}
		h(session, commandInteraction("sound", subcommand("remove")))
		session = &mockSession{}
		h(session, componentInteraction("sound_remove_select:determinism", "sound-1"))

		session = &mockSession{}
		h(session, componentInteraction("sound_remove_cancel:determinism"))
		if session.Resp == nil || session.Resp.Data.Content != "Cancelled." {
			t.Errorf("unexpected final content: %+v", session.Resp)
		}
		if _, ok := sounds.sounds["sound-1"]; !ok {
			t.Error("sound was deleted after cancel")
		}
		if len(storage.removed) != 0 {
			t.Errorf("blob was removed after cancel: %v", storage.removed)
		}
	})

	t.Run("empty library ends the flow", func(t *testing.T) {
		h := handler.NewInteractionHandler(handler.Deps{
			Sounds:  newFakeSoundStore(),
			Storage: newFakeBlobStorage(),
			IDs:     &deterministicIDGenerator{},
		})

		session := &mockSession{}
		h(session, commandInteraction("sound", subcommand("remove")))
		if session.Resp == nil || session.Resp.Data.Content != "No sounds to remove." {
			t.Fatalf("unexpected response: %+v", session.Resp)
		}

		// The session is gone, so a stray component click is ignored.
		session = &mockSession{}
		h(session, componentInteraction("sound_remove_select:determinism", "sound-1"))
		if session.Called {
			t.Errorf("expected no response, got %+v", session.Resp)
		}
	})
}
