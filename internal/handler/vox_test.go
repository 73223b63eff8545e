package handler_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/cpike5/discordbot-sub011/internal/handler"
	"github.com/cpike5/discordbot-sub011/internal/playback"
)

func TestCommandToVoxSayRequest(t *testing.T) {
	tc := []struct {
		name    string
		options []*discordgo.ApplicationCommandInteractionDataOption
		want    *handler.VoxSayRequest
		err     bool
	}{
		{
			name:    "message only leaves the gap unset",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("message", "rise and shine")},
			want:    &handler.VoxSayRequest{Message: "rise and shine", Gap: -1},
		},
		{
			name: "all options",
			options: []*discordgo.ApplicationCommandInteractionDataOption{
				stringOption("message", "rise and shine"),
				stringOption("group", "hev"),
				integerOption("gap", 250),
				boolOption("replace", true),
			},
			want: &handler.VoxSayRequest{
				Message: "rise and shine",
				Group:   "hev",
				Gap:     250 * time.Millisecond,
				Replace: true,
			},
		},
		{
			name:    "zero gap is kept",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("message", "hello"), integerOption("gap", 0)},
			want:    &handler.VoxSayRequest{Message: "hello", Gap: 0},
		},
		{
			name:    "missing message",
			options: []*discordgo.ApplicationCommandInteractionDataOption{stringOption("group", "hev")},
			err:     true,
		},
		{
			name: "wrong type for gap",
			options: []*discordgo.ApplicationCommandInteractionDataOption{
				stringOption("message", "hello"),
				stringOption("gap", "250"),
			},
			err: true,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := handler.CommandToVoxSayRequest(tt.options)
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

func TestVoxSayFlow(t *testing.T) {
	newHandler := func(player *fakePlayer, checker *fakeVoxChecker) func(handler.DiscordSession, *discordgo.InteractionCreate) {
		return handler.NewInteractionHandler(handler.Deps{
			Player:       player,
			Vox:          checker,
			Locator:      locateAt("voice-1"),
			DefaultGroup: "vox",
			IDs:          &deterministicIDGenerator{},
		})
	}

	t.Run("queues the message", func(t *testing.T) {
		player := &fakePlayer{}
		checker := &fakeVoxChecker{}
		session := &mockSession{}
		h := newHandler(player, checker)

		h(session, commandInteraction("vox", subcommand("say", stringOption("message", "rise and shine"))))

		if len(player.items) != 1 {
			t.Fatalf("expected 1 enqueued item, got %d", len(player.items))
		}
		got := player.items[0]
		got.EnqueuedAt = time.Time{}

		want := playback.Item{
			ID:          "determinism",
			GuildID:     "guild-1",
			ChannelID:   "voice-1",
			RequesterID: "user-1",
			Mode:        playback.ModeQueue,
			Vox: &playback.VoxSource{
				Group:   "vox",
				Message: "rise and shine",
				Gap:     -1,
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("item mismatch (-want +got):\n%s", diff)
		}
		if session.Resp == nil || session.Resp.Data.Content != "Saying: rise and shine" {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})

	t.Run("explicit group", func(t *testing.T) {
		player := &fakePlayer{}
		checker := &fakeVoxChecker{}
		session := &mockSession{}
		h := newHandler(player, checker)

		h(session, commandInteraction("vox", subcommand("say",
			stringOption("message", "rise and shine"),
			stringOption("group", "hev"),
		)))

		if checker.group != "hev" {
			t.Errorf("checked group %q, want hev", checker.group)
		}
		if len(player.items) != 1 || player.items[0].Vox.Group != "hev" {
			t.Fatalf("expected an item in group hev, got %+v", player.items)
		}
	})

	t.Run("missing words", func(t *testing.T) {
		player := &fakePlayer{}
		checker := &fakeVoxChecker{missing: []string{"warp", "core"}}
		session := &mockSession{}
		h := newHandler(player, checker)

		h(session, commandInteraction("vox", subcommand("say", stringOption("message", "warp core breach"))))

		if len(player.items) != 0 {
			t.Fatalf("expected nothing enqueued, got %+v", player.items)
		}
		want := "No clips in **vox** for: warp, core"
		if session.Resp == nil || session.Resp.Data.Content != want {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})

	t.Run("no speakable words", func(t *testing.T) {
		player := &fakePlayer{}
		checker := &fakeVoxChecker{}
		session := &mockSession{}
		h := newHandler(player, checker)

		h(session, commandInteraction("vox", subcommand("say", stringOption("message", "!!! ???"))))

		if len(player.items) != 0 {
			t.Fatalf("expected nothing enqueued, got %+v", player.items)
		}
		if session.Resp == nil || session.Resp.Data.Content != "That message has no speakable words." {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})
}

func TestVoxCheckFlow(t *testing.T) {
	checker := &fakeVoxChecker{missing: []string{"breach"}}
	session := &mockSession{}
	h := handler.NewInteractionHandler(handler.Deps{
		Vox:          checker,
		DefaultGroup: "vox",
		IDs:          &deterministicIDGenerator{},
	})

	h(session, commandInteraction("vox", subcommand("check", stringOption("message", "warp core breach"))))

	if session.Resp == nil || session.Resp.Data.Content != "No clips in **vox** for: breach" {
		t.Errorf("unexpected response: %+v", session.Resp)
	}
	if session.Resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("expected an ephemeral response")
	}
}

func TestVoxRescanFlow(t *testing.T) {
	t.Run("reports the new counts", func(t *testing.T) {
		library := &fakeLibrary{words: map[string][]string{
			"vox": {"rise", "and", "shine"},
		}}
		session := &mockSession{}
		h := handler.NewInteractionHandler(handler.Deps{
			Library: library,
			IDs:     &deterministicIDGenerator{},
		})

		h(session, commandInteraction("vox", subcommand("rescan")))

		if library.scans != 1 {
			t.Errorf("scan called %d times, want 1", library.scans)
		}
		if session.Resp == nil || session.Resp.Data.Content != "Rescanned: 1 groups, 3 words." {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})

	t.Run("scan failure", func(t *testing.T) {
		library := &fakeLibrary{scanErr: errors.New("clip root missing")}
		session := &mockSession{}
		h := handler.NewInteractionHandler(handler.Deps{
			Library: library,
			IDs:     &deterministicIDGenerator{},
		})

		h(session, commandInteraction("vox", subcommand("rescan")))

		if session.Resp == nil || session.Resp.Data.Content != "Rescan failed. Check the clip root on the host." {
			t.Errorf("unexpected response: %+v", session.Resp)
		}
	})
}
