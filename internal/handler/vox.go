package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/cpike5/discordbot-sub011/internal/playback"
	"github.com/cpike5/discordbot-sub011/internal/presenters"
	"github.com/cpike5/discordbot-sub011/internal/vox"
)

type VoxSayRequest struct {
	Message string
	Group   string
	// Gap is negative when the command did not set one, which selects
	// the configured default downstream.
	Gap     time.Duration
	Replace bool
}

func CommandToVoxSayRequest(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) (*VoxSayRequest, error) {
	req := VoxSayRequest{Gap: -1}

	for _, option := range options {
		switch option.Name {
		case "message":
			if option.Type != discordgo.ApplicationCommandOptionString {
				return nil, fmt.Errorf("invalid type for message option")
			}
			req.Message = option.StringValue()
		case "group":
			if option.Type != discordgo.ApplicationCommandOptionString {
				return nil, fmt.Errorf("invalid type for group option")
			}
			req.Group = option.StringValue()
		case "gap":
			if option.Type != discordgo.ApplicationCommandOptionInteger {
				return nil, fmt.Errorf("invalid type for gap option")
			}
			req.Gap = time.Duration(option.IntValue()) * time.Millisecond
		case "replace":
			if option.Type != discordgo.ApplicationCommandOptionBoolean {
				return nil, fmt.Errorf("invalid type for replace option")
			}
			req.Replace = option.BoolValue()
		}
	}

	if req.Message == "" {
		return nil, fmt.Errorf("message option is required")
	}

	return &req, nil
}

func voxSayFlow(deps Deps) *Flow {
	return &Flow{
		ID: "vox_say",
		Root: &Node{
			ID:      "vox_say",
			Matcher: matchSubcommand("vox", "say"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				req, err := CommandToVoxSayRequest(i.ApplicationCommandData().Options[0].Options)
				if err != nil {
					return &UserError{Message: err.Error()}
				}

				group := req.Group
				if group == "" {
					group = deps.DefaultGroup
				}
				if len(vox.Tokenize(req.Message)) == 0 {
					return &UserError{Message: "That message has no speakable words."}
				}
				if missing := deps.Vox.Check(group, req.Message); len(missing) > 0 {
					return &UserError{Message: presenters.VoxMissingWords(group, missing)}
				}

				userID := interactionUserID(i)
				channelID, ok := deps.Locator(i.GuildID, userID)
				if !ok {
					return &UserError{Message: "Join a voice channel first."}
				}

				id, err := deps.IDs.Next()
				if err != nil {
					return err
				}

				mode := playback.ModeQueue
				if req.Replace {
					mode = playback.ModeReplace
				}
				item := playback.Item{
					ID:          id,
					GuildID:     i.GuildID,
					ChannelID:   channelID,
					RequesterID: userID,
					Mode:        mode,
					Vox: &playback.VoxSource{
						Group:   group,
						Message: req.Message,
						Gap:     req.Gap,
					},
					EnqueuedAt: time.Now(),
				}
				if err := deps.Player.Enqueue(item); err != nil {
					var full *playback.QueueFullError
					if errors.As(err, &full) {
						return &UserError{Message: fmt.Sprintf("The queue is full (%d items).", full.Limit)}
					}
					return err
				}

				return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Content: fmt.Sprintf("Saying: %s", req.Message),
					},
				})
			},
		},
	}
}

func voxCheckFlow(deps Deps) *Flow {
	return &Flow{
		ID: "vox_check",
		Root: &Node{
			ID:      "vox_check",
			Matcher: matchSubcommand("vox", "check"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				var message, group string
				for _, option := range i.ApplicationCommandData().Options[0].Options {
					switch option.Name {
					case "message":
						message = option.StringValue()
					case "group":
						group = option.StringValue()
					}
				}
				if message == "" {
					return &UserError{Message: "message option is required"}
				}
				if group == "" {
					group = deps.DefaultGroup
				}

				missing := deps.Vox.Check(group, message)
				return s.InteractionRespond(i.Interaction, presenters.VoxCheck(group, missing))
			},
		},
	}
}

func voxRescanFlow(deps Deps) *Flow {
	return &Flow{
		ID: "vox_rescan",
		Root: &Node{
			ID:      "vox_rescan",
			Matcher: matchSubcommand("vox", "rescan"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				if err := deps.Library.Scan(); err != nil {
					slog.Error("Failed to rescan clip library", "error", err)
					return &UserError{Message: "Rescan failed. Check the clip root on the host."}
				}

				groups := deps.Library.Groups()
				words := 0
				for _, group := range groups {
					words += len(deps.Library.Words(group))
				}

				return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Content: fmt.Sprintf("Rescanned: %d groups, %d words.", len(groups), words),
						Flags:   discordgo.MessageFlagsEphemeral,
					},
				})
			},
		},
	}
}
