package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/cpike5/discordbot-sub011/internal/presenters"
	"github.com/cpike5/discordbot-sub011/internal/repository"
	"github.com/cpike5/discordbot-sub011/internal/schedule"
	"github.com/cpike5/discordbot-sub011/internal/util"
)

type AnnounceAddRequest struct {
	SoundName string
	Cron      string
	// ChannelID is the voice channel to play in. Empty means the
	// busiest channel at run time.
	ChannelID string
}

func CommandToAnnounceAddRequest(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) (*AnnounceAddRequest, error) {
	var req AnnounceAddRequest

	for _, option := range options {
		switch option.Name {
		case "sound":
			if option.Type != discordgo.ApplicationCommandOptionString {
				return nil, fmt.Errorf("invalid type for sound option")
			}
			req.SoundName = option.StringValue()
		case "cron":
			if option.Type != discordgo.ApplicationCommandOptionString {
				return nil, fmt.Errorf("invalid type for cron option")
			}
			req.Cron = option.StringValue()
		case "channel":
			if option.Type != discordgo.ApplicationCommandOptionChannel {
				return nil, fmt.Errorf("invalid type for channel option")
			}
			if channel := option.ChannelValue(nil); channel != nil {
				req.ChannelID = channel.ID
			}
		}
	}

	if req.SoundName == "" {
		return nil, fmt.Errorf("sound option is required")
	}
	if req.Cron == "" {
		return nil, fmt.Errorf("cron option is required")
	}

	return &req, nil
}

func announceAddFlow(deps Deps) *Flow {
	return &Flow{
		ID: "announce_add",
		Root: &Node{
			ID:      "announce_add",
			Matcher: matchSubcommand("announce", "add"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				req, err := CommandToAnnounceAddRequest(i.ApplicationCommandData().Options[0].Options)
				if err != nil {
					return &UserError{Message: err.Error()}
				}
				if err := schedule.ValidateCron(req.Cron); err != nil {
					return &UserError{Message: err.Error()}
				}

				ctx := context.Background()
				sound, err := deps.Sounds.GetByName(ctx, i.GuildID, req.SoundName)
				if errors.Is(err, repository.ErrSoundNotFound) {
					return &UserError{Message: fmt.Sprintf("No sound named **%s** here.", req.SoundName)}
				}
				if err != nil {
					return err
				}

				id, err := deps.IDs.Next()
				if err != nil {
					return err
				}

				announcement := repository.Announcement{
					ID:        id,
					GuildID:   i.GuildID,
					SoundID:   sound.ID,
					Cron:      req.Cron,
					ChannelID: req.ChannelID,
				}
				if err := deps.Announcements.Save(ctx, announcement); err != nil {
					return err
				}

				return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Content: fmt.Sprintf("Scheduled **%s** on `%s`.", sound.Name, req.Cron),
					},
				})
			},
		},
	}
}

func announceListFlow(deps Deps) *Flow {
	return &Flow{
		ID: "announce_list",
		Root: &Node{
			ID:      "announce_list",
			Matcher: matchSubcommand("announce", "list"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				announcements, err := deps.Announcements.List(context.Background(), i.GuildID)
				if err != nil {
					return err
				}
				return s.InteractionRespond(i.Interaction, presenters.AnnouncementList(announcements))
			},
		},
	}
}

func announceRemoveFlow(deps Deps) *Flow {
	selectNode := &Node{
		ID:      "announce_remove_select",
		Matcher: matchComponent(presenters.ComponentIDAnnounceRemoveSelect),
		Handler: func(s DiscordSession, i *discordgo.InteractionCreate, fctx *FlowContext) error {
			values := i.MessageComponentData().Values
			if len(values) == 0 {
				return nil
			}

			removed, err := deps.Announcements.Delete(context.Background(), i.GuildID, values[0])
			if errors.Is(err, repository.ErrAnnouncementNotFound) {
				return updateMessage(s, i, presenters.PlainUpdate("That announcement is already gone."))
			}
			if err != nil {
				return err
			}

			label := removed.Cron
			stashed, _ := fctx.State["announcements"].([]repository.Announcement)
			match, ok := util.FindFirst(stashed, func(a repository.Announcement) bool {
				return a.ID == removed.ID
			})
			if ok {
				label = fmt.Sprintf("%s (`%s`)", match.SoundName, match.Cron)
			}

			return updateMessage(s, i, presenters.PlainUpdate(fmt.Sprintf("Removed **%s**.", label)))
		},
	}

	return &Flow{
		ID: "announce_remove",
		Root: &Node{
			ID:      "announce_remove",
			Matcher: matchSubcommand("announce", "remove"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, fctx *FlowContext) error {
				announcements, err := deps.Announcements.List(context.Background(), i.GuildID)
				if err != nil {
					return err
				}
				if len(announcements) == 0 {
					fctx.Finish()
					respondEphemeral(s, i, "No announcements to remove.")
					return nil
				}

				fctx.State["announcements"] = announcements
				return s.InteractionRespond(i.Interaction, presenters.AnnounceRemoveSelect(announcements, fctx.InstanceID))
			},
			Next: []*Node{selectNode},
		},
	}
}
