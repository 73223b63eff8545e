package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"github.com/cpike5/discordbot-sub011/internal/audio"
	"github.com/cpike5/discordbot-sub011/internal/playback"
	"github.com/cpike5/discordbot-sub011/internal/presenters"
	"github.com/cpike5/discordbot-sub011/internal/repository"
	"github.com/cpike5/discordbot-sub011/internal/util"
)

// soundObjectPrefix namespaces uploaded sound blobs in object storage.
const soundObjectPrefix = "sounds"

type PlaySoundRequest struct {
	Name    string
	Filter  audio.FilterSpec
	Replace bool
}

func CommandToPlayRequest(
	options []*discordgo.ApplicationCommandInteractionDataOption,
) (*PlaySoundRequest, error) {
	var req PlaySoundRequest

	for _, option := range options {
		switch option.Name {
		case "name":
			if option.Type != discordgo.ApplicationCommandOptionString {
				return nil, fmt.Errorf("invalid type for name option")
			}
			req.Name = option.StringValue()
		case "replace":
			if option.Type != discordgo.ApplicationCommandOptionBoolean {
				return nil, fmt.Errorf("invalid type for replace option")
			}
			req.Replace = option.BoolValue()
		case "pitch":
			if option.Type != discordgo.ApplicationCommandOptionNumber {
				return nil, fmt.Errorf("invalid type for pitch option")
			}
			req.Filter.Pitch = option.FloatValue()
		case "echo":
			if option.Type != discordgo.ApplicationCommandOptionBoolean {
				return nil, fmt.Errorf("invalid type for echo option")
			}
			req.Filter.Echo = option.BoolValue()
		case "distort":
			if option.Type != discordgo.ApplicationCommandOptionBoolean {
				return nil, fmt.Errorf("invalid type for distort option")
			}
			req.Filter.Distort = option.BoolValue()
		}
	}

	if req.Name == "" {
		return nil, fmt.Errorf("name option is required")
	}
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}

type AddSoundRequest struct {
	Attachment *discordgo.MessageAttachment
	Name       string
	Filter     audio.FilterSpec
}

func CommandToAddSoundRequest(
	attachments map[string]*discordgo.MessageAttachment,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) (*AddSoundRequest, error) {
	attachment, err := util.GetOne(attachments)
	if err != nil {
		return nil, err
	}

	var req AddSoundRequest
	req.Attachment = attachment

	for _, option := range options {
		switch option.Name {
		case "name":
			if option.Type != discordgo.ApplicationCommandOptionString {
				return nil, fmt.Errorf("invalid type for name option")
			}
			req.Name = option.StringValue()
		case "pitch":
			if option.Type != discordgo.ApplicationCommandOptionNumber {
				return nil, fmt.Errorf("invalid type for pitch option")
			}
			req.Filter.Pitch = option.FloatValue()
		case "echo":
			if option.Type != discordgo.ApplicationCommandOptionBoolean {
				return nil, fmt.Errorf("invalid type for echo option")
			}
			req.Filter.Echo = option.BoolValue()
		case "distort":
			if option.Type != discordgo.ApplicationCommandOptionBoolean {
				return nil, fmt.Errorf("invalid type for distort option")
			}
			req.Filter.Distort = option.BoolValue()
		}
	}

	if req.Name == "" {
		name := attachment.Filename
		req.Name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}

func soundPlayFlow(deps Deps) *Flow {
	return &Flow{
		ID: "sound_play",
		Root: &Node{
			ID:      "sound_play",
			Matcher: matchSubcommand("sound", "play"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				req, err := CommandToPlayRequest(i.ApplicationCommandData().Options[0].Options)
				if err != nil {
					return &UserError{Message: err.Error()}
				}

				userID := interactionUserID(i)
				channelID, ok := deps.Locator(i.GuildID, userID)
				if !ok {
					return &UserError{Message: "Join a voice channel first."}
				}

				sound, err := deps.Sounds.GetByName(context.Background(), i.GuildID, req.Name)
				if errors.Is(err, repository.ErrSoundNotFound) {
					return &UserError{Message: fmt.Sprintf("No sound named **%s** here.", req.Name)}
				}
				if err != nil {
					return err
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
					Sound:       &playback.SoundSource{SoundID: sound.ID},
					Filter:      req.Filter,
					EnqueuedAt:  time.Now(),
				}
				if err := deps.Player.Enqueue(item); err != nil {
					var full *playback.QueueFullError
					if errors.As(err, &full) {
						return &UserError{Message: fmt.Sprintf("The queue is full (%d items).", full.Limit)}
					}
					return err
				}

				content := fmt.Sprintf("Queued **%s**.", sound.Name)
				if mode == playback.ModeReplace {
					content = fmt.Sprintf("Playing **%s**.", sound.Name)
				}
				return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Content: content,
					},
				})
			},
		},
	}
}

func soundAddFlow(deps Deps) *Flow {
	piper := &AudioPiper{
		blobStorage: deps.Storage,
		httpClient:  deps.HTTPClient,
		prefix:      soundObjectPrefix,
	}

	return &Flow{
		ID: "sound_add",
		Root: &Node{
			ID:      "sound_add",
			Matcher: matchSubcommand("sound", "add"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				data := i.ApplicationCommandData()
				req, err := CommandToAddSoundRequest(data.Resolved.Attachments, data.Options[0].Options)
				if err != nil {
					return &UserError{Message: err.Error()}
				}

				// The download/upload round trip can blow the interaction
				// deadline, so acknowledge now and edit later.
				err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
					Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
					Data: &discordgo.InteractionResponseData{
						Flags: discordgo.MessageFlagsEphemeral,
					},
				})
				if err != nil {
					return fmt.Errorf("failed to defer response: %w", err)
				}

				content := addSound(deps, piper, i, req)
				_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
					Content: &content,
				})
				return err
			},
		},
	}
}

// addSound runs the storage checks, pipes the attachment into blob
// storage and saves the metadata row. It returns user-facing result
// text because the interaction is already deferred.
func addSound(deps Deps, piper *AudioPiper, i *discordgo.InteractionCreate, req *AddSoundRequest) string {
	ctx := context.Background()

	sounds, err := deps.Sounds.List(ctx, i.GuildID)
	if err != nil {
		slog.Error("Failed to list sounds", "guildID", i.GuildID, "error", err)
		return "Something went wrong."
	}
	for _, sound := range sounds {
		if sound.Name == req.Name {
			return fmt.Sprintf("A sound named **%s** already exists.", req.Name)
		}
	}

	size := int64(req.Attachment.Size)
	if err := CheckStorageAvailable(sounds, size, MaxStorageSize); err != nil {
		var limit *StorageLimitError
		if errors.As(err, &limit) {
			return fmt.Sprintf(
				"Not enough space: %s of %s used, this file needs %s.",
				humanize.Bytes(uint64(limit.Current)),
				humanize.Bytes(uint64(limit.Max)),
				humanize.Bytes(uint64(limit.Requested)),
			)
		}
		slog.Error("Failed to check storage", "guildID", i.GuildID, "error", err)
		return "Something went wrong."
	}

	id, err := deps.IDs.Next()
	if err != nil {
		slog.Error("Failed to generate sound ID", "error", err)
		return "Something went wrong."
	}

	if err := piper.Pipe(ctx, id, req.Attachment.ProxyURL); err != nil {
		slog.Error("Failed to pipe audio", "url", req.Attachment.ProxyURL, "error", err)
		return "Couldn't fetch that attachment."
	}

	sound := repository.Sound{
		ID:         id,
		GuildID:    i.GuildID,
		Name:       req.Name,
		ObjectKey:  soundObjectPrefix + "/" + id,
		FileSize:   size,
		Filter:     req.Filter,
		UploaderID: interactionUserID(i),
	}
	if err := deps.Sounds.Save(ctx, sound); err != nil {
		removeBlob(deps, sound.ObjectKey)

		var dup *repository.DuplicateNameError
		if errors.As(err, &dup) {
			return fmt.Sprintf("A sound named **%s** already exists.", req.Name)
		}
		slog.Error("Failed to save sound", "guildID", i.GuildID, "error", err)
		return "Something went wrong."
	}

	return fmt.Sprintf("Added **%s** (%s).", sound.Name, humanize.Bytes(uint64(sound.FileSize)))
}

func removeBlob(deps Deps, objectKey string) {
	if err := deps.Storage.Remove(context.Background(), objectKey); err != nil {
		slog.Warn("Failed to remove sound blob", "objectKey", objectKey, "error", err)
	}
}

func soundListFlow(deps Deps) *Flow {
	return &Flow{
		ID: "sound_list",
		Root: &Node{
			ID:      "sound_list",
			Matcher: matchSubcommand("sound", "list"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				sounds, err := deps.Sounds.List(context.Background(), i.GuildID)
				if err != nil {
					return err
				}
				return s.InteractionRespond(i.Interaction, presenters.SoundList(sounds))
			},
		},
	}
}

func soundRemoveFlow(deps Deps) *Flow {
	confirm := &Node{
		ID:      "sound_remove_confirm",
		Matcher: matchComponent(presenters.ComponentIDSoundRemoveConfirm),
		Handler: func(s DiscordSession, i *discordgo.InteractionCreate, fctx *FlowContext) error {
			soundID, _ := fctx.State["soundID"].(string)
			if soundID == "" {
				return updateMessage(s, i, presenters.PlainUpdate("Nothing selected."))
			}

			sound, err := deps.Sounds.Delete(context.Background(), i.GuildID, soundID)
			if errors.Is(err, repository.ErrSoundNotFound) {
				return updateMessage(s, i, presenters.PlainUpdate("That sound is already gone."))
			}
			if err != nil {
				return err
			}
			removeBlob(deps, sound.ObjectKey)

			return updateMessage(s, i, presenters.PlainUpdate(fmt.Sprintf("Removed **%s**.", sound.Name)))
		},
	}

	cancel := &Node{
		ID:      "sound_remove_cancel",
		Matcher: matchComponent(presenters.ComponentIDSoundRemoveCancel),
		Handler: func(s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
			return updateMessage(s, i, presenters.PlainUpdate("Cancelled."))
		},
	}

	selectNode := &Node{
		ID:      "sound_remove_select",
		Matcher: matchComponent(presenters.ComponentIDSoundRemoveSelect),
		Handler: func(s DiscordSession, i *discordgo.InteractionCreate, fctx *FlowContext) error {
			values := i.MessageComponentData().Values
			if len(values) == 0 {
				return nil
			}

			sound, err := deps.Sounds.Get(context.Background(), i.GuildID, values[0])
			if errors.Is(err, repository.ErrSoundNotFound) {
				fctx.Finish()
				return updateMessage(s, i, presenters.PlainUpdate("That sound is already gone."))
			}
			if err != nil {
				return err
			}

			fctx.State["soundID"] = sound.ID
			return updateMessage(s, i, presenters.SoundRemoveConfirm(sound.Name, fctx.InstanceID))
		},
		Next: []*Node{confirm, cancel},
	}

	return &Flow{
		ID: "sound_remove",
		Root: &Node{
			ID:      "sound_remove",
			Matcher: matchSubcommand("sound", "remove"),
			Handler: func(s DiscordSession, i *discordgo.InteractionCreate, fctx *FlowContext) error {
				sounds, err := deps.Sounds.List(context.Background(), i.GuildID)
				if err != nil {
					return err
				}
				if len(sounds) == 0 {
					fctx.Finish()
					respondEphemeral(s, i, "No sounds to remove.")
					return nil
				}
				return s.InteractionRespond(i.Interaction, presenters.SoundRemoveSelect(sounds, fctx.InstanceID))
			},
			Next: []*Node{selectNode},
		},
	}
}
