package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"

	"github.com/cpike5/discordbot-sub011/internal/announce"
	"github.com/cpike5/discordbot-sub011/internal/audio"
	"github.com/cpike5/discordbot-sub011/internal/config"
	"github.com/cpike5/discordbot-sub011/internal/datalayer"
	"github.com/cpike5/discordbot-sub011/internal/generator"
	"github.com/cpike5/discordbot-sub011/internal/handler"
	"github.com/cpike5/discordbot-sub011/internal/playback"
	"github.com/cpike5/discordbot-sub011/internal/repository"
	"github.com/cpike5/discordbot-sub011/internal/schedule"
	"github.com/cpike5/discordbot-sub011/internal/transcode"
	"github.com/cpike5/discordbot-sub011/internal/voice"
	"github.com/cpike5/discordbot-sub011/internal/vox"
)

func runBotForever() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}
	audioConfig, err := config.NewAudioConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load audio config: %w", err)
	}
	voxConfig, err := config.NewVoxConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load vox config: %w", err)
	}
	playbackConfig, err := config.NewPlaybackConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load playback config: %w", err)
	}
	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}

	pool, err := datalayer.NewPostgresPoolFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	if err := datalayer.MigratePostgres(pool); err != nil {
		return fmt.Errorf("failed to migrate postgres: %w", err)
	}

	minioStorage, err := datalayer.NewMinioStorageFromEnv()
	if err != nil {
		return fmt.Errorf("failed to create minio storage: %w", err)
	}
	if err := minioStorage.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure minio bucket: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	sounds := repository.NewPostgresSoundRepository(pool)
	announcements := repository.NewPostgresAnnouncementRepository(pool)
	playLog := repository.NewPostgresPlayLog(pool, nil)
	resolver := repository.NewSoundResolver(sounds, minioStorage, audioConfig.SpoolDir)

	cache, err := audio.NewCache(audioConfig.CacheCapacityBytes, audioConfig.DiskCachePath, nil)
	if err != nil {
		return fmt.Errorf("failed to create audio cache: %w", err)
	}
	ffmpeg := &transcode.FFmpeg{
		Path:    audioConfig.FFmpegPath,
		Timeout: audioConfig.FFmpegTimeout,
	}
	pipeline := audio.NewPipeline(cache, ffmpeg)

	library := vox.NewLibrary(voxConfig.ClipRoot)
	if err := library.Scan(); err != nil {
		slog.Warn("Clip library scan failed, vox commands are degraded until a rescan", "root", voxConfig.ClipRoot, "error", err)
	}
	concatenator := vox.NewConcatenator(
		library,
		cache,
		ffmpeg,
		time.Duration(voxConfig.DefaultGapMS)*time.Millisecond,
		time.Duration(voxConfig.MaxGapMS)*time.Millisecond,
	)

	// The session and the interaction handler need each other, so the
	// registered handler indirects through a variable assigned below.
	var interactions func(handler.DiscordSession, *discordgo.InteractionCreate)
	session, err := handler.NewSession(discordConfig.Token, handler.Handlers{
		Ready: handler.ReadyLog,
		InteractionCreate: func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			interactions(s, i)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	player := playback.NewManager(playback.ManagerOptions{
		Voice:          voice.NewManager(voice.NewDiscordDialer(session), nil),
		Resolver:       resolver,
		Pipeline:       pipeline,
		Synthesizer:    concatenator,
		Journal:        playLog,
		MaxQueueLength: playbackConfig.MaxQueueLength,
		IdleWindow:     playbackConfig.IdleWindow,
	})
	defer player.Shutdown()

	ids := &generator.UUIDV4Generator{}
	interactions = handler.NewInteractionHandler(handler.Deps{
		Sounds:        sounds,
		Announcements: announcements,
		Storage:       minioStorage,
		Player:        player,
		Vox:           concatenator,
		Library:       library,
		Locator:       voiceStateLocator(session),
		DefaultGroup:  voxConfig.DefaultGroup,
		IDs:           ids,
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	// An empty guild ID establishes the commands globally.
	if err := handler.EstablishCommands(session, discordConfig.GuildID); err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}

	consumerName, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}
	consumer, err := announce.NewConsumer(rdb, consumerName, nil)
	if err != nil {
		return fmt.Errorf("failed to create announcement consumer: %w", err)
	}
	go func() {
		if err := consumer.Run(ctx, playAnnouncement(session, player, ids)); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Announcement consumer stopped", "error", err)
		}
	}()

	<-ctx.Done()
	return nil
}

// voiceStateLocator finds the voice channel a user occupies from the
// session's cached guild voice states.
func voiceStateLocator(session *discordgo.Session) handler.ChannelLocator {
	return func(guildID, userID string) (string, bool) {
		state, err := session.State.VoiceState(guildID, userID)
		if err != nil || state.ChannelID == "" {
			return "", false
		}
		return state.ChannelID, true
	}
}

// playAnnouncement holds each job until its run time, picks a channel
// and enqueues a normal queue-mode item. Jobs without a target channel
// play in the most attended voice channel at run time; a guild with
// nobody in voice skips the run.
func playAnnouncement(session *discordgo.Session, player *playback.Manager, ids generator.Generator[string]) func(context.Context, announce.Job) {
	return func(ctx context.Context, job announce.Job) {
		schedule.RunAt(ctx, job.RunAt, func(ctx context.Context) {
			channelID := job.TargetChannelID
			if channelID == "" {
				guild, err := session.State.Guild(job.GuildID)
				if err != nil {
					slog.Error("Failed to look up guild for announcement", "guildID", job.GuildID, "error", err)
					return
				}
				channelID = voice.MaxAttendedChannel(guild)
			}
			if channelID == "" {
				slog.Info("Skipping announcement, no attended voice channel", "guildID", job.GuildID, "soundName", job.SoundName)
				return
			}

			id, err := ids.Next()
			if err != nil {
				slog.Error("Failed to generate item ID", "error", err)
				return
			}

			err = player.Enqueue(playback.Item{
				ID:         id,
				GuildID:    job.GuildID,
				ChannelID:  channelID,
				Mode:       playback.ModeQueue,
				Sound:      &playback.SoundSource{SoundID: job.SoundID},
				EnqueuedAt: time.Now(),
			})
			if err != nil {
				slog.Error("Failed to enqueue announcement", "guildID", job.GuildID, "soundName", job.SoundName, "error", err)
			}
		})
	}
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
