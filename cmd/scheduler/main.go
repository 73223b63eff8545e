package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cpike5/discordbot-sub011/internal/announce"
	"github.com/cpike5/discordbot-sub011/internal/config"
	"github.com/cpike5/discordbot-sub011/internal/datalayer"
	"github.com/cpike5/discordbot-sub011/internal/repository"
)

// The scheduler claims announcement runs due within the next minute and
// publishes them to the job stream. Claims are exclusive, so extra
// replicas split the work.
const (
	pollInterval = 27 * time.Second
	lookahead    = time.Minute
)

func runSchedulerForever() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	announcements := repository.NewPostgresAnnouncementRepository(pool)
	publisher := announce.NewPublisher(rdb)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		due, err := announcements.PullDue(ctx, time.Now().Add(lookahead))
		if err != nil {
			slog.Error("failed to pull due announcements", "error", err)
			continue
		}
		if len(due) == 0 {
			continue
		}

		jobs := make([]announce.Job, 0, len(due))
		for _, run := range due {
			jobs = append(jobs, announce.Job{
				AnnouncementID:  run.AnnouncementID,
				GuildID:         run.GuildID,
				SoundID:         run.SoundID,
				SoundName:       run.SoundName,
				TargetChannelID: run.ChannelID,
				RunAt:           run.RunTime,
			})
		}
		if err := publisher.Publish(ctx, jobs...); err != nil {
			slog.Error("failed to publish announcement jobs", "error", err)
			continue
		}
		slog.Info("Published announcement jobs", "count", len(jobs))
	}
}

func main() {
	if err := runSchedulerForever(); err != nil {
		slog.Error("Scheduler encountered an error", slog.Any("error", err))
		os.Exit(1)
	}
}
