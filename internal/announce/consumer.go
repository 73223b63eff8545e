package announce

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Consumer reads announcement jobs from the stream on behalf of one
// member of the consumer group.
type Consumer struct {
	client *redis.Client
	name   string
	logger *slog.Logger
}

// NewConsumer creates the consumer group if it does not exist yet and
// returns a consumer that reads through it. The group starts at the
// stream tail, so jobs published before the first consumer ever ran
// are not delivered.
func NewConsumer(client *redis.Client, name string, logger *slog.Logger) (*Consumer, error) {
	err := client.XGroupCreateMkStream(context.Background(), Stream, ConsumerGroup, "$").Err()
	if err != nil && err != redis.Nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		client: client,
		name:   name,
		logger: logger,
	}, nil
}

// Run reads jobs and hands each to handle until the context is
// cancelled. Jobs are acked whether or not they parse; a malformed
// entry is logged and skipped rather than redelivered forever.
func (c *Consumer) Run(ctx context.Context, handle func(ctx context.Context, job Job)) error {
	for {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroup,
			Consumer: c.name,
			Streams:  []string{Stream, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err == redis.Nil {
				continue
			}
			c.logger.Error("failed to read announcement jobs", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				job, err := parseJob(message.Values)
				if err != nil {
					c.logger.Warn("skipping malformed announcement job",
						"messageID", message.ID,
						"error", err,
					)
				} else {
					handle(ctx, job)
				}
				if err := c.client.XAck(ctx, Stream, ConsumerGroup, message.ID).Err(); err != nil {
					c.logger.Error("failed to ack announcement job",
						"messageID", message.ID,
						"error", err,
					)
				}
			}
		}
	}
}

func parseJob(values map[string]any) (Job, error) {
	str := func(key string) string {
		s, _ := values[key].(string)
		return s
	}

	job := Job{
		AnnouncementID:  str("announcementID"),
		GuildID:         str("guildID"),
		SoundID:         str("soundID"),
		SoundName:       str("soundName"),
		TargetChannelID: str("targetChannelID"),
	}
	if job.AnnouncementID == "" {
		return Job{}, fmt.Errorf("missing announcementID")
	}
	if job.GuildID == "" {
		return Job{}, fmt.Errorf("missing guildID")
	}
	if job.SoundID == "" {
		return Job{}, fmt.Errorf("missing soundID")
	}

	runAt, err := time.Parse(time.RFC3339, str("runAt"))
	if err != nil {
		return Job{}, fmt.Errorf("bad runAt: %w", err)
	}
	job.RunAt = runAt

	return job, nil
}
