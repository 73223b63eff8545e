package announce

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Publisher appends announcement jobs to the stream.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish appends the given jobs in one round trip.
func (p *Publisher) Publish(ctx context.Context, jobs ...Job) error {
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, job := range jobs {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: Stream,
				Values: map[string]any{
					"announcementID":  job.AnnouncementID,
					"guildID":         job.GuildID,
					"soundID":         job.SoundID,
					"soundName":       job.SoundName,
					"targetChannelID": job.TargetChannelID,
					"runAt":           job.RunAt.Format(time.RFC3339),
				},
			})
		}
		return nil
	})
	return err
}
