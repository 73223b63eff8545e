package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cpike5/discordbot-sub011/internal/schedule"
)

// ErrAnnouncementNotFound indicates a lookup for an announcement that
// does not exist in the guild.
var ErrAnnouncementNotFound = errors.New("announcement not found")

// jobHorizon is how many upcoming run times are materialized per
// announcement. PullDue tops the horizon back up whenever it claims
// runs, so the schedule rolls forward indefinitely.
const jobHorizon = 5

// Announcement schedules a sound to play in a guild on a cron
// expression. An empty ChannelID lets the player pick the most
// attended voice channel at run time.
type Announcement struct {
	ID        string
	GuildID   string
	SoundID   string
	SoundName string
	Cron      string
	ChannelID string
	CreatedAt time.Time
}

// DueRun is one claimed announcement run, ready to be published to the
// job stream.
type DueRun struct {
	AnnouncementID string
	GuildID        string
	SoundID        string
	SoundName      string
	ChannelID      string
	RunTime        time.Time
}

// AnnouncementStore persists scheduled announcements and their
// materialized run times.
type AnnouncementStore interface {
	Save(ctx context.Context, announcement Announcement) error
	List(ctx context.Context, guildID string) ([]Announcement, error)
	Delete(ctx context.Context, guildID, announcementID string) (Announcement, error)
}

type PostgresAnnouncementRepository struct {
	db *pgxpool.Pool
}

func NewPostgresAnnouncementRepository(db *pgxpool.Pool) *PostgresAnnouncementRepository {
	return &PostgresAnnouncementRepository{db: db}
}

var _ AnnouncementStore = (*PostgresAnnouncementRepository)(nil)

// Save upserts the announcement and materializes its next run times in
// the same transaction.
func (r *PostgresAnnouncementRepository) Save(ctx context.Context, announcement Announcement) error {
	const announcementQuery = `
	INSERT INTO announcement (id, guild_id, sound_id, cron, channel_id)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		sound_id = EXCLUDED.sound_id,
		cron = EXCLUDED.cron,
		channel_id = EXCLUDED.channel_id
	`

	const jobsQuery = `
	INSERT INTO announcement_job (announcement_id, run_time)
	SELECT $1, unnest($2::timestamptz[])
	ON CONFLICT (announcement_id, run_time) DO NOTHING
	`

	nextRuns, err := schedule.NextRunTimes(announcement.Cron, jobHorizon)
	if err != nil {
		return fmt.Errorf("failed to get next run times: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	_, err = tx.Exec(ctx, announcementQuery,
		announcement.ID,
		announcement.GuildID,
		announcement.SoundID,
		announcement.Cron,
		announcement.ChannelID,
	)
	if err != nil {
		return fmt.Errorf("failed to save announcement: %w", err)
	}

	if _, err := tx.Exec(ctx, jobsQuery, announcement.ID, nextRuns); err != nil {
		return fmt.Errorf("failed to save announcement jobs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresAnnouncementRepository) List(ctx context.Context, guildID string) ([]Announcement, error) {
	const query = `
	SELECT a.id, a.guild_id, a.sound_id, s.sound_name, a.cron, a.channel_id, a.created_at
	FROM announcement a
	JOIN sound s ON s.id = a.sound_id
	WHERE a.guild_id = $1
	ORDER BY a.created_at
	`

	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	defer rows.Close()

	var announcements []Announcement
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.ID, &a.GuildID, &a.SoundID, &a.SoundName, &a.Cron, &a.ChannelID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan announcement row: %w", err)
		}
		announcements = append(announcements, a)
	}
	return announcements, rows.Err()
}

// Delete removes the announcement and, through cascade, its pending
// runs.
func (r *PostgresAnnouncementRepository) Delete(ctx context.Context, guildID, announcementID string) (Announcement, error) {
	const query = `
	DELETE FROM announcement
	WHERE guild_id = $1 AND id = $2
	RETURNING id, guild_id, sound_id, cron, channel_id, created_at
	`

	var a Announcement
	err := r.db.QueryRow(ctx, query, guildID, announcementID).
		Scan(&a.ID, &a.GuildID, &a.SoundID, &a.Cron, &a.ChannelID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Announcement{}, ErrAnnouncementNotFound
	}
	if err != nil {
		return Announcement{}, fmt.Errorf("failed to delete announcement: %w", err)
	}
	return a, nil
}

// PullDue claims every unclaimed run due before until and returns it.
// Claimed runs are never handed out twice, so concurrent schedulers
// split the work instead of duplicating it. Claiming also tops the
// announcement's materialized horizon back up.
func (r *PostgresAnnouncementRepository) PullDue(ctx context.Context, until time.Time) ([]DueRun, error) {
	const dueQuery = `
	SELECT j.id, a.id, a.guild_id, a.sound_id, s.sound_name, a.cron, a.channel_id, j.run_time
	FROM announcement_job j
	JOIN announcement a ON a.id = j.announcement_id
	JOIN sound s ON s.id = a.sound_id
	WHERE j.claimed_at IS NULL AND j.run_time <= $1
	ORDER BY j.run_time
	FOR UPDATE OF j SKIP LOCKED
	`

	const claimQuery = `
	UPDATE announcement_job SET claimed_at = now() WHERE id = ANY($1)
	`

	const replenishQuery = `
	INSERT INTO announcement_job (announcement_id, run_time)
	SELECT $1, unnest($2::timestamptz[])
	ON CONFLICT (announcement_id, run_time) DO NOTHING
	`

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	rows, err := tx.Query(ctx, dueQuery, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query due runs: %w", err)
	}

	var (
		due     []DueRun
		jobIDs  []int64
		crons   = make(map[string]string)
		horizon = until
	)
	for rows.Next() {
		var (
			jobID int64
			cron  string
			run   DueRun
		)
		if err := rows.Scan(&jobID, &run.AnnouncementID, &run.GuildID, &run.SoundID, &run.SoundName, &cron, &run.ChannelID, &run.RunTime); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan due run: %w", err)
		}
		due = append(due, run)
		jobIDs = append(jobIDs, jobID)
		crons[run.AnnouncementID] = cron
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read due runs: %w", err)
	}

	if len(due) == 0 {
		return nil, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx, claimQuery, jobIDs); err != nil {
		return nil, fmt.Errorf("failed to claim due runs: %w", err)
	}

	for announcementID, cron := range crons {
		nextRuns, err := schedule.NextRunTimesAfter(cron, horizon, jobHorizon)
		if err != nil {
			return nil, fmt.Errorf("failed to expand cron for announcement %s: %w", announcementID, err)
		}
		if _, err := tx.Exec(ctx, replenishQuery, announcementID, nextRuns); err != nil {
			return nil, fmt.Errorf("failed to replenish announcement %s: %w", announcementID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return due, nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Warn("Failed to rollback transaction", "error", err)
	}
}
