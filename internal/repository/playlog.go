package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cpike5/discordbot-sub011/internal/playback"
)

// PostgresPlayLog records one row per settled playback item. Recording
// is best-effort: failures are logged and swallowed so the drain loop
// never waits on the database.
type PostgresPlayLog struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresPlayLog(db *pgxpool.Pool, logger *slog.Logger) *PostgresPlayLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresPlayLog{db: db, logger: logger}
}

var _ playback.Journal = (*PostgresPlayLog)(nil)

func (l *PostgresPlayLog) RecordPlayback(ctx context.Context, entry playback.JournalEntry) {
	const query = `
	INSERT INTO play_log (guild_id, requester_id, source, sound_id, vox_message, outcome, error, duration_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	source := "sound"
	var soundID, voxMessage *string
	switch {
	case entry.Item.Sound != nil:
		soundID = &entry.Item.Sound.SoundID
	case entry.Item.Vox != nil:
		source = "vox"
		voxMessage = &entry.Item.Vox.Message
	}

	_, err := l.db.Exec(ctx, query,
		entry.Item.GuildID,
		entry.Item.RequesterID,
		source,
		soundID,
		voxMessage,
		string(entry.Outcome),
		entry.Error,
		entry.Duration.Milliseconds(),
	)
	if err != nil {
		l.logger.Error("failed to record playback", "guild_id", entry.Item.GuildID, "error", err)
	}
}
