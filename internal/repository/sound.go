package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cpike5/discordbot-sub011/internal/audio"
)

// ErrSoundNotFound indicates a lookup for a sound id or name that does
// not exist in the guild's library.
var ErrSoundNotFound = errors.New("sound not found")

// DuplicateNameError indicates a save that would reuse a name already
// taken in the guild.
type DuplicateNameError struct {
	GuildID string
	Name    string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a sound named %q already exists in guild %s", e.Name, e.GuildID)
}

var _ error = (*DuplicateNameError)(nil)

// Sound is one uploaded sound in a guild's library. The blob itself
// lives in object storage under ObjectKey; Filter is the default
// filter spec applied when a playback request carries none.
type Sound struct {
	ID         string
	GuildID    string
	Name       string
	ObjectKey  string
	FileSize   int64
	Filter     audio.FilterSpec
	UploaderID string
	CreatedAt  time.Time
}

// SoundStore persists guild sound libraries.
type SoundStore interface {
	Save(ctx context.Context, sound Sound) error
	List(ctx context.Context, guildID string) ([]Sound, error)
	Get(ctx context.Context, guildID, soundID string) (Sound, error)
	GetByName(ctx context.Context, guildID, name string) (Sound, error)
	Delete(ctx context.Context, guildID, soundID string) (Sound, error)
}

type PostgresSoundRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSoundRepository(db *pgxpool.Pool) *PostgresSoundRepository {
	return &PostgresSoundRepository{db: db}
}

var _ SoundStore = (*PostgresSoundRepository)(nil)

const soundColumns = `id, guild_id, sound_name, object_key, file_size, filter_pitch, filter_echo, filter_distort, uploader_id, created_at`

func scanSound(row pgx.Row) (Sound, error) {
	var s Sound
	err := row.Scan(
		&s.ID,
		&s.GuildID,
		&s.Name,
		&s.ObjectKey,
		&s.FileSize,
		&s.Filter.Pitch,
		&s.Filter.Echo,
		&s.Filter.Distort,
		&s.UploaderID,
		&s.CreatedAt,
	)
	return s, err
}

func (r *PostgresSoundRepository) Save(ctx context.Context, sound Sound) error {
	const query = `
	INSERT INTO sound (id, guild_id, sound_name, object_key, file_size, filter_pitch, filter_echo, filter_distort, uploader_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		sound_name = EXCLUDED.sound_name,
		object_key = EXCLUDED.object_key,
		file_size = EXCLUDED.file_size,
		filter_pitch = EXCLUDED.filter_pitch,
		filter_echo = EXCLUDED.filter_echo,
		filter_distort = EXCLUDED.filter_distort
	`

	_, err := r.db.Exec(ctx, query,
		sound.ID,
		sound.GuildID,
		sound.Name,
		sound.ObjectKey,
		sound.FileSize,
		sound.Filter.Pitch,
		sound.Filter.Echo,
		sound.Filter.Distort,
		sound.UploaderID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return &DuplicateNameError{GuildID: sound.GuildID, Name: sound.Name}
		}
		return fmt.Errorf("failed to save sound: %w", err)
	}
	return nil
}

func (r *PostgresSoundRepository) List(ctx context.Context, guildID string) ([]Sound, error) {
	const query = `
	SELECT ` + soundColumns + `
	FROM sound
	WHERE guild_id = $1
	ORDER BY sound_name
	`

	rows, err := r.db.Query(ctx, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sounds: %w", err)
	}
	defer rows.Close()

	var sounds []Sound
	for rows.Next() {
		s, err := scanSound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sound row: %w", err)
		}
		sounds = append(sounds, s)
	}
	return sounds, rows.Err()
}

func (r *PostgresSoundRepository) Get(ctx context.Context, guildID, soundID string) (Sound, error) {
	const query = `
	SELECT ` + soundColumns + `
	FROM sound
	WHERE guild_id = $1 AND id = $2
	`

	s, err := scanSound(r.db.QueryRow(ctx, query, guildID, soundID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sound{}, ErrSoundNotFound
	}
	if err != nil {
		return Sound{}, fmt.Errorf("failed to get sound: %w", err)
	}
	return s, nil
}

func (r *PostgresSoundRepository) GetByName(ctx context.Context, guildID, name string) (Sound, error) {
	const query = `
	SELECT ` + soundColumns + `
	FROM sound
	WHERE guild_id = $1 AND sound_name = $2
	`

	s, err := scanSound(r.db.QueryRow(ctx, query, guildID, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sound{}, ErrSoundNotFound
	}
	if err != nil {
		return Sound{}, fmt.Errorf("failed to get sound by name: %w", err)
	}
	return s, nil
}

// Delete removes the sound and returns the deleted row so the caller
// can clean up its blob.
func (r *PostgresSoundRepository) Delete(ctx context.Context, guildID, soundID string) (Sound, error) {
	const query = `
	DELETE FROM sound
	WHERE guild_id = $1 AND id = $2
	RETURNING ` + soundColumns + `
	`

	s, err := scanSound(r.db.QueryRow(ctx, query, guildID, soundID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Sound{}, ErrSoundNotFound
	}
	if err != nil {
		return Sound{}, fmt.Errorf("failed to delete sound: %w", err)
	}
	return s, nil
}
