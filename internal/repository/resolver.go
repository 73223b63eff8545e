package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cpike5/discordbot-sub011/internal/audio"
	"github.com/cpike5/discordbot-sub011/internal/datalayer"
	"github.com/cpike5/discordbot-sub011/internal/playback"
)

// SoundResolver turns a sound id into a playable local file, fetching
// the blob from object storage into the spool directory on first use.
// Spool files are keyed by sound id and reused while their size still
// matches the stored metadata.
type SoundResolver struct {
	sounds  SoundStore
	storage datalayer.BlobStorage
	spool   string
}

func NewSoundResolver(sounds SoundStore, storage datalayer.BlobStorage, spoolDir string) *SoundResolver {
	return &SoundResolver{
		sounds:  sounds,
		storage: storage,
		spool:   spoolDir,
	}
}

var _ playback.Resolver = (*SoundResolver)(nil)

func (r *SoundResolver) ResolveSound(ctx context.Context, guildID, soundID string) (string, audio.FilterSpec, error) {
	sound, err := r.sounds.Get(ctx, guildID, soundID)
	if err != nil {
		return "", audio.FilterSpec{}, err
	}

	path := filepath.Join(r.spool, sound.ID)
	if info, err := os.Stat(path); err == nil && info.Size() == sound.FileSize {
		return path, sound.Filter, nil
	}

	if err := r.storage.Fetch(ctx, sound.ObjectKey, path); err != nil {
		return "", audio.FilterSpec{}, fmt.Errorf("unable to spool sound %q: %w", soundID, err)
	}
	return path, sound.Filter, nil
}
