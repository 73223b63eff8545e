package audio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Transcoder produces a processed audio blob from a source file with a
// set of ffmpeg audio filters applied.
type Transcoder interface {
	Transcode(ctx context.Context, path string, filters []string) ([]byte, error)
}

// Pipeline turns raw sound files into playable blobs, applying filter
// specs through the transcoder and caching the results by content.
type Pipeline struct {
	cache      *Cache
	transcoder Transcoder
}

func NewPipeline(cache *Cache, transcoder Transcoder) *Pipeline {
	return &Pipeline{
		cache:      cache,
		transcoder: transcoder,
	}
}

// Process returns a lease on the processed form of the sound at path.
// The cache key covers the file's content and the canonical filter
// key, so renamed copies and equivalent specs share one entry.
func (p *Pipeline) Process(ctx context.Context, path string, spec FilterSpec) (*Lease, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	sum, err := hashFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to hash source file: %w", err)
	}
	key := soundKey(sum, spec)
	return p.cache.GetOrCompute(ctx, key, EntryOptions{}, func(ctx context.Context) ([]byte, error) {
		return p.transcoder.Transcode(ctx, path, spec.Args())
	})
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

func soundKey(contentSum []byte, spec FilterSpec) string {
	h := sha256.New()
	h.Write(contentSum)
	io.WriteString(h, spec.Key())
	return "snd:" + hex.EncodeToString(h.Sum(nil))
}
