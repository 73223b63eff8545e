package vox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/cpike5/discordbot-sub011/internal/audio"
)

// Concater produces one blob from an ordered list of clip files with a
// silence gap between consecutive clips.
type Concater interface {
	Concat(ctx context.Context, paths []string, gap time.Duration) ([]byte, error)
}

// Concatenator synthesizes announcements from a clip library.
type Concatenator struct {
	library    *Library
	cache      *audio.Cache
	concater   Concater
	defaultGap time.Duration
	maxGap     time.Duration
}

func NewConcatenator(library *Library, cache *audio.Cache, concater Concater, defaultGap, maxGap time.Duration) *Concatenator {
	return &Concatenator{
		library:    library,
		cache:      cache,
		concater:   concater,
		defaultGap: defaultGap,
		maxGap:     maxGap,
	}
}

// Synthesize renders message from group's clips, separated by gap of
// silence. A negative gap selects the configured default. Every word
// must resolve; a message with any unknown word fails with
// WordsNotFoundError and renders nothing.
//
// Announcements are cached under the resolved clip paths and the gap,
// so differently-cased or differently-punctuated messages resolving to
// the same clips share one entry. The entries are transient: message
// space is unbounded user input, so they never reach the disk tier.
func (c *Concatenator) Synthesize(ctx context.Context, group, message string, gap time.Duration) (*audio.Lease, error) {
	if !c.library.Ready() {
		return nil, ErrNotReady
	}
	if gap < 0 {
		gap = c.defaultGap
	}
	if gap > c.maxGap {
		return nil, fmt.Errorf("gap %s exceeds the maximum %s", gap, c.maxGap)
	}

	words := Tokenize(message)
	if len(words) == 0 {
		return nil, ErrNoWords
	}

	paths := make([]string, 0, len(words))
	var missing []string
	for _, word := range words {
		path, ok := c.library.Resolve(group, word)
		if !ok {
			missing = append(missing, word)
			continue
		}
		paths = append(paths, path)
	}
	if len(missing) > 0 {
		return nil, &WordsNotFoundError{Group: group, Words: missing}
	}

	key := voxKey(paths, gap)
	return c.cache.GetOrCompute(ctx, key, audio.EntryOptions{Transient: true}, func(ctx context.Context) ([]byte, error) {
		return c.concater.Concat(ctx, paths, gap)
	})
}

// Check reports which of message's words have no clip in group. An
// empty result means Synthesize will resolve every word.
func (c *Concatenator) Check(group, message string) []string {
	var missing []string
	for _, word := range Tokenize(message) {
		if _, ok := c.library.Resolve(group, word); !ok {
			missing = append(missing, word)
		}
	}
	return missing
}

func voxKey(paths []string, gap time.Duration) string {
	h := sha256.New()
	for _, path := range paths {
		io.WriteString(h, path)
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "gap=%d", gap.Milliseconds())
	return "vox:" + hex.EncodeToString(h.Sum(nil))
}
