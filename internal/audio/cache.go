package audio

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// EntryOptions control how a cache entry is managed after insertion.
type EntryOptions struct {
	// Transient entries live in the memory tier only. Evicting one
	// discards it instead of demoting it to disk.
	Transient bool
}

// A Lease is a pinned reference to a cached blob. The underlying entry
// cannot be evicted while at least one lease on it is outstanding, so
// callers must Release once they are done streaming.
type Lease struct {
	cache *Cache
	entry *entry
	once  sync.Once
}

// Bytes returns the cached blob. The returned slice must not be
// modified.
func (l *Lease) Bytes() []byte {
	return l.entry.blob
}

// Release unpins the entry. Calling Release more than once is a no-op.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.cache.release(l.entry)
	})
}

type entry struct {
	key       string
	blob      []byte
	size      int64
	refs      int
	transient bool
	elem      *list.Element
}

// Cache is a two-tier content-addressed cache for processed audio
// blobs, safe for concurrent use.
type Cache struct {
	capacity int64
	diskPath string
	logger   *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List
	size    int64
}

// NewCache creates a cache whose memory tier holds at most
// capacityBytes of unpinned blobs. diskPath is the directory backing
// the disk tier; pass an empty string to disable it, in which case
// evicted entries are simply discarded.
func NewCache(capacityBytes int64, diskPath string, logger *slog.Logger) (*Cache, error) {
	if capacityBytes <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacityBytes)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if diskPath != "" {
		if err := os.MkdirAll(diskPath, 0o755); err != nil {
			return nil, fmt.Errorf("unable to create disk cache directory: %w", err)
		}
	}
	return &Cache{
		capacity: capacityBytes,
		diskPath: diskPath,
		logger:   logger,
		entries:  make(map[string]*entry),
		lru:      list.New(),
	}, nil
}

// GetOrCompute returns a lease on the blob stored under key. On a
// memory-tier miss it consults the disk tier, then falls back to
// compute. Concurrent callers for the same key share a single
// computation; compute runs with the context of the caller that
// started the flight, and if that caller is cancelled mid-computation
// one retry is attempted on behalf of the survivors.
func (c *Cache) GetOrCompute(ctx context.Context, key string, opts EntryOptions, compute func(context.Context) ([]byte, error)) (*Lease, error) {
	if lease := c.acquireResident(key); lease != nil {
		return lease, nil
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		ch := c.group.DoChan(key, func() (any, error) {
			return c.load(ctx, key, opts, compute)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return c.acquire(key, res.Val.([]byte), opts), nil
			}
			if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
				// The flight's owner bailed out; ours is still live.
				lastErr = res.Err
				continue
			}
			return nil, res.Err
		}
	}
	return nil, lastErr
}

// load produces the blob for key outside the memory tier's fast path.
// It runs inside a singleflight flight, so at most one load per key is
// active at a time.
func (c *Cache) load(ctx context.Context, key string, opts EntryOptions, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	// A racing caller may have inserted the entry after our fast-path
	// miss but before this flight started.
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		blob := e.blob
		c.mu.Unlock()
		return blob, nil
	}
	c.mu.Unlock()

	if c.diskPath != "" && !opts.Transient {
		blob, err := os.ReadFile(c.diskFile(key))
		if err == nil {
			c.logger.Debug("promoting cache entry from disk", "key", key, "bytes", len(blob))
			return blob, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("unable to read disk cache entry", "key", key, "error", err)
		}
	}

	return compute(ctx)
}

// acquireResident pins and returns the entry for key if it is in the
// memory tier, or nil.
func (c *Cache) acquireResident(key string) *Lease {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	e.refs++
	c.lru.MoveToFront(e.elem)
	return &Lease{cache: c, entry: e}
}

// acquire pins key's entry, inserting the freshly loaded blob unless a
// racing caller already did.
func (c *Cache) acquire(key string, blob []byte, opts EntryOptions) *Lease {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.refs++
		c.lru.MoveToFront(e.elem)
		c.mu.Unlock()
		return &Lease{cache: c, entry: e}
	}

	e := &entry{
		key:       key,
		blob:      blob,
		size:      int64(len(blob)),
		refs:      1,
		transient: opts.Transient,
	}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	c.size += e.size
	victims := c.evictLocked()
	c.mu.Unlock()

	c.demote(victims)
	return &Lease{cache: c, entry: e}
}

func (c *Cache) release(e *entry) {
	c.mu.Lock()
	if e.refs > 0 {
		e.refs--
	}
	var victims []*entry
	if e.refs == 0 && c.size > c.capacity {
		victims = c.evictLocked()
	}
	c.mu.Unlock()

	c.demote(victims)
}

// evictLocked removes unpinned entries from the cold end of the LRU
// until the memory tier fits its capacity again. Pinned entries are
// skipped, so the tier may overshoot while large blobs are streaming.
// Callers must hold c.mu and demote the returned victims after
// unlocking.
func (c *Cache) evictLocked() []*entry {
	var victims []*entry
	elem := c.lru.Back()
	for c.size > c.capacity && elem != nil {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		if e.refs == 0 {
			c.lru.Remove(elem)
			delete(c.entries, e.key)
			c.size -= e.size
			victims = append(victims, e)
		}
		elem = prev
	}
	return victims
}

func (c *Cache) demote(victims []*entry) {
	for _, e := range victims {
		if e.transient || c.diskPath == "" {
			c.logger.Debug("evicted cache entry", "key", e.key, "bytes", e.size)
			continue
		}
		if err := c.writeDisk(e.key, e.blob); err != nil {
			c.logger.Warn("unable to demote cache entry to disk", "key", e.key, "error", err)
			continue
		}
		c.logger.Debug("demoted cache entry to disk", "key", e.key, "bytes", e.size)
	}
}

// writeDisk persists a blob to the disk tier. The write goes through a
// temp file and a rename so concurrent readers never observe a partial
// file.
func (c *Cache) writeDisk(key string, blob []byte) error {
	path := c.diskFile(key)
	if _, err := os.Stat(path); err == nil {
		// Keys are content-addressed, so an existing file already
		// holds these bytes.
		return nil
	}
	tmp, err := os.CreateTemp(c.diskPath, ".demote-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Cache) diskFile(key string) string {
	return filepath.Join(c.diskPath, strings.ReplaceAll(key, ":", "-")+".bin")
}
