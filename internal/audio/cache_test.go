package audio_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cpike5/discordbot-sub011/internal/audio"
)

// failCompute returns a compute function that fails the test when the
// cache invokes it. Use it to assert that a key is served from a tier.
func failCompute(t *testing.T) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		t.Error("compute invoked for an entry expected to be cached")
		return nil, errors.New("unexpected compute")
	}
}

func fillCompute(calls *atomic.Int32, fill byte, size int) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		calls.Add(1)
		return bytes.Repeat([]byte{fill}, size), nil
	}
}

func TestGetOrComputeCollapsesConcurrentCallers(t *testing.T) {
	cache, err := audio.NewCache(1<<20, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []byte("processed-audio")
	var calls atomic.Int32
	compute := func(context.Context) ([]byte, error) {
		calls.Add(1)
		time.Sleep(25 * time.Millisecond)
		return want, nil
	}

	const n = 16
	results := make([][]byte, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lease, err := cache.GetOrCompute(context.Background(), "snd:same", audio.EntryOptions{}, compute)
			if err != nil {
				t.Error(err)
				return
			}
			defer lease.Release()
			results[i] = bytes.Clone(lease.Bytes())
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly one compute, got %d", got)
	}
	for i, got := range results {
		if !bytes.Equal(got, want) {
			t.Errorf("caller %d received %q, want %q", i, got, want)
		}
	}
}

func TestPinnedEntrySurvivesEviction(t *testing.T) {
	cache, err := audio.NewCache(100, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	var calls atomic.Int32

	pinned, err := cache.GetOrCompute(ctx, "snd:a", audio.EntryOptions{}, fillCompute(&calls, 'a', 60))
	if err != nil {
		t.Fatal(err)
	}

	// Inserting a second entry pushes the tier over capacity, but the
	// pinned entry must not be the one to go.
	second, err := cache.GetOrCompute(ctx, "snd:b", audio.EntryOptions{}, fillCompute(&calls, 'b', 60))
	if err != nil {
		t.Fatal(err)
	}
	second.Release()

	still, err := cache.GetOrCompute(ctx, "snd:a", audio.EntryOptions{}, failCompute(t))
	if err != nil {
		t.Fatal(err)
	}
	still.Release()
	pinned.Release()

	// With the pin gone, the next insertion may evict it.
	third, err := cache.GetOrCompute(ctx, "snd:c", audio.EntryOptions{}, fillCompute(&calls, 'c', 60))
	if err != nil {
		t.Fatal(err)
	}
	third.Release()

	recomputed := false
	again, err := cache.GetOrCompute(ctx, "snd:a", audio.EntryOptions{}, func(context.Context) ([]byte, error) {
		recomputed = true
		return bytes.Repeat([]byte{'a'}, 60), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	again.Release()
	if !recomputed {
		t.Errorf("expected the released entry to have been evicted")
	}
}

func TestEvictionDemotesToDiskAndPromotesBack(t *testing.T) {
	dir := t.TempDir()
	cache, err := audio.NewCache(100, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	var calls atomic.Int32
	want := bytes.Repeat([]byte{'x'}, 60)

	first, err := cache.GetOrCompute(ctx, "snd:first", audio.EntryOptions{}, fillCompute(&calls, 'x', 60))
	if err != nil {
		t.Fatal(err)
	}
	first.Release()

	second, err := cache.GetOrCompute(ctx, "snd:second", audio.EntryOptions{}, fillCompute(&calls, 'y', 60))
	if err != nil {
		t.Fatal(err)
	}
	second.Release()

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one demoted file, found %d", len(files))
	}

	promoted, err := cache.GetOrCompute(ctx, "snd:first", audio.EntryOptions{}, failCompute(t))
	if err != nil {
		t.Fatal(err)
	}
	defer promoted.Release()
	if !bytes.Equal(promoted.Bytes(), want) {
		t.Errorf("promoted blob does not match the original")
	}
}

func TestTransientEntriesSkipDisk(t *testing.T) {
	dir := t.TempDir()
	cache, err := audio.NewCache(100, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	transient := audio.EntryOptions{Transient: true}
	var calls atomic.Int32

	first, err := cache.GetOrCompute(ctx, "vox:one", transient, fillCompute(&calls, '1', 60))
	if err != nil {
		t.Fatal(err)
	}
	first.Release()

	second, err := cache.GetOrCompute(ctx, "vox:two", transient, fillCompute(&calls, '2', 60))
	if err != nil {
		t.Fatal(err)
	}
	second.Release()

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 0 {
		t.Errorf("transient eviction must not touch disk, found %d files", len(files))
	}

	// The evicted entry is gone for good.
	again, err := cache.GetOrCompute(ctx, "vox:one", transient, fillCompute(&calls, '1', 60))
	if err != nil {
		t.Fatal(err)
	}
	again.Release()
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 computes, got %d", got)
	}
}

func TestComputeFailureCachesNothing(t *testing.T) {
	cache, err := audio.NewCache(1<<20, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	boom := errors.New("boom")
	var calls atomic.Int32
	_, err = cache.GetOrCompute(ctx, "snd:flaky", audio.EntryOptions{}, func(context.Context) ([]byte, error) {
		calls.Add(1)
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}

	lease, err := cache.GetOrCompute(ctx, "snd:flaky", audio.EntryOptions{}, func(context.Context) ([]byte, error) {
		calls.Add(1)
		return []byte("recovered"), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	defer lease.Release()
	if got := calls.Load(); got != 2 {
		t.Errorf("expected the failed compute to be retried, got %d calls", got)
	}
	if !bytes.Equal(lease.Bytes(), []byte("recovered")) {
		t.Errorf("unexpected blob %q", lease.Bytes())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	cache, err := audio.NewCache(100, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	var calls atomic.Int32

	lease, err := cache.GetOrCompute(ctx, "snd:a", audio.EntryOptions{}, fillCompute(&calls, 'a', 60))
	if err != nil {
		t.Fatal(err)
	}
	lease.Release()
	lease.Release()

	// Re-pin the entry. If the double release had driven the count
	// negative, the pin below would not protect it.
	pinned, err := cache.GetOrCompute(ctx, "snd:a", audio.EntryOptions{}, failCompute(t))
	if err != nil {
		t.Fatal(err)
	}
	defer pinned.Release()

	over, err := cache.GetOrCompute(ctx, "snd:b", audio.EntryOptions{}, fillCompute(&calls, 'b', 60))
	if err != nil {
		t.Fatal(err)
	}
	over.Release()

	still, err := cache.GetOrCompute(ctx, "snd:a", audio.EntryOptions{}, failCompute(t))
	if err != nil {
		t.Fatal(err)
	}
	still.Release()
}

func TestCancelledFlightRetriesForSurvivors(t *testing.T) {
	cache, err := audio.NewCache(1<<20, "", nil)
	if err != nil {
		t.Fatal(err)
	}

	type result struct {
		blob []byte
		err  error
	}

	entered := make(chan struct{}, 2)
	finish := make(chan struct{})
	var calls atomic.Int32
	compute := func(ctx context.Context) ([]byte, error) {
		calls.Add(1)
		entered <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-finish:
			return []byte("late"), nil
		}
	}

	winnerCtx, cancelWinner := context.WithCancel(context.Background())
	winner := make(chan result, 1)
	go func() {
		_, err := cache.GetOrCompute(winnerCtx, "snd:slow", audio.EntryOptions{}, compute)
		winner <- result{err: err}
	}()
	<-entered

	survivor := make(chan result, 1)
	go func() {
		lease, err := cache.GetOrCompute(context.Background(), "snd:slow", audio.EntryOptions{}, compute)
		if err != nil {
			survivor <- result{err: err}
			return
		}
		defer lease.Release()
		survivor <- result{blob: bytes.Clone(lease.Bytes())}
	}()

	// Let the survivor join the in-flight computation, then cancel its
	// owner out from under it.
	time.Sleep(20 * time.Millisecond)
	cancelWinner()

	if res := <-winner; !errors.Is(res.err, context.Canceled) {
		t.Errorf("winner: expected context.Canceled, got %v", res.err)
	}

	<-entered
	close(finish)

	res := <-survivor
	if res.err != nil {
		t.Fatalf("survivor: %v", res.err)
	}
	if !bytes.Equal(res.blob, []byte("late")) {
		t.Errorf("survivor received %q, want %q", res.blob, "late")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("expected 2 computes, got %d", got)
	}
}
