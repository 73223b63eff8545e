// Package audio turns raw sound files into playable blobs and caches
// the results.
//
// The cache is two-tiered. Tier 1 is a bounded in-memory LRU holding
// hot blobs; entries evicted from it are demoted to files on disk
// (tier 2) and promoted back on their next use. Entries are pinned by
// a Lease while streaming and are never evicted while a lease on them
// is outstanding. Concurrent requests for the same uncached key
// collapse into a single computation.
package audio
