// Package vox synthesizes spoken announcements by concatenating
// pre-recorded word clips.
//
// A clip root contains one directory per clip group, each holding
// word-named audio files (vox/hello.wav resolves the word "hello" in
// group "vox"). Library scans the tree into an immutable snapshot
// that a rescan swaps atomically, so readers always observe a
// complete mapping. Concatenator tokenizes a message, resolves every
// word against the snapshot and renders the clip sequence through the
// transcoder, caching results under the resolved clip paths and gap
// rather than the raw message text.
package vox
