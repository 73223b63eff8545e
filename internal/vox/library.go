package vox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
)

// Library maps (clip group, normalized word) to clip file paths. It is
// safe for concurrent use: the mapping is an immutable snapshot
// replaced wholesale by Scan.
type Library struct {
	root     string
	snapshot atomic.Pointer[snapshot]
}

type snapshot struct {
	groups map[string]map[string]string
}

// NewLibrary creates an unscanned library over the clip root. Call
// Scan before resolving.
func NewLibrary(root string) *Library {
	return &Library{root: root}
}

// Scan walks the clip root and swaps in a fresh snapshot. Each
// subdirectory of the root is a clip group; each file inside it maps
// its normalized base name to the file. Files that normalize to an
// empty word and empty groups are skipped.
func (l *Library) Scan() error {
	dirs, err := os.ReadDir(l.root)
	if err != nil {
		return fmt.Errorf("unable to read clip root: %w", err)
	}

	groups := make(map[string]map[string]string)
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		group := dir.Name()
		files, err := os.ReadDir(filepath.Join(l.root, group))
		if err != nil {
			return fmt.Errorf("unable to read clip group %q: %w", group, err)
		}

		words := make(map[string]string)
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			name := file.Name()
			word := Normalize(strings.TrimSuffix(name, filepath.Ext(name)))
			if word == "" {
				continue
			}
			words[word] = filepath.Join(l.root, group, name)
		}
		if len(words) > 0 {
			groups[group] = words
		}
	}

	l.snapshot.Store(&snapshot{groups: groups})
	return nil
}

// Ready reports whether the library has been scanned at least once.
func (l *Library) Ready() bool {
	return l.snapshot.Load() != nil
}

// Resolve returns the clip file for word within group. The word is
// normalized before lookup.
func (l *Library) Resolve(group, word string) (string, bool) {
	snap := l.snapshot.Load()
	if snap == nil {
		return "", false
	}
	words, ok := snap.groups[group]
	if !ok {
		return "", false
	}
	path, ok := words[Normalize(word)]
	return path, ok
}

// Groups returns the known clip groups in sorted order.
func (l *Library) Groups() []string {
	snap := l.snapshot.Load()
	if snap == nil {
		return nil
	}
	groups := make([]string, 0, len(snap.groups))
	for group := range snap.groups {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

// Words returns the resolvable words of a group in sorted order.
func (l *Library) Words(group string) []string {
	snap := l.snapshot.Load()
	if snap == nil {
		return nil
	}
	clips, ok := snap.groups[group]
	if !ok {
		return nil
	}
	words := make([]string, 0, len(clips))
	for word := range clips {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

// Normalize lowercases a token and strips everything but letters and
// digits.
func Normalize(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tokenize splits a message into normalized words, dropping tokens
// that normalize to nothing.
func Tokenize(message string) []string {
	var words []string
	for _, field := range strings.Fields(message) {
		if word := Normalize(field); word != "" {
			words = append(words, word)
		}
	}
	return words
}
