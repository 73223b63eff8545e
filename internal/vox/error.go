package vox

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotReady indicates the clip library has not been scanned yet.
var ErrNotReady = errors.New("clip library has not been scanned")

// ErrNoWords indicates a message contained no playable words after
// normalization.
var ErrNoWords = errors.New("message contains no playable words")

// WordsNotFoundError reports the words of a message that have no clip
// in the requested group.
type WordsNotFoundError struct {
	Group string
	Words []string
}

func (e *WordsNotFoundError) Error() string {
	return fmt.Sprintf("no clips in group %q for: %s", e.Group, strings.Join(e.Words, ", "))
}

var _ error = (*WordsNotFoundError)(nil)
