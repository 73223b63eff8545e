package transcode

import (
	"fmt"
	"strings"
)

// ProcessError reports an FFmpeg invocation that failed: a non-zero exit,
// a signal, or the per-invocation timeout. Partial output from a failed
// invocation is always discarded; callers never see a truncated blob.
type ProcessError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Timeout  bool
}

func (e *ProcessError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("ffmpeg timed out: ffmpeg %s", strings.Join(e.Args, " "))
	}
	msg := fmt.Sprintf("ffmpeg exited with code %d", e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

var _ error = (*ProcessError)(nil)
