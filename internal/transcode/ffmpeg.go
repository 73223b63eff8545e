// Package transcode wraps the external FFmpeg process behind a small API.
//
// Every invocation has a bounded lifetime: stdout and stderr are captured,
// the configured timeout kills the process, and failure surfaces as a typed
// *ProcessError. Output is re-framed into the length-prefixed Opus format
// before anything is returned, so a failed or killed invocation never leaks
// a partial blob.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/cpike5/discordbot-sub011/internal/opus"
)

// encodeTail is the fixed Opus encoding configuration shared by every
// invocation. 48kHz stereo, 20ms frames, ogg container on stdout.
var encodeTail = []string{
	"-acodec", "libopus",
	"-f", "ogg",
	"-vbr", "on",
	"-compression_level", "10",
	"-ar", "48000",
	"-ac", "2",
	"-b:a", "64000",
	"-application", "audio",
	"-frame_duration", "20",
	"-packet_loss", "1",
	"-threads", "0",
	"pipe:1",
}

// FFmpeg invokes the ffmpeg binary at Path with a hard per-invocation
// Timeout. The zero value uses "ffmpeg" from PATH and no timeout.
type FFmpeg struct {
	Path    string
	Timeout time.Duration
}

func (f *FFmpeg) binary() string {
	if f.Path == "" {
		return "ffmpeg"
	}
	return f.Path
}

// Transcode decodes the audio file at path, applies the given -af filter
// chain entries in order, and returns the result as length-prefixed Opus
// frames.
func (f *FFmpeg) Transcode(ctx context.Context, path string, filters []string) ([]byte, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-vn",
		"-map", "0:a",
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}
	args = append(args, encodeTail...)

	return f.run(ctx, args)
}

// Concat joins the audio files at paths in order, inserting gap of silence
// between consecutive files, and returns the result as length-prefixed Opus
// frames. The inputs may have differing sample rates or layouts; each is
// normalized to 48kHz stereo before concatenation.
func (f *FFmpeg) Concat(ctx context.Context, paths []string, gap time.Duration) ([]byte, error) {
	if len(paths) == 0 {
		return nil, errors.New("no input files to concatenate")
	}
	if gap < 0 {
		return nil, fmt.Errorf("negative silence gap: %s", gap)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
	}
	for _, p := range paths {
		args = append(args, "-i", p)
	}
	args = append(args, "-filter_complex", concatGraph(len(paths), gap), "-map", "[out]")
	args = append(args, encodeTail...)

	return f.run(ctx, args)
}

// concatGraph builds the filter_complex graph joining n inputs with a
// silence source between consecutive inputs. The graph is deterministic
// for a given (n, gap) so invocations stay cache-friendly.
func concatGraph(n int, gap time.Duration) string {
	var graph strings.Builder
	for i := range n {
		fmt.Fprintf(&graph, "[%d:a]aformat=sample_rates=48000:channel_layouts=stereo[c%d];", i, i)
	}
	withGaps := gap > 0 && n > 1
	if withGaps {
		for i := range n - 1 {
			fmt.Fprintf(&graph, "aevalsrc=0:c=stereo:s=48000:d=%.3f[g%d];", gap.Seconds(), i)
		}
	}

	segments := n
	for i := range n {
		fmt.Fprintf(&graph, "[c%d]", i)
		if withGaps && i < n-1 {
			fmt.Fprintf(&graph, "[g%d]", i)
			segments++
		}
	}
	fmt.Fprintf(&graph, "concat=n=%d:v=0:a=1[out]", segments)
	return graph.String()
}

func (f *FFmpeg) run(ctx context.Context, args []string) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.binary(), args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to pipe ffmpeg stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("unable to start ffmpeg: %w", err)
	}

	var blob bytes.Buffer
	_, reframeErr := opus.Reframe(stdout, &blob)
	if reframeErr != nil {
		// Keep draining so the process can exit and Wait does not hang.
		_, _ = io.Copy(io.Discard, stdout)
	}

	if waitErr := cmd.Wait(); waitErr != nil {
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, &ProcessError{Args: args, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Timeout: true}
			}
			// Cooperative cancellation by the caller, not a process failure.
			return nil, ctx.Err()
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &ProcessError{Args: args, ExitCode: exitCode, Stderr: strings.TrimSpace(stderr.String())}
	}

	if reframeErr != nil {
		return nil, fmt.Errorf("unable to reframe ffmpeg output: %w", reframeErr)
	}

	// Output that contains no frames was not a usable opus stream; a
	// truncated or garbage stream decodes to nothing rather than failing.
	if blob.Len() == 0 {
		return nil, errors.New("ffmpeg produced no audio frames")
	}

	return blob.Bytes(), nil
}
