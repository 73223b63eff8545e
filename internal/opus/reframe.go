package opus

import (
	"errors"
	"io"

	"github.com/jonas747/ogg"
)

// Reframe reads an ogg-encapsulated Opus stream from r and writes
// length-prefixed frames to w. The first two ogg packets (OpusHead and
// OpusTags) are discarded. It returns the number of frames written.
func Reframe(r io.Reader, w io.Writer) (int, error) {
	decoder := ogg.NewPacketDecoder(ogg.NewDecoder(r))

	// Skip the 2 OGG metadata packets.
	skip := 2
	frames := 0
	for {
		packet, _, err := decoder.Decode()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return frames, nil
			}
			return frames, err
		}
		if skip > 0 {
			skip--
			continue
		}

		if err := WriteFrame(w, packet); err != nil {
			return frames, err
		}
		frames++
	}
}
