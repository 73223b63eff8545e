package opus

import (
	"encoding/binary"
	"io"
	"time"
)

// FrameDuration is the fixed duration of every Opus frame we produce.
// FFmpeg is always invoked with -frame_duration 20.
const FrameDuration = 20 * time.Millisecond

// FrameReader reads length-prefixed Opus frames from an io.Reader.
type FrameReader struct {
	r io.Reader
}

// NewFrameReader returns a new FrameReader that reads from r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame reads and returns the next raw Opus frame.
// Returns io.EOF when there are no more frames.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	var size uint16
	if err := binary.Read(f.r, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	frame := make([]byte, size)
	if _, err := io.ReadFull(f.r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// WriteFrame writes a single length-prefixed Opus frame to w.
func WriteFrame(w io.Writer, frame []byte) error {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(frame)
	return err
}

// BlobDuration computes the playback duration of a length-prefixed frame blob
// by counting frames. Trailing garbage yields io.ErrUnexpectedEOF.
func BlobDuration(blob []byte) (time.Duration, error) {
	var frames int
	for off := 0; off < len(blob); {
		if len(blob)-off < 2 {
			return 0, io.ErrUnexpectedEOF
		}
		size := int(binary.LittleEndian.Uint16(blob[off:]))
		off += 2
		if len(blob)-off < size {
			return 0, io.ErrUnexpectedEOF
		}
		off += size
		frames++
	}
	return time.Duration(frames) * FrameDuration, nil
}
