package opus_test

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cpike5/discordbot-sub011/internal/opus"
	"github.com/google/go-cmp/cmp"
)

func TestFrameRoundTrip(t *testing.T) {
	frames := [][]byte{
		{0x01},
		{0xde, 0xad, 0xbe, 0xef},
		{},
		bytes.Repeat([]byte{0x7f}, 1275),
	}

	var buf bytes.Buffer
	for _, frame := range frames {
		if err := opus.WriteFrame(&buf, frame); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	reader := opus.NewFrameReader(&buf)
	var got [][]byte
	for {
		frame, err := reader.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		got = append(got, frame)
	}

	if diff := cmp.Diff(frames, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestBlobDuration(t *testing.T) {
	var buf bytes.Buffer
	for range 50 {
		if err := opus.WriteFrame(&buf, []byte{0xaa, 0xbb}); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}

	d, err := opus.BlobDuration(buf.Bytes())
	if err != nil {
		t.Fatalf("BlobDuration failed: %v", err)
	}
	if want := time.Second; d != want {
		t.Errorf("expected %s, got %s", want, d)
	}
}

func TestBlobDurationTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := opus.WriteFrame(&buf, []byte{0xaa, 0xbb, 0xcc}); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-1]
	if _, err := opus.BlobDuration(truncated); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}
