package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/locktalk/locktalk/internal/common"
)

func TestFrame_RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	frames := []string{"", "AUTH_SUCCESS", strings.Repeat("x", 1000), "привет"}

	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame(%q) error: %v", f, err)
		}
	}
	for _, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame error: %v", err)
		}
		if got != want {
			t.Fatalf("frame mismatch: got %q want %q", got, want)
		}
	}

	// Clean end of stream.
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadFrame_TruncatedPayload(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], 10)
	buf.Write(hdr[:])
	buf.WriteString("short")

	if _, err := ReadFrame(&buf); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadFrame_OversizeLength(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], MaxFrameSize+1)
	buf.Write(hdr[:])

	if _, err := ReadFrame(&buf); !errors.Is(err, common.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestWriteFrame_Oversize(t *testing.T) {
	t.Parallel()

	err := WriteFrame(io.Discard, strings.Repeat("a", MaxFrameSize+1))
	if !errors.Is(err, common.ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestFormatSplitMessage(t *testing.T) {
	t.Parallel()

	msg := FormatMessage("alice", "IV:CT")
	if msg != "alice: IV:CT" {
		t.Fatalf("unexpected wire form: %q", msg)
	}

	sender, body, ok := SplitMessage(msg)
	if !ok || sender != "alice" || body != "IV:CT" {
		t.Fatalf("SplitMessage(%q) = %q, %q, %v", msg, sender, body, ok)
	}

	if _, _, ok := SplitMessage("no separator"); ok {
		t.Fatalf("expected ok=false for frame without sender prefix")
	}
}
