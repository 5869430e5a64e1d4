// Package protocol defines the LockTalk wire protocol: a length-framed
// message codec shared by server and client, plus the literal frames and
// prefixes both sides must agree on.
//
// Every application message is one frame: a 4-byte big-endian payload length
// followed by the UTF-8 payload. Frames on a connection are strictly ordered;
// the handshake and the (envelope, tag) message pairs rely on that ordering.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/locktalk/locktalk/internal/common"
)

// MaxFrameSize bounds a single frame payload. Anything larger is treated as
// a protocol violation and terminates the session.
const MaxFrameSize = 64 * 1024

// Handshake responses sent by the server as the second frame on the chat
// connection.
const (
	AuthSuccess       = "AUTH_SUCCESS"
	AuthFailed        = "AUTH_FAILED"
	InvalidTokenReply = "Invalid JWT Token"
	CapacityReply     = "SERVER_FULL"
)

// HistoryPrefix marks replayed messages so clients can tell replay from
// live traffic.
const HistoryPrefix = "[HISTORY] "

// Auth endpoint verbs and reply markers. A request is the verb frame followed
// by its argument frames (REGISTER: name, email, password; LOGIN: name,
// password). The reply is a single frame: "OK <detail>" or "ERR <reason>".
const (
	VerbRegister = "REGISTER"
	VerbLogin    = "LOGIN"
	ReplyOK      = "OK"
	ReplyErr     = "ERR"
)

// WriteFrame writes one length-prefixed frame.
func WriteFrame(w io.Writer, payload string) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame too large: %d bytes: %w", len(payload), common.ErrMalformedFrame)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, payload)
	return err
}

// ReadFrame reads one length-prefixed frame. A clean connection close before
// the first header byte surfaces as io.EOF; a close mid-frame surfaces as
// io.ErrUnexpectedEOF. An oversize length is a protocol violation.
func ReadFrame(r io.Reader) (string, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return "", fmt.Errorf("frame of %d bytes exceeds limit: %w", n, common.ErrMalformedFrame)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(payload), nil
}

// FormatMessage renders the canonical "<sender>: <body>" wire form. The same
// rendering is used for the integrity tag input, broadcast frames, and the
// in-memory history.
func FormatMessage(sender, body string) string {
	return sender + ": " + body
}

// SplitMessage undoes FormatMessage at the first separator. ok is false when
// the frame does not carry a sender prefix.
func SplitMessage(message string) (sender, body string, ok bool) {
	return strings.Cut(message, ": ")
}
