package client

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/locktalk/locktalk/internal/common"
	"github.com/locktalk/locktalk/internal/cryptox"
	"github.com/locktalk/locktalk/internal/protocol"
)

// Incoming is one message delivered to the client, already decrypted when
// possible. When decryption fails (for example a peer using a different
// message key) Text carries the raw envelope and Decrypted is false.
type Incoming struct {
	Sender    string
	Text      string
	History   bool
	Decrypted bool
}

// ChatClient is one authenticated chat connection. Messages are encrypted
// with the shared AES message key before leaving the process and tagged with
// the integrity secret; the relay only ever sees the envelope.
type ChatClient struct {
	conn       net.Conn
	userName   string
	aesKey     []byte
	hmacSecret []byte
}

// Connect dials the chat server, presents the credential as the first frame,
// and waits for the single-frame verdict. On any verdict other than
// AUTH_SUCCESS the connection is closed and the verdict is returned as the
// error reason.
func Connect(ctx context.Context, addr, token, userName string, aesKey, hmacSecret []byte) (*ChatClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("chat server unreachable: %w", err)
	}

	if err := protocol.WriteFrame(conn, token); err != nil {
		conn.Close()
		return nil, err
	}

	verdict, err := protocol.ReadFrame(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if verdict != protocol.AuthSuccess {
		conn.Close()
		return nil, fmt.Errorf("authentication failed: %s", verdict)
	}

	// Private copies: Close wipes them without touching the caller's slices.
	return &ChatClient{
		conn:       conn,
		userName:   userName,
		aesKey:     append([]byte(nil), aesKey...),
		hmacSecret: append([]byte(nil), hmacSecret...),
	}, nil
}

// Send encrypts plaintext into an envelope, tags "<user>: <envelope>", and
// writes the (envelope, tag) frame pair. Fire-and-forget: there is no
// delivery acknowledgement.
func (c *ChatClient) Send(plaintext string) error {
	envelope, err := cryptox.EncryptMessage(c.aesKey, plaintext)
	if err != nil {
		return err
	}
	tag := cryptox.Tag(c.hmacSecret, protocol.FormatMessage(c.userName, envelope))

	if err := protocol.WriteFrame(c.conn, envelope); err != nil {
		return err
	}
	return protocol.WriteFrame(c.conn, tag)
}

// Receive blocks for the next broadcast or history frame and decrypts it.
// It returns the transport error once the connection is gone.
func (c *ChatClient) Receive() (Incoming, error) {
	frame, err := protocol.ReadFrame(c.conn)
	if err != nil {
		return Incoming{}, err
	}

	msg := Incoming{}
	if rest, found := strings.CutPrefix(frame, protocol.HistoryPrefix); found {
		msg.History = true
		frame = rest
	}

	sender, envelope, ok := protocol.SplitMessage(frame)
	if !ok {
		// Server notice or unrecognized frame; hand it through as-is.
		msg.Text = frame
		return msg, nil
	}
	msg.Sender = sender

	plaintext, err := cryptox.DecryptMessage(c.aesKey, envelope)
	if err != nil {
		msg.Text = envelope
		return msg, nil
	}
	msg.Text = plaintext
	msg.Decrypted = true
	return msg, nil
}

// Close terminates the session and wipes the key material held by the
// client. Closing the connection is also the quit signal; the protocol has
// no explicit quit frame.
func (c *ChatClient) Close() error {
	common.WipeByteArray(c.aesKey)
	common.WipeByteArray(c.hmacSecret)
	return c.conn.Close()
}
