package newsletter

import (
	"context"
	"errors"
	"strconv"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
)

// ErrNoPlaintext is returned by PlaintextDecrypter for items without a
// plaintext child.
var ErrNoPlaintext = errors.New("plaintext node missing")

// Message is a decoded channel message.
type Message struct {
	ID        string `json:"id"`
	RemoteJID string `json:"remote_jid"`
	ServerID  string `json:"server_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Type      string `json:"type,omitempty"`
	Payload   []byte `json:"payload"`
}

// Decrypted is the outcome of decrypting one item. Commit finalises session
// state and must be called exactly once after a successful Decrypt.
type Decrypted struct {
	Message *Message
	Commit  func(ctx context.Context) error
}

// Decrypter turns a feed item node into a message.
type Decrypter interface {
	Decrypt(ctx context.Context, item *binnode.Node, self, selfLID string) (*Decrypted, error)
}

// DecrypterFunc adapts a function to Decrypter.
type DecrypterFunc func(ctx context.Context, item *binnode.Node, self, selfLID string) (*Decrypted, error)

// Decrypt implements Decrypter.
func (f DecrypterFunc) Decrypt(ctx context.Context, item *binnode.Node, self, selfLID string) (*Decrypted, error) {
	return f(ctx, item, self, selfLID)
}

// PlaintextDecrypter reads channel messages that are delivered unencrypted in
// a plaintext child node. Commit is a no-op.
type PlaintextDecrypter struct{}

// Decrypt implements Decrypter.
func (PlaintextDecrypter) Decrypt(_ context.Context, item *binnode.Node, _, _ string) (*Decrypted, error) {
	pt := binnode.Child(item, "plaintext")
	if pt == nil {
		return nil, ErrNoPlaintext
	}

	ts, _ := strconv.ParseInt(item.Attr("t"), 10, 64)

	return &Decrypted{
		Message: &Message{
			ID:        item.Attr("id"),
			RemoteJID: item.Attr("from"),
			ServerID:  item.Attr("server_id"),
			Timestamp: ts,
			Type:      item.Attr("type"),
			Payload:   pt.Bytes(),
		},
		Commit: func(context.Context) error { return nil },
	}, nil
}
