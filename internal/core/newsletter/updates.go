package newsletter

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
)

// ErrContainerMissing is returned when a feed response lacks its messages node.
var ErrContainerMissing = errors.New("messages container missing")

// UpdateKind selects the shape of a feed response.
type UpdateKind string

const (
	// KindMessages is a direct content push: response > messages.
	KindMessages UpdateKind = "messages"
	// KindMessageUpdates carries counters only: response > message_updates > messages.
	KindMessageUpdates UpdateKind = "message_updates"
)

// ParseUpdateKind validates a user supplied kind.
func ParseUpdateKind(s string) (UpdateKind, error) {
	switch UpdateKind(s) {
	case KindMessages, KindMessageUpdates:
		return UpdateKind(s), nil
	default:
		return "", fmt.Errorf("invalid update kind %q", s)
	}
}

// container descends to the node holding the feed items.
func (k UpdateKind) container(node *binnode.Node) *binnode.Node {
	if k == KindMessageUpdates {
		node = binnode.Child(node, "message_updates")
	}
	return binnode.Child(node, "messages")
}

// decrypts reports whether items of this kind carry message content.
func (k UpdateKind) decrypts() bool {
	return k == KindMessages
}

// Reaction is a tally for one reaction code.
type Reaction struct {
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// FeedItem is one normalised channel feed entry. Message is set only for
// KindMessages responses.
type FeedItem struct {
	ServerID  string     `json:"server_id"`
	Views     int        `json:"views"`
	Reactions []Reaction `json:"reactions"`
	Message   *Message   `json:"message,omitempty"`
}

// ParseFetchedUpdates normalises a feed response using the socket's decrypter
// and identity.
func (s *Socket) ParseFetchedUpdates(ctx context.Context, node *binnode.Node, kind UpdateKind) ([]FeedItem, error) {
	return ParseUpdates(ctx, node, kind, UpdateOptions{
		Decrypter: s.decrypter,
		Identity:  s.identity,
		Workers:   s.workers,
	})
}

// UpdateOptions configures ParseUpdates.
type UpdateOptions struct {
	// Decrypter is required for KindMessages.
	Decrypter Decrypter
	Identity  Identity
	// Workers bounds concurrent item processing; <= 0 means unbounded.
	Workers int
}

// ParseUpdates extracts one FeedItem per child of the messages container, in
// document order. Items are processed concurrently; the first decryption
// failure aborts the batch.
func ParseUpdates(ctx context.Context, node *binnode.Node, kind UpdateKind, opts UpdateOptions) ([]FeedItem, error) {
	container := kind.container(node)
	if container == nil {
		return nil, fmt.Errorf("parse %s: %w", kind, ErrContainerMissing)
	}
	if kind.decrypts() && opts.Decrypter == nil {
		return nil, fmt.Errorf("parse %s: no decrypter configured", kind)
	}

	var (
		from    = container.Attr("jid")
		items   = binnode.AllChildren(container)
		results = make([]FeedItem, len(items))
	)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}

	for i, item := range items {
		g.Go(func() error {
			item.SetAttr("from", from)

			fi := FeedItem{
				ServerID:  item.Attr("server_id"),
				Views:     viewCount(item),
				Reactions: reactions(item),
			}

			if kind.decrypts() {
				msg, err := decryptItem(gctx, opts.Decrypter, item, opts.Identity)
				if err != nil {
					return err
				}
				fi.Message = msg
			}

			results[i] = fi
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func viewCount(item *binnode.Node) int {
	n, err := strconv.Atoi(binnode.Child(item, "views_count").Attr("count"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func reactions(item *binnode.Node) []Reaction {
	nodes := binnode.Children(binnode.Child(item, "reactions"), "reaction")
	out := make([]Reaction, 0, len(nodes))
	for _, r := range nodes {
		count, err := strconv.Atoi(r.Attr("count"))
		if err != nil || count < 0 {
			count = 0
		}
		out = append(out, Reaction{Code: r.Attr("code"), Count: count})
	}
	return out
}

func decryptItem(ctx context.Context, d Decrypter, item *binnode.Node, id Identity) (*Message, error) {
	dec, err := d.Decrypt(ctx, item, id.ID, id.LID)
	if err != nil {
		return nil, err
	}
	if dec == nil {
		return nil, fmt.Errorf("decrypt %s: empty result", item.Attr("server_id"))
	}
	if dec.Commit != nil {
		if err := dec.Commit(ctx); err != nil {
			return nil, err
		}
	}
	return dec.Message, nil
}
