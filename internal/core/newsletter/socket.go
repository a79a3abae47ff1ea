// Package newsletter implements channel (newsletter) support on top of an
// established socket: query construction, follow state, feed normalisation and
// metadata extraction.
package newsletter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
	"github.com/hay-kot/chanfeed/pkg/randid"
)

const (
	// DefaultServerJID is the address managed queries are sent to.
	DefaultServerJID = "s.whatsapp.net"

	xmlnsNewsletter = "newsletter"
	xmlnsMex        = "w:mex"

	defaultDecryptWorkers = 8
)

// IQType is the request type attribute of an iq envelope.
type IQType string

const (
	IQGet IQType = "get"
	IQSet IQType = "set"
)

// Transport is the slice of the socket layer this package needs.
type Transport interface {
	// Query sends n and blocks until the matching response arrives, the
	// transport times out, or ctx is done.
	Query(ctx context.Context, n binnode.Node) (*binnode.Node, error)
	// GenerateMessageTag returns a correlation id unique for this socket.
	GenerateMessageTag() string
}

// Identity is the local account, used when decrypting channel content.
type Identity struct {
	ID  string
	LID string
}

// Options configures a Socket.
type Options struct {
	Transport Transport
	Decrypter Decrypter
	Identity  Identity
	// ServerJID defaults to DefaultServerJID.
	ServerJID string
	// DecryptWorkers bounds per-item concurrency in ParseFetchedUpdates.
	DecryptWorkers int
	Logger         zerolog.Logger
}

// Socket issues channel queries over a Transport.
type Socket struct {
	transport Transport
	decrypter Decrypter
	identity  Identity
	serverJID string
	workers   int
	log       zerolog.Logger
}

// New creates a Socket.
func New(opts Options) *Socket {
	s := &Socket{
		transport: opts.Transport,
		decrypter: opts.Decrypter,
		identity:  opts.Identity,
		serverJID: opts.ServerJID,
		workers:   opts.DecryptWorkers,
		log:       opts.Logger,
	}
	if s.serverJID == "" {
		s.serverJID = DefaultServerJID
	}
	if s.workers <= 0 {
		s.workers = defaultDecryptWorkers
	}
	return s
}

// ChannelQuery sends a request in the newsletter namespace addressed to jid.
func (s *Socket) ChannelQuery(ctx context.Context, jid string, typ IQType, content []binnode.Node) (*binnode.Node, error) {
	return s.transport.Query(ctx, binnode.Node{
		Tag: "iq",
		Attrs: map[string]string{
			"id":    s.transport.GenerateMessageTag(),
			"type":  string(typ),
			"xmlns": xmlnsNewsletter,
			"to":    jid,
		},
		Content: content,
	})
}

// ManagedQuery sends a w:mex query carrying {"variables": {"newsletter_id": jid, ...vars}}.
// An empty jid leaves newsletter_id out, as used by create and lookups by invite.
func (s *Socket) ManagedQuery(ctx context.Context, jid string, id QueryID, vars map[string]any) (*binnode.Node, error) {
	envelope, err := s.managedEnvelope(jid, id, vars)
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("jid", jid).Str("query_id", string(id)).Msg("managed query")
	return s.transport.Query(ctx, envelope)
}

func (s *Socket) managedEnvelope(jid string, id QueryID, vars map[string]any) (binnode.Node, error) {
	variables := make(map[string]any, len(vars)+1)
	if jid != "" {
		variables["newsletter_id"] = jid
	}
	for k, v := range vars {
		variables[k] = v
	}

	payload, err := json.Marshal(map[string]any{"variables": variables})
	if err != nil {
		return binnode.Node{}, fmt.Errorf("encode variables: %w", err)
	}

	return binnode.Node{
		Tag: "iq",
		Attrs: map[string]string{
			"id":    s.transport.GenerateMessageTag(),
			"type":  string(IQGet),
			"xmlns": xmlnsMex,
			"to":    s.serverJID,
		},
		Content: []binnode.Node{
			{
				Tag:     "query",
				Attrs:   map[string]string{"query_id": string(id)},
				Content: payload,
			},
		},
	}, nil
}

// TagGenerator produces message tags as a random per-process prefix followed
// by a counter. Transport implementations may embed it.
type TagGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewTagGenerator creates a TagGenerator with a fresh prefix.
func NewTagGenerator() *TagGenerator {
	return &TagGenerator{prefix: randid.GenerateFrom(randid.UpperHex, 8) + "."}
}

// GenerateMessageTag returns the next tag.
func (g *TagGenerator) GenerateMessageTag() string {
	return g.prefix + strconv.FormatUint(g.counter.Add(1), 10)
}
