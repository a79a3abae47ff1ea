package newsletter

import (
	"context"
	"errors"
	"time"
)

// ErrNotCached is returned when no metadata is stored for a channel.
var ErrNotCached = errors.New("channel not cached")

// CachedMetadata is a Metadata snapshot with the time it was stored.
type CachedMetadata struct {
	Metadata
	CachedAt time.Time `json:"cached_at"`
}

// MetadataStore persists metadata snapshots keyed by channel id. Metadata
// records are never refreshed by this package; callers decide when to Save.
type MetadataStore interface {
	List(ctx context.Context) ([]CachedMetadata, error)
	// Get returns ErrNotCached if id is unknown.
	Get(ctx context.Context, id string) (CachedMetadata, error)
	// Save replaces any snapshot with the same id.
	Save(ctx context.Context, md Metadata) error
	// Delete returns ErrNotCached if id is unknown.
	Delete(ctx context.Context, id string) error
}
