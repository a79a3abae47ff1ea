package newsletter

import (
	"errors"
	"sort"
)

// ErrUnknownOperation is returned by LookupOperation for names outside the catalog.
var ErrUnknownOperation = errors.New("unknown operation")

// QueryID is the server-side identifier of a managed query.
type QueryID string

const (
	QueryJobMutation QueryID = "7150902998257522"
	QueryMetadata    QueryID = "6620195908089573"
	QueryUnfollow    QueryID = "7238632346214362"
	QueryFollow      QueryID = "7871414976211147"
	QueryUnmute      QueryID = "7337137176362961"
	QueryMute        QueryID = "25151904754424642"
	QueryCreate      QueryID = "6996806640408138"
	QueryAdminCount  QueryID = "7130823597031706"
	QueryChangeOwner QueryID = "7341777602580933"
	QueryDelete      QueryID = "8316537688363079"
	QueryDemote      QueryID = "6551828931592903"
)

// Keys of the "data" map in managed query responses.
const (
	PathNewsletter = "xwa2_newsletter"
	PathCreate     = "xwa2_newsletter_create"
	PathAdminCount = "xwa2_newsletter_admin"
	PathDemote     = "xwa2_newsletter_admin_demote"
)

// Operation is the logical name of a catalog entry.
type Operation string

const (
	OpJobMutation Operation = "job_mutation"
	OpMetadata    Operation = "metadata"
	OpUnfollow    Operation = "unfollow"
	OpFollow      Operation = "follow"
	OpUnmute      Operation = "unmute"
	OpMute        Operation = "mute"
	OpCreate      Operation = "create"
	OpAdminCount  Operation = "admin_count"
	OpChangeOwner Operation = "change_owner"
	OpDelete      Operation = "delete"
	OpDemote      Operation = "demote"
)

var catalog = map[Operation]QueryID{
	OpJobMutation: QueryJobMutation,
	OpMetadata:    QueryMetadata,
	OpUnfollow:    QueryUnfollow,
	OpFollow:      QueryFollow,
	OpUnmute:      QueryUnmute,
	OpMute:        QueryMute,
	OpCreate:      QueryCreate,
	OpAdminCount:  QueryAdminCount,
	OpChangeOwner: QueryChangeOwner,
	OpDelete:      QueryDelete,
	OpDemote:      QueryDemote,
}

// CatalogEntry pairs an operation with its query id.
type CatalogEntry struct {
	Operation Operation `json:"operation"`
	QueryID   QueryID   `json:"query_id"`
}

// Catalog returns every entry sorted by operation name.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(catalog))
	for op, id := range catalog {
		out = append(out, CatalogEntry{Operation: op, QueryID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Operation < out[j].Operation })
	return out
}

// LookupOperation resolves a name typed by a user. Code should reference the
// Query* constants directly.
func LookupOperation(name string) (QueryID, error) {
	id, ok := catalog[Operation(name)]
	if !ok {
		return "", ErrUnknownOperation
	}
	return id, nil
}
