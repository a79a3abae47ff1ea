package newsletter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
)

// DefaultViewRole is the role metadata queries are made under.
const DefaultViewRole = "GUEST"

// LookupKind selects how Metadata and FetchMessages identify a channel.
type LookupKind string

const (
	LookupJID    LookupKind = "jid"
	LookupInvite LookupKind = "invite"
)

// IsFollowing reports whether the local account follows jid. Any failure is
// treated as not following.
func (s *Socket) IsFollowing(ctx context.Context, jid string) (following bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Debug().Str("jid", jid).Interface("panic", r).Msg("follow probe panic")
			following = false
		}
	}()

	resp, err := s.ManagedQuery(ctx, jid, QueryMetadata, map[string]any{
		"input": map[string]any{
			"key":       jid,
			"type":      "NEWSLETTER",
			"view_role": DefaultViewRole,
		},
		"fetch_viewer_metadata": true,
	})
	if err != nil {
		s.log.Debug().Err(err).Str("jid", jid).Msg("follow probe failed")
		return false
	}

	raw, err := resultData(resp, PathNewsletter)
	if err != nil {
		s.log.Debug().Err(err).Str("jid", jid).Msg("follow probe unreadable")
		return false
	}

	var doc struct {
		ViewerMetadata *struct {
			IsSubscribed bool `json:"is_subscribed"`
		} `json:"viewer_metadata"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.log.Debug().Err(err).Str("jid", jid).Msg("follow probe unreadable")
		return false
	}

	return doc.ViewerMetadata != nil && doc.ViewerMetadata.IsSubscribed
}

// Follow subscribes the local account to jid.
func (s *Socket) Follow(ctx context.Context, jid string) error {
	_, err := s.ManagedQuery(ctx, jid, QueryFollow, nil)
	return err
}

// Unfollow unsubscribes the local account from jid.
func (s *Socket) Unfollow(ctx context.Context, jid string) error {
	_, err := s.ManagedQuery(ctx, jid, QueryUnfollow, nil)
	return err
}

// Mute silences notifications for jid.
func (s *Socket) Mute(ctx context.Context, jid string) error {
	_, err := s.ManagedQuery(ctx, jid, QueryMute, nil)
	return err
}

// Unmute restores notifications for jid.
func (s *Socket) Unmute(ctx context.Context, jid string) error {
	_, err := s.ManagedQuery(ctx, jid, QueryUnmute, nil)
	return err
}

// Metadata fetches channel metadata by jid or invite code. An empty role
// uses DefaultViewRole.
func (s *Socket) Metadata(ctx context.Context, kind LookupKind, key, role string) (*Metadata, error) {
	if role == "" {
		role = DefaultViewRole
	}

	resp, err := s.ManagedQuery(ctx, "", QueryMetadata, map[string]any{
		"input": map[string]any{
			"key":       key,
			"type":      strings.ToUpper(string(kind)),
			"view_role": role,
		},
		"fetch_viewer_metadata": true,
		"fetch_full_image":      true,
		"fetch_creation_time":   true,
	})
	if err != nil {
		return nil, err
	}

	return ExtractMetadata(resp, ShapeFetch)
}

// Create creates a channel owned by the local account.
func (s *Socket) Create(ctx context.Context, name, description string) (*Metadata, error) {
	resp, err := s.ManagedQuery(ctx, "", QueryCreate, map[string]any{
		"input": map[string]any{
			"name":        name,
			"description": description,
			"settings":    nil,
		},
	})
	if err != nil {
		return nil, err
	}

	return ExtractMetadata(resp, ShapeCreate)
}

// MetadataUpdate lists the mutable channel fields. Nil fields are left as is.
type MetadataUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Picture     *string `json:"picture,omitempty"`
}

// UpdateMetadata changes name, description or picture of an owned channel.
func (s *Socket) UpdateMetadata(ctx context.Context, jid string, u MetadataUpdate) error {
	updates := map[string]any{"settings": nil}
	if u.Name != nil {
		updates["name"] = *u.Name
	}
	if u.Description != nil {
		updates["description"] = *u.Description
	}
	if u.Picture != nil {
		updates["picture"] = *u.Picture
	}

	_, err := s.ManagedQuery(ctx, jid, QueryJobMutation, map[string]any{"updates": updates})
	return err
}

// Delete removes an owned channel.
func (s *Socket) Delete(ctx context.Context, jid string) error {
	_, err := s.ManagedQuery(ctx, jid, QueryDelete, nil)
	return err
}

// ChangeOwner transfers ownership of jid to user.
func (s *Socket) ChangeOwner(ctx context.Context, jid, user string) error {
	_, err := s.ManagedQuery(ctx, jid, QueryChangeOwner, map[string]any{"user_id": user})
	return err
}

// Demote removes admin rights from user.
func (s *Socket) Demote(ctx context.Context, jid, user string) error {
	_, err := s.ManagedQuery(ctx, jid, QueryDemote, map[string]any{"user_id": user})
	return err
}

// AdminCount returns the number of admins of jid.
func (s *Socket) AdminCount(ctx context.Context, jid string) (int, error) {
	resp, err := s.ManagedQuery(ctx, jid, QueryAdminCount, nil)
	if err != nil {
		return 0, err
	}

	raw, err := resultData(resp, PathAdminCount)
	if err != nil {
		return 0, fmt.Errorf("admin count: %w", err)
	}

	var doc struct {
		AdminCount flexInt `json:"admin_count"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return 0, fmt.Errorf("admin count: decode: %w", err)
	}
	return int(doc.AdminCount), nil
}

// FetchMessages fetches up to count messages of a channel, identified by jid
// or invite code, older than the after server id. after <= 0 uses 100.
func (s *Socket) FetchMessages(ctx context.Context, kind LookupKind, key string, count, after int) ([]FeedItem, error) {
	if after <= 0 {
		after = 100
	}

	keyAttr := "jid"
	if kind == LookupInvite {
		keyAttr = "key"
	}

	resp, err := s.ChannelQuery(ctx, s.serverJID, IQGet, []binnode.Node{
		{
			Tag: "messages",
			Attrs: map[string]string{
				"type":  string(kind),
				keyAttr: key,
				"count": strconv.Itoa(count),
				"after": strconv.Itoa(after),
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return s.ParseFetchedUpdates(ctx, resp, KindMessages)
}

// FetchUpdates fetches view and reaction counters for recent messages of jid.
// Zero after or since are left out of the request.
func (s *Socket) FetchUpdates(ctx context.Context, jid string, count, after int, since time.Time) ([]FeedItem, error) {
	attrs := map[string]string{"count": strconv.Itoa(count)}
	if after > 0 {
		attrs["after"] = strconv.Itoa(after)
	}
	if !since.IsZero() {
		attrs["since"] = strconv.FormatInt(since.Unix(), 10)
	}

	resp, err := s.ChannelQuery(ctx, jid, IQGet, []binnode.Node{
		{Tag: "message_updates", Attrs: attrs},
	})
	if err != nil {
		return nil, err
	}

	return s.ParseFetchedUpdates(ctx, resp, KindMessageUpdates)
}

// SubscribeLiveUpdates asks the server to push counter updates for jid and
// returns how long the subscription lasts.
func (s *Socket) SubscribeLiveUpdates(ctx context.Context, jid string) (time.Duration, error) {
	resp, err := s.ChannelQuery(ctx, jid, IQSet, []binnode.Node{
		{Tag: "live_updates", Content: []binnode.Node{}},
	})
	if err != nil {
		return 0, err
	}

	live := binnode.Child(resp, "live_updates")
	if live == nil {
		return 0, fmt.Errorf("live updates: %w", ErrResultMissing)
	}

	secs, err := strconv.Atoi(live.Attr("duration"))
	if err != nil {
		return 0, fmt.Errorf("live updates: invalid duration %q", live.Attr("duration"))
	}
	return time.Duration(secs) * time.Second, nil
}
