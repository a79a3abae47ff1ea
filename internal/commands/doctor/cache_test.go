package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

type mockStore struct {
	channels []newsletter.CachedMetadata
	listErr  error
	deleted  []string
}

func (m *mockStore) List(_ context.Context) ([]newsletter.CachedMetadata, error) {
	return m.channels, m.listErr
}

func (m *mockStore) Get(_ context.Context, _ string) (newsletter.CachedMetadata, error) {
	return newsletter.CachedMetadata{}, newsletter.ErrNotCached
}

func (m *mockStore) Save(_ context.Context, _ newsletter.Metadata) error {
	return nil
}

func (m *mockStore) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func cached(id string, age time.Duration) newsletter.CachedMetadata {
	return newsletter.CachedMetadata{
		Metadata: newsletter.Metadata{ID: id},
		CachedAt: now.Add(-age),
	}
}

func newCheck(store *mockStore, fix bool) *CacheCheck {
	check := NewCacheCheck(store, 24*time.Hour, fix)
	check.now = func() time.Time { return now }
	return check
}

func TestCacheCheck_Healthy(t *testing.T) {
	store := &mockStore{channels: []newsletter.CachedMetadata{
		cached("1@newsletter", time.Hour),
		cached("2@newsletter", 2*time.Hour),
	}}

	result := newCheck(store, false).Run(context.Background())

	assert.Equal(t, "Channel Cache", result.Name)
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, "2 channel(s) cached", result.Items[0].Detail)
}

func TestCacheCheck_ReportsProblems(t *testing.T) {
	store := &mockStore{channels: []newsletter.CachedMetadata{
		cached("1@newsletter", time.Hour),
		cached("2@newsletter", 48*time.Hour),
		cached("123@s.whatsapp.net", time.Hour),
	}}

	result := newCheck(store, false).Run(context.Background())

	require.Len(t, result.Items, 2)
	assert.Equal(t, "2@newsletter", result.Items[0].Label)
	assert.Equal(t, "stale", result.Items[0].Detail)
	assert.Equal(t, "2@newsletter", result.Items[0].Channel)
	assert.Equal(t, 48*time.Hour, result.Items[0].Age(now))
	assert.Equal(t, StatusWarn, result.Items[0].Status)
	assert.True(t, result.Items[0].Fixable)
	assert.Equal(t, "invalid", result.Items[1].Detail)
	assert.Empty(t, store.deleted)

	tally := Summarize([]Result{result})
	assert.Equal(t, 2, tally.Fixable)
	assert.Equal(t, 2, tally.Warned)
	assert.Empty(t, tally.Removed)
}

func TestCacheCheck_Fix(t *testing.T) {
	store := &mockStore{channels: []newsletter.CachedMetadata{
		cached("1@newsletter", 48*time.Hour),
	}}

	result := newCheck(store, true).Run(context.Background())

	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, "removed stale entry", result.Items[0].Detail)
	assert.True(t, result.Items[0].Removed)
	assert.Equal(t, []string{"1@newsletter"}, store.deleted)

	tally := Summarize([]Result{result})
	assert.Equal(t, []string{"1@newsletter"}, tally.Removed)
	assert.Zero(t, tally.Fixable)
	assert.True(t, tally.Healthy())
}

func TestCacheCheck_ListError(t *testing.T) {
	store := &mockStore{listErr: errors.New("parse channels file: unexpected EOF")}

	result := newCheck(store, false).Run(context.Background())

	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusFail, result.Items[0].Status)
	assert.Equal(t, "Read cache", result.Items[0].Label)
}

func TestCheckItem_JSON(t *testing.T) {
	item := CheckItem{
		Label:    "1@newsletter",
		Status:   StatusWarn,
		Detail:   "stale",
		Channel:  "1@newsletter",
		CachedAt: now,
	}

	out, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"label":"1@newsletter",
		"status":"warn",
		"detail":"stale",
		"channel":"1@newsletter",
		"cached_at":"2026-03-01T12:00:00Z"
	}`, string(out))

	out, err = json.Marshal(CheckItem{Label: "Config valid", Status: StatusPass})
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"Config valid","status":"pass"}`, string(out))
}
