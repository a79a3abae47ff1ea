package jsonfile

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

func TestActivityStore_RecordAssignsIDAndTime(t *testing.T) {
	store := NewActivityStore(t.TempDir())

	require.NoError(t, store.Record(newsletter.Activity{Type: newsletter.ActivityFollowed, Channel: "1@newsletter"}))

	list, err := store.List(ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0].ID)
	assert.False(t, list[0].Timestamp.IsZero())
}

func TestActivityStore_ListNewestFirstWithFilters(t *testing.T) {
	store := NewActivityStore(t.TempDir())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []newsletter.Activity{
		{Type: newsletter.ActivityFollowFailed, Channel: "1@newsletter", Timestamp: base},
		{Type: newsletter.ActivityFollowed, Channel: "1@newsletter", Timestamp: base.Add(time.Minute)},
		{Type: newsletter.ActivityAlreadyFollowing, Channel: "2@newsletter", Timestamp: base.Add(2 * time.Minute)},
		{Type: newsletter.ActivityAlreadyFollowing, Channel: "1@newsletter", Timestamp: base.Add(3 * time.Minute)},
	}
	for _, r := range records {
		require.NoError(t, store.Record(r))
	}

	all, err := store.List(ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].Timestamp.Equal(base.Add(3*time.Minute)))

	byChannel, err := store.List(ActivityFilter{Channel: "1@newsletter", Limit: 2})
	require.NoError(t, err)
	require.Len(t, byChannel, 2)
	assert.Equal(t, newsletter.ActivityAlreadyFollowing, byChannel[0].Type)
	assert.Equal(t, newsletter.ActivityFollowed, byChannel[1].Type)

	failed, err := store.List(ActivityFilter{Type: newsletter.ActivityFollowFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	recent, err := store.List(ActivityFilter{Since: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestActivityStore_Last(t *testing.T) {
	store := NewActivityStore(t.TempDir())

	_, ok, err := store.Last("1@newsletter")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Record(newsletter.Activity{Type: newsletter.ActivityFollowFailed, Channel: "1@newsletter", Error: "timeout"}))
	require.NoError(t, store.Record(newsletter.Activity{Type: newsletter.ActivityFollowed, Channel: "1@newsletter"}))

	last, ok, err := store.Last("1@newsletter")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newsletter.ActivityFollowed, last.Type)
}

func TestActivityStore_Retention(t *testing.T) {
	store := NewActivityStore(t.TempDir()).WithMaxActivities(3)

	for range 5 {
		require.NoError(t, store.Record(newsletter.Activity{Type: newsletter.ActivityFollowed, Channel: "1@newsletter"}))
	}

	list, err := store.List(ActivityFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestActivityStore_SkipsMalformedLines(t *testing.T) {
	store := NewActivityStore(t.TempDir())
	require.NoError(t, store.Record(newsletter.Activity{Type: newsletter.ActivityFollowed, Channel: "1@newsletter"}))

	f, err := os.OpenFile(store.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	list, err := store.List(ActivityFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestActivityStore_ConcurrentRecord(t *testing.T) {
	store := NewActivityStore(t.TempDir())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Record(newsletter.Activity{Type: newsletter.ActivityFollowed, Channel: "1@newsletter"})
		}()
	}
	wg.Wait()

	list, err := store.List(ActivityFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 10)
}
