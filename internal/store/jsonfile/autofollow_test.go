package jsonfile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/chanfeed/internal/core/connection"
	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

type stubProber struct {
	following bool
	followErr error
}

func (p stubProber) IsFollowing(context.Context, string) bool { return p.following }

func (p stubProber) Follow(context.Context, string) error { return p.followErr }

func TestActivityStore_RecordsAutoFollowRuns(t *testing.T) {
	store := NewActivityStore(t.TempDir())
	emitter := connection.NewEmitter(zerolog.Nop())

	af := newsletter.NewAutoFollower(stubProber{followErr: errors.New("timed out")}, newsletter.AutoFollowOptions{
		Recorder: store,
		Logger:   zerolog.Nop(),
	})
	af.Register(context.Background(), emitter)

	emitter.Emit(connection.Update{State: connection.StateOpen})
	af.Wait()
	emitter.Emit(connection.Update{State: connection.StateClose})
	emitter.Emit(connection.Update{State: connection.StateOpen})
	af.Wait()

	list, err := store.List(ActivityFilter{Channel: newsletter.DefaultPromoChannel})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, a := range list {
		assert.Equal(t, newsletter.ActivityFollowFailed, a.Type)
		assert.Equal(t, "timed out", a.Error)
	}
}

func TestActivityStore_RecordsAlreadyFollowing(t *testing.T) {
	store := NewActivityStore(t.TempDir())

	newsletter.NewAutoFollower(stubProber{following: true}, newsletter.AutoFollowOptions{
		Channel:  "9@newsletter",
		Recorder: store,
		Logger:   zerolog.Nop(),
	}).Run(context.Background())

	last, ok, err := store.Last("9@newsletter")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newsletter.ActivityAlreadyFollowing, last.Type)
}
