package newsletter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
	"github.com/hay-kot/chanfeed/internal/core/connection"
)

type memRecorder struct {
	mu         sync.Mutex
	activities []Activity
}

func (r *memRecorder) Record(a Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = append(r.activities, a)
	return nil
}

// subscriptionTransport answers metadata probes with the given subscription
// state and records follow queries.
func subscriptionTransport(subscribed bool) *fakeTransport {
	doc := `{"data":{"xwa2_newsletter":{"viewer_metadata":{"is_subscribed":false}}}}`
	if subscribed {
		doc = `{"data":{"xwa2_newsletter":{"viewer_metadata":{"is_subscribed":true}}}}`
	}
	return &fakeTransport{respond: func(n binnode.Node) (*binnode.Node, error) {
		if binnode.Child(&n, "query").Attr("query_id") == string(QueryMetadata) {
			return resultNode(doc), nil
		}
		return &binnode.Node{Tag: "iq"}, nil
	}}
}

func followQueries(tr *fakeTransport) []binnode.Node {
	var out []binnode.Node
	for _, n := range tr.Sent() {
		if binnode.Child(&n, "query").Attr("query_id") == string(QueryFollow) {
			out = append(out, n)
		}
	}
	return out
}

func TestAutoFollower_FollowsWhenNotSubscribed(t *testing.T) {
	tr := subscriptionTransport(false)
	rec := &memRecorder{}
	emitter := connection.NewEmitter(zerolog.Nop())

	af := NewAutoFollower(newTestSocket(tr), AutoFollowOptions{Recorder: rec, Logger: zerolog.Nop()})
	af.Register(context.Background(), emitter)

	emitter.Emit(connection.Update{State: connection.StateOpen})
	af.Wait()

	follows := followQueries(tr)
	require.Len(t, follows, 1)
	assert.Equal(t, DefaultPromoChannel, queryVariables(t, follows[0])["newsletter_id"])

	require.Len(t, rec.activities, 1)
	assert.Equal(t, ActivityFollowed, rec.activities[0].Type)
	assert.Equal(t, DefaultPromoChannel, rec.activities[0].Channel)
}

func TestAutoFollower_SkipsWhenSubscribed(t *testing.T) {
	tr := subscriptionTransport(true)
	emitter := connection.NewEmitter(zerolog.Nop())

	af := NewAutoFollower(newTestSocket(tr), AutoFollowOptions{Logger: zerolog.Nop()})
	af.Register(context.Background(), emitter)

	emitter.Emit(connection.Update{State: connection.StateOpen})
	af.Wait()

	assert.Empty(t, followQueries(tr))
	assert.Len(t, tr.Sent(), 1, "only the probe is sent")
}

func TestAutoFollower_FiresOncePerOpenTransition(t *testing.T) {
	tr := subscriptionTransport(false)
	emitter := connection.NewEmitter(zerolog.Nop())

	af := NewAutoFollower(newTestSocket(tr), AutoFollowOptions{Channel: "77@newsletter", Logger: zerolog.Nop()})
	af.Register(context.Background(), emitter)

	for _, st := range []connection.State{
		connection.StateConnecting,
		connection.StateOpen,
		connection.StateOpen,
		connection.StateClose,
		connection.StateConnecting,
		connection.StateOpen,
	} {
		emitter.Emit(connection.Update{State: st})
	}
	af.Wait()

	follows := followQueries(tr)
	require.Len(t, follows, 2)
	for _, f := range follows {
		assert.Equal(t, "77@newsletter", queryVariables(t, f)["newsletter_id"])
	}
}

func TestAutoFollower_IgnoresNonOpen(t *testing.T) {
	tr := subscriptionTransport(false)
	emitter := connection.NewEmitter(zerolog.Nop())

	af := NewAutoFollower(newTestSocket(tr), AutoFollowOptions{Logger: zerolog.Nop()})
	af.Register(context.Background(), emitter)

	emitter.Emit(connection.Update{State: connection.StateConnecting})
	emitter.Emit(connection.Update{State: connection.StateClose})
	af.Wait()

	assert.Empty(t, tr.Sent())
}

func TestAutoFollower_SwallowsFailures(t *testing.T) {
	errDown := errors.New("socket down")
	tr := &fakeTransport{respond: func(binnode.Node) (*binnode.Node, error) { return nil, errDown }}
	rec := &memRecorder{}

	af := NewAutoFollower(newTestSocket(tr), AutoFollowOptions{Recorder: rec, Logger: zerolog.Nop()})

	assert.NotPanics(t, func() { af.Run(context.Background()) })

	// Failed probe reads as not following, so a follow is still attempted.
	assert.Len(t, followQueries(tr), 1)
	require.Len(t, rec.activities, 1)
	assert.Equal(t, ActivityFollowFailed, rec.activities[0].Type)
	assert.Equal(t, "socket down", rec.activities[0].Error)
}

type panicProber struct{}

func (panicProber) IsFollowing(context.Context, string) bool { return false }
func (panicProber) Follow(context.Context, string) error     { panic("boom") }

func TestAutoFollower_RecoversPanic(t *testing.T) {
	af := NewAutoFollower(panicProber{}, AutoFollowOptions{Logger: zerolog.Nop()})
	assert.NotPanics(t, func() { af.Run(context.Background()) })
}
