package newsletter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/chanfeed/internal/core/connection"
)

// DefaultPromoChannel is the channel followed automatically on connect
// unless configured otherwise.
const DefaultPromoChannel = "120363419833061999@newsletter"

const defaultFollowTimeout = 20 * time.Second

// ActivityType is the outcome of an auto-follow run.
type ActivityType string

const (
	ActivityAlreadyFollowing ActivityType = "already_following"
	ActivityFollowed         ActivityType = "followed"
	ActivityFollowFailed     ActivityType = "follow_failed"
)

// Activity is one recorded auto-follow run.
type Activity struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	Channel   string       `json:"channel"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// ActivityRecorder persists auto-follow activity.
type ActivityRecorder interface {
	Record(activity Activity) error
}

// Prober is the part of Socket the auto-follower needs.
type Prober interface {
	IsFollowing(ctx context.Context, jid string) bool
	Follow(ctx context.Context, jid string) error
}

// AutoFollowOptions configures an AutoFollower.
type AutoFollowOptions struct {
	// Channel defaults to DefaultPromoChannel.
	Channel string
	// Timeout bounds one probe-and-follow run.
	Timeout time.Duration
	// Recorder is optional.
	Recorder ActivityRecorder
	Logger   zerolog.Logger
}

// AutoFollower follows a fixed channel each time the connection opens.
type AutoFollower struct {
	prober   Prober
	channel  string
	timeout  time.Duration
	recorder ActivityRecorder
	log      zerolog.Logger

	mu   sync.Mutex
	open bool
	wg   sync.WaitGroup
}

// NewAutoFollower creates an AutoFollower.
func NewAutoFollower(p Prober, opts AutoFollowOptions) *AutoFollower {
	a := &AutoFollower{
		prober:   p,
		channel:  opts.Channel,
		timeout:  opts.Timeout,
		recorder: opts.Recorder,
		log:      opts.Logger,
	}
	if a.channel == "" {
		a.channel = DefaultPromoChannel
	}
	if a.timeout <= 0 {
		a.timeout = defaultFollowTimeout
	}
	return a
}

// Register subscribes to events. Each run happens in its own goroutine bound
// to ctx so the emitter is never blocked.
func (a *AutoFollower) Register(ctx context.Context, events connection.Events) {
	events.OnUpdate(func(u connection.Update) {
		if !a.transition(u) {
			return
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.Run(ctx)
		}()
	})
}

// Wait blocks until in-flight runs complete.
func (a *AutoFollower) Wait() {
	a.wg.Wait()
}

// transition reports whether u moves the connection into the open state.
func (a *AutoFollower) transition(u connection.Update) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if u.State != connection.StateOpen {
		a.open = false
		return false
	}
	if a.open {
		return false
	}
	a.open = true
	return true
}

// Run probes the channel and follows it if needed. Failures are logged and
// recorded, never returned.
func (a *AutoFollower) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Warn().Interface("panic", r).Str("channel", a.channel).Msg("auto-follow panic")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if a.prober.IsFollowing(ctx, a.channel) {
		a.log.Debug().Str("channel", a.channel).Msg("already following")
		a.record(Activity{Type: ActivityAlreadyFollowing, Channel: a.channel})
		return
	}

	if err := a.prober.Follow(ctx, a.channel); err != nil {
		a.log.Warn().Err(err).Str("channel", a.channel).Msg("auto-follow failed")
		a.record(Activity{Type: ActivityFollowFailed, Channel: a.channel, Error: err.Error()})
		return
	}

	a.log.Info().Str("channel", a.channel).Msg("followed channel")
	a.record(Activity{Type: ActivityFollowed, Channel: a.channel})
}

func (a *AutoFollower) record(act Activity) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.Record(act); err != nil {
		a.log.Debug().Err(err).Msg("record auto-follow activity")
	}
}
