package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
	"github.com/hay-kot/chanfeed/internal/core/connection"
	"github.com/hay-kot/chanfeed/internal/core/newsletter"
	"github.com/hay-kot/chanfeed/internal/printer"
)

// replayTransport answers metadata queries with a recorded response and every
// other request with an empty result, or followErr when set.
type replayTransport struct {
	*newsletter.TagGenerator

	metadata  *binnode.Node
	followErr error

	mu   sync.Mutex
	sent []binnode.Node
}

func (t *replayTransport) Query(ctx context.Context, n binnode.Node) (*binnode.Node, error) {
	t.mu.Lock()
	t.sent = append(t.sent, n)
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch binnode.Child(&n, "query").Attr("query_id") {
	case string(newsletter.QueryMetadata):
		return t.metadata, nil
	case string(newsletter.QueryFollow):
		if t.followErr != nil {
			return nil, t.followErr
		}
	}
	return &binnode.Node{Tag: "iq", Attrs: map[string]string{"type": "result", "id": n.Attr("id")}}, nil
}

func (t *replayTransport) requests() []binnode.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]binnode.Node(nil), t.sent...)
}

// autoFollowResult is what one simulated connect produced.
type autoFollowResult struct {
	Channel  string               `json:"channel"`
	Skipped  bool                 `json:"skipped"`
	Requests []binnode.Node       `json:"requests"`
	Activity *newsletter.Activity `json:"activity,omitempty"`
}

type AutoFollowCmd struct {
	flags      *Flags
	file       string
	failFollow string
	format     string
}

// NewAutoFollowCmd creates a new autofollow command
func NewAutoFollowCmd(flags *Flags) *AutoFollowCmd {
	return &AutoFollowCmd{flags: flags}
}

// Register adds the autofollow command to the application
func (cmd *AutoFollowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "autofollow",
		Usage:     "Replay a connect against a recorded metadata response",
		UsageText: "chanfeed autofollow -f <metadata-response.json> [options]",
		Description: `Opens a simulated connection and runs the auto-follow reactor for the
configured channel. Metadata queries are answered from the given response file;
a follow request succeeds unless --fail-follow is set. The outcome is written
to the activity log shown by 'chanfeed activity'.

Nothing is sent when auto_follow.enabled is false.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "metadata response node file, - for stdin",
				Required:    true,
				Destination: &cmd.file,
			},
			&cli.StringFlag{
				Name:        "fail-follow",
				Usage:       "answer the follow request with this error",
				Destination: &cmd.failFollow,
			},
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *AutoFollowCmd) run(ctx context.Context, c *cli.Command) error {
	resp, err := readNode(cmd.file, c.Root().Reader)
	if err != nil {
		return err
	}

	res, err := cmd.connect(ctx, resp)
	if err != nil {
		return err
	}

	if cmd.format == "json" {
		return writeJSON(c.Root().Writer, res)
	}

	p := printer.Ctx(ctx)
	switch {
	case res.Skipped:
		p.Infof("Auto-follow is disabled, nothing sent")
	case res.Activity == nil:
		p.Warnf("No outcome recorded for %s", res.Channel)
	case res.Activity.Type == newsletter.ActivityFollowed:
		p.Successf("Followed %s", res.Channel)
	case res.Activity.Type == newsletter.ActivityAlreadyFollowing:
		p.Infof("Already following %s", res.Channel)
	default:
		p.Errorf("Follow %s failed: %s", res.Channel, res.Activity.Error)
	}
	return nil
}

// connect emits an open transition to an AutoFollower wired to a replaying
// socket and waits for the run to finish.
func (cmd *AutoFollowCmd) connect(ctx context.Context, resp *binnode.Node) (autoFollowResult, error) {
	cfg := cmd.flags.Config
	res := autoFollowResult{Channel: cfg.AutoFollow.Channel, Requests: []binnode.Node{}}

	if !cfg.AutoFollow.Enabled {
		res.Skipped = true
		return res, nil
	}

	transport := &replayTransport{TagGenerator: newsletter.NewTagGenerator(), metadata: resp}
	if cmd.failFollow != "" {
		transport.followErr = errors.New(cmd.failFollow)
	}

	logger := log.With().Str("component", "autofollow").Logger()
	sock := newsletter.New(newsletter.Options{
		Transport: transport,
		ServerJID: cfg.ServerJID,
		Logger:    logger,
	})

	af := newsletter.NewAutoFollower(sock, newsletter.AutoFollowOptions{
		Channel:  cfg.AutoFollow.Channel,
		Timeout:  cfg.QueryTimeout,
		Recorder: cmd.flags.Activity,
		Logger:   logger,
	})

	events := connection.NewEmitter(logger)
	af.Register(ctx, events)
	events.Emit(connection.Update{State: connection.StateConnecting})
	events.Emit(connection.Update{State: connection.StateOpen})
	af.Wait()

	res.Requests = transport.requests()

	last, ok, err := cmd.flags.Activity.Last(cfg.AutoFollow.Channel)
	if err != nil {
		return res, fmt.Errorf("read activity: %w", err)
	}
	if ok {
		res.Activity = &last
	}
	return res, nil
}
