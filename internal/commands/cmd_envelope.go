package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/core/binnode"
	"github.com/hay-kot/chanfeed/internal/core/newsletter"
	"github.com/hay-kot/chanfeed/internal/core/validate"
)

// errDryRun stops an operation after its request has been captured.
var errDryRun = errors.New("dry run")

// dryRunTransport records outgoing requests instead of sending them.
type dryRunTransport struct {
	*newsletter.TagGenerator

	mu   sync.Mutex
	sent []binnode.Node
}

func (t *dryRunTransport) Query(_ context.Context, n binnode.Node) (*binnode.Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, n)
	return nil, errDryRun
}

type EnvelopeCmd struct {
	flags       *Flags
	op          string
	jid         string
	user        string
	name        string
	description string
}

// NewEnvelopeCmd creates a new envelope command
func NewEnvelopeCmd(flags *Flags) *EnvelopeCmd {
	return &EnvelopeCmd{flags: flags}
}

// Register adds the envelope command to the application
func (cmd *EnvelopeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "envelope",
		Usage:     "Print the request an operation would send",
		UsageText: "chanfeed envelope --op <operation> [--jid <jid>] [options]",
		Description: `Builds the managed query for an operation and prints it as JSON without
sending anything. Run 'chanfeed catalog' for the list of operations.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "op",
				Usage:       "operation name",
				Required:    true,
				Destination: &cmd.op,
			},
			&cli.StringFlag{
				Name:        "jid",
				Usage:       "target channel jid",
				Destination: &cmd.jid,
			},
			&cli.StringFlag{
				Name:        "user",
				Usage:       "user jid for change_owner and demote",
				Destination: &cmd.user,
			},
			&cli.StringFlag{
				Name:        "name",
				Usage:       "channel name for create and job_mutation",
				Destination: &cmd.name,
			},
			&cli.StringFlag{
				Name:        "description",
				Usage:       "channel description for create and job_mutation",
				Destination: &cmd.description,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *EnvelopeCmd) run(ctx context.Context, c *cli.Command) error {
	if _, err := newsletter.LookupOperation(cmd.op); err != nil {
		return fmt.Errorf("%w %q. Run 'chanfeed catalog' for the list", err, cmd.op)
	}
	if err := cmd.validate(); err != nil {
		return err
	}

	envelope, err := cmd.capture(ctx)
	if err != nil {
		return err
	}

	return writeJSON(c.Root().Writer, envelope)
}

// capture runs the operation against a dry-run socket and returns the first
// request it dispatched.
func (cmd *EnvelopeCmd) capture(ctx context.Context) (binnode.Node, error) {
	transport := &dryRunTransport{TagGenerator: newsletter.NewTagGenerator()}
	sock := newsletter.New(newsletter.Options{
		Transport: transport,
		ServerJID: cmd.flags.Config.ServerJID,
		Logger:    log.With().Str("component", "envelope").Logger(),
	})

	var err error
	switch newsletter.Operation(cmd.op) {
	case newsletter.OpFollow:
		err = sock.Follow(ctx, cmd.jid)
	case newsletter.OpUnfollow:
		err = sock.Unfollow(ctx, cmd.jid)
	case newsletter.OpMute:
		err = sock.Mute(ctx, cmd.jid)
	case newsletter.OpUnmute:
		err = sock.Unmute(ctx, cmd.jid)
	case newsletter.OpDelete:
		err = sock.Delete(ctx, cmd.jid)
	case newsletter.OpMetadata:
		_, err = sock.Metadata(ctx, newsletter.LookupJID, cmd.jid, cmd.flags.Config.ViewRole)
	case newsletter.OpCreate:
		_, err = sock.Create(ctx, cmd.name, cmd.description)
	case newsletter.OpAdminCount:
		_, err = sock.AdminCount(ctx, cmd.jid)
	case newsletter.OpChangeOwner:
		err = sock.ChangeOwner(ctx, cmd.jid, cmd.user)
	case newsletter.OpDemote:
		err = sock.Demote(ctx, cmd.jid, cmd.user)
	case newsletter.OpJobMutation:
		err = sock.UpdateMetadata(ctx, cmd.jid, cmd.metadataUpdate())
	}

	if err != nil && !errors.Is(err, errDryRun) {
		return binnode.Node{}, err
	}
	if len(transport.sent) == 0 {
		return binnode.Node{}, fmt.Errorf("operation %q sent no request", cmd.op)
	}
	return transport.sent[0], nil
}

// validate checks the addresses an operation needs before building it.
func (cmd *EnvelopeCmd) validate() error {
	op := newsletter.Operation(cmd.op)
	if op == newsletter.OpCreate {
		if cmd.name == "" {
			return fmt.Errorf("--name is required for %s", op)
		}
		return nil
	}

	if err := validate.ChannelJID(cmd.jid); err != nil {
		return fmt.Errorf("--jid: %w", err)
	}
	if op == newsletter.OpChangeOwner || op == newsletter.OpDemote {
		if err := validate.UserJID(cmd.user); err != nil {
			return fmt.Errorf("--user: %w", err)
		}
	}
	return nil
}

func (cmd *EnvelopeCmd) metadataUpdate() newsletter.MetadataUpdate {
	var u newsletter.MetadataUpdate
	if cmd.name != "" {
		u.Name = &cmd.name
	}
	if cmd.description != "" {
		u.Description = &cmd.description
	}
	return u
}
