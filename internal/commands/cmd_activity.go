package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
	"github.com/hay-kot/chanfeed/internal/printer"
	"github.com/hay-kot/chanfeed/internal/store/jsonfile"
)

type ActivityCmd struct {
	flags   *Flags
	last    int
	channel string
	failed  bool
	since   time.Duration
	format  string
}

// NewActivityCmd creates a new activity command
func NewActivityCmd(flags *Flags) *ActivityCmd {
	return &ActivityCmd{flags: flags}
}

// Register adds the activity command to the application
func (cmd *ActivityCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "activity",
		Usage:       "Show auto-follow activity",
		UsageText:   "chanfeed activity [options]",
		Description: "Lists recorded auto-follow outcomes, newest first.",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "last",
				Aliases:     []string{"n"},
				Usage:       "number of entries to show (0 for all)",
				Value:       20,
				Destination: &cmd.last,
			},
			&cli.StringFlag{
				Name:        "channel",
				Usage:       "only show entries for this channel",
				Destination: &cmd.channel,
			},
			&cli.BoolFlag{
				Name:        "failed",
				Usage:       "only show failed follow attempts",
				Destination: &cmd.failed,
			},
			&cli.DurationFlag{
				Name:        "since",
				Usage:       "only show entries newer than this duration ago",
				Destination: &cmd.since,
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

func (cmd *ActivityCmd) run(ctx context.Context, c *cli.Command) error {
	filter := jsonfile.ActivityFilter{
		Channel: cmd.channel,
		Limit:   cmd.last,
	}
	if cmd.failed {
		filter.Type = newsletter.ActivityFollowFailed
	}
	if cmd.since > 0 {
		filter.Since = time.Now().Add(-cmd.since)
	}

	activities, err := cmd.flags.Activity.List(filter)
	if err != nil {
		return fmt.Errorf("list activity: %w", err)
	}

	if cmd.format == "json" {
		return writeJSON(c.Root().Writer, activities)
	}

	if len(activities) == 0 {
		printer.Ctx(ctx).Infof("No activity recorded")
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tCHANNEL\tOUTCOME\tERROR")
	for _, a := range activities {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.Timestamp.Format(time.DateTime), a.Channel, a.Type, a.Error)
	}
	return w.Flush()
}
