package commands

import (
	"context"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/commands/doctor"
	"github.com/hay-kot/chanfeed/internal/printer"
)

type DoctorCmd struct {
	flags  *Flags
	format string
	fix    bool
	maxAge time.Duration
}

func NewDoctorCmd(flags *Flags) *DoctorCmd {
	return &DoctorCmd{flags: flags}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your chanfeed setup",
		UsageText:   "chanfeed doctor [options]",
		Description: "Runs diagnostic checks on configuration and the channel cache.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "fix",
				Usage:       "remove invalid and stale cache entries",
				Destination: &cmd.fix,
			},
			&cli.DurationFlag{
				Name:        "max-age",
				Usage:       "age after which a cached channel is reported as stale (0 disables)",
				Value:       7 * 24 * time.Hour,
				Destination: &cmd.maxAge,
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

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	checks := []doctor.Check{
		doctor.NewConfigCheck(cmd.flags.Config, cmd.flags.ConfigPath),
		doctor.NewCacheCheck(cmd.flags.Channels, cmd.maxAge, cmd.fix),
	}

	results := doctor.RunAll(ctx, checks)

	if cmd.format == "json" {
		return cmd.outputJSON(c, results)
	}

	return cmd.outputText(ctx, results)
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	tally := doctor.Summarize(results)

	out := struct {
		Healthy bool            `json:"healthy"`
		Summary doctor.Tally    `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: tally.Healthy(),
		Summary: tally,
		Checks:  results,
	}

	return writeJSON(c.Root().Writer, out)
}

func (cmd *DoctorCmd) outputText(ctx context.Context, results []doctor.Result) error {
	p := printer.Ctx(ctx)
	now := time.Now()

	for _, result := range results {
		p.Section(result.Name)

		for _, item := range result.Items {
			detail := item.Detail
			if age := item.Age(now); age > 0 && !item.Removed {
				detail += ", cached " + age.Round(time.Minute).String() + " ago"
			}

			switch item.Status {
			case doctor.StatusPass:
				p.CheckItem(item.Label, detail)
			case doctor.StatusWarn:
				p.WarnItem(item.Label, detail)
			case doctor.StatusFail:
				p.FailItem(item.Label, detail)
			}
		}

		p.Printf("")
	}

	tally := doctor.Summarize(results)
	p.Printf("Summary: %d passed, %d warnings, %d failed", tally.Passed, tally.Warned, tally.Failed)

	if len(tally.Removed) > 0 {
		p.Successf("Removed %d channel(s) from the cache: %s", len(tally.Removed), strings.Join(tally.Removed, ", "))
	}
	if tally.Fixable > 0 {
		p.Infof("Run 'chanfeed doctor --fix' to remove %d cached channel(s)", tally.Fixable)
	}

	if !tally.Healthy() {
		return cli.Exit("", 1)
	}

	return nil
}
