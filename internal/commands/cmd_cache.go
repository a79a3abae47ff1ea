package commands

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
	"github.com/hay-kot/chanfeed/internal/printer"
)

type CacheCmd struct {
	flags  *Flags
	match  string
	format string
}

// NewCacheCmd creates a new cache command
func NewCacheCmd(flags *Flags) *CacheCmd {
	return &CacheCmd{flags: flags}
}

// Register adds the cache command to the application
func (cmd *CacheCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Inspect cached channel metadata",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List cached channels",
				UsageText: "chanfeed cache ls [--match <glob>]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "match",
						Usage:       "only show channels whose id or name matches the glob",
						Destination: &cmd.match,
					},
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "show",
				Usage:     "Show one cached channel",
				UsageText: "chanfeed cache show <jid>",
				Action:    cmd.runShow,
			},
			{
				Name:      "rm",
				Usage:     "Remove a channel from the cache",
				UsageText: "chanfeed cache rm <jid>",
				Action:    cmd.runRemove,
			},
		},
	})

	return app
}

func (cmd *CacheCmd) runList(ctx context.Context, c *cli.Command) error {
	if cmd.match != "" && !doublestar.ValidatePattern(cmd.match) {
		return fmt.Errorf("invalid match pattern %q", cmd.match)
	}

	channels, err := cmd.flags.Channels.List(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	channels = filterChannels(channels, cmd.match)

	if cmd.format == "json" {
		return writeJSON(c.Root().Writer, channels)
	}

	if len(channels) == 0 {
		printer.Ctx(ctx).Infof("No cached channels")
		return nil
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSUBSCRIBERS\tCACHED")
	for _, ch := range channels {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", ch.ID, ch.Name, ch.Subscribers, ch.CachedAt.Format(time.DateTime))
	}
	return w.Flush()
}

// filterChannels keeps channels whose id or name matches pattern. An empty
// pattern keeps everything.
func filterChannels(channels []newsletter.CachedMetadata, pattern string) []newsletter.CachedMetadata {
	if pattern == "" {
		return channels
	}

	var out []newsletter.CachedMetadata
	for _, ch := range channels {
		if ok, _ := doublestar.Match(pattern, ch.ID); ok {
			out = append(out, ch)
			continue
		}
		if ok, _ := doublestar.Match(pattern, ch.Name); ok {
			out = append(out, ch)
		}
	}
	return out
}

func (cmd *CacheCmd) runShow(ctx context.Context, c *cli.Command) error {
	jid := c.Args().First()
	if jid == "" {
		return fmt.Errorf("channel jid required")
	}

	ch, err := cmd.flags.Channels.Get(ctx, jid)
	if err != nil {
		return cacheErr(jid, err)
	}

	p := printer.New(c.Root().Writer)
	printMetadata(p, ch.Metadata)
	p.Field("cached", ch.CachedAt.Format(time.RFC3339))
	return nil
}

func (cmd *CacheCmd) runRemove(ctx context.Context, c *cli.Command) error {
	jid := c.Args().First()
	if jid == "" {
		return fmt.Errorf("channel jid required")
	}

	if err := cmd.flags.Channels.Delete(ctx, jid); err != nil {
		return cacheErr(jid, err)
	}

	printer.Ctx(ctx).Successf("Removed %s", jid)
	return nil
}

func cacheErr(jid string, err error) error {
	if errors.Is(err, newsletter.ErrNotCached) {
		return fmt.Errorf("%s: %w", jid, err)
	}
	return fmt.Errorf("read cache: %w", err)
}
