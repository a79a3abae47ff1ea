package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

type UpdatesCmd struct {
	flags  *Flags
	file   string
	kind   string
	format string
}

// NewUpdatesCmd creates a new updates command
func NewUpdatesCmd(flags *Flags) *UpdatesCmd {
	return &UpdatesCmd{flags: flags}
}

// Register adds the updates command to the application
func (cmd *UpdatesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "updates",
		Usage:     "Normalise a channel feed response",
		UsageText: "chanfeed updates -f <node.json> [--kind messages|message_updates]",
		Description: `Reads a feed response in JSON fixture form and prints one entry per item with
its view count and reaction tallies. Message content is taken from each item's
plaintext child.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "response node file, - for stdin",
				Required:    true,
				Destination: &cmd.file,
			},
			&cli.StringFlag{
				Name:        "kind",
				Usage:       "response kind (messages, message_updates)",
				Value:       string(newsletter.KindMessages),
				Destination: &cmd.kind,
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

func (cmd *UpdatesCmd) run(ctx context.Context, c *cli.Command) error {
	kind, err := newsletter.ParseUpdateKind(cmd.kind)
	if err != nil {
		return err
	}

	node, err := readNode(cmd.file, c.Root().Reader)
	if err != nil {
		return err
	}

	cfg := cmd.flags.Config
	ctx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()

	log.Debug().Str("kind", string(kind)).Int("workers", cfg.DecryptWorkers).Msg("parsing feed")

	items, err := newsletter.ParseUpdates(ctx, node, kind, newsletter.UpdateOptions{
		Decrypter: newsletter.PlaintextDecrypter{},
		Workers:   cfg.DecryptWorkers,
	})
	if err != nil {
		return fmt.Errorf("parse updates: %w", err)
	}

	if cmd.format == "json" {
		return writeJSON(c.Root().Writer, items)
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVER ID\tVIEWS\tREACTIONS\tMESSAGE")
	for _, it := range items {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", it.ServerID, it.Views, formatReactions(it.Reactions), messageText(it.Message))
	}
	return w.Flush()
}

func formatReactions(rs []newsletter.Reaction) string {
	if len(rs) == 0 {
		return "-"
	}
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = fmt.Sprintf("%s×%d", r.Code, r.Count)
	}
	return strings.Join(parts, " ")
}

func messageText(m *newsletter.Message) string {
	if m == nil {
		return ""
	}
	const maxLen = 60
	text := strings.ReplaceAll(string(m.Payload), "\n", " ")
	if r := []rune(text); len(r) > maxLen {
		return string(r[:maxLen-1]) + "…"
	}
	return text
}
