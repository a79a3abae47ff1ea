package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

type CatalogCmd struct {
	flags  *Flags
	format string
}

// NewCatalogCmd creates a new catalog command
func NewCatalogCmd(flags *Flags) *CatalogCmd {
	return &CatalogCmd{flags: flags}
}

// Register adds the catalog command to the application
func (cmd *CatalogCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "catalog",
		Usage:       "List managed channel operations and their query ids",
		UsageText:   "chanfeed catalog [options]",
		Description: "Prints every operation the client can issue as a managed query, sorted by name.",
		Flags: []cli.Flag{
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

func (cmd *CatalogCmd) run(ctx context.Context, c *cli.Command) error {
	entries := newsletter.Catalog()
	out := c.Root().Writer

	if cmd.format == "json" {
		return writeJSON(out, entries)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "OPERATION\tQUERY ID")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", e.Operation, e.QueryID)
	}
	return w.Flush()
}
