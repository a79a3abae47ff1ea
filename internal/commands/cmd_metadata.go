package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
	"github.com/hay-kot/chanfeed/internal/printer"
)

type MetadataCmd struct {
	flags  *Flags
	file   string
	create bool
	save   bool
	format string
}

// NewMetadataCmd creates a new metadata command
func NewMetadataCmd(flags *Flags) *MetadataCmd {
	return &MetadataCmd{flags: flags}
}

// Register adds the metadata command to the application
func (cmd *MetadataCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "metadata",
		Usage:     "Extract channel metadata from a response node",
		UsageText: "chanfeed metadata -f <node.json> [--create] [--save]",
		Description: `Reads a managed query response in JSON fixture form and prints the channel
metadata it carries. Use --create for responses to a create request and
--save to store the result in the local cache.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "response node file, - for stdin",
				Required:    true,
				Destination: &cmd.file,
			},
			&cli.BoolFlag{
				Name:        "create",
				Usage:       "response is to a create request",
				Destination: &cmd.create,
			},
			&cli.BoolFlag{
				Name:        "save",
				Usage:       "store the metadata in the channel cache",
				Destination: &cmd.save,
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

func (cmd *MetadataCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	node, err := readNode(cmd.file, c.Root().Reader)
	if err != nil {
		return err
	}

	shape := newsletter.ShapeFetch
	if cmd.create {
		shape = newsletter.ShapeCreate
	}

	md, err := newsletter.ExtractMetadata(node, shape)
	if err != nil {
		return fmt.Errorf("extract metadata: %w", err)
	}

	if cmd.save {
		if err := cmd.flags.Channels.Save(ctx, *md); err != nil {
			return fmt.Errorf("save metadata: %w", err)
		}
	}

	if cmd.format == "json" {
		return writeJSON(c.Root().Writer, md)
	}

	printMetadata(printer.New(c.Root().Writer), *md)
	if cmd.save {
		p.Successf("Cached %s", md.ID)
	}
	return nil
}

// printMetadata renders a metadata record as labelled fields.
func printMetadata(p *printer.Printer, md newsletter.Metadata) {
	p.Section(md.Name)
	p.Field("id", md.ID)
	p.Field("state", md.State)
	p.Field("created", formatUnix(md.CreationTime))
	if md.Description != "" {
		p.Field("description", md.Description)
	}
	p.Field("invite", md.Invite)
	if md.Handle != "" {
		p.Field("handle", md.Handle)
	}
	p.Field("subscribers", strconv.FormatInt(md.Subscribers, 10))
	p.Field("verification", md.Verification)
	if md.ReactionCodes != "" {
		p.Field("reactions", md.ReactionCodes)
	}
	if md.Picture != nil {
		p.Field("picture", *md.Picture)
	}
	if md.Viewer != nil {
		p.Field("role", md.Viewer.Role)
		if md.Viewer.Mute != "" {
			p.Field("mute", md.Viewer.Mute)
		}
	}
}

func formatUnix(sec int64) string {
	if sec == 0 {
		return "-"
	}
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
