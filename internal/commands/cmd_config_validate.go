package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/chanfeed/internal/core/config"
	"github.com/hay-kot/chanfeed/internal/printer"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate configuration file",
				UsageText: "chanfeed config validate [options]",
				Description: `Prints the effective settings and checks the server address, auto-follow
channel, query timeout, decrypt worker count, view role and data directory.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// configIssue is a single validation error keyed by its YAML path.
type configIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// configReport is the outcome of validating the loaded configuration.
type configReport struct {
	Valid    bool                       `json:"valid"`
	Settings []setting                  `json:"settings"`
	Errors   []configIssue              `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

type setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func newConfigReport(cfg *config.Config, configPath string) configReport {
	err := cfg.ValidateDeep(configPath)

	report := configReport{
		Valid:    err == nil,
		Warnings: cfg.Warnings(),
		Settings: []setting{
			{"server_jid", cfg.ServerJID},
			{"auto_follow.enabled", strconv.FormatBool(cfg.AutoFollow.Enabled)},
			{"auto_follow.channel", cfg.AutoFollow.Channel},
			{"query_timeout", cfg.QueryTimeout.String()},
			{"decrypt_workers", strconv.Itoa(cfg.DecryptWorkers)},
			{"view_role", cfg.ViewRole},
			{"channels_file", cfg.ChannelsFile()},
		},
	}

	if err == nil {
		return report
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		report.Errors = []configIssue{{Message: err.Error()}}
		return report
	}
	for _, fe := range fieldErrs {
		report.Errors = append(report.Errors, configIssue{Field: fe.Field, Message: fe.Err.Error()})
	}
	return report
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	report := newConfigReport(cmd.flags.Config, cmd.flags.ConfigPath)

	if cmd.format == "json" {
		return writeJSON(c.Root().Writer, report)
	}

	printConfigReport(printer.Ctx(ctx), report)
	if !report.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

func printConfigReport(p *printer.Printer, report configReport) {
	p.Section("Settings")
	for _, s := range report.Settings {
		p.Field(s.Key, s.Value)
	}
	p.Printf("")

	if len(report.Errors) > 0 {
		p.Section("Errors")
		for _, issue := range report.Errors {
			label := issue.Field
			if label == "" {
				label = "config"
			}
			p.FailItem(label, issue.Message)
		}
		p.Printf("")
	}

	if len(report.Warnings) > 0 {
		p.Section("Warnings")
		for _, w := range report.Warnings {
			label := w.Category
			if w.Item != "" {
				label += " (" + w.Item + ")"
			}
			p.WarnItem(label, w.Message)
		}
		p.Printf("")
	}

	switch {
	case !report.Valid:
		p.Errorf("%d error(s), %d warning(s)", len(report.Errors), len(report.Warnings))
	case len(report.Warnings) > 0:
		p.Successf("Configuration is valid (%d warning(s))", len(report.Warnings))
	default:
		p.Successf("Configuration is valid")
	}
}
