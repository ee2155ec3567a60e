package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/styles"
	"github.com/colonyops/casetrack/pkg/iojson"
	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
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
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "casetrack config validate [options]",
				Description: "Validates the configuration file, checking drivers, paths, the storage URL, the timezone and the theme.",
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

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validateOutput struct {
	Valid    bool                       `json:"valid"`
	Errors   []fieldError               `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	out := validateOutput{Warnings: cfg.Warnings()}
	if err := cfg.ValidateDeep(cmd.flags.ConfigPath); err != nil {
		out.Errors = fieldErrors(err)
	}
	out.Valid = len(out.Errors) == 0

	if cmd.format == "json" {
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, out); err != nil {
			return err
		}
		if !out.Valid {
			return cli.Exit("", 1)
		}
		return nil
	}

	return cmd.outputText(c, out)
}

func (cmd *ConfigValidateCmd) outputText(c *cli.Command, out validateOutput) error {
	w := c.Root().Writer

	for _, warn := range out.Warnings {
		_, _ = fmt.Fprintf(w, "%s %s: %s\n", styles.WarningStyle.Render("!"), warn.Category, warn.Message)
		if warn.Item != "" {
			_, _ = fmt.Fprintf(w, "  Item: %s\n", warn.Item)
		}
	}

	for _, fe := range out.Errors {
		_, _ = fmt.Fprintf(w, "%s %s: %s\n", styles.ErrorStyle.Render("✗"), fe.Field, fe.Message)
	}

	_, _ = fmt.Fprintln(w)
	if out.Valid {
		_, _ = fmt.Fprintf(w, "%s Configuration is valid\n", styles.SuccessStyle.Render("✓"))
		return nil
	}

	_, _ = fmt.Fprintf(w, "%s %d error(s) found\n", styles.ErrorStyle.Render("✗"), len(out.Errors))
	return cli.Exit("", 1)
}

func fieldErrors(err error) []fieldError {
	var fe criterio.FieldErrors
	if !errors.As(err, &fe) {
		return []fieldError{{Field: "config", Message: err.Error()}}
	}

	out := make([]fieldError, 0, len(fe))
	for _, e := range fe {
		out = append(out, fieldError{Field: e.Field, Message: e.Err.Error()})
	}
	return out
}
