package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/colonyops/casetrack/internal/casework"
	"github.com/colonyops/casetrack/internal/core/notify"
	"github.com/colonyops/casetrack/internal/core/styles"
	"github.com/colonyops/casetrack/pkg/iojson"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// NotificationsCmd implements the casetrack notifications command group.
type NotificationsCmd struct {
	flags *Flags
	app   *casework.App

	// list flags
	jsonOutput bool
}

// NewNotificationsCmd creates a new notifications command.
func NewNotificationsCmd(flags *Flags, app *casework.App) *NotificationsCmd {
	return &NotificationsCmd{flags: flags, app: app}
}

// Register adds the notifications command to the application.
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notif"},
		Usage:   "Show or clear the notification history",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List recent notifications, newest first",
				UsageText: "casetrack notifications list [--json]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "clear",
				Usage:     "Delete all notifications",
				UsageText: "casetrack notifications clear",
				Action:    cmd.runClear,
			},
		},
	})

	return app
}

type notificationInfo struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func (cmd *NotificationsCmd) runList(ctx context.Context, c *cli.Command) error {
	list, err := cmd.app.Notifications.List(ctx)
	if err != nil {
		return err
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, n := range list {
			info := notificationInfo{ID: n.ID, Level: string(n.Level), Message: n.Message, CreatedAt: n.CreatedAt}
			if err := iojson.WriteLine(out, info); err != nil {
				return fmt.Errorf("encode notification: %w", err)
			}
		}
		return nil
	}

	if len(list) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No notifications")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, n := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			levelStyle(n.Level).Render(string(n.Level)),
			n.Message,
			styles.MutedStyle.Render(humanize.Time(n.CreatedAt)),
		)
	}
	return w.Flush()
}

func (cmd *NotificationsCmd) runClear(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Notifications.Clear(ctx); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(c.Root().Writer, "cleared")
	return nil
}

func levelStyle(l notify.Level) lipgloss.Style {
	switch l {
	case notify.LevelError:
		return styles.ErrorStyle
	case notify.LevelWarning:
		return styles.WarningStyle
	default:
		return styles.SuccessStyle
	}
}
