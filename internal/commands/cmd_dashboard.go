package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/casetrack/internal/casework"
	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/dashboard"
	"github.com/colonyops/casetrack/internal/core/eventbus"
	"github.com/colonyops/casetrack/internal/core/styles"
	"github.com/colonyops/casetrack/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type DashboardCmd struct {
	flags *Flags
	app   *casework.App

	// flags
	jsonOutput bool
	watch      bool
}

// NewDashboardCmd creates a new dashboard command.
func NewDashboardCmd(flags *Flags, app *casework.App) *DashboardCmd {
	return &DashboardCmd{flags: flags, app: app}
}

// Register adds the dashboard command to the application.
func (cmd *DashboardCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "dashboard",
		Usage:     "Show task analytics",
		UsageText: "casetrack dashboard [--json] [--watch]",
		Description: `Shows task counts by status and priority, the completion rate and the
next five deadlines.

With --watch the dashboard stays open and redraws whenever tasks change.
Changes made by other processes only arrive when realtime.driver is
postgres or kafka. With the default bus driver only changes made by this
process trigger a redraw.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
			&cli.BoolFlag{
				Name:        "watch",
				Aliases:     []string{"w"},
				Usage:       "redraw on every change until interrupted",
				Destination: &cmd.watch,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *DashboardCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.watch {
		return cmd.runWatch(ctx, c)
	}

	tasks, err := cmd.app.Tasks.List(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	now := time.Now().In(cmd.app.Config.Location())
	return cmd.render(c, dashboard.Build(tasks, now), now)
}

func (cmd *DashboardCmd) runWatch(ctx context.Context, c *cli.Command) error {
	if msg := watchWarning(cmd.app.Config); msg != "" {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, styles.WarningStyle.Render(msg))
	}

	ws := cmd.app.NewWorkspace()

	redraw := make(chan struct{}, 1)
	unsub := cmd.app.Bus.SubscribeTasksReloaded(func(eventbus.TasksReloadedPayload) {
		select {
		case redraw <- struct{}{}:
		default:
		}
	})
	defer unsub()

	if err := ws.Open(ctx); err != nil {
		return fmt.Errorf("open workspace: %w", err)
	}
	defer ws.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-redraw:
			_, _ = fmt.Fprintln(c.Root().Writer, styles.DividerStyle.Render(strings.Repeat("─", terminalWidth())))
			now := time.Now().In(cmd.app.Config.Location())
			if err := cmd.render(c, ws.Dashboard(), now); err != nil {
				return err
			}
		}
	}
}

func (cmd *DashboardCmd) render(c *cli.Command, v dashboard.View, now time.Time) error {
	if cmd.jsonOutput {
		return iojson.WriteLine(c.Root().Writer, v)
	}
	return renderDashboard(c.Root().Writer, v, now, terminalWidth())
}

// watchWarning returns a notice when the realtime driver cannot see changes
// made by other processes.
func watchWarning(cfg *config.Config) string {
	if cfg == nil || cfg.Realtime.Driver != config.RealtimeBus {
		return ""
	}
	return "realtime driver is bus: only changes made by this process trigger a redraw"
}
