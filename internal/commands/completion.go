package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/casetrack/internal/casework"
	"github.com/urfave/cli/v3"
)

// TaskIDCompleter returns a ShellCompleteFunc that suggests task IDs as
// positional completions, each followed by the task title as a description.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func TaskIDCompleter(app *casework.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		if app == nil || app.Tasks == nil {
			return
		}

		tasks, err := app.Tasks.List(ctx)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, t := range tasks {
			if t.IsCompleted() {
				continue
			}
			_, _ = fmt.Fprintf(w, "%s:%s\n", t.ID, t.Title)
		}
	}
}
