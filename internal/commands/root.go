package commands

import (
	"github.com/colonyops/casetrack/internal/casework"
	"github.com/urfave/cli/v3"
)

// NewRootCmd builds the casetrack command tree. app may be an empty App that
// is populated later in a Before hook; commands only dereference it when they
// run.
func NewRootCmd(flags *Flags, app *casework.App, version string) *cli.Command {
	root := &cli.Command{
		Name:      "casetrack",
		Usage:     "Track tasks for case work",
		UsageText: "casetrack [global options] command [command options]",
		Description: `casetrack keeps the tasks of each case with their status, priority, due
date and attachments, and summarizes them on a dashboard.

Run 'casetrack task list' to see open work, 'casetrack dashboard' for the
overview, or 'casetrack serve' to run the HTTP API.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("CASETRACK_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/casetrack.log)",
				Sources:     cli.EnvVars("CASETRACK_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("CASETRACK_CONFIG"),
				Value:       DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("CASETRACK_DATA_DIR"),
				Value:       DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
	}

	root = NewTaskCmd(flags, app).Register(root)
	root = NewDashboardCmd(flags, app).Register(root)
	root = NewNotificationsCmd(flags, app).Register(root)
	root = NewServeCmd(flags, app).Register(root)
	root = NewDoctorCmd(flags, app).Register(root)
	root = NewConfigValidateCmd(flags).Register(root)

	return root
}
