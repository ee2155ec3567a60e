package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/colonyops/casetrack/internal/api"
	"github.com/colonyops/casetrack/internal/casework"
	"github.com/colonyops/casetrack/internal/profiler"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

type ServeCmd struct {
	flags *Flags
	app   *casework.App

	// flags
	listen string
	pprof  string
}

// NewServeCmd creates a new serve command.
func NewServeCmd(flags *Flags, app *casework.App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the HTTP API",
		UsageText: "casetrack serve [--listen <addr>]",
		Description: `Serves the task API, the /ws change stream and uploaded attachments
under /files until interrupted.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "listen",
				Aliases:     []string{"l"},
				Usage:       "address to listen on (defaults to http.listen from config)",
				Sources:     cli.EnvVars("CASETRACK_LISTEN"),
				Destination: &cmd.listen,
			},
			&cli.StringFlag{
				Name:        "pprof",
				Usage:       "serve pprof and expvar on this address, e.g. localhost:6060",
				Sources:     cli.EnvVars("CASETRACK_PPROF"),
				Destination: &cmd.pprof,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	addr := cmd.listen
	if addr == "" {
		addr = cmd.app.Config.HTTP.Listen
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd.pprof != "" {
		prof := profiler.New(cmd.pprof, log.Logger)
		if err := prof.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = prof.Shutdown(shutdownCtx)
		}()
	}

	srv := api.New(cmd.app, log.With().Str("component", "api").Logger())

	_, _ = fmt.Fprintf(c.Root().Writer, "listening on %s\n", addr)
	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
