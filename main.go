package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/casetrack/internal/casework"
	"github.com/colonyops/casetrack/internal/commands"
	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/styles"
	"github.com/colonyops/casetrack/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

// stopTimeout bounds how long exit waits for queued events to be delivered.
const stopTimeout = 10 * time.Second

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		app       = &casework.App{}
		opened    *casework.App
	)

	flags := &commands.Flags{}

	root := commands.NewRootCmd(flags, app, build())

	root.Before = func(ctx context.Context, c *cli.Command) (context.Context, error) {
		logFile := flags.LogFile
		if logFile == "" {
			logFile = filepath.Join(flags.DataDir, "casetrack.log")
		}

		logger, closer, err := logutils.New(logutils.Options{
			Level:   flags.LogLevel,
			File:    logFile,
			Version: version,
		})
		if err != nil {
			return ctx, fmt.Errorf("setup logger: %w", err)
		}
		log.Logger = logger
		logCloser = closer

		cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
		if err != nil {
			return ctx, fmt.Errorf("load config: %w", err)
		}
		flags.Config = cfg

		// Apply configured theme (validation ensures name is valid)
		palette, _ := styles.GetPalette(cfg.Theme)
		styles.SetTheme(palette)

		opened, err = casework.Open(ctx, cfg, log.With().Str("component", "casetrack").Logger())
		if err != nil {
			return ctx, fmt.Errorf("open casetrack: %w", err)
		}

		opened.Start(ctx)

		// Populate the pre-allocated App struct (commands already hold a pointer to it)
		*app = *opened

		return ctx, nil
	}

	root.After = func(ctx context.Context, c *cli.Command) error {
		if opened != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			err := opened.Stop(stopCtx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("events still queued at exit")
			}

			if err := opened.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close casetrack")
				return err
			}
		}

		if logCloser != nil {
			logCloser()
		}
		return nil
	}

	exitCode := 0
	runErr := root.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
