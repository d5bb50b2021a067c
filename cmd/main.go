package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	// ECOPART_CONFIG and ECOPART_USER may come from a local .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case errors.Is(err, shared.ErrAuthorization), errors.Is(err, shared.ErrNotFound),
			errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrConflict):
			logger.Error(err)
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newApp builds the root command. Global flags are read by every subcommand.
func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "ecopart",
		Usage:   "Run EcoPart backup, export and sample import tasks",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("ECOPART_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "ID of the user acting on projects",
				Sources: cli.EnvVars("ECOPART_USER"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, runner.loadConfig(cmd.String("config"))
		},
		Commands: runner.register(),
		Writer:   runner.output,
	}
}
