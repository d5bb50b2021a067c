// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func projectFlag() cli.Flag {
	return &cli.IntFlag{
		Name:     "project",
		Aliases:  []string{"p"},
		Usage:    "Project ID",
		Required: true,
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, csv, markdown or json",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to a file instead of stdout",
		},
	}
}

// setupCommand handles setup operations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the config file if needed, initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand starts the HTTP surface.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the task and pipeline HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from [server] config)",
			},
		},
		Action: r.withEngine(false, r.Serve),
	}
}

// userCommand manages accounts and project privileges.
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage users and project privileges",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a user with a validated email",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{Name: "first-name", Usage: "First name"},
					&cli.StringFlag{Name: "last-name", Usage: "Last name"},
					&cli.BoolFlag{Name: "admin", Usage: "Grant administrator rights"},
				},
				Action: r.withEngine(false, r.UserCreate),
			},
			{
				Name:  "grant",
				Usage: "Grant a privilege on a project",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "User ID receiving the privilege", Required: true},
					projectFlag(),
					&cli.StringFlag{Name: "privilege", Usage: "member or manager", Value: "member"},
					&cli.BoolFlag{Name: "contact", Usage: "Mark the user as project contact"},
				},
				Action: r.withEngine(false, r.UserGrant),
			},
		},
	}
}

// projectCommand handles project records and backup pipelines.
func projectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"proj"},
		Usage:   "Project operations",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Register a project and its instrument root folder",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Project title", Required: true},
					&cli.StringFlag{Name: "root", Usage: "Root folder with the instrument data", Required: true},
					&cli.StringFlag{Name: "instrument", Usage: "Instrument model, e.g. UVP5HD or UVP6LP", Required: true},
				},
				Action: r.withEngine(false, r.ProjectCreate),
			},
			{
				Name:   "list",
				Usage:  "List projects",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.withEngine(false, r.ProjectList),
			},
			{
				Name:  "backup",
				Usage: "Copy the project's raw data into its backup folder",
				Flags: []cli.Flag{
					projectFlag(),
					&cli.BoolFlag{
						Name:  "skip-existing",
						Usage: "Keep files already present in the backup",
					},
				},
				Action: r.withEngine(true, r.ProjectBackup),
			},
			{
				Name:  "export-backup",
				Usage: "Zip the project backup for download",
				Flags: []cli.Flag{
					projectFlag(),
					&cli.BoolFlag{
						Name:  "ftp",
						Usage: "Also upload the archive to the configured FTP drop",
					},
				},
				Action: r.withEngine(true, r.ProjectExportBackup),
			},
		},
	}
}

// samplesCommand lists and imports samples.
func samplesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "samples",
		Usage: "Sample operations",
		Commands: []*cli.Command{
			{
				Name:   "importable",
				Usage:  "List samples described in the project headers and not yet imported",
				Flags:  append([]cli.Flag{projectFlag()}, formatFlags()...),
				Action: r.withEngine(false, r.SamplesImportable),
			},
			{
				Name:  "import",
				Usage: "Import samples into the project",
				Flags: []cli.Flag{
					projectFlag(),
					&cli.StringSliceFlag{
						Name:     "sample",
						Aliases:  []string{"s"},
						Usage:    "Sample name to import (repeatable)",
						Required: true,
					},
				},
				Action: r.withEngine(true, r.SamplesImport),
			},
		},
	}
}

// tasksCommand reads the ledger.
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Inspect tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "Filter by task type"},
					&cli.StringFlag{Name: "status", Usage: "Filter by task status"},
					&cli.IntFlag{Name: "project", Aliases: []string{"p"}, Usage: "Filter by project ID"},
					&cli.IntFlag{Name: "owner", Usage: "Filter by owner ID"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of tasks"},
					&cli.IntFlag{Name: "offset", Usage: "Tasks to skip"},
					&cli.BoolFlag{Name: "desc", Usage: "Newest first"},
				}, formatFlags()...),
				Action: r.withEngine(false, r.TasksList),
			},
			{
				Name:      "get",
				Usage:     "Show one task",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.withEngine(false, r.TasksGet),
			},
			{
				Name:      "log",
				Usage:     "Print a task's log file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.withEngine(false, r.TasksLog),
			},
			{
				Name:      "watch",
				Aliases:   []string{"ui"},
				Usage:     "Watch tasks in the terminal UI",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "interval", Usage: "Polling interval", Value: 500 * time.Millisecond},
					&cli.IntFlag{Name: "project", Aliases: []string{"p"}, Usage: "Only list tasks of this project"},
				},
				Action: r.withEngine(false, r.TasksWatch),
			},
		},
	}
}
