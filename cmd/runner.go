package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/ecotaxa/ecopart-back-sub000/internal/formatter"
	"github.com/ecotaxa/ecopart-back-sub000/internal/repositories"
	"github.com/ecotaxa/ecopart-back-sub000/internal/services"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	"github.com/ecotaxa/ecopart-back-sub000/internal/storage"
	"github.com/ecotaxa/ecopart-back-sub000/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and the task engine are opened lazily by [Runner.open] so that commands such as
// `setup database` can run before either exists.
type Runner struct {
	config   *shared.Config
	logger   *log.Logger
	output   io.Writer
	db       *sql.DB
	users    *repositories.UserRepository
	projects *repositories.ProjectRepository
	samples  *repositories.SampleRepository
	ledger   *tasks.Ledger
	engine   *tasks.Engine
	progress chan tasks.ProgressUpdate
	logOut   io.WriteCloser
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// loadConfig reads the config file when it exists and keeps the defaults otherwise.
// Relative paths in the file are resolved against its directory.
func (r *Runner) loadConfig(path string) error {
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path: %w", err)
	}
	config.ResolvePaths(filepath.Dir(abs))

	r.config = config
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	if config.Log.File != "" {
		r.logOut = shared.NewRotatingWriter(config.Log)
		r.logger.SetOutput(io.MultiWriter(os.Stderr, r.logOut))
	}
	return nil
}

// open connects to the database and wires the repositories, the ledger and the engine.
//
// When follow is set the engine reports progress on r.progress for [Runner.follow].
func (r *Runner) open(follow bool) error {
	if r.engine != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	files := storage.New(r.config.Storage.Root)

	r.db = db
	r.users = repositories.NewUserRepository(db)
	r.projects = repositories.NewProjectRepository(db)
	r.samples = repositories.NewSampleRepository(db)
	r.ledger = tasks.NewLedger(repositories.NewTaskRepository(db), filepath.Join(files.Root, "tasks"), r.logger)

	opts := tasks.Options{
		Ledger:      r.ledger,
		Users:       r.users,
		Projects:    r.projects,
		Samples:     r.samples,
		SampleTypes: repositories.NewSampleTypeRepository(db),
		Files:       files,
		PublicURL:   r.config.Server.PublicURL,
		Logger:      r.logger,
	}
	if r.config.FTP.Enabled {
		opts.Uploader = services.NewFTPDrop(r.config.FTP, r.logger)
	}
	if follow {
		r.progress = make(chan tasks.ProgressUpdate, 64)
		opts.Progress = r.progress
	}
	r.engine = tasks.NewEngine(opts)

	return nil
}

// close waits for detached runs and releases the database.
func (r *Runner) close() error {
	if r.engine != nil {
		r.engine.Wait()
	}
	r.engine, r.ledger, r.progress = nil, nil, nil
	if r.logOut != nil {
		r.logOut.Close()
	}
	if r.db == nil {
		return nil
	}
	db := r.db
	r.db = nil
	return db.Close()
}

// withEngine opens the engine for the duration of action.
func (r *Runner) withEngine(follow bool, action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) (err error) {
		if err := r.open(follow); err != nil {
			return err
		}
		defer func() {
			if cerr := r.close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close database: %w", cerr)
			}
		}()
		return action(ctx, cmd)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, userCommand, projectCommand, samplesCommand, tasksCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// writeBytes writes rendered output to path, or to the runner output when path is empty.
func (r *Runner) writeBytes(path string, data []byte) error {
	if path == "" {
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	return formatter.WriteFile(path, data)
}
