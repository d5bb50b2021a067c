package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/ecotaxa/ecopart-back-sub000/internal/instrument"
	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/services"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	"github.com/ecotaxa/ecopart-back-sub000/internal/storage"
)

// ProjectStore resolves projects. [repositories.ProjectRepository] implements it.
type ProjectStore interface {
	Get(ctx context.Context, id int64) (*models.Project, error)
}

// SampleStore reads and writes samples. [repositories.SampleRepository] implements it.
type SampleStore interface {
	ListNames(ctx context.Context, projectID int64) ([]string, error)
	CreateMany(ctx context.Context, samples []*models.Sample) error
}

// FileStore is the filesystem collaborator. [storage.FileSystem] implements it.
type FileStore interface {
	ProjectBackupPath(projectID int64) string
	ProjectStagingPath(projectID int64, sample string) string
	Exists(path string) (bool, error)
	IsDir(path string) (bool, error)
	CountFiles(root string) (int, error)
	CopyTree(ctx context.Context, src, dst string, opts storage.CopyOptions) (storage.CopyStats, error)
	RemoveTree(path string) error
	ZipTree(ctx context.Context, src, dst string) error
}

// Options wires an [Engine].
type Options struct {
	Ledger      *Ledger
	Users       UserStore
	Projects    ProjectStore
	Samples     SampleStore
	SampleTypes instrument.SampleTypeLookup
	Files       FileStore
	Uploader    services.Uploader      // Optional; required for exports to FTP
	PublicURL   string                 // Prefix of the HTTP download links handed out in results
	Progress    chan<- ProgressUpdate  // Optional; receives non-blocking progress events
	CopyEvery   time.Duration          // Minimum interval between copy progress updates (default 500ms)
	Logger      *log.Logger
}

// Engine runs pipelines as background tasks recorded in the [Ledger].
//
// Each Execute style entry point authorizes the caller, records a Pending task and returns it;
// the run phase continues on a goroutine tracked by the engine. [Engine.Wait] blocks until all
// runs have settled.
type Engine struct {
	ledger      *Ledger
	users       UserStore
	projects    ProjectStore
	samples     SampleStore
	sampleTypes instrument.SampleTypeLookup
	files       FileStore
	uploader    services.Uploader
	publicURL   string
	progress    chan<- ProgressUpdate
	copyEvery   time.Duration
	logger      *log.Logger
	wg          sync.WaitGroup
}

// NewEngine creates an [Engine].
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	copyEvery := opts.CopyEvery
	if copyEvery <= 0 {
		copyEvery = 500 * time.Millisecond
	}
	return &Engine{
		ledger:      opts.Ledger,
		users:       opts.Users,
		projects:    opts.Projects,
		samples:     opts.Samples,
		sampleTypes: opts.SampleTypes,
		files:       opts.Files,
		uploader:    opts.Uploader,
		publicURL:   opts.PublicURL,
		progress:    opts.Progress,
		copyEvery:   copyEvery,
		logger:      shared.WithLogger(logger, "component", "engine"),
	}
}

// Ledger exposes the task ledger.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Wait blocks until every detached run has settled.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// step is one checkpoint of a pipeline. The ledger records pct and msg before run is called.
// compensate, when set, undoes the step's effects if this or a later step fails.
type step struct {
	phase      Phase
	pct        int
	msg        string
	run        func(ctx context.Context) error
	compensate func(ctx context.Context)
}

// plan is the run phase of one pipeline invocation.
type plan struct {
	steps  []step
	result func() any
}

// launchRequest carries everything the synchronous phase of a pipeline needs.
type launchRequest struct {
	userID    int64
	projectID int64
	required  Privilege
	params    models.TaskParams
	// precheck runs after the project is resolved and before the task is created.
	precheck func(ctx context.Context, project *models.Project) error
	build    func(task *models.Task, project *models.Project) *plan
}

// execute authorizes, resolves the project, records the task, re-reads it and detaches the run.
func (e *Engine) execute(ctx context.Context, req launchRequest) (*models.Task, error) {
	if err := e.authorize(ctx, req.userID, req.projectID, req.required); err != nil {
		return nil, err
	}

	project, err := e.projects.Get(ctx, req.projectID)
	if err != nil {
		return nil, err
	}

	if req.precheck != nil {
		if err := req.precheck(ctx, project); err != nil {
			return nil, err
		}
	}

	taskID, err := e.ledger.Create(ctx, CreateTaskInput{
		Type:      req.params.TaskType(),
		OwnerID:   req.userID,
		ProjectID: &project.ID,
		Params:    req.params,
	})
	if err != nil {
		return nil, err
	}

	task, err := e.ledger.GetOne(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("created task %s cannot be read back: %w", taskID, err)
	}

	p := req.build(task, project)
	e.launch(context.WithoutCancel(ctx), task.ID, p)

	return task, nil
}

// launch detaches the run phase on a goroutine tracked by the engine.
func (e *Engine) launch(ctx context.Context, taskID string, p *plan) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ctx, taskID, p)
	}()
}

// run drives a task from Pending to Done or Error. The first failing step, or a panic,
// triggers the compensations registered so far in reverse order and then [Ledger.Fail].
func (e *Engine) run(ctx context.Context, taskID string, p *plan) {
	logger := shared.WithLogger(e.logger, "task", taskID)
	total := len(p.steps)
	current := 0

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while running task: %v", r)
			logger.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
			e.ledger.Fail(ctx, taskID, err)
			e.sendProgress(failedUpdate(taskID, current, total, err))
		}
	}()

	if err := e.ledger.Start(ctx, taskID); err != nil {
		e.fail(ctx, logger, taskID, 0, total, err)
		return
	}
	e.sendProgress(startedUpdate(taskID, total))

	var compensations []func(context.Context)
	for i, s := range p.steps {
		current = i + 1
		if s.compensate != nil {
			compensations = append(compensations, s.compensate)
		}

		err := e.ledger.UpdateProgress(ctx, taskID, s.pct, s.msg)
		if err == nil {
			e.sendProgress(checkpointUpdate(taskID, s, i, total))
			err = runStep(ctx, s)
		}
		if err != nil {
			for j := len(compensations) - 1; j >= 0; j-- {
				compensate(ctx, logger, compensations[j])
			}
			e.fail(ctx, logger, taskID, current, total, err)
			return
		}
	}

	var result any
	if p.result != nil {
		result = p.result()
	}
	if err := e.ledger.Finish(ctx, taskID, result); err != nil {
		e.fail(ctx, logger, taskID, total, total, err)
		return
	}
	logger.Info("task done")
	e.sendProgress(finishedUpdate(taskID, total, result))
}

// runStep converts a panicking step into an error so compensations still run.
func runStep(ctx context.Context, s step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in step %q: %v", s.msg, r)
		}
	}()
	return s.run(ctx)
}

func compensate(ctx context.Context, logger *log.Logger, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("compensation panicked", "panic", r)
		}
	}()
	fn(ctx)
}

func (e *Engine) fail(ctx context.Context, logger *log.Logger, taskID string, step, total int, err error) {
	logger.Warn("task failed", "step", step, "err", err)
	e.ledger.Fail(ctx, taskID, err)
	e.sendProgress(failedUpdate(taskID, step, total, err))
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(update ProgressUpdate) {
	if e.progress == nil {
		return
	}
	select {
	case e.progress <- update:
	default:
	}
}

// copyProgress returns a [storage.CopyOptions.OnFile] callback that maps copied files onto the
// [from, to) percentage range, throttled by a rate limiter.
func (e *Engine) copyProgress(ctx context.Context, taskID string, phase Phase, from, to, total int) func(string, bool) {
	limiter := rate.NewLimiter(rate.Every(e.copyEvery), 1)
	done := 0
	return func(rel string, copied bool) {
		done++
		if !limiter.Allow() {
			return
		}
		pct := from
		if total > 0 {
			pct = from + (to-from)*done/total
		}
		if pct >= to {
			pct = to - 1
		}
		msg := fmt.Sprintf("Copied %s", rel)
		if !copied {
			msg = fmt.Sprintf("Skipped %s", rel)
		}
		if err := e.ledger.UpdateProgress(ctx, taskID, pct, msg); err != nil {
			e.logger.Warn("cannot record copy progress", "task", taskID, "err", err)
			return
		}
		e.sendProgress(copyUpdate(taskID, phase, pct, done, total, rel))
	}
}
