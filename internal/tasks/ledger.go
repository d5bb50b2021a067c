package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/repositories"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// TaskStore is the persistence the ledger writes through. [repositories.TaskRepository] implements it.
type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	Get(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	List(ctx context.Context, filter repositories.TaskFilter) ([]*models.Task, error)
	CountByTypeAndStatus(ctx context.Context, typeID, statusID, projectID int64) (int, error)
	TypeID(ctx context.Context, label models.TaskType) (int64, error)
	StatusID(ctx context.Context, label models.TaskStatus) (int64, error)
}

// CreateTaskInput describes a task to record.
type CreateTaskInput struct {
	Type      models.TaskType
	OwnerID   int64
	ProjectID *int64
	Params    models.TaskParams
}

// Ledger is the single source of truth for task progress and outcome.
//
// Every progress update and log message also appends one logfmt line to the task's log file.
type Ledger struct {
	store    TaskStore
	tasksDir string
	logger   *log.Logger
	now      func() time.Time
	mu       sync.Mutex
}

// NewLedger creates a [Ledger] storing task files below tasksDir.
func NewLedger(store TaskStore, tasksDir string, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Ledger{
		store:    store,
		tasksDir: tasksDir,
		logger:   shared.WithLogger(logger, "component", "ledger"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// LogFilePath is the log file of a task.
func (l *Ledger) LogFilePath(taskID string) string {
	return filepath.Join(l.tasksDir, taskID, fmt.Sprintf("task_%s.log", taskID))
}

// ZipFilePath is the export artifact of a task.
func (l *Ledger) ZipFilePath(ctx context.Context, taskID string) (string, error) {
	task, err := l.store.Get(ctx, taskID)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("export_backup_%d_%s.zip", task.Project(), task.ID)
	return filepath.Join(l.tasksDir, task.ID, name), nil
}

// Create records a Pending task and its empty log file, returning the task id.
func (l *Ledger) Create(ctx context.Context, in CreateTaskInput) (string, error) {
	task := &models.Task{
		ID:        shared.GenerateID(),
		Type:      in.Type,
		Status:    models.StatusPending,
		OwnerID:   in.OwnerID,
		ProjectID: in.ProjectID,
		Params:    in.Params,
		CreatedAt: l.now(),
	}
	if err := task.Validate(); err != nil {
		return "", err
	}

	task.LogFilePath = l.LogFilePath(task.ID)
	if err := os.MkdirAll(filepath.Dir(task.LogFilePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create task folder: %w", err)
	}
	if err := os.WriteFile(task.LogFilePath, nil, 0644); err != nil {
		return "", fmt.Errorf("failed to create task log: %w", err)
	}

	if err := l.store.Create(ctx, task); err != nil {
		os.RemoveAll(filepath.Dir(task.LogFilePath))
		return "", err
	}

	l.logger.Debug("task created", "task", task.ID, "type", task.Type)
	return task.ID, nil
}

// GetOne returns a task by id.
func (l *Ledger) GetOne(ctx context.Context, taskID string) (*models.Task, error) {
	return l.store.Get(ctx, taskID)
}

// List returns tasks matching the whitelisted filter.
func (l *Ledger) List(ctx context.Context, filter repositories.TaskFilter) ([]*models.Task, error) {
	return l.store.List(ctx, filter)
}

// TypeID resolves a task type label.
func (l *Ledger) TypeID(ctx context.Context, label models.TaskType) (int64, error) {
	return l.store.TypeID(ctx, label)
}

// StatusID resolves a task status label.
func (l *Ledger) StatusID(ctx context.Context, label models.TaskStatus) (int64, error) {
	return l.store.StatusID(ctx, label)
}

// CountRunning counts the Running tasks of a type on a project.
func (l *Ledger) CountRunning(ctx context.Context, taskType models.TaskType, projectID int64) (int, error) {
	typeID, err := l.store.TypeID(ctx, taskType)
	if err != nil {
		return 0, err
	}
	statusID, err := l.store.StatusID(ctx, models.StatusRunning)
	if err != nil {
		return 0, err
	}
	return l.store.CountByTypeAndStatus(ctx, typeID, statusID, projectID)
}

// Start moves a Pending task to Running.
func (l *Ledger) Start(ctx context.Context, taskID string) error {
	task, err := l.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != models.StatusPending {
		return fmt.Errorf("%w: task %s is %s, not %s", shared.ErrNotFound, taskID, task.Status, models.StatusPending)
	}

	now := l.now()
	task.Status = models.StatusRunning
	task.StartedAt = &now
	if err := l.store.Update(ctx, task); err != nil {
		return err
	}

	return l.appendLog(task, log.InfoLevel, "task started", "type", task.Type)
}

// UpdateProgress records a checkpoint of a Running task. A percentage below the current one keeps the current one.
func (l *Ledger) UpdateProgress(ctx context.Context, taskID string, pct int, msg string) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("%w: progress %d is outside 0-100", shared.ErrValidation, pct)
	}

	task, err := l.running(ctx, taskID)
	if err != nil {
		return err
	}

	if pct < task.ProgressPct {
		pct = task.ProgressPct
	}
	task.ProgressPct = pct
	task.ProgressMsg = msg
	if err := l.store.Update(ctx, task); err != nil {
		return err
	}

	return l.appendLog(task, log.InfoLevel, msg, "progress", pct)
}

// Finish moves a Running task to Done with an optional JSON encodable result.
func (l *Ledger) Finish(ctx context.Context, taskID string, result any) error {
	task, err := l.running(ctx, taskID)
	if err != nil {
		return err
	}

	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode task result: %w", err)
		}
		task.Result = data
	}

	now := l.now()
	task.Status = models.StatusDone
	task.ProgressPct = 100
	task.EndedAt = &now
	if err := l.store.Update(ctx, task); err != nil {
		return err
	}

	return l.appendLog(task, log.InfoLevel, "task done", "progress", 100)
}

// Fail moves a non-terminal task to Error and records cause. It never returns an error:
// failures are logged, and failing a terminal task is a no-op.
func (l *Ledger) Fail(ctx context.Context, taskID string, cause error) {
	if cause == nil {
		cause = errors.New("unknown error")
	}

	task, err := l.store.Get(ctx, taskID)
	if err != nil {
		l.logger.Error("cannot load task to record failure", "task", taskID, "cause", cause, "err", err)
		return
	}
	if !task.Status.CanTransition(models.StatusError) {
		l.logger.Warn("ignoring failure of settled task", "task", taskID, "status", task.Status, "cause", cause)
		return
	}

	now := l.now()
	task.Status = models.StatusError
	task.Error = cause.Error()
	task.Question = ""
	task.EndedAt = &now
	if err := l.store.Update(ctx, task); err != nil {
		l.logger.Error("cannot record task failure", "task", taskID, "cause", cause, "err", err)
		return
	}

	if err := l.appendLog(task, log.ErrorLevel, "task failed", "error", cause.Error()); err != nil {
		l.logger.Error("cannot write task failure to log file", "task", taskID, "err", err)
	}
}

// WaitForResponse pauses a Running task until [Ledger.Answer] is called.
func (l *Ledger) WaitForResponse(ctx context.Context, taskID, question string) error {
	task, err := l.running(ctx, taskID)
	if err != nil {
		return err
	}

	task.Status = models.StatusWaitingForResponse
	task.Question = question
	if err := l.store.Update(ctx, task); err != nil {
		return err
	}
	return l.appendLog(task, log.InfoLevel, "waiting for response", "question", question)
}

// Answer resumes a task waiting for a response.
func (l *Ledger) Answer(ctx context.Context, taskID, answer string) error {
	task, err := l.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != models.StatusWaitingForResponse {
		return fmt.Errorf("%w: task %s is %s, not waiting for a response", shared.ErrValidation, taskID, task.Status)
	}

	task.Status = models.StatusRunning
	task.Question = ""
	if err := l.store.Update(ctx, task); err != nil {
		return err
	}
	return l.appendLog(task, log.InfoLevel, "response received", "answer", answer)
}

// LogMessage appends a line to the task log.
func (l *Ledger) LogMessage(ctx context.Context, taskID, text string) error {
	task, err := l.store.Get(ctx, taskID)
	if err != nil {
		return err
	}
	return l.appendLog(task, log.InfoLevel, text)
}

func (l *Ledger) running(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := l.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.StatusRunning {
		return nil, fmt.Errorf("%w: task %s is %s, not %s", shared.ErrValidation, taskID, task.Status, models.StatusRunning)
	}
	return task, nil
}

func (l *Ledger) appendLog(task *models.Task, level log.Level, msg string, kv ...any) error {
	path := task.LogFilePath
	if path == "" {
		path = l.LogFilePath(task.ID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open task log: %w", err)
	}

	shared.NewFileLogger(f).Log(level, msg, kv...)

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close task log: %w", err)
	}
	return nil
}
