package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/repositories"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// TaskReader reads tasks and their files. [tasks.Ledger] implements it.
type TaskReader interface {
	GetOne(ctx context.Context, taskID string) (*models.Task, error)
	List(ctx context.Context, filter repositories.TaskFilter) ([]*models.Task, error)
	LogFilePath(taskID string) string
	ZipFilePath(ctx context.Context, taskID string) (string, error)
}

// AdminChecker tells admins apart. [repositories.UserRepository] implements it.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

const (
	routeTaskList = "GET /tasks"
	routeTaskGet  = "GET /tasks/{task_id}"
	routeTaskLog  = "GET /tasks/{task_id}/log"
	routeTaskFile = "GET /tasks/{task_id}/file"
)

// TaskHandler serves tasks, their logs and export artifacts.
// Users see their own tasks; admins see every task.
type TaskHandler struct {
	tasks  TaskReader
	admins AdminChecker
	logger *log.Logger
}

// NewTaskHandler creates a [TaskHandler].
func NewTaskHandler(tasks TaskReader, admins AdminChecker, logger *log.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, admins: admins, logger: logger}
}

func (h *TaskHandler) Routes() []string {
	return []string{routeTaskList, routeTaskGet, routeTaskLog, routeTaskFile}
}

func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no current user")
		return
	}

	if r.Pattern == routeTaskList {
		h.list(w, r, userID)
		return
	}

	task, err := h.visibleTask(r.Context(), userID, r.PathValue("task_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	switch r.Pattern {
	case routeTaskGet:
		writeJSON(w, http.StatusOK, task)
	case routeTaskLog:
		h.serveFile(w, r, h.tasks.LogFilePath(task.ID), "text/plain; charset=utf-8", false)
	case routeTaskFile:
		path, err := h.tasks.ZipFilePath(r.Context(), task.ID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.serveFile(w, r, path, "application/zip", true)
	default:
		http.NotFound(w, r)
	}
}

// visibleTask returns the task when the user owns it or is an admin. Other users get a not found.
func (h *TaskHandler) visibleTask(ctx context.Context, userID int64, taskID string) (*models.Task, error) {
	task, err := h.tasks.GetOne(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID == userID {
		return task, nil
	}
	admin, err := h.admins.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, fmt.Errorf("%w: task %s", shared.ErrNotFound, taskID)
	}
	return task, nil
}

func (h *TaskHandler) list(w http.ResponseWriter, r *http.Request, userID int64) {
	query := r.URL.Query()
	filter := repositories.TaskFilter{Fields: map[string]string{}, Desc: query.Get("sort") == "desc"}

	for _, field := range repositories.TaskFilterFields() {
		if v := query.Get(field); v != "" {
			filter.Fields[field] = v
		}
	}

	var err error
	if filter.Limit, err = intParam(query.Get("limit")); err != nil {
		writeErr(w, err)
		return
	}
	if filter.Offset, err = intParam(query.Get("offset")); err != nil {
		writeErr(w, err)
		return
	}

	admin, err := h.admins.IsAdmin(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !admin {
		filter.Fields["owner_id"] = strconv.FormatInt(userID, 10)
	}

	tasks, err := h.tasks.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// serveFile streams a task file. A file missing at stream time is a 404.
func (h *TaskHandler) serveFile(w http.ResponseWriter, r *http.Request, path, contentType string, attachment bool) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	}
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

func (h *TaskHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeErr(w, err)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: expected a non-negative integer, got %q", shared.ErrInvalidArgument, raw)
	}
	return n, nil
}

// New builds the HTTP surface of the task engine.
func New(pipelines Pipelines, tasks TaskReader, admins AdminChecker, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(LoggingMiddleware(logger), CurrentUserMiddleware)
	router.Handler(NewProjectHandler(pipelines, logger))
	router.Handler(NewTaskHandler(tasks, admins, logger))
	return router
}
