package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

const taskColumns = `
	t.task_id, t.sequence, tt.task_type_label, ts.task_status_label, t.task_owner_id, t.task_project_id,
	t.task_params, t.task_progress_pct, t.task_progress_msg, t.task_log_file_path, t.task_result,
	t.task_error, t.task_question, t.task_creation_date, t.task_start_date, t.task_end_date
`

const taskFrom = `
	FROM task t
	JOIN task_type tt ON tt.task_type_id = t.task_type_id
	JOIN task_status ts ON ts.task_status_id = t.task_status_id
`

// taskFilterColumns whitelists the fields a task listing can be filtered on.
var taskFilterColumns = map[string]string{
	"type":       "tt.task_type_label",
	"status":     "ts.task_status_label",
	"project_id": "t.task_project_id",
	"owner_id":   "t.task_owner_id",
}

// TaskFilterFields returns the whitelisted filter keys in sorted order.
func TaskFilterFields() []string {
	keys := make([]string, 0, len(taskFilterColumns))
	for k := range taskFilterColumns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TaskFilter selects tasks for [TaskRepository.List].
type TaskFilter struct {
	Fields map[string]string // Equality filters keyed by a whitelisted field name
	Limit  int               // Maximum rows, 0 for no limit
	Offset int               // Rows to skip
	Desc   bool              // Newest first when true
}

// TaskRepository persists [models.Task] rows and resolves the task lookup tables.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new [TaskRepository] with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task with a generated ID and sequence. Status defaults to Pending.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	params, err := models.EncodeParams(task.Params)
	if err != nil {
		return err
	}

	sequence, err := NextSequence(r.db, "task")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if task.ID == "" {
		task.ID = shared.GenerateID()
	}
	task.Sequence = sequence

	query := `
		INSERT INTO task (
			task_id, sequence, task_type_id, task_status_id, task_owner_id, task_project_id,
			task_params, task_progress_pct, task_progress_msg, task_log_file_path, task_creation_date
		) VALUES (
			?, ?,
			(SELECT task_type_id FROM task_type WHERE task_type_label = ?),
			(SELECT task_status_id FROM task_status WHERE task_status_label = ?),
			?, ?, ?, ?, ?, ?, ?
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		task.ID, sequence, string(task.Type), string(task.Status), task.OwnerID, task.ProjectID,
		params, task.ProgressPct, task.ProgressMsg, task.LogFilePath, task.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Get retrieves a task by ID.
func (r *TaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	query := "SELECT " + taskColumns + taskFrom + " WHERE t.task_id = ?"

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: task %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}
	return task, nil
}

// Update writes the mutable ledger fields of a task.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE task
		SET task_status_id = (SELECT task_status_id FROM task_status WHERE task_status_label = ?),
			task_progress_pct = ?, task_progress_msg = ?, task_log_file_path = ?,
			task_result = ?, task_error = ?, task_question = ?,
			task_start_date = ?, task_end_date = ?
		WHERE task_id = ?
	`

	var result any
	if len(task.Result) > 0 {
		result = string(task.Result)
	}

	res, err := r.db.ExecContext(ctx, query,
		string(task.Status), task.ProgressPct, task.ProgressMsg, task.LogFilePath,
		result, nullString(task.Error), nullString(task.Question),
		nullTime(task.StartedAt), nullTime(task.EndedAt), task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: task %s", shared.ErrNotFound, task.ID)
	}

	return nil
}

// List retrieves tasks matching the filter, ordered by creation date then sequence.
func (r *TaskRepository) List(ctx context.Context, filter TaskFilter) ([]*models.Task, error) {
	query := "SELECT " + taskColumns + taskFrom + " WHERE 1 = 1"
	args := []any{}

	keys := make([]string, 0, len(filter.Fields))
	for k := range filter.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		column, ok := taskFilterColumns[key]
		if !ok {
			return nil, fmt.Errorf("%w: cannot filter tasks on %q (allowed: %s)",
				shared.ErrValidation, key, strings.Join(TaskFilterFields(), ", "))
		}
		value := filter.Fields[key]
		if key == "project_id" || key == "owner_id" {
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be an integer, got %q", shared.ErrValidation, key, value)
			}
			query += " AND " + column + " = ?"
			args = append(args, n)
			continue
		}
		query += " AND " + column + " = ?"
		args = append(args, value)
	}

	if filter.Desc {
		query += " ORDER BY t.task_creation_date DESC, t.sequence DESC"
	} else {
		query += " ORDER BY t.task_creation_date ASC, t.sequence ASC"
	}

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

// CountByTypeAndStatus counts the tasks of a project with the given type and status ids.
func (r *TaskRepository) CountByTypeAndStatus(ctx context.Context, typeID, statusID, projectID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM task
		WHERE task_type_id = ? AND task_status_id = ? AND task_project_id = ?
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, typeID, statusID, projectID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// TypeID resolves a task type label to its lookup id.
func (r *TaskRepository) TypeID(ctx context.Context, label models.TaskType) (int64, error) {
	return r.lookup(ctx, "SELECT task_type_id FROM task_type WHERE task_type_label = ?", "task type", string(label))
}

// StatusID resolves a task status label to its lookup id.
func (r *TaskRepository) StatusID(ctx context.Context, label models.TaskStatus) (int64, error) {
	return r.lookup(ctx, "SELECT task_status_id FROM task_status WHERE task_status_label = ?", "task status", string(label))
}

func (r *TaskRepository) lookup(ctx context.Context, query, kind, label string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, query, label).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s %q", shared.ErrNotFound, kind, label)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", kind, err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task      models.Task
		typeLabel string
		status    string
		projectID sql.NullInt64
		params    string
		result    sql.NullString
		taskErr   sql.NullString
		question  sql.NullString
		startedAt sql.NullTime
		endedAt   sql.NullTime
	)

	err := row.Scan(
		&task.ID, &task.Sequence, &typeLabel, &status, &task.OwnerID, &projectID,
		&params, &task.ProgressPct, &task.ProgressMsg, &task.LogFilePath, &result,
		&taskErr, &question, &task.CreatedAt, &startedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Type = models.TaskType(typeLabel)
	task.Status = models.TaskStatus(status)
	if projectID.Valid {
		id := projectID.Int64
		task.ProjectID = &id
	}
	if result.Valid {
		task.Result = []byte(result.String)
	}
	task.Error = taskErr.String
	task.Question = question.String
	task.StartedAt = timePtr(startedAt)
	task.EndedAt = timePtr(endedAt)

	task.Params, err = models.DecodeParams(task.Type, params)
	if err != nil {
		return nil, err
	}

	return &task, nil
}
