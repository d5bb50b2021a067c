package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// TaskType classifies a task. Values match the labels seeded in the task_type table.
type TaskType string

const (
	TaskExport        TaskType = "Export"
	TaskDelete        TaskType = "Delete"
	TaskUpdate        TaskType = "Update"
	TaskImport        TaskType = "Import"
	TaskImportBackup  TaskType = "Import_Backup"
	TaskExportBackup  TaskType = "Export_Backup"
	TaskImportCTD     TaskType = "Import_CTD"
	TaskImportEcoTaxa TaskType = "Import_EcoTaxa"
)

// TaskTypes lists every known task type in seed order.
var TaskTypes = []TaskType{
	TaskExport, TaskDelete, TaskUpdate, TaskImport,
	TaskImportBackup, TaskExportBackup, TaskImportCTD, TaskImportEcoTaxa,
}

// Valid reports whether t is one of the known task types.
func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t TaskType) String() string { return string(t) }

// ParseTaskType converts a label into a [TaskType].
func ParseTaskType(label string) (TaskType, error) {
	t := TaskType(label)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown task type %q", shared.ErrValidation, label)
	}
	return t, nil
}

// TaskStatus is a state of the task lifecycle. Values match the task_status table labels.
type TaskStatus string

const (
	StatusPending            TaskStatus = "Pending"
	StatusRunning            TaskStatus = "Running"
	StatusWaitingForResponse TaskStatus = "Waiting_for_response"
	StatusDone               TaskStatus = "Done"
	StatusError              TaskStatus = "Error"
)

// TaskStatuses lists every status in seed order.
var TaskStatuses = []TaskStatus{
	StatusPending, StatusRunning, StatusWaitingForResponse, StatusDone, StatusError,
}

var transitions = map[TaskStatus][]TaskStatus{
	StatusPending:            {StatusRunning, StatusError},
	StatusRunning:            {StatusWaitingForResponse, StatusDone, StatusError},
	StatusWaitingForResponse: {StatusRunning, StatusError},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
//
// Done and Error are terminal: nothing leaves them.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s is Done or Error.
func (s TaskStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s TaskStatus) String() string { return string(s) }

// ParseTaskStatus converts a label into a [TaskStatus].
func ParseTaskStatus(label string) (TaskStatus, error) {
	s := TaskStatus(label)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown task status %q", shared.ErrValidation, label)
	}
	return s, nil
}

// Task is one asynchronous unit of work tracked by the ledger.
type Task struct {
	ID          string          `json:"task_id"`
	Sequence    int             `json:"sequence"`
	Type        TaskType        `json:"task_type"`
	Status      TaskStatus      `json:"task_status"`
	OwnerID     int64           `json:"task_owner_id"`
	ProjectID   *int64          `json:"task_project_id,omitempty"`
	Params      TaskParams      `json:"task_params"`
	ProgressPct int             `json:"task_progress_pct"`
	ProgressMsg string          `json:"task_progress_msg"`
	LogFilePath string          `json:"task_log_file_path"`
	Result      json.RawMessage `json:"task_result,omitempty"`
	Error       string          `json:"task_error,omitempty"`
	Question    string          `json:"task_question,omitempty"`
	CreatedAt   time.Time       `json:"task_creation_date"`
	StartedAt   *time.Time      `json:"task_start_date,omitempty"`
	EndedAt     *time.Time      `json:"task_end_date,omitempty"`
}

// Validate checks type, owner, params and progress bounds.
func (t *Task) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: task type is required", shared.ErrValidation)
	}
	if t.OwnerID <= 0 {
		return fmt.Errorf("%w: task owner is required", shared.ErrValidation)
	}
	if t.Params == nil {
		return fmt.Errorf("%w: task params are required", shared.ErrValidation)
	}
	if t.Params.TaskType() != t.Type {
		return fmt.Errorf("%w: %s params cannot describe a %s task", shared.ErrValidation, t.Params.TaskType(), t.Type)
	}
	if err := t.Params.Validate(); err != nil {
		return err
	}
	if t.ProgressPct < 0 || t.ProgressPct > 100 {
		return fmt.Errorf("%w: progress %d out of range", shared.ErrValidation, t.ProgressPct)
	}
	return nil
}

// Project returns the project id, or 0 when the task is not bound to a project.
func (t *Task) Project() int64 {
	if t.ProjectID == nil {
		return 0
	}
	return *t.ProjectID
}

// DecodeResult unmarshals the stored result into v. It reports false when the task has no result.
func (t *Task) DecodeResult(v any) (bool, error) {
	if len(t.Result) == 0 || string(t.Result) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(t.Result, v); err != nil {
		return false, fmt.Errorf("failed to decode task result: %w", err)
	}
	return true, nil
}

// UnmarshalJSON decodes a task, resolving params through the task type.
func (t *Task) UnmarshalJSON(data []byte) error {
	type alias Task
	aux := struct {
		*alias
		Params json.RawMessage `json:"task_params"`
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	params, err := DecodeParams(t.Type, string(aux.Params))
	if err != nil {
		return err
	}
	t.Params = params
	return nil
}

// ExportBackupResult is stored on a finished Export_Backup task.
type ExportBackupResult struct {
	SearchExportLink string `json:"search_export_link"`
	FTPLink          string `json:"ftp_link,omitempty"`
}
