package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// TaskParams is the parameter payload of a task. Each variant belongs to exactly one [TaskType].
type TaskParams interface {
	TaskType() TaskType
	Validate() error
}

// BackupParams configures an Import_Backup run.
type BackupParams struct {
	SkipAlreadyImported bool `json:"skip_already_imported"`
}

func (BackupParams) TaskType() TaskType { return TaskImportBackup }
func (BackupParams) Validate() error    { return nil }

// ExportBackupParams configures an Export_Backup run.
type ExportBackupParams struct {
	OutToFTP bool `json:"out_to_ftp"`
}

func (ExportBackupParams) TaskType() TaskType { return TaskExportBackup }
func (ExportBackupParams) Validate() error    { return nil }

// ImportSamplesParams names the samples an Import run brings into the project.
type ImportSamplesParams struct {
	SampleNames []string `json:"samples"`
}

func (ImportSamplesParams) TaskType() TaskType { return TaskImport }

// Validate rejects an empty or blank sample list and duplicate names.
func (p ImportSamplesParams) Validate() error {
	if len(p.SampleNames) == 0 {
		return fmt.Errorf("%w: at least one sample name is required", shared.ErrValidation)
	}
	seen := make(map[string]bool, len(p.SampleNames))
	for _, name := range p.SampleNames {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: sample names cannot be blank", shared.ErrValidation)
		}
		if seen[name] {
			return fmt.Errorf("%w: sample %q requested twice", shared.ErrValidation, name)
		}
		seen[name] = true
	}
	return nil
}

// GenericParams carries the parameters of task types without a dedicated pipeline.
type GenericParams struct {
	Type   TaskType       `json:"-"`
	Values map[string]any `json:"values,omitempty"`
}

func (p GenericParams) TaskType() TaskType { return p.Type }
func (GenericParams) Validate() error      { return nil }

// EncodeParams serializes params for storage.
func EncodeParams(p TaskParams) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("failed to encode task params: %w", err)
	}
	return string(data), nil
}

// DecodeParams rebuilds the params variant that belongs to t.
func DecodeParams(t TaskType, raw string) (TaskParams, error) {
	if strings.TrimSpace(raw) == "" || raw == "null" {
		raw = "{}"
	}

	var (
		params TaskParams
		err    error
	)
	switch t {
	case TaskImportBackup:
		var p BackupParams
		err = json.Unmarshal([]byte(raw), &p)
		params = p
	case TaskExportBackup:
		var p ExportBackupParams
		err = json.Unmarshal([]byte(raw), &p)
		params = p
	case TaskImport:
		var p ImportSamplesParams
		err = json.Unmarshal([]byte(raw), &p)
		params = p
	default:
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown task type %q", shared.ErrValidation, t)
		}
		p := GenericParams{Type: t}
		err = json.Unmarshal([]byte(raw), &p)
		params = p
	}
	if err != nil {
		return nil, fmt.Errorf("%w: malformed %s params: %v", shared.ErrParse, t, err)
	}
	return params, nil
}
