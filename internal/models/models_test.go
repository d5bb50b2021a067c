package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

func TestTaskStatusCanTransition(t *testing.T) {
	tc := []struct {
		from, to TaskStatus
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusError, true},
		{StatusPending, StatusDone, false},
		{StatusPending, StatusWaitingForResponse, false},
		{StatusRunning, StatusDone, true},
		{StatusRunning, StatusError, true},
		{StatusRunning, StatusWaitingForResponse, true},
		{StatusRunning, StatusPending, false},
		{StatusWaitingForResponse, StatusRunning, true},
		{StatusWaitingForResponse, StatusDone, false},
		{StatusDone, StatusRunning, false},
		{StatusDone, StatusError, false},
		{StatusError, StatusRunning, false},
		{StatusError, StatusError, false},
	}

	for _, tt := range tc {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTaskValidate(t *testing.T) {
	project := int64(3)
	tc := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{
			name: "valid backup",
			task: Task{Type: TaskImportBackup, OwnerID: 1, ProjectID: &project, Params: BackupParams{}},
		},
		{
			name:    "missing type",
			task:    Task{OwnerID: 1, Params: BackupParams{}},
			wantErr: true,
		},
		{
			name:    "missing owner",
			task:    Task{Type: TaskImportBackup, Params: BackupParams{}},
			wantErr: true,
		},
		{
			name:    "params of another type",
			task:    Task{Type: TaskImport, OwnerID: 1, Params: BackupParams{}},
			wantErr: true,
		},
		{
			name:    "empty sample list",
			task:    Task{Type: TaskImport, OwnerID: 1, Params: ImportSamplesParams{}},
			wantErr: true,
		},
		{
			name:    "duplicate sample",
			task:    Task{Type: TaskImport, OwnerID: 1, Params: ImportSamplesParams{SampleNames: []string{"a", "a"}}},
			wantErr: true,
		},
		{
			name: "generic params",
			task: Task{Type: TaskImportCTD, OwnerID: 1, Params: GenericParams{Type: TaskImportCTD}},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr {
				if !errors.Is(err, shared.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDecodeParams(t *testing.T) {
	t.Run("import samples", func(t *testing.T) {
		params, err := DecodeParams(TaskImport, `{"samples":["sampleA","sampleB"]}`)
		if err != nil {
			t.Fatalf("DecodeParams() error = %v", err)
		}
		p, ok := params.(ImportSamplesParams)
		if !ok {
			t.Fatalf("expected ImportSamplesParams, got %T", params)
		}
		if len(p.SampleNames) != 2 || p.SampleNames[1] != "sampleB" {
			t.Errorf("unexpected sample names %v", p.SampleNames)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		params, err := DecodeParams(TaskExportBackup, "")
		if err != nil {
			t.Fatalf("DecodeParams() error = %v", err)
		}
		if params.(ExportBackupParams).OutToFTP {
			t.Error("expected zero params")
		}
	})

	t.Run("generic keeps its type", func(t *testing.T) {
		params, err := DecodeParams(TaskImportEcoTaxa, `{"values":{"ecotaxa_project":7}}`)
		if err != nil {
			t.Fatalf("DecodeParams() error = %v", err)
		}
		if params.TaskType() != TaskImportEcoTaxa {
			t.Errorf("expected Import_EcoTaxa, got %s", params.TaskType())
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := DecodeParams(TaskImportBackup, `{"skip_already_imported":"yes"}`)
		if !errors.Is(err, shared.ErrParse) {
			t.Errorf("expected ErrParse, got %v", err)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeParams(TaskType("Rebuild"), `{}`)
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestTaskJSON(t *testing.T) {
	project := int64(9)
	task := Task{
		ID:        "abc",
		Type:      TaskExportBackup,
		Status:    StatusDone,
		OwnerID:   2,
		ProjectID: &project,
		Params:    ExportBackupParams{OutToFTP: true},
		Result:    json.RawMessage(`{"search_export_link":"http://localhost/tasks/abc/file"}`),
	}

	data, err := json.Marshal(&task)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Task
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	params, ok := decoded.Params.(ExportBackupParams)
	if !ok || !params.OutToFTP {
		t.Errorf("expected ExportBackupParams{OutToFTP: true}, got %#v", decoded.Params)
	}

	var result ExportBackupResult
	found, err := decoded.DecodeResult(&result)
	if err != nil || !found {
		t.Fatalf("DecodeResult() = %v, %v", found, err)
	}
	if result.SearchExportLink != "http://localhost/tasks/abc/file" {
		t.Errorf("unexpected link %q", result.SearchExportLink)
	}
}

func TestParseInstrumentFamily(t *testing.T) {
	tc := []struct {
		model   string
		want    InstrumentFamily
		wantErr bool
	}{
		{model: "UVP5HD", want: FamilyUVP5},
		{model: "uvp5sd", want: FamilyUVP5},
		{model: "UVP6M", want: FamilyUVP6},
		{model: "UVP6LP", want: FamilyUVP6},
		{model: "LISST", wantErr: true},
		{model: "", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.model, func(t *testing.T) {
			got, err := ParseInstrumentFamily(tt.model)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrValidation) {
					t.Errorf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseInstrumentFamily(%q) = %v, %v; want %v", tt.model, got, err, tt.want)
			}
		})
	}
}

func TestSampleDraftToSample(t *testing.T) {
	draft := NewSampleDraft("sampleA")
	draft.SampleTypeID = 2
	draft.Latitude = 12.58222
	draft.Vignette = &VignetteSettings{Gamma: 1.5}

	sample := draft.ToSample(4)
	if sample.ProjectID != 4 || sample.Name != "sampleA" {
		t.Errorf("unexpected identity: %+v", sample)
	}
	if !math.IsNaN(sample.BottomDepth) {
		t.Errorf("expected NaN bottom depth, got %v", sample.BottomDepth)
	}
	if sample.InstrumentSettings.Vignette == nil || sample.InstrumentSettings.Vignette.Gamma != 1.5 {
		t.Error("vignette settings should be carried over")
	}
	if err := sample.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestFloatJSON(t *testing.T) {
	data, err := json.Marshal(HeaderSample{SampleName: "s", FirstImage: Float(math.NaN()), LastImage: 12})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded HeaderSample
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !math.IsNaN(float64(decoded.FirstImage)) {
		t.Errorf("expected NaN first image, got %v", decoded.FirstImage)
	}
	if decoded.LastImage != 12 {
		t.Errorf("expected last image 12, got %v", decoded.LastImage)
	}
}
