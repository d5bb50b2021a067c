package formatter

import (
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
	th "github.com/ecotaxa/ecopart-back-sub000/internal/testing"
)

func sampleTasks() []*models.Task {
	project := int64(7)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	ended := started.Add(1500 * time.Millisecond)
	return []*models.Task{
		{
			ID: "a1", Sequence: 1, Type: models.TaskImportBackup, Status: models.StatusDone,
			ProjectID: &project, ProgressPct: 100, ProgressMsg: "Backup complete, 3 files", CreatedAt: created,
			StartedAt: &started, EndedAt: &ended,
		},
		{
			ID: "b2", Sequence: 2, Type: models.TaskExportBackup, Status: models.StatusError,
			ProjectID: &project, ProgressPct: 0, Error: "not found: Backup folder does not exist at path: /x|y", CreatedAt: created,
		},
	}
}

func sampleRows() []models.HeaderSample {
	return []models.HeaderSample{
		{SampleName: "sampleA", RawFileName: "20200312-101010", StationID: "st1", FirstImage: 1, LastImage: 900, QCLvl1: true},
		{SampleName: "sampleB", RawFileName: "20200312-111111", FirstImage: models.Float(math.NaN()), LastImage: 10,
			QCLvl1Comment: "Particle zip missing: raw/sampleB/sampleB_Particule.zip"},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"", FormatText},
		{"TXT", FormatText},
		{"csv", FormatCSV},
		{"md", FormatMarkdown},
		{"Markdown", FormatMarkdown},
		{"json", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
			}
		})
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestTaskRenderers(t *testing.T) {
	tasks := sampleTasks()

	t.Run("CSV", func(t *testing.T) {
		data, err := TasksToCSV(tasks)
		if err != nil {
			t.Fatalf("TasksToCSV failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d", len(lines))
		}
		if lines[0] != "Sequence,ID,Type,Status,Project,Progress,Message,Created" {
			t.Errorf("unexpected headers %q", lines[0])
		}
		if !strings.Contains(lines[1], `"Backup complete, 3 files"`) {
			t.Errorf("expected quoted message, got %q", lines[1])
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		output := string(TasksToMarkdown(tasks))
		if !strings.Contains(output, "**Count**: 2") {
			t.Errorf("missing count: %s", output)
		}
		if !strings.Contains(output, `/x\|y`) {
			t.Errorf("expected pipe to be escaped: %s", output)
		}
	})

	t.Run("Text", func(t *testing.T) {
		output := string(TasksToText(tasks))
		if !strings.Contains(output, "1. [Done] Import_Backup a1 (project 7, 100%)") {
			t.Errorf("unexpected text: %s", output)
		}
	})

	t.Run("Detail", func(t *testing.T) {
		output := string(TaskToText(tasks[0]))
		for _, want := range []string{"Task: a1 (#1)", "Status: Done", "Duration: 1.5s"} {
			if !strings.Contains(output, want) {
				t.Errorf("missing %q in %s", want, output)
			}
		}
		if output := string(TaskToText(tasks[1])); !strings.Contains(output, "Error: not found") {
			t.Errorf("missing error in %s", output)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := RenderTasks(FormatJSON, tasks)
		if err != nil {
			t.Fatalf("RenderTasks failed: %v", err)
		}
		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[1]["task_status"] != "Error" {
			t.Errorf("unexpected JSON %s", data)
		}
	})
}

func TestSampleRenderers(t *testing.T) {
	samples := sampleRows()

	t.Run("CSV", func(t *testing.T) {
		data, err := RenderSamples(FormatCSV, samples)
		if err != nil {
			t.Fatalf("RenderSamples failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "sampleA,20200312-101010,st1,1,900,,true,") {
			t.Errorf("unexpected row: %s", output)
		}
		if !strings.Contains(output, "sampleB,20200312-111111,,,10") {
			t.Errorf("expected NaN to render empty: %s", output)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		output := string(SamplesToMarkdown(samples))
		if !strings.Contains(output, "| sampleA | 20200312-101010 | st1 | 1-900 | ok |") {
			t.Errorf("unexpected markdown: %s", output)
		}
	})

	t.Run("Text", func(t *testing.T) {
		output := string(SamplesToText(samples))
		if !strings.Contains(output, "2. sampleB (20200312-111111) Particle zip missing") {
			t.Errorf("unexpected text: %s", output)
		}
	})

	t.Run("JSON encodes NaN as null", func(t *testing.T) {
		data, err := ToJSON(samples)
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"first_image": null`) {
			t.Errorf("expected null first image: %s", data)
		}
	})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.csv")
	if err := WriteFile(path, []byte("a,b\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if got := th.MustReadFile(t, path); got != "a,b\n" {
		t.Errorf("unexpected content %q", got)
	}
}
