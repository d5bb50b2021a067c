package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event of a running task.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	TaskID  string // Task the event belongs to
	Phase   Phase  // Pipeline phase
	Step    int    // Current step number within the pipeline
	Total   int    // Total steps in the pipeline
	Percent int    // Ledger progress percentage
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data (the error for Failed)
}

// Done reports whether the update settles the task.
func (u ProgressUpdate) Done() bool {
	return u.Phase == Finished || u.Phase == Failed
}

// Operation phase enumeration
type Phase int

const (
	Started Phase = iota
	CheckConflicts
	CheckLayout
	CopyBackup
	LocateBackup
	ZipBackup
	DetectInstrument
	StageSamples
	DecodeSamples
	SaveSamples
	Finished
	Failed
)

func (p Phase) String() string {
	switch p {
	case Started:
		return "started"
	case CheckConflicts:
		return "check_conflicts"
	case CheckLayout:
		return "check_layout"
	case CopyBackup:
		return "copy_backup"
	case LocateBackup:
		return "locate_backup"
	case ZipBackup:
		return "zip_backup"
	case DetectInstrument:
		return "detect_instrument"
	case StageSamples:
		return "stage_samples"
	case DecodeSamples:
		return "decode_samples"
	case SaveSamples:
		return "save_samples"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

func startedUpdate(taskID string, total int) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   Started,
		Total:   total,
		Message: "Task started",
	}
}

func checkpointUpdate(taskID string, s step, index, total int) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   s.phase,
		Step:    index + 1,
		Total:   total,
		Percent: s.pct,
		Message: s.msg,
	}
}

func copyUpdate(taskID string, phase Phase, pct, done, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   phase,
		Step:    done,
		Total:   total,
		Percent: pct,
		Message: fmt.Sprintf("[%d/%d] %s", done, total, name),
	}
}

func finishedUpdate(taskID string, total int, result any) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   Finished,
		Step:    total,
		Total:   total,
		Percent: 100,
		Message: "Task done",
		Data:    result,
	}
}

func failedUpdate(taskID string, step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		TaskID:  taskID,
		Phase:   Failed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Task failed: %v", err),
		Data:    err,
	}
}
