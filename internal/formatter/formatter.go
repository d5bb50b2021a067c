// package formatter renders tasks and importable samples as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ecotaxa/ecopart-back-sub000/internal/models"
	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// Format is an output format of the CLI.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat resolves a format name. "md" is accepted for Markdown.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (expected text, csv, markdown or json)", shared.ErrInvalidArgument, name)
	}
}

// RenderTasks renders a task list in format.
func RenderTasks(format Format, tasks []*models.Task) ([]byte, error) {
	switch format {
	case FormatCSV:
		return TasksToCSV(tasks)
	case FormatMarkdown:
		return TasksToMarkdown(tasks), nil
	case FormatJSON:
		return ToJSON(tasks)
	default:
		return TasksToText(tasks), nil
	}
}

// RenderSamples renders importable samples in format.
func RenderSamples(format Format, samples []models.HeaderSample) ([]byte, error) {
	switch format {
	case FormatCSV:
		return SamplesToCSV(samples)
	case FormatMarkdown:
		return SamplesToMarkdown(samples), nil
	case FormatJSON:
		return ToJSON(samples)
	default:
		return SamplesToText(samples), nil
	}
}

// TasksToCSV converts tasks to CSV with columns: Sequence, ID, Type, Status, Project, Progress, Message, Created
func TasksToCSV(tasks []*models.Task) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Type", "Status", "Project", "Progress", "Message", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, task := range tasks {
		record := []string{
			strconv.Itoa(task.Sequence),
			task.ID,
			string(task.Type),
			string(task.Status),
			projectLabel(task),
			strconv.Itoa(task.ProgressPct),
			task.ProgressMsg,
			task.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TasksToMarkdown converts tasks to a Markdown table.
func TasksToMarkdown(tasks []*models.Task) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Tasks\n\n")
	fmt.Fprintf(&buf, "**Count**: %d\n\n", len(tasks))
	buf.WriteString("| # | Type | Status | Project | Progress | Message |\n")
	buf.WriteString("|---|------|--------|---------|----------|---------|\n")
	for _, task := range tasks {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %d%% | %s |\n",
			task.Sequence, task.Type, task.Status, projectLabel(task), task.ProgressPct, escapeCell(statusLine(task)))
	}

	return buf.Bytes()
}

// TasksToText converts tasks to one line each.
func TasksToText(tasks []*models.Task) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Tasks: %d\n\n", len(tasks))
	for _, task := range tasks {
		fmt.Fprintf(&buf, "%d. [%s] %s %s (project %s, %d%%) %s\n",
			task.Sequence, task.Status, task.Type, task.ID, projectLabel(task), task.ProgressPct, statusLine(task))
	}

	return buf.Bytes()
}

// TaskToText describes one task in detail.
func TaskToText(task *models.Task) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Task: %s (#%d)\n", task.ID, task.Sequence)
	fmt.Fprintf(&buf, "Type: %s\n", task.Type)
	fmt.Fprintf(&buf, "Status: %s\n", task.Status)
	fmt.Fprintf(&buf, "Project: %s\n", projectLabel(task))
	fmt.Fprintf(&buf, "Progress: %d%% %s\n", task.ProgressPct, task.ProgressMsg)
	fmt.Fprintf(&buf, "Created: %s\n", task.CreatedAt.Format(time.RFC3339))
	if task.StartedAt != nil && task.EndedAt != nil {
		fmt.Fprintf(&buf, "Duration: %s\n", task.EndedAt.Sub(*task.StartedAt).Round(time.Millisecond))
	}
	if task.Error != "" {
		fmt.Fprintf(&buf, "Error: %s\n", task.Error)
	}
	if task.Question != "" {
		fmt.Fprintf(&buf, "Question: %s\n", task.Question)
	}
	if len(task.Result) > 0 {
		fmt.Fprintf(&buf, "Result: %s\n", task.Result)
	}
	fmt.Fprintf(&buf, "Log: %s\n", task.LogFilePath)

	return buf.Bytes()
}

// SamplesToCSV converts importable samples to CSV.
func SamplesToCSV(samples []models.HeaderSample) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sample", "RawFile", "Station", "FirstImage", "LastImage", "Comment", "QCLvl1", "QCComment"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range samples {
		record := []string{
			s.SampleName,
			s.RawFileName,
			s.StationID,
			s.FirstImage.String(),
			s.LastImage.String(),
			s.Comment,
			strconv.FormatBool(s.QCLvl1),
			s.QCLvl1Comment,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SamplesToMarkdown converts importable samples to a Markdown table.
func SamplesToMarkdown(samples []models.HeaderSample) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Importable samples\n\n")
	fmt.Fprintf(&buf, "**Samples**: %d\n\n", len(samples))
	buf.WriteString("| Sample | Raw file | Station | Images | QC |\n")
	buf.WriteString("|--------|----------|---------|--------|----|\n")
	for _, s := range samples {
		fmt.Fprintf(&buf, "| %s | %s | %s | %s-%s | %s |\n",
			escapeCell(s.SampleName), escapeCell(s.RawFileName), escapeCell(s.StationID),
			s.FirstImage, s.LastImage, escapeCell(qcLabel(s)))
	}

	return buf.Bytes()
}

// SamplesToText converts importable samples to plain text.
func SamplesToText(samples []models.HeaderSample) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Importable samples: %d\n\n", len(samples))
	for i, s := range samples {
		fmt.Fprintf(&buf, "%d. %s (%s) %s\n", i+1, s.SampleName, s.RawFileName, qcLabel(s))
	}

	return buf.Bytes()
}

// ToJSON renders v as indented JSON.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFile writes rendered output to path.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func projectLabel(task *models.Task) string {
	if task.ProjectID == nil {
		return "-"
	}
	return strconv.FormatInt(*task.ProjectID, 10)
}

func statusLine(task *models.Task) string {
	if task.Error != "" {
		return task.Error
	}
	return task.ProgressMsg
}

func qcLabel(s models.HeaderSample) string {
	if s.QCLvl1 {
		return "ok"
	}
	return s.QCLvl1Comment
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
