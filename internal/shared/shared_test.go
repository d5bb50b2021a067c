package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestParseLogLevel(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want log.Level
	}{
		{name: "debug", in: "debug", want: log.DebugLevel},
		{name: "mixed case with spaces", in: "  WARN ", want: log.WarnLevel},
		{name: "unknown falls back to info", in: "verbose", want: log.InfoLevel},
		{name: "empty falls back to info", in: "", want: log.InfoLevel},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLogLevel(tt.in); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewFileLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFileLogger(&buf)
	logger.Info("copying raw folder", "progress", 25)

	line := buf.String()
	if !strings.Contains(line, `msg="copying raw folder"`) {
		t.Errorf("expected logfmt message, got %q", line)
	}
	if !strings.Contains(line, "progress=25") {
		t.Errorf("expected progress field, got %q", line)
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("GenerateID() returned invalid uuid %q: %v", id, err)
	}
	if id == GenerateID() {
		t.Error("expected distinct ids")
	}
}

func TestNewRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ecopart.log")
	w := NewRotatingWriter(LogConfig{File: path, MaxBackups: 1})
	defer w.Close()

	logger := NewFileLogger(w)
	logger.Info("server started", "addr", "127.0.0.1:4000")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
	if !strings.Contains(string(data), `msg="server started"`) {
		t.Errorf("expected log line in file, got %q", data)
	}
}
