package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"text", FormatText},
		{"TINT", FormatText},
		{"human", FormatText},
		{"json", FormatJSON},
		{"auto", FormatAuto},
		{"", FormatAuto},
		{"yaml", FormatAuto},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, FormatAuto, slog.LevelInfo, false))
	log.Info("device registered", "device", "phone")
	log.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "device registered" || rec["device"] != "phone" {
		t.Errorf("record = %v, want msg and device attrs", rec)
	}
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, FormatText, slog.LevelDebug, false))
	log.Debug("clipboard content", "preview", "hello")

	out := buf.String()
	if !strings.Contains(out, "clipboard content") || !strings.Contains(out, "hello") {
		t.Errorf("text output = %q, want message and attr", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("text output contains color codes without a tty: %q", out)
	}
}

func TestSetup_File(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	path := filepath.Join(t.TempDir(), "sharedclip.log")
	closer, err := Setup(Options{Format: FormatJSON, Level: slog.LevelInfo, File: path})
	if err != nil {
		t.Fatalf("Setup() returned error: %v", err)
	}
	slog.Info("written to file")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file = %q, want the record", data)
	}
}

func TestSetup_BadFile(t *testing.T) {
	_, err := Setup(Options{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	if err == nil {
		t.Error("Setup() with unwritable path returned nil error")
	}
}
