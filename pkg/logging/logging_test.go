package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsoleMode_WritesAndFilters(t *testing.T) {
	var buf bytes.Buffer
	InitForConsole(LevelInfo, &buf)
	defer CloseShellChannel()

	Debug("Test", "below the filter")
	Info("Test", "count=%d", 3)

	out := buf.String()
	if strings.Contains(out, "below the filter") {
		t.Errorf("debug entry should have been filtered, got: %q", out)
	}
	if !strings.Contains(out, "count=3") {
		t.Errorf("info entry missing, got: %q", out)
	}
	if !strings.Contains(out, "subsystem=Test") {
		t.Errorf("subsystem attribute missing, got: %q", out)
	}
}

func TestShellMode_DeliversEntriesOnChannel(t *testing.T) {
	ch := InitForShell(LevelDebug)
	defer CloseShellChannel()

	Warn("Supervisor", "process %s slow", "model")

	entry := <-ch
	if entry.Level != LevelWarn {
		t.Errorf("expected warn level, got %v", entry.Level)
	}
	if entry.Subsystem != "Supervisor" {
		t.Errorf("expected Supervisor subsystem, got %s", entry.Subsystem)
	}
	if entry.Message != "process model slow" {
		t.Errorf("unexpected message %q", entry.Message)
	}
}

func TestShellMode_DropsWhenFull(t *testing.T) {
	InitForShell(LevelDebug)
	defer CloseShellChannel()

	// Nobody drains; overfilling must not block.
	for i := 0; i < shellChannelBufferSize+10; i++ {
		Info("Test", "entry %d", i)
	}
}

func TestLevelString(t *testing.T) {
	if LevelDebug.String() != "DEBUG" || LevelError.String() != "ERROR" {
		t.Error("unexpected level strings")
	}
}
