package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestInfo_Success_Warn_Error_NoPanic(t *testing.T) {
	// Redirect stdout so we don't spam the test output
	old := os.Stdout
	r, w, _ := os.Pipe()
	SetOutput(w)
	defer SetOutput(old)

	Info("TAG", "message")
	Success("TAG", "message")
	Warn("TAG", "message")
	Error("TAG", "message")

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
}

func TestTaggedOutputIsStructuredWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	Init("info")

	Info("COORD", "price resolved")
	got := buf.String()
	if !strings.Contains(got, "tag=COORD") || !strings.Contains(got, `msg="price resolved"`) {
		t.Errorf("output = %q, want tag and msg attrs", got)
	}
}

func TestInit_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Init("warn")
	defer Init("info")
	Info("TAG", "hidden")
	Debug("TAG", "hidden")
	if buf.Len() != 0 {
		t.Fatalf("output = %q, want nothing below warn", buf.String())
	}
	Warn("TAG", "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn line missing: %q", buf.String())
	}
}

func TestBanner_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Banner("v1.0.0")
	Banner("")
	if !strings.Contains(buf.String(), "gold-rate dev") {
		t.Errorf("empty version should print dev, got %q", buf.String())
	}
}

func TestSectionAndStats_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	Section("Test")
	Stats("key", 42)
	if !strings.Contains(buf.String(), "key:") || !strings.Contains(buf.String(), "42") {
		t.Errorf("stats line = %q", buf.String())
	}
}
