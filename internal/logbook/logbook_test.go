package logbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTailReturnsRecentLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activity.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines := book.Tail(3)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestAppendWritesLevels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activity.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Warn("profiles fetch failed: %v", "503")
	book.Error("generation failed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "WARN") || !strings.Contains(text, "profiles fetch failed: 503") {
		t.Fatalf("warn entry missing from file: %q", text)
	}
	if !strings.Contains(text, "ERROR") {
		t.Fatalf("error entry missing from file: %q", text)
	}
}

func TestTailSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "activity.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Info("analysis complete")

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen logbook: %v", err)
	}
	lines := reopened.Tail(5)
	if len(lines) != 1 || !strings.Contains(lines[0], "analysis complete") {
		t.Fatalf("earlier entries not loaded on reopen: %v", lines)
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if lines := book.Tail(3); lines != nil {
		t.Fatalf("nil logbook returned lines: %v", lines)
	}
	if book.Path() != "" {
		t.Fatalf("nil logbook returned a path")
	}
}
