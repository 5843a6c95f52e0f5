package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfigDefaultsWhenMissing(t *testing.T) {
	baseDir := t.TempDir()
	c, err := NewConfig(baseDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.BaseURL() != "http://127.0.0.1:8000" {
		t.Fatalf("expected default base URL, got %q", c.BaseURL())
	}
	if c.AnalysisMode() != "rules" {
		t.Fatalf("expected default mode rules, got %q", c.AnalysisMode())
	}
	if c.HistoryPageSize() != 5 {
		t.Fatalf("expected default page size 5, got %d", c.HistoryPageSize())
	}
	if c.File.API.TimeoutSeconds != 120 {
		t.Fatalf("expected default timeout 120, got %d", c.File.API.TimeoutSeconds)
	}
	if c.DownloadDir() != filepath.Join(baseDir, StencilDir, "downloads") {
		t.Fatalf("expected downloads under .stencil, got %q", c.DownloadDir())
	}
}

func TestNewConfigParsesYaml(t *testing.T) {
	baseDir := t.TempDir()
	stencilDir := filepath.Join(baseDir, StencilDir)
	if err := os.MkdirAll(stencilDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
api:
  base_url: http://backend.local:9000/
  timeout_seconds: 30
analysis:
  mode: Hybrid
download_dir: exports
history_page_size: 10
`)
	if err := os.WriteFile(filepath.Join(stencilDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := NewConfig(baseDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if c.BaseURL() != "http://backend.local:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.BaseURL())
	}
	if c.AnalysisMode() != "hybrid" {
		t.Fatalf("expected mode lowercased, got %q", c.AnalysisMode())
	}
	if c.File.API.TimeoutSeconds != 30 {
		t.Fatalf("expected timeout 30, got %d", c.File.API.TimeoutSeconds)
	}
	if c.DownloadDir() != filepath.Join(baseDir, "exports") {
		t.Fatalf("expected relative download dir resolved against base, got %q", c.DownloadDir())
	}
	if c.HistoryPageSize() != 10 {
		t.Fatalf("expected page size 10, got %d", c.HistoryPageSize())
	}
}

func TestNewConfigValidation(t *testing.T) {
	baseDir := t.TempDir()
	stencilDir := filepath.Join(baseDir, StencilDir)
	if err := os.MkdirAll(stencilDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
analysis:
  mode: telepathy
`)
	if err := os.WriteFile(filepath.Join(stencilDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfig(baseDir); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestInitStencilDir(t *testing.T) {
	baseDir := t.TempDir()
	if err := InitStencilDir(baseDir); err != nil {
		t.Fatalf("InitStencilDir returned error: %v", err)
	}
	for _, sub := range []string{"logs", "downloads"} {
		if _, err := os.Stat(filepath.Join(baseDir, StencilDir, sub)); err != nil {
			t.Fatalf("missing %s directory: %v", sub, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(baseDir, StencilDir, "config.yaml"))
	if err != nil {
		t.Fatalf("missing default config.yaml: %v", err)
	}
	if !strings.Contains(string(data), "base_url") {
		t.Fatalf("default config.yaml missing api settings")
	}

	// Re-running must not clobber an edited config.
	edited := strings.Replace(string(data), "http://127.0.0.1:8000", "http://backend.local:9000", 1)
	if err := os.WriteFile(filepath.Join(baseDir, StencilDir, "config.yaml"), []byte(edited), 0644); err != nil {
		t.Fatal(err)
	}
	if err := InitStencilDir(baseDir); err != nil {
		t.Fatalf("second InitStencilDir returned error: %v", err)
	}
	again, _ := os.ReadFile(filepath.Join(baseDir, StencilDir, "config.yaml"))
	if !strings.Contains(string(again), "backend.local") {
		t.Fatalf("InitStencilDir overwrote an existing config")
	}
}

func TestSetAnalysisModePersists(t *testing.T) {
	baseDir := t.TempDir()
	if err := InitStencilDir(baseDir); err != nil {
		t.Fatal(err)
	}
	c, err := NewConfig(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetAnalysisMode("LLM"); err != nil {
		t.Fatalf("SetAnalysisMode returned error: %v", err)
	}
	reloaded, err := NewConfig(baseDir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.AnalysisMode() != "llm" {
		t.Fatalf("mode change not persisted, got %q", reloaded.AnalysisMode())
	}
	if err := c.SetAnalysisMode("telepathy"); err == nil {
		t.Fatalf("expected an error for an unknown mode")
	}
}
