package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
watch_paths = ["./src"]

[languages.python]
extensions = [".py"]

[languages.c]
extensions = [".c", ".h"]

[exclude]
dirs = [".git", "vendor"]
files = ["*.min.js"]

[watch]
debounce = "1s"

[mapping]
variables = "CONSTANT"

[docstrings]
window = 3
`
	tmpfile, err := os.CreateTemp("", "config*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.WatchPaths) != 1 || cfg.WatchPaths[0] != "./src" {
		t.Errorf("watch_paths = %v", cfg.WatchPaths)
	}
	if cfg.Watch.Debounce.Duration != time.Second {
		t.Errorf("debounce = %v, want 1s", cfg.Watch.Debounce)
	}
	if got := cfg.Languages["python"].Extensions; len(got) != 1 || got[0] != ".py" {
		t.Errorf("python extensions = %v", got)
	}
	if cfg.Docstrings.Window != 3 {
		t.Errorf("docstrings window = %d, want 3", cfg.Docstrings.Window)
	}

	// single-key override leaves the rest of the table intact
	if cfg.Mapping["variables"] != "CONSTANT" {
		t.Errorf("mapping.variables = %q", cfg.Mapping["variables"])
	}
	if cfg.Mapping["functions"] != "FUNCTION" {
		t.Errorf("mapping.functions = %q, want default", cfg.Mapping["functions"])
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse("")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("version = %d", cfg.Version)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.Path != "symbols.db" {
		t.Errorf("db defaults = %+v", cfg.DB)
	}
	if cfg.DB.BusyTimeout.Duration != 5*time.Second {
		t.Errorf("busy_timeout = %v", cfg.DB.BusyTimeout)
	}
	if cfg.Docstrings.Window != 5 {
		t.Errorf("docstrings window = %d, want 5", cfg.Docstrings.Window)
	}
	if cfg.Watch.Debounce.Duration != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Watch.Debounce)
	}
	if len(cfg.WatchPaths) != 1 || cfg.WatchPaths[0] != "." {
		t.Errorf("watch_paths = %v", cfg.WatchPaths)
	}
	for _, category := range []string{"functions", "classes", "structs", "methods", "variables", "imports", "docstrings"} {
		if cfg.Mapping[category] == "" {
			t.Errorf("mapping missing default for %q", category)
		}
	}
}

func TestParseRejectsBadMapping(t *testing.T) {
	_, err := Parse(`
[mapping]
functions = "NO_SUCH_TYPE"
`)
	if err == nil || !strings.Contains(err.Error(), "unknown node type") {
		t.Errorf("err = %v, want unknown node type", err)
	}
}

func TestParseRejectsBadExtension(t *testing.T) {
	_, err := Parse(`
[languages.python]
extensions = ["py"]
`)
	if err == nil || !strings.Contains(err.Error(), "must start with a dot") {
		t.Errorf("err = %v", err)
	}
}

func TestParseRejectsBadVersion(t *testing.T) {
	if _, err := Parse("version = 9"); err == nil {
		t.Error("version 9 accepted")
	}
	if _, err := Parse("version = -1"); err == nil {
		t.Error("negative version accepted")
	}
}

func TestLanguageIsEnabled(t *testing.T) {
	var lang Language
	if !lang.IsEnabled() {
		t.Error("unset enabled should default to true")
	}
	off := false
	lang.Enabled = &off
	if lang.IsEnabled() {
		t.Error("enabled=false ignored")
	}
}
