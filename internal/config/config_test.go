package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()

	if cfg.Engine.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want 4", cfg.Engine.MaxWorkers)
	}
	if cfg.Engine.ScriptTimeoutSecs != 60 {
		t.Errorf("ScriptTimeoutSecs = %d, want 60", cfg.Engine.ScriptTimeoutSecs)
	}
	if cfg.Interpreters[".py"] != "python3" {
		t.Errorf("Interpreters[.py] = %q, want python3", cfg.Interpreters[".py"])
	}
	if cfg.Interpreters[".js"] != "node" {
		t.Errorf("Interpreters[.js] = %q, want node", cfg.Interpreters[".js"])
	}
	if cfg.Watch.DebounceMillis != 500 {
		t.Errorf("DebounceMillis = %d, want 500", cfg.Watch.DebounceMillis)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	content := `
[general]
store_root = "/test/store"

[engine]
max_workers = 8
script_timeout_secs = 10

[interpreters]
".rb" = "ruby"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.StoreRoot != "/test/store" {
		t.Errorf("StoreRoot = %q, want /test/store", cfg.General.StoreRoot)
	}
	if cfg.Engine.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", cfg.Engine.MaxWorkers)
	}
	if cfg.ScriptTimeout() != 10*time.Second {
		t.Errorf("ScriptTimeout = %v, want 10s", cfg.ScriptTimeout())
	}
	if cfg.Interpreters[".rb"] != "ruby" {
		t.Errorf("Interpreters[.rb] = %q, want ruby", cfg.Interpreters[".rb"])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want default 4", cfg.Engine.MaxWorkers)
	}
}

func TestLoad_ClampsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[engine]
max_workers = 0
script_timeout_secs = -5
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.MaxWorkers != 1 {
		t.Errorf("MaxWorkers = %d, want 1", cfg.Engine.MaxWorkers)
	}
	if cfg.Engine.ScriptTimeoutSecs != 1 {
		t.Errorf("ScriptTimeoutSecs = %d, want 1", cfg.Engine.ScriptTimeoutSecs)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadRepoOverrides_Missing(t *testing.T) {
	o, err := LoadRepoOverrides(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if o != nil {
		t.Errorf("overrides = %+v, want nil", o)
	}
	if got := o.IgnorePatterns(); got != nil {
		t.Errorf("IgnorePatterns() = %v, want nil", got)
	}
}

func TestLoadRepoOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
ignore:
  - "legacy/"
  - "*.generated.py"
interpreters:
  ".py": python3.12
max_workers: 2
timeout_secs: 5
`
	if err := os.WriteFile(filepath.Join(dir, ".hornet.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	o, err := LoadRepoOverrides(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(o.Ignore) != 2 || o.Ignore[0] != "legacy/" {
		t.Errorf("Ignore = %v", o.Ignore)
	}

	cfg := o.Apply(Default())
	if cfg.Engine.MaxWorkers != 2 {
		t.Errorf("MaxWorkers = %d, want 2", cfg.Engine.MaxWorkers)
	}
	if cfg.Engine.ScriptTimeoutSecs != 5 {
		t.Errorf("ScriptTimeoutSecs = %d, want 5", cfg.Engine.ScriptTimeoutSecs)
	}
	if cfg.Interpreters[".py"] != "python3.12" {
		t.Errorf("Interpreters[.py] = %q, want python3.12", cfg.Interpreters[".py"])
	}
	if cfg.Interpreters[".js"] != "node" {
		t.Errorf("Interpreters[.js] = %q, merge should keep base entries", cfg.Interpreters[".js"])
	}
}

func TestRepoOverrides_ApplyNil(t *testing.T) {
	var o *RepoOverrides
	base := Default()
	cfg := o.Apply(base)
	if cfg.Engine.MaxWorkers != base.Engine.MaxWorkers {
		t.Error("nil overrides should not change config")
	}
}
