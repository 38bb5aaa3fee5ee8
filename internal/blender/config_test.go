package blender

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Unidata/LDM-sub002/internal/sink"
)

func TestValidateAppliesDefaults(t *testing.T) {
	cfg := Config{Upstreams: []string{"host:1000"}, TimeoutSeconds: 1.5}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PipePath != sink.DefaultPipePath {
		t.Fatalf("expected default pipe path, got %q", cfg.PipePath)
	}
	if cfg.Timeout != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s timeout, got %v", cfg.Timeout)
	}
}

func TestValidateRequiresUpstream(t *testing.T) {
	cfg := Config{TimeoutSeconds: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error with no upstreams")
	}
}

func TestValidateRequiresPositiveTimeout(t *testing.T) {
	cfg := Config{Upstreams: []string{"host:1000"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error with no timeout configured")
	}
}

func TestValidateExpandsPortRanges(t *testing.T) {
	cfg := Config{Upstreams: []string{"host:1000-1002"}, TimeoutSeconds: 1}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"host:1000", "host:1001", "host:1002"}
	if len(cfg.Upstreams) != len(want) {
		t.Fatalf("got %v, want %v", cfg.Upstreams, want)
	}
	for i, w := range want {
		if cfg.Upstreams[i] != w {
			t.Fatalf("got %v, want %v", cfg.Upstreams, want)
		}
	}
}

func TestValidateDoesNotOverridePipePathWhenStdout(t *testing.T) {
	cfg := Config{Upstreams: []string{"host:1000"}, TimeoutSeconds: 1, UseStdout: true}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PipePath != "" {
		t.Fatalf("expected empty pipe path when stdout mode is selected, got %q", cfg.PipePath)
	}
}

func TestParseJSONConfigOverlaysFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.json")
	if err := os.WriteFile(path, []byte(`{"pipe":"/tmp/custom-pipe","timeout":2.5}`), 0644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	cfg := Config{Upstreams: []string{"host:1000"}, TimeoutSeconds: 1}
	if err := ParseJSONConfig(&cfg, path); err != nil {
		t.Fatalf("ParseJSONConfig: %v", err)
	}
	if cfg.PipePath != "/tmp/custom-pipe" {
		t.Fatalf("expected overlay to set pipe path, got %q", cfg.PipePath)
	}
	if cfg.TimeoutSeconds != 2.5 {
		t.Fatalf("expected overlay to set timeout, got %v", cfg.TimeoutSeconds)
	}
}

func TestParseJSONConfigMissingFile(t *testing.T) {
	var cfg Config
	if err := ParseJSONConfig(&cfg, "/no/such/path.json"); err == nil {
		t.Fatalf("expected an error for a missing overlay file")
	}
}
