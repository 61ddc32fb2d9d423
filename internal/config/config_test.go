// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, defaults, env var expansion, validation, and persona catalogs

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/2389/coven-chorus/internal/chat"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeFile(t, "chorus.yaml", `
store:
  backend: pebble
  path: "/tmp/chorus-pebble"

generation:
  service: azure
  model: gpt-4
  stream_timeout: "45s"

personas:
  path: "/etc/chorus/personas.toml"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  addr: "127.0.0.1:9999"
  path: "/metrics"
`)

	cfg, err := Load(path, "/data")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Backend != "pebble" {
		t.Errorf("Store.Backend = %q, want %q", cfg.Store.Backend, "pebble")
	}
	if cfg.Store.Path != "/tmp/chorus-pebble" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Generation.StreamTimeout != 45*time.Second {
		t.Errorf("Generation.StreamTimeout = %v, want 45s", cfg.Generation.StreamTimeout)
	}
	if cfg.Generation.Model != "gpt-4" {
		t.Errorf("Generation.Model = %q", cfg.Generation.Model)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != "127.0.0.1:9999" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q", cfg.Logging.Format)
	}
	// unset sections keep their defaults
	if cfg.Auth.EnvFile != ".env" {
		t.Errorf("Auth.EnvFile = %q, want default .env", cfg.Auth.EnvFile)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("CHORUS_TEST_DIR", "/var/lib/chorus")
	path := writeFile(t, "chorus.yaml", `
store:
  backend: sqlite
  path: "${CHORUS_TEST_DIR}/chorus.db"
`)

	cfg, err := Load(path, "/data")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Path != "/var/lib/chorus/chorus.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"), "/data")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Store.Path != filepath.Join("/data", "chorus.db") {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown backend", "store:\n  backend: redis\n", "store.backend"},
		{"missing path", "store:\n  backend: sqlite\n  path: \"\"\n", "store.path"},
		{"bad model", "generation:\n  model: gpt-9\n", "generation.model"},
		{"bad service", "generation:\n  service: bard\n", "generation.service"},
		{"bad duration", "generation:\n  stream_timeout: soon\n", "stream_timeout"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad metrics path", "metrics:\n  enabled: true\n  path: metrics\n", "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "chorus.yaml", tt.content), "/data")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadPersonas(t *testing.T) {
	path := writeFile(t, "personas.toml", `
[[persona]]
name = "Carol"
description = "Historian"
instructions = "Answer with historical context."

[[persona]]
name = ""
instructions = "Be generally helpful."
`)

	personas, err := LoadPersonas(path)
	if err != nil {
		t.Fatalf("LoadPersonas() error = %v", err)
	}
	if len(personas) != 2 {
		t.Fatalf("got %d personas, want 2", len(personas))
	}
	if personas[0].Name != "Carol" || personas[0].Description != "Historian" {
		t.Errorf("personas[0] = %+v", personas[0])
	}
	if personas[1].AgentName().String() != "_ASSISTANT" {
		t.Errorf("unnamed persona maps to %q", personas[1].AgentName())
	}
}

func TestLoadPersonas_Defaults(t *testing.T) {
	personas, err := LoadPersonas("")
	if err != nil {
		t.Fatalf("LoadPersonas() error = %v", err)
	}
	if len(personas) == 0 {
		t.Fatal("expected built-in personas")
	}
}

func TestLoadPersonas_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"no instr":     "[[persona]]\nname = \"X\"\n",
		"duplicate":    "[[persona]]\nname = \"X\"\ninstructions = \"a\"\n[[persona]]\nname = \"X\"\ninstructions = \"b\"\n",
		"syntax error": "[[persona]\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadPersonas(writeFile(t, "personas.toml", content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWritePersonas_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.toml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	personas := chat.DefaultPersonas()
	if err := WritePersonas(f, personas); err != nil {
		t.Fatalf("WritePersonas() error = %v", err)
	}
	f.Close()

	got, err := LoadPersonas(path)
	if err != nil {
		t.Fatalf("LoadPersonas() error = %v", err)
	}
	if !reflect.DeepEqual(got, personas) {
		t.Errorf("round trip = %+v, want %+v", got, personas)
	}
}
