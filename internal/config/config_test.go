package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Trace.MaxFileSizeBytes != 2048 {
		t.Fatalf("default max file size: %d", cfg.Trace.MaxFileSizeBytes)
	}
	if cfg.Trace.PayloadMaxBytes != 256 {
		t.Fatalf("default payload max: %d", cfg.Trace.PayloadMaxBytes)
	}
	if !cfg.Trace.Enabled {
		t.Fatalf("default enabled should be true")
	}
	if cfg.Trace.QueueDepth != 1024 {
		t.Fatalf("default queue depth: %d", cfg.Trace.QueueDepth)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "traced.json")
	data := []byte(`{"trace":{"filePath":"/tmp/t.bin","maxFileSizeBytes":100,"payloadMaxBytes":32,"enabled":false,"filter":"size < 16"}}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trace.FilePath != "/tmp/t.bin" {
		t.Fatalf("file path: %q", cfg.Trace.FilePath)
	}
	if cfg.Trace.MaxFileSizeBytes != 100 || cfg.Trace.PayloadMaxBytes != 32 {
		t.Fatalf("sizes: %+v", cfg.Trace)
	}
	if cfg.Trace.Enabled {
		t.Fatalf("expected disabled")
	}
	// Unset keys keep defaults.
	if cfg.Trace.QueueDepth != 1024 {
		t.Fatalf("queue depth default lost: %d", cfg.Trace.QueueDepth)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "traced.yaml")
	data := []byte("trace:\n  filePath: trace.out\n  maxFileSizeBytes: 4096\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Trace.FilePath != "trace.out" || cfg.Trace.MaxFileSizeBytes != 4096 {
		t.Fatalf("yaml overlay: %+v", cfg.Trace)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("TRACED_TRACE_FILE", "/var/run/t.bin")
	t.Setenv("TRACED_TRACE_MAX_FILE_SIZE", "512")
	t.Setenv("TRACED_TRACE_ENABLED", "false")
	t.Setenv("TRACED_TRACE_QUEUE_DEPTH", "16")
	FromEnv(&cfg)
	if cfg.Trace.FilePath != "/var/run/t.bin" {
		t.Fatalf("env file path: %q", cfg.Trace.FilePath)
	}
	if cfg.Trace.MaxFileSizeBytes != 512 {
		t.Fatalf("env max size: %d", cfg.Trace.MaxFileSizeBytes)
	}
	if cfg.Trace.Enabled {
		t.Fatalf("env enabled override")
	}
	if cfg.Trace.QueueDepth != 16 {
		t.Fatalf("env queue depth: %d", cfg.Trace.QueueDepth)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	cfg := Default()
	t.Setenv("TRACED_TRACE_MAX_FILE_SIZE", "-5")
	t.Setenv("TRACED_TRACE_QUEUE_DEPTH", "zero")
	FromEnv(&cfg)
	if cfg.Trace.MaxFileSizeBytes != 2048 || cfg.Trace.QueueDepth != 1024 {
		t.Fatalf("bad env values applied: %+v", cfg.Trace)
	}
}
