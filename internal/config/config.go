package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Trace TraceConfig `json:"trace" yaml:"trace"`
}

// TraceConfig captures the trace recorder's startup settings. File path
// and budget only matter before the trace file is first opened; later
// changes are ignored by the writer.
type TraceConfig struct {
	// FilePath is the target trace file. Empty means events are skipped
	// until a path is configured over the control interface.
	FilePath string `json:"filePath" yaml:"filePath"`
	// MaxFileSizeBytes is the byte budget for the trace file.
	MaxFileSizeBytes uint64 `json:"maxFileSizeBytes" yaml:"maxFileSizeBytes"`
	// PayloadMaxBytes caps a single event payload.
	PayloadMaxBytes int `json:"payloadMaxBytes" yaml:"payloadMaxBytes"`
	// Enabled sets the recording toggle at startup.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Filter is an optional CEL expression admitting events before they
	// reach the writer (vars: id, kind, size, text, now_ms).
	Filter string `json:"filter" yaml:"filter"`
	// QueueDepth bounds the event queue feeding the writer.
	QueueDepth int `json:"queueDepth" yaml:"queueDepth"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Trace: TraceConfig{
			FilePath:         "trace.bin",
			MaxFileSizeBytes: 2048,
			PayloadMaxBytes:  256,
			Enabled:          true,
			QueueDepth:       1024,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension),
// overlaying built-in defaults. An empty path returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
