package config

import (
	"os"
	"strconv"
)

// FromEnv overlays TRACED_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("TRACED_TRACE_FILE"); v != "" {
		cfg.Trace.FilePath = v
	}
	if v := os.Getenv("TRACED_TRACE_MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			cfg.Trace.MaxFileSizeBytes = n
		}
	}
	if v := os.Getenv("TRACED_TRACE_PAYLOAD_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Trace.PayloadMaxBytes = n
		}
	}
	if v := os.Getenv("TRACED_TRACE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Trace.Enabled = b
		}
	}
	if v := os.Getenv("TRACED_TRACE_FILTER"); v != "" {
		cfg.Trace.Filter = v
	}
	if v := os.Getenv("TRACED_TRACE_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Trace.QueueDepth = n
		}
	}
}
