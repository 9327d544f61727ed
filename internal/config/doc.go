// Package config loads traced's configuration from defaults, an optional
// JSON or YAML file, and TRACED_* environment overrides, in that order.
package config
