// Package log provides traced's structured logging facade.
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Internally it is backed by the
// standard library slog via a bridge handler that routes records through
// the package's formatter and output pipeline, so slog-aware libraries and
// our own code produce consistent output.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("server"))
//	l.Info("listening", log.Str("addr", ":8080"))
//
// Use ApplyConfig to build a logger from a declarative Config (level and
// text/json format), and RedirectStdLog to capture standard library log
// output from dependencies such as Pebble.
package log
