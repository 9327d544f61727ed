package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/traced/internal/config"
	"github.com/rzbill/traced/internal/runtime"
	httpserver "github.com/rzbill/traced/internal/server/http"
	tracesvc "github.com/rzbill/traced/internal/services/traces"
	pebblestore "github.com/rzbill/traced/internal/storage/pebble"
	logpkg "github.com/rzbill/traced/pkg/log"
)

// small wrapper to allow testing; replaced by os.Getenv at build time
var getenv = func(key string) string { return os.Getenv(key) }

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// Options configure a traced server instance.
type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// Run starts the traces service and HTTP server and blocks until ctx is
// cancelled. The trace file is flushed and closed on the way out.
func Run(ctx context.Context, opts Options) error {
	// Be robust to callers that don't pass a signal-aware context; layer a
	// local signal context over the provided one.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	logCfg := &logpkg.Config{
		Level:  getenvDefault("TRACED_LOG_LEVEL", "info"),
		Format: getenvDefault("TRACED_LOG_FORMAT", "text"),
	}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		procLogger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{
		DataDir:       filepath.Join(opts.DataDir, "store"),
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        opts.Config,
		Logger:        procLogger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	svc, err := tracesvc.New(rt, procLogger)
	if err != nil {
		return err
	}
	// Closing the service drains the loop and closes the trace file before
	// the runtime goes away.
	defer svc.Close()

	procLogger.Info("starting traced server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("trace_file", opts.Config.Trace.FilePath),
		logpkg.Uint64("max_file_size", opts.Config.Trace.MaxFileSizeBytes),
		logpkg.Bool("trace_enabled", opts.Config.Trace.Enabled),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)

	hsrv := httpserver.New(rt, svc, procLogger)
	errCh := make(chan error, 1)
	go func() { errCh <- hsrv.ListenAndServe(sctx, opts.HTTPAddr) }()

	select {
	case <-sctx.Done():
		hsrv.Close()
		return nil
	case err := <-errCh:
		return err
	}
}
