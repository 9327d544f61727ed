package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/traced/internal/artifact"
	cfgpkg "github.com/rzbill/traced/internal/config"
	pebblestore "github.com/rzbill/traced/internal/storage/pebble"
	logpkg "github.com/rzbill/traced/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime owns the storage and artifact store for a single-node instance.
type Runtime struct {
	db        *pebblestore.DB
	config    cfgpkg.Config
	artifacts *artifact.Store
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNop()
	}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
	})
	if err != nil {
		return nil, err
	}
	return &Runtime{
		db:        db,
		config:    opts.Config,
		artifacts: artifact.NewStore(db, logger.WithComponent("artifacts")),
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Artifacts exposes the dump artifact store.
func (r *Runtime) Artifacts() *artifact.Store { return r.artifacts }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }
