package tracesvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rzbill/traced/internal/artifact"
	"github.com/rzbill/traced/internal/runtime"
	"github.com/rzbill/traced/internal/tracelog"
	logpkg "github.com/rzbill/traced/pkg/log"
)

var (
	// ErrQueueFull reports a dropped event: the queue feeding the writer
	// was at capacity.
	ErrQueueFull = errors.New("traces: event queue full")
	// ErrClosed reports an operation against a stopped service.
	ErrClosed = errors.New("traces: service closed")
)

// Event is one trace occurrence handed to the recorder.
type Event struct {
	ID      uint32
	Time    tracelog.Timestamp
	Type    tracelog.EventType
	Payload []byte
}

// Status is a point-in-time snapshot of the recorder.
type Status struct {
	Enabled      bool   `json:"enabled"`
	Mode         string `json:"mode"`
	Degraded     bool   `json:"degraded"`
	Path         string `json:"path"`
	WrittenBytes uint64 `json:"writtenBytes"`
	BudgetBytes  uint64 `json:"budgetBytes"`
	Accepted     uint64 `json:"accepted"`
	DroppedWrite uint64 `json:"droppedWrite"`
	DroppedQueue uint64 `json:"droppedQueue"`
	Filtered     uint64 `json:"filtered"`
	QueueDepth   int    `json:"queueDepth"`
	QueueCap     int    `json:"queueCap"`
}

// message is one unit of work for the run loop: either a trace event or a
// control thunk. Using a single queue for both preserves stream order.
type message struct {
	event *Event
	ctrl  func()
}

// Service owns the FileWriter and serializes every touch of it through
// one run loop.
type Service struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
	writer *tracelog.FileWriter
	filter celFilter

	queue chan message
	quit  chan struct{}
	done  chan struct{}

	// Owned by the run loop.
	accepted     uint64
	droppedWrite uint64
	filtered     uint64

	// Incremented by producers on enqueue failure.
	droppedQueue atomic.Uint64

	closeOnce sync.Once
}

// New builds the service from the runtime's trace configuration and
// starts its run loop.
func New(rt *runtime.Runtime, logger logpkg.Logger) (*Service, error) {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	logger = logger.With(logpkg.Component("traces"))

	cfg := rt.Config().Trace
	filter, err := newCELFilter(cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("traces: compile filter: %w", err)
	}
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = 1024
	}
	s := &Service{
		rt:     rt,
		logger: logger,
		writer: tracelog.NewFileWriter(tracelog.Options{
			Path:        cfg.FilePath,
			MaxFileSize: cfg.MaxFileSizeBytes,
			PayloadMax:  cfg.PayloadMaxBytes,
			Enabled:     cfg.Enabled,
			Logger:      logger,
		}),
		filter: filter,
		queue:  make(chan message, depth),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s, nil
}

func (s *Service) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			// Events still queued at shutdown are dropped; the file is
			// flushed and closed regardless of the enabled toggle.
			if err := s.writer.Close(); err != nil {
				s.logger.Error("trace file close failed", logpkg.Err(err))
			}
			return
		case m := <-s.queue:
			if m.ctrl != nil {
				m.ctrl()
				continue
			}
			s.handleEvent(m.event)
		}
	}
}

func (s *Service) handleEvent(ev *Event) {
	if !s.filter.Eval(ev.ID, ev.Type, ev.Payload) {
		s.filtered++
		return
	}
	out, err := s.writer.Record(ev.ID, ev.Time, ev.Type, ev.Payload)
	if err != nil {
		s.logger.Warn("trace event rejected", logpkg.Uint64("id", uint64(ev.ID)), logpkg.Err(err))
	}
	switch out {
	case tracelog.OutcomeWritten:
		s.accepted++
	case tracelog.OutcomeDropped:
		s.droppedWrite++
	}
}

// Record enqueues one trace event. It never blocks: a full queue drops
// the event and returns ErrQueueFull. Oversized payloads are rejected
// here, before queueing, so the caller gets the violation synchronously.
func (s *Service) Record(ev Event) error {
	if len(ev.Payload) > s.writer.PayloadMax() {
		return fmt.Errorf("%w: %d > %d", tracelog.ErrPayloadTooLarge, len(ev.Payload), s.writer.PayloadMax())
	}
	select {
	case <-s.quit:
		return ErrClosed
	default:
	}
	select {
	case s.queue <- message{event: &ev}:
		return nil
	default:
		s.droppedQueue.Add(1)
		return ErrQueueFull
	}
}

// ctrl runs fn on the run loop and waits for it, preserving order with
// respect to queued events.
func (s *Service) ctrl(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	m := message{ctrl: func() {
		fn()
		close(ran)
	}}
	select {
	case s.queue <- m:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetEnabled flips the recording toggle. Takes effect at its position in
// the event stream.
func (s *Service) SetEnabled(ctx context.Context, on bool) error {
	err := s.ctrl(ctx, func() {
		s.writer.SetEnabled(on)
		s.logger.Info("trace recording toggled", logpkg.Bool("enabled", on))
	})
	return err
}

// Configure sets the trace file path and, when maxSize is non-zero, the
// byte budget. Both are ignored by the writer once the file is open.
func (s *Service) Configure(ctx context.Context, path string, maxSize uint64) error {
	var inner error
	err := s.ctrl(ctx, func() {
		if err := s.writer.Configure(path); err != nil {
			inner = err
			return
		}
		if maxSize > 0 {
			inner = s.writer.SetSizeBudget(maxSize)
		}
	})
	if err != nil {
		return err
	}
	return inner
}

// Dump snapshots the bytes written so far and packages them as an
// artifact. The writer's state is untouched; dumping twice with no
// intervening events yields byte-identical artifacts.
func (s *Service) Dump(ctx context.Context) (artifact.Meta, error) {
	var (
		meta  artifact.Meta
		inner error
	)
	err := s.ctrl(ctx, func() {
		snap, derr := s.writer.Dump()
		if derr != nil {
			inner = derr
			return
		}
		meta, inner = s.rt.Artifacts().Package(snap, s.accepted)
	})
	if err != nil {
		return artifact.Meta{}, err
	}
	return meta, inner
}

// Status reports a consistent snapshot taken on the run loop.
func (s *Service) Status(ctx context.Context) (Status, error) {
	var st Status
	err := s.ctrl(ctx, func() {
		st = Status{
			Enabled:      s.writer.Enabled(),
			Mode:         s.writer.Mode().String(),
			Degraded:     s.writer.Degraded(),
			Path:         s.writer.Path(),
			WrittenBytes: s.writer.Written(),
			BudgetBytes:  s.writer.Budget(),
			Accepted:     s.accepted,
			DroppedWrite: s.droppedWrite,
			Filtered:     s.filtered,
			QueueCap:     cap(s.queue),
		}
	})
	if err != nil {
		return Status{}, err
	}
	st.DroppedQueue = s.droppedQueue.Load()
	st.QueueDepth = len(s.queue)
	return st, nil
}

// Close stops the run loop and closes the trace file. Safe to call more
// than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
	})
	return nil
}
