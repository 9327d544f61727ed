package tracelog

import (
	"errors"
	"fmt"
	"os"

	logpkg "github.com/rzbill/traced/pkg/log"
)

// Mode is the file lifecycle state of a writer.
type Mode uint8

const (
	// ModeClosed means no file handle is held.
	ModeClosed Mode = iota
	// ModeOpen means the trace file is open and accepting appends.
	ModeOpen
)

// String returns a short name for the mode.
func (m Mode) String() string {
	if m == ModeOpen {
		return "open"
	}
	return "closed"
}

// Outcome is the definite result of a Record call. Every call returns one;
// the writer never aborts the caller.
type Outcome uint8

const (
	// OutcomeWritten means the record bytes were appended to the file.
	OutcomeWritten Outcome = iota
	// OutcomeSkipped means recording is off or not yet possible (disabled,
	// unconfigured, or degraded); no file activity happened.
	OutcomeSkipped
	// OutcomeDropped means the event was discarded: budget exhausted,
	// oversized payload, or a file error on this call.
	OutcomeDropped
)

// String returns a short name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeWritten:
		return "written"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Writer defaults and limits.
const (
	// DefaultMaxFileSize is the byte budget used when none is configured.
	DefaultMaxFileSize = 2048
	// MaxPathLen bounds the configured file name.
	MaxPathLen = 255
)

var (
	// ErrPayloadTooLarge reports a payload above the writer's cap. The event
	// is dropped without writing partial data; this is the one violation the
	// writer signals back to the caller.
	ErrPayloadTooLarge = errors.New("tracelog: payload exceeds maximum size")
	// ErrInvalidPath reports a rejected Configure call.
	ErrInvalidPath = errors.New("tracelog: invalid trace file path")
	// ErrInvalidBudget reports a rejected SetSizeBudget call.
	ErrInvalidBudget = errors.New("tracelog: size budget must be positive")
)

// Options configures a FileWriter.
type Options struct {
	// Path is the target trace file. May be empty; the first accepted event
	// is then skipped until a path is configured.
	Path string
	// MaxFileSize is the byte budget. Zero selects DefaultMaxFileSize.
	MaxFileSize uint64
	// PayloadMax caps per-record payload bytes. Zero selects
	// DefaultPayloadMax; values above DefaultPayloadMax are clamped to it.
	PayloadMax int
	// Enabled sets the initial recording toggle.
	Enabled bool
	// Logger receives open/failure events. Optional.
	Logger logpkg.Logger
}

// FileWriter owns one trace file and appends fixed-layout records to it
// until the configured byte budget is reached. It is not safe for
// concurrent use; callers serialize access (see package doc).
type FileWriter struct {
	path       string
	maxSize    uint64
	payloadMax int
	written    uint64
	mode       Mode
	enabled    bool
	degraded   bool
	f          *os.File
	logger     logpkg.Logger
}

// NewFileWriter builds a closed writer from opts. Invalid path or budget
// values in opts fall back to unset/default rather than failing; use
// Configure and SetSizeBudget for validated configuration.
func NewFileWriter(opts Options) *FileWriter {
	w := &FileWriter{
		maxSize:    DefaultMaxFileSize,
		payloadMax: DefaultPayloadMax,
		enabled:    opts.Enabled,
		logger:     opts.Logger,
	}
	if w.logger == nil {
		w.logger = logpkg.NewNop()
	}
	if opts.Path != "" && len(opts.Path) <= MaxPathLen {
		w.path = opts.Path
	}
	if opts.MaxFileSize > 0 {
		w.maxSize = opts.MaxFileSize
	}
	if opts.PayloadMax > 0 && opts.PayloadMax <= DefaultPayloadMax {
		w.payloadMax = opts.PayloadMax
	}
	return w
}

// Configure sets the trace file path. Rejected when empty or longer than
// MaxPathLen; the previous path is retained on rejection. Ignored once the
// file is open. A successful call clears the degraded latch so the next
// event re-attempts the open.
func (w *FileWriter) Configure(path string) error {
	if path == "" || len(path) > MaxPathLen {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	if w.mode == ModeOpen {
		// Switching files mid-stream is never allowed.
		return nil
	}
	w.path = path
	w.degraded = false
	return nil
}

// SetSizeBudget replaces the byte budget. Rejected when non-positive;
// ignored once the file is open.
func (w *FileWriter) SetSizeBudget(n uint64) error {
	if n == 0 {
		return ErrInvalidBudget
	}
	if w.mode == ModeOpen {
		return nil
	}
	w.maxSize = n
	return nil
}

// SetEnabled toggles recording. It has no other side effect: the file is
// neither opened, closed, nor truncated, and written/mode are untouched,
// so re-enabling resumes exactly where the budget left off.
func (w *FileWriter) SetEnabled(on bool) { w.enabled = on }

// Reset clears the degraded latch without touching any other state.
func (w *FileWriter) Reset() { w.degraded = false }

// Enabled reports the recording toggle.
func (w *FileWriter) Enabled() bool { return w.enabled }

// Mode reports the file lifecycle state.
func (w *FileWriter) Mode() Mode { return w.mode }

// Written reports bytes appended so far.
func (w *FileWriter) Written() uint64 { return w.written }

// Budget reports the configured byte budget.
func (w *FileWriter) Budget() uint64 { return w.maxSize }

// PayloadMax reports the per-record payload cap.
func (w *FileWriter) PayloadMax() int { return w.payloadMax }

// Path reports the configured trace file path.
func (w *FileWriter) Path() string { return w.path }

// Degraded reports whether an open or append failure has latched the
// writer off until reconfiguration.
func (w *FileWriter) Degraded() bool { return w.degraded }

// Record serializes one trace event and appends it to the file.
//
// Order of checks: disabled, oversized payload, lazy open, budget, append.
// The first accepted event opens (creates/truncates) the file even when the
// record itself then exceeds the budget. Open and append failures latch the
// writer degraded; there is no automatic retry until Configure or Reset.
func (w *FileWriter) Record(id uint32, ts Timestamp, typ EventType, payload []byte) (Outcome, error) {
	if !w.enabled {
		return OutcomeSkipped, nil
	}
	if len(payload) > w.payloadMax {
		return OutcomeDropped, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(payload), w.payloadMax)
	}
	if w.mode == ModeClosed {
		if w.degraded {
			return OutcomeSkipped, nil
		}
		if w.path == "" {
			return OutcomeSkipped, nil
		}
		f, err := os.OpenFile(w.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			w.degraded = true
			w.logger.Error("trace file open failed", logpkg.Str("path", w.path), logpkg.Err(err))
			return OutcomeDropped, nil
		}
		w.f = f
		w.mode = ModeOpen
		w.written = 0
		w.logger.Info("trace file opened", logpkg.Str("path", w.path), logpkg.Uint64("max_size", w.maxSize))
	}
	size := uint64(EncodedSize(len(payload)))
	if w.written+size > w.maxSize {
		// Budget exhausted: the expected steady state once the cap is hit.
		return OutcomeDropped, nil
	}
	buf := EncodeRecord(Record{ID: id, Time: ts, Type: typ, Payload: payload})
	if _, err := w.f.Write(buf); err != nil {
		w.logger.Error("trace file write failed", logpkg.Str("path", w.path), logpkg.Err(err))
		_ = w.f.Close()
		w.f = nil
		w.mode = ModeClosed
		w.degraded = true
		return OutcomeDropped, nil
	}
	w.written += size
	return OutcomeWritten, nil
}

// Dump returns a snapshot of the bytes appended so far, in original order
// with no reformatting. It alters no writer state and is idempotent. A
// writer that never opened its file yields an empty, non-error result.
func (w *FileWriter) Dump() ([]byte, error) {
	if w.written == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, w.written)
	if w.f != nil {
		if _, err := w.f.ReadAt(buf, 0); err != nil {
			return nil, fmt.Errorf("tracelog: dump read: %w", err)
		}
		return buf, nil
	}
	// File was closed after a write failure; the already-written prefix is
	// still on disk.
	b, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("tracelog: dump read: %w", err)
	}
	if uint64(len(b)) > w.written {
		b = b[:w.written]
	}
	return b, nil
}

// Close flushes and closes the file when open. It runs regardless of the
// enabled toggle and leaves the writer in ModeClosed.
func (w *FileWriter) Close() error {
	if w.mode != ModeOpen || w.f == nil {
		return nil
	}
	syncErr := w.f.Sync()
	closeErr := w.f.Close()
	w.f = nil
	w.mode = ModeClosed
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
