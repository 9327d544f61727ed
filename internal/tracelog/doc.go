// Package tracelog implements the trace recording core: a fixed-layout
// binary record codec and a size-bounded file writer.
//
// # Record layout
//
// Each trace event is serialized back-to-back into the trace file with no
// separators, headers, or trailers:
//
//	id:      uint32  big-endian
//	seconds: uint32  big-endian
//	micros:  uint32  big-endian
//	type:    uint8
//	payload: variable, at most the writer's payload cap
//
// The serialized size of a record is always FixedHeaderSize plus the payload
// length. Record boundaries are implicit; readers recover them from
// per-record payload lengths known from context (see Reader).
//
// # Writer lifecycle
//
// A FileWriter is created closed and disabled. The target path and byte
// budget may be set any number of times before the first accepted event;
// the first accepted event opens (creates or truncates) the file and
// further configuration is ignored. Writes stop silently once the budget
// is reached. Open or append failures latch the writer into a degraded
// state that is cleared only by a successful Configure or Reset.
//
// API surface (internal)
//
//	w := tracelog.NewFileWriter(tracelog.Options{Path: "trace.bin"})
//	w.SetEnabled(true)
//	out, err := w.Record(id, tracelog.Now(), tracelog.EventPoint, payload)
//	_ = out // Written, Skipped, or Dropped
//	snap, _ := w.Dump()
//	_ = w.Close()
//
// The writer performs no internal locking. Exactly one goroutine may call
// its methods; the traces service owns that serialization.
package tracelog
