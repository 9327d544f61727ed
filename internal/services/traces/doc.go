// Package tracesvc implements the Traces facade over the tracelog core.
//
// The core FileWriter performs no locking of its own: exactly one
// goroutine may touch it. This service provides that serialization. All
// operations, trace events and control requests alike, travel through one
// bounded queue drained by a single run loop that owns the writer, so
// records land in the file in exact arrival order and control operations
// take effect at a well-defined point in the stream.
//
// Trace events are enqueued without blocking; a full queue drops the
// event and counts it. Control requests (enable, configure, dump, status)
// block until the loop has executed them.
//
// Example:
//
//	svc, _ := tracesvc.New(rt, logger)
//	defer svc.Close()
//	_ = svc.Record(tracesvc.Event{ID: 7, Time: tracelog.Now(), Type: tracelog.EventPoint})
//	meta, _ := svc.Dump(ctx) // package current trace bytes as an artifact
//	_ = meta
package tracesvc
