package tracesvc

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/traced/internal/config"
	"github.com/rzbill/traced/internal/runtime"
	pebblestore "github.com/rzbill/traced/internal/storage/pebble"
	"github.com/rzbill/traced/internal/tracelog"
)

func newTestService(t *testing.T, mutate func(*cfgpkg.Config)) *Service {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Trace.FilePath = filepath.Join(t.TempDir(), "trace.bin")
	cfg.Trace.MaxFileSizeBytes = 1 << 16
	if mutate != nil {
		mutate(&cfg)
	}
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	svc, err := New(rt, nil)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func mustStatus(t *testing.T, svc *Service) Status {
	t.Helper()
	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	return st
}

func TestRecordThroughQueue(t *testing.T) {
	svc := newTestService(t, nil)
	for i := uint32(1); i <= 3; i++ {
		ev := Event{ID: i, Time: tracelog.Timestamp{Seconds: i}, Type: tracelog.EventPoint, Payload: []byte{byte(i)}}
		if err := svc.Record(ev); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	st := mustStatus(t, svc) // the status thunk runs after every queued event
	if st.Accepted != 3 {
		t.Fatalf("accepted: %d", st.Accepted)
	}
	if st.Mode != "open" {
		t.Fatalf("mode: %s", st.Mode)
	}
	if st.WrittenBytes != 3*uint64(tracelog.EncodedSize(1)) {
		t.Fatalf("written: %d", st.WrittenBytes)
	}
}

func TestEventsLandInArrivalOrder(t *testing.T) {
	svc := newTestService(t, nil)
	for i := uint32(1); i <= 50; i++ {
		if err := svc.Record(Event{ID: i, Type: tracelog.EventPoint, Payload: []byte{0}}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	meta, err := svc.Dump(context.Background())
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	_, data, err := svc.rt.Artifacts().Get(meta.ID)
	if err != nil {
		t.Fatalf("artifact: %v", err)
	}
	recs, err := tracelog.ScanFixed(data, 1)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(recs) != 50 {
		t.Fatalf("record count: %d", len(recs))
	}
	for i, rec := range recs {
		if rec.ID != uint32(i+1) {
			t.Fatalf("record %d out of order: id=%d", i, rec.ID)
		}
	}
}

func TestSetEnabledMidStream(t *testing.T) {
	svc := newTestService(t, nil)
	_ = svc.Record(Event{ID: 1, Type: tracelog.EventPoint})
	if err := svc.SetEnabled(context.Background(), false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	_ = svc.Record(Event{ID: 2, Type: tracelog.EventPoint})
	if err := svc.SetEnabled(context.Background(), true); err != nil {
		t.Fatalf("enable: %v", err)
	}
	_ = svc.Record(Event{ID: 3, Type: tracelog.EventPoint})
	st := mustStatus(t, svc)
	if st.Accepted != 2 {
		t.Fatalf("accepted with mid-stream disable: %d", st.Accepted)
	}
	meta, err := svc.Dump(context.Background())
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	_, data, _ := svc.rt.Artifacts().Get(meta.ID)
	recs, err := tracelog.ScanFixed(data, 0)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != 1 || recs[1].ID != 3 {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestDumpIdempotentArtifacts(t *testing.T) {
	svc := newTestService(t, nil)
	_ = svc.Record(Event{ID: 1, Type: tracelog.EventPoint, Payload: []byte("same")})
	a, err := svc.Dump(context.Background())
	if err != nil {
		t.Fatalf("dump a: %v", err)
	}
	b, err := svc.Dump(context.Background())
	if err != nil {
		t.Fatalf("dump b: %v", err)
	}
	_, dataA, _ := svc.rt.Artifacts().Get(a.ID)
	_, dataB, _ := svc.rt.Artifacts().Get(b.ID)
	if !bytes.Equal(dataA, dataB) {
		t.Fatalf("dumps differ without intervening events")
	}
	if a.Checksum != b.Checksum {
		t.Fatalf("checksums differ")
	}
}

func TestDumpBeforeAnyEventIsEmpty(t *testing.T) {
	svc := newTestService(t, func(cfg *cfgpkg.Config) { cfg.Trace.Enabled = false })
	meta, err := svc.Dump(context.Background())
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if meta.Bytes != 0 || meta.Records != 0 {
		t.Fatalf("expected empty artifact, got %+v", meta)
	}
}

func TestOversizedPayloadRejectedSynchronously(t *testing.T) {
	svc := newTestService(t, nil)
	err := svc.Record(Event{ID: 1, Type: tracelog.EventPoint, Payload: make([]byte, tracelog.DefaultPayloadMax+1)})
	if !errors.Is(err, tracelog.ErrPayloadTooLarge) {
		t.Fatalf("expected payload error, got %v", err)
	}
}

func TestQueueOverflowDrops(t *testing.T) {
	svc := newTestService(t, func(cfg *cfgpkg.Config) { cfg.Trace.QueueDepth = 2 })
	// Park the run loop on a control thunk so queued events pile up.
	release := make(chan struct{})
	parked := make(chan struct{})
	go func() {
		_ = svc.ctrl(context.Background(), func() {
			close(parked)
			<-release
		})
	}()
	<-parked
	var overflowed bool
	for i := 0; i < 10; i++ {
		if err := svc.Record(Event{ID: uint32(i), Type: tracelog.EventPoint}); errors.Is(err, ErrQueueFull) {
			overflowed = true
			break
		}
	}
	close(release)
	if !overflowed {
		t.Fatalf("expected queue overflow")
	}
	st := mustStatus(t, svc)
	if st.DroppedQueue == 0 {
		t.Fatalf("dropped queue counter not incremented")
	}
}

func TestFilterSkipsEvents(t *testing.T) {
	svc := newTestService(t, func(cfg *cfgpkg.Config) { cfg.Trace.Filter = `kind != "exit"` })
	_ = svc.Record(Event{ID: 1, Type: tracelog.EventEnter})
	_ = svc.Record(Event{ID: 2, Type: tracelog.EventExit})
	_ = svc.Record(Event{ID: 3, Type: tracelog.EventPoint})
	st := mustStatus(t, svc)
	if st.Accepted != 2 {
		t.Fatalf("accepted: %d", st.Accepted)
	}
	if st.Filtered != 1 {
		t.Fatalf("filtered: %d", st.Filtered)
	}
}

func TestBadFilterFailsConstruction(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Trace.Filter = "this is not CEL ((("
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	defer rt.Close()
	if _, err := New(rt, nil); err == nil {
		t.Fatalf("expected filter compile error")
	}
}

func TestConfigureBeforeFirstEvent(t *testing.T) {
	svc := newTestService(t, func(cfg *cfgpkg.Config) { cfg.Trace.FilePath = "" })
	// No path configured: the first event is skipped, nothing opens.
	_ = svc.Record(Event{ID: 1, Type: tracelog.EventPoint})
	st := mustStatus(t, svc)
	if st.Mode != "closed" || st.Accepted != 0 {
		t.Fatalf("unconfigured state: %+v", st)
	}
	path := filepath.Join(t.TempDir(), "late.bin")
	if err := svc.Configure(context.Background(), path, 4096); err != nil {
		t.Fatalf("configure: %v", err)
	}
	_ = svc.Record(Event{ID: 2, Type: tracelog.EventPoint})
	st = mustStatus(t, svc)
	if st.Mode != "open" || st.Accepted != 1 || st.BudgetBytes != 4096 {
		t.Fatalf("post-configure state: %+v", st)
	}
}

func TestClosedService(t *testing.T) {
	svc := newTestService(t, nil)
	_ = svc.Record(Event{ID: 1, Type: tracelog.EventPoint})
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := svc.Record(Event{ID: 2, Type: tracelog.EventPoint}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := svc.Status(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from status, got %v", err)
	}
}
