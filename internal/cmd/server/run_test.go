package serverrun

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/traced/internal/config"
	pebblestore "github.com/rzbill/traced/internal/storage/pebble"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestRunServesAndShutsDown(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Trace.FilePath = filepath.Join(t.TempDir(), "trace.bin")
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			DataDir:  t.TempDir(),
			HTTPAddr: addr,
			Fsync:    pebblestore.FsyncModeAlways,
			Config:   cfg,
		})
	}()

	// Wait for the health endpoint to come up.
	url := "http://" + addr + "/v1/healthz"
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became healthy")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not shut down")
	}
}

func TestGetenvDefault(t *testing.T) {
	old := getenv
	defer func() { getenv = old }()
	getenv = func(key string) string {
		if key == "SET" {
			return "val"
		}
		return ""
	}
	if got := getenvDefault("SET", "def"); got != "val" {
		t.Fatalf("set: %q", got)
	}
	if got := getenvDefault("UNSET", "def"); got != "def" {
		t.Fatalf("unset: %q", got)
	}
}
