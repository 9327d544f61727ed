// Package pebblestore provides a thin wrapper around Pebble with fsync
// policy, batches, and copy-safe point reads. It backs the trace artifact
// store.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeAlways,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	_ = db.Set([]byte("k"), []byte("v"))
//	v, _ := db.Get([]byte("k"))
//	_ = v
package pebblestore
