// Package id provides a 128-bit, lexicographically sortable identifier
// used for trace dump artifacts.
//
// # Format
//
// An ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise comparison preserves chronological order, so artifacts listed
// in key order come back in creation order, and IDs generated within the
// same millisecond remain strictly increasing by sequence.
//
// # Monotonicity
//
// The Generator ensures per-process monotonicity: if the system clock
// regresses it pins to the last seen millisecond and keeps incrementing
// the sequence, and if the sequence would overflow within a millisecond it
// waits for the next one.
//
// Usage
//
//	g := id.NewGenerator()
//	artifactID := g.Next()
//	s := artifactID.String()  // hex
//	back, err := id.Parse(s)  // hex -> ID
//	_, _ = back, err
package id
