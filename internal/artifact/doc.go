// Package artifact packages trace dump snapshots into retrievable
// artifacts.
//
// A dump request hands the store the exact byte range written to the trace
// file so far. The store wraps it in a CBOR envelope carrying metadata
// (sortable ID, creation time, byte and record counts, crc32c of the data)
// and persists it in Pebble under trace/dp/{id}. Artifacts come back in
// creation order when listed, and fetches verify the checksum before
// returning bytes.
package artifact
