package tracelog

import (
	"errors"
	"fmt"
	"io"
)

// ErrTruncatedRecord reports a stream that ends mid-record for the sizes
// the caller supplied.
var ErrTruncatedRecord = errors.New("tracelog: truncated record")

// Reader walks a back-to-back record stream. The wire format carries no
// separators, so the caller supplies each record's payload length from
// context (the producer's event table, or a homogeneous run).
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps a dumped byte stream.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Remaining reports unconsumed bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Next consumes and decodes one record whose payload is payloadLen bytes.
// Returns io.EOF when the stream is fully consumed and ErrTruncatedRecord
// when fewer bytes remain than the record needs.
func (r *Reader) Next(payloadLen int) (Record, error) {
	if r.off >= len(r.buf) {
		return Record{}, io.EOF
	}
	size := EncodedSize(payloadLen)
	if r.off+size > len(r.buf) {
		return Record{}, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedRecord, size, len(r.buf)-r.off)
	}
	rec, _ := DecodeRecord(r.buf[r.off : r.off+size])
	r.off += size
	return rec, nil
}

// DecodeStream decodes an entire stream whose i-th record carries
// payloadLens[i] payload bytes. The stream must match the sizes exactly.
func DecodeStream(b []byte, payloadLens []int) ([]Record, error) {
	r := NewReader(b)
	recs := make([]Record, 0, len(payloadLens))
	for i, n := range payloadLens {
		rec, err := r.Next(n)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		recs = append(recs, rec)
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("tracelog: %d trailing bytes after %d records", r.Remaining(), len(payloadLens))
	}
	return recs, nil
}

// ScanFixed decodes a stream of records that all carry the same payload
// length, a common shape for instrumented runs with one probe.
func ScanFixed(b []byte, payloadLen int) ([]Record, error) {
	size := EncodedSize(payloadLen)
	if len(b)%size != 0 {
		return nil, fmt.Errorf("tracelog: stream length %d not a multiple of record size %d", len(b), size)
	}
	r := NewReader(b)
	var recs []Record
	for {
		rec, err := r.Next(payloadLen)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}
