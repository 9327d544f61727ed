package tracelog

import (
	"encoding/binary"
	"fmt"
	"time"
)

// EventType tags the kind of trace event a record carries.
type EventType uint8

const (
	// EventEnter marks entry into a traced region.
	EventEnter EventType = 1
	// EventExit marks exit from a traced region.
	EventExit EventType = 2
	// EventPoint marks a single point event with no paired exit.
	EventPoint EventType = 3
)

// String returns the wire name of the event type.
func (t EventType) String() string {
	switch t {
	case EventEnter:
		return "enter"
	case EventExit:
		return "exit"
	case EventPoint:
		return "point"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseEventType maps a wire name back to an EventType.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "enter":
		return EventEnter, nil
	case "exit":
		return EventExit, nil
	case "point":
		return EventPoint, nil
	}
	return 0, fmt.Errorf("tracelog: unknown event type %q", s)
}

// Timestamp is the fixed-width time value carried by every record:
// whole seconds plus a microsecond fraction, each serialized as uint32.
type Timestamp struct {
	Seconds uint32
	Micros  uint32
}

// Now captures the current wall clock as a Timestamp.
func Now() Timestamp {
	t := time.Now()
	return Timestamp{Seconds: uint32(t.Unix()), Micros: uint32(t.Nanosecond() / 1000)}
}

// Time converts the timestamp back to a time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(int64(ts.Seconds), int64(ts.Micros)*1000)
}

// Serialized field widths and the resulting header size.
const (
	idSize        = 4
	timestampSize = 8
	typeSize      = 1

	// FixedHeaderSize is the serialized size of everything before the payload.
	FixedHeaderSize = idSize + timestampSize + typeSize

	// DefaultPayloadMax bounds the variable-length payload of one record.
	DefaultPayloadMax = 256

	// MaxRecordSize is the largest serialized record the codec will produce.
	MaxRecordSize = FixedHeaderSize + DefaultPayloadMax
)

// Record is the transient in-memory form of one trace event. It is encoded
// per call and never retained by the writer.
type Record struct {
	ID      uint32
	Time    Timestamp
	Type    EventType
	Payload []byte
}

// EncodedSize returns the serialized size of a record with the given
// payload length.
func EncodedSize(payloadLen int) int { return FixedHeaderSize + payloadLen }

// AppendRecord serializes rec onto dst and returns the extended slice.
// The payload must already be within the compile-time cap; exceeding it is
// a caller bug, not a runtime condition, so the codec panics rather than
// recovering.
func AppendRecord(dst []byte, rec Record) []byte {
	if len(rec.Payload) > DefaultPayloadMax {
		panic(fmt.Sprintf("tracelog: payload %d exceeds max %d", len(rec.Payload), DefaultPayloadMax))
	}
	var hdr [FixedHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], rec.ID)
	binary.BigEndian.PutUint32(hdr[4:8], rec.Time.Seconds)
	binary.BigEndian.PutUint32(hdr[8:12], rec.Time.Micros)
	hdr[12] = byte(rec.Type)
	dst = append(dst, hdr[:]...)
	dst = append(dst, rec.Payload...)
	return dst
}

// EncodeRecord serializes rec into a freshly allocated buffer.
func EncodeRecord(rec Record) []byte {
	return AppendRecord(make([]byte, 0, EncodedSize(len(rec.Payload))), rec)
}

// DecodeRecord decodes a single record occupying exactly b. Everything past
// the fixed header is the payload. Returns false if b is shorter than a
// header.
func DecodeRecord(b []byte) (Record, bool) {
	if len(b) < FixedHeaderSize {
		return Record{}, false
	}
	rec := Record{
		ID: binary.BigEndian.Uint32(b[0:4]),
		Time: Timestamp{
			Seconds: binary.BigEndian.Uint32(b[4:8]),
			Micros:  binary.BigEndian.Uint32(b[8:12]),
		},
		Type:    EventType(b[12]),
		Payload: append([]byte(nil), b[FixedHeaderSize:]...),
	}
	return rec, true
}
