package artifact

import (
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"

	pebblestore "github.com/rzbill/traced/internal/storage/pebble"
	"github.com/rzbill/traced/pkg/id"
	logpkg "github.com/rzbill/traced/pkg/log"
)

var (
	// ErrNotFound reports an unknown artifact ID.
	ErrNotFound = errors.New("artifact: not found")
	// ErrCorrupt reports an artifact whose stored bytes fail the checksum.
	ErrCorrupt = errors.New("artifact: checksum mismatch")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const keyPrefix = "trace/dp/"

func key(aid id.ID) []byte {
	return append([]byte(keyPrefix), aid.Bytes()...)
}

// Meta describes one packaged trace dump.
type Meta struct {
	ID        string `cbor:"id" json:"id"`
	CreatedMs int64  `cbor:"created_ms" json:"createdMs"`
	Bytes     uint64 `cbor:"bytes" json:"bytes"`
	Records   uint64 `cbor:"records" json:"records"`
	Checksum  uint32 `cbor:"crc32c" json:"crc32c"`
}

// envelope is the stored form: metadata plus the raw dump bytes, encoded
// as one CBOR value.
type envelope struct {
	Meta Meta   `cbor:"meta"`
	Data []byte `cbor:"data"`
}

// Store persists dump artifacts in Pebble.
type Store struct {
	db     *pebblestore.DB
	gen    *id.Generator
	logger logpkg.Logger
}

// NewStore builds a Store on the given database.
func NewStore(db *pebblestore.DB, logger logpkg.Logger) *Store {
	if logger == nil {
		logger = logpkg.NewNop()
	}
	return &Store{db: db, gen: id.NewGenerator(), logger: logger}
}

// Package wraps a dump snapshot in an envelope and persists it. The data
// is stored exactly as handed over, in original order, with no
// reformatting; records is the producer's accepted-record count.
func (s *Store) Package(data []byte, records uint64) (Meta, error) {
	aid := s.gen.Next()
	meta := Meta{
		ID:        aid.String(),
		CreatedMs: aid.CreatedMs(),
		Bytes:     uint64(len(data)),
		Records:   records,
		Checksum:  crc32.Checksum(data, castagnoli),
	}
	enc, err := cbor.Marshal(envelope{Meta: meta, Data: data})
	if err != nil {
		return Meta{}, fmt.Errorf("artifact: encode: %w", err)
	}
	if err := s.db.Set(key(aid), enc); err != nil {
		return Meta{}, fmt.Errorf("artifact: persist: %w", err)
	}
	s.logger.Info("trace dump packaged",
		logpkg.Str("artifact", meta.ID),
		logpkg.Uint64("bytes", meta.Bytes),
		logpkg.Uint64("records", meta.Records),
	)
	return meta, nil
}

// Get fetches an artifact by hex ID, verifying the checksum.
func (s *Store) Get(hexID string) (Meta, []byte, error) {
	aid, err := id.Parse(hexID)
	if err != nil {
		return Meta{}, nil, fmt.Errorf("%w: %s", ErrNotFound, hexID)
	}
	raw, err := s.db.Get(key(aid))
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return Meta{}, nil, fmt.Errorf("%w: %s", ErrNotFound, hexID)
		}
		return Meta{}, nil, fmt.Errorf("artifact: read: %w", err)
	}
	var env envelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return Meta{}, nil, fmt.Errorf("artifact: decode: %w", err)
	}
	if crc32.Checksum(env.Data, castagnoli) != env.Meta.Checksum {
		return Meta{}, nil, fmt.Errorf("%w: %s", ErrCorrupt, hexID)
	}
	return env.Meta, env.Data, nil
}

// List returns artifact metadata in creation order.
func (s *Store) List() ([]Meta, error) {
	low := []byte(keyPrefix)
	hi := append([]byte(keyPrefix), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []Meta
	for ok := iter.First(); ok; ok = iter.Next() {
		var env envelope
		if err := cbor.Unmarshal(iter.Value(), &env); err != nil {
			// Skip undecodable rows rather than failing the whole listing.
			s.logger.Warn("skipping undecodable artifact row", logpkg.Err(err))
			continue
		}
		out = append(out, env.Meta)
	}
	return out, nil
}

// Delete removes an artifact by hex ID. Removing a missing artifact is
// not an error.
func (s *Store) Delete(hexID string) error {
	aid, err := id.Parse(hexID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, hexID)
	}
	return s.db.Delete(key(aid))
}
