package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
)

const badgerKeyPrefix = "listing:"

// BadgerConfig configures the embedded durable tier.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	// Retention is how long a record is kept on disk before badger drops it.
	// It only bounds disk usage; freshness is decided by the cache TTL.
	Retention time.Duration
}

// BadgerStore is a Durable backed by an embedded BadgerDB. Values are an
// 8-byte big-endian fetch time in unix nanoseconds followed by the
// zstd-compressed payload.
type BadgerStore struct {
	db        *badger.DB
	enc       *zstd.Encoder
	dec       *zstd.Decoder
	retention time.Duration
}

// OpenBadger opens (or creates) the badger durable tier.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &BadgerStore{db: db, enc: enc, dec: dec, retention: retention}, nil
}

func (s *BadgerStore) Load(ctx context.Context, key string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("load %q: %w", key, err)
	}

	if len(raw) < 8 {
		return Record{}, false, fmt.Errorf("load %q: record too short", key)
	}
	payload, err := s.dec.DecodeAll(raw[8:], nil)
	if err != nil {
		return Record{}, false, fmt.Errorf("decompress %q: %w", key, err)
	}
	nanos := int64(binary.BigEndian.Uint64(raw[:8]))
	return Record{FetchedAt: time.Unix(0, nanos), Payload: payload}, true, nil
}

func (s *BadgerStore) Save(ctx context.Context, key string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	val := make([]byte, 8, 8+len(rec.Payload)/2)
	binary.BigEndian.PutUint64(val, uint64(rec.FetchedAt.UnixNano()))
	val = s.enc.EncodeAll(rec.Payload, val)

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(badgerKey(key), val).WithTTL(s.retention))
	})
	if err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(key))
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	s.dec.Close()
	return errors.Join(s.enc.Close(), s.db.Close())
}

func badgerKey(key string) []byte {
	return []byte(badgerKeyPrefix + key)
}
