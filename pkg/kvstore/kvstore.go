package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	badger "github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrKeyNotFound  = errors.New("key not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidValue = errors.New("invalid value")
)

// Store is the persistence boundary for every collection in the system.
// Operations are synchronous and local; there is no cross-process locking,
// so concurrent writers follow a last-write-wins policy per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// BadgerStore implements Store on top of an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	tracer trace.Tracer
}

// Open opens (or creates) a store rooted at dir.
func Open(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	return &BadgerStore{
		db:     db,
		tracer: otel.Tracer("memberdesk/kvstore"),
	}, nil
}

// OpenInMemory opens a store with no on-disk state. Used in tests.
func OpenInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	return &BadgerStore{
		db:     db,
		tracer: otel.Tracer("memberdesk/kvstore"),
	}, nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := s.tracer.Start(ctx, "kvstore.get",
		trace.WithAttributes(attribute.String("kv.key", key)),
	)
	defer span.End()

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		span.SetAttributes(attribute.Bool("kv.found", false))
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	span.SetAttributes(
		attribute.Bool("kv.found", true),
		attribute.Int("kv.bytes", len(value)),
	)
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	_, span := s.tracer.Start(ctx, "kvstore.set",
		trace.WithAttributes(
			attribute.String("kv.key", key),
			attribute.Int("kv.bytes", len(value)),
		),
	)
	defer span.End()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	_, span := s.tracer.Start(ctx, "kvstore.delete",
		trace.WithAttributes(attribute.String("kv.key", key)),
	)
	defer span.End()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// LoadJSON decodes the value under key into v. An absent key leaves v
// untouched. A malformed stored value is logged and discarded, leaving v
// untouched, so callers always start from a usable default collection.
func LoadJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("kvstore: discarding malformed value under %q: %v", key, err)
		return nil
	}
	return nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
