package db

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = leveldb.ErrNotFound

// ErrReadOnly is returned when writing through a View
var ErrReadOnly = errors.New("write in read-only view")

// KV is the key/value surface handed to Update and View callbacks
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// NewIterator walks all keys with the given prefix in key order
	NewIterator(prefix []byte) iterator.Iterator
}

// LevelDB wraps the actual LevelDB connection
type LevelDB struct {
	conn *leveldb.DB
	// one writer at a time, matching the ledger's serialized transactions
	mux sync.Mutex
}

// NewLevelDB opens (or creates) a LevelDB instance at the given path
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// OpenReadOnly opens an existing LevelDB instance for reading. A missing
// path is an error and nothing is created on disk; Update always fails.
func OpenReadOnly(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ReadOnly: true, ErrorIfMissing: true})
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// NewMemLevelDB opens a LevelDB instance backed by memory, used by tests and dev mode
func NewMemLevelDB() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{conn: db}, nil
}

// Close safely closes the LevelDB connection
func (l *LevelDB) Close() error {
	return l.conn.Close()
}

// Update runs fn inside a LevelDB transaction. The transaction commits only
// when fn returns nil; any error discards every write fn made.
func (l *LevelDB) Update(fn func(KV) error) error {
	l.mux.Lock()
	defer l.mux.Unlock()

	tx, err := l.conn.OpenTransaction()
	if err != nil {
		return fmt.Errorf("open transaction: %w", err)
	}
	if err := fn(&txKV{tx: tx}); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(); err != nil {
		tx.Discard()
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// View runs fn against a consistent snapshot of committed state
func (l *LevelDB) View(fn func(KV) error) error {
	snap, err := l.conn.GetSnapshot()
	if err != nil {
		return fmt.Errorf("get snapshot: %w", err)
	}
	defer snap.Release()
	return fn(&snapshotKV{snap: snap})
}

type txKV struct {
	tx *leveldb.Transaction
}

func (t *txKV) Get(key []byte) ([]byte, error) {
	return t.tx.Get(key, nil)
}

func (t *txKV) Put(key, value []byte) error {
	return t.tx.Put(key, value, nil)
}

func (t *txKV) Delete(key []byte) error {
	return t.tx.Delete(key, nil)
}

func (t *txKV) NewIterator(prefix []byte) iterator.Iterator {
	return t.tx.NewIterator(util.BytesPrefix(prefix), nil)
}

type snapshotKV struct {
	snap *leveldb.Snapshot
}

func (s *snapshotKV) Get(key []byte) ([]byte, error) {
	return s.snap.Get(key, nil)
}

func (s *snapshotKV) Put(key, value []byte) error {
	return ErrReadOnly
}

func (s *snapshotKV) Delete(key []byte) error {
	return ErrReadOnly
}

func (s *snapshotKV) NewIterator(prefix []byte) iterator.Iterator {
	return s.snap.NewIterator(util.BytesPrefix(prefix), &opt.ReadOptions{DontFillCache: true})
}
