package memdb

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ultiledger/go-ultivault/db"
)

var (
	ErrClosed   = errors.New("memdb is closed")
	ErrTxClosed = errors.New("memdb tx is closed")
)

func init() {
	db.Register("memdb", func(string) (db.Database, error) {
		return New(), nil
	})
}

type memdb struct {
	sync.RWMutex
	db map[string][]byte
}

// New creates a memory-based key-value store. Buckets are
// namespaces in the key so the same key in two buckets never
// collides.
func New() db.Database {
	return &memdb{db: make(map[string][]byte)}
}

func compositeKey(bucket string, key []byte) string {
	return bucket + "\x00" + string(key)
}

func (m *memdb) NewBucket(name string) error {
	if name == "" {
		return errors.New("database bucket name is empty")
	}
	return nil
}

// Put writes the key/value pair to database.
func (m *memdb) Put(bucket string, key, value []byte) error {
	m.Lock()
	defer m.Unlock()

	if m.db == nil {
		return ErrClosed
	}

	m.db[compositeKey(bucket, key)] = append([]byte(nil), value...)
	return nil
}

// Delete deletes the key from the database.
func (m *memdb) Delete(bucket string, key []byte) error {
	m.Lock()
	defer m.Unlock()

	if m.db == nil {
		return ErrClosed
	}

	delete(m.db, compositeKey(bucket, key))
	return nil
}

// Get retrieves the value of the key from database.
func (m *memdb) Get(bucket string, key []byte) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()

	if m.db == nil {
		return nil, ErrClosed
	}

	if val, ok := m.db[compositeKey(bucket, key)]; ok {
		return append([]byte(nil), val...), nil
	}
	return nil, nil
}

// GetAll retrieves the values of the keys with prefix from database
// in key order.
func (m *memdb) GetAll(bucket string, keyPrefix []byte) ([][]byte, error) {
	m.RLock()
	defer m.RUnlock()

	if m.db == nil {
		return nil, ErrClosed
	}

	prefix := compositeKey(bucket, keyPrefix)
	var keys []string
	for k := range m.db {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var vals [][]byte
	for _, k := range keys {
		vals = append(vals, append([]byte(nil), m.db[k]...))
	}
	return vals, nil
}

// Close closes the underlying database.
func (m *memdb) Close() error {
	m.Lock()
	defer m.Unlock()

	m.db = nil
	return nil
}

// Begin starts a transaction which buffers writes until Commit.
func (m *memdb) Begin() (db.Tx, error) {
	m.RLock()
	defer m.RUnlock()

	if m.db == nil {
		return nil, ErrClosed
	}
	return &memdbTx{parent: m, writes: make(map[string]*[]byte)}, nil
}

// memdbTx stages the writes in a write set on top of the parent
// database, a nil entry in the write set marks a deletion.
type memdbTx struct {
	mu     sync.Mutex
	parent *memdb
	writes map[string]*[]byte
	closed bool
}

func (tx *memdbTx) Get(bucket string, key []byte) ([]byte, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return nil, ErrTxClosed
	}
	if v, ok := tx.writes[compositeKey(bucket, key)]; ok {
		if v == nil {
			return nil, nil
		}
		return append([]byte(nil), (*v)...), nil
	}
	return tx.parent.Get(bucket, key)
}

func (tx *memdbTx) GetAll(bucket string, keyPrefix []byte) ([][]byte, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return nil, ErrTxClosed
	}

	tx.parent.RLock()
	merged := make(map[string][]byte)
	prefix := compositeKey(bucket, keyPrefix)
	for k, v := range tx.parent.db {
		if strings.HasPrefix(k, prefix) {
			merged[k] = v
		}
	}
	tx.parent.RUnlock()

	for k, v := range tx.writes {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = *v
	}

	var keys []string
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var vals [][]byte
	for _, k := range keys {
		vals = append(vals, append([]byte(nil), merged[k]...))
	}
	return vals, nil
}

func (tx *memdbTx) Put(bucket string, key, value []byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return ErrTxClosed
	}
	v := append([]byte(nil), value...)
	tx.writes[compositeKey(bucket, key)] = &v
	return nil
}

func (tx *memdbTx) Delete(bucket string, key []byte) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return ErrTxClosed
	}
	tx.writes[compositeKey(bucket, key)] = nil
	return nil
}

func (tx *memdbTx) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true
	tx.writes = nil
	return nil
}

// Commit applies the whole write set to the parent database
// under a single lock.
func (tx *memdbTx) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true

	m := tx.parent
	m.Lock()
	defer m.Unlock()

	if m.db == nil {
		return ErrClosed
	}
	for k, v := range tx.writes {
		if v == nil {
			delete(m.db, k)
			continue
		}
		m.db[k] = *v
	}
	tx.writes = nil
	return nil
}
