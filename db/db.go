package db

import (
	"fmt"
	"sort"
)

var constructors = make(map[string]Ctor)

type Getter interface {
	// Get returns nil value without error if the key does not exist.
	Get(bucket string, key []byte) ([]byte, error)
	// GetAll returns the values of the keys with the prefix.
	GetAll(bucket string, keyPrefix []byte) ([][]byte, error)
}

type Putter interface {
	Put(bucket string, key, value []byte) error
}

type Deleter interface {
	Delete(bucket string, key []byte) error
}

// Tx stages reads and writes which become visible to the
// database only after Commit, Rollback discards all of them.
type Tx interface {
	Getter
	Putter
	Deleter
	Commit() error
	Rollback() error
}

// Database is the generic key/value store interface.
type Database interface {
	Getter
	Putter
	Deleter
	NewBucket(name string) error
	Begin() (Tx, error)
	Close() error
}

// Ctor creates a database in the specified path.
type Ctor func(path string) (Database, error)

// database backend should call this function to register itself
// in order to be used by application
func Register(name string, ctor Ctor) {
	constructors[name] = ctor
}

// Open creates the database with the registered backend.
func Open(name string, path string) (Database, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("database %s not registered", name)
	}
	return ctor(path)
}

// Backends returns the names of registered backends.
func Backends() []string {
	var names []string
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
