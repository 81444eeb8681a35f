package memdb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ultiledger/go-ultivault/db"
)

// Test Memdb.
func TestMemDB(t *testing.T) {
	// open the database
	db := New()

	// test get nonexistance key
	val, err := db.Get("TEST", []byte("none"))
	assert.Nil(t, err)
	assert.Equal(t, []byte(nil), val)

	// test set key/value pair
	err = db.Put("TEST", []byte("testKey"), []byte("testValue"))
	assert.Equal(t, nil, err)

	// test get value of key
	val, err = db.Get("TEST", []byte("testKey"))
	assert.Equal(t, err, nil)
	assert.Equal(t, []byte("testValue"), val)

	// buckets are separate namespaces
	val, err = db.Get("OTHER", []byte("testKey"))
	assert.Nil(t, err)
	assert.Nil(t, val)

	// test delete
	err = db.Delete("TEST", []byte("testKey"))
	assert.Nil(t, err)
	val, _ = db.Get("TEST", []byte("testKey"))
	assert.Nil(t, val)

	// closed database rejects operations
	db.Close()
	_, err = db.Get("TEST", []byte("testKey"))
	assert.Equal(t, ErrClosed, err)
}

func TestMemDBGetAll(t *testing.T) {
	db := New()
	db.Put("TEST", []byte("a/2"), []byte("2"))
	db.Put("TEST", []byte("a/1"), []byte("1"))
	db.Put("TEST", []byte("b/1"), []byte("3"))

	vals, err := db.GetAll("TEST", []byte("a/"))
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2")}, vals)
}

func TestMemDBTxCommit(t *testing.T) {
	memorydb := New()
	memorydb.Put("TEST", []byte("keep"), []byte("old"))
	memorydb.Put("TEST", []byte("drop"), []byte("old"))

	tx, err := memorydb.Begin()
	assert.Nil(t, err)

	assert.Nil(t, tx.Put("TEST", []byte("keep"), []byte("new")))
	assert.Nil(t, tx.Delete("TEST", []byte("drop")))

	// staged writes are visible inside the tx only
	val, _ := tx.Get("TEST", []byte("keep"))
	assert.Equal(t, []byte("new"), val)
	val, _ = tx.Get("TEST", []byte("drop"))
	assert.Nil(t, val)
	val, _ = memorydb.Get("TEST", []byte("keep"))
	assert.Equal(t, []byte("old"), val)

	vals, err := tx.GetAll("TEST", nil)
	assert.Nil(t, err)
	assert.Equal(t, [][]byte{[]byte("new")}, vals)

	assert.Nil(t, tx.Commit())
	val, _ = memorydb.Get("TEST", []byte("keep"))
	assert.Equal(t, []byte("new"), val)
	val, _ = memorydb.Get("TEST", []byte("drop"))
	assert.Nil(t, val)

	// a finished tx cannot be reused
	assert.Equal(t, ErrTxClosed, tx.Commit())
	assert.Equal(t, ErrTxClosed, tx.Rollback())
}

func TestMemDBTxRollback(t *testing.T) {
	memorydb := New()
	memorydb.Put("TEST", []byte("key"), []byte("old"))

	tx, _ := memorydb.Begin()
	tx.Put("TEST", []byte("key"), []byte("new"))
	tx.Put("TEST", []byte("other"), []byte("new"))
	assert.Nil(t, tx.Rollback())

	val, _ := memorydb.Get("TEST", []byte("key"))
	assert.Equal(t, []byte("old"), val)
	val, _ = memorydb.Get("TEST", []byte("other"))
	assert.Nil(t, val)

	_, err := tx.Get("TEST", []byte("key"))
	assert.Equal(t, ErrTxClosed, err)
}

func TestRegistered(t *testing.T) {
	d, err := db.Open("memdb", "")
	assert.Nil(t, err)
	assert.NotNil(t, d)
	assert.Contains(t, db.Backends(), "memdb")

	_, err = db.Open("nosuchdb", "")
	assert.NotNil(t, err)
}
