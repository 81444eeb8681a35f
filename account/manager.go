package account

import (
	"encoding/binary"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/db"
	"github.com/ultiledger/go-ultivault/util"
)

var (
	ErrBalanceOverflow  = fmt.Errorf("account balance overflow: %w", util.ErrOverflow)
	ErrBalanceUnderflow = fmt.Errorf("account balance underflow: %w", util.ErrUnderflow)
	ErrCorruptBalance   = errors.New("corrupt balance entry")
)

// Manager manages the balance entries keyed by account and asset.
// Entries are created lazily: a missing entry reads as zero.
type Manager struct {
	database db.Database
	bucket   string

	// LRU cache for committed balances
	balances *lru.Cache
}

func NewManager(d db.Database, cacheSize int) (*Manager, error) {
	am := &Manager{
		database: d,
		bucket:   "BALANCE",
	}
	err := am.database.NewBucket(am.bucket)
	if err != nil {
		return nil, fmt.Errorf("create db bucket %s failed: %v", am.bucket, err)
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create balance LRU cache failed: %v", err)
	}
	am.balances = cache
	return am, nil
}

// construct db key, the asset comes first so that all the
// entries of one asset share a prefix
func balanceKey(accountID string, a asset.Asset) []byte {
	return []byte(a.Key() + "/" + accountID)
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte) (uint64, error) {
	if b == nil {
		return 0, nil
	}
	if len(b) != 8 {
		return 0, ErrCorruptBalance
	}
	return binary.BigEndian.Uint64(b), nil
}

// Get the balance of the account in the asset. Reads through an
// open db.Tx bypass the cache since they may observe staged writes.
func (am *Manager) GetBalance(getter db.Getter, accountID string, a asset.Asset) (uint64, error) {
	key := balanceKey(accountID, a)

	_, inTx := getter.(db.Tx)
	if !inTx {
		if v, ok := am.balances.Get(string(key)); ok {
			return v.(uint64), nil
		}
	}

	b, err := getter.Get(am.bucket, key)
	if err != nil {
		return 0, fmt.Errorf("get balance of %s failed: %v", accountID, err)
	}
	balance, err := decodeUint64(b)
	if err != nil {
		return 0, fmt.Errorf("decode balance of %s failed: %w", accountID, err)
	}

	if !inTx {
		am.balances.Add(string(key), balance)
	}
	return balance, nil
}

// Update the balance of the account in the asset.
func (am *Manager) SaveBalance(putter db.Putter, accountID string, a asset.Asset, balance uint64) error {
	key := balanceKey(accountID, a)

	// save the balance in db
	err := putter.Put(am.bucket, key, encodeUint64(balance))
	if err != nil {
		return fmt.Errorf("save balance of %s failed: %v", accountID, err)
	}
	am.balances.Remove(string(key))

	return nil
}

// Evict drops the cached balance, it should be called for every
// entry written by a tx once the tx is committed.
func (am *Manager) Evict(accountID string, a asset.Asset) {
	am.balances.Remove(string(balanceKey(accountID, a)))
}

// TotalBalance sums the balances of every account in the asset.
func (am *Manager) TotalBalance(getter db.Getter, a asset.Asset) (uint64, error) {
	vals, err := getter.GetAll(am.bucket, []byte(a.Key()+"/"))
	if err != nil {
		return 0, fmt.Errorf("get balances of %s failed: %v", a, err)
	}

	var total uint64
	for _, b := range vals {
		v, err := decodeUint64(b)
		if err != nil {
			return 0, err
		}
		total, err = util.AddUint64(total, v)
		if err != nil {
			return 0, ErrBalanceOverflow
		}
	}
	return total, nil
}

// Add amount to balance and check balance overflow
func (am *Manager) AddBalance(balance uint64, amount uint64) (uint64, error) {
	v, err := util.AddUint64(balance, amount)
	if err != nil {
		return balance, ErrBalanceOverflow
	}
	return v, nil
}

// Subtract amount from balance and check balance underflow
func (am *Manager) SubBalance(balance uint64, amount uint64) (uint64, error) {
	v, err := util.SubUint64(balance, amount)
	if err != nil {
		return balance, ErrBalanceUnderflow
	}
	return v, nil
}
