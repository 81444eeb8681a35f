package memchain

import (
	"encoding/json"
	"fmt"

	"github.com/ultiledger/go-ultivault/db"
)

const walletBucket = "WALLET"

// record is the persisted form of one wallet entry, the key is kept in
// the value since prefix scans only return values.
type record struct {
	Token   string `json:"token,omitempty"`
	Account string `json:"account"`
	Spender string `json:"spender,omitempty"`
	Amount  uint64 `json:"amount"`
}

func nativeKey(account string) string {
	return "N/" + account
}

func balanceKey(token string, account string) string {
	return "B/" + token + "/" + account
}

func allowanceKey(token string, owner string, spender string) string {
	return "A/" + token + "/" + owner + "/" + spender
}

// store writes wallet entries through to a database, a nil store keeps
// the chain resident only.
type store struct {
	database db.Database
}

func newStore(database db.Database) (*store, error) {
	if database == nil {
		return nil, nil
	}
	if err := database.NewBucket(walletBucket); err != nil {
		return nil, fmt.Errorf("create wallet bucket failed: %v", err)
	}
	return &store{database: database}, nil
}

// save writes the entries in one transaction.
func (s *store) save(entries map[string]record) error {
	if s == nil || len(entries) == 0 {
		return nil
	}
	tx, err := s.database.Begin()
	if err != nil {
		return fmt.Errorf("begin wallet tx failed: %v", err)
	}
	for key, r := range entries {
		data, err := json.Marshal(&r)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode wallet entry failed: %v", err)
		}
		if err := tx.Put(walletBucket, []byte(key), data); err != nil {
			tx.Rollback()
			return fmt.Errorf("save wallet entry failed: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit wallet tx failed: %v", err)
	}
	return nil
}

func (s *store) load(prefix string) ([]record, error) {
	if s == nil {
		return nil, nil
	}
	values, err := s.database.GetAll(walletBucket, []byte(prefix))
	if err != nil {
		return nil, fmt.Errorf("load wallet entries failed: %v", err)
	}
	records := make([]record, 0, len(values))
	for _, v := range values {
		var r record
		if err := json.Unmarshal(v, &r); err != nil {
			return nil, fmt.Errorf("decode wallet entry failed: %v", err)
		}
		records = append(records, r)
	}
	return records, nil
}
