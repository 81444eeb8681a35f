package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/db"
)

// Flow counts the value moved into and out of the custody.
type Flow struct {
	Inflow  uint64
	Outflow uint64
}

// Net is the value currently held in custody.
func (f Flow) Net() uint64 {
	return f.Inflow - f.Outflow
}

func (l *Ledger) flow(getter db.Getter, a asset.Asset) (Flow, error) {
	b, err := getter.Get(l.bucket, []byte(a.Key()))
	if err != nil {
		return Flow{}, fmt.Errorf("get flow of %s failed: %v", a, err)
	}
	if b == nil {
		return Flow{}, nil
	}
	if len(b) != 16 {
		return Flow{}, fmt.Errorf("corrupt flow of %s", a)
	}
	return Flow{
		Inflow:  binary.BigEndian.Uint64(b[:8]),
		Outflow: binary.BigEndian.Uint64(b[8:]),
	}, nil
}

func (l *Ledger) saveFlow(putter db.Putter, a asset.Asset, f Flow) error {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], f.Inflow)
	binary.BigEndian.PutUint64(b[8:], f.Outflow)
	if err := putter.Put(l.bucket, []byte(a.Key()), b); err != nil {
		return fmt.Errorf("save flow of %s failed: %v", a, err)
	}
	return nil
}
