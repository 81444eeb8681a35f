package asset

import (
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/shopspring/decimal"
)

var ErrAmountFormat = errors.New("invalid amount format")

// Info is the display metadata of an asset.
type Info struct {
	Symbol   string
	Decimals int32
}

// Registry tracks the assets a ledger accepts and the identity of the
// ledger itself, which is never a valid transfer destination.
type Registry struct {
	ledgerID string
	native   Info

	mu     sync.RWMutex
	tokens mapset.Set
	infos  map[string]Info
}

func NewRegistry(ledgerID string, native Info) *Registry {
	return &Registry{
		ledgerID: ledgerID,
		native:   native,
		tokens:   mapset.NewSet(),
		infos:    make(map[string]Info),
	}
}

func (r *Registry) LedgerID() string {
	return r.ledgerID
}

// Register adds the fungible token to the accepted assets.
func (r *Registry) Register(id string, info Info) error {
	a := Token(id)
	if err := Validate(a); err != nil {
		return fmt.Errorf("register token %s failed: %w", id, err)
	}
	if info.Decimals < 0 {
		return fmt.Errorf("register token %s failed: negative decimals", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.tokens.Add(id) {
		return fmt.Errorf("token %s already registered", id)
	}
	r.infos[id] = info
	return nil
}

// Tokens returns the registered token assets.
func (r *Registry) Tokens() []Asset {
	var assets []Asset
	for _, id := range r.tokens.ToSlice() {
		assets = append(assets, Token(id.(string)))
	}
	return assets
}

// Lookup returns the metadata of an accepted asset.
func (r *Registry) Lookup(a Asset) (Info, error) {
	if err := r.ValidateAsset(a); err != nil {
		return Info{}, err
	}
	if a.IsNative() {
		return r.native, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.infos[a.ID], nil
}

// FindSymbol returns the accepted asset with the symbol.
func (r *Registry) FindSymbol(symbol string) (Asset, bool) {
	if symbol == r.native.Symbol {
		return Native, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, info := range r.infos {
		if info.Symbol == symbol {
			return Token(id), true
		}
	}
	return Asset{}, false
}

// ValidateAsset checks the asset shape and that fungible
// tokens are registered.
func (r *Registry) ValidateAsset(a Asset) error {
	if err := Validate(a); err != nil {
		return err
	}
	if !a.IsNative() && !r.tokens.Contains(a.ID) {
		return fmt.Errorf("%w: token %s not registered", ErrInvalidAsset, a.ID)
	}
	return nil
}

// ValidateAccount checks the account identifier.
func (r *Registry) ValidateAccount(accountID string) error {
	return ValidateAccount(accountID)
}

// ValidateDestination checks that value may be credited or sent to
// the account, the ledger itself is rejected since a self transfer
// would break the conservation accounting.
func (r *Registry) ValidateDestination(accountID string) error {
	if accountID == r.ledgerID {
		return fmt.Errorf("%w: destination is the ledger itself", ErrInvalidAccount)
	}
	return ValidateAccount(accountID)
}

// ParseAmount converts a decimal string in asset units into the
// integer amount in base units, e.g. "1.5" with 8 decimals is 150000000.
func (r *Registry) ParseAmount(a Asset, s string) (uint64, error) {
	info, err := r.Lookup(a)
	if err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAmountFormat, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: negative amount %s", ErrAmountFormat, s)
	}

	base := d.Shift(info.Decimals)
	if !base.Equal(base.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimals", ErrAmountFormat, s, info.Decimals)
	}
	if base.GreaterThan(decimal.NewFromUint64(^uint64(0))) {
		return 0, fmt.Errorf("%w: %s overflows", ErrAmountFormat, s)
	}
	return base.BigInt().Uint64(), nil
}

// FormatAmount renders the base unit amount as a decimal string.
func (r *Registry) FormatAmount(a Asset, amount uint64) (string, error) {
	info, err := r.Lookup(a)
	if err != nil {
		return "", err
	}
	return decimal.NewFromUint64(amount).Shift(-info.Decimals).String(), nil
}
