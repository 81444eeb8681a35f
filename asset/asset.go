package asset

import (
	"errors"

	"github.com/ultiledger/go-ultivault/crypto"
)

var (
	ErrInvalidAsset   = errors.New("invalid asset")
	ErrInvalidAccount = errors.New("invalid account")
)

type Kind uint8

const (
	_ Kind = iota // the zero kind is invalid
	KindNative
	KindFungible
)

// Asset identifies a kind of value tracked by the ledger. The native
// asset is a singleton, fungible assets are distinguished by ID.
type Asset struct {
	Kind Kind
	ID   string
}

var Native = Asset{Kind: KindNative}

// Token returns the fungible asset with the identifier.
func Token(id string) Asset {
	return Asset{Kind: KindFungible, ID: id}
}

func (a Asset) IsNative() bool {
	return a.Kind == KindNative
}

// Key is the storage prefix of the asset.
func (a Asset) Key() string {
	if a.IsNative() {
		return "NATIVE"
	}
	return "TOKEN:" + a.ID
}

func (a Asset) String() string {
	return a.Key()
}

// Validate checks the asset shape: native carries no identifier and
// fungible carries a non-null asset key.
func Validate(a Asset) error {
	switch a.Kind {
	case KindNative:
		if a.ID != "" {
			return ErrInvalidAsset
		}
		return nil
	case KindFungible:
		if _, err := crypto.DecodeTypedKey(a.ID, crypto.KeyTypeAsset); err != nil {
			return ErrInvalidAsset
		}
		return nil
	}
	return ErrInvalidAsset
}

// ValidateAccount checks that the account is a non-null account key.
func ValidateAccount(accountID string) error {
	if _, err := crypto.DecodeTypedKey(accountID, crypto.KeyTypeAccountID); err != nil {
		return ErrInvalidAccount
	}
	return nil
}
