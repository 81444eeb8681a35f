package crypto

import (
	"bytes"
	"encoding/binary"
	"errors"

	b58 "github.com/mr-tron/base58/base58"
)

type KeyType uint8

// enumeration of key type
const (
	_ KeyType = iota // skip zero
	KeyTypeAccountID
	KeyTypeSeed
	KeyTypeAsset
	KeyTypeLedger
)

var (
	ErrInvalidKey      = errors.New("invalid key string")
	ErrKeyTypeMismatch = errors.New("key type mismatch")
	ErrNullKey         = errors.New("null key")
)

// ULTKey is the internal key to represent various key hash,
// Code is for identifying the type of certain key hash.
type ULTKey struct {
	Code KeyType
	Hash [32]byte
}

// IsNull reports whether the key hash is all zeros.
func (k *ULTKey) IsNull() bool {
	return k.Hash == [32]byte{}
}

// decode base58 encoded key string to ULTKey
func DecodeKey(key string) (*ULTKey, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	b, err := b58.Decode(key)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(b) != 33 {
		return nil, ErrInvalidKey
	}

	var ultKey ULTKey
	r := bytes.NewReader(b)
	err = binary.Read(r, binary.BigEndian, &ultKey)
	if err != nil {
		return nil, ErrInvalidKey
	}

	switch ultKey.Code {
	case KeyTypeAccountID:
		fallthrough
	case KeyTypeSeed:
		fallthrough
	case KeyTypeAsset:
		fallthrough
	case KeyTypeLedger:
		return &ultKey, nil
	}
	return nil, ErrInvalidKey
}

// DecodeTypedKey decodes the key and checks that it is of the expected
// type and carries a non-null hash.
func DecodeTypedKey(key string, code KeyType) (*ULTKey, error) {
	k, err := DecodeKey(key)
	if err != nil {
		return nil, err
	}
	if k.Code != code {
		return nil, ErrKeyTypeMismatch
	}
	if k.IsNull() {
		return nil, ErrNullKey
	}
	return k, nil
}

// encode UTLKey to base58 encoded key string
func EncodeKey(ultKey *ULTKey) string {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, ultKey)
	return b58.Encode(buf.Bytes())
}

// check the validity of supplied key string
func IsValidKey(key string) bool {
	if _, err := DecodeKey(key); err != nil {
		return false
	}
	return true
}
