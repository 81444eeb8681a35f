// Copyright 2019 The go-ultiledger Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crypto

import (
	"crypto/rand"
	"errors"
	"io"

	"golang.org/x/crypto/ed25519"
)

// Generate a keypair of the given public key type with ed25519 crypto
// algorithm, since we can always reconstruct the true private key using
// the same seed, we use the randomly generated seed as a equivalent
// private key.
func keypair(code KeyType) (string, string, error) {
	var seed [32]byte
	_, err := io.ReadFull(rand.Reader, seed[:])
	if err != nil {
		return "", "", err
	}
	return keypairFromSeed(code, seed)
}

func keypairFromSeed(code KeyType, seed [32]byte) (string, string, error) {
	privateKey := ed25519.NewKeyFromSeed(seed[:])
	publicKey := privateKey.Public().(ed25519.PublicKey)

	var pk [32]byte
	copy(pk[:], publicKey)
	pub := &ULTKey{Code: code, Hash: pk}
	sd := &ULTKey{Code: KeyTypeSeed, Hash: seed}

	return EncodeKey(pub), EncodeKey(sd), nil
}

// Randomly generate a pair of account public and private key.
func GetAccountKeypair() (string, string, error) {
	// privateKey is actually the seed used to generate the keypair
	return keypair(KeyTypeAccountID)
}

// Generate account keypair from provided seed.
func GetAccountKeypairFromSeed(seed []byte) (string, string, error) {
	if len(seed) != 32 {
		return "", "", errors.New("Invalid seed, byte length is not 32")
	}
	var sd [32]byte
	copy(sd[:], seed)
	return keypairFromSeed(KeyTypeAccountID, sd)
}

// Generate the ledger identity from the network ID hash. The ledger
// identity is the custodian of every deposited asset and is never a
// valid transfer destination.
func GetLedgerKeypairFromSeed(seed [32]byte) (string, string, error) {
	return keypairFromSeed(KeyTypeLedger, seed)
}

// Randomly generate an identifier for a fungible token asset.
func GetAssetID() (string, error) {
	var h [32]byte
	_, err := io.ReadFull(rand.Reader, h[:])
	if err != nil {
		return "", err
	}
	return EncodeKey(&ULTKey{Code: KeyTypeAsset, Hash: h}), nil
}

// Derive a deterministic asset identifier from the asset symbol and
// the network it lives in.
func GetAssetIDFromSymbol(networkID [32]byte, symbol string) string {
	b := append(networkID[:], []byte(symbol)...)
	return EncodeKey(&ULTKey{Code: KeyTypeAsset, Hash: SHA256HashBytes(b)})
}
