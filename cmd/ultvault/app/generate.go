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

package app

import (
	"crypto/sha256"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ultiledger/go-ultivault/crypto"
	"github.com/ultiledger/go-ultivault/log"
)

var (
	networkID string
	symbol    string
)

var genaccountidCmd = &cobra.Command{
	Use:   "genaccountid",
	Short: "Generate a random keypair for an account",
	Long: `Generate a random keypair for an account, the keypair contains the crypto
seed and the public key. The public key is the ID for the account.`,
	Run: func(cmd *cobra.Command, args []string) {
		pub, seed, err := crypto.GetAccountKeypair()
		if err != nil {
			log.Fatalf("generate random account ID failed: %v", err)
		}
		fmt.Printf("AccountID: %s, Seed: %s\n", pub, seed)
	},
}

var genassetidCmd = &cobra.Command{
	Use:   "genassetid",
	Short: "Generate an identifier for a fungible token",
	Long: `Generate an identifier for a fungible token. With both --network_id
and --symbol the identifier is the one a node derives for a configured
token without an explicit id, otherwise it is random.`,
	Run: func(cmd *cobra.Command, args []string) {
		if networkID != "" && symbol != "" {
			id := crypto.GetAssetIDFromSymbol(sha256.Sum256([]byte(networkID)), symbol)
			fmt.Printf("AssetID: %s\n", id)
			return
		}
		id, err := crypto.GetAssetID()
		if err != nil {
			log.Fatalf("generate random asset ID failed: %v", err)
		}
		fmt.Printf("AssetID: %s\n", id)
	},
}

func init() {
	genassetidCmd.Flags().StringVarP(&networkID, "network_id", "", "", "network ID of the ledger")
	genassetidCmd.Flags().StringVarP(&symbol, "symbol", "", "", "symbol of the token")
	rootCmd.AddCommand(genaccountidCmd)
	rootCmd.AddCommand(genassetidCmd)
}
