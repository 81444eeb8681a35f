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
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ultiledger/go-ultivault/log"
	"github.com/ultiledger/go-ultivault/node"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ledger node with config",
	Long: `Start a ultivault node with specified configuration, the node serves
the ledger over http until it receives an interrupt.`,
	Run: func(cmd *cobra.Command, args []string) {
		// read in config file
		if cfgFile == "" {
			log.Fatal(errors.New("config file not provided"))
		}
		v, err := newViper()
		if err != nil {
			log.Fatalf("read config failed: %v", err)
		}
		// init node config from viper
		c, err := node.NewConfig(v)
		if err != nil {
			log.Fatal(err)
		}
		n, err := node.NewNode(c)
		if err != nil {
			log.Fatalf("create node failed: %v", err)
		}
		defer n.Close()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigChan
			n.Stop()
		}()

		if err := n.Start(); err != nil {
			log.Errorf("node stopped: %v", err)
		}
	},
}

func init() {
	startCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path of the config file")
	startCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(startCmd)
}
