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
	"github.com/spf13/cobra"

	"github.com/ultiledger/go-ultivault/log"
	"github.com/ultiledger/go-ultivault/node"
	"github.com/ultiledger/go-ultivault/scenario"
)

var logFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the series of scenarios.",
	Long: `Run the registered scenarios against a fresh in-memory ledger, or
against the ledger described by the config file if one is provided.`,
	Run: func(cmd *cobra.Command, args []string) {
		v, err := newViper()
		if err != nil {
			log.Fatalf("read config failed: %v", err)
		}
		v.SetDefault("network_id", "ultivault-scenario")
		v.SetDefault("addr", ":0")
		v.SetDefault("db_backend", "memdb")
		v.SetDefault("native_symbol", "ULT")
		v.SetDefault("native_decimals", 7)
		v.SetDefault("tokens", []map[string]interface{}{{"symbol": "USD", "decimals": 2}})
		v.SetDefault("log_file", logFile)

		c, err := node.NewConfig(v)
		if err != nil {
			log.Fatal(err)
		}
		n, err := node.NewNode(c)
		if err != nil {
			log.Fatalf("create node failed: %v", err)
		}
		defer n.Close()

		env := &scenario.Env{Ledger: n.Ledger(), Chain: n.Chain()}
		cases := scenario.GetAll()
		failed := 0
		for _, c := range cases {
			log.Infow("run the scenario", "desc", c.Desc())
			if err := c.Run(env); err != nil {
				failed++
				log.Errorw("scenario failed", "desc", c.Desc(), "err", err.Error())
			}
		}
		if err := scenario.CheckConservation(env); err != nil {
			failed++
			log.Errorw("conservation check failed", "err", err.Error())
		}
		log.Infof("finished all the %d scenarios, %d failed", len(cases), failed)
	},
}

func init() {
	runCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path of the config file")
	runCmd.Flags().StringVarP(&logFile, "log", "", "", "log file of the run")
	rootCmd.AddCommand(runCmd)
}
