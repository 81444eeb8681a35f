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

package node

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"

	"github.com/ultiledger/go-ultivault/account"
	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/db"
	_ "github.com/ultiledger/go-ultivault/db/boltdb"
	_ "github.com/ultiledger/go-ultivault/db/memdb"
	"github.com/ultiledger/go-ultivault/event"
	"github.com/ultiledger/go-ultivault/future"
	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/log"
	"github.com/ultiledger/go-ultivault/rpc"
	"github.com/ultiledger/go-ultivault/service"
	"github.com/ultiledger/go-ultivault/transfer"
	"github.com/ultiledger/go-ultivault/transfer/memchain"
)

// Node is the central controller for ultivault
type Node struct {
	config *Config

	database db.Database
	chainDB  db.Database
	am       *account.Manager
	registry *asset.Registry
	chain    *memchain.Chain
	ledger   *ledger.Ledger

	recorder *event.Recorder
	kafka    *event.KafkaPublisher

	// event loop serializing the requests to the ledger
	loop *future.Loop

	handler   http.Handler
	server    *http.Server
	rpcServer *rpc.LedgerServer

	// channel for stopping all the subroutines
	stopChan chan struct{}
}

// NewNode creates a Node with all the subsystems wired together.
func NewNode(conf *Config) (*Node, error) {
	err := log.Setup(log.Options{
		Path:    conf.LogFile,
		Console: conf.LogConsole,
		Debug:   conf.Debug,
		Fields:  []interface{}{"ledger", conf.LedgerID},
	})
	if err != nil {
		return nil, fmt.Errorf("setup log failed: %v", err)
	}

	// create database store
	database, err := db.Open(conf.DBBackend, conf.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database failed: %v", err)
	}
	// the chain keeps its wallets apart from the ledger, a ledger write
	// tx stays open across the calls into the chain
	chainDB, err := db.Open(conf.DBBackend, conf.ChainDBPath)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("open chain database failed: %v", err)
	}
	fail := func(err error) (*Node, error) {
		chainDB.Close()
		database.Close()
		return nil, err
	}

	am, err := account.NewManager(database, conf.CacheSize)
	if err != nil {
		return fail(fmt.Errorf("create account manager failed: %v", err))
	}

	registry := asset.NewRegistry(conf.LedgerID, conf.Native)
	chain, err := memchain.Open(conf.LedgerID, chainDB)
	if err != nil {
		return fail(fmt.Errorf("open chain failed: %v", err))
	}
	for _, t := range conf.Tokens {
		if err := registry.Register(t.ID, asset.Info{Symbol: t.Symbol, Decimals: t.Decimals}); err != nil {
			return fail(fmt.Errorf("register token %s failed: %v", t.Symbol, err))
		}
		if _, err := chain.DeployToken(t.ID); err != nil {
			return fail(fmt.Errorf("deploy token %s failed: %v", t.Symbol, err))
		}
		log.Infow("token registered", "symbol", t.Symbol, "id", t.ID)
	}

	recorder := event.NewRecorder()
	publishers := event.Multi{recorder}
	var kafka *event.KafkaPublisher
	if len(conf.KafkaBrokers) > 0 {
		kafka = event.NewKafkaPublisher(conf.KafkaBrokers, conf.KafkaTopic)
		publishers = append(publishers, kafka)
	}

	// ledger depends on account manager, registry and executor
	lc := &ledger.Context{
		Database:  database,
		AM:        am,
		Registry:  registry,
		Executor:  transfer.NewExecutor(conf.LedgerID, chain, chain),
		Publisher: publishers,
	}
	l, err := ledger.NewLedger(lc)
	if err != nil {
		return fail(fmt.Errorf("create ledger failed: %v", err))
	}

	loop := future.NewLoop()
	handler, err := service.NewHandler(&service.Context{
		Ledger:   l,
		Chain:    chain,
		Loop:     loop,
		Recorder: recorder,
	})
	if err != nil {
		return fail(fmt.Errorf("create http handler failed: %v", err))
	}

	rpcServer, err := rpc.NewLedgerServer(&rpc.ServerContext{
		NetworkID: hex.EncodeToString(conf.NetworkID[:]),
		Ledger:    l,
		Chain:     chain,
		Loop:      loop,
	})
	if err != nil {
		return fail(fmt.Errorf("create rpc server failed: %v", err))
	}

	n := &Node{
		config:    conf,
		database:  database,
		chainDB:   chainDB,
		am:        am,
		registry:  registry,
		chain:     chain,
		ledger:    l,
		recorder:  recorder,
		kafka:     kafka,
		loop:      loop,
		handler:   handler,
		rpcServer: rpcServer,
		stopChan:  make(chan struct{}),
	}
	loop.Start()
	log.Infow("node created", "db", conf.DBBackend, "addr", conf.Addr)

	return n, nil
}

func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

func (n *Node) Chain() *memchain.Chain {
	return n.chain
}

func (n *Node) Handler() http.Handler {
	return n.handler
}

// Start serves the http service, and the gRPC service if configured,
// then blocks until the node is stopped or a server fails.
func (n *Node) Start() error {
	n.server = &http.Server{
		Addr:    n.config.Addr,
		Handler: n.handler,
	}

	errChan := make(chan error, 2)
	go func() {
		log.Infof("start to serve http server on %s", n.config.Addr)
		if err := n.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("serve http failed: %v", err)
		}
	}()

	var s *grpc.Server
	if n.config.RPCAddr != "" {
		listener, err := net.Listen("tcp", n.config.RPCAddr)
		if err != nil {
			n.server.Close()
			return fmt.Errorf("listen on %s failed: %v", n.config.RPCAddr, err)
		}
		s = grpc.NewServer()
		rpc.RegisterLedgerServer(s, n.rpcServer)
		go func() {
			log.Infof("start to serve gRPC server on %s", n.config.RPCAddr)
			if err := s.Serve(listener); err != nil {
				errChan <- fmt.Errorf("serve gRPC failed: %v", err)
			}
		}()
	}

	var err error
	select {
	case err = <-errChan:
	case <-n.stopChan:
	}

	if s != nil {
		log.Infof("gracefully shutdown gRPC server")
		s.GracefulStop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("gracefully shutdown http server")
	if serr := n.server.Shutdown(ctx); serr != nil && err == nil {
		err = serr
	}
	return err
}

// Stop signals the server to shutdown and releases the resources.
func (n *Node) Stop() {
	close(n.stopChan)
}

// Close stops the event loop and releases the database and the
// event publishers.
func (n *Node) Close() error {
	n.loop.Stop()
	if n.kafka != nil {
		if err := n.kafka.Close(); err != nil {
			log.Errorf("close kafka publisher failed: %v", err)
		}
	}
	log.Sync()
	if err := n.chainDB.Close(); err != nil {
		log.Errorf("close chain database failed: %v", err)
	}
	return n.database.Close()
}
