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

package rpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/log"
	"github.com/ultiledger/go-ultivault/transfer/memchain"
)

// Dispatcher runs functions one at a time.
type Dispatcher interface {
	Dispatch(fn func() error) error
}

// LedgerServer serves the ledger operations over gRPC. It holds no
// lock itself, every mutating request is dispatched to the loop
// driving the ledger.
type LedgerServer struct {
	networkID string // Hex of the network ID hash.

	ledger   *ledger.Ledger
	registry *asset.Registry
	chain    *memchain.Chain
	loop     Dispatcher
}

// ServerContext represents contextual information for running server.
type ServerContext struct {
	NetworkID string
	Ledger    *ledger.Ledger
	Chain     *memchain.Chain
	Loop      Dispatcher
}

func ValidateServerContext(sc *ServerContext) error {
	if sc == nil {
		return errors.New("server context is nil")
	}
	if sc.NetworkID == "" {
		return errors.New("empty network ID")
	}
	if sc.Ledger == nil {
		return errors.New("ledger is nil")
	}
	if sc.Chain == nil {
		return errors.New("chain is nil")
	}
	if sc.Loop == nil {
		return errors.New("dispatch loop is nil")
	}
	return nil
}

// NewLedgerServer creates a LedgerServer instance with server context.
func NewLedgerServer(sc *ServerContext) (*LedgerServer, error) {
	if err := ValidateServerContext(sc); err != nil {
		return nil, fmt.Errorf("validate server context failed: %v", err)
	}
	return &LedgerServer{
		networkID: sc.NetworkID,
		ledger:    sc.Ledger,
		registry:  sc.Ledger.Registry(),
		chain:     sc.Chain,
		loop:      sc.Loop,
	}, nil
}

// validate checks the network ID carried in the metadata.
func (s *LedgerServer) validate(ctx context.Context) error {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.InvalidArgument, "retrieve incoming context failed")
	}
	ids := md.Get(NetworkIDKey)
	if len(ids) == 0 || ids[0] != s.networkID {
		return status.Error(codes.InvalidArgument, "incompatible network id.")
	}
	return nil
}

func (s *LedgerServer) assetAmount(req *structpb.Struct, amountKey string) (asset.Asset, uint64, error) {
	a, err := s.asset(req)
	if err != nil {
		return a, 0, err
	}
	amount, err := s.registry.ParseAmount(a, field(req, amountKey))
	if err != nil {
		return a, 0, status.Errorf(codes.InvalidArgument, "parse amount failed: %v", err)
	}
	return a, amount, nil
}

func (s *LedgerServer) asset(req *structpb.Struct) (asset.Asset, error) {
	symbol := field(req, "asset")
	a, ok := s.registry.FindSymbol(symbol)
	if !ok {
		return a, status.Errorf(codes.InvalidArgument, "unknown asset %s", symbol)
	}
	return a, nil
}

func (s *LedgerServer) amountReply(a asset.Asset, key string, amount uint64) (*structpb.Struct, error) {
	v, err := s.registry.FormatAmount(a, amount)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "format amount failed: %v", err)
	}
	return structpb.NewStruct(map[string]interface{}{key: v})
}

// GetBalance returns the ledger balance of the account.
func (s *LedgerServer) GetBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.validate(ctx); err != nil {
		return nil, err
	}
	accountID := field(req, "account")
	if err := s.registry.ValidateAccount(accountID); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid account id")
	}
	a, err := s.asset(req)
	if err != nil {
		return nil, err
	}
	var balance uint64
	if err := s.loop.Dispatch(func() error {
		balance = s.ledger.BalanceOf(accountID, a)
		return nil
	}); err != nil {
		return nil, status.Errorf(codes.Unavailable, "query balance failed: %v", err)
	}
	return s.amountReply(a, "balance", balance)
}

// Deposit credits the account, native value is paid from the account
// wallet along with the call.
func (s *LedgerServer) Deposit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.validate(ctx); err != nil {
		return nil, err
	}
	accountID := field(req, "account")
	a, amount, err := s.assetAmount(req, "amount")
	if err != nil {
		return nil, err
	}

	var balance uint64
	err = s.loop.Dispatch(func() error {
		if !a.IsNative() {
			var err error
			balance, err = s.ledger.Deposit(ctx, accountID, a, amount)
			return err
		}
		return s.chain.Call(ctx, accountID, amount, func(ctx context.Context) error {
			var err error
			balance, err = s.ledger.Deposit(ctx, accountID, a, amount)
			return err
		})
	})
	if err != nil {
		return nil, statusOf("deposit", err)
	}
	return s.amountReply(a, "balance", balance)
}

func (s *LedgerServer) Withdraw(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.validate(ctx); err != nil {
		return nil, err
	}
	accountID := field(req, "account")
	a, amount, err := s.assetAmount(req, "amount")
	if err != nil {
		return nil, err
	}

	var sent uint64
	err = s.loop.Dispatch(func() error {
		var err error
		sent, err = s.ledger.Withdraw(ctx, accountID, a, amount)
		return err
	})
	if err != nil {
		return nil, statusOf("withdraw", err)
	}
	return s.amountReply(a, "sent", sent)
}

func (s *LedgerServer) WithdrawAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.validate(ctx); err != nil {
		return nil, err
	}
	accountID := field(req, "account")
	a, err := s.asset(req)
	if err != nil {
		return nil, err
	}

	var sent uint64
	err = s.loop.Dispatch(func() error {
		var err error
		sent, err = s.ledger.WithdrawAll(ctx, accountID, a)
		return err
	})
	if err != nil {
		return nil, statusOf("withdraw all", err)
	}
	return s.amountReply(a, "sent", sent)
}

func (s *LedgerServer) Transfer(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.validate(ctx); err != nil {
		return nil, err
	}
	from := field(req, "from")
	to := field(req, "to")
	a, amount, err := s.assetAmount(req, "amount")
	if err != nil {
		return nil, err
	}

	var balance uint64
	err = s.loop.Dispatch(func() error {
		if _, err := s.ledger.TransferInternal(ctx, from, to, a, amount); err != nil {
			return err
		}
		balance = s.ledger.BalanceOf(from, a)
		return nil
	})
	if err != nil {
		return nil, statusOf("transfer", err)
	}
	return s.amountReply(a, "balance", balance)
}

func field(req *structpb.Struct, key string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[key].GetStringValue()
}

// statusOf maps a ledger error to the gRPC status.
func statusOf(op string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidAccount),
		errors.Is(err, ledger.ErrInvalidAsset),
		errors.Is(err, ledger.ErrOverflow):
		code = codes.InvalidArgument
	case errors.Is(err, ledger.ErrReentrancyDetected):
		code = codes.Aborted
	case errors.Is(err, ledger.ErrExternalTransferFailed):
		code = codes.Unavailable
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, memchain.ErrInsufficientFunds):
		code = codes.FailedPrecondition
	}
	if code == codes.Internal {
		log.Errorw("rpc request failed", "op", op, "err", err)
	}
	return status.Errorf(code, "%s failed: %v", op, err)
}
