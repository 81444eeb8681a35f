package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/emicklei/go-restful"
	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/event"
	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/log"
	"github.com/ultiledger/go-ultivault/transfer/memchain"
)

const IdempotencyHeader = "Idempotency-Key"

var errBadRequest = errors.New("bad request")

// handlerFunc processes a mutating request and returns the status
// code and the entity of the response.
type handlerFunc func(request *restful.Request) (int, interface{})

type reply struct {
	status int
	entity interface{}
}

// Dispatcher runs functions one at a time.
type Dispatcher interface {
	Dispatch(fn func() error) error
}

// Vault serves the ledger operations. Mutating requests are
// dispatched to run one at a time.
type Vault struct {
	ledger   *ledger.Ledger
	registry *asset.Registry
	chain    *memchain.Chain
	recorder *event.Recorder

	validate *validator.Validate
	loop     Dispatcher

	// replies of requests carrying an idempotency key
	replies *lru.Cache
}

func NewVault(sc *Context) (*Vault, error) {
	if err := ValidateContext(sc); err != nil {
		return nil, fmt.Errorf("service context is invalid: %v", err)
	}
	size := sc.ReplyCacheSize
	if size == 0 {
		size = 1024
	}
	replies, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create reply LRU cache failed: %v", err)
	}
	return &Vault{
		ledger:   sc.Ledger,
		registry: sc.Ledger.Registry(),
		chain:    sc.Chain,
		recorder: sc.Recorder,
		validate: validator.New(),
		loop:     sc.Loop,
		replies:  replies,
	}, nil
}

// idempotent dispatches the handler and replays the stored reply for
// a repeated idempotency key on the same route.
func (v *Vault) idempotent(fn handlerFunc) restful.RouteFunction {
	return func(request *restful.Request, response *restful.Response) {
		key := request.HeaderParameter(IdempotencyHeader)
		cacheKey := request.Request.URL.Path + "\x00" + key

		var (
			rep      reply
			replayed bool
		)
		err := v.loop.Dispatch(func() error {
			if key != "" {
				if r, ok := v.replies.Get(cacheKey); ok {
					rep = r.(reply)
					replayed = true
					return nil
				}
			}
			rep.status, rep.entity = fn(request)
			if key != "" {
				v.replies.Add(cacheKey, rep)
			}
			return nil
		})
		if err != nil {
			log.Errorf("dispatch request failed: %v", err)
			writeReply(response, http.StatusServiceUnavailable, &ErrorResponse{Error: err.Error()})
			return
		}
		if replayed {
			response.AddHeader("Idempotent-Replayed", "true")
		}
		writeReply(response, rep.status, rep.entity)
	}
}

func writeReply(response *restful.Response, status int, entity interface{}) {
	if err := response.WriteHeaderAndEntity(status, entity); err != nil {
		log.Errorf("write response failed: %v", err)
	}
}

func (v *Vault) read(request *restful.Request, entity interface{}) error {
	if err := request.ReadEntity(entity); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := v.validate.Struct(entity); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (v *Vault) asset(symbol string) (asset.Asset, error) {
	a, ok := v.registry.FindSymbol(symbol)
	if !ok {
		return asset.Asset{}, fmt.Errorf("%w: unknown symbol %s", asset.ErrInvalidAsset, symbol)
	}
	return a, nil
}

// assetAmount resolves the asset symbol and parses the amount in it.
func (v *Vault) assetAmount(symbol string, amount string) (asset.Asset, uint64, error) {
	a, err := v.asset(symbol)
	if err != nil {
		return a, 0, err
	}
	n, err := v.registry.ParseAmount(a, amount)
	if err != nil {
		return a, 0, err
	}
	return a, n, nil
}

func (v *Vault) format(a asset.Asset, amount uint64) string {
	s, err := v.registry.FormatAmount(a, amount)
	if err != nil {
		return fmt.Sprint(amount)
	}
	return s
}

// wallet returns the holdings of the account outside the ledger.
func (v *Vault) wallet(accountID string, a asset.Asset) uint64 {
	if a.IsNative() {
		return v.chain.NativeBalance(accountID)
	}
	contract, err := v.chain.Contract(a.ID)
	if err != nil {
		return 0
	}
	return contract.BalanceOf(accountID)
}

func (v *Vault) balance(accountID string, symbol string, a asset.Asset) *BalanceResponse {
	return &BalanceResponse{
		Account: accountID,
		Asset:   symbol,
		Balance: v.format(a, v.ledger.BalanceOf(accountID, a)),
		Wallet:  v.format(a, v.wallet(accountID, a)),
	}
}

// Deposit credits the account. Native value is paid from the account
// wallet along with the call, tokens are pulled with the allowance
// the account granted to the ledger.
func (v *Vault) Deposit(request *restful.Request) (int, interface{}) {
	var req AmountRequest
	if err := v.read(request, &req); err != nil {
		return failure(err)
	}
	a, amount, err := v.assetAmount(req.Asset, req.Amount)
	if err != nil {
		return failure(err)
	}

	ctx := request.Request.Context()
	if a.IsNative() {
		err = v.chain.Call(ctx, req.Account, amount, func(ctx context.Context) error {
			_, err := v.ledger.Deposit(ctx, req.Account, a, amount)
			return err
		})
	} else {
		_, err = v.ledger.Deposit(ctx, req.Account, a, amount)
	}
	if err != nil {
		return failure(err)
	}
	return http.StatusOK, v.balance(req.Account, req.Asset, a)
}

func (v *Vault) Withdraw(request *restful.Request) (int, interface{}) {
	var req AmountRequest
	if err := v.read(request, &req); err != nil {
		return failure(err)
	}
	a, amount, err := v.assetAmount(req.Asset, req.Amount)
	if err != nil {
		return failure(err)
	}
	sent, err := v.ledger.Withdraw(request.Request.Context(), req.Account, a, amount)
	if err != nil {
		return failure(err)
	}
	return http.StatusOK, &AmountResponse{Account: req.Account, Asset: req.Asset, Amount: v.format(a, sent)}
}

func (v *Vault) WithdrawAll(request *restful.Request) (int, interface{}) {
	var req AccountRequest
	if err := v.read(request, &req); err != nil {
		return failure(err)
	}
	a, err := v.asset(req.Asset)
	if err != nil {
		return failure(err)
	}
	sent, err := v.ledger.WithdrawAll(request.Request.Context(), req.Account, a)
	if err != nil {
		return failure(err)
	}
	return http.StatusOK, &AmountResponse{Account: req.Account, Asset: req.Asset, Amount: v.format(a, sent)}
}

func (v *Vault) Transfer(request *restful.Request) (int, interface{}) {
	var req TransferRequest
	if err := v.read(request, &req); err != nil {
		return failure(err)
	}
	a, amount, err := v.assetAmount(req.Asset, req.Amount)
	if err != nil {
		return failure(err)
	}
	if _, err := v.ledger.TransferInternal(request.Request.Context(), req.From, req.To, a, amount); err != nil {
		return failure(err)
	}
	return http.StatusOK, v.balance(req.From, req.Asset, a)
}

// Pay settles a native payment attached to the call and refunds the
// excess to the payer.
func (v *Vault) Pay(request *restful.Request) (int, interface{}) {
	var req PayRequest
	if err := v.read(request, &req); err != nil {
		return failure(err)
	}
	paid, err := v.registry.ParseAmount(asset.Native, req.Paid)
	if err != nil {
		return failure(err)
	}
	due, err := v.registry.ParseAmount(asset.Native, req.Due)
	if err != nil {
		return failure(err)
	}

	var refund uint64
	err = v.chain.Call(request.Request.Context(), req.Payer, paid, func(ctx context.Context) error {
		var err error
		refund, err = v.ledger.Pay(ctx, req.Payer, req.Payee, asset.Native, paid, due)
		return err
	})
	if err != nil {
		return failure(err)
	}
	info, _ := v.registry.Lookup(asset.Native)
	return http.StatusOK, &AmountResponse{Account: req.Payer, Asset: info.Symbol, Amount: v.format(asset.Native, refund)}
}

// Faucet mints value into the account wallet outside the ledger.
func (v *Vault) Faucet(request *restful.Request) (int, interface{}) {
	var req AmountRequest
	if err := v.read(request, &req); err != nil {
		return failure(err)
	}
	a, amount, err := v.assetAmount(req.Asset, req.Amount)
	if err != nil {
		return failure(err)
	}
	if err := v.registry.ValidateDestination(req.Account); err != nil {
		return failure(err)
	}

	if a.IsNative() {
		err = v.chain.Mint(req.Account, amount)
	} else {
		var contract *memchain.TokenContract
		contract, err = v.chain.Contract(a.ID)
		if err == nil {
			err = contract.Mint(req.Account, amount)
		}
	}
	if err != nil {
		return failure(err)
	}
	log.Infow("faucet minted", "account", req.Account, "asset", req.Asset, "amount", amount)
	return http.StatusOK, v.balance(req.Account, req.Asset, a)
}

// Approve lets the ledger pull up to amount of the account tokens.
func (v *Vault) Approve(request *restful.Request) (int, interface{}) {
	var req AmountRequest
	if err := v.read(request, &req); err != nil {
		return failure(err)
	}
	a, amount, err := v.assetAmount(req.Asset, req.Amount)
	if err != nil {
		return failure(err)
	}
	if a.IsNative() {
		return failure(fmt.Errorf("%w: native value needs no approval", asset.ErrInvalidAsset))
	}
	if err := v.registry.ValidateAccount(req.Account); err != nil {
		return failure(err)
	}
	contract, err := v.chain.Contract(a.ID)
	if err != nil {
		return failure(err)
	}
	if err := contract.Approve(req.Account, v.ledger.ID(), amount); err != nil {
		return failure(err)
	}
	return http.StatusOK, &AmountResponse{Account: req.Account, Asset: req.Asset, Amount: req.Amount}
}

// query runs a read on the loop, so it never observes the staged
// state of an operation in flight from another request.
func (v *Vault) query(response *restful.Response, fn handlerFunc, request *restful.Request) {
	var rep reply
	if err := v.loop.Dispatch(func() error {
		rep.status, rep.entity = fn(request)
		return nil
	}); err != nil {
		writeReply(response, http.StatusServiceUnavailable, &ErrorResponse{Error: err.Error()})
		return
	}
	writeReply(response, rep.status, rep.entity)
}

func (v *Vault) Balance(request *restful.Request, response *restful.Response) {
	v.query(response, v.getBalance, request)
}

func (v *Vault) getBalance(request *restful.Request) (int, interface{}) {
	accountID := request.QueryParameter("account")
	symbol := request.QueryParameter("asset")
	if err := v.registry.ValidateAccount(accountID); err != nil {
		return failure(err)
	}
	a, err := v.asset(symbol)
	if err != nil {
		return failure(err)
	}
	return http.StatusOK, v.balance(accountID, symbol, a)
}

func (v *Vault) Supply(request *restful.Request, response *restful.Response) {
	v.query(response, v.getSupply, request)
}

func (v *Vault) getSupply(request *restful.Request) (int, interface{}) {
	symbol := request.QueryParameter("asset")
	a, err := v.asset(symbol)
	if err != nil {
		return failure(err)
	}
	flow, err := v.ledger.Supply(a)
	if err != nil {
		return failure(err)
	}
	total, err := v.ledger.TotalBalance(a)
	if err != nil {
		return failure(err)
	}
	return http.StatusOK, &SupplyResponse{
		Asset:   symbol,
		Inflow:  v.format(a, flow.Inflow),
		Outflow: v.format(a, flow.Outflow),
		Total:   v.format(a, total),
	}
}

func (v *Vault) Events(request *restful.Request, response *restful.Response) {
	writeReply(response, http.StatusOK, &EventsResponse{Events: v.recorder.Events()})
}
