package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultiledger/go-ultivault/account"
	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/crypto"
	"github.com/ultiledger/go-ultivault/db/memdb"
	"github.com/ultiledger/go-ultivault/event"
	"github.com/ultiledger/go-ultivault/future"
	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/transfer"
	"github.com/ultiledger/go-ultivault/transfer/memchain"
)

type testServer struct {
	handler http.Handler
	ledger  *ledger.Ledger
	chain   *memchain.Chain
}

func newTestServer(t *testing.T) *testServer {
	ledgerID, _, err := crypto.GetLedgerKeypairFromSeed(sha256.Sum256([]byte("service test")))
	require.Nil(t, err)

	registry := asset.NewRegistry(ledgerID, asset.Info{Symbol: "ULT", Decimals: 2})
	tokenID := crypto.GetAssetIDFromSymbol(sha256.Sum256([]byte("service test")), "USD")
	require.Nil(t, registry.Register(tokenID, asset.Info{Symbol: "USD", Decimals: 0}))

	d := memdb.New()
	am, err := account.NewManager(d, 16)
	require.Nil(t, err)
	chain := memchain.New(ledgerID)
	_, err = chain.DeployToken(tokenID)
	require.Nil(t, err)

	recorder := event.NewRecorder()
	l, err := ledger.NewLedger(&ledger.Context{
		Database:  d,
		AM:        am,
		Registry:  registry,
		Executor:  transfer.NewExecutor(ledgerID, chain, chain),
		Publisher: recorder,
	})
	require.Nil(t, err)

	loop := future.NewLoop()
	loop.Start()
	t.Cleanup(loop.Stop)

	handler, err := NewHandler(&Context{Ledger: l, Chain: chain, Loop: loop, Recorder: recorder})
	require.Nil(t, err)
	return &testServer{handler: handler, ledger: l, chain: chain}
}

func (s *testServer) post(t *testing.T, path string, body interface{}, key string) *httptest.ResponseRecorder {
	b, err := json.Marshal(body)
	require.Nil(t, err)
	req := httptest.NewRequest(http.MethodPost, "/ultivault"+path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(t *testing.T, path string, query url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ultivault"+path+"?"+query.Encode(), nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.Nil(t, json.Unmarshal(w.Body.Bytes(), v))
}

func newAccount(t *testing.T) string {
	accountID, _, err := crypto.GetAccountKeypair()
	require.Nil(t, err)
	return accountID
}

func TestNativeFlow(t *testing.T) {
	s := newTestServer(t)
	alice := newAccount(t)

	w := s.post(t, "/faucet", AmountRequest{Account: alice, Asset: "ULT", Amount: "1"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.post(t, "/deposit", AmountRequest{Account: alice, Asset: "ULT", Amount: "1"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bal BalanceResponse
	decode(t, w, &bal)
	assert.Equal(t, "1", bal.Balance)
	assert.Equal(t, "0", bal.Wallet)

	w = s.post(t, "/withdraw", AmountRequest{Account: alice, Asset: "ULT", Amount: "0.4"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent AmountResponse
	decode(t, w, &sent)
	assert.Equal(t, "0.4", sent.Amount)

	w = s.post(t, "/withdraw", AmountRequest{Account: alice, Asset: "ULT", Amount: "1"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.post(t, "/withdrawall", AccountRequest{Account: alice, Asset: "ULT"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &sent)
	assert.Equal(t, "0.6", sent.Amount)

	w = s.get(t, "/balance", url.Values{"account": {alice}, "asset": {"ULT"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &bal)
	assert.Equal(t, "0", bal.Balance)
	assert.Equal(t, "1", bal.Wallet)

	w = s.get(t, "/supply", url.Values{"asset": {"ULT"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var supply SupplyResponse
	decode(t, w, &supply)
	assert.Equal(t, "1", supply.Inflow)
	assert.Equal(t, "1", supply.Outflow)
	assert.Equal(t, "0", supply.Total)

	w = s.get(t, "/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events EventsResponse
	decode(t, w, &events)
	assert.Equal(t, 3, len(events.Events))
}

func TestTokenFlow(t *testing.T) {
	s := newTestServer(t)
	alice := newAccount(t)
	bob := newAccount(t)

	w := s.post(t, "/faucet", AmountRequest{Account: alice, Asset: "USD", Amount: "100"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the pull needs an allowance
	w = s.post(t, "/deposit", AmountRequest{Account: alice, Asset: "USD", Amount: "60"}, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = s.post(t, "/approve", AmountRequest{Account: alice, Asset: "USD", Amount: "60"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.post(t, "/deposit", AmountRequest{Account: alice, Asset: "USD", Amount: "60"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.post(t, "/transfer", TransferRequest{From: alice, To: bob, Asset: "USD", Amount: "25"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var bal BalanceResponse
	decode(t, w, &bal)
	assert.Equal(t, "35", bal.Balance)
	assert.Equal(t, "40", bal.Wallet)

	w = s.get(t, "/balance", url.Values{"account": {bob}, "asset": {"USD"}})
	decode(t, w, &bal)
	assert.Equal(t, "25", bal.Balance)

	// fractional token units are rejected
	w = s.post(t, "/withdraw", AmountRequest{Account: bob, Asset: "USD", Amount: "0.5"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.post(t, "/approve", AmountRequest{Account: alice, Asset: "ULT", Amount: "1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayRoute(t *testing.T) {
	s := newTestServer(t)
	payer := newAccount(t)
	payee := newAccount(t)

	w := s.post(t, "/faucet", AmountRequest{Account: payer, Asset: "ULT", Amount: "5"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.post(t, "/pay", PayRequest{Payer: payer, Payee: payee, Paid: "5", Due: "3.5"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refund AmountResponse
	decode(t, w, &refund)
	assert.Equal(t, "1.5", refund.Amount)
	assert.Equal(t, uint64(350), s.ledger.BalanceOf(payee, asset.Native))
	assert.Equal(t, uint64(150), s.chain.NativeBalance(payer))

	w = s.post(t, "/pay", PayRequest{Payer: payer, Payee: payee, Paid: "1", Due: "1.5"}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, uint64(150), s.chain.NativeBalance(payer))
}

func TestIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	alice := newAccount(t)

	w := s.post(t, "/faucet", AmountRequest{Account: alice, Asset: "ULT", Amount: "10"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req := AmountRequest{Account: alice, Asset: "ULT", Amount: "2"}
	first := s.post(t, "/deposit", req, "key-1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := s.post(t, "/deposit", req, "key-1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, uint64(200), s.ledger.BalanceOf(alice, asset.Native))

	// a new key is a new request
	w = s.post(t, "/deposit", req, "key-2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(400), s.ledger.BalanceOf(alice, asset.Native))
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)
	alice := newAccount(t)

	w := s.post(t, "/deposit", AmountRequest{Account: alice, Asset: "ULT"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.post(t, "/deposit", AmountRequest{Account: alice, Asset: "ULT", Amount: "-1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.post(t, "/deposit", AmountRequest{Account: alice, Asset: "EUR", Amount: "1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.post(t, "/deposit", AmountRequest{Account: "nobody", Asset: "ULT", Amount: "0"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.post(t, "/transfer", TransferRequest{From: alice, To: alice, Asset: "ULT", Amount: "1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.post(t, "/faucet", AmountRequest{Account: s.ledger.ID(), Asset: "ULT", Amount: "1"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.get(t, "/balance", url.Values{"account": {"nobody"}, "asset": {"ULT"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	decode(t, w, &resp)
	assert.NotEmpty(t, resp.Error)
}
