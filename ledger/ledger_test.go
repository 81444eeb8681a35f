package ledger

import (
	"context"
	"crypto/sha256"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultiledger/go-ultivault/account"
	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/crypto"
	"github.com/ultiledger/go-ultivault/db/memdb"
	"github.com/ultiledger/go-ultivault/event"
	"github.com/ultiledger/go-ultivault/transfer"
	"github.com/ultiledger/go-ultivault/transfer/memchain"
)

type testEnv struct {
	ledger   *Ledger
	chain    *memchain.Chain
	token    *memchain.TokenContract
	tokenID  string
	recorder *event.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvPublishing(t, nil)
}

// newTestEnvPublishing sends the events to the publisher besides the
// recorder of the environment.
func newTestEnvPublishing(t *testing.T, p event.Publisher) *testEnv {
	ledgerID, _, err := crypto.GetLedgerKeypairFromSeed(sha256.Sum256([]byte("ledger test")))
	require.Nil(t, err)

	registry := asset.NewRegistry(ledgerID, asset.Info{Symbol: "ULT", Decimals: 7})
	tokenID, err := crypto.GetAssetID()
	require.Nil(t, err)
	require.Nil(t, registry.Register(tokenID, asset.Info{Symbol: "USD", Decimals: 2}))

	d := memdb.New()
	am, err := account.NewManager(d, 16)
	require.Nil(t, err)

	chain := memchain.New(ledgerID)
	token, err := chain.DeployToken(tokenID)
	require.Nil(t, err)

	recorder := event.NewRecorder()
	publishers := event.Multi{recorder}
	if p != nil {
		publishers = append(publishers, p)
	}
	l, err := NewLedger(&Context{
		Database:  d,
		AM:        am,
		Registry:  registry,
		Executor:  transfer.NewExecutor(ledgerID, chain, chain),
		Publisher: publishers,
	})
	require.Nil(t, err)

	return &testEnv{ledger: l, chain: chain, token: token, tokenID: tokenID, recorder: recorder}
}

func newAccount(t *testing.T) string {
	accountID, _, err := crypto.GetAccountKeypair()
	require.Nil(t, err)
	return accountID
}

// depositNative pays the value into custody along with the deposit call.
func (e *testEnv) depositNative(t *testing.T, accountID string, amount uint64) {
	require.Nil(t, e.chain.Mint(accountID, amount))
	err := e.chain.Call(context.Background(), accountID, amount, func(ctx context.Context) error {
		_, err := e.ledger.Deposit(ctx, accountID, asset.Native, amount)
		return err
	})
	require.Nil(t, err)
}

func (e *testEnv) assertConserved(t *testing.T, a asset.Asset, custody uint64) {
	total, err := e.ledger.TotalBalance(a)
	require.Nil(t, err)
	supply, err := e.ledger.Supply(a)
	require.Nil(t, err)
	assert.Equal(t, supply.Net(), total)
	assert.Equal(t, custody, total)
}

func TestNewLedger(t *testing.T) {
	_, err := NewLedger(nil)
	assert.NotNil(t, err)

	_, err = NewLedger(&Context{})
	assert.NotNil(t, err)
}

func TestWithdrawScenario(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)

	e.depositNative(t, alice, 100)
	assert.Equal(t, uint64(100), e.ledger.BalanceOf(alice, asset.Native))

	sent, err := e.ledger.Withdraw(ctx, alice, asset.Native, 40)
	require.Nil(t, err)
	assert.Equal(t, uint64(40), sent)
	assert.Equal(t, uint64(60), e.ledger.BalanceOf(alice, asset.Native))
	assert.Equal(t, uint64(40), e.chain.NativeBalance(alice))

	_, err = e.ledger.Withdraw(ctx, alice, asset.Native, 100)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	assert.Equal(t, uint64(60), e.ledger.BalanceOf(alice, asset.Native))

	sent, err = e.ledger.WithdrawAll(ctx, alice, asset.Native)
	require.Nil(t, err)
	assert.Equal(t, uint64(60), sent)
	assert.Equal(t, uint64(0), e.ledger.BalanceOf(alice, asset.Native))
	assert.Equal(t, uint64(100), e.chain.NativeBalance(alice))

	supply, err := e.ledger.Supply(asset.Native)
	require.Nil(t, err)
	assert.Equal(t, Flow{Inflow: 100, Outflow: 100}, supply)
	e.assertConserved(t, asset.Native, e.chain.NativeBalance(e.ledger.ID()))
}

func TestInvalidRequests(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	e.depositNative(t, alice, 10)

	_, err := e.ledger.Deposit(ctx, alice, asset.Native, 0)
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = e.ledger.Withdraw(ctx, alice, asset.Native, 0)
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = e.ledger.Deposit(ctx, "", asset.Native, 1)
	assert.True(t, errors.Is(err, ErrInvalidAccount))

	_, err = e.ledger.Withdraw(ctx, e.tokenID, asset.Native, 1)
	assert.True(t, errors.Is(err, ErrInvalidAccount))

	unknown, err := crypto.GetAssetID()
	require.Nil(t, err)
	_, err = e.ledger.Deposit(ctx, alice, asset.Token(unknown), 1)
	assert.True(t, errors.Is(err, ErrInvalidAsset))

	_, err = e.ledger.TransferInternal(ctx, alice, e.ledger.ID(), asset.Native, 1)
	assert.True(t, errors.Is(err, ErrInvalidAccount))

	_, err = e.ledger.TransferInternal(ctx, alice, newAccount(t), asset.Native, 0)
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = e.ledger.WithdrawAll(ctx, newAccount(t), asset.Native)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpWithdrawAll, opErr.Op)
	assert.Equal(t, asset.Native, opErr.Asset)

	// nothing moved
	assert.Equal(t, uint64(10), e.ledger.BalanceOf(alice, asset.Native))
	e.assertConserved(t, asset.Native, 10)
}

func TestDepositOverflow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	bob := newAccount(t)

	_, err := e.ledger.Deposit(ctx, alice, asset.Native, math.MaxUint64)
	require.Nil(t, err)

	_, err = e.ledger.Deposit(ctx, alice, asset.Native, 1)
	assert.True(t, errors.Is(err, ErrOverflow))

	// the custody total is bounded too
	_, err = e.ledger.Deposit(ctx, bob, asset.Native, 1)
	assert.True(t, errors.Is(err, ErrOverflow))

	assert.Equal(t, uint64(math.MaxUint64), e.ledger.BalanceOf(alice, asset.Native))
	assert.Equal(t, uint64(0), e.ledger.BalanceOf(bob, asset.Native))
}

func TestWithdrawRejected(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	e.depositNative(t, alice, 100)

	e.chain.SetReceiver(alice, func(ctx context.Context, from string, amount uint64) (bool, []byte) {
		return false, []byte("rejected")
	})

	_, err := e.ledger.Withdraw(ctx, alice, asset.Native, 40)
	assert.True(t, errors.Is(err, ErrExternalTransferFailed))
	var transferErr *transfer.TransferError
	require.True(t, errors.As(err, &transferErr))
	assert.Equal(t, []byte("rejected"), transferErr.Data)

	_, err = e.ledger.WithdrawAll(ctx, alice, asset.Native)
	assert.True(t, errors.Is(err, ErrExternalTransferFailed))

	assert.Equal(t, uint64(100), e.ledger.BalanceOf(alice, asset.Native))
	assert.Equal(t, uint64(0), e.chain.NativeBalance(alice))
	e.assertConserved(t, asset.Native, e.chain.NativeBalance(e.ledger.ID()))

	// events only for the deposit
	assert.Equal(t, 1, len(e.recorder.Events()))
}

func TestTokenDepositAndWithdraw(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	usd := asset.Token(e.tokenID)

	require.Nil(t, e.token.Mint(alice, 500))

	// no allowance, nothing is credited
	_, err := e.ledger.Deposit(ctx, alice, usd, 200)
	assert.True(t, errors.Is(err, ErrExternalTransferFailed))
	assert.True(t, errors.Is(err, memchain.ErrAllowanceExceeded))
	assert.Equal(t, uint64(0), e.ledger.BalanceOf(alice, usd))

	require.Nil(t, e.token.Approve(alice, e.ledger.ID(), 300))
	balance, err := e.ledger.Deposit(ctx, alice, usd, 200)
	require.Nil(t, err)
	assert.Equal(t, uint64(200), balance)
	assert.Equal(t, uint64(300), e.token.BalanceOf(alice))
	assert.Equal(t, uint64(200), e.token.BalanceOf(e.ledger.ID()))

	// a false success is a failure
	e.token.SetFalseSuccess(true)
	_, err = e.ledger.Withdraw(ctx, alice, usd, 50)
	assert.True(t, errors.Is(err, ErrExternalTransferFailed))
	_, err = e.ledger.Deposit(ctx, alice, usd, 50)
	assert.True(t, errors.Is(err, ErrExternalTransferFailed))
	assert.Equal(t, uint64(200), e.ledger.BalanceOf(alice, usd))
	e.token.SetFalseSuccess(false)

	sent, err := e.ledger.Withdraw(ctx, alice, usd, 50)
	require.Nil(t, err)
	assert.Equal(t, uint64(50), sent)
	assert.Equal(t, uint64(150), e.ledger.BalanceOf(alice, usd))
	assert.Equal(t, uint64(350), e.token.BalanceOf(alice))

	e.assertConserved(t, usd, e.token.BalanceOf(e.ledger.ID()))
	// native book is untouched
	e.assertConserved(t, asset.Native, 0)
}

func TestNativeReentrancy(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	bob := newAccount(t)
	e.depositNative(t, alice, 100)

	var (
		innerErrs    []error
		innerBalance uint64
	)
	e.chain.SetReceiver(alice, func(ctx context.Context, from string, amount uint64) (bool, []byte) {
		innerBalance = e.ledger.BalanceOf(alice, asset.Native)
		_, err := e.ledger.Withdraw(ctx, alice, asset.Native, 40)
		innerErrs = append(innerErrs, err)
		_, err = e.ledger.WithdrawAll(ctx, alice, asset.Native)
		innerErrs = append(innerErrs, err)
		_, err = e.ledger.TransferInternal(ctx, alice, bob, asset.Native, 10)
		innerErrs = append(innerErrs, err)
		_, err = e.ledger.Deposit(ctx, alice, asset.Native, 10)
		innerErrs = append(innerErrs, err)
		return true, nil
	})

	sent, err := e.ledger.Withdraw(ctx, alice, asset.Native, 40)
	require.Nil(t, err)
	assert.Equal(t, uint64(40), sent)

	// the reentrant read sees the debit already applied
	assert.Equal(t, uint64(60), innerBalance)
	require.Equal(t, 4, len(innerErrs))
	for _, err := range innerErrs {
		assert.True(t, errors.Is(err, ErrReentrancyDetected))
	}

	// only the outer debit committed
	assert.Equal(t, uint64(60), e.ledger.BalanceOf(alice, asset.Native))
	assert.Equal(t, uint64(0), e.ledger.BalanceOf(bob, asset.Native))
	assert.Equal(t, uint64(40), e.chain.NativeBalance(alice))
	e.assertConserved(t, asset.Native, e.chain.NativeBalance(e.ledger.ID()))
}

func TestTokenReentrancy(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	usd := asset.Token(e.tokenID)

	require.Nil(t, e.token.Mint(alice, 100))
	require.Nil(t, e.token.Approve(alice, e.ledger.ID(), 100))
	_, err := e.ledger.Deposit(ctx, alice, usd, 100)
	require.Nil(t, err)

	var innerErr error
	e.token.SetHook(func(ctx context.Context, from string, to string, amount uint64) {
		_, innerErr = e.ledger.Withdraw(ctx, alice, usd, 30)
	})

	_, err = e.ledger.Withdraw(ctx, alice, usd, 30)
	require.Nil(t, err)
	assert.True(t, errors.Is(innerErr, ErrReentrancyDetected))

	assert.Equal(t, uint64(70), e.ledger.BalanceOf(alice, usd))
	assert.Equal(t, uint64(30), e.token.BalanceOf(alice))
	e.assertConserved(t, usd, e.token.BalanceOf(e.ledger.ID()))
}

func TestTokenDepositReentrancy(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	bob := newAccount(t)
	usd := asset.Token(e.tokenID)

	require.Nil(t, e.token.Mint(alice, 100))
	require.Nil(t, e.token.Approve(alice, e.ledger.ID(), 100))

	var innerErrs []error
	e.token.SetHook(func(ctx context.Context, from string, to string, amount uint64) {
		_, err := e.ledger.Deposit(ctx, alice, usd, 50)
		innerErrs = append(innerErrs, err)
		_, err = e.ledger.Withdraw(ctx, alice, usd, 10)
		innerErrs = append(innerErrs, err)
		_, err = e.ledger.TransferInternal(ctx, alice, bob, usd, 10)
		innerErrs = append(innerErrs, err)
	})

	balance, err := e.ledger.Deposit(ctx, alice, usd, 50)
	require.Nil(t, err)
	assert.Equal(t, uint64(50), balance)
	require.Equal(t, 3, len(innerErrs))
	for _, err := range innerErrs {
		assert.True(t, errors.Is(err, ErrReentrancyDetected))
	}

	// only the outer credit committed
	assert.Equal(t, uint64(50), e.ledger.BalanceOf(alice, usd))
	assert.Equal(t, uint64(0), e.ledger.BalanceOf(bob, usd))
	assert.Equal(t, uint64(50), e.token.BalanceOf(alice))
	assert.Equal(t, uint64(50), e.token.Allowance(alice, e.ledger.ID()))
	e.assertConserved(t, usd, e.token.BalanceOf(e.ledger.ID()))
	require.Equal(t, 1, len(e.recorder.Events()))
}

func TestGuardReleasedOnPanic(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	e.depositNative(t, alice, 100)

	e.chain.SetReceiver(alice, func(ctx context.Context, from string, amount uint64) (bool, []byte) {
		panic("receiver crashed")
	})
	assert.Panics(t, func() {
		e.ledger.Withdraw(ctx, alice, asset.Native, 10)
	})
	assert.Equal(t, uint64(100), e.ledger.BalanceOf(alice, asset.Native))

	e.chain.SetReceiver(alice, nil)
	_, err := e.ledger.Withdraw(ctx, alice, asset.Native, 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(90), e.ledger.BalanceOf(alice, asset.Native))
}

func TestTransferInternal(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	bob := newAccount(t)
	e.depositNative(t, alice, 100)

	ok, err := e.ledger.TransferInternal(ctx, alice, bob, asset.Native, 30)
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(70), e.ledger.BalanceOf(alice, asset.Native))
	assert.Equal(t, uint64(30), e.ledger.BalanceOf(bob, asset.Native))

	ok, err = e.ledger.TransferInternal(ctx, bob, alice, asset.Native, 31)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))

	// self transfer leaves the balance as it is
	ok, err = e.ledger.TransferInternal(ctx, alice, alice, asset.Native, 70)
	require.Nil(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(70), e.ledger.BalanceOf(alice, asset.Native))

	_, err = e.ledger.TransferInternal(ctx, alice, alice, asset.Native, 71)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))

	// internal transfers never touch the custody
	assert.Equal(t, uint64(100), e.chain.NativeBalance(e.ledger.ID()))
	e.assertConserved(t, asset.Native, 100)
}

func TestTransferInternalOverflow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	bob := newAccount(t)
	e.depositNative(t, alice, 100)

	// seed a destination balance no deposit could reach
	require.Nil(t, e.ledger.am.SaveBalance(e.ledger.database, bob, asset.Native, math.MaxUint64))

	ok, err := e.ledger.TransferInternal(ctx, alice, bob, asset.Native, 1)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrOverflow))
	assert.Equal(t, uint64(100), e.ledger.BalanceOf(alice, asset.Native))
	assert.Equal(t, uint64(math.MaxUint64), e.ledger.BalanceOf(bob, asset.Native))
	assert.Equal(t, 1, len(e.recorder.Events()))
	assert.False(t, e.ledger.guard.Locked())
}

func TestPay(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	payer := newAccount(t)
	payee := newAccount(t)
	require.Nil(t, e.chain.Mint(payer, 100))

	var refund uint64
	err := e.chain.Call(ctx, payer, 100, func(ctx context.Context) error {
		var err error
		refund, err = e.ledger.Pay(ctx, payer, payee, asset.Native, 100, 70)
		return err
	})
	require.Nil(t, err)
	assert.Equal(t, uint64(30), refund)
	assert.Equal(t, uint64(70), e.ledger.BalanceOf(payee, asset.Native))
	assert.Equal(t, uint64(0), e.ledger.BalanceOf(payer, asset.Native))
	assert.Equal(t, uint64(30), e.chain.NativeBalance(payer))

	supply, err := e.ledger.Supply(asset.Native)
	require.Nil(t, err)
	assert.Equal(t, Flow{Inflow: 100, Outflow: 30}, supply)
	e.assertConserved(t, asset.Native, e.chain.NativeBalance(e.ledger.ID()))

	// exact payment, no refund
	err = e.chain.Call(ctx, payer, 30, func(ctx context.Context) error {
		refund, err = e.ledger.Pay(ctx, payer, payee, asset.Native, 30, 30)
		return err
	})
	require.Nil(t, err)
	assert.Equal(t, uint64(0), refund)
	assert.Equal(t, uint64(100), e.ledger.BalanceOf(payee, asset.Native))
}

func TestPayRefundFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	payer := newAccount(t)
	payee := newAccount(t)
	require.Nil(t, e.chain.Mint(payer, 100))

	e.chain.SetReceiver(payer, func(ctx context.Context, from string, amount uint64) (bool, []byte) {
		return false, nil
	})
	err := e.chain.Call(ctx, payer, 100, func(ctx context.Context) error {
		_, err := e.ledger.Pay(ctx, payer, payee, asset.Native, 100, 70)
		return err
	})
	assert.True(t, errors.Is(err, ErrExternalTransferFailed))

	// the whole payment is aborted and the attached value returned
	assert.Equal(t, uint64(0), e.ledger.BalanceOf(payee, asset.Native))
	assert.Equal(t, uint64(100), e.chain.NativeBalance(payer))
	e.assertConserved(t, asset.Native, 0)
	assert.Equal(t, 0, len(e.recorder.Events()))
}

func TestPayInvalid(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	payer := newAccount(t)
	payee := newAccount(t)

	_, err := e.ledger.Pay(ctx, payer, payee, asset.Native, 50, 70)
	assert.True(t, errors.Is(err, ErrInsufficientBalance))

	_, err = e.ledger.Pay(ctx, payer, payee, asset.Native, 50, 0)
	assert.True(t, errors.Is(err, ErrInvalidAmount))

	_, err = e.ledger.Pay(ctx, payer, payee, asset.Token(e.tokenID), 50, 10)
	assert.True(t, errors.Is(err, ErrInvalidAsset))

	_, err = e.ledger.Pay(ctx, payer, e.ledger.ID(), asset.Native, 50, 10)
	assert.True(t, errors.Is(err, ErrInvalidAccount))
}

func TestEvents(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	alice := newAccount(t)
	bob := newAccount(t)

	e.depositNative(t, alice, 100)
	_, err := e.ledger.TransferInternal(ctx, alice, bob, asset.Native, 25)
	require.Nil(t, err)
	_, err = e.ledger.Withdraw(ctx, bob, asset.Native, 5)
	require.Nil(t, err)

	events := e.recorder.Events()
	require.Equal(t, 3, len(events))

	assert.Equal(t, event.Deposited, events[0].Kind)
	assert.Equal(t, alice, events[0].Account)
	assert.Equal(t, uint64(100), events[0].Balance)

	assert.Equal(t, event.Transferred, events[1].Kind)
	assert.Equal(t, bob, events[1].Counterparty)
	assert.Equal(t, uint64(75), events[1].Balance)
	assert.Equal(t, uint64(25), events[1].CounterpartyBalance)

	assert.Equal(t, event.Withdrawn, events[2].Kind)
	assert.Equal(t, bob, events[2].Account)
	assert.Equal(t, uint64(5), events[2].Amount)
	assert.Equal(t, uint64(20), events[2].Balance)

	for _, ev := range events {
		assert.Equal(t, e.ledger.ID(), ev.LedgerID)
		assert.NotEmpty(t, ev.ID)
	}
}

func TestConservation(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	accounts := []string{newAccount(t), newAccount(t), newAccount(t)}

	for i, acc := range accounts {
		e.depositNative(t, acc, uint64(100*(i+1)))
	}
	for i := 0; i < 20; i++ {
		from := accounts[i%3]
		to := accounts[(i+1)%3]
		e.ledger.TransferInternal(ctx, from, to, asset.Native, uint64(7*i+1))
		e.ledger.Withdraw(ctx, to, asset.Native, uint64(i))
		e.assertConserved(t, asset.Native, e.chain.NativeBalance(e.ledger.ID()))
	}

	var outside uint64
	for _, acc := range accounts {
		outside += e.chain.NativeBalance(acc)
	}
	total, err := e.ledger.TotalBalance(asset.Native)
	require.Nil(t, err)
	assert.Equal(t, uint64(600), outside+total)
}

// strictPublisher drops the events published with a done context.
type strictPublisher struct {
	events    []*event.Event
	deadlines int
}

func (p *strictPublisher) Publish(ctx context.Context, ev *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); ok {
		p.deadlines++
	}
	p.events = append(p.events, ev)
	return nil
}

func TestEventsOutliveCallerContext(t *testing.T) {
	p := &strictPublisher{}
	e := newTestEnvPublishing(t, p)
	alice := newAccount(t)
	e.depositNative(t, alice, 100)

	// the caller goes away while the value is on its way
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.chain.SetReceiver(alice, func(ctx context.Context, from string, amount uint64) (bool, []byte) {
		cancel()
		return true, nil
	})

	_, err := e.ledger.Withdraw(ctx, alice, asset.Native, 50)
	require.Nil(t, err)
	assert.Equal(t, uint64(50), e.ledger.BalanceOf(alice, asset.Native))

	require.Equal(t, 2, len(p.events))
	assert.Equal(t, event.Deposited, p.events[0].Kind)
	assert.Equal(t, event.Withdrawn, p.events[1].Kind)
	assert.Equal(t, 2, p.deadlines)
}
