// Package service exposes the ledger over a JSON http api.
package service

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful"

	"github.com/ultiledger/go-ultivault/event"
	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/transfer/memchain"
)

// Context represents contextual information the service needs.
type Context struct {
	Ledger *ledger.Ledger
	// world the ledger moves value to and from
	Chain *memchain.Chain
	// runs the mutating requests one at a time
	Loop Dispatcher
	// optional, enables the events route
	Recorder *event.Recorder
	// number of idempotent replies kept, 1024 if zero
	ReplyCacheSize int
}

func ValidateContext(sc *Context) error {
	if sc == nil {
		return errors.New("service context is nil")
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

// NewHandler creates a customized http handler to the http server.
func NewHandler(sc *Context) (http.Handler, error) {
	vault, err := NewVault(sc)
	if err != nil {
		return nil, err
	}

	ws := new(restful.WebService)
	ws.Path("/ultivault").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.Route(ws.POST("/deposit").To(vault.idempotent(vault.Deposit)).Reads(AmountRequest{}))
	ws.Route(ws.POST("/withdraw").To(vault.idempotent(vault.Withdraw)).Reads(AmountRequest{}))
	ws.Route(ws.POST("/withdrawall").To(vault.idempotent(vault.WithdrawAll)).Reads(AccountRequest{}))
	ws.Route(ws.POST("/transfer").To(vault.idempotent(vault.Transfer)).Reads(TransferRequest{}))
	ws.Route(ws.POST("/pay").To(vault.idempotent(vault.Pay)).Reads(PayRequest{}))
	ws.Route(ws.POST("/faucet").To(vault.idempotent(vault.Faucet)).Reads(AmountRequest{}))
	ws.Route(ws.POST("/approve").To(vault.idempotent(vault.Approve)).Reads(AmountRequest{}))

	ws.Route(ws.GET("/balance").To(vault.Balance).
		Param(ws.QueryParameter("account", "account ID")).
		Param(ws.QueryParameter("asset", "asset symbol")))
	ws.Route(ws.GET("/supply").To(vault.Supply).
		Param(ws.QueryParameter("asset", "asset symbol")))
	if sc.Recorder != nil {
		ws.Route(ws.GET("/events").To(vault.Events))
	}

	container := restful.NewContainer()
	container.Add(ws)

	return container, nil
}
