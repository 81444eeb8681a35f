package service

import (
	"errors"
	"net/http"

	"github.com/ultiledger/go-ultivault/asset"
	"github.com/ultiledger/go-ultivault/ledger"
	"github.com/ultiledger/go-ultivault/transfer/memchain"
)

// statusOf maps an error to the http status code of the response.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, asset.ErrAmountFormat),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidAccount),
		errors.Is(err, ledger.ErrInvalidAsset),
		errors.Is(err, ledger.ErrOverflow):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrReentrancyDetected):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrExternalTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, memchain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, memchain.ErrUnknownToken):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func failure(err error) (int, interface{}) {
	return statusOf(err), &ErrorResponse{Error: err.Error()}
}
