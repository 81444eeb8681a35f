package service

import "github.com/ultiledger/go-ultivault/event"

// Amounts are decimal strings in asset units, e.g. "1.25".

type AccountRequest struct {
	Account string `json:"account" validate:"required"`
	Asset   string `json:"asset" validate:"required"`
}

type AmountRequest struct {
	Account string `json:"account" validate:"required"`
	Asset   string `json:"asset" validate:"required"`
	Amount  string `json:"amount" validate:"required,numeric"`
}

type TransferRequest struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required,nefield=From"`
	Asset  string `json:"asset" validate:"required"`
	Amount string `json:"amount" validate:"required,numeric"`
}

// PayRequest pays due out of paid in native value, the excess is
// refunded to the payer.
type PayRequest struct {
	Payer string `json:"payer" validate:"required"`
	Payee string `json:"payee" validate:"required"`
	Paid  string `json:"paid" validate:"required,numeric"`
	Due   string `json:"due" validate:"required,numeric"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
	// holdings outside the ledger
	Wallet string `json:"wallet"`
}

type AmountResponse struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
}

type SupplyResponse struct {
	Asset   string `json:"asset"`
	Inflow  string `json:"inflow"`
	Outflow string `json:"outflow"`
	Total   string `json:"total"`
}

type EventsResponse struct {
	Events []*event.Event `json:"events"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
