package model

import (
	"errors"

	"tanbroker/internal/types"

	"github.com/shopspring/decimal"
)

// Amount is a value/unit pair as the brokerage encodes quantities and prices.
type Amount struct {
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit" validate:"required"`
}

// Order is the payload for new orders and quote tickets. Amendments are not
// built from it; they are forwarded as the caller's document.
type Order struct {
	OrderID      string             `json:"orderId,omitempty"`
	DepotID      string             `json:"depotId" validate:"required"`
	Side         types.OrderSide    `json:"side" validate:"required,oneof=BUY SELL"`
	InstrumentID string             `json:"instrumentId" validate:"required"`
	OrderType    types.OrderType    `json:"orderType" validate:"required"`
	Quantity     Amount             `json:"quantity"`
	VenueID      string             `json:"venueId,omitempty"`
	Limit        *Amount            `json:"limit,omitempty"`
	TriggerLimit *Amount            `json:"triggerLimit,omitempty"`
	ValidityType types.ValidityType `json:"validityType,omitempty" validate:"omitempty,oneof=GFD GTD GTC"`
	Validity     string             `json:"validity,omitempty"`
	QuoteID      *string            `json:"quoteId,omitempty"`
}

var (
	ErrQuantityNotPositive = errors.New("quantity must be positive")
	ErrLimitRequired       = errors.New("limit required for order type")
	ErrLimitNotPositive    = errors.New("limit must be positive")
	ErrValidityDate        = errors.New("validity date required for GTD")
	ErrQuoteIDRequired     = errors.New("quote id required for QUOTE orders")
)

// Check covers the rules struct tags cannot express.
func (o Order) Check() error {
	if !o.Quantity.Value.IsPositive() {
		return ErrQuantityNotPositive
	}
	if o.OrderType.RequiresLimit() && o.Limit == nil {
		return ErrLimitRequired
	}
	if o.Limit != nil && !o.Limit.Value.IsPositive() {
		return ErrLimitNotPositive
	}
	if o.ValidityType == types.ValidityGoodTilDate && o.Validity == "" {
		return ErrValidityDate
	}
	return nil
}

// CheckPlacement adds the rules for an order about to be placed: a QUOTE
// order must reference the quote it executes.
func (o Order) CheckPlacement() error {
	if err := o.Check(); err != nil {
		return err
	}
	if o.OrderType == types.OrderTypeQuote && (o.QuoteID == nil || *o.QuoteID == "") {
		return ErrQuoteIDRequired
	}
	return nil
}
