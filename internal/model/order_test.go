package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tanbroker/internal/types"

	"github.com/shopspring/decimal"
)

func baseOrder() Order {
	return Order{
		DepotID:      "D-1",
		Side:         types.OrderSideBuy,
		InstrumentID: "I-1",
		OrderType:    types.OrderTypeMarket,
		Quantity:     Amount{Value: decimal.RequireFromString("10"), Unit: "XXX"},
	}
}

func TestOrder_Check(t *testing.T) {
	t.Parallel()

	limit := &Amount{Value: decimal.RequireFromString("101.25"), Unit: "EUR"}

	tests := []struct {
		name    string
		mutate  func(o *Order)
		wantErr error
	}{
		{name: "market", mutate: func(o *Order) {}},
		{name: "limit", mutate: func(o *Order) { o.OrderType = types.OrderTypeLimit; o.Limit = limit }},
		{name: "zero_quantity", mutate: func(o *Order) { o.Quantity.Value = decimal.Zero }, wantErr: ErrQuantityNotPositive},
		{name: "limit_missing", mutate: func(o *Order) { o.OrderType = types.OrderTypeStopLimit }, wantErr: ErrLimitRequired},
		{name: "negative_limit", mutate: func(o *Order) {
			o.OrderType = types.OrderTypeLimit
			o.Limit = &Amount{Value: decimal.RequireFromString("-1"), Unit: "EUR"}
		}, wantErr: ErrLimitNotPositive},
		{name: "gtd_without_date", mutate: func(o *Order) { o.ValidityType = types.ValidityGoodTilDate }, wantErr: ErrValidityDate},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			o := baseOrder()
			tt.mutate(&o)
			err := o.Check()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestOrder_WireShape(t *testing.T) {
	t.Parallel()

	o := baseOrder()
	o.OrderType = types.OrderTypeLimit
	o.Limit = &Amount{Value: decimal.RequireFromString("99.5"), Unit: "EUR"}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"depotId":"D-1"`, `"quantity":{"value":"10","unit":"XXX"}`, `"limit":{"value":"99.5","unit":"EUR"}`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %s in %s", want, got)
		}
	}
	if strings.Contains(got, "orderId") || strings.Contains(got, "venueId") || strings.Contains(got, "quoteId") {
		t.Fatalf("expected empty fields omitted: %s", got)
	}
}

func TestOrder_CheckPlacement(t *testing.T) {
	t.Parallel()

	o := baseOrder()
	o.OrderType = types.OrderTypeQuote
	if err := o.Check(); err != nil {
		t.Fatalf("expected quote request shape to pass Check, got %v", err)
	}
	if err := o.CheckPlacement(); !errors.Is(err, ErrQuoteIDRequired) {
		t.Fatalf("expected %v, got %v", ErrQuoteIDRequired, err)
	}
	id := "q-1"
	o.QuoteID = &id
	if err := o.CheckPlacement(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o.Quantity.Value = decimal.Zero
	if err := o.CheckPlacement(); !errors.Is(err, ErrQuantityNotPositive) {
		t.Fatalf("expected %v, got %v", ErrQuantityNotPositive, err)
	}
}

func TestOrder_QuoteIDRoundTrip(t *testing.T) {
	t.Parallel()

	body := `{"depotId":"D-1","side":"BUY","instrumentId":"I-1","orderType":"QUOTE","quantity":{"value":"3","unit":"XXC"},"quoteId":"q-77"}`
	var o Order
	if err := json.Unmarshal([]byte(body), &o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.QuoteID == nil || *o.QuoteID != "q-77" {
		t.Fatalf("expected quote id to be decoded, got %v", o.QuoteID)
	}
	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"quoteId":"q-77"`) {
		t.Fatalf("expected quote id on the wire: %s", data)
	}
}
