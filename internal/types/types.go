package types

type OrderSide string

type OrderType string

type ValidityType string

type ActionStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket             OrderType = "MARKET"
	OrderTypeLimit              OrderType = "LIMIT"
	OrderTypeQuote              OrderType = "QUOTE"
	OrderTypeStopMarket         OrderType = "STOP_MARKET"
	OrderTypeStopLimit          OrderType = "STOP_LIMIT"
	OrderTypeTrailingStopMarket OrderType = "TRAILING_STOP_MARKET"
	OrderTypeTrailingStopLimit  OrderType = "TRAILING_STOP_LIMIT"
	OrderTypeOneCancelsOther    OrderType = "ONE_CANCELS_OTHER"
	OrderTypeNextOrder          OrderType = "NEXT_ORDER"
)

const (
	ValidityGoodForDay  ValidityType = "GFD"
	ValidityGoodTilDate ValidityType = "GTD"
	ValidityGoodTilCanc ValidityType = "GTC"
)

const (
	ActionStatusChallenged ActionStatus = "challenged"
	ActionStatusReady      ActionStatus = "ready"
	ActionStatusCommitted  ActionStatus = "committed"
	ActionStatusActivated  ActionStatus = "activated"
	ActionStatusQuoted     ActionStatus = "quoted"
	ActionStatusDeclined   ActionStatus = "declined"
	ActionStatusFailed     ActionStatus = "failed"
	ActionStatusDiscarded  ActionStatus = "discarded"
)

// RequiresLimit reports whether the order type carries a limit price.
func (t OrderType) RequiresLimit() bool {
	switch t {
	case OrderTypeLimit, OrderTypeStopLimit, OrderTypeTrailingStopLimit, OrderTypeOneCancelsOther:
		return true
	default:
		return false
	}
}
