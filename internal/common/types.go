package common

import "fenrir/internal/orderbook"

// AssetType distinguishes which product class an order belongs to, so one
// Engine can own a book per instrument without the core matching package
// knowing instruments exist (spec.md's Non-goals exclude multi-instrument
// routing from the core; the façade owns it instead, see SPEC_FULL.md
// "Multi-asset façade").
type AssetType int

const (
	Equities AssetType = iota
)

// Side is the client-facing order side. It is distinct from orderbook.Side
// so the wire protocol and engine façade are free to evolve independently
// of the core's Bid/Ask vocabulary.
type Side int

const (
	Buy Side = iota
	Sell
)

// ToBookSide maps the client-facing side onto the core's Bid/Ask vocabulary.
func (s Side) ToBookSide() orderbook.Side {
	if s == Buy {
		return orderbook.Bid
	}
	return orderbook.Ask
}

// OrderType is the client's stated intent: rest at a limit, or sweep the
// book immediately (spec.md §6, "OrderType").
type OrderType int

const (
	LimitOrder OrderType = iota
	MarketOrder
)
