package common

import (
	"fmt"
	"time"

	"fenrir/internal/orderbook"
)

// Order is the façade's client-facing order record: everything the core
// orderbook.Book doesn't need to know (owner, ticker, asset class, arrival
// times) but the engine and wire layers do.
type Order struct {
	ID            orderbook.OrderID  // Core order identity, minted at the wire edge
	AssetType     AssetType          //
	OrderType     OrderType          //
	Ticker        string             // Specific asset identifier
	Side          Side               // Order side
	LimitPrice    orderbook.Price    // Limiting price (zero for market orders)
	Quantity      orderbook.Quantity // Remaining quantity
	TotalQuantity orderbook.Quantity // Total volume requested
	Timestamp     time.Time          // Time of arrival of order
	ExchTimestamp time.Time          // Time of arrival of order into the book
	Owner         string             // Who owns this order
}

func (order Order) String() string {
	return fmt.Sprintf(
		`ID:            %v
AssetType:     %v
OrderType:     %v
Ticker:        %s
Side:          %v
LimitPrice:    %d
Quantity:      %d (Total: %d)
Timestamp:     %v
ExchTimestamp: %v
Owner:         %s`,
		order.ID,
		order.AssetType,
		order.OrderType,
		order.Ticker,
		order.Side,
		order.LimitPrice,
		order.Quantity,
		order.TotalQuantity,
		order.Timestamp.Format(time.RFC3339), // Formatted for readability
		order.ExchTimestamp.Format(time.RFC3339),
		order.Owner,
	)
}
