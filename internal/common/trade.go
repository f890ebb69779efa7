package common

import (
	"fmt"
	"time"

	"fenrir/internal/orderbook"
)

// Trade accounts for the two parties who matched.
type Trade struct {
	Party        *Order
	CounterParty *Order
	Timestamp    time.Time
	MatchQty     orderbook.Quantity
	Price        orderbook.Price
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`Party: [
%s]
CounterParty:   [
%s]
Timestamp:      %v
MatchQty:       %d
Price:          %d`,
		t.Party.String(),
		t.CounterParty.String(),
		t.Timestamp.Format(time.RFC3339),
		t.MatchQty,
		t.Price,
	)
}
