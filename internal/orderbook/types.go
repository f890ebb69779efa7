// Package orderbook implements a single-instrument, single-threaded limit
// order book: price-time matching, a handle-based order arena, and the
// command/event contract the rest of the exchange is built on.
package orderbook

import (
	"encoding/binary"
	"fmt"
)

// Side is one side of the book.
type Side int

const (
	Bid Side = iota
	Ask
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

func (s Side) String() string {
	if s == Bid {
		return "Bid"
	}
	return "Ask"
}

// Price is an integer price. Fractional representations are the caller's
// responsibility (spec §1).
type Price uint64

// Quantity is an integer order quantity.
type Quantity uint64

// OrderID is a client-supplied 128-bit identifier, required unique among
// live resting orders. It is stored as two 64-bit words rather than
// math/big.Int so that it remains a plain comparable value usable as a map
// key without boxing or allocation.
type OrderID struct {
	Hi uint64
	Lo uint64
}

// NewOrderID builds a 128-bit id from its high and low 64-bit words.
func NewOrderID(hi, lo uint64) OrderID {
	return OrderID{Hi: hi, Lo: lo}
}

// FromUint64 builds an OrderID whose high word is zero, for callers that
// only need 64 bits of id space (tests, CLIs, the CSV bench harness).
func FromUint64(lo uint64) OrderID {
	return OrderID{Lo: lo}
}

// Bytes renders the id as 16 big-endian bytes (Hi then Lo), the layout used
// wherever an OrderID crosses the wire.
func (id OrderID) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], id.Hi)
	binary.BigEndian.PutUint64(b[8:16], id.Lo)
	return b
}

// FromBytes parses 16 big-endian bytes (Hi then Lo) into an OrderID. It
// accepts a uuid.UUID's byte layout unchanged, since both are 128 bits.
func FromBytes(b [16]byte) OrderID {
	return OrderID{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

func (id OrderID) String() string {
	if id.Hi == 0 {
		return fmt.Sprintf("%d", id.Lo)
	}
	return fmt.Sprintf("%d:%d", id.Hi, id.Lo)
}

// Command is the tagged union of inbound order instructions: Market, Limit
// or Cancel. Which fields are meaningful depends on Kind: Cancel uses only
// ID, Market adds Side and Qty, and Limit adds Price as well.
type Command struct {
	Kind  CommandKind
	ID    OrderID
	Side  Side
	Qty   Quantity
	Price Price // only meaningful for Kind == Limit
}

type CommandKind int

const (
	CmdMarket CommandKind = iota
	CmdLimit
	CmdCancel
)

// MarketCommand builds a market order command.
func MarketCommand(id OrderID, side Side, qty Quantity) Command {
	return Command{Kind: CmdMarket, ID: id, Side: side, Qty: qty}
}

// LimitCommand builds a limit order command.
func LimitCommand(id OrderID, side Side, qty Quantity, price Price) Command {
	return Command{Kind: CmdLimit, ID: id, Side: side, Qty: qty, Price: price}
}

// CancelCommand builds a cancel command.
func CancelCommand(id OrderID) Command {
	return Command{Kind: CmdCancel, ID: id}
}

// FillMetadata describes a single match produced while processing a command.
type FillMetadata struct {
	TakerID   OrderID
	MakerID   OrderID
	Qty       Quantity
	Price     Price
	TakerSide Side
	// TotalFill is true iff the maker order was fully consumed by this fill.
	TotalFill bool
}

// Trade is a volume-weighted summary of the fills produced by the most
// recent filled or partially-filled command, kept only when stats tracking
// is enabled.
type Trade struct {
	TotalQty  Quantity
	AvgPrice  float64
	LastPrice Price
	LastQty   Quantity
}

// BookLevel is one price point in a depth snapshot: the price and the sum
// of live residues resting there.
type BookLevel struct {
	Price Price
	Qty   Quantity
}

// BookDepth is a depth snapshot of both sides up to a requested level.
type BookDepth struct {
	Levels int
	Asks   []BookLevel
	Bids   []BookLevel
}

// EventKind tags which variant an Event carries.
type EventKind int

const (
	EvUnfilled EventKind = iota
	EvPlaced
	EvCanceled
	EvPartiallyFilled
	EvFilled
)

// Event is the outcome of executing a Command. Every variant carries ID;
// PartiallyFilled and Filled additionally carry FilledQty and Fills.
type Event struct {
	Kind      EventKind
	ID        OrderID
	FilledQty Quantity
	Fills     []FillMetadata
}

func (e Event) String() string {
	switch e.Kind {
	case EvUnfilled:
		return fmt.Sprintf("Unfilled{%s}", e.ID)
	case EvPlaced:
		return fmt.Sprintf("Placed{%s}", e.ID)
	case EvCanceled:
		return fmt.Sprintf("Canceled{%s}", e.ID)
	case EvPartiallyFilled:
		return fmt.Sprintf("PartiallyFilled{%s, filled=%d, fills=%d}", e.ID, e.FilledQty, len(e.Fills))
	case EvFilled:
		return fmt.Sprintf("Filled{%s, filled=%d, fills=%d}", e.ID, e.FilledQty, len(e.Fills))
	default:
		return "Event(?)"
	}
}

// Config configures a Book at construction. Defaults mirror spec §6.
type Config struct {
	ArenaCapacity     int
	QueueCapacityHint int
	TrackStats        bool
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ArenaCapacity:     10_000,
		QueueCapacityHint: 10,
		TrackStats:        false,
	}
}
