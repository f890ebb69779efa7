// Package book owns the collection of per-ticker order books the engine
// façade dispatches into: one independently single-threaded orderbook.Book
// per instrument (spec.md's Non-goals exclude multi-instrument routing from
// the core itself; this is that routing layer).
package book

import (
	"sync"

	"fenrir/internal/orderbook"
)

// table pairs a book with the lock that serializes access to it. The core
// orderbook.Book is not safe for concurrent use (spec.md §5); the registry
// is the boundary that turns a pool of worker goroutines into the single
// caller each book expects, one lock per instrument rather than one global
// lock for the whole exchange.
type table struct {
	mu   sync.Mutex
	book *orderbook.Book
}

// Registry is a ticker -> book mapping, lazily populated: the first command
// for a ticker creates its book with the registry's configured defaults.
// Safe for concurrent use.
type Registry struct {
	mu     sync.Mutex
	cfg    orderbook.Config
	tables map[string]*table
}

// NewRegistry constructs an empty Registry. Every book it creates uses cfg.
func NewRegistry(cfg orderbook.Config) *Registry {
	return &Registry{
		cfg:    cfg,
		tables: make(map[string]*table),
	}
}

func (r *Registry) getOrCreate(ticker string) *table {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tables[ticker]
	if !ok {
		t = &table{book: orderbook.New(r.cfg)}
		r.tables[ticker] = t
	}
	return t
}

// TopOfBook is a lock-consistent snapshot of one book's best bid/ask,
// returned alongside an Execute call so a metrics observer never has to
// take a second lock (and race a concurrent command) to read it.
type TopOfBook struct {
	Bid    orderbook.Price
	HasBid bool
	Ask    orderbook.Price
	HasAsk bool
}

// Execute runs cmd against ticker's book, creating the book on first use,
// and serializes it against any other command for the same ticker.
func (r *Registry) Execute(ticker string, cmd orderbook.Command) (orderbook.Event, TopOfBook) {
	t := r.getOrCreate(ticker)
	t.mu.Lock()
	defer t.mu.Unlock()

	ev := t.book.Execute(cmd)
	bid, hasBid := t.book.MaxBid()
	ask, hasAsk := t.book.MinAsk()
	return ev, TopOfBook{Bid: bid, HasBid: hasBid, Ask: ask, HasAsk: hasAsk}
}

// Depth returns a snapshot of ticker's book, or false if it doesn't exist
// yet (no orders have ever been placed for it).
func (r *Registry) Depth(ticker string, levels int) (orderbook.BookDepth, bool) {
	r.mu.Lock()
	t, ok := r.tables[ticker]
	r.mu.Unlock()
	if !ok {
		return orderbook.BookDepth{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.book.Depth(levels), true
}

// Tickers returns the tickers currently tracked, for diagnostics (LogBook).
func (r *Registry) Tickers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.tables))
	for ticker := range r.tables {
		out = append(out, ticker)
	}
	return out
}
