package orderbook

import "github.com/tidwall/btree"

// priceLevel is a FIFO sequence of arena handles resting at one price.
// Empty levels are retained as tombstones ("holes") rather than evicted
// eagerly, trading map churn for an O(holes) top-of-book refresh (spec
// §4.2, §9 "Empty-queue tombstones").
type priceLevel struct {
	price Price
	queue []Handle
}

func (pl *priceLevel) empty() bool {
	return len(pl.queue) == 0
}

// bookSide is the ordered price -> FIFO-queue mapping for one side of the
// book, backed by a tidwall/btree ordered map so both ascending (asks) and
// descending (bids) best-price-first iteration are O(log n) amortized per
// step instead of a full sort.
type bookSide struct {
	levels            *btree.BTreeG[*priceLevel]
	queueCapacityHint int
	ascending         bool // true for asks (best = lowest), false for bids (best = highest)
}

func newBookSide(ascending bool, queueCapacityHint int) *bookSide {
	less := func(a, b *priceLevel) bool { return a.price < b.price }
	if !ascending {
		less = func(a, b *priceLevel) bool { return a.price > b.price }
	}
	return &bookSide{
		levels:            btree.NewBTreeG(less),
		queueCapacityHint: queueCapacityHint,
		ascending:         ascending,
	}
}

// levelAt returns the price level at p, creating it (with the configured
// capacity hint) if it does not yet exist.
func (bs *bookSide) levelAt(p Price) *priceLevel {
	if pl, ok := bs.levels.Get(&priceLevel{price: p}); ok {
		return pl
	}
	pl := &priceLevel{price: p, queue: make([]Handle, 0, bs.queueCapacityHint)}
	bs.levels.Set(pl)
	return pl
}

// peek returns the price level at p without creating it.
func (bs *bookSide) peek(p Price) (*priceLevel, bool) {
	return bs.levels.Get(&priceLevel{price: p})
}

// push appends a handle to the tail of the FIFO at price p (spec §4.2,
// §4.4.2 "Residue insertion").
func (bs *bookSide) push(p Price, h Handle) {
	pl := bs.levelAt(p)
	pl.queue = append(pl.queue, h)
}

// bestPrice performs the slow recompute described in spec §4.3: scan levels
// in priority order, skip tombstoned (empty) ones, and return the first
// survivor's price.
func (bs *bookSide) bestPrice() (Price, bool) {
	var best Price
	found := false
	bs.scanLevels(func(pl *priceLevel) bool {
		if pl.empty() {
			return true // keep scanning past holes
		}
		best = pl.price
		found = true
		return false
	})
	return best, found
}

// scanLevels visits every retained level (including empty tombstones) in
// best-price-first order, stopping early if fn returns false. Each side's
// comparator (see newBookSide) already orders the tree best-price-first —
// ascending by price for asks, descending for bids — so a plain Scan, not a
// Reverse, gives priority order on both sides. The matcher (spec §4.4.4)
// and depth snapshots (spec §4.6) apply their own stopping conditions (a
// crossed limit price, a level budget) from within fn.
func (bs *bookSide) scanLevels(fn func(pl *priceLevel) bool) {
	bs.levels.Scan(fn)
}

// crossed reports whether price p is strictly worse than limitPrice from
// this side's perspective: greater than it for asks, less than it for bids.
func (bs *bookSide) crossed(p, limitPrice Price) bool {
	if bs.ascending {
		return p > limitPrice
	}
	return p < limitPrice
}
