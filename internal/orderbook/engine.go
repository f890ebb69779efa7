package orderbook

// Book is the matching engine and resting-order store for one instrument
// (spec §3 OrderBook, §4.4 Matching Engine). It is not safe for concurrent
// use: the scheduling model is strictly serial (spec §5) — callers that
// want several instruments run one Book per instrument instead of sharing
// one across goroutines.
type Book struct {
	arena *arena
	bids  *bookSide
	asks  *bookSide

	minAsk *Price
	maxBid *Price

	queueCapacityHint int

	trackStats   bool
	tradedVolume Quantity
	lastTrade    *Trade
}

// New constructs a Book, pre-warming its arena to cfg.ArenaCapacity slots
// (spec §4.1, §5 "Allocation discipline").
func New(cfg Config) *Book {
	if cfg.QueueCapacityHint <= 0 {
		cfg.QueueCapacityHint = DefaultConfig().QueueCapacityHint
	}
	return &Book{
		arena:             newArena(cfg.ArenaCapacity),
		bids:              newBookSide(false, cfg.QueueCapacityHint),
		asks:              newBookSide(true, cfg.QueueCapacityHint),
		queueCapacityHint: cfg.QueueCapacityHint,
		trackStats:        cfg.TrackStats,
	}
}

// NewDefault constructs a Book with the spec's default configuration.
func NewDefault() *Book {
	return New(DefaultConfig())
}

// MinAsk returns the best (lowest) resting ask price, if any.
func (b *Book) MinAsk() (Price, bool) {
	if b.minAsk == nil {
		return 0, false
	}
	return *b.minAsk, true
}

// MaxBid returns the best (highest) resting bid price, if any.
func (b *Book) MaxBid() (Price, bool) {
	if b.maxBid == nil {
		return 0, false
	}
	return *b.maxBid, true
}

// Spread returns MinAsk - MaxBid iff both are set (spec §6 Queries).
func (b *Book) Spread() (Price, bool) {
	if b.minAsk == nil || b.maxBid == nil {
		return 0, false
	}
	return *b.minAsk - *b.maxBid, true
}

// LastTrade returns the most recently recorded Trade, when stats tracking
// is enabled and at least one fill has occurred.
func (b *Book) LastTrade() (Trade, bool) {
	if b.lastTrade == nil {
		return Trade{}, false
	}
	return *b.lastTrade, true
}

// TradedVolume returns the cumulative filled quantity observed while stats
// tracking was enabled.
func (b *Book) TradedVolume() Quantity {
	return b.tradedVolume
}

// SetTrackStats toggles running trade statistics at runtime. Toggling does
// not clear previously accumulated values (spec §4.5).
func (b *Book) SetTrackStats(on bool) {
	b.trackStats = on
}

// Execute is the engine's single public contract: every syntactically valid
// Command returns a fully-described Event, with no possibility of a partial
// application state (spec §4.4.5).
func (b *Book) Execute(cmd Command) Event {
	switch cmd.Kind {
	case CmdMarket:
		return b.executeMarket(cmd.ID, cmd.Side, cmd.Qty)
	case CmdLimit:
		return b.executeLimit(cmd.ID, cmd.Side, cmd.Qty, cmd.Price)
	case CmdCancel:
		b.cancel(cmd.ID)
		return Event{Kind: EvCanceled, ID: cmd.ID}
	default:
		return Event{Kind: EvCanceled, ID: cmd.ID}
	}
}

func (b *Book) executeMarket(id OrderID, side Side, qty Quantity) Event {
	fills, remaining := b.matchOpposite(id, side, qty, nil)
	b.recordStats(fills)

	filled := qty - remaining
	switch {
	case len(fills) == 0:
		return Event{Kind: EvUnfilled, ID: id}
	case remaining > 0:
		return Event{Kind: EvPartiallyFilled, ID: id, FilledQty: filled, Fills: fills}
	default:
		return Event{Kind: EvFilled, ID: id, FilledQty: filled, Fills: fills}
	}
}

func (b *Book) executeLimit(id OrderID, side Side, qty Quantity, price Price) Event {
	limit := price
	fills, remaining := b.matchOpposite(id, side, qty, &limit)
	b.recordStats(fills)

	switch {
	case qty == 0 && len(fills) == 0:
		// Open question (spec §9): a zero-qty limit rests an inert residue
		// that the matcher can never trade against (min(x, 0) == 0) and
		// that a later Cancel reclaims.
		b.rest(id, side, price, 0)
		return Event{Kind: EvPlaced, ID: id}
	case remaining > 0:
		b.rest(id, side, price, remaining)
		if len(fills) == 0 {
			return Event{Kind: EvPlaced, ID: id}
		}
		return Event{Kind: EvPartiallyFilled, ID: id, FilledQty: qty - remaining, Fills: fills}
	default:
		return Event{Kind: EvFilled, ID: id, FilledQty: qty, Fills: fills}
	}
}

// rest inserts an unfilled (or partially filled) limit residue into the
// arena and its side's FIFO, improving the cached top-of-book pointer when
// the new price beats it (spec §4.4.2, §4.3 "fast path"). A qty==0 residue
// is logically dead (spec §3): it's kept in the arena only so a later
// Cancel can still reclaim the slot, but it never enters the side's FIFO
// and never moves the tracker. A tombstoned priceLevel's "empty" check only
// looks at queue length, so pushing a qty==0 handle would make an
// otherwise-dead level look live to bestPrice()/Depth(), corrupting I1/P2
// (min_ask/max_bid must name a price with a qty>0 resting order).
func (b *Book) rest(id OrderID, side Side, price Price, qty Quantity) {
	h := b.arena.insert(id, price, qty, side)
	if qty == 0 {
		return
	}
	if side == Bid {
		b.bids.push(price, h)
		if b.maxBid == nil || price > *b.maxBid {
			p := price
			b.maxBid = &p
		}
	} else {
		b.asks.push(price, h)
		if b.minAsk == nil || price < *b.minAsk {
			p := price
			b.minAsk = &p
		}
	}
}

// cancel removes a resting order by id, idempotently: cancelling an
// unknown id is a no-op (spec §4.4.3).
func (b *Book) cancel(id OrderID) bool {
	price, side, h, ok := b.arena.get(id)
	if !ok {
		return false
	}
	bs := b.sideBook(side)
	if pl, ok := bs.peek(price); ok {
		for i, hh := range pl.queue {
			if hh == h {
				pl.queue = append(pl.queue[:i], pl.queue[i+1:]...)
				break
			}
		}
	}
	b.arena.delete(id)
	b.recomputeTracker(side)
	return true
}

func (b *Book) sideBook(side Side) *bookSide {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

// recomputeTracker is the slow-path recompute of spec §4.3: scan this
// side's levels in priority order, skipping tombstones, and cache the first
// survivor's price (or none).
func (b *Book) recomputeTracker(side Side) {
	bs := b.sideBook(side)
	p, ok := bs.bestPrice()
	if side == Bid {
		if ok {
			b.maxBid = &p
		} else {
			b.maxBid = nil
		}
		return
	}
	if ok {
		b.minAsk = &p
	} else {
		b.minAsk = nil
	}
}

// matchOpposite walks the side opposite takerSide in best-price-first
// order, consuming up to qty, stopping at a crossed limitPrice (if set) or
// when qty is exhausted (spec §4.4.1, §4.4.2). It returns the fills
// produced and the quantity left unfilled.
func (b *Book) matchOpposite(takerID OrderID, takerSide Side, qty Quantity, limitPrice *Price) ([]FillMetadata, Quantity) {
	oppositeSide := takerSide.Opposite()
	bs := b.sideBook(oppositeSide)

	var fills []FillMetadata
	remaining := qty
	needsRefresh := false

	bs.scanLevels(func(pl *priceLevel) bool {
		_, hasTop := b.topOf(oppositeSide)
		if (needsRefresh || !hasTop) && !pl.empty() {
			b.setTop(oppositeSide, pl.price)
			needsRefresh = false
		}
		if limitPrice != nil && bs.crossed(pl.price, *limitPrice) {
			return false
		}
		if remaining == 0 {
			return false
		}
		filled := b.processLevel(pl, remaining, takerID, takerSide, &fills)
		if pl.empty() {
			needsRefresh = true
		}
		remaining -= filled
		return true
	})

	// Authoritative recompute: guarantees I1 even when the fast path above
	// never observed a qualifying level (spec §4.3 "slow recompute").
	b.recomputeTracker(oppositeSide)

	return fills, remaining
}

func (b *Book) topOf(side Side) (Price, bool) {
	if side == Bid {
		return b.MaxBid()
	}
	return b.MinAsk()
}

func (b *Book) setTop(side Side, p Price) {
	if side == Bid {
		b.maxBid = &p
	} else {
		b.minAsk = &p
	}
}

// processLevel is the inner loop of spec §4.4.4: walk the FIFO from the
// front, fill against (or skip stale, already-drained) makers, and drain
// the contiguous prefix of fully-consumed entries in one pass.
func (b *Book) processLevel(pl *priceLevel, remainingQty Quantity, takerID OrderID, takerSide Side, fills *[]FillMetadata) Quantity {
	qtyToFill := remainingQty
	var filledQty Quantity
	drainTo := -1

	for i, h := range pl.queue {
		if qtyToFill == 0 {
			break
		}
		maker := b.arena.at(h)
		if maker.qty == 0 {
			// Stale tombstoned entry; skip and drain it away.
			drainTo = i
			continue
		}

		qtyBefore := maker.qty
		traded := qtyToFill
		if maker.qty < traded {
			traded = maker.qty
		}
		maker.qty -= traded

		*fills = append(*fills, FillMetadata{
			TakerID:   takerID,
			MakerID:   maker.id,
			Qty:       traded,
			Price:     maker.price,
			TakerSide: takerSide,
			TotalFill: traded == qtyBefore,
		})
		qtyToFill -= traded
		filledQty += traded

		if maker.qty == 0 {
			drainTo = i
			b.arena.delete(maker.id)
		}
	}

	if drainTo >= 0 {
		pl.queue = pl.queue[drainTo+1:]
	}
	return filledQty
}

// Depth returns a snapshot of both sides up to levels price points per side
// (spec §4.6). Implementations MAY truncate; this one does.
func (b *Book) Depth(levels int) BookDepth {
	depth := BookDepth{Levels: levels}
	depth.Asks = b.snapshotSide(b.asks, levels)
	depth.Bids = b.snapshotSide(b.bids, levels)
	return depth
}

func (b *Book) snapshotSide(bs *bookSide, levels int) []BookLevel {
	out := make([]BookLevel, 0, levels)
	bs.scanLevels(func(pl *priceLevel) bool {
		if len(out) >= levels {
			return false
		}
		var qty Quantity
		for _, h := range pl.queue {
			qty += b.arena.at(h).qty
		}
		if qty > 0 {
			out = append(out, BookLevel{Price: pl.price, Qty: qty})
		}
		return true
	})
	return out
}

// recordStats updates the optional running trade statistics from the fills
// of a Filled/PartiallyFilled command (spec §4.5). A no-op unless stats
// tracking is enabled and at least one fill occurred (invariant I6).
func (b *Book) recordStats(fills []FillMetadata) {
	if !b.trackStats || len(fills) == 0 {
		return
	}
	var totalQty Quantity
	var weighted float64
	for _, f := range fills {
		totalQty += f.Qty
		weighted += float64(f.Price) * float64(f.Qty)
	}
	last := fills[len(fills)-1]
	b.tradedVolume += totalQty
	b.lastTrade = &Trade{
		TotalQty:  totalQty,
		AvgPrice:  weighted / float64(totalQty),
		LastPrice: last.Price,
		LastQty:   last.Qty,
	}
}
