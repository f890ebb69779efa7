package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBook(trackStats bool) *Book {
	return New(Config{ArenaCapacity: 16, QueueCapacityHint: 4, TrackStats: trackStats})
}

// S1: an empty book against a market order yields Unfilled and leaves no
// trace behind.
func TestScenario_EmptyBookMarket(t *testing.T) {
	b := newTestBook(true)
	ev := b.Execute(MarketCommand(FromUint64(0), Bid, 1))
	assert.Equal(t, EvUnfilled, ev.Kind)
	assert.Equal(t, FromUint64(0), ev.ID)
	assert.Zero(t, b.TradedVolume())
}

// S2: place and rest a limit, then sweep it completely with a market order.
func TestScenario_PlaceAndRest(t *testing.T) {
	b := newTestBook(true)

	placed := b.Execute(LimitCommand(FromUint64(1), Ask, 3, 120))
	assert.Equal(t, EvPlaced, placed.Kind)

	filled := b.Execute(MarketCommand(FromUint64(2), Bid, 4))
	require.Equal(t, EvPartiallyFilled, filled.Kind)
	assert.EqualValues(t, 3, filled.FilledQty)
	require.Len(t, filled.Fills, 1)
	assert.Equal(t, FillMetadata{
		TakerID: FromUint64(2), MakerID: FromUint64(1),
		Qty: 3, Price: 120, TakerSide: Bid, TotalFill: true,
	}, filled.Fills[0])

	_, ok := b.MinAsk()
	assert.False(t, ok)
	_, ok = b.MaxBid()
	assert.False(t, ok)
	assert.EqualValues(t, 3, b.TradedVolume())
}

// S3/S4: a crossing limit sell partially fills the best bid and, if deep
// enough, sweeps it and rests its own residue.
func TestScenario_CrossingLimitPartialThenSweep(t *testing.T) {
	b := newTestBook(false)

	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(0), Bid, 12, 395)).Kind)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(2), Bid, 2, 398)).Kind)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(1), Ask, 2, 399)).Kind)

	ev := b.Execute(LimitCommand(FromUint64(3), Ask, 1, 397))
	require.Equal(t, EvFilled, ev.Kind)
	assert.EqualValues(t, 1, ev.FilledQty)
	assert.Equal(t, []FillMetadata{{
		TakerID: FromUint64(3), MakerID: FromUint64(2),
		Qty: 1, Price: 398, TakerSide: Ask, TotalFill: false,
	}}, ev.Fills)

	maxBid, ok := b.MaxBid()
	require.True(t, ok)
	assert.EqualValues(t, 398, maxBid)
	minAsk, ok := b.MinAsk()
	require.True(t, ok)
	assert.EqualValues(t, 399, minAsk)
	spread, ok := b.Spread()
	require.True(t, ok)
	assert.EqualValues(t, 1, spread)

	// Now sweep the remaining qty=1 at 398 and rest a residue at 397.
	ev = b.Execute(LimitCommand(FromUint64(4), Ask, 5, 397))
	require.Equal(t, EvPartiallyFilled, ev.Kind)
	assert.EqualValues(t, 1, ev.FilledQty)
	require.Len(t, ev.Fills, 1)
	assert.Equal(t, FillMetadata{
		TakerID: FromUint64(4), MakerID: FromUint64(2),
		Qty: 1, Price: 398, TakerSide: Ask, TotalFill: true,
	}, ev.Fills[0])

	minAsk, ok = b.MinAsk()
	require.True(t, ok)
	assert.EqualValues(t, 397, minAsk)
	maxBid, ok = b.MaxBid()
	require.True(t, ok)
	assert.EqualValues(t, 395, maxBid)
	spread, ok = b.Spread()
	require.True(t, ok)
	assert.EqualValues(t, 2, spread)
}

// S5: time priority within a single price level.
func TestScenario_TimePriorityWithinPrice(t *testing.T) {
	b := newTestBook(false)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(10), Ask, 5, 100)).Kind)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(11), Ask, 5, 100)).Kind)

	ev := b.Execute(MarketCommand(FromUint64(12), Bid, 7))
	require.Equal(t, EvFilled, ev.Kind)
	require.Len(t, ev.Fills, 2)
	assert.Equal(t, FillMetadata{TakerID: FromUint64(12), MakerID: FromUint64(10), Qty: 5, Price: 100, TakerSide: Bid, TotalFill: true}, ev.Fills[0])
	assert.Equal(t, FillMetadata{TakerID: FromUint64(12), MakerID: FromUint64(11), Qty: 2, Price: 100, TakerSide: Bid, TotalFill: false}, ev.Fills[1])

	depth := b.Depth(10)
	require.Len(t, depth.Asks, 1)
	assert.Equal(t, BookLevel{Price: 100, Qty: 3}, depth.Asks[0])
}

// S6: cancel removes the top of book and is idempotent.
func TestScenario_CancelTopOfBookIdempotent(t *testing.T) {
	b := newTestBook(false)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(20), Bid, 1, 500)).Kind)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(21), Bid, 1, 499)).Kind)

	ev := b.Execute(CancelCommand(FromUint64(20)))
	assert.Equal(t, EvCanceled, ev.Kind)

	_, ok := b.MinAsk()
	assert.False(t, ok)
	maxBid, ok := b.MaxBid()
	require.True(t, ok)
	assert.EqualValues(t, 499, maxBid)

	before := *b
	ev = b.Execute(CancelCommand(FromUint64(20)))
	assert.Equal(t, EvCanceled, ev.Kind)
	maxBid, ok = b.MaxBid()
	require.True(t, ok)
	assert.EqualValues(t, 499, maxBid)
	assert.Equal(t, before.tradedVolume, b.tradedVolume)
}

func TestZeroQtyLimitRestsInertResidue(t *testing.T) {
	b := newTestBook(false)
	ev := b.Execute(LimitCommand(FromUint64(1), Bid, 0, 100))
	assert.Equal(t, EvPlaced, ev.Kind)

	// The dead residue must never become the tracked top-of-book (I1/P2):
	// there is no live order at 100 for MaxBid to name.
	_, ok := b.MaxBid()
	assert.False(t, ok)

	// A zero-qty resting order can never be matched: min(x, 0) == 0.
	ev = b.Execute(MarketCommand(FromUint64(2), Ask, 5))
	assert.Equal(t, EvUnfilled, ev.Kind)

	ev = b.Execute(CancelCommand(FromUint64(1)))
	assert.Equal(t, EvCanceled, ev.Kind)
}

func TestZeroQtyMarketIsUnfilled(t *testing.T) {
	b := newTestBook(false)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(1), Ask, 5, 100)).Kind)
	ev := b.Execute(MarketCommand(FromUint64(2), Bid, 0))
	assert.Equal(t, EvUnfilled, ev.Kind)
}

func TestSelfMatchIsNotPrevented(t *testing.T) {
	b := newTestBook(false)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(7), Ask, 5, 100)).Kind)
	ev := b.Execute(LimitCommand(FromUint64(7), Bid, 5, 100))
	require.Equal(t, EvFilled, ev.Kind)
	assert.Equal(t, FromUint64(7), ev.Fills[0].MakerID)
	assert.Equal(t, FromUint64(7), ev.Fills[0].TakerID)
}

func TestStatsToggleDoesNotClearAccumulators(t *testing.T) {
	b := newTestBook(true)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(1), Ask, 5, 100)).Kind)
	require.Equal(t, EvFilled, b.Execute(MarketCommand(FromUint64(2), Bid, 5)).Kind)
	assert.EqualValues(t, 5, b.TradedVolume())

	b.SetTrackStats(false)
	require.Equal(t, EvPlaced, b.Execute(LimitCommand(FromUint64(3), Ask, 5, 100)).Kind)
	require.Equal(t, EvFilled, b.Execute(MarketCommand(FromUint64(4), Bid, 5)).Kind)
	assert.EqualValues(t, 5, b.TradedVolume(), "disabled tracking must not accumulate")

	b.SetTrackStats(true)
	assert.EqualValues(t, 5, b.TradedVolume(), "re-enabling must not reset the accumulator")

	trade, ok := b.LastTrade()
	require.True(t, ok)
	assert.EqualValues(t, 5, trade.TotalQty)
	assert.InDelta(t, 100.0, trade.AvgPrice, 0.0001)
}

func TestDepthTruncatesToRequestedLevels(t *testing.T) {
	b := newTestBook(false)
	for i, price := range []Price{101, 102, 103, 104} {
		b.Execute(LimitCommand(FromUint64(uint64(i)), Ask, 10, price))
	}
	depth := b.Depth(2)
	assert.Len(t, depth.Asks, 2)
	assert.Equal(t, Price(101), depth.Asks[0].Price)
	assert.Equal(t, Price(102), depth.Asks[1].Price)
	assert.Equal(t, 2, depth.Levels)
}
