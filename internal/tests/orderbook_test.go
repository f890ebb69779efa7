package tests

import (
	"testing"

	"fenrir/internal/common"
	"fenrir/internal/engine"
	"fenrir/internal/orderbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReporter records every trade reported to it, so tests can assert on
// the façade's translation of fills into common.Trade without a real TCP
// server in the loop.
type stubReporter struct {
	trades []common.Trade
}

func (s *stubReporter) ReportTrade(trade common.Trade, err error) error {
	s.trades = append(s.trades, trade)
	return err
}

func newTestEngine() (*engine.Engine, *stubReporter) {
	eng := engine.New(common.Equities)
	reporter := &stubReporter{}
	eng.SetReporter(reporter)
	return eng, reporter
}

func limitOrder(id uint64, owner string, side common.Side, qty, price uint64) common.Order {
	return common.Order{
		ID:            orderbook.FromUint64(id),
		AssetType:     common.Equities,
		OrderType:     common.LimitOrder,
		Ticker:        "AAPL",
		Side:          side,
		LimitPrice:    orderbook.Price(price),
		Quantity:      orderbook.Quantity(qty),
		TotalQuantity: orderbook.Quantity(qty),
		Owner:         owner,
	}
}

func TestEngine_RejectsUnsupportedAsset(t *testing.T) {
	eng := engine.New(common.Equities)
	order := limitOrder(1, "alice", common.Buy, 10, 100)
	order.AssetType = common.AssetType(99)
	assert.ErrorIs(t, eng.PlaceOrder(common.AssetType(99), order), engine.ErrUnsupportedAsset)
}

func TestEngine_RestsThenMatchesAcrossOwners(t *testing.T) {
	eng, reporter := newTestEngine()

	sell := limitOrder(1, "alice", common.Sell, 10, 100)
	require.NoError(t, eng.PlaceOrder(common.Equities, sell))
	assert.Empty(t, reporter.trades, "a resting order alone produces no trade")

	buy := limitOrder(2, "bob", common.Buy, 4, 100)
	require.NoError(t, eng.PlaceOrder(common.Equities, buy))

	require.Len(t, reporter.trades, 1)
	trade := reporter.trades[0]
	assert.EqualValues(t, 4, trade.MatchQty)
	assert.EqualValues(t, 100, trade.Price)
	assert.Equal(t, "bob", trade.Party.Owner)
	assert.Equal(t, "alice", trade.CounterParty.Owner)
}

func TestEngine_CancelRemovesRestingOrder(t *testing.T) {
	eng, reporter := newTestEngine()

	sell := limitOrder(1, "alice", common.Sell, 10, 100)
	require.NoError(t, eng.PlaceOrder(common.Equities, sell))

	require.NoError(t, eng.CancelOrder(common.Equities, sell.ID))
	assert.ErrorIs(t, eng.CancelOrder(common.Equities, sell.ID), engine.ErrUnknownOrder)

	buy := limitOrder(2, "bob", common.Buy, 4, 100)
	require.NoError(t, eng.PlaceOrder(common.Equities, buy))
	assert.Empty(t, reporter.trades, "cancelled liquidity cannot be matched against")
}

func TestEngine_FullyFilledOrdersCannotBeCancelled(t *testing.T) {
	eng, _ := newTestEngine()

	sell := limitOrder(1, "alice", common.Sell, 5, 100)
	require.NoError(t, eng.PlaceOrder(common.Equities, sell))

	buy := limitOrder(2, "bob", common.Buy, 5, 100)
	require.NoError(t, eng.PlaceOrder(common.Equities, buy))

	assert.ErrorIs(t, eng.CancelOrder(common.Equities, sell.ID), engine.ErrUnknownOrder)
	assert.ErrorIs(t, eng.CancelOrder(common.Equities, buy.ID), engine.ErrUnknownOrder)
}
