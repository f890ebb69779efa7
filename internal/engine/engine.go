// Package engine is the multi-instrument façade: it owns one
// orderbook.Book per ticker (via internal/book.Registry) and translates
// between the client-facing common.Order/common.Trade vocabulary and the
// core's Command/Event contract (spec.md §6, "Command Façade").
package engine

import (
	"errors"
	"sync"
	"time"

	"fenrir/internal/book"
	"fenrir/internal/common"
	"fenrir/internal/metrics"
	"fenrir/internal/orderbook"

	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupportedAsset = errors.New("unsupported asset type")
	ErrUnknownOrder     = errors.New("unknown order id")
)

// Reporter is notified of completed trades, decoupling the engine from
// however a trade reaches a client (TCP execution reports, a websocket
// feed, ...).
type Reporter interface {
	ReportTrade(trade common.Trade, err error) error
}

// Feed is notified of every executed command, for fan-out to subscribed
// market-data clients. Optional: a nil Feed disables publishing.
type Feed interface {
	Publish(ticker string, ev orderbook.Event)
}

// orderMeta is what the façade tracks about a live order that the core
// arena doesn't: owner, ticker, asset class. The core only ever sees an
// OrderID plus Side/Qty/Price (spec.md §3).
type orderMeta struct {
	Ticker    string
	AssetType common.AssetType
	Side      common.Side
	Owner     string
}

// Engine dispatches commands to the right instrument's book and reports
// the resulting trades. It is safe for concurrent use: per-ticker
// serialization is Registry's job, and the façade's own bookkeeping
// (orderMeta) is mutex-protected.
type Engine struct {
	registry        *book.Registry
	supportedAssets map[common.AssetType]bool

	reporter Reporter
	metrics  *metrics.Collector
	feed     Feed

	metaMu sync.Mutex
	meta   map[orderbook.OrderID]orderMeta
}

// New constructs an Engine over the spec's default book configuration,
// accepting orders for the given asset types.
func New(supportedAssets ...common.AssetType) *Engine {
	return NewWithConfig(orderbook.DefaultConfig(), supportedAssets...)
}

// NewWithConfig constructs an Engine whose books all share cfg.
func NewWithConfig(cfg orderbook.Config, supportedAssets ...common.AssetType) *Engine {
	assets := make(map[common.AssetType]bool, len(supportedAssets))
	for _, a := range supportedAssets {
		assets[a] = true
	}
	return &Engine{
		registry:        book.NewRegistry(cfg),
		supportedAssets: assets,
		meta:            make(map[orderbook.OrderID]orderMeta),
	}
}

// Registry exposes the underlying per-ticker book registry, for callers
// that need read-only access outside the Order/Cancel path (depth polling
// for a market-data feed, diagnostics).
func (e *Engine) Registry() *book.Registry {
	return e.registry
}

// SetReporter installs the sink for trade outcomes.
func (e *Engine) SetReporter(r Reporter) {
	e.reporter = r
}

// SetMetrics installs a collector to observe every executed command. Optional;
// a nil collector (the default) disables metrics entirely.
func (e *Engine) SetMetrics(c *metrics.Collector) {
	e.metrics = c
}

// SetFeed installs a market-data sink to publish every executed command to.
func (e *Engine) SetFeed(f Feed) {
	e.feed = f
}

// PlaceOrder submits order to its ticker's book and reports any resulting
// trades.
func (e *Engine) PlaceOrder(assetType common.AssetType, order common.Order) error {
	if !e.supportedAssets[assetType] {
		return ErrUnsupportedAsset
	}
	order.ExchTimestamp = time.Now()
	e.remember(order)

	var cmd orderbook.Command
	if order.OrderType == common.MarketOrder {
		cmd = orderbook.MarketCommand(order.ID, order.Side.ToBookSide(), order.Quantity)
	} else {
		cmd = orderbook.LimitCommand(order.ID, order.Side.ToBookSide(), order.Quantity, order.LimitPrice)
	}

	ev, top := e.registry.Execute(order.Ticker, cmd)
	if ev.Kind == orderbook.EvFilled || ev.Kind == orderbook.EvUnfilled {
		// Fully consumed or never rested: nothing left for a later Cancel
		// to find.
		e.forget(order.ID)
	}
	e.observe(order.Ticker, ev, top)
	e.publish(order.Ticker, ev)
	e.reportFills(order, ev)
	return nil
}

// CancelOrder cancels a resting order by id. Returns ErrUnknownOrder if the
// façade never saw this id, or has already forgotten it (a fully filled or
// already-cancelled order); the underlying book Cancel is itself idempotent
// (spec.md §4.4.3), but the façade needs the ticker to route to, which only
// the metadata entry carries.
func (e *Engine) CancelOrder(assetType common.AssetType, id orderbook.OrderID) error {
	if !e.supportedAssets[assetType] {
		return ErrUnsupportedAsset
	}
	meta, ok := e.forget(id)
	if !ok {
		return ErrUnknownOrder
	}
	ev, top := e.registry.Execute(meta.Ticker, orderbook.CancelCommand(id))
	e.observe(meta.Ticker, ev, top)
	e.publish(meta.Ticker, ev)
	return nil
}

func (e *Engine) publish(ticker string, ev orderbook.Event) {
	if e.feed == nil {
		return
	}
	e.feed.Publish(ticker, ev)
}

// observe forwards an executed command's outcome to the installed metrics
// collector, if any.
func (e *Engine) observe(ticker string, ev orderbook.Event, top book.TopOfBook) {
	if e.metrics == nil {
		return
	}
	e.metrics.Observe(ticker, ev, metrics.BookSnapshot{
		Bid:    top.Bid,
		HasBid: top.HasBid,
		Ask:    top.Ask,
		HasAsk: top.HasAsk,
	})
}

// LogBook writes a depth snapshot of every ticker the engine has seen an
// order for, at info level. Successor to the never-wired gRPC
// QueryServer debug endpoint (see DESIGN.md).
func (e *Engine) LogBook() {
	for _, ticker := range e.registry.Tickers() {
		depth, ok := e.registry.Depth(ticker, 10)
		if !ok {
			continue
		}
		log.Info().
			Str("ticker", ticker).
			Interface("bids", depth.Bids).
			Interface("asks", depth.Asks).
			Msg("book snapshot")
	}
}

func (e *Engine) remember(order common.Order) {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()
	e.meta[order.ID] = orderMeta{
		Ticker:    order.Ticker,
		AssetType: order.AssetType,
		Side:      order.Side,
		Owner:     order.Owner,
	}
}

func (e *Engine) forget(id orderbook.OrderID) (orderMeta, bool) {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()
	meta, ok := e.meta[id]
	if ok {
		delete(e.meta, id)
	}
	return meta, ok
}

func (e *Engine) lookup(id orderbook.OrderID) (orderMeta, bool) {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()
	meta, ok := e.meta[id]
	return meta, ok
}

// reportFills forgets every maker a Filled/PartiallyFilled event's fills
// consumed completely and, when a reporter is installed, turns the fills
// into Trade reports for both counterparties. Placed/Unfilled/Canceled
// carry nothing further to report.
func (e *Engine) reportFills(taker common.Order, ev orderbook.Event) {
	for _, fill := range ev.Fills {
		makerMeta, ok := e.lookup(fill.MakerID)
		if !ok {
			continue
		}
		if fill.TotalFill {
			e.forget(fill.MakerID)
		}
		if e.reporter == nil {
			continue
		}

		maker := common.Order{
			ID:        fill.MakerID,
			AssetType: makerMeta.AssetType,
			Ticker:    makerMeta.Ticker,
			Side:      makerMeta.Side,
			Owner:     makerMeta.Owner,
		}
		takerSnapshot := taker
		takerSnapshot.Quantity = fill.Qty

		trade := common.Trade{
			Party:        &takerSnapshot,
			CounterParty: &maker,
			Timestamp:    time.Now(),
			MatchQty:     fill.Qty,
			Price:        fill.Price,
		}
		if err := e.reporter.ReportTrade(trade, nil); err != nil {
			log.Error().Err(err).Msg("failed to report trade")
		}
	}
}
