// Package metrics exposes the exchange's running counters over a
// Prometheus-compatible /metrics endpoint (spec.md §4.5's optional
// statistics, made externally observable without touching the core
// engine's own track_stats accumulator).
package metrics

import (
	"net/http"

	"fenrir/internal/orderbook"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the per-ticker gauges and counters the façade updates
// after every orderbook.Book.Execute call.
type Collector struct {
	CommandsTotal  *prometheus.CounterVec
	FillsTotal     *prometheus.CounterVec
	TradedVolume   *prometheus.CounterVec
	BestBid        *prometheus.GaugeVec
	BestAsk        *prometheus.GaugeVec
}

// NewCollector builds and registers a fresh set of collectors against the
// default Prometheus registry.
func NewCollector() *Collector {
	c := &Collector{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fenrir",
				Subsystem: "book",
				Name:      "commands_total",
				Help:      "Commands executed, labeled by ticker and event kind",
			},
			[]string{"ticker", "kind"},
		),
		FillsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fenrir",
				Subsystem: "book",
				Name:      "fills_total",
				Help:      "Individual fills produced while matching",
			},
			[]string{"ticker"},
		),
		TradedVolume: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fenrir",
				Subsystem: "book",
				Name:      "traded_volume_total",
				Help:      "Cumulative filled quantity",
			},
			[]string{"ticker"},
		),
		BestBid: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fenrir",
				Subsystem: "book",
				Name:      "best_bid",
				Help:      "Current best (highest) resting bid price",
			},
			[]string{"ticker"},
		),
		BestAsk: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fenrir",
				Subsystem: "book",
				Name:      "best_ask",
				Help:      "Current best (lowest) resting ask price",
			},
			[]string{"ticker"},
		),
	}

	prometheus.MustRegister(c.CommandsTotal, c.FillsTotal, c.TradedVolume, c.BestBid, c.BestAsk)
	return c
}

// BookSnapshot is the slice of top-of-book state Observe needs; callers
// obtain it from their own lock-held view of a book (see the TopOfBook
// returned by book.Registry.Execute) rather than Collector reaching into a
// *orderbook.Book directly, since that type is not safe for concurrent use.
type BookSnapshot struct {
	Bid    orderbook.Price
	HasBid bool
	Ask    orderbook.Price
	HasAsk bool
}

// Observe records one executed command's outcome against ticker.
func (c *Collector) Observe(ticker string, ev orderbook.Event, snap BookSnapshot) {
	c.CommandsTotal.WithLabelValues(ticker, eventKindLabel(ev.Kind)).Inc()
	if len(ev.Fills) > 0 {
		c.FillsTotal.WithLabelValues(ticker).Add(float64(len(ev.Fills)))
		c.TradedVolume.WithLabelValues(ticker).Add(float64(ev.FilledQty))
	}
	if snap.HasBid {
		c.BestBid.WithLabelValues(ticker).Set(float64(snap.Bid))
	} else {
		c.BestBid.DeleteLabelValues(ticker)
	}
	if snap.HasAsk {
		c.BestAsk.WithLabelValues(ticker).Set(float64(snap.Ask))
	} else {
		c.BestAsk.DeleteLabelValues(ticker)
	}
}

func eventKindLabel(kind orderbook.EventKind) string {
	switch kind {
	case orderbook.EvUnfilled:
		return "unfilled"
	case orderbook.EvPlaced:
		return "placed"
	case orderbook.EvCanceled:
		return "canceled"
	case orderbook.EvPartiallyFilled:
		return "partially_filled"
	case orderbook.EvFilled:
		return "filled"
	default:
		return "unknown"
	}
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
