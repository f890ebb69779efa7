// Package feed fans out book activity to subscribed WebSocket clients: every
// executed command's Event, plus a periodic BookDepth snapshot per ticker.
// It is the successor to the original implementation's lobster-js WASM
// wrapper, which re-exposed OrderBook::execute to a single JS host — here
// the same state is pushed to any number of WebSocket-speaking dashboards.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"fenrir/internal/book"
	"fenrir/internal/orderbook"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// messageKind tags what a pushed payload carries.
type messageKind string

const (
	kindEvent messageKind = "event"
	kindDepth messageKind = "depth"
)

// message is the JSON envelope written to every subscriber.
type message struct {
	Kind   messageKind          `json:"kind"`
	Ticker string               `json:"ticker"`
	Event  *orderbook.Event     `json:"event,omitempty"`
	Depth  *orderbook.BookDepth `json:"depth,omitempty"`
}

// client is one subscribed WebSocket connection and its outbound queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

const (
	clientSendBuffer = 256
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

// Feed broadcasts book activity to every subscribed WebSocket client. Safe
// for concurrent use: Publish/PublishDepth may be called from the engine's
// goroutines while clients connect and disconnect independently.
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

// New constructs a Feed with an open CheckOrigin policy, matching the
// teacher pack's dashboard WebSocket managers (no browser-side origin
// restriction is meaningful for a same-process trading terminal).
func New() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, clientSendBuffer),
	}
}

// ServeHTTP upgrades the request to a WebSocket and subscribes it to the
// feed until the connection closes.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("feed: failed to upgrade connection")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer)}
	f.register <- c

	go f.writePump(c)
	go f.readPump(c)
}

// Run drives the registration/broadcast loop until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			for c := range f.clients {
				close(c.send)
			}
			f.clients = make(map[*client]struct{})
			f.mu.Unlock()
			return
		case c := <-f.register:
			f.mu.Lock()
			f.clients[c] = struct{}{}
			f.mu.Unlock()
		case c := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
			}
			f.mu.Unlock()
		case payload := <-f.broadcast:
			f.mu.RLock()
			for c := range f.clients {
				select {
				case c.send <- payload:
				default:
					// Slow consumer: drop it rather than block the feed.
					go func(c *client) { f.unregister <- c }(c)
				}
			}
			f.mu.RUnlock()
		}
	}
}

// Publish pushes an executed command's Event for ticker to every subscriber.
func (f *Feed) Publish(ticker string, ev orderbook.Event) {
	f.send(message{Kind: kindEvent, Ticker: ticker, Event: &ev})
}

// PublishDepth pushes a depth snapshot for ticker to every subscriber.
func (f *Feed) PublishDepth(ticker string, depth orderbook.BookDepth) {
	f.send(message{Kind: kindDepth, Ticker: ticker, Depth: &depth})
}

func (f *Feed) send(msg message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("feed: failed to marshal message")
		return
	}
	select {
	case f.broadcast <- payload:
	default:
		log.Warn().Msg("feed: broadcast channel full, dropping message")
	}
}

// RunDepthSnapshots periodically publishes a depth snapshot of every
// tracked ticker, until ctx is cancelled.
func (f *Feed) RunDepthSnapshots(ctx context.Context, registry *book.Registry, levels int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, sym := range registry.Tickers() {
				depth, ok := registry.Depth(sym, levels)
				if !ok {
					continue
				}
				f.PublishDepth(sym, depth)
			}
		}
	}
}

func (f *Feed) writePump(c *client) {
	pingTicker := time.NewTicker(pingPeriod)
	defer func() {
		pingTicker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains and discards client frames (this feed is publish-only)
// purely to notice disconnects and keep the pong deadline alive.
func (f *Feed) readPump(c *client) {
	defer func() {
		f.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
