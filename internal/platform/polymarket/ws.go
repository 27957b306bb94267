package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"updownbot/internal/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// QuoteHandler receives the reduced top of book for one token whenever the
// feed delivers a book snapshot.
type QuoteHandler func(tokenID string, price domain.TokenPrice)

// wsSubscribe is the market-channel subscription frame.
type wsSubscribe struct {
	Type     string   `json:"type"`
	AssetIDs []string `json:"assets_ids"`
}

// wsBookEvent is a book snapshot as delivered on the market channel. Frames
// may carry a single event or an array of them.
type wsBookEvent struct {
	EventType string     `json:"event_type"`
	AssetID   string     `json:"asset_id"`
	Bids      []APILevel `json:"bids"`
	Asks      []APILevel `json:"asks"`
}

// QuoteFeed streams top-of-book updates from the CLOB market WebSocket. It
// is a push supplement to REST polling: the poll loop remains authoritative
// and the engine works without the feed entirely.
type QuoteFeed struct {
	wsURL   string
	handler QuoteHandler

	mu       sync.RWMutex
	conn     *websocket.Conn
	assetIDs []string
	closed   bool

	done chan struct{}
}

// NewQuoteFeed creates a feed for the market WebSocket endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewQuoteFeed(wsURL string, handler QuoteHandler) *QuoteFeed {
	return &QuoteFeed{
		wsURL:   wsURL,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Connect dials the WebSocket, restores the current subscription, and starts
// the read and ping loops.
func (f *QuoteFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("polymarket/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}
	f.conn = conn

	f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		f.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go f.readLoop(conn)
	go f.pingLoop(conn)

	if len(f.assetIDs) > 0 {
		if err := f.sendSubscribe(f.assetIDs); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscription: %w", err)
		}
	}
	return nil
}

// Subscribe replaces the tracked token set with assetIDs. On period rollover
// the caller resubscribes with the fresh markets' token ids; the stale
// subscription is dropped by reconnecting.
func (f *QuoteFeed) Subscribe(assetIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.assetIDs = append([]string(nil), assetIDs...)
	if f.conn == nil {
		return nil
	}
	return f.sendSubscribe(f.assetIDs)
}

// Close shuts the feed down permanently.
func (f *QuoteFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	close(f.done)

	if f.conn != nil {
		_ = f.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return f.conn.Close()
	}
	return nil
}

// sendSubscribe writes a subscription frame. Caller must hold f.mu.
func (f *QuoteFeed) sendSubscribe(assetIDs []string) error {
	f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(wsSubscribe{Type: "market", AssetIDs: assetIDs})
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}
	return f.conn.WriteMessage(websocket.TextMessage, data)
}

func (f *QuoteFeed) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-f.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
				return
			default:
			}
			f.reconnect()
			return
		}

		f.handleFrame(message)
	}
}

func (f *QuoteFeed) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame parses one frame, which may be a single event or an array, and
// forwards book snapshots to the handler. Non-book events and unparseable
// frames are dropped silently.
func (f *QuoteFeed) handleFrame(raw []byte) {
	var events []wsBookEvent
	if err := json.Unmarshal(raw, &events); err != nil {
		var single wsBookEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			return
		}
		events = []wsBookEvent{single}
	}

	for _, ev := range events {
		if ev.EventType != "book" || ev.AssetID == "" {
			continue
		}
		book := APIBook{AssetID: ev.AssetID, Bids: ev.Bids, Asks: ev.Asks}
		f.handler(ev.AssetID, book.ToDomainPrice())
	}
}

// reconnect redials with exponential backoff until it succeeds or the feed
// is closed.
func (f *QuoteFeed) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-f.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := f.Connect(ctx)
		cancel()
		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
