package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// WSCommand is a subscribe or unsubscribe command on the market channel.
type WSCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Assets  []string `json:"assets_ids"`
}

// LastTrade is a trade print pushed on the last_trade_price channel.
type LastTrade struct {
	AssetID   string
	Price     float64
	Timestamp int64
	Side      string
}

// lastTradeMessage is the wire shape of a last_trade_price event. Price and
// timestamp arrive as strings.
type lastTradeMessage struct {
	EventType string    `json:"event_type"`
	AssetID   string    `json:"asset_id"`
	Price     flexFloat `json:"price"`
	Timestamp string    `json:"timestamp"`
	Side      string    `json:"side"`
}

// LastTradeHandler receives each trade print.
type LastTradeHandler func(LastTrade)

// WSClient is a client for the CLOB market WebSocket, limited to the
// last_trade_price channel. It holds a single connection: reconnection is
// the caller's job, which keeps this type free of backoff state.
type WSClient struct {
	wsURL   string
	handler LastTradeHandler

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

// NewWSClient creates a client for the given endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string, handler LastTradeHandler) *WSClient {
	return &WSClient{
		wsURL:   wsURL,
		handler: handler,
		done:    make(chan struct{}),
	}
}

// Connect dials the endpoint and subscribes to last trade prices for the
// given asset IDs.
func (w *WSClient) Connect(ctx context.Context, assetIDs []string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cmd := WSCommand{Type: "subscribe", Channel: "last_trade_price", Assets: assetIDs}
	data, err := json.Marshal(cmd)
	if err != nil {
		conn.Close()
		return fmt.Errorf("polymarket/ws: marshal subscribe: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return fmt.Errorf("polymarket/ws: subscribe: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	go w.pingLoop(conn)
	return nil
}

// Listen reads messages until the connection drops, the client is closed,
// or ctx is cancelled. It returns the read error that ended the loop.
func (w *WSClient) Listen(ctx context.Context) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-w.done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return nil
			default:
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("polymarket/ws: read: %w", err)
		}
		w.handleMessage(raw)
	}
}

// Close sends a close frame and tears down the connection.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw frame and dispatches trade prints. The feed
// pushes arrays and single objects interchangeably; both are accepted and
// anything else is dropped.
func (w *WSClient) handleMessage(raw []byte) {
	var msgs []lastTradeMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		var single lastTradeMessage
		if err := json.Unmarshal(raw, &single); err != nil {
			return
		}
		msgs = []lastTradeMessage{single}
	}

	for _, m := range msgs {
		if m.EventType != "last_trade_price" || m.AssetID == "" {
			continue
		}
		ts := parseMillis(m.Timestamp)
		if ts == 0 {
			continue
		}
		w.handler(LastTrade{
			AssetID:   m.AssetID,
			Price:     float64(m.Price),
			Timestamp: ts,
			Side:      m.Side,
		})
	}
}

// parseMillis converts a millisecond timestamp string to unix seconds.
func parseMillis(s string) int64 {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return 0
	}
	return ms / 1000
}
