package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultStreamURL is the CLOB market data websocket.
const DefaultStreamURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// StreamTrade is one last-trade-price tick from the market channel.
type StreamTrade struct {
	AssetID   string
	Market    string
	Price     float64
	Size      float64
	Side      string // "buy" or "sell"
	Timestamp time.Time
}

// Stream is a subscription to the market websocket. Subscribe before
// calling Listen; Listen owns the read loop until the context ends or the
// connection drops.
type Stream struct {
	conn   *websocket.Conn
	logger *slog.Logger

	mu   sync.Mutex
	subs map[string]chan StreamTrade
}

// DialStream connects to the market websocket at url. An empty url means
// DefaultStreamURL.
func DialStream(ctx context.Context, url string, logger *slog.Logger) (*Stream, error) {
	if url == "" {
		url = DefaultStreamURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Stream{
		conn:   conn,
		logger: logger,
		subs:   make(map[string]chan StreamTrade),
	}, nil
}

// Subscribe registers the given asset ids on the market channel and returns
// a single channel carrying their trades. Slow consumers lose ticks rather
// than stalling the read loop.
func (s *Stream) Subscribe(assetIDs ...string) (<-chan StreamTrade, error) {
	ch := make(chan StreamTrade, 256)

	s.mu.Lock()
	for _, id := range assetIDs {
		s.subs[id] = ch
	}
	s.mu.Unlock()

	sub := map[string]any{
		"type":       "subscribe",
		"channel":    "market",
		"assets_ids": assetIDs,
	}
	if err := s.conn.WriteJSON(sub); err != nil {
		return nil, err
	}
	s.logger.Info("subscribed to market stream", "assets", len(assetIDs))
	return ch, nil
}

// Listen reads until ctx ends or the connection drops, routing
// last_trade_price events to their subscribers. It returns nil on a clean
// context cancellation.
func (s *Stream) Listen(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("websocket read failed", "error", err)
			}
			return err
		}
		for _, msg := range decodeStreamMessages(raw) {
			if msg.EventType != "last_trade_price" {
				continue
			}
			trade, ok := msg.trade()
			if !ok {
				continue
			}
			s.mu.Lock()
			ch := s.subs[trade.AssetID]
			s.mu.Unlock()
			if ch == nil {
				continue
			}
			select {
			case ch <- trade:
			default:
				s.logger.Warn("dropping tick, subscriber full", "asset_id", trade.AssetID)
			}
		}
	}
}

// Close tears down the connection. Subscriber channels are not closed;
// readers should select on Listen's return instead.
func (s *Stream) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// streamMsg is the wire shape of a market channel event. Only the fields
// last_trade_price carries are decoded.
type streamMsg struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Market    string      `json:"market"`
	Price     json.Number `json:"price"`
	Size      json.Number `json:"size"`
	Side      string      `json:"side"`
	Timestamp json.Number `json:"timestamp"`
}

// decodeStreamMessages accepts both the array frames the server usually
// sends and bare single objects. Unparseable frames (PONG and friends)
// decode to nothing.
func decodeStreamMessages(raw []byte) []streamMsg {
	var many []streamMsg
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one streamMsg
	if err := json.Unmarshal(raw, &one); err == nil && one.EventType != "" {
		return []streamMsg{one}
	}
	return nil
}

func (m streamMsg) trade() (StreamTrade, bool) {
	price, err := m.Price.Float64()
	if err != nil || price <= 0 {
		return StreamTrade{}, false
	}
	size, _ := m.Size.Float64()

	t := StreamTrade{
		AssetID: m.AssetID,
		Market:  m.Market,
		Price:   price,
		Size:    size,
		Side:    strings.ToLower(m.Side),
	}
	if ms, err := m.Timestamp.Int64(); err == nil && ms > 0 {
		if ms > epochMillisCutoff {
			t.Timestamp = time.Unix(0, ms*int64(time.Millisecond)).UTC()
		} else {
			t.Timestamp = time.Unix(ms, 0).UTC()
		}
	}
	return t, t.AssetID != ""
}
