package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"QuantSig/internal/domain/models"
	drepo "QuantSig/internal/domain/repository"
	applogger "QuantSig/pkg/logger"
)

const streamBuffer = 1024

// Client is the Finnhub-backed MarketStream feeding the tick pipeline.
// Connection state is guarded so the ping loop and read loop can share one
// socket with Reconnect.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.MarketStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect dials the websocket endpoint.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.l.Info("market stream connected", applogger.Strings("symbols", c.symbols))
	return nil
}

// Subscribe registers every configured symbol on the open connection.
func (c *Client) Subscribe(ctx context.Context) error {
	conn := c.current()
	if conn == nil {
		return fmt.Errorf("finnhub: not connected")
	}
	for _, s := range c.symbols {
		if err := conn.WriteJSON(map[string]string{"type": "subscribe", "symbol": s}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
	}
	c.l.Info("market stream subscribed", applogger.Int("symbols", len(c.symbols)))
	return nil
}

// Finnhub trade frame: single-letter keys, millisecond timestamps.
type wireTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"`
}

type wireFrame struct {
	Type string      `json:"type"`
	Data []wireTrade `json:"data"`
}

// Read streams decoded ticks and a terminal error. The tick channel drops on
// backpressure rather than stalling the socket; the downstream pipeline is
// the component that buffers.
func (c *Client) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	ticks := make(chan *models.Trade, streamBuffer)
	errs := make(chan error, 1)

	go c.pingLoop(ctx)

	go func() {
		defer close(ticks)
		defer close(errs)
		dropped := 0
		for {
			if ctx.Err() != nil {
				return
			}
			conn := c.current()
			if conn == nil {
				errs <- fmt.Errorf("finnhub: connection lost")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("finnhub read: %w", err)
				return
			}
			var frame wireFrame
			if err := json.Unmarshal(b, &frame); err != nil || frame.Type != "trade" {
				// ping acks and status frames arrive on the same socket
				continue
			}
			for _, d := range frame.Data {
				t := &models.Trade{Symbol: d.S, Timestamp: d.T / 1000, Price: d.P, Volume: d.V}
				select {
				case ticks <- t:
				default:
					dropped++
					if dropped%1000 == 1 {
						c.l.Warn("market stream backpressure",
							applogger.String("symbol", d.S),
							applogger.Int("dropped", dropped))
					}
				}
			}
		}
	}()

	return ticks, errs
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if conn := c.current(); conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

// Reconnect tears the socket down, waits the configured delay and re-dials
// with a fresh subscription.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
