/*

This file contains the agent runtime client: REST calls for market data,
trading execution, and rebalancing, plus a persistent WebSocket channel for
trading signals, risk alerts, and inbound runtime events. Reconnection is
bounded: after the configured attempts are exhausted the channel stays
disconnected and every outbound send returns ErrNotConnected.

*/

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sei-dlp/engine/internal/logger"
	"github.com/sei-dlp/engine/internal/observability"
	"github.com/sei-dlp/engine/internal/types"
)

// ErrNotConnected is returned by every outbound channel send while the
// WebSocket is down.
var ErrNotConnected = errors.New("not connected to agent runtime")

// Message types exchanged over the runtime channel.
const (
	MsgMarketDataUpdate = "MARKET_DATA_UPDATE"
	MsgPositionUpdate   = "POSITION_UPDATE"
	MsgRebalanceRequest = "REBALANCE_REQUEST"
	MsgTradingSignal    = "TRADING_SIGNAL"
	MsgRiskAlert        = "RISK_ALERT"
)

var agentLogger = logger.GetForComponent("agent_client")

// Handler processes an inbound channel message. Handlers run on the read
// loop goroutine and must not block.
type Handler func(types.ChannelMessage)

// Config holds connection settings for the agent runtime.
type Config struct {
	BaseURL           string
	WebsocketURL      string
	APIKey            string
	AgentID           string
	RoomID            string
	Timeout           time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	PingInterval      time.Duration
	WriteTimeout      time.Duration
}

// DefaultConfig returns the runtime defaults used when no environment
// overrides apply.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "http://localhost:3000",
		WebsocketURL:      "ws://localhost:3001",
		AgentID:           "dlp_engine",
		RoomID:            "sei_dlp_main",
		Timeout:           30 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    5 * time.Second,
		PingInterval:      30 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client talks to the agent runtime. Safe for concurrent use after Connect.
type Client struct {
	cfg  Config
	http *http.Client

	conn   *websocket.Conn
	connMu sync.Mutex

	connected atomic.Bool
	closed    atomic.Bool

	handlers   map[string]Handler
	handlersMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewClient builds a Client from config. Connect must be called before use.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
}

// Connect dials the WebSocket channel and starts the read and ping loops.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.New("client closed")
	}

	if err := c.dial(ctx); err != nil {
		return err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	agentLogger.Info().Str("url", c.cfg.WebsocketURL).Msg("Connected to agent runtime")
	return nil
}

// Disconnect closes the channel and waits for the background loops to exit.
func (c *Client) Disconnect() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.connected.Store(false)
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	agentLogger.Info().Msg("Disconnected from agent runtime")
	return nil
}

// Connected reports whether the channel is currently usable.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// RegisterHandler installs a handler for a message type, replacing any
// previous one. Must be called before Connect to avoid missing messages.
func (c *Client) RegisterHandler(messageType string, h Handler) {
	c.handlersMu.Lock()
	c.handlers[messageType] = h
	c.handlersMu.Unlock()
	agentLogger.Debug().Str("messageType", messageType).Msg("Registered channel handler")
}

func (c *Client) dial(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.WebsocketURL, c.authHeaders())
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	c.connected.Store(true)
	return nil
}

func (c *Client) authHeaders() http.Header {
	h := http.Header{}
	if c.cfg.APIKey != "" {
		h.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return h
}

// readLoop reads channel messages and dispatches them to handlers. On a read
// error it attempts a bounded reconnect; exhausting the attempts leaves the
// channel disconnected.
func (c *Client) readLoop() {
	defer c.wg.Done()

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			agentLogger.Warn().Err(err).Msg("Channel read failed, attempting reconnect")
			c.connected.Store(false)

			if !c.reconnect() {
				agentLogger.Error().
					Int("attempts", c.cfg.ReconnectAttempts).
					Msg("Reconnect attempts exhausted, channel stays disconnected")
				return
			}
			continue
		}

		var msg types.ChannelMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			agentLogger.Warn().Err(err).Msg("Discarding malformed channel message")
			continue
		}
		c.dispatch(msg)
	}
}

// reconnect retries the dial with exponential backoff. Returns false once
// all attempts are spent or the client is closed.
func (c *Client) reconnect() bool {
	for attempt := 0; attempt < c.cfg.ReconnectAttempts; attempt++ {
		observability.RecordChannelReconnect()
		delay := c.cfg.ReconnectDelay * (1 << attempt)

		select {
		case <-c.done:
			return false
		case <-time.After(delay):
		}

		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.dial(ctx)
		cancel()

		if err == nil {
			agentLogger.Info().Int("attempt", attempt+1).Msg("Channel reconnected")
			return true
		}
		agentLogger.Warn().Err(err).Int("attempt", attempt+1).Msg("Reconnect attempt failed")
	}
	return false
}

func (c *Client) dispatch(msg types.ChannelMessage) {
	c.handlersMu.RLock()
	h, ok := c.handlers[msg.MessageType]
	c.handlersMu.RUnlock()

	if !ok {
		agentLogger.Debug().Str("messageType", msg.MessageType).Msg("No handler for channel message")
		return
	}
	h(msg)
}

// pingLoop keeps the channel alive. A failed ping is left for the read loop
// to notice and handle.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// SendMessage pushes an envelope over the channel.
func (c *Client) SendMessage(msg types.ChannelMessage) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("channel write: %w", err)
	}
	return nil
}

// SendTradingSignal wraps a trading signal in a channel envelope.
func (c *Client) SendTradingSignal(signal types.TradingSignal) error {
	content, err := json.Marshal(map[string]any{
		"signal": signal,
		"type":   "trading_signal",
	})
	if err != nil {
		return fmt.Errorf("marshal trading signal: %w", err)
	}

	return c.SendMessage(types.ChannelMessage{
		ID:          fmt.Sprintf("signal_%d", time.Now().UTC().UnixNano()),
		RoomID:      c.cfg.RoomID,
		AgentID:     c.cfg.AgentID,
		UserID:      "system",
		Content:     content,
		MessageType: MsgTradingSignal,
		Timestamp:   time.Now().UTC(),
		Metadata:    map[string]string{"source": "dlp_engine"},
	})
}

// SendRiskAlert wraps risk metrics in a channel envelope.
func (c *Client) SendRiskAlert(metrics types.RiskMetrics, alertLevel string) error {
	content, err := json.Marshal(map[string]any{
		"risk_metrics": metrics,
		"alert_level":  alertLevel,
		"type":         "risk_alert",
	})
	if err != nil {
		return fmt.Errorf("marshal risk alert: %w", err)
	}

	return c.SendMessage(types.ChannelMessage{
		ID:          fmt.Sprintf("risk_alert_%d", time.Now().UTC().UnixNano()),
		RoomID:      c.cfg.RoomID,
		AgentID:     c.cfg.AgentID,
		UserID:      "system",
		Content:     content,
		MessageType: MsgRiskAlert,
		Timestamp:   time.Now().UTC(),
		Metadata:    map[string]string{"source": "dlp_engine"},
	})
}

// GetMarketData fetches oracle snapshots for the given assets.
func (c *Client) GetMarketData(ctx context.Context, assets []string) ([]types.MarketSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/oracle/market-data?assets=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.QueryEscape(strings.Join(assets, ",")))

	var payload struct {
		MarketData []types.MarketSnapshot `json:"market_data"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("failed to get market data: %w", err)
	}
	return payload.MarketData, nil
}

// GetArbitrageOpportunities fetches funding-rate arbitrage candidates.
func (c *Client) GetArbitrageOpportunities(ctx context.Context) ([]types.ArbitrageOpportunity, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/arbitrage/opportunities"

	var payload struct {
		Opportunities []types.ArbitrageOpportunity `json:"opportunities"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("failed to get arbitrage opportunities: %w", err)
	}
	return payload.Opportunities, nil
}

// ExecuteSpotTrade submits a spot swap to the runtime's DEX action.
func (c *Client) ExecuteSpotTrade(ctx context.Context, fromAsset, toAsset string, amount, maxSlippage float64) (map[string]any, error) {
	body := map[string]any{
		"from_asset":   fromAsset,
		"to_asset":     toAsset,
		"amount":       amount,
		"max_slippage": maxSlippage,
		"agent_id":     c.cfg.AgentID,
	}
	result, err := c.postJSON(ctx, "/api/trading/dragonswap/swap", body)
	if err != nil {
		return nil, fmt.Errorf("spot trade failed: %w", err)
	}
	agentLogger.Info().Str("from", fromAsset).Str("to", toAsset).Msg("Spot trade executed")
	return result, nil
}

// ExecutePerpTrade submits a perpetual futures order.
func (c *Client) ExecutePerpTrade(ctx context.Context, asset, side string, size, leverage float64, orderType string) (map[string]any, error) {
	body := map[string]any{
		"asset":      asset,
		"side":       side,
		"size":       size,
		"leverage":   leverage,
		"order_type": orderType,
		"agent_id":   c.cfg.AgentID,
	}
	result, err := c.postJSON(ctx, "/api/trading/perpetual/position", body)
	if err != nil {
		return nil, fmt.Errorf("perp trade failed: %w", err)
	}
	agentLogger.Info().Str("asset", asset).Str("side", side).Float64("leverage", leverage).Msg("Perp trade executed")
	return result, nil
}

// TriggerRebalance asks the runtime to rebalance toward the target
// allocations.
func (c *Client) TriggerRebalance(ctx context.Context, strategy string, targetAllocations map[string]float64, force bool) (map[string]any, error) {
	body := map[string]any{
		"strategy":           strategy,
		"target_allocations": targetAllocations,
		"force_rebalance":    force,
		"agent_id":           c.cfg.AgentID,
	}
	result, err := c.postJSON(ctx, "/api/portfolio/rebalance", body)
	if err != nil {
		return nil, fmt.Errorf("portfolio rebalance failed: %w", err)
	}
	agentLogger.Info().Str("strategy", strategy).Msg("Portfolio rebalance triggered")
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result map[string]any
	if err := c.doJSON(req, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("runtime returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
