package types

import (
	"encoding/json"
	"time"
)

// Trading signal actions.
const (
	SignalBuy       = "BUY"
	SignalSell      = "SELL"
	SignalHold      = "HOLD"
	SignalRebalance = "REBALANCE"
)

// TradingSignal is an engine-generated recommendation sent to the agent
// runtime for execution.
type TradingSignal struct {
	Asset        string    `json:"asset"`
	Action       string    `json:"action"`
	Confidence   float64   `json:"confidence"`
	TargetPrice  float64   `json:"target_price,omitempty"`
	Reasoning    string    `json:"reasoning"`
	ModelVersion string    `json:"model_version"`
	Timestamp    time.Time `json:"timestamp"`
}

// ChannelMessage is the envelope exchanged with the agent runtime over the
// persistent channel.
type ChannelMessage struct {
	ID          string            `json:"id"`
	RoomID      string            `json:"room_id"`
	AgentID     string            `json:"agent_id"`
	UserID      string            `json:"user_id"`
	Content     json.RawMessage   `json:"content"`
	MessageType string            `json:"message_type"`
	Timestamp   time.Time         `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
