package types

import (
	"time"
)

// Trade is a single row in the trade ledger. Rows are written by the bots
// and are read-only from the monitoring side.
type Trade struct {
	ID         uint       `gorm:"primaryKey" json:"-"`
	BotName    string     `gorm:"index" json:"bot_name"`
	Symbol     string     `gorm:"index" json:"symbol"`
	Side       string     `json:"side"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  *float64   `json:"exit_price"`
	Quantity   float64    `json:"quantity"`
	Pnl        *float64   `json:"pnl"`
	PnlPercent *float64   `json:"pnl_percent"`
	Leverage   *int       `json:"leverage"`
	Status     string     `json:"status"` // open or closed
	EntryTime  time.Time  `gorm:"index" json:"timestamp"`
	ExitTime   *time.Time `json:"exit_time"`
}

func (Trade) TableName() string { return "trades_history" }

// IsClosed reports whether the trade has been closed out.
func (t *Trade) IsClosed() bool { return t.Status == StatusClosed }

// OpenTrade is the reduced open-position view attached to per-symbol
// position rows. Side is already normalized.
type OpenTrade struct {
	Symbol     string  `json:"-"`
	BotName    string  `json:"bot_name"`
	Side       Side    `json:"side"`
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	Leverage   int     `json:"leverage"`
}

// MarketSnapshot is one stored indicator row for a symbol. The bots append
// a row per polling cycle, so the latest row per symbol is the stored
// baseline when the live feed is unavailable.
type MarketSnapshot struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Symbol     string    `gorm:"index:idx_market_symbol_time" json:"symbol"`
	Price      float64   `json:"price"`
	Volume24h  float64   `gorm:"column:volume_24h" json:"volume_24h"`
	Volatility float64   `json:"volatility"`
	RSI        *float64  `gorm:"column:rsi" json:"rsi"`
	ATR        *float64  `gorm:"column:atr" json:"atr"`
	MACD       *float64  `gorm:"column:macd" json:"macd"`
	Timestamp  time.Time `gorm:"index:idx_market_symbol_time" json:"timestamp"`
}

func (MarketSnapshot) TableName() string { return "market_history" }

// AIResponse is one stored advisory record. FullResponse holds the raw
// model payload as JSON text; its shape is not fixed, so it stays opaque
// here and is interpreted by the advisory normalizer.
type AIResponse struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Timestamp         time.Time `gorm:"index" json:"timestamp"`
	RequestType       string    `json:"request_type"`
	Symbols           string    `json:"-"` // comma-separated as stored
	Prompt            string    `json:"prompt"`
	RecommendedSymbol string    `json:"symbol"`
	RecommendedSide   string    `json:"side"`
	EntryPrice        *float64  `json:"entry_price"`
	StopLoss          *float64  `json:"stop_loss"`
	TakeProfit        *float64  `json:"take_profit"`
	Confidence        *float64  `json:"confidence"`
	Reasoning         string    `json:"-"`
	FullResponse      string    `json:"-"`
}

func (AIResponse) TableName() string { return "ai_responses" }

// APIError is one row of the append-only API error log.
type APIError struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	APIMethod    string    `gorm:"column:api_method" json:"api_method"`
	Symbol       string    `json:"symbol"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
}

func (APIError) TableName() string { return "api_errors" }
