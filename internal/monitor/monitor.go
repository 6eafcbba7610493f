// Package monitor exposes the dashboard API: one endpoint dispatched on an
// action parameter, every payload wrapped in the soft-fail envelope.
package monitor

import (
	"strconv"
	"strings"
	"time"

	"github.com/botwatch/botwatch-api/internal/advisory"
	"github.com/botwatch/botwatch-api/internal/ledger"
	"github.com/botwatch/botwatch-api/internal/metrics"
	"github.com/botwatch/botwatch-api/internal/positions"
	"github.com/botwatch/botwatch-api/internal/stats"
	"github.com/botwatch/botwatch-api/internal/types"
	"github.com/botwatch/botwatch-api/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	defaultLimit  = 15
	defaultHours  = 24
	defaultSymbol = "BTCUSDT"
	seriesCap     = 1000
	statsWindow   = 24 * time.Hour
)

// Service bundles the data sources behind the dashboard endpoint.
type Service struct {
	ledger    *ledger.Database
	positions *positions.Service
	stats     *stats.Service
	now       func() time.Time
}

func NewService(db *ledger.Database, pos *positions.Service, st *stats.Service) *Service {
	return &Service{
		ledger:    db,
		positions: pos,
		stats:     st,
		now:       time.Now,
	}
}

// GinHandlers contains HTTP handlers for the dashboard endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// DashboardHandler dispatches on the action query parameter. A missing or
// unknown action is the only client error; every other failure is folded
// into a success-shaped soft-fail payload.
func (h *GinHandlers) DashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		action := c.Query("action")
		switch action {
		case "":
			metrics.DashboardRequests.WithLabelValues("none", "bad_request").Inc()
			response.BadRequest(c, "No action specified")
		case "positions":
			h.positions(c)
		case "stats":
			h.stats(c)
		case "trades":
			h.trades(c)
		case "ai_responses":
			h.aiResponses(c)
		case "errors":
			h.errors(c)
		case "market_data":
			h.marketData(c)
		default:
			metrics.DashboardRequests.WithLabelValues(action, "bad_request").Inc()
			response.BadRequest(c, "Unknown action")
		}
	}
}

// HealthHandler reports liveness and storage reachability.
func (h *GinHandlers) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.service.ledger.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}

func (h *GinHandlers) positions(c *gin.Context) {
	views, err := h.service.positions.Aggregate(c.Request.Context())
	if views == nil {
		views = []positions.View{}
	}

	body := gin.H{"positions": views}
	if err != nil {
		// Partial data still renders; the error rides along in the envelope.
		log.Error().Err(err).Msg("position aggregation degraded")
		body["error"] = err.Error()
		metrics.DashboardRequests.WithLabelValues("positions", "soft_fail").Inc()
	} else {
		metrics.DashboardRequests.WithLabelValues("positions", "ok").Inc()
	}
	response.OK(c, body)
}

func (h *GinHandlers) stats(c *gin.Context) {
	overview, err := h.service.stats.Window(statsWindow)

	body := gin.H{"stats": overview}
	if err != nil {
		log.Error().Err(err).Msg("stats computation degraded")
		body["error"] = err.Error()
		metrics.DashboardRequests.WithLabelValues("stats", "soft_fail").Inc()
	} else {
		metrics.DashboardRequests.WithLabelValues("stats", "ok").Inc()
	}
	response.OK(c, body)
}

func (h *GinHandlers) trades(c *gin.Context) {
	limit := intQuery(c, "limit", defaultLimit)
	offset := intQuery(c, "offset", 0)
	bot := c.Query("bot")

	trades, total, err := h.service.ledger.Trades(bot, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch trades")
		metrics.DashboardRequests.WithLabelValues("trades", "soft_fail").Inc()
		response.SoftFail(c, "Failed to fetch trades", gin.H{
			"trades": []types.Trade{},
			"total":  0,
		})
		return
	}
	if trades == nil {
		trades = []types.Trade{}
	}

	metrics.DashboardRequests.WithLabelValues("trades", "ok").Inc()
	response.OK(c, gin.H{"trades": trades, "total": total})
}

func (h *GinHandlers) aiResponses(c *gin.Context) {
	limit := intQuery(c, "limit", defaultLimit)
	offset := intQuery(c, "offset", 0)

	rows, total, err := h.service.ledger.Advisories(limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch advisory records")
		metrics.DashboardRequests.WithLabelValues("ai_responses", "soft_fail").Inc()
		response.SoftFail(c, "Failed to fetch AI responses", gin.H{
			"responses": []advisory.Record{},
			"total":     0,
		})
		return
	}

	records := make([]advisory.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, advisory.Normalize(row))
	}

	metrics.DashboardRequests.WithLabelValues("ai_responses", "ok").Inc()
	response.OK(c, gin.H{"responses": records, "total": total})
}

func (h *GinHandlers) errors(c *gin.Context) {
	limit := intQuery(c, "limit", defaultLimit)
	offset := intQuery(c, "offset", 0)

	rows, total, err := h.service.ledger.Errors(limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch error log")
		metrics.DashboardRequests.WithLabelValues("errors", "soft_fail").Inc()
		response.SoftFail(c, "Failed to fetch errors", gin.H{
			"errors": []types.APIError{},
			"total":  0,
		})
		return
	}
	if rows == nil {
		rows = []types.APIError{}
	}

	metrics.DashboardRequests.WithLabelValues("errors", "ok").Inc()
	response.OK(c, gin.H{"errors": rows, "total": total})
}

// seriesPoint is one chart sample of the indicator time series.
type seriesPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Volatility float64   `json:"volatility"`
	RSI        *float64  `json:"rsi"`
	ATR        *float64  `json:"atr"`
	MACD       *float64  `json:"macd"`
}

func (h *GinHandlers) marketData(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		symbol = defaultSymbol
	}
	hours := intQuery(c, "hours", defaultHours)
	if hours <= 0 {
		hours = defaultHours
	}

	since := h.service.now().Add(-time.Duration(hours) * time.Hour)
	rows, err := h.service.ledger.MarketSeries(symbol, since, seriesCap)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("failed to fetch market series")
		metrics.DashboardRequests.WithLabelValues("market_data", "soft_fail").Inc()
		response.SoftFail(c, "Failed to fetch market data", gin.H{
			"data": []seriesPoint{},
		})
		return
	}

	points := make([]seriesPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, seriesPoint{
			Timestamp:  row.Timestamp,
			Price:      row.Price,
			Volume:     row.Volume24h,
			Volatility: row.Volatility,
			RSI:        row.RSI,
			ATR:        row.ATR,
			MACD:       row.MACD,
		})
	}

	metrics.DashboardRequests.WithLabelValues("market_data", "ok").Inc()
	response.OK(c, gin.H{"data": points})
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
