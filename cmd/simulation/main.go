package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/botwatch/botwatch-api/internal/database"
	"github.com/botwatch/botwatch-api/internal/ledger"
	"github.com/botwatch/botwatch-api/internal/monitor"
	"github.com/botwatch/botwatch-api/internal/positions"
	"github.com/botwatch/botwatch-api/internal/stats"
	"github.com/botwatch/botwatch-api/internal/ticker"
	"github.com/botwatch/botwatch-api/internal/types"
	"gorm.io/gorm"
)

const (
	serverAddress = "http://localhost:8080"
	dbPath        = "simulation.db"
	tradesToSeed  = 120
	callsPerRoute = 25
)

var (
	symbols = []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "XRPUSDT", "DOGEUSDT"}
	bots    = []string{"main", "iliya"}
	sides   = []string{"long", "short", "buy", "sell"}
	actions = []string{"positions", "stats", "trades", "ai_responses", "errors", "market_data"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient polls the dashboard endpoint and tracks per-action latency
type simulationClient struct {
	baseURL string
	client  *http.Client
	stats   map[string]*routeStats
}

func newSimulationClient() *simulationClient {
	sc := &simulationClient{
		baseURL: serverAddress,
		client:  &http.Client{Timeout: 10 * time.Second},
		stats:   make(map[string]*routeStats),
	}
	for _, action := range actions {
		sc.stats[action] = &routeStats{name: action}
	}
	return sc
}

// callDashboard performs one dashboard request for the given action and
// verifies the envelope decodes and carries no error field.
func (sc *simulationClient) callDashboard(action, extra string) error {
	start := time.Now()
	defer func() {
		sc.stats[action].addDuration(time.Since(start))
	}()

	url := fmt.Sprintf("%s/api/v1/dashboard?action=%s%s", sc.baseURL, action, extra)
	resp, err := sc.client.Get(url)
	if err != nil {
		sc.stats[action].failures++
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		sc.stats[action].failures++
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		sc.stats[action].failures++
		return fmt.Errorf("%s failed with status %d: %s", action, resp.StatusCode, string(body))
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		sc.stats[action].failures++
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(body))
	}
	if raw, ok := envelope["error"]; ok {
		sc.stats[action].failures++
		return fmt.Errorf("%s returned soft failure: %s", action, string(raw))
	}

	return nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nDashboard Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Action", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, action := range actions {
		stats := sc.stats[action]
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Microsecond),
			max.Round(time.Microsecond),
			mean.Round(time.Microsecond),
			median.Round(time.Microsecond),
			p95.Round(time.Microsecond),
			p99.Round(time.Microsecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main seeds a demo ledger, starts the monitoring server against it, and
// exercises every dashboard action while measuring latency
func main() {
	defer os.Remove(dbPath)

	db, err := database.NewDatabase(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	if err := seedLedger(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed demo ledger")
	}
	log.Info().Int("trades", tradesToSeed).Msg("Demo ledger seeded")

	// Start the server in a goroutine
	go func() {
		if err := startServer(db); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	simClient := newSimulationClient()

	failures := 0
	for i := 0; i < callsPerRoute; i++ {
		for _, action := range actions {
			extra := ""
			switch action {
			case "trades":
				extra = fmt.Sprintf("&limit=15&offset=%d&bot=%s", (i%3)*15, bots[i%len(bots)])
			case "ai_responses", "errors":
				extra = "&limit=15&offset=0"
			case "market_data":
				extra = "&symbol=" + symbols[i%len(symbols)] + "&hours=24"
			}

			if err := simClient.callDashboard(action, extra); err != nil {
				failures++
				log.Error().Err(err).Str("action", action).Msg("Dashboard call failed")
			}
		}
	}

	log.Info().
		Int("total_calls", callsPerRoute*len(actions)).
		Int("failures", failures).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// seedLedger fills the demo database with plausible multi-bot history:
// open and closed trades, indicator rows per symbol, advisory records and
// a few API errors
func seedLedger(db *gorm.DB) error {
	now := time.Now().UTC()

	for i := 0; i < tradesToSeed; i++ {
		entry := now.Add(-time.Duration(rand.Intn(72)) * time.Hour)
		trade := types.Trade{
			BotName:    bots[rand.Intn(len(bots))],
			Symbol:     symbols[rand.Intn(len(symbols))],
			Side:       sides[rand.Intn(len(sides))],
			EntryPrice: 100 + rand.Float64()*50000,
			Quantity:   rand.Float64() * 2,
			Status:     types.StatusOpen,
			EntryTime:  entry,
		}
		if lev := rand.Intn(10) + 1; lev > 1 {
			trade.Leverage = &lev
		}

		// Roughly two thirds of the history is closed out.
		if rand.Intn(3) > 0 {
			exit := entry.Add(time.Duration(rand.Intn(240)) * time.Minute)
			exitPrice := trade.EntryPrice * (1 + (rand.Float64()*0.1 - 0.05))
			pnl := (exitPrice - trade.EntryPrice) * trade.Quantity
			pct := (exitPrice - trade.EntryPrice) / trade.EntryPrice * 100
			trade.Status = types.StatusClosed
			trade.ExitTime = &exit
			trade.ExitPrice = &exitPrice
			trade.Pnl = &pnl
			trade.PnlPercent = &pct
		}

		if err := db.Create(&trade).Error; err != nil {
			return err
		}
	}

	for _, symbol := range symbols {
		base := 100 + rand.Float64()*50000
		for age := 36 * time.Hour; age > 0; age -= 30 * time.Minute {
			rsi := 30 + rand.Float64()*40
			snapshot := types.MarketSnapshot{
				Symbol:     symbol,
				Price:      base * (1 + (rand.Float64()*0.04 - 0.02)),
				Volume24h:  rand.Float64() * 1e9,
				Volatility: rand.Float64() * 5,
				RSI:        &rsi,
				Timestamp:  now.Add(-age),
			}
			if err := db.Create(&snapshot).Error; err != nil {
				return err
			}
		}
	}

	for i := 0; i < 20; i++ {
		symbol := symbols[rand.Intn(len(symbols))]
		confidence := 0.5 + rand.Float64()*0.5
		payload := fmt.Sprintf(
			`{"analysis": "momentum looks favorable for %s", "confidence_note": "auto-generated", "run_id": %q}`,
			symbol, uuid.New().String())
		record := types.AIResponse{
			Timestamp:         now.Add(-time.Duration(rand.Intn(24)) * time.Hour),
			RequestType:       "trading_decision",
			Symbols:           strings.Join(symbols, ","),
			Prompt:            "Analyze current market conditions for " + symbol,
			RecommendedSymbol: symbol,
			RecommendedSide:   sides[rand.Intn(2)],
			Confidence:        &confidence,
			FullResponse:      payload,
		}
		if err := db.Create(&record).Error; err != nil {
			return err
		}
	}

	for i := 0; i < 10; i++ {
		apiErr := types.APIError{
			APIMethod:    "place_order",
			Symbol:       symbols[rand.Intn(len(symbols))],
			ErrorCode:    "10001",
			ErrorMessage: "insufficient balance",
			Timestamp:    now.Add(-time.Duration(rand.Intn(24)) * time.Hour),
		}
		if err := db.Create(&apiErr).Error; err != nil {
			return err
		}
	}

	return nil
}

// startServer initializes and starts the monitoring API server against the
// seeded database. The live feed is left unconfigured on purpose: every
// ticker lookup misses and the aggregator exercises its stored-data path.
func startServer(db *gorm.DB) error {
	ledgerDB := ledger.NewDatabase(db)
	priceCache := ticker.NewCache(ticker.NewClient("http://127.0.0.1:1"), time.Second)
	positionService := positions.NewService(ledgerDB, priceCache, symbols)
	statsService := stats.NewService(ledgerDB)
	monitorService := monitor.NewService(ledgerDB, positionService, statsService)
	monitorHandlers := monitor.NewGinHandlers(monitorService)

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	v1 := router.Group("/api/v1")
	{
		v1.GET("/dashboard", monitorHandlers.DashboardHandler())
		v1.GET("/health", monitorHandlers.HealthHandler())
	}

	return router.Run(":8080")
}
