package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/botwatch/botwatch-api/internal/database"
	"github.com/botwatch/botwatch-api/internal/ledger"
	"github.com/botwatch/botwatch-api/internal/positions"
	"github.com/botwatch/botwatch-api/internal/stats"
	"github.com/botwatch/botwatch-api/internal/ticker"
	"github.com/botwatch/botwatch-api/internal/types"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type noLive struct{}

func (noLive) Get(context.Context, string) (*ticker.PriceSnapshot, bool) { return nil, false }

func setupRouter(t *testing.T) (*gorm.DB, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "monitor_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	ledgerDB := ledger.NewDatabase(db)
	positionService := positions.NewService(ledgerDB, noLive{}, []string{"BTCUSDT", "ETHUSDT"})
	statsService := stats.NewService(ledgerDB)
	handlers := NewGinHandlers(NewService(ledgerDB, positionService, statsService))

	router := gin.New()
	router.GET("/api/v1/dashboard", handlers.DashboardHandler())
	router.GET("/api/v1/health", handlers.HealthHandler())
	return db, router
}

func get(t *testing.T, router *gin.Engine, url string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)

	var body map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not a JSON object: %v, body: %s", err, w.Body.String())
	}
	return w, body
}

func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.Close()
}

func TestDashboardRequiresAction(t *testing.T) {
	_, router := setupRouter(t)

	w, body := get(t, router, "/api/v1/dashboard")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing action, got %d", w.Code)
	}
	if _, ok := body["error"]; !ok {
		t.Error("expected error message in body")
	}

	w, _ = get(t, router, "/api/v1/dashboard?action=bogus")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown action, got %d", w.Code)
	}
}

func TestDashboardTrades(t *testing.T) {
	db, router := setupRouter(t)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		trade := types.Trade{
			BotName: "main", Symbol: "BTCUSDT", Side: "long",
			EntryPrice: 50000, Quantity: 0.1, Status: types.StatusClosed,
			EntryTime: now.Add(-time.Duration(i) * time.Hour),
		}
		if err := db.Create(&trade).Error; err != nil {
			t.Fatalf("failed to seed trade: %v", err)
		}
	}

	w, body := get(t, router, "/api/v1/dashboard?action=trades&limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var trades []types.Trade
	if err := json.Unmarshal(body["trades"], &trades); err != nil {
		t.Fatalf("failed to decode trades: %v", err)
	}
	if len(trades) != 2 {
		t.Errorf("expected 2 trades with limit=2, got %d", len(trades))
	}
	var total int
	if err := json.Unmarshal(body["total"], &total); err != nil || total != 3 {
		t.Errorf("expected total 3, got %d (err=%v)", total, err)
	}
}

func TestDashboardTradesSoftFail(t *testing.T) {
	db, router := setupRouter(t)
	closeDB(t, db)

	w, body := get(t, router, "/api/v1/dashboard?action=trades")
	if w.Code != http.StatusOK {
		t.Fatalf("expected soft failure to keep 200, got %d", w.Code)
	}

	if _, ok := body["error"]; !ok {
		t.Error("expected error message alongside empty payload")
	}
	var trades []types.Trade
	if err := json.Unmarshal(body["trades"], &trades); err != nil || len(trades) != 0 {
		t.Errorf("expected empty trades list, got %s", body["trades"])
	}
	var total int
	if err := json.Unmarshal(body["total"], &total); err != nil || total != 0 {
		t.Errorf("expected total 0, got %s", body["total"])
	}
}

func TestDashboardPositionsDegraded(t *testing.T) {
	db, router := setupRouter(t)
	closeDB(t, db)

	w, body := get(t, router, "/api/v1/dashboard?action=positions")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with degraded positions, got %d", w.Code)
	}
	if _, ok := body["error"]; !ok {
		t.Error("expected degradation to be reported in the envelope")
	}
	var views []positions.View
	if err := json.Unmarshal(body["positions"], &views); err != nil {
		t.Errorf("expected positions to stay a list, got %s", body["positions"])
	}
}

func TestDashboardAIResponses(t *testing.T) {
	db, router := setupRouter(t)
	now := time.Now().UTC()

	record := types.AIResponse{
		Timestamp:    now,
		Prompt:       "analyze BTC",
		FullResponse: `{"analysis": "bullish"}`,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("failed to seed advisory: %v", err)
	}

	w, body := get(t, router, "/api/v1/dashboard?action=ai_responses")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(body["responses"], &records); err != nil {
		t.Fatalf("failed to decode responses: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 response, got %d", len(records))
	}
	var text string
	if err := json.Unmarshal(records[0]["response_text"], &text); err != nil || text != "bullish" {
		t.Errorf("expected normalized response text, got %s", records[0]["response_text"])
	}
	if _, ok := records[0]["chat_blocks"]; !ok {
		t.Error("expected chat_blocks in normalized record")
	}
}

func TestDashboardMarketData(t *testing.T) {
	db, router := setupRouter(t)
	now := time.Now().UTC()

	// Default symbol applies when the parameter is absent.
	db.Create(&types.MarketSnapshot{Symbol: "BTCUSDT", Price: 50000, Timestamp: now.Add(-time.Hour)})
	db.Create(&types.MarketSnapshot{Symbol: "ETHUSDT", Price: 3000, Timestamp: now.Add(-time.Hour)})

	w, body := get(t, router, "/api/v1/dashboard?action=market_data")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var points []seriesPoint
	if err := json.Unmarshal(body["data"], &points); err != nil {
		t.Fatalf("failed to decode series: %v", err)
	}
	if len(points) != 1 || points[0].Price != 50000 {
		t.Errorf("expected 1 BTCUSDT point, got %+v", points)
	}

	// Symbols are matched case-insensitively via uppercasing.
	_, body = get(t, router, "/api/v1/dashboard?action=market_data&symbol=ethusdt")
	if err := json.Unmarshal(body["data"], &points); err != nil {
		t.Fatalf("failed to decode series: %v", err)
	}
	if len(points) != 1 || points[0].Price != 3000 {
		t.Errorf("expected lowercase symbol to resolve, got %+v", points)
	}
}

func TestDashboardStats(t *testing.T) {
	db, router := setupRouter(t)
	now := time.Now().UTC()

	pnl := 5.0
	db.Create(&types.Trade{
		BotName: "main", Symbol: "BTCUSDT", Side: "long",
		Status: types.StatusClosed, Pnl: &pnl, EntryTime: now.Add(-time.Hour),
	})

	w, body := get(t, router, "/api/v1/dashboard?action=stats")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var overview stats.Overview
	if err := json.Unmarshal(body["stats"], &overview); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if overview.Trades24h.Total != 1 || overview.Trades24h.TotalPnl != 5 {
		t.Errorf("unexpected trade window: %+v", overview.Trades24h)
	}
}

func TestHealthHandler(t *testing.T) {
	db, router := setupRouter(t)

	w, body := get(t, router, "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Errorf("expected healthy 200, got %d", w.Code)
	}
	var status string
	if err := json.Unmarshal(body["status"], &status); err != nil || status != "ok" {
		t.Errorf("expected status ok, got %s", body["status"])
	}

	closeDB(t, db)
	w, _ = get(t, router, "/api/v1/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when storage is unreachable, got %d", w.Code)
	}
}

func TestIntQueryFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		raw  string
		want int
	}{
		{"", 15},
		{"7", 7},
		{"-3", 15},
		{"abc", 15},
		{"0", 0},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request, _ = http.NewRequest(http.MethodGet, "/?limit="+tt.raw, nil)
		if got := intQuery(c, "limit", 15); got != tt.want {
			t.Errorf("intQuery(%q): expected %d, got %d", tt.raw, tt.want, got)
		}
	}
}
