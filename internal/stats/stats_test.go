package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/botwatch/botwatch-api/internal/database"
	"github.com/botwatch/botwatch-api/internal/ledger"
	"github.com/botwatch/botwatch-api/internal/types"
)

func ptr[T any](v T) *T { return &v }

func closedTrade(bot string, pnl *float64) types.Trade {
	return types.Trade{
		BotName:   bot,
		Symbol:    "BTCUSDT",
		Side:      "long",
		Status:    types.StatusClosed,
		Pnl:       pnl,
		EntryTime: time.Now().UTC(),
	}
}

func TestGlobalWindow(t *testing.T) {
	trades := []types.Trade{
		closedTrade("main", ptr(10.0)),
		closedTrade("main", ptr(-5.0)),
		closedTrade("main", ptr(3.0)),
		closedTrade("main", ptr(0.0)),
		// Open trades never count toward the closed-trade window.
		{BotName: "main", Symbol: "BTCUSDT", Side: "long", Status: types.StatusOpen, Pnl: ptr(99.0)},
	}

	w := globalWindow(trades)

	if w.Total != 4 {
		t.Errorf("expected 4 closed trades, got %d", w.Total)
	}
	if w.Winning != 2 {
		t.Errorf("expected 2 winning, got %d", w.Winning)
	}
	if w.Losing != 1 {
		t.Errorf("expected 1 losing, got %d", w.Losing)
	}
	if w.TotalPnl != 8 {
		t.Errorf("expected total pnl 8, got %f", w.TotalPnl)
	}
	if w.AvgPnl != 2 {
		t.Errorf("expected avg pnl 2, got %f", w.AvgPnl)
	}
	// The zero-pnl trade stays in the denominator: 2 of 4 settled.
	if w.WinRate != 50 {
		t.Errorf("expected win rate 50, got %f", w.WinRate)
	}
}

func TestGlobalWindowUnsettledPnl(t *testing.T) {
	trades := []types.Trade{
		closedTrade("main", ptr(10.0)),
		closedTrade("main", nil),
	}

	w := globalWindow(trades)

	if w.Total != 2 {
		t.Errorf("expected nil-pnl closed trade to count toward total, got %d", w.Total)
	}
	if w.WinRate != 100 {
		t.Errorf("expected nil-pnl trade out of the win-rate denominator, got %f", w.WinRate)
	}
	if w.AvgPnl != 10 {
		t.Errorf("expected avg over settled trades only, got %f", w.AvgPnl)
	}
}

func TestGlobalWindowEmpty(t *testing.T) {
	w := globalWindow(nil)
	if w.WinRate != 0 || w.AvgPnl != 0 {
		t.Errorf("expected zero ratios for empty window, got win_rate=%f avg=%f", w.WinRate, w.AvgPnl)
	}
}

func TestBotWindows(t *testing.T) {
	trades := []types.Trade{
		closedTrade("main", ptr(10.0)),
		closedTrade("main", ptr(-4.0)),
		{BotName: "main", Symbol: "ETHUSDT", Side: "long", Status: types.StatusOpen},
		closedTrade("iliya", ptr(2.0)),
		// Empty bot name folds into the default bot.
		closedTrade("", ptr(1.0)),
	}

	bots := botWindows(trades)

	if len(bots) != 2 {
		t.Fatalf("expected 2 bots, got %d", len(bots))
	}

	main := bots[types.DefaultBot]
	if main.TotalTrades != 4 {
		t.Errorf("expected 4 trades for main, got %d", main.TotalTrades)
	}
	if main.OpenTrades != 1 {
		t.Errorf("expected 1 open trade for main, got %d", main.OpenTrades)
	}
	if main.ClosedTrades != 3 {
		t.Errorf("expected 3 closed trades for main, got %d", main.ClosedTrades)
	}
	if main.TotalPnl != 7 {
		t.Errorf("expected total pnl 7 for main, got %f", main.TotalPnl)
	}
	if want := float64(2) / 3 * 100; main.WinRate != want {
		t.Errorf("expected win rate %f for main, got %f", want, main.WinRate)
	}

	iliya := bots["iliya"]
	if iliya.TotalTrades != 1 || iliya.WinRate != 100 {
		t.Errorf("unexpected iliya window: %+v", iliya)
	}
}

func TestAdvisoryWindow(t *testing.T) {
	records := []types.AIResponse{
		{RecommendedSymbol: "BTCUSDT", Confidence: ptr(0.5)},
		{RecommendedSymbol: "ETHUSDT", Confidence: ptr(0.75)},
		{RecommendedSymbol: "BTCUSDT"},
		{},
	}

	w := advisoryWindow(records)

	if w.TotalResponses != 4 {
		t.Errorf("expected 4 responses, got %d", w.TotalResponses)
	}
	// Average over records that carry a confidence, not all records.
	if want := 0.625; w.AvgConfidence != want {
		t.Errorf("expected avg confidence %f, got %f", want, w.AvgConfidence)
	}
	if w.UniqueSymbols != 2 {
		t.Errorf("expected 2 unique symbols, got %d", w.UniqueSymbols)
	}
}

func TestWindowOverview(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "stats_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	now := time.Now().UTC()
	inWindow := now.Add(-time.Hour)
	outOfWindow := now.Add(-30 * time.Hour)

	db.Create(&types.Trade{BotName: "main", Symbol: "BTCUSDT", Side: "long", Status: types.StatusClosed, Pnl: ptr(5.0), EntryTime: inWindow})
	db.Create(&types.Trade{BotName: "main", Symbol: "BTCUSDT", Side: "long", Status: types.StatusClosed, Pnl: ptr(-2.0), EntryTime: outOfWindow})
	db.Create(&types.AIResponse{Timestamp: inWindow, RecommendedSymbol: "BTCUSDT", Confidence: ptr(0.9)})
	db.Create(&types.APIError{APIMethod: "place_order", Timestamp: inWindow})
	db.Create(&types.MarketSnapshot{Symbol: "BTCUSDT", Price: 50000, Timestamp: inWindow})

	service := NewService(ledger.NewDatabase(db))
	service.now = func() time.Time { return now }

	overview, err := service.Window(24 * time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if overview.Trades24h.Total != 1 {
		t.Errorf("expected 1 trade in window, got %d", overview.Trades24h.Total)
	}
	if overview.Trades24h.TotalPnl != 5 {
		t.Errorf("expected window pnl 5, got %f", overview.Trades24h.TotalPnl)
	}
	if overview.AI24h.TotalResponses != 1 {
		t.Errorf("expected 1 advisory in window, got %d", overview.AI24h.TotalResponses)
	}
	if overview.Errors24h != 1 {
		t.Errorf("expected 1 error in window, got %d", overview.Errors24h)
	}
	if overview.Database.SymbolsCount != 1 || overview.Database.TotalRecords7d != 1 {
		t.Errorf("unexpected coverage: %+v", overview.Database)
	}
	if _, ok := overview.Bots[types.DefaultBot]; !ok {
		t.Error("expected per-bot window for the default bot")
	}
}

func TestWindowDegradedStorage(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "stats_degraded_test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.Close()

	service := NewService(ledger.NewDatabase(db))
	overview, err := service.Window(24 * time.Hour)
	if err == nil {
		t.Fatal("expected error from closed storage")
	}
	// Sections zero out rather than poisoning the payload shape.
	if overview.Bots == nil {
		t.Error("expected non-nil bots map even when degraded")
	}
}
