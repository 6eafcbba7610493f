// Package stats computes rolling-window aggregates over the trade ledger.
// Everything is recomputed from scratch per call; there is no incremental
// state to drift out of sync with the ledger.
package stats

import (
	"errors"
	"time"

	"github.com/botwatch/botwatch-api/internal/ledger"
	"github.com/botwatch/botwatch-api/internal/types"
	"github.com/rs/zerolog/log"
)

const coverageWindow = 7 * 24 * time.Hour

// Window holds global closed-trade aggregates for one time window.
type Window struct {
	Total    int     `json:"total"`
	Winning  int     `json:"winning"`
	Losing   int     `json:"losing"`
	TotalPnl float64 `json:"total_pnl"`
	AvgPnl   float64 `json:"avg_pnl"`
	WinRate  float64 `json:"win_rate"`
}

// BotWindow holds per-bot aggregates over all trades (open and closed) in
// the window.
type BotWindow struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	TotalPnl      float64 `json:"total_pnl"`
	AvgPnl        float64 `json:"avg_pnl"`
	WinRate       float64 `json:"win_rate"`
	OpenTrades    int     `json:"open_trades"`
	ClosedTrades  int     `json:"closed_trades"`
}

// AdvisoryWindow summarizes advisory activity in the window.
type AdvisoryWindow struct {
	TotalResponses int     `json:"total_responses"`
	AvgConfidence  float64 `json:"avg_confidence"`
	UniqueSymbols  int     `json:"unique_symbols"`
}

// Coverage reports how much indicator history the ledger holds.
type Coverage struct {
	SymbolsCount   int64 `json:"symbols_count"`
	TotalRecords7d int64 `json:"total_records_7d"`
}

// Overview is the full stats payload for one window.
type Overview struct {
	Trades24h Window               `json:"trades_24h"`
	Bots      map[string]BotWindow `json:"bots"`
	AI24h     AdvisoryWindow       `json:"ai_24h"`
	Errors24h int64                `json:"errors_24h"`
	Database  Coverage             `json:"database"`
}

// Service computes window statistics from the ledger.
type Service struct {
	ledger *ledger.Database
	now    func() time.Time
}

func NewService(db *ledger.Database) *Service {
	return &Service{ledger: db, now: time.Now}
}

// Window computes the full overview for the trailing window. Each section is
// guarded independently: a failing query zeroes its own section and is
// reported in the returned error, without blocking the other sections.
func (s *Service) Window(window time.Duration) (Overview, error) {
	logger := log.With().Str("component", "stats").Logger()
	now := s.now()
	cutoff := now.Add(-window)

	var overview Overview
	var failures []error

	trades, err := s.ledger.TradesSince(cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("trade window unavailable")
		failures = append(failures, err)
	} else {
		overview.Trades24h = globalWindow(trades)
		overview.Bots = botWindows(trades)
	}
	if overview.Bots == nil {
		overview.Bots = map[string]BotWindow{}
	}

	advisories, err := s.ledger.AdvisoriesSince(cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("advisory window unavailable")
		failures = append(failures, err)
	} else {
		overview.AI24h = advisoryWindow(advisories)
	}

	errorCount, err := s.ledger.ErrorCountSince(cutoff)
	if err != nil {
		logger.Error().Err(err).Msg("error count unavailable")
		failures = append(failures, err)
	} else {
		overview.Errors24h = errorCount
	}

	symbols, records, err := s.ledger.MarketCoverage(now.Add(-coverageWindow))
	if err != nil {
		logger.Error().Err(err).Msg("market coverage unavailable")
		failures = append(failures, err)
	} else {
		overview.Database = Coverage{SymbolsCount: symbols, TotalRecords7d: records}
	}

	if len(failures) > 0 {
		return overview, errors.Join(failures...)
	}
	return overview, nil
}

// globalWindow aggregates closed trades only. Winning means pnl > 0, losing
// means pnl < 0; a zero-pnl trade counts toward neither but stays in the
// win-rate denominator. Ratios over an empty set are 0, not an error.
func globalWindow(trades []types.Trade) Window {
	var w Window
	settled := 0

	for i := range trades {
		t := &trades[i]
		if !t.IsClosed() {
			continue
		}
		w.Total++
		if t.Pnl == nil {
			continue
		}
		settled++
		w.TotalPnl += *t.Pnl
		switch {
		case *t.Pnl > 0:
			w.Winning++
		case *t.Pnl < 0:
			w.Losing++
		}
	}

	if settled > 0 {
		w.AvgPnl = w.TotalPnl / float64(settled)
		w.WinRate = float64(w.Winning) / float64(settled) * 100
	}
	return w
}

// botWindows aggregates all trades in the window per bot. The win rate uses
// only that bot's closed trades with a recorded pnl.
func botWindows(trades []types.Trade) map[string]BotWindow {
	bots := make(map[string]BotWindow)
	settledPerBot := make(map[string]int)

	for i := range trades {
		t := &trades[i]
		name := types.NormalizeBot(t.BotName)
		w := bots[name]

		w.TotalTrades++
		if t.Status == types.StatusOpen {
			w.OpenTrades++
		}
		if t.IsClosed() && t.Pnl != nil {
			w.ClosedTrades++
			settledPerBot[name]++
		}
		if t.Pnl != nil {
			w.TotalPnl += *t.Pnl
			switch {
			case *t.Pnl > 0:
				w.WinningTrades++
			case *t.Pnl < 0:
				w.LosingTrades++
			}
		}
		bots[name] = w
	}

	for name, w := range bots {
		if settled := settledPerBot[name]; settled > 0 {
			w.AvgPnl = w.TotalPnl / float64(settled)
			w.WinRate = float64(w.WinningTrades) / float64(settled) * 100
			bots[name] = w
		}
	}
	return bots
}

// advisoryWindow averages confidence over records that have one and counts
// distinct recommended symbols.
func advisoryWindow(records []types.AIResponse) AdvisoryWindow {
	w := AdvisoryWindow{TotalResponses: len(records)}

	var confidenceSum float64
	confident := 0
	seen := make(map[string]struct{})

	for i := range records {
		r := &records[i]
		if r.Confidence != nil {
			confidenceSum += *r.Confidence
			confident++
		}
		if r.RecommendedSymbol != "" {
			seen[r.RecommendedSymbol] = struct{}{}
		}
	}

	if confident > 0 {
		w.AvgConfidence = confidenceSum / float64(confident)
	}
	w.UniqueSymbols = len(seen)
	return w
}
