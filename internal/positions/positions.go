// Package positions merges open trades, stored indicator baselines and live
// feed prices into one per-symbol dashboard view.
package positions

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/botwatch/botwatch-api/internal/ledger"
	"github.com/botwatch/botwatch-api/internal/ticker"
	"github.com/botwatch/botwatch-api/internal/types"
	"github.com/rs/zerolog/log"
)

const (
	openTradeLookback = 7 * 24 * time.Hour
	indicatorLookback = 24 * time.Hour
	baselineLookback  = 48 * time.Hour
)

// View is the merged per-symbol row. Indicator fields are null when only
// live data exists for the symbol. Live reports provenance: true when the
// price fields came from the feed rather than the stored baseline.
type View struct {
	Symbol      string            `json:"symbol"`
	Price       float64           `json:"price"`
	Price24hAgo *float64          `json:"price_24h_ago"`
	Change24h   float64           `json:"change_24h"`
	Volume24h   float64           `json:"volume_24h"`
	Volatility  *float64          `json:"volatility"`
	RSI         *float64          `json:"rsi"`
	ATR         *float64          `json:"atr"`
	MACD        *float64          `json:"macd"`
	Timestamp   time.Time         `json:"timestamp"`
	Live        bool              `json:"realtime"`
	OpenTrades  []types.OpenTrade `json:"open_trades"`
}

// LiveSource yields live quotes; absence means the caller should fall back
// to stored data. Satisfied by *ticker.Cache.
type LiveSource interface {
	Get(ctx context.Context, symbol string) (*ticker.PriceSnapshot, bool)
}

// Service aggregates the three data sources for the monitored symbol set.
type Service struct {
	ledger  *ledger.Database
	live    LiveSource
	symbols []string
	now     func() time.Time
}

func NewService(db *ledger.Database, live LiveSource, symbols []string) *Service {
	return &Service{
		ledger:  db,
		live:    live,
		symbols: symbols,
		now:     time.Now,
	}
}

// Aggregate builds the merged view, most actively traded symbols first.
// Each source is queried independently: a failing source degrades the view
// and is reported in the returned error, but never blocks the others. A
// symbol with neither stored nor live data is omitted entirely.
func (s *Service) Aggregate(ctx context.Context) ([]View, error) {
	logger := log.With().Str("component", "positions").Logger()
	now := s.now()

	var failures []error

	openBySymbol := make(map[string][]types.OpenTrade)
	open, err := s.ledger.OpenTrades(now.Add(-openTradeLookback))
	if err != nil {
		logger.Error().Err(err).Msg("open trades unavailable")
		failures = append(failures, err)
	}
	for _, trade := range open {
		openBySymbol[trade.Symbol] = append(openBySymbol[trade.Symbol], trade)
	}

	indicators, err := s.ledger.LatestIndicators(s.symbols, now.Add(-indicatorLookback))
	if err != nil {
		logger.Error().Err(err).Msg("stored indicators unavailable")
		failures = append(failures, err)
		indicators = nil
	}

	baselines := map[string]float64{}
	if len(indicators) > 0 {
		baselines, err = s.ledger.BaselinePrices(s.symbols,
			now.Add(-baselineLookback), now.Add(-indicatorLookback))
		if err != nil {
			logger.Warn().Err(err).Msg("24h baselines unavailable, reporting zero change")
			failures = append(failures, err)
			baselines = map[string]float64{}
		}
	}

	bySymbol := make(map[string]View, len(s.symbols))
	for _, row := range indicators {
		view := storedView(row, baselines)
		if snap, ok := s.live.Get(ctx, row.Symbol); ok {
			applyLive(&view, snap)
		}
		mergeView(bySymbol, view)
	}

	// Symbols with no stored baseline still get a row when the feed has a
	// live quote for them.
	for _, symbol := range s.symbols {
		if _, ok := bySymbol[symbol]; ok {
			continue
		}
		if snap, ok := s.live.Get(ctx, symbol); ok {
			mergeView(bySymbol, liveOnlyView(snap))
		}
	}

	views := make([]View, 0, len(bySymbol))
	for _, view := range bySymbol {
		trades := openBySymbol[view.Symbol]
		if trades == nil {
			trades = []types.OpenTrade{}
		}
		view.OpenTrades = trades
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].Volume24h > views[j].Volume24h
	})

	if len(failures) > 0 {
		return views, errors.Join(failures...)
	}
	return views, nil
}

// mergeView deduplicates by symbol: when two candidates exist, the one with
// the later timestamp wins.
func mergeView(bySymbol map[string]View, candidate View) {
	existing, ok := bySymbol[candidate.Symbol]
	if ok && !candidate.Timestamp.After(existing.Timestamp) {
		return
	}
	bySymbol[candidate.Symbol] = candidate
}

func storedView(row types.MarketSnapshot, baselines map[string]float64) View {
	view := View{
		Symbol:     row.Symbol,
		Price:      row.Price,
		Volume24h:  row.Volume24h,
		Volatility: ptr(row.Volatility),
		RSI:        row.RSI,
		ATR:        row.ATR,
		MACD:       row.MACD,
		Timestamp:  row.Timestamp,
	}

	// change_24h falls back to 0 when the historical baseline is absent or
	// zero, rather than dividing by it.
	if baseline, ok := baselines[row.Symbol]; ok && baseline > 0 {
		view.Price24hAgo = ptr(baseline)
		view.Change24h = (row.Price - baseline) / baseline * 100
	}
	return view
}

func applyLive(view *View, snap *ticker.PriceSnapshot) {
	view.Price = snap.Price
	view.Change24h = snap.Change24h
	view.Volume24h = snap.Volume24h
	view.Timestamp = snap.Timestamp
	view.Live = true
}

func liveOnlyView(snap *ticker.PriceSnapshot) View {
	return View{
		Symbol:    snap.Symbol,
		Price:     snap.Price,
		Change24h: snap.Change24h,
		Volume24h: snap.Volume24h,
		Timestamp: snap.Timestamp,
		Live:      true,
	}
}

func ptr(v float64) *float64 { return &v }
