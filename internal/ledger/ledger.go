// Package ledger provides read-only, filtered access to the trade ledger:
// trade history, stored market indicators, advisory records and the API
// error log. The monitoring layer never writes to these tables.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/botwatch/botwatch-api/internal/types"
	"gorm.io/gorm"
)

// ErrConnectivity marks any underlying storage failure. Callers convert it
// into a soft-fail response rather than surfacing a broken page.
var ErrConnectivity = errors.New("storage unavailable")

func connectivity(err error) error {
	return fmt.Errorf("%w: %v", ErrConnectivity, err)
}

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Ping verifies the underlying connection is usable.
func (d *Database) Ping() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return connectivity(err)
	}
	if err := sqlDB.Ping(); err != nil {
		return connectivity(err)
	}
	return nil
}

// OpenTrades returns open positions entered at or after the cutoff, newest
// first. A row counts as open only when status is open AND exit_time is
// null AND it is inside the lookback window; old never-closed rows are
// treated as stuck and excluded. Rows without a recognizable side are
// skipped.
func (d *Database) OpenTrades(since time.Time) ([]types.OpenTrade, error) {
	var rows []types.Trade
	err := d.db.
		Where("exit_time IS NULL").
		Where("status = ?", types.StatusOpen).
		Where("entry_time >= ?", since).
		Order("entry_time DESC").
		Find(&rows).Error
	if err != nil {
		return nil, connectivity(err)
	}

	open := make([]types.OpenTrade, 0, len(rows))
	for _, row := range rows {
		side, ok := types.NormalizeSide(row.Side)
		if !ok {
			continue
		}
		leverage := 1
		if row.Leverage != nil && *row.Leverage > 0 {
			leverage = *row.Leverage
		}
		open = append(open, types.OpenTrade{
			Symbol:     row.Symbol,
			BotName:    types.NormalizeBot(row.BotName),
			Side:       side,
			EntryPrice: row.EntryPrice,
			Quantity:   row.Quantity,
			Leverage:   leverage,
		})
	}
	return open, nil
}

// Trades returns one page of trade history, newest first by entry time,
// together with the total row count for the same filter. The count is
// computed independently of limit/offset so pagination stays consistent
// across pages.
func (d *Database) Trades(bot string, limit, offset int) ([]types.Trade, int64, error) {
	query := d.db.Model(&types.Trade{})
	if bot != "" && bot != "all" {
		query = query.Where("bot_name = ?", types.NormalizeBot(bot))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, connectivity(err)
	}

	var trades []types.Trade
	err := query.
		Order("entry_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	if err != nil {
		return nil, 0, connectivity(err)
	}
	return trades, total, nil
}

// Advisories returns one page of advisory records, newest first, with the
// unpaginated total.
func (d *Database) Advisories(limit, offset int) ([]types.AIResponse, int64, error) {
	var total int64
	if err := d.db.Model(&types.AIResponse{}).Count(&total).Error; err != nil {
		return nil, 0, connectivity(err)
	}

	var records []types.AIResponse
	err := d.db.
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, connectivity(err)
	}
	return records, total, nil
}

// Errors returns one page of the API error log, newest first, with the
// unpaginated total.
func (d *Database) Errors(limit, offset int) ([]types.APIError, int64, error) {
	var total int64
	if err := d.db.Model(&types.APIError{}).Count(&total).Error; err != nil {
		return nil, 0, connectivity(err)
	}

	var records []types.APIError
	err := d.db.
		Order("timestamp DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, connectivity(err)
	}
	return records, total, nil
}

// LatestIndicators returns the single most recent indicator row per symbol
// within the lookback window. Recency ties are broken by the highest row id,
// which matches insertion order.
func (d *Database) LatestIndicators(symbols []string, since time.Time) ([]types.MarketSnapshot, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	latest := d.db.Model(&types.MarketSnapshot{}).
		Select("MAX(id)").
		Where("symbol IN ?", symbols).
		Where("timestamp >= ?", since).
		Group("symbol")

	var rows []types.MarketSnapshot
	if err := d.db.Where("id IN (?)", latest).Find(&rows).Error; err != nil {
		return nil, connectivity(err)
	}
	return rows, nil
}

// BaselinePrices returns, per symbol, the price of the most recent indicator
// row inside [from, to). Used to derive 24h change for stored data: the band
// is typically 48h-ago to 24h-ago.
func (d *Database) BaselinePrices(symbols []string, from, to time.Time) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	latest := d.db.Model(&types.MarketSnapshot{}).
		Select("MAX(id)").
		Where("symbol IN ?", symbols).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Group("symbol")

	var rows []types.MarketSnapshot
	if err := d.db.Where("id IN (?)", latest).Find(&rows).Error; err != nil {
		return nil, connectivity(err)
	}

	baselines := make(map[string]float64, len(rows))
	for _, row := range rows {
		baselines[row.Symbol] = row.Price
	}
	return baselines, nil
}

// MarketSeries returns up to limit indicator rows for one symbol since the
// cutoff, oldest first. The cap keeps chart payloads bounded; when the
// window holds more rows than the cap, the most recent rows win.
func (d *Database) MarketSeries(symbol string, since time.Time, limit int) ([]types.MarketSnapshot, error) {
	var rows []types.MarketSnapshot
	err := d.db.
		Where("symbol = ?", symbol).
		Where("timestamp >= ?", since).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, connectivity(err)
	}

	// Reverse into chronological order for charting.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// TradesSince returns every trade entered at or after the cutoff.
func (d *Database) TradesSince(since time.Time) ([]types.Trade, error) {
	var trades []types.Trade
	if err := d.db.Where("entry_time >= ?", since).Find(&trades).Error; err != nil {
		return nil, connectivity(err)
	}
	return trades, nil
}

// AdvisoriesSince returns every advisory record at or after the cutoff.
func (d *Database) AdvisoriesSince(since time.Time) ([]types.AIResponse, error) {
	var records []types.AIResponse
	if err := d.db.Where("timestamp >= ?", since).Find(&records).Error; err != nil {
		return nil, connectivity(err)
	}
	return records, nil
}

// ErrorCountSince counts API error rows at or after the cutoff.
func (d *Database) ErrorCountSince(since time.Time) (int64, error) {
	var count int64
	err := d.db.Model(&types.APIError{}).
		Where("timestamp >= ?", since).
		Count(&count).Error
	if err != nil {
		return 0, connectivity(err)
	}
	return count, nil
}

// MarketCoverage reports how many distinct symbols and total indicator rows
// exist at or after the cutoff.
func (d *Database) MarketCoverage(since time.Time) (symbols int64, records int64, err error) {
	err = d.db.Model(&types.MarketSnapshot{}).
		Where("timestamp >= ?", since).
		Distinct("symbol").
		Count(&symbols).Error
	if err != nil {
		return 0, 0, connectivity(err)
	}

	err = d.db.Model(&types.MarketSnapshot{}).
		Where("timestamp >= ?", since).
		Count(&records).Error
	if err != nil {
		return 0, 0, connectivity(err)
	}
	return symbols, records, nil
}
