// Package ticker fetches live prices from the public market feed and caches
// them per symbol with a short TTL so dashboard refreshes do not hammer the
// upstream API.
package ticker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	connectTimeout = 5 * time.Second
	requestTimeout = 10 * time.Second
	tickersPath    = "/v5/market/tickers"
)

var (
	// ErrFeed marks transport failures, non-200 statuses and feed-level
	// error codes.
	ErrFeed = errors.New("ticker feed unavailable")
	// ErrDecode marks a well-transported but malformed payload.
	ErrDecode = errors.New("malformed ticker payload")
)

// PriceSnapshot is one live quote for a symbol.
type PriceSnapshot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	Volume24h float64   `json:"volume_24h"`
	High24h   float64   `json:"high_24h"`
	Low24h    float64   `json:"low_24h"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is a thin REST client for the public tickers endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a feed client with bounded connect and total timeouts,
// so a stalled upstream can never block a dashboard request indefinitely.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
	}
}

type tickerResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []tickerEntry `json:"list"`
	} `json:"result"`
}

type tickerEntry struct {
	Symbol       string `json:"symbol"`
	LastPrice    string `json:"lastPrice"`
	Price24hPcnt string `json:"price24hPcnt"`
	Volume24h    string `json:"volume24h"`
	HighPrice24h string `json:"highPrice24h"`
	LowPrice24h  string `json:"lowPrice24h"`
}

// FetchTicker retrieves the current quote for one linear perpetual symbol.
// lastPrice is required; the remaining fields default to zero when absent
// so a sparse payload does not fail the whole quote.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (*PriceSnapshot, error) {
	endpoint := fmt.Sprintf("%s%s?category=linear&symbol=%s",
		c.baseURL, tickersPath, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFeed, resp.StatusCode)
	}

	var payload tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if payload.RetCode != 0 {
		return nil, fmt.Errorf("%w: retCode %d (%s)", ErrFeed, payload.RetCode, payload.RetMsg)
	}
	if len(payload.Result.List) == 0 {
		return nil, fmt.Errorf("%w: empty ticker list", ErrDecode)
	}

	entry := payload.Result.List[0]
	price, err := strconv.ParseFloat(entry.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad lastPrice %q", ErrDecode, entry.LastPrice)
	}

	return &PriceSnapshot{
		Symbol:    symbol,
		Price:     price,
		Change24h: optionalFloat(entry.Price24hPcnt) * 100,
		Volume24h: optionalFloat(entry.Volume24h),
		High24h:   optionalFloat(entry.HighPrice24h),
		Low24h:    optionalFloat(entry.LowPrice24h),
		Timestamp: time.Now().UTC(),
	}, nil
}

func optionalFloat(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
