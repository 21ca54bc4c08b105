package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Price is one cached crypto price observation.
type Price struct {
	Symbol    string
	Name      string
	USD       float64
	AMD       *float64
	Change24h *float64
	FetchedAt time.Time
}

// FormattedUSD renders the USD price.
func (p Price) FormattedUSD() string {
	if p.USD >= 1 {
		return fmt.Sprintf("$%.2f", p.USD)
	}
	return fmt.Sprintf("$%.6f", p.USD)
}

// FormattedAMD renders the AMD price, "N/A" when absent.
func (p Price) FormattedAMD() string {
	if p.AMD == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.0f AMD", *p.AMD)
}

// Symbol aliases to upstream price identifiers.
var symbolIDs = map[string]string{
	"btc": "bitcoin", "eth": "ethereum", "sol": "solana",
	"bnb": "binancecoin", "xrp": "ripple", "ada": "cardano",
	"doge": "dogecoin", "dot": "polkadot", "matic": "matic-network",
	"shib": "shiba-inu", "ltc": "litecoin", "link": "chainlink",
	"uni": "uniswap", "avax": "avalanche-2", "atom": "cosmos",
	"xlm": "stellar", "etc": "ethereum-classic", "xmr": "monero",
	"trx": "tron", "usdt": "tether", "usdc": "usd-coin",
}

// PriceOptions parameterise the price client.
type PriceOptions struct {
	BaseURL    string
	TTL        time.Duration
	Timeout    time.Duration
	MaxRetries int
}

// PriceClient looks up crypto prices with a per-symbol TTL cache.
type PriceClient struct {
	opts   PriceOptions
	logger zerolog.Logger
	client *http.Client

	mu    sync.Mutex
	cache map[string]Price
}

// NewPriceClient constructs a price client.
func NewPriceClient(opts PriceOptions, logger zerolog.Logger) *PriceClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	return &PriceClient{
		opts:   opts,
		logger: logger.With().Str("component", "price_client").Logger(),
		client: &http.Client{Timeout: timeout},
		cache:  make(map[string]Price),
	}
}

// GetPrice resolves a symbol alias and returns its price, cached within TTL.
// A nil price with nil error means the symbol is unknown upstream.
func (p *PriceClient) GetPrice(ctx context.Context, symbol string) (*Price, error) {
	id := p.coinID(symbol)
	if id == "" {
		return nil, nil
	}

	p.mu.Lock()
	if cached, ok := p.cache[id]; ok && time.Since(cached.FetchedAt) < p.opts.TTL {
		p.mu.Unlock()
		return &cached, nil
	}
	p.mu.Unlock()

	price, err := p.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, nil
	}

	p.mu.Lock()
	p.cache[id] = *price
	p.mu.Unlock()
	return price, nil
}

func (p *PriceClient) coinID(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if s == "" {
		return ""
	}
	if id, ok := symbolIDs[s]; ok {
		return id
	}
	return s
}

func (p *PriceClient) fetch(ctx context.Context, id string) (*Price, error) {
	endpoint := strings.TrimRight(p.opts.BaseURL, "/") + "/simple/price"
	query := url.Values{
		"ids":                 {id},
		"vs_currencies":       {"usd,amd"},
		"include_24hr_change": {"true"},
	}

	var lastErr error
	for attempt := 0; attempt < p.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		price, retryable, err := p.fetchOnce(ctx, endpoint+"?"+query.Encode(), id)
		if err == nil {
			return price, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		p.logger.Warn().Err(err).Str("coin", id).Int("attempt", attempt+1).Msg("price fetch retrying")
	}

	return nil, fmt.Errorf("price fetch exhausted retries: %w", lastErr)
}

func (p *PriceClient) fetchOnce(ctx context.Context, endpoint, id string) (*Price, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("price fetch rate limited (429)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("price fetch failed: HTTP %d", resp.StatusCode)
	}

	var payload map[string]struct {
		USD       *float64 `json:"usd"`
		AMD       *float64 `json:"amd"`
		USDChange *float64 `json:"usd_24h_change"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, err
	}

	entry, ok := payload[id]
	if !ok || entry.USD == nil {
		return nil, false, nil
	}

	price := &Price{
		Symbol:    strings.ToUpper(shortSymbol(id)),
		Name:      displayName(id),
		USD:       *entry.USD,
		AMD:       entry.AMD,
		Change24h: entry.USDChange,
		FetchedAt: time.Now(),
	}
	return price, false, nil
}

func shortSymbol(id string) string {
	for symbol, coinID := range symbolIDs {
		if coinID == id {
			return symbol
		}
	}
	if len(id) > 5 {
		return id[:5]
	}
	return id
}

func displayName(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
