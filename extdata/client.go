package extdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	marketTimeout  = 15 * time.Second
	weatherTimeout = 10 * time.Second
	schemesTimeout = 10 * time.Second
)

// Config carries provider endpoints and keys. Defaults point at the
// public data.gov.in and OpenWeatherMap APIs.
type Config struct {
	MarketBaseURL  string
	MarketAPIKey   string
	WeatherBaseURL string
	WeatherAPIKey  string
	SchemesBaseURL string
	SchemesAPIKey  string
}

func ConfigFromEnv() Config {
	cfg := Config{
		MarketBaseURL:  os.Getenv("MARKET_PRICE_API_URL"),
		MarketAPIKey:   os.Getenv("MARKET_PRICE_API_KEY"),
		WeatherBaseURL: os.Getenv("WEATHER_API_URL"),
		WeatherAPIKey:  os.Getenv("WEATHER_API_KEY"),
		SchemesBaseURL: os.Getenv("GOV_SCHEME_API_URL"),
		SchemesAPIKey:  os.Getenv("GOV_SCHEME_API_KEY"),
	}
	if cfg.MarketBaseURL == "" {
		cfg.MarketBaseURL = "https://api.data.gov.in/resource"
	}
	if cfg.WeatherBaseURL == "" {
		cfg.WeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	}
	if cfg.SchemesBaseURL == "" {
		cfg.SchemesBaseURL = "https://api.data.gov.in/resource"
	}
	return cfg
}

// Client wraps the three upstream data providers. Every fetcher
// resolves: a provider failure is logged and replaced by a sample
// payload with the same shape, never surfaced to the caller.
type Client struct {
	cfg     Config
	cache   *Cache
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewClient(cfg Config, cache *Cache, log *zap.Logger) *Client {
	return &Client{
		cfg:   cfg,
		cache: cache,
		http:  &http.Client{},
		// Free-tier upstream keys throttle hard; stay well under.
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		log:     log,
	}
}

// ClearCache empties the provider cache unconditionally.
func (cl *Client) ClearCache() {
	cl.cache.Clear()
	cl.log.Info("external data cache cleared")
}

// getJSON performs one rate-limited GET and decodes the JSON body into
// out. Non-2xx statuses are errors so callers fall back to samples.
func (cl *Client) getJSON(ctx context.Context, timeout time.Duration, rawURL string, params url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := cl.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := cl.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("provider rate limited (status %d)", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding provider response: %v", err)
	}
	return nil
}
