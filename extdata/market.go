package extdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// agmarknetResource is the data.gov.in resource id for "Current Daily
// Price of Various Commodities from Various Markets (Mandi)".
const agmarknetResource = "9ef84268-d588-465a-a308-a864a43d0070"

type agmarknetRecord struct {
	Commodity   string `json:"commodity"`
	Variety     string `json:"variety"`
	Market      string `json:"market"`
	MinPrice    string `json:"min_price"`
	MaxPrice    string `json:"max_price"`
	ModalPrice  string `json:"modal_price"`
	ArrivalDate string `json:"arrival_date"`
}

type agmarknetResponse struct {
	Records []agmarknetRecord `json:"records"`
}

// MarketPrices returns mandi prices filtered by location and
// commodity. Any failure, rate limit or empty result set degrades to
// the fixed sample price list.
func (cl *Client) MarketPrices(ctx context.Context, q MarketQuery) *MarketData {
	key := fmt.Sprintf("market_%s_%s_%s", q.State, q.District, q.Commodity)

	payload, err := cl.cache.GetOrFetch(key, func() (any, error) {
		return cl.fetchMarketPrices(ctx, q)
	})
	if err != nil {
		cl.log.Warn("market price fetch failed, using sample data",
			zap.String("state", q.State),
			zap.String("commodity", q.Commodity),
			zap.Error(err))
		return MockMarketPrices(q.State, q.District, q.Commodity)
	}
	return payload.(*MarketData)
}

func (cl *Client) fetchMarketPrices(ctx context.Context, q MarketQuery) (*MarketData, error) {
	params := url.Values{}
	params.Set("api-key", cl.cfg.MarketAPIKey)
	params.Set("format", "json")
	params.Set("limit", "50")
	if q.State != "" {
		params.Set("filters[state]", q.State)
	}
	if q.District != "" {
		params.Set("filters[district]", q.District)
	}
	if q.Market != "" {
		params.Set("filters[market]", q.Market)
	}
	if q.Commodity != "" {
		params.Set("filters[commodity]", q.Commodity)
	}

	var resp agmarknetResponse
	endpoint := fmt.Sprintf("%s/%s", cl.cfg.MarketBaseURL, agmarknetResource)
	if err := cl.getJSON(ctx, marketTimeout, endpoint, params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Records) == 0 {
		return nil, fmt.Errorf("no market records returned")
	}

	prices := make([]PriceRecord, 0, len(resp.Records))
	for _, r := range resp.Records {
		prices = append(prices, PriceRecord{
			Commodity:   r.Commodity,
			Variety:     r.Variety,
			Market:      r.Market,
			MinPrice:    parsePrice(r.MinPrice),
			MaxPrice:    parsePrice(r.MaxPrice),
			ModalPrice:  parsePrice(r.ModalPrice),
			PriceUnit:   "INR/Quintal",
			ArrivalDate: r.ArrivalDate,
		})
	}

	cl.log.Info("market prices fetched", zap.Int("records", len(prices)))
	return &MarketData{
		Prices:       prices,
		TotalRecords: len(prices),
		Summary:      fmt.Sprintf("Found %d market price records", len(prices)),
		LastUpdated:  time.Now(),
	}, nil
}

// Agmarknet serves prices as strings.
func parsePrice(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// MockMarketPrices is the sample price list used when the registry is
// unreachable. Same field set as live data so formatting never
// branches.
func MockMarketPrices(state, district, commodity string) *MarketData {
	if commodity == "" {
		commodity = "Wheat"
	}
	market := district
	if market == "" {
		market = "Local Market"
	}
	region := state
	if region == "" {
		region = "your region"
	}

	return &MarketData{
		Prices: []PriceRecord{
			{Commodity: commodity, Variety: "Local", Market: market, MinPrice: 2200, MaxPrice: 2500, ModalPrice: 2350, PriceUnit: "INR/Quintal"},
			{Commodity: "Rice", Variety: "Basmati", Market: market, MinPrice: 3500, MaxPrice: 4200, ModalPrice: 3800, PriceUnit: "INR/Quintal"},
			{Commodity: "Tomato", Variety: "Hybrid", Market: market, MinPrice: 1500, MaxPrice: 2500, ModalPrice: 2000, PriceUnit: "INR/Quintal"},
			{Commodity: "Onion", Variety: "Red", Market: market, MinPrice: 1200, MaxPrice: 1800, ModalPrice: 1500, PriceUnit: "INR/Quintal"},
			{Commodity: "Potato", Variety: "Local", Market: market, MinPrice: 800, MaxPrice: 1200, ModalPrice: 1000, PriceUnit: "INR/Quintal"},
		},
		TotalRecords: 5,
		Summary:      fmt.Sprintf("Market prices for %s (Sample Data)", region),
		LastUpdated:  time.Now(),
		IsMockData:   true,
	}
}
