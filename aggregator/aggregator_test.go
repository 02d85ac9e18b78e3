package aggregator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/extdata"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFetcher counts calls and returns canned payloads.
type fakeFetcher struct {
	marketCalls  int
	weatherCalls int
	forecastCall int
	schemesCalls int

	market   *extdata.MarketData
	weather  *extdata.Weather
	forecast *extdata.ForecastData
	schemes  *extdata.SchemesData
}

func (f *fakeFetcher) MarketPrices(ctx context.Context, q extdata.MarketQuery) *extdata.MarketData {
	f.marketCalls++
	if f.market != nil {
		return f.market
	}
	return extdata.MockMarketPrices(q.State, q.District, q.Commodity)
}

func (f *fakeFetcher) CurrentWeather(ctx context.Context, p extdata.Place) *extdata.Weather {
	f.weatherCalls++
	if f.weather != nil {
		return f.weather
	}
	return extdata.MockCurrentWeather(p.City, p.State)
}

func (f *fakeFetcher) Forecast(ctx context.Context, p extdata.Place) *extdata.ForecastData {
	f.forecastCall++
	if f.forecast != nil {
		return f.forecast
	}
	return extdata.MockForecast(p.City, p.State)
}

func (f *fakeFetcher) Schemes(ctx context.Context, q extdata.SchemesQuery) *extdata.SchemesData {
	f.schemesCalls++
	if f.schemes != nil {
		return f.schemes
	}
	return extdata.MockSchemes(q.State, q.Category)
}

func testLocation() models.Location {
	return models.Location{State: "Punjab", District: "Ludhiana", City: "Ludhiana"}
}

func newTestService(f *fakeFetcher) *Service {
	return NewService(f, DefaultLimits(), zap.NewNop())
}

func TestFetchRelevantData_ShortCircuitsWithoutKeywords(t *testing.T) {
	f := &fakeFetcher{}
	s := newTestService(f)

	data := s.FetchRelevantData(context.Background(), "Hello, how are you?", testLocation())

	require.False(t, data.Fetched)
	require.Empty(t, data.Context)
	require.Zero(t, f.marketCalls+f.weatherCalls+f.forecastCall+f.schemesCalls,
		"no keyword match must mean no fetch at all")
}

func TestFetchRelevantData_FetchesOnlyNeededDomains(t *testing.T) {
	f := &fakeFetcher{}
	s := newTestService(f)

	data := s.FetchRelevantData(context.Background(), "What is the mandi rate for wheat?", testLocation())

	require.True(t, data.Fetched)
	require.Equal(t, 1, f.marketCalls)
	require.Zero(t, f.weatherCalls)
	require.Zero(t, f.forecastCall)
	require.Zero(t, f.schemesCalls)
	require.Contains(t, data.Context, "CURRENT MARKET PRICES")
	require.NotContains(t, data.Context, "CURRENT WEATHER")
}

func TestFetchRelevantData_ContextCapsPriceLines(t *testing.T) {
	prices := make([]extdata.PriceRecord, 8)
	for i := range prices {
		prices[i] = extdata.PriceRecord{
			Commodity: "Wheat", Variety: "Dara",
			MinPrice: 2000, MaxPrice: 2500, ModalPrice: 2250,
		}
	}
	f := &fakeFetcher{market: &extdata.MarketData{Prices: prices, TotalRecords: 8, LastUpdated: time.Now()}}
	s := newTestService(f)

	data := s.FetchRelevantData(context.Background(), "wheat price", testLocation())

	lines := 0
	for _, line := range strings.Split(data.Context, "\n") {
		if strings.HasPrefix(line, "- Wheat (") {
			lines++
		}
	}
	require.Equal(t, 5, lines, "8 price records must render exactly 5 lines")
}

func TestFetchRelevantData_ContextSectionOrder(t *testing.T) {
	f := &fakeFetcher{}
	s := newTestService(f)

	data := s.FetchRelevantData(context.Background(),
		"wheat price, weather forecast and government schemes please", testLocation())

	ctx := data.Context
	header := strings.Index(ctx, "--- REAL-TIME DATA FOR Ludhiana, Punjab ---")
	market := strings.Index(ctx, "CURRENT MARKET PRICES:")
	weather := strings.Index(ctx, "CURRENT WEATHER:")
	forecast := strings.Index(ctx, "5-DAY WEATHER FORECAST:")
	schemes := strings.Index(ctx, "RELEVANT GOVERNMENT SCHEMES:")
	footer := strings.Index(ctx, "Use this data to provide accurate, location-specific advice to the farmer.")

	for _, idx := range []int{header, market, weather, forecast, schemes, footer} {
		require.GreaterOrEqual(t, idx, 0)
	}
	require.Less(t, header, market)
	require.Less(t, market, weather)
	require.Less(t, weather, forecast)
	require.Less(t, forecast, schemes)
	require.Less(t, schemes, footer)
}

func TestForecastSummary(t *testing.T) {
	days := []extdata.ForecastDay{
		{TempMin: 20, TempMax: 30, Humidity: 60, Condition: "Clear"},
		{TempMin: 22, TempMax: 32, Humidity: 85, Condition: "Clouds"},
		{TempMin: 21, TempMax: 31, Humidity: 70, Condition: "Clear", Rainfall: 4},
	}

	summary := ForecastSummary(days)
	require.Contains(t, summary, "Average temp 26.0°C")
	require.Contains(t, summary, "Rain expected")
	require.Contains(t, summary, "High humidity")

	dry := []extdata.ForecastDay{{TempMin: 20, TempMax: 30, Humidity: 50, Condition: "Clear"}}
	summary = ForecastSummary(dry)
	require.NotContains(t, summary, "Rain expected")
	require.NotContains(t, summary, "High humidity")

	require.Empty(t, ForecastSummary(nil))
}

func TestGetFarmingAdvice_RuleIndependence(t *testing.T) {
	f := &fakeFetcher{
		weather: &extdata.Weather{
			Location:    "Ludhiana",
			Temperature: extdata.Temperature{Current: 30},
			Humidity:    85,
		},
		forecast: &extdata.ForecastData{
			Days: []extdata.ForecastDay{
				{Condition: "Clear"},
				{Condition: "Clouds"},
				{Condition: "Rain", Rainfall: 6},
			},
		},
	}
	s := newTestService(f)

	result := s.GetFarmingAdvice(context.Background(), testLocation())

	require.Len(t, result.Advice, 3,
		"humidity 85 + temp 30 + rain on day 3 must yield disease, irrigation, harvest")
	categories := []string{result.Advice[0].Category, result.Advice[1].Category, result.Advice[2].Category}
	require.Equal(t, []string{"Disease Prevention", "Irrigation", "Harvesting"}, categories)
	for _, a := range result.Advice {
		require.NotEqual(t, "Heat Stress", a.Category)
	}
}

func TestGetFarmingAdvice_NoRulesMatch(t *testing.T) {
	f := &fakeFetcher{
		weather: &extdata.Weather{
			Temperature: extdata.Temperature{Current: 25},
			Humidity:    50,
		},
		forecast: &extdata.ForecastData{
			Days: []extdata.ForecastDay{{Condition: "Clear"}},
		},
	}
	s := newTestService(f)

	result := s.GetFarmingAdvice(context.Background(), testLocation())
	require.Empty(t, result.Advice)
	require.NotNil(t, result.CurrentConditions)
	require.False(t, result.GeneratedAt.IsZero())
}

func TestDashboardData_FetchesAllDomains(t *testing.T) {
	f := &fakeFetcher{}
	s := newTestService(f)

	result := s.DashboardData(context.Background(), testLocation())

	require.Equal(t, 1, f.marketCalls)
	require.Equal(t, 1, f.weatherCalls)
	require.Equal(t, 1, f.forecastCall)
	require.Equal(t, 1, f.schemesCalls)
	require.NotNil(t, result.MarketPrices)
	require.NotNil(t, result.Weather)
	require.NotNil(t, result.Forecast)
	require.NotNil(t, result.Schemes)
}
