package extdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	return NewClient(cfg, NewCache(30*time.Minute), zap.NewNop())
}

func TestMarketPrices_ProviderFailureFallsBackToSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cl := testClient(t, Config{MarketBaseURL: srv.URL, WeatherBaseURL: srv.URL, SchemesBaseURL: srv.URL})

	data := cl.MarketPrices(context.Background(), MarketQuery{State: "Punjab", District: "Ludhiana", Commodity: "wheat"})
	require.NotNil(t, data)
	require.True(t, data.IsMockData)
	require.NotEmpty(t, data.Prices)
}

func TestMarketPrices_FallbackNotCached(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cl := testClient(t, Config{MarketBaseURL: srv.URL})

	q := MarketQuery{State: "Punjab"}
	_ = cl.MarketPrices(context.Background(), q)
	_ = cl.MarketPrices(context.Background(), q)
	require.Equal(t, 2, hits, "sample fallbacks must not be cached")
}

func TestMarketPrices_EmptyRecordsTreatedAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"records": []}`))
	}))
	defer srv.Close()

	cl := testClient(t, Config{MarketBaseURL: srv.URL})

	data := cl.MarketPrices(context.Background(), MarketQuery{State: "Punjab"})
	require.True(t, data.IsMockData)
}

func TestMarketPrices_SuccessfulFetchIsCached(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"records": [{"commodity": "Wheat", "variety": "Dara", "market": "Ludhiana", "min_price": "2100", "max_price": "2400", "modal_price": "2250", "arrival_date": "27/08/2026"}]}`))
	}))
	defer srv.Close()

	cl := testClient(t, Config{MarketBaseURL: srv.URL})

	q := MarketQuery{State: "Punjab", Commodity: "wheat"}
	first := cl.MarketPrices(context.Background(), q)
	second := cl.MarketPrices(context.Background(), q)

	require.Equal(t, 1, hits)
	require.False(t, first.IsMockData)
	require.Equal(t, first, second)
	require.Equal(t, 2250.0, first.Prices[0].ModalPrice)
}

func TestCurrentWeather_ProviderFailureFallsBackToSample(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cl := testClient(t, Config{WeatherBaseURL: srv.URL})

	weather := cl.CurrentWeather(context.Background(), Place{City: "Pune", State: "Maharashtra"})
	require.True(t, weather.IsMockData)
	require.Equal(t, "Pune", weather.Location)
	require.Equal(t, 28.0, weather.Temperature.Current)
}

func TestForecast_SampleHasFiveBoundedDays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cl := testClient(t, Config{WeatherBaseURL: srv.URL})

	forecast := cl.Forecast(context.Background(), Place{City: "Pune", State: "Maharashtra"})
	require.True(t, forecast.IsMockData)
	require.Len(t, forecast.Days, 5)
	for _, day := range forecast.Days {
		require.GreaterOrEqual(t, day.TempMin, 22.0)
		require.LessOrEqual(t, day.TempMax, 35.0)
		require.GreaterOrEqual(t, day.Humidity, 60)
		require.LessOrEqual(t, day.Humidity, 80)
	}
}

func TestSchemes_SampleIncludesStateScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cl := testClient(t, Config{SchemesBaseURL: srv.URL})

	data := cl.Schemes(context.Background(), SchemesQuery{State: "Punjab"})
	require.True(t, data.IsMockData)

	names := make([]string, 0, len(data.Schemes))
	for _, s := range data.Schemes {
		names = append(names, s.Name)
	}
	require.Contains(t, names, "PM-KISAN (Pradhan Mantri Kisan Samman Nidhi)")
	require.Contains(t, names, "Punjab Kisan Kalyan Yojana")
}

// The sample and live payloads share one type per domain, so the
// formatting layer never needs a shape check. These assert the sample
// constructors populate the fields the formatter reads.
func TestMockPayloadShapes(t *testing.T) {
	market := MockMarketPrices("Punjab", "Ludhiana", "wheat")
	require.NotEmpty(t, market.Summary)
	require.Equal(t, market.TotalRecords, len(market.Prices))
	for _, p := range market.Prices {
		require.NotEmpty(t, p.Commodity)
		require.NotZero(t, p.ModalPrice)
	}

	weather := MockCurrentWeather("Pune", "Maharashtra")
	require.NotEmpty(t, weather.Condition)
	require.NotEmpty(t, weather.Description)
	require.NotZero(t, weather.Humidity)

	forecast := MockForecast("", "Maharashtra")
	require.Equal(t, "Maharashtra", forecast.Location)
	for _, day := range forecast.Days {
		require.NotEmpty(t, day.Date)
		require.NotEmpty(t, day.Condition)
	}

	schemes := MockSchemes("", "")
	require.Equal(t, schemes.TotalSchemes, len(schemes.Schemes))
	for _, s := range schemes.Schemes {
		require.NotEmpty(t, s.Benefits)
		require.NotEmpty(t, s.Eligibility)
		require.NotEmpty(t, s.ApplicationProcess)
	}
}
