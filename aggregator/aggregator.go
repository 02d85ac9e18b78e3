package aggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/extdata"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Fetcher is the slice of the external data client the aggregator
// needs. Fetchers always resolve; provider failures are absorbed by
// sample fallbacks inside the client.
type Fetcher interface {
	MarketPrices(ctx context.Context, q extdata.MarketQuery) *extdata.MarketData
	CurrentWeather(ctx context.Context, p extdata.Place) *extdata.Weather
	Forecast(ctx context.Context, p extdata.Place) *extdata.ForecastData
	Schemes(ctx context.Context, q extdata.SchemesQuery) *extdata.SchemesData
}

// Limits caps how much of each domain reaches the context block, to
// bound prompt size.
type Limits struct {
	MarketPrices int
	ForecastDays int
	Schemes      int
}

func DefaultLimits() Limits {
	return Limits{MarketPrices: 5, ForecastDays: 5, Schemes: 4}
}

// AggregatedData is the transient per-message enrichment result; only
// Context travels onward to the language model.
type AggregatedData struct {
	Fetched      bool
	MarketPrices *extdata.MarketData
	Weather      *extdata.Weather
	Forecast     *extdata.ForecastData
	Schemes      *extdata.SchemesData
	Context      string
}

// DashboardData is the combined snapshot of all four domains for a
// location.
type DashboardData struct {
	Location     models.Location       `json:"location"`
	MarketPrices *extdata.MarketData   `json:"marketPrices"`
	Weather      *extdata.Weather      `json:"currentWeather"`
	Forecast     *extdata.ForecastData `json:"weatherForecast"`
	Schemes      *extdata.SchemesData  `json:"governmentSchemes"`
	FetchedAt    time.Time             `json:"fetchedAt"`
}

type Service struct {
	data   Fetcher
	limits Limits
	log    *zap.Logger
}

func NewService(data Fetcher, limits Limits, log *zap.Logger) *Service {
	if limits.MarketPrices <= 0 || limits.ForecastDays <= 0 || limits.Schemes <= 0 {
		limits = DefaultLimits()
	}
	return &Service{data: data, limits: limits, log: log}
}

// FetchRelevantData analyzes the message and fetches only the needed
// domains, concurrently. When no keyword family matches, it returns
// immediately with an empty context and performs no fetch at all.
func (s *Service) FetchRelevantData(ctx context.Context, message string, loc models.Location) AggregatedData {
	needs := AnalyzeNeeds(message)
	data := AggregatedData{}
	if !needs.Any() {
		return data
	}
	data.Fetched = true

	place := extdata.Place{
		City:  loc.Place(),
		State: loc.State,
		Lat:   loc.Coordinates.Lat,
		Lon:   loc.Coordinates.Lon,
	}

	g, gctx := errgroup.WithContext(ctx)
	if needs.MarketPrice {
		g.Go(func() error {
			data.MarketPrices = s.data.MarketPrices(gctx, extdata.MarketQuery{
				State:     loc.State,
				District:  loc.District,
				Commodity: needs.Commodity,
			})
			return nil
		})
	}
	if needs.Weather {
		g.Go(func() error {
			data.Weather = s.data.CurrentWeather(gctx, place)
			return nil
		})
	}
	if needs.Forecast {
		g.Go(func() error {
			data.Forecast = s.data.Forecast(gctx, place)
			return nil
		})
	}
	if needs.Schemes {
		g.Go(func() error {
			data.Schemes = s.data.Schemes(gctx, extdata.SchemesQuery{State: loc.State})
			return nil
		})
	}
	// Fetchers never fail; this waits for the slowest one.
	_ = g.Wait()

	data.Context = s.buildContext(data, loc)
	return data
}

// DashboardData fetches all four domains in parallel for the
// dashboard snapshot.
func (s *Service) DashboardData(ctx context.Context, loc models.Location) *DashboardData {
	place := extdata.Place{
		City:  loc.Place(),
		State: loc.State,
		Lat:   loc.Coordinates.Lat,
		Lon:   loc.Coordinates.Lon,
	}

	result := &DashboardData{Location: loc}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result.MarketPrices = s.data.MarketPrices(gctx, extdata.MarketQuery{State: loc.State, District: loc.District})
		return nil
	})
	g.Go(func() error {
		result.Weather = s.data.CurrentWeather(gctx, place)
		return nil
	})
	g.Go(func() error {
		result.Forecast = s.data.Forecast(gctx, place)
		return nil
	})
	g.Go(func() error {
		result.Schemes = s.data.Schemes(gctx, extdata.SchemesQuery{State: loc.State})
		return nil
	})
	_ = g.Wait()

	result.FetchedAt = time.Now()
	return result
}

// MarketUpdate is the quick single-domain lookup used by the market
// prices route.
func (s *Service) MarketUpdate(ctx context.Context, loc models.Location, commodity string) *extdata.MarketData {
	return s.data.MarketPrices(ctx, extdata.MarketQuery{
		State:     loc.State,
		District:  loc.District,
		Commodity: commodity,
	})
}

// buildContext renders the fixed-order, section-delimited block that
// is appended to the user's message before it reaches the model.
func (s *Service) buildContext(data AggregatedData, loc models.Location) string {
	var b strings.Builder

	area := loc.District
	if area == "" {
		area = loc.City
	}
	fmt.Fprintf(&b, "\n\n--- REAL-TIME DATA FOR %s, %s ---\n", area, loc.State)

	if data.MarketPrices != nil && len(data.MarketPrices.Prices) > 0 {
		b.WriteString("\nCURRENT MARKET PRICES:\n")
		for i, price := range data.MarketPrices.Prices {
			if i == s.limits.MarketPrices {
				break
			}
			fmt.Fprintf(&b, "- %s (%s): ₹%.0f/Quintal (Min: ₹%.0f, Max: ₹%.0f)\n",
				price.Commodity, price.Variety, price.ModalPrice, price.MinPrice, price.MaxPrice)
		}
		if data.MarketPrices.IsMockData {
			b.WriteString("(Note: These are approximate/sample prices. For exact rates, visit your local mandi.)\n")
		}
	}

	if data.Weather != nil {
		w := data.Weather
		b.WriteString("\nCURRENT WEATHER:\n")
		fmt.Fprintf(&b, "- Location: %s\n", w.Location)
		fmt.Fprintf(&b, "- Temperature: %.1f°C (Feels like %.1f°C)\n", w.Temperature.Current, w.Temperature.FeelsLike)
		fmt.Fprintf(&b, "- Condition: %s - %s\n", w.Condition, w.Description)
		fmt.Fprintf(&b, "- Humidity: %d%%\n", w.Humidity)
		fmt.Fprintf(&b, "- Wind: %.1f km/h\n", w.WindSpeed)
		if w.Rainfall > 0 {
			fmt.Fprintf(&b, "- Rainfall: %.1fmm in last hour\n", w.Rainfall)
		}
	}

	if data.Forecast != nil && len(data.Forecast.Days) > 0 {
		b.WriteString("\n5-DAY WEATHER FORECAST:\n")
		shown := data.Forecast.Days
		if len(shown) > s.limits.ForecastDays {
			shown = shown[:s.limits.ForecastDays]
		}
		for _, day := range shown {
			fmt.Fprintf(&b, "- %s: %s, %.0f°C - %.0f°C", day.Date, day.Condition, day.TempMin, day.TempMax)
			if day.Rainfall > 0 {
				fmt.Fprintf(&b, ", Rain: %.1fmm", day.Rainfall)
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Summary: %s\n", ForecastSummary(shown))
	}

	if data.Schemes != nil && len(data.Schemes.Schemes) > 0 {
		b.WriteString("\nRELEVANT GOVERNMENT SCHEMES:\n")
		for i, scheme := range data.Schemes.Schemes {
			if i == s.limits.Schemes {
				break
			}
			fmt.Fprintf(&b, "\n- %s\n", scheme.Name)
			fmt.Fprintf(&b, "  - Benefits: %s\n", scheme.Benefits)
			fmt.Fprintf(&b, "  - Eligibility: %s\n", scheme.Eligibility)
			fmt.Fprintf(&b, "  - How to Apply: %s\n", scheme.ApplicationProcess)
		}
	}

	b.WriteString("\n--- END OF REAL-TIME DATA ---\n")
	b.WriteString("Use this data to provide accurate, location-specific advice to the farmer.\n")

	return b.String()
}

// ForecastSummary composes the one-line outlook: average temperature,
// plus a sentence each for expected rain and high humidity.
func ForecastSummary(days []extdata.ForecastDay) string {
	if len(days) == 0 {
		return ""
	}

	var sum float64
	hasRain := false
	highHumidity := false
	for _, d := range days {
		sum += (d.TempMin + d.TempMax) / 2
		if d.Rainfall > 0 || d.Condition == "Rain" {
			hasRain = true
		}
		if d.Humidity > 80 {
			highHumidity = true
		}
	}
	avgTemp := sum / float64(len(days))

	summary := fmt.Sprintf("Next %d days: Average temp %.1f°C. ", len(days), avgTemp)
	if hasRain {
		summary += "Rain expected - plan irrigation accordingly. "
	}
	if highHumidity {
		summary += "High humidity - watch for fungal diseases. "
	}
	return summary
}
