package aggregator

import (
	"context"
	"time"

	"github.com/Abhijeet14d/KrishiBandhu/extdata"
	"github.com/Abhijeet14d/KrishiBandhu/models"
	"golang.org/x/sync/errgroup"
)

const (
	AdviceInfo    = "info"
	AdviceWarning = "warning"
)

type Advice struct {
	Type     string `json:"type"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

type FarmingAdvice struct {
	CurrentConditions *extdata.Weather      `json:"currentConditions"`
	Forecast          *extdata.ForecastData `json:"forecast"`
	Advice            []Advice              `json:"advice"`
	GeneratedAt       time.Time             `json:"generatedAt"`
}

// GetFarmingAdvice fetches current weather and forecast concurrently
// and applies the threshold rules in a fixed order. Every matching
// rule is emitted, not just the first.
func (s *Service) GetFarmingAdvice(ctx context.Context, loc models.Location) *FarmingAdvice {
	place := extdata.Place{
		City:  loc.Place(),
		State: loc.State,
		Lat:   loc.Coordinates.Lat,
		Lon:   loc.Coordinates.Lon,
	}

	var (
		weather  *extdata.Weather
		forecast *extdata.ForecastData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		weather = s.data.CurrentWeather(gctx, place)
		return nil
	})
	g.Go(func() error {
		forecast = s.data.Forecast(gctx, place)
		return nil
	})
	_ = g.Wait()

	advice := []Advice{}

	if weather.Humidity > 80 {
		advice = append(advice, Advice{
			Type:     AdviceWarning,
			Category: "Disease Prevention",
			Message:  "High humidity detected. Monitor crops for fungal diseases.",
		})
	}
	if weather.Temperature.Current > 35 {
		advice = append(advice, Advice{
			Type:     AdviceWarning,
			Category: "Heat Stress",
			Message:  "High temperature. Ensure adequate irrigation and consider mulching.",
		})
	}

	rainExpected := false
	for _, day := range forecast.Days {
		if day.Rainfall > 0 || day.Condition == "Rain" {
			rainExpected = true
			break
		}
	}
	if rainExpected {
		advice = append(advice,
			Advice{
				Type:     AdviceInfo,
				Category: "Irrigation",
				Message:  "Rain expected in coming days. Adjust irrigation schedule accordingly.",
			},
			Advice{
				Type:     AdviceWarning,
				Category: "Harvesting",
				Message:  "If crops are ready for harvest, consider harvesting before rain.",
			})
	}

	return &FarmingAdvice{
		CurrentConditions: weather,
		Forecast:          forecast,
		Advice:            advice,
		GeneratedAt:       time.Now(),
	}
}
