package extdata

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type owmWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Visibility int `json:"visibility"`
	Rain       struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type owmForecastResponse struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Rain struct {
			ThreeHours float64 `json:"3h"`
		} `json:"rain"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	} `json:"list"`
}

// CurrentWeather returns current conditions for the place, falling
// back to a deterministic sample payload on any provider failure.
func (cl *Client) CurrentWeather(ctx context.Context, p Place) *Weather {
	key := fmt.Sprintf("weather_current_%s_%s", placeKey(p.Lat, p.City), placeKey(p.Lon, p.State))

	payload, err := cl.cache.GetOrFetch(key, func() (any, error) {
		return cl.fetchCurrentWeather(ctx, p)
	})
	if err != nil {
		cl.log.Warn("weather fetch failed, using sample data",
			zap.String("city", p.City), zap.Error(err))
		return MockCurrentWeather(p.City, p.State)
	}
	return payload.(*Weather)
}

// Forecast returns the 5-day outlook, collapsed from the provider's
// 3-hour buckets into daily entries.
func (cl *Client) Forecast(ctx context.Context, p Place) *ForecastData {
	key := fmt.Sprintf("weather_forecast_%s_%s", placeKey(p.Lat, p.City), placeKey(p.Lon, p.State))

	payload, err := cl.cache.GetOrFetch(key, func() (any, error) {
		return cl.fetchForecast(ctx, p)
	})
	if err != nil {
		cl.log.Warn("forecast fetch failed, using sample data",
			zap.String("city", p.City), zap.Error(err))
		return MockForecast(p.City, p.State)
	}
	return payload.(*ForecastData)
}

func (cl *Client) weatherParams(p Place) url.Values {
	params := url.Values{}
	params.Set("appid", cl.cfg.WeatherAPIKey)
	params.Set("units", "metric")
	if p.Lat != 0 || p.Lon != 0 {
		params.Set("lat", strconv.FormatFloat(p.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(p.Lon, 'f', -1, 64))
	} else {
		params.Set("q", fmt.Sprintf("%s,%s,IN", p.City, p.State))
	}
	return params
}

func (cl *Client) fetchCurrentWeather(ctx context.Context, p Place) (*Weather, error) {
	params := cl.weatherParams(p)
	params.Set("lang", "en")

	var resp owmWeatherResponse
	if err := cl.getJSON(ctx, weatherTimeout, cl.cfg.WeatherBaseURL+"/weather", params, &resp); err != nil {
		return nil, err
	}

	w := &Weather{
		Location: resp.Name,
		Temperature: Temperature{
			Current:   resp.Main.Temp,
			FeelsLike: resp.Main.FeelsLike,
			Min:       resp.Main.TempMin,
			Max:       resp.Main.TempMax,
			Unit:      "°C",
		},
		Humidity:    resp.Main.Humidity,
		Pressure:    resp.Main.Pressure,
		WindSpeed:   resp.Wind.Speed,
		Visibility:  resp.Visibility,
		Rainfall:    resp.Rain.OneHour,
		Sunrise:     time.Unix(resp.Sys.Sunrise, 0).Format("03:04 PM"),
		Sunset:      time.Unix(resp.Sys.Sunset, 0).Format("03:04 PM"),
		LastUpdated: time.Now(),
	}
	if len(resp.Weather) > 0 {
		w.Condition = resp.Weather[0].Main
		w.Description = resp.Weather[0].Description
	}
	return w, nil
}

func (cl *Client) fetchForecast(ctx context.Context, p Place) (*ForecastData, error) {
	params := cl.weatherParams(p)
	// 5 days of 3-hour intervals.
	params.Set("cnt", "40")

	var resp owmForecastResponse
	if err := cl.getJSON(ctx, weatherTimeout, cl.cfg.WeatherBaseURL+"/forecast", params, &resp); err != nil {
		return nil, err
	}

	var order []string
	daily := map[string]*ForecastDay{}
	for _, item := range resp.List {
		date := time.Unix(item.Dt, 0).Format("02/01/2006")
		day, ok := daily[date]
		if !ok {
			day = &ForecastDay{
				Date:      date,
				TempMin:   item.Main.TempMin,
				TempMax:   item.Main.TempMax,
				Humidity:  item.Main.Humidity,
				Rainfall:  item.Rain.ThreeHours,
				WindSpeed: item.Wind.Speed,
			}
			if len(item.Weather) > 0 {
				day.Condition = item.Weather[0].Main
				day.Description = item.Weather[0].Description
			}
			daily[date] = day
			order = append(order, date)
			continue
		}
		day.TempMin = math.Min(day.TempMin, item.Main.TempMin)
		day.TempMax = math.Max(day.TempMax, item.Main.TempMax)
		day.Rainfall += item.Rain.ThreeHours
	}

	days := make([]ForecastDay, 0, 5)
	for _, date := range order {
		if len(days) == 5 {
			break
		}
		days = append(days, *daily[date])
	}

	return &ForecastData{
		Location:    resp.City.Name,
		Days:        days,
		LastUpdated: time.Now(),
	}, nil
}

// MockCurrentWeather is the deterministic sample payload for current
// conditions.
func MockCurrentWeather(city, state string) *Weather {
	location := city
	if location == "" {
		location = state
	}
	if location == "" {
		location = "Your Location"
	}
	return &Weather{
		Location:    location,
		Temperature: Temperature{Current: 28, FeelsLike: 30, Min: 24, Max: 32, Unit: "°C"},
		Humidity:    65,
		Pressure:    1013,
		WindSpeed:   12,
		Condition:   "Partly Cloudy",
		Description: "scattered clouds",
		Visibility:  10000,
		Rainfall:    0,
		Sunrise:     "06:15 AM",
		Sunset:      "06:30 PM",
		LastUpdated: time.Now(),
		IsMockData:  true,
	}
}

// MockForecast is the randomized-but-bounded 5-day sample payload.
func MockForecast(city, state string) *ForecastData {
	location := city
	if location == "" {
		location = state
	}
	if location == "" {
		location = "Your Location"
	}

	conditions := []string{"Clear", "Clouds", "Rain"}
	days := make([]ForecastDay, 0, 5)
	for i := 0; i < 5; i++ {
		var rainfall float64
		if rand.Float64() > 0.7 {
			rainfall = rand.Float64() * 10
		}
		days = append(days, ForecastDay{
			Date:        time.Now().AddDate(0, 0, i).Format("02/01/2006"),
			TempMin:     22 + rand.Float64()*5,
			TempMax:     30 + rand.Float64()*5,
			Humidity:    60 + rand.Intn(21),
			Condition:   conditions[rand.Intn(len(conditions))],
			Description: "Weather forecast",
			Rainfall:    rainfall,
			WindSpeed:   8 + rand.Float64()*10,
		})
	}

	return &ForecastData{
		Location:    location,
		Days:        days,
		LastUpdated: time.Now(),
		IsMockData:  true,
	}
}

func placeKey(coord float64, name string) string {
	if coord != 0 {
		return strconv.FormatFloat(coord, 'f', 4, 64)
	}
	return name
}
