package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeNeeds_NoKeywords(t *testing.T) {
	for _, message := range []string{
		"",
		"Hello, how are you?",
		"Tell me a story about my village",
	} {
		needs := AnalyzeNeeds(message)
		require.False(t, needs.Any(), "message %q must trigger nothing", message)
	}
}

func TestAnalyzeNeeds_MarketWithCommodity(t *testing.T) {
	needs := AnalyzeNeeds("What is the mandi rate for wheat today?")
	require.True(t, needs.MarketPrice)
	require.Equal(t, "wheat", needs.Commodity)
}

func TestAnalyzeNeeds_MarketWithoutCommodity(t *testing.T) {
	needs := AnalyzeNeeds("What are the mandi prices today?")
	require.True(t, needs.MarketPrice)
	require.Empty(t, needs.Commodity)
}

func TestAnalyzeNeeds_CommodityFirstMatchWins(t *testing.T) {
	// The fixed crop list is scanned in order; wheat precedes rice.
	needs := AnalyzeNeeds("Compare rice and wheat prices")
	require.True(t, needs.MarketPrice)
	require.Equal(t, "wheat", needs.Commodity)
}

func TestAnalyzeNeeds_ForecastImpliesWeather(t *testing.T) {
	needs := AnalyzeNeeds("What is the forecast for next week?")
	require.True(t, needs.Forecast)
	require.True(t, needs.Weather, "forecast keyword must imply weather")
}

func TestAnalyzeNeeds_HindiKeywords(t *testing.T) {
	needs := AnalyzeNeeds("आज गेहूं का दाम क्या है")
	require.True(t, needs.MarketPrice)
	require.Equal(t, "गेहूं", needs.Commodity)

	needs = AnalyzeNeeds("कल मौसम कैसा रहेगा")
	require.True(t, needs.Weather)
}

func TestAnalyzeNeeds_Schemes(t *testing.T) {
	needs := AnalyzeNeeds("Which government subsidy can I apply for?")
	require.True(t, needs.Schemes)
	require.False(t, needs.MarketPrice)
}
