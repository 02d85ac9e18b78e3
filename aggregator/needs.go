// Package aggregator decides which external data a user's message
// calls for, fetches it concurrently and formats it into the context
// block appended to the prompt.
package aggregator

import "strings"

// DataNeeds is the per-message classification result. It is derived
// and discarded per turn, never persisted.
type DataNeeds struct {
	MarketPrice bool
	Weather     bool
	Forecast    bool
	Schemes     bool
	Commodity   string
}

// Any reports whether any enrichment is needed at all.
func (n DataNeeds) Any() bool {
	return n.MarketPrice || n.Weather || n.Forecast || n.Schemes
}

// Trigger keywords per data family, English plus Hindi (transliterated
// and Devanagari). Matching is case-insensitive substring.
var (
	marketKeywords = []string{
		"price", "rate", "mandi", "market", "sell", "cost", "bhav", "daam",
		"बाजार", "मंडी", "दाम",
	}
	weatherKeywords = []string{
		"weather", "rain", "temperature", "mausam", "barish", "garmi", "sardi",
		"मौसम", "बारिश", "तापमान",
	}
	schemeKeywords = []string{
		"scheme", "yojana", "subsidy", "government", "sarkar", "loan",
		"insurance", "bima", "योजना", "सरकार", "सब्सिडी",
	}
	forecastKeywords = []string{
		"forecast", "next week", "coming days", "agle din", "agla hafta",
		"prediction",
	}
)

// Crops recognized for commodity extraction; first match wins.
var commodities = []string{
	"wheat", "rice", "paddy", "cotton", "sugarcane", "maize", "corn",
	"tomato", "onion", "potato", "soybean", "groundnut", "mustard",
	"chana", "dal", "arhar", "moong", "urad", "masoor",
	"banana", "mango", "apple", "orange", "grapes",
	"गेहूं", "चावल", "धान", "कपास", "गन्ना", "मक्का",
	"टमाटर", "प्याज", "आलू", "सोयाबीन",
}

// AnalyzeNeeds classifies a free-text message into data needs. Pure
// and deterministic; an empty message yields zero-value needs.
func AnalyzeNeeds(message string) DataNeeds {
	needs := DataNeeds{}
	if message == "" {
		return needs
	}
	lower := strings.ToLower(message)

	if matchesAny(lower, marketKeywords) {
		needs.MarketPrice = true
		needs.Commodity = extractCommodity(lower)
	}
	if matchesAny(lower, weatherKeywords) {
		needs.Weather = true
	}
	if matchesAny(lower, forecastKeywords) {
		needs.Forecast = true
		// Current conditions are useful context for any forecast ask.
		needs.Weather = true
	}
	if matchesAny(lower, schemeKeywords) {
		needs.Schemes = true
	}

	return needs
}

func matchesAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func extractCommodity(lower string) string {
	for _, c := range commodities {
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return ""
}
