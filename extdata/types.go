package extdata

import "time"

// MarketQuery filters the commodity price lookup.
type MarketQuery struct {
	State     string
	District  string
	Market    string
	Commodity string
}

// Place identifies a weather lookup target, by coordinates when
// available, else by city/state.
type Place struct {
	City  string
	State string
	Lat   float64
	Lon   float64
}

// SchemesQuery filters the government scheme lookup.
type SchemesQuery struct {
	State    string
	Category string
}

// PriceRecord is one mandi price line.
type PriceRecord struct {
	Commodity   string  `json:"commodity"`
	Variety     string  `json:"variety"`
	Market      string  `json:"market"`
	MinPrice    float64 `json:"minPrice"`
	MaxPrice    float64 `json:"maxPrice"`
	ModalPrice  float64 `json:"modalPrice"`
	PriceUnit   string  `json:"priceUnit"`
	ArrivalDate string  `json:"arrivalDate,omitempty"`
}

type MarketData struct {
	Prices       []PriceRecord `json:"prices"`
	TotalRecords int           `json:"totalRecords"`
	Summary      string        `json:"summary"`
	LastUpdated  time.Time     `json:"lastUpdated"`
	IsMockData   bool          `json:"isMockData,omitempty"`
}

type Temperature struct {
	Current   float64 `json:"current"`
	FeelsLike float64 `json:"feelsLike"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Unit      string  `json:"unit"`
}

type Weather struct {
	Location    string      `json:"location"`
	Temperature Temperature `json:"temperature"`
	Humidity    int         `json:"humidity"`
	Pressure    int         `json:"pressure"`
	WindSpeed   float64     `json:"windSpeed"`
	Condition   string      `json:"condition"`
	Description string      `json:"description"`
	Visibility  int         `json:"visibility"`
	Rainfall    float64     `json:"rainfall"`
	Sunrise     string      `json:"sunrise"`
	Sunset      string      `json:"sunset"`
	LastUpdated time.Time   `json:"lastUpdated"`
	IsMockData  bool        `json:"isMockData,omitempty"`
}

// ForecastDay is one day collapsed from the provider's 3-hour buckets.
type ForecastDay struct {
	Date        string  `json:"date"`
	TempMin     float64 `json:"tempMin"`
	TempMax     float64 `json:"tempMax"`
	Humidity    int     `json:"humidity"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Rainfall    float64 `json:"rainfall"`
	WindSpeed   float64 `json:"windSpeed"`
}

type ForecastData struct {
	Location    string        `json:"location"`
	Days        []ForecastDay `json:"forecasts"`
	LastUpdated time.Time     `json:"lastUpdated"`
	IsMockData  bool          `json:"isMockData,omitempty"`
}

type Scheme struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	Benefits           string `json:"benefits"`
	Eligibility        string `json:"eligibility"`
	ApplicationProcess string `json:"applicationProcess"`
	Ministry           string `json:"ministry"`
	State              string `json:"state"`
	Category           string `json:"category"`
	SubsidyAmount      string `json:"subsidyAmount"`
	Link               string `json:"link"`
}

type SchemesData struct {
	Schemes      []Scheme  `json:"schemes"`
	TotalSchemes int       `json:"totalSchemes"`
	Summary      string    `json:"summary"`
	LastUpdated  time.Time `json:"lastUpdated"`
	IsMockData   bool      `json:"isMockData,omitempty"`
}
