package pricing

// CurrencyStats aggregates the extracted prices of one currency.
type CurrencyStats struct {
	Currency    string   `json:"currency"`
	Average     float64  `json:"average"`
	Median      float64  `json:"median"`
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	SampleSize  int      `json:"sampleSize"`
	Positioning string   `json:"positioning,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

type Summary struct {
	Currencies    []CurrencyStats `json:"currencies"`
	AveragePrice  float64         `json:"averagePrice"`
	TotalSamples  int             `json:"totalSamples"`
	AnalysesCount int             `json:"analysesCount"`
}

const (
	PositionUnderMarket   = "UNDER_MARKET"
	PositionMarketAverage = "MARKET_AVERAGE"
	PositionPremium       = "PREMIUM"
)
