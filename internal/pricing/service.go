package pricing

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"hotelpricing/internal/analysis"
)

// Source lists analyses whose price data feeds the summary.
type Source interface {
	List(ctx context.Context, f analysis.Filter) ([]analysis.Analysis, error)
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Summarize computes market statistics over every completed analysis in
// scope. When price is set each currency also gets a positioning label for it.
func (s *Service) Summarize(ctx context.Context, scope analysis.Scope, price *float64) (*Summary, error) {
	list, err := s.source.List(ctx, analysis.Filter{
		UploadID: scope.UploadID(),
		Status:   analysis.StatusCompleted,
		Scope:    scope,
	})
	if err != nil {
		return nil, err
	}

	var points []analysis.PricePoint
	for _, a := range list {
		points = append(points, a.PriceData...)
	}

	summary := Compute(points)
	summary.AnalysesCount = len(list)

	if price != nil {
		for i := range summary.Currencies {
			cs := &summary.Currencies[i]
			cs.Price = price
			cs.Positioning = DeterminePosition(*price, cs.Median)
		}
	}

	slog.Info("[PRICING] summary computed",
		"analyses", len(list),
		"samples", summary.TotalSamples,
		"currencies", len(summary.Currencies),
	)
	return &summary, nil
}

// Compute groups price points by currency. Points without a positive value
// are ignored and an empty input yields zero averages.
func Compute(points []analysis.PricePoint) Summary {
	byCurrency := map[string][]float64{}
	var all []float64
	for _, p := range points {
		if p.Value <= 0 {
			continue
		}
		cur := strings.ToUpper(strings.TrimSpace(p.Currency))
		if cur == "" {
			cur = "UNKNOWN"
		}
		byCurrency[cur] = append(byCurrency[cur], p.Value)
		all = append(all, p.Value)
	}

	out := Summary{Currencies: []CurrencyStats{}, TotalSamples: len(all), AveragePrice: Average(all)}
	for cur, values := range byCurrency {
		sort.Float64s(values)
		out.Currencies = append(out.Currencies, CurrencyStats{
			Currency:   cur,
			Average:    Average(values),
			Median:     Median(values),
			Min:        values[0],
			Max:        values[len(values)-1],
			SampleSize: len(values),
		})
	}
	sort.Slice(out.Currencies, func(i, j int) bool {
		return out.Currencies[i].SampleSize > out.Currencies[j].SampleSize ||
			(out.Currencies[i].SampleSize == out.Currencies[j].SampleSize &&
				out.Currencies[i].Currency < out.Currencies[j].Currency)
	})
	return out
}

// Average returns 0 for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median expects sorted input and returns 0 for an empty slice.
func Median(sorted []float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n%2 == 1:
		return sorted[n/2]
	default:
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
}

// --------------------------------------------------
// Positioning logic
// --------------------------------------------------
func DeterminePosition(price, median float64) string {
	switch {
	case price < median*0.9:
		return PositionUnderMarket
	case price > median*1.1:
		return PositionPremium
	default:
		return PositionMarketAverage
	}
}
