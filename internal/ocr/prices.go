package ocr

import (
	"regexp"
	"strconv"
	"strings"

	"hotelpricing/internal/analysis"
)

const maxPricePoints = 100

var (
	// 1.234,56 / 1,234.56 / 120 / 89.90
	amount = `(\d{1,3}(?:[.,']\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)`

	symbolFirst = regexp.MustCompile(`(€|\$|£|CHF|EUR|USD|GBP)\s?` + amount)
	amountFirst = regexp.MustCompile(amount + `\s?(€|\$|£|(?:CHF|EUR|USD|GBP)\b)`)
)

var currencyCodes = map[string]string{
	"€": "EUR", "EUR": "EUR",
	"$": "USD", "USD": "USD",
	"£": "GBP", "GBP": "GBP",
	"CHF": "CHF",
}

// ExtractPrices finds currency amounts in OCR text. Symbols score higher
// confidence than bare codes; the surrounding line becomes the context.
func ExtractPrices(text string) []analysis.PricePoint {
	out := []analysis.PricePoint{}
	seen := map[string]bool{}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, m := range symbolFirst.FindAllStringSubmatch(line, -1) {
			out = appendPoint(out, seen, m[1], m[2], line)
		}
		for _, m := range amountFirst.FindAllStringSubmatch(line, -1) {
			out = appendPoint(out, seen, m[2], m[1], line)
		}
		if len(out) >= maxPricePoints {
			return out[:maxPricePoints]
		}
	}
	return out
}

func appendPoint(out []analysis.PricePoint, seen map[string]bool, symbol, raw, line string) []analysis.PricePoint {
	value, ok := parseAmount(raw)
	if !ok || value <= 0 {
		return out
	}
	currency := currencyCodes[symbol]

	key := currency + "|" + strconv.FormatFloat(value, 'f', 2, 64) + "|" + line
	if seen[key] {
		return out
	}
	seen[key] = true

	confidence := 0.8
	if symbol == "€" || symbol == "$" || symbol == "£" {
		confidence = 0.9
	}

	return append(out, analysis.PricePoint{
		Value:      value,
		Currency:   currency,
		Context:    shorten(line, 120),
		Confidence: confidence,
	})
}

// parseAmount accepts both decimal conventions. The last separator
// followed by one or two digits is the decimal point.
func parseAmount(raw string) (float64, bool) {
	s := strings.ReplaceAll(raw, "'", "")

	lastSep := strings.LastIndexAny(s, ".,")
	if lastSep >= 0 && len(s)-lastSep-1 <= 2 {
		intPart := strings.NewReplacer(".", "", ",", "").Replace(s[:lastSep])
		s = intPart + "." + s[lastSep+1:]
	} else {
		s = strings.NewReplacer(".", "", ",", "").Replace(s)
	}

	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
