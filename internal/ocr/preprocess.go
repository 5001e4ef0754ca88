package ocr

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"hotelpricing/internal/logger"
)

// DefaultMaxChars keeps prompts well inside every provider's context window.
const DefaultMaxChars = 15000

var (
	noiseLines = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^page\s*\d+(\s*(of|/)\s*\d+)?$`),
		regexp.MustCompile(`^\d+\s*/\s*\d+$`),
		regexp.MustCompile(`^\d+$`),
		regexp.MustCompile(`(?i)^(confidential|vertraulich)$`),
	}
	shortPrice  = regexp.MustCompile(`^[€$£]?\d*[.,]?\d+$`)
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
	artifacts   = []string{"\ufffd", "\f", "\u00a0"}
)

// Preprocessor cleans OCR text before it is sent to a language model.
type Preprocessor struct {
	MaxChars int
	log      *slog.Logger
}

func NewPreprocessor(maxChars int) *Preprocessor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Preprocessor{MaxChars: maxChars, log: logger.For("ocr")}
}

func (p *Preprocessor) Clean(raw string) string {
	if raw == "" {
		return raw
	}

	text := strings.ReplaceAll(raw, PageBreak, "\n")
	for _, a := range artifacts {
		text = strings.ReplaceAll(text, a, " ")
	}
	text = dropNoiseLines(text)
	text = normalizeWhitespace(text)
	text = p.truncate(text)

	p.log.Debug("cleaned OCR text", "in", len(raw), "out", len(text))
	return text
}

func dropNoiseLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isNoise(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isNoise(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range noiseLines {
		if re.MatchString(line) {
			return true
		}
	}
	// very short fragments are noise unless they look like a price
	return len(line) < 3 && !shortPrice.MatchString(line)
}

func normalizeWhitespace(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")

	return strings.TrimSpace(newlineRuns.ReplaceAllString(text, "\n\n"))
}

// CutBytes returns at most n bytes of s without splitting a multi-byte rune.
func CutBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// truncate cuts at the last paragraph break when one is reasonably close.
func (p *Preprocessor) truncate(text string) string {
	if len(text) <= p.MaxChars {
		return text
	}

	cut := CutBytes(text, p.MaxChars)
	if idx := strings.LastIndex(cut, "\n\n"); idx > p.MaxChars/2 {
		cut = cut[:idx]
	}

	p.log.Info("OCR text truncated", "from", len(text), "to", len(cut))
	return cut
}
