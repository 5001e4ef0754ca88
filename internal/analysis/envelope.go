package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/jsonclean"

	"github.com/go-playground/validator/v10"
)

const EnvelopeVersion = 2

const (
	KindDocumentSummary      = "document_summary"
	KindBusinessInsights     = "business_insights"
	KindCalculationBreakdown = "calculation_breakdown"
)

// ErrNoInsights is returned by Normalize for empty insight payloads.
var ErrNoInsights = errors.New("no insights")

// Envelope is the only insights shape written by this service. Older rows
// are lifted into it by Normalize.
type Envelope struct {
	Version          int                   `json:"version" validate:"eq=2"`
	Kind             string                `json:"kind" validate:"oneof=document_summary business_insights calculation_breakdown"`
	DocumentType     string                `json:"documentType,omitempty"`
	Summary          string                `json:"summary,omitempty"`
	KeyFindings      []string              `json:"keyFindings,omitempty"`
	BusinessInsights []string              `json:"businessInsights,omitempty"`
	Recommendations  []string              `json:"recommendations,omitempty"`
	PriceMentions    []PricePoint          `json:"priceMentions,omitempty" validate:"dive"`
	Calculation      *CalculationBreakdown `json:"calculation,omitempty"`
}

type CalculationBreakdown struct {
	Currency    string       `json:"currency"`
	BasePrice   float64      `json:"basePrice" validate:"gte=0"`
	Adjustments []Adjustment `json:"adjustments" validate:"dive"`
	FinalPrice  float64      `json:"finalPrice" validate:"gte=0"`
}

type Adjustment struct {
	Label  string  `json:"label" validate:"required"`
	Amount float64 `json:"amount"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(envelopeRules, Envelope{})
	return v
}

func envelopeRules(sl validator.StructLevel) {
	e := sl.Current().Interface().(Envelope)
	switch e.Kind {
	case KindDocumentSummary:
		if e.DocumentType == "" && e.Summary == "" && len(e.KeyFindings) == 0 {
			sl.ReportError(e.Summary, "Summary", "summary", "summary_content", "")
		}
	case KindBusinessInsights:
		if len(e.BusinessInsights) == 0 && len(e.Recommendations) == 0 {
			sl.ReportError(e.BusinessInsights, "BusinessInsights", "businessInsights", "insight_content", "")
		}
	case KindCalculationBreakdown:
		if e.Calculation == nil {
			sl.ReportError(e.Calculation, "Calculation", "calculation", "required", "")
		}
	}
}

// Validate checks the envelope before it is persisted.
func (e *Envelope) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: insights envelope: %v", apierror.ErrInvalidInput, err)
	}
	return nil
}

// Encode validates e and returns its JSON form.
func (e *Envelope) Encode() (json.RawMessage, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// IsCurrent reports whether raw already holds a current-version envelope.
func IsCurrent(raw json.RawMessage) bool {
	var head struct {
		Version int `json:"version"`
	}
	if json.Unmarshal(raw, &head) != nil || head.Version != EnvelopeVersion {
		return false
	}
	var e Envelope
	return json.Unmarshal(raw, &e) == nil && e.Validate() == nil
}

// Normalize turns any insights payload into a validated envelope. It
// accepts the current envelope plus the three historical shapes: a plain
// object, an object whose summary is a JSON string, and a markdown fenced
// JSON string.
func Normalize(raw json.RawMessage) (*Envelope, error) {
	obj, err := insightObject(raw)
	if err != nil {
		return nil, err
	}

	if v, ok := obj["version"].(float64); ok && int(v) == EnvelopeVersion {
		var e Envelope
		if err := remarshal(obj, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", apierror.ErrInvalidInput, err)
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return &e, nil
	}

	liftSummary(obj)

	e := fromLegacy(obj)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// NormalizeModelOutput is Normalize for raw LLM text.
func NormalizeModelOutput(text string) (*Envelope, error) {
	cleaned := jsonclean.Clean(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: model returned no JSON", apierror.ErrUpstream)
	}
	return Normalize(json.RawMessage(cleaned))
}

func insightObject(raw json.RawMessage) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, ErrNoInsights
	}

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		// not JSON at all, maybe fenced text stored verbatim
		v = trimmed
	}

	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			return nil, ErrNoInsights
		}
		return t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, ErrNoInsights
		}
		var obj map[string]any
		if err := jsonclean.Decode(t, &obj); err != nil {
			return nil, fmt.Errorf("%w: unreadable insights string", apierror.ErrInvalidInput)
		}
		if len(obj) == 0 {
			return nil, ErrNoInsights
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("%w: insights must be an object", apierror.ErrInvalidInput)
	}
}

// liftSummary merges a nested summary object (or JSON string) into obj.
// Keys already present on the outer object win.
func liftSummary(obj map[string]any) {
	var inner map[string]any
	switch s := obj["summary"].(type) {
	case string:
		if !looksLikeJSON(s) || jsonclean.Decode(s, &inner) != nil {
			return
		}
	case map[string]any:
		inner = s
	default:
		return
	}

	delete(obj, "summary")
	for k, v := range inner {
		if _, exists := obj[k]; !exists {
			obj[k] = v
		}
	}
	if s, ok := obj["summary"].(map[string]any); ok {
		obj["summary"] = text(s)
	}
}

func fromLegacy(obj map[string]any) *Envelope {
	e := &Envelope{
		Version:          EnvelopeVersion,
		DocumentType:     text(obj["documentType"]),
		Summary:          text(obj["summary"]),
		KeyFindings:      stringList(obj["keyFindings"]),
		BusinessInsights: stringList(obj["businessInsights"]),
		Recommendations:  stringList(obj["recommendations"]),
	}

	for _, key := range []string{"calculation", "calculationBreakdown"} {
		if c, ok := obj[key].(map[string]any); ok {
			var calc CalculationBreakdown
			if remarshal(c, &calc) == nil {
				e.Calculation = &calc
			}
			break
		}
	}

	if prices, ok := obj["priceMentions"].([]any); ok {
		var points []PricePoint
		if remarshal(prices, &points) == nil {
			e.PriceMentions = points
		}
	}

	switch {
	case e.Calculation != nil:
		e.Kind = KindCalculationBreakdown
	case e.DocumentType == "" && e.Summary == "" && len(e.KeyFindings) == 0 &&
		(len(e.BusinessInsights) > 0 || len(e.Recommendations) > 0):
		e.Kind = KindBusinessInsights
	default:
		e.Kind = KindDocumentSummary
	}
	return e
}

func remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		for _, k := range []string{"text", "summary", "description", "title"} {
			if s, ok := t[k].(string); ok && s != "" {
				return strings.TrimSpace(s)
			}
		}
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// stringList flattens the many list encodings legacy producers used.
func stringList(v any) []string {
	var out []string
	switch t := v.(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range t {
			out = append(out, stringList(item)...)
		}
	case map[string]any:
		if s := text(t); len(t) > 0 && hasTextKey(t) {
			return []string{s}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, s := range stringList(t[k]) {
				out = append(out, k+": "+s)
			}
		}
	default:
		out = append(out, fmt.Sprint(t))
	}
	return out
}

func hasTextKey(m map[string]any) bool {
	for _, k := range []string{"text", "summary", "description", "title"} {
		if _, ok := m[k].(string); ok {
			return true
		}
	}
	return false
}
