package analysis

import (
	"encoding/json"
	"strings"

	"hotelpricing/internal/jsonclean"
)

const (
	BadgePending    = "AI analysis pending"
	BadgeComplete   = "AI analysis complete"
	BadgeProcessing = "processing"
	BadgeNoInsights = "no insights"
)

var recognizedKeys = []string{"documentType", "keyFindings", "businessInsights"}

// BadgeFor derives the insight badge shown next to an analysis.
func BadgeFor(a *Analysis) string {
	return Badge(a.Status, a.Insights)
}

// Badge returns exactly one of the four badge labels. Insights may be a JSON
// object or a JSON string holding one; anything unreadable counts as pending.
func Badge(status string, insights json.RawMessage) string {
	if status == StatusPending || status == StatusProcessing {
		return BadgeProcessing
	}

	raw := strings.TrimSpace(string(insights))
	if raw == "" || raw == "null" {
		return BadgeNoInsights
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return BadgePending
	}

	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return BadgeNoInsights
		}
		var inner any
		if err := jsonclean.Decode(s, &inner); err != nil {
			return BadgePending
		}
		v = inner
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return BadgePending
	}
	if len(obj) == 0 {
		return BadgeNoInsights
	}
	if isComplete(obj, 0) {
		return BadgeComplete
	}
	return BadgePending
}

func isComplete(obj map[string]any, depth int) bool {
	for _, k := range recognizedKeys {
		if nonEmpty(obj[k]) {
			return true
		}
	}

	switch summary := obj["summary"].(type) {
	case string:
		s := strings.TrimSpace(summary)
		if s == "" {
			return false
		}
		var inner map[string]any
		if jsonclean.Decode(s, &inner) != nil {
			// plain prose summary
			return !looksLikeJSON(s)
		}
		if depth > 0 {
			return len(inner) > 0
		}
		return isComplete(inner, depth+1)
	case map[string]any:
		if depth > 0 {
			return len(summary) > 0
		}
		return isComplete(summary, depth+1)
	}
	return false
}

func looksLikeJSON(s string) bool {
	s = strings.TrimLeft(s, "` \n\t")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

func nonEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
