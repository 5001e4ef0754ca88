// Package jsonclean pulls a JSON document out of model output and legacy
// insight strings.
package jsonclean

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no JSON object or array can be recovered.
var ErrNoJSON = errors.New("no JSON document found")

var (
	fencedBlock   = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```")
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

var prosePrefixes = []string{
	"here's the json response:",
	"here is the json response:",
	"here is the json:",
	"here's the json:",
	"the json output is:",
	"json response:",
	"response:",
	"output:",
	"result:",
	"json",
}

// Clean returns the best JSON candidate found in s, or "" when there is none.
// Already valid JSON is returned trimmed and otherwise untouched.
func Clean(s string) string {
	text := strings.TrimSpace(s)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return ""
	}
	if json.Valid([]byte(text)) {
		return text
	}

	if m := fencedBlock.FindStringSubmatch(text); len(m) > 1 {
		text = strings.TrimSpace(m[1])
	} else {
		text = strings.TrimSpace(strings.Trim(text, "`"))
	}

	lower := strings.ToLower(text)
	for _, p := range prosePrefixes {
		if strings.HasPrefix(lower, p) {
			text = strings.TrimSpace(text[len(p):])
			break
		}
	}

	if !json.Valid([]byte(text)) {
		if extracted := outermost(text); extracted != "" {
			text = extracted
		}
	}

	if !json.Valid([]byte(text)) {
		text = trailingComma.ReplaceAllString(text, "$1")
	}

	if !json.Valid([]byte(text)) {
		return ""
	}
	return text
}

// Decode cleans s and unmarshals the result into v.
func Decode(s string, v any) error {
	cleaned := Clean(s)
	if cleaned == "" {
		return ErrNoJSON
	}
	return json.Unmarshal([]byte(cleaned), v)
}

// outermost returns the first balanced {...} or [...] in text, ignoring
// brackets inside string literals.
func outermost(text string) string {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return ""
	}

	open := text[start]
	closing := byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			depth++
		case ch == closing:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
