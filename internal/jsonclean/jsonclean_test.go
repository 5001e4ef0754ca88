package jsonclean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid object untouched", `{"a":1}`, `{"a":1}`},
		{"markdown fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"prose prefix", `Here is the JSON: {"a":"b"}`, `{"a":"b"}`},
		{"prose around object", `Sure! {"a":{"b":"}"}} hope that helps`, `{"a":{"b":"}"}}`},
		{"trailing comma", `{"a":[1,2,],}`, `{"a":[1,2]}`},
		{"nothing", "no json here", ""},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestDecode(t *testing.T) {
	var out struct {
		DocumentType string `json:"documentType"`
	}
	require.NoError(t, Decode("```json\n{\"documentType\":\"rate sheet\"}\n```", &out))
	assert.Equal(t, "rate sheet", out.DocumentType)

	assert.ErrorIs(t, Decode("plain prose", &out), ErrNoJSON)
}
