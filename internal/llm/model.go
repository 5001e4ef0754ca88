package llm

import "github.com/sashabaranov/go-openai/jsonschema"

// AnalyticsAnswer is the model's reply to a free-form analytics question.
type AnalyticsAnswer struct {
	Answer          string   `json:"answer"`
	KeyPoints       []string `json:"keyPoints"`
	Recommendations []string `json:"recommendations"`
	Sources         []string `json:"sources"`
}

// ComprehensiveResult is the cross-document analysis over all summaries.
type ComprehensiveResult struct {
	Summary          string   `json:"summary"`
	KeyFindings      []string `json:"keyFindings"`
	BusinessInsights []string `json:"businessInsights"`
	Recommendations  []string `json:"recommendations"`
	PricingOverview  string   `json:"pricingOverview"`
}

var stringArray = jsonschema.Definition{
	Type:  jsonschema.Array,
	Items: &jsonschema.Definition{Type: jsonschema.String},
}

var DocumentSummarySchema = &Schema{
	Name: "document_summary",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"documentType":     {Type: jsonschema.String, Description: "e.g. rate sheet, contract, invoice, competitor offer"},
			"summary":          {Type: jsonschema.String},
			"keyFindings":      stringArray,
			"businessInsights": stringArray,
			"recommendations":  stringArray,
			"priceMentions": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"value":    {Type: jsonschema.Number},
						"currency": {Type: jsonschema.String},
						"context":  {Type: jsonschema.String},
					},
					Required: []string{"value", "currency"},
				},
			},
		},
		Required: []string{"documentType", "summary", "keyFindings", "businessInsights"},
	},
}

var ComprehensiveSchema = &Schema{
	Name: "comprehensive_analysis",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"summary":          {Type: jsonschema.String},
			"keyFindings":      stringArray,
			"businessInsights": stringArray,
			"recommendations":  stringArray,
			"pricingOverview":  {Type: jsonschema.String},
		},
		Required: []string{"summary", "keyFindings", "businessInsights", "recommendations"},
	},
}

var AnalyticsSchema = &Schema{
	Name: "analytics_answer",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"answer":          {Type: jsonschema.String, Description: "markdown"},
			"keyPoints":       stringArray,
			"recommendations": stringArray,
			"sources":         stringArray,
		},
		Required: []string{"answer", "keyPoints", "recommendations", "sources"},
	},
}
