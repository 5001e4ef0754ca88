package llm

import (
	"fmt"
	"strings"
)

const SystemAnalyst = `You are a revenue analyst for a hotel group.
You read rate sheets, contracts, competitor offers and invoices and explain what they mean for room pricing.
Answer with valid JSON only. No markdown fences. No text outside the JSON object.`

// Digest is one document's contribution to a multi-document prompt.
type Digest struct {
	FileName string
	Summary  string
	Prices   []string
}

func BuildDocumentSummaryPrompt(fileName, text string) string {
	return fmt.Sprintf(`Summarise the document below.

Return a JSON object with:
- "documentType": what kind of document this is
- "summary": two or three sentences
- "keyFindings": the facts a pricing manager must know
- "businessInsights": what the findings mean for room rates and occupancy
- "recommendations": concrete next steps, may be empty
- "priceMentions": every price found, as {"value": number, "currency": "EUR", "context": "..."}

If the document contains no usable content, return {"documentType": "unknown", "summary": "no readable content", "keyFindings": [], "businessInsights": []}.

FILE: %s

DOCUMENT TEXT:
%s`, fileName, text)
}

func BuildComprehensivePrompt(docs []Digest) string {
	var b strings.Builder
	b.WriteString(`Below are summaries of every analysed document. Produce one combined analysis.

Return a JSON object with:
- "summary": the overall picture in one paragraph
- "keyFindings": findings that hold across documents
- "businessInsights": what they mean for pricing strategy
- "recommendations": prioritised actions
- "pricingOverview": one paragraph on the observed price levels

DOCUMENTS:
`)
	for i, d := range docs {
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, d.FileName, d.Summary)
		if len(d.Prices) > 0 {
			fmt.Fprintf(&b, "Prices: %s\n", strings.Join(d.Prices, ", "))
		}
	}
	return b.String()
}

func BuildAnalyticsPrompt(question string, docs []Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Answer the question using only the documents listed.

QUESTION: %s

Return a JSON object with:
- "answer": the answer in markdown
- "keyPoints": short supporting points
- "recommendations": suggested actions, may be empty
- "sources": file names of the documents you used

DOCUMENTS:
`, question)
	for _, d := range docs {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", d.FileName, d.Summary)
	}
	return b.String()
}
