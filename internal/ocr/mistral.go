package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/documents"
)

// PageBreak separates the pages of a multi-page OCR result.
const PageBreak = "---PAGE BREAK---"

// Recognizer turns a stored document into text.
type Recognizer interface {
	Recognize(ctx context.Context, fileName string, data []byte) (string, error)
}

type ocrRequest struct {
	Model              string      `json:"model"`
	Document           ocrDocument `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

type MistralClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewMistralClient(apiKey, baseURL, model string) *MistralClient {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}
	if model == "" {
		model = "mistral-ocr-latest"
	}
	return &MistralClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (c *MistralClient) Recognize(ctx context.Context, fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", apierror.ErrInvalidInput, fileName)
	}

	contentType := documents.ContentType(fileName)
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	doc := ocrDocument{Type: "document_url", DocumentURL: dataURL}
	if strings.HasPrefix(contentType, "image/") {
		doc = ocrDocument{Type: "image_url", ImageURL: dataURL}
	}

	payload, err := json.Marshal(ocrRequest{Model: c.model, Document: doc})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ocr", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: mistral request failed: %v", apierror.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("mistral: %w", apierror.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: mistral returned status %d: %s", apierror.ErrUpstream, resp.StatusCode, truncate(string(body), 300))
	}

	var parsed ocrResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: failed to parse mistral response: %v", apierror.ErrUpstream, err)
	}

	pages := make([]string, 0, len(parsed.Pages))
	for _, p := range parsed.Pages {
		pages = append(pages, p.Markdown)
	}
	return strings.Join(pages, "\n\n"+PageBreak+"\n\n"), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return CutBytes(s, n) + "..."
}
