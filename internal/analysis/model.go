package analysis

import (
	"encoding/json"
	"time"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Analysis types written by the OCR pipeline.
const (
	TypeMistralOCR   = "mistral_ocr"
	TypeExcelExtract = "excel_extract"
)

// InsightComprehensive marks the cross-document result of a comprehensive analysis.
const InsightComprehensive = "comprehensive_analysis"

type PricePoint struct {
	Value      float64 `json:"value"`
	Currency   string  `json:"currency"`
	Context    string  `json:"context"`
	Confidence float64 `json:"confidence"`
}

// Analysis is the OCR result for one file (or one worksheet of a workbook)
// plus the AI insights attached to it later.
type Analysis struct {
	ID             string          `json:"id"`
	UploadID       string          `json:"uploadId"`
	FileName       string          `json:"fileName"`
	StorageKey     string          `json:"storageKey"`
	FileType       string          `json:"fileType"`
	WorksheetName  *string         `json:"worksheetName"`
	AnalysisType   string          `json:"analysisType"`
	Status         string          `json:"status"`
	ExtractedText  *string         `json:"extractedText,omitempty"`
	Insights       json.RawMessage `json:"insights"`
	PriceData      []PricePoint    `json:"priceData"`
	ProcessingTime int64           `json:"processingTime"`
	ErrorMessage   *string         `json:"errorMessage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Text returns the extracted text or "".
func (a *Analysis) Text() string {
	if a.ExtractedText == nil {
		return ""
	}
	return *a.ExtractedText
}

type Insight struct {
	ID                string          `json:"id"`
	UploadID          *string         `json:"uploadId"`
	UserID            *string         `json:"userId,omitempty"`
	InsightType       string          `json:"insightType"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Data              json.RawMessage `json:"data"`
	VisualizationData json.RawMessage `json:"visualizationData"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	UploadID     string
	AnalysisType string
	Status       string
	Scope        Scope
}

func (f Filter) matches(a *Analysis) bool {
	return f.Scope.Allows(a.UploadID) &&
		(f.UploadID == "" || a.UploadID == f.UploadID) &&
		(f.AnalysisType == "" || a.AnalysisType == f.AnalysisType) &&
		(f.Status == "" || a.Status == f.Status)
}
