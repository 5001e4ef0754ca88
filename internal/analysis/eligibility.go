package analysis

import (
	"path/filepath"
	"strings"
)

var ocrFileTypes = map[string]bool{
	"pdf":   true,
	"image": true,
	"excel": true,
}

var ocrImageExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

// Candidate is a file that may be sent to OCR.
type Candidate struct {
	FileName   string
	FolderPath string
	FileType   string
	StorageKey string
}

// IsOCRType reports whether a file of this type or extension can be OCR'd.
func IsOCRType(fileType, fileName string) bool {
	if ocrFileTypes[strings.ToLower(fileType)] {
		return true
	}
	return ocrImageExt[strings.ToLower(filepath.Ext(fileName))]
}

// SelectForOCR returns the candidates that have an OCR-able type and no
// existing OCR analysis with the same file name. Matching is by exact file
// name, so equally named files in different folders are OCR'd once.
func SelectForOCR(files []Candidate, existing []Analysis) []Candidate {
	done := make(map[string]bool, len(existing))
	for _, a := range existing {
		if IsOCRAnalysis(a.AnalysisType) {
			done[a.FileName] = true
		}
	}

	out := []Candidate{}
	for _, f := range files {
		if !IsOCRType(f.FileType, f.FileName) || done[f.FileName] {
			continue
		}
		// one queue entry per name within a batch as well
		done[f.FileName] = true
		out = append(out, f)
	}
	return out
}

// IsOCRAnalysis reports whether an analysis holds extracted document text.
// Worksheet extraction is local but stands in for OCR of workbooks.
func IsOCRAnalysis(analysisType string) bool {
	return analysisType == TypeMistralOCR || analysisType == TypeExcelExtract
}
