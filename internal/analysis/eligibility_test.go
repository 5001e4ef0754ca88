package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOCRType(t *testing.T) {
	assert.True(t, IsOCRType("pdf", "rates.pdf"))
	assert.True(t, IsOCRType("excel", "rates.xlsx"))
	assert.True(t, IsOCRType("other", "scan.TIFF"))
	assert.True(t, IsOCRType("", "photo.webp"))
	assert.False(t, IsOCRType("other", "notes.txt"))
	assert.False(t, IsOCRType("zip", "bundle.zip"))
}

func TestSelectForOCR(t *testing.T) {
	files := []Candidate{
		{FileName: "a.pdf", FileType: "pdf"},
		{FileName: "b.png", FileType: "image"},
		{FileName: "c.txt", FileType: "other"},
		{FileName: "d.jpg", FileType: "other"},
		{FileName: "rates.xlsx", FileType: "excel"},
	}
	existing := []Analysis{
		{FileName: "a.pdf", AnalysisType: TypeMistralOCR},
		{FileName: "b.png", AnalysisType: "ai_summary"},
	}

	got := SelectForOCR(files, existing)

	var names []string
	for _, f := range got {
		names = append(names, f.FileName)
	}
	assert.Equal(t, []string{"b.png", "d.jpg", "rates.xlsx"}, names)
}

func TestSelectForOCR_SameNameInOtherFolder(t *testing.T) {
	files := []Candidate{
		{FileName: "menu.pdf", FolderPath: "2023", FileType: "pdf"},
		{FileName: "menu.pdf", FolderPath: "2024", FileType: "pdf"},
	}

	got := SelectForOCR(files, nil)
	assert.Len(t, got, 1)

	got = SelectForOCR(files, []Analysis{{FileName: "menu.pdf", AnalysisType: TypeMistralOCR}})
	assert.Empty(t, got)
}
