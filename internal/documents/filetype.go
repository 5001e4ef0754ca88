package documents

import (
	"path/filepath"
	"strings"

	"hotelpricing/internal/apierror"
)

var allowedExt = map[string]string{
	".zip":  TypeZip,
	".xlsx": TypeExcel,
	".xlsm": TypeExcel,
	".csv":  TypeExcel,
	".pdf":  TypePDF,
	".png":  TypeImage,
	".jpg":  TypeImage,
	".jpeg": TypeImage,
	".gif":  TypeImage,
	".bmp":  TypeImage,
	".tiff": TypeImage,
	".webp": TypeImage,
}

var (
	ErrMissingExtension = apierror.New(apierror.ErrInvalidInput, "file extension missing")
	ErrTypeNotAllowed   = apierror.New(apierror.ErrInvalidInput, "file type not allowed")
	ErrLegacyWorkbook   = apierror.New(apierror.ErrInvalidInput, "legacy .xls workbooks are not supported, save the file as .xlsx")
)

func ValidateFileExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))

	if ext == "" {
		return ErrMissingExtension
	}

	if ext == ".xls" {
		return ErrLegacyWorkbook
	}
	if _, ok := allowedExt[ext]; !ok {
		return ErrTypeNotAllowed
	}

	return nil
}

// ClassifyFile maps a file name to one of the upload file types.
func ClassifyFile(filename string) string {
	if t, ok := allowedExt[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	return TypeOther
}

// ContentType returns the MIME type stored alongside an object.
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".zip":
		return "application/zip"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xlsm":
		return "application/vnd.ms-excel.sheet.macroEnabled.12"
	case ".csv":
		return "text/csv"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
