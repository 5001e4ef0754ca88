package documents

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	TypeZip   = "zip"
	TypeExcel = "excel"
	TypePDF   = "pdf"
	TypeImage = "image"
	TypeOther = "other"
)

// PollAfterMs is the polling interval suggested to clients while an
// upload is still being extracted.
const PollAfterMs = 2000

type Worksheet struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// ExtractedFile describes one file found in an upload. Non-archive uploads
// have exactly one, describing themselves.
type ExtractedFile struct {
	ID         string      `json:"id"`
	FileName   string      `json:"fileName"`
	FolderPath string      `json:"folderPath"`
	FileType   string      `json:"fileType"`
	Size       int64       `json:"size"`
	StorageKey string      `json:"storageKey"`
	PageCount  int         `json:"pageCount,omitempty"`
	Worksheets []Worksheet `json:"worksheets,omitempty"`
}

type Upload struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	FileName         string          `json:"fileName"`
	OriginalFileName string          `json:"originalFileName"`
	FileSize         int64           `json:"fileSize"`
	FileType         string          `json:"fileType"`
	StorageKey       string          `json:"storageKey"`
	UploadStatus     string          `json:"uploadStatus"`
	ErrorMessage     *string         `json:"errorMessage,omitempty"`
	ExtractedFiles   []ExtractedFile `json:"extractedFiles"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// StatusView is the polling response for an upload.
type StatusView struct {
	ID             string  `json:"id"`
	UploadStatus   string  `json:"uploadStatus"`
	ExtractedCount int     `json:"extractedCount"`
	ErrorMessage   *string `json:"errorMessage,omitempty"`
	PollAfterMs    int     `json:"pollAfterMs,omitempty"`
	Done           bool    `json:"done"`
}

func NewStatusView(u *Upload) StatusView {
	done := u.UploadStatus == StatusCompleted || u.UploadStatus == StatusFailed
	v := StatusView{
		ID:             u.ID,
		UploadStatus:   u.UploadStatus,
		ExtractedCount: len(u.ExtractedFiles),
		ErrorMessage:   u.ErrorMessage,
		Done:           done,
	}
	if !done {
		v.PollAfterMs = PollAfterMs
	}
	return v
}
