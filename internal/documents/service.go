package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hotelpricing/internal/apierror"
	"hotelpricing/internal/logger"
	"hotelpricing/internal/storage"

	"github.com/google/uuid"
)

// extractionTimeout bounds one background extraction run.
const extractionTimeout = 10 * time.Minute

// Cleaner removes records that belong to an upload.
type Cleaner interface {
	DeleteByUpload(ctx context.Context, uploadID string) error
}

type Service struct {
	repo      Repository
	store     storage.Storage
	extractor *Extractor
	maxBytes  int64
	cleaners  []Cleaner
	log       *slog.Logger

	wg sync.WaitGroup
}

func NewService(repo Repository, store storage.Storage, maxBytes int64, cleaners ...Cleaner) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		extractor: NewExtractor(store, maxBytes),
		maxBytes:  maxBytes,
		cleaners:  cleaners,
		log:       logger.For("documents"),
	}
}

// --------------------------------------------------
// Upload document
// --------------------------------------------------
func (s *Service) Upload(
	ctx context.Context,
	userID string,
	file io.Reader,
	filename string,
	size int64,
) (*Upload, error) {

	if err := ValidateFileExtension(filename); err != nil {
		return nil, err
	}
	if size > s.maxBytes {
		return nil, s.tooLarge()
	}

	id := uuid.New().String()
	ext := strings.ToLower(filepath.Ext(filename))
	storedName := uuid.New().String() + ext
	key := fmt.Sprintf("uploads/%s/original/%s", id, storedName)

	if _, err := s.store.Put(ctx, key, file, size, ContentType(filename)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	u := &Upload{
		ID:               id,
		UserID:           userID,
		FileName:         storedName,
		OriginalFileName: filepath.Base(filename),
		FileSize:         size,
		FileType:         ClassifyFile(filename),
		StorageKey:       key,
		UploadStatus:     StatusPending,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		_ = s.store.Delete(ctx, key)
		return nil, err
	}

	s.log.Info("upload stored",
		"upload", u.ID,
		"file", u.OriginalFileName,
		"type", u.FileType,
		"bytes", size,
	)

	s.startExtraction(u.ID)
	return u, nil
}

func (s *Service) startExtraction(id string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), extractionTimeout)
		defer cancel()
		if err := s.Process(ctx, id); err != nil {
			s.log.Error("extraction failed", "upload", id, "err", err)
		}
	}()
}

// Wait blocks until background extractions have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Process runs extraction for one upload and records the outcome.
func (s *Service) Process(ctx context.Context, id string) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.MarkProcessing(ctx, id); err != nil {
		return err
	}

	files, err := s.extractor.Extract(ctx, u)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, id, err.Error()); markErr != nil {
			return markErr
		}
		return err
	}

	s.log.Info("extraction completed", "upload", id, "files", len(files))
	return s.repo.MarkCompleted(ctx, id, files)
}

// tooLarge names the configured limit so clients can tell the user.
func (s *Service) tooLarge() error {
	return apierror.New(apierror.ErrTooLarge,
		fmt.Sprintf("file exceeds the %s upload limit", formatLimit(s.maxBytes)))
}

func formatLimit(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

// --------------------------------------------------
// Queries
// --------------------------------------------------
func (s *Service) Get(ctx context.Context, id string) (*Upload, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, userID string) ([]Upload, error) {
	return s.repo.List(ctx, userID)
}

// UploadOwner returns the user that owns upload id.
func (s *Service) UploadOwner(ctx context.Context, id string) (string, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return u.UserID, nil
}

func (s *Service) OwnedUploadIDs(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		// an empty owner would list every upload
		return []string{}, nil
	}
	list, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list))
	for _, u := range list {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// --------------------------------------------------
// Retry failed extraction (SAFE RESET)
// --------------------------------------------------
func (s *Service) Retry(ctx context.Context, id string) error {
	if err := s.repo.RetryFailed(ctx, id); err != nil {
		return err
	}
	s.log.Info("extraction retried", "upload", id)
	s.startExtraction(id)
	return nil
}

// --------------------------------------------------
// Delete upload with analyses, insights and objects
// --------------------------------------------------
func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	for _, c := range s.cleaners {
		if err := c.DeleteByUpload(ctx, id); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	keys := []string{u.StorageKey}
	for _, f := range u.ExtractedFiles {
		if f.StorageKey != u.StorageKey {
			keys = append(keys, f.StorageKey)
		}
	}
	for _, k := range keys {
		if err := s.store.Delete(ctx, k); err != nil {
			s.log.Warn("object delete failed", "key", k, "err", err)
		}
	}

	s.log.Info("upload deleted", "upload", id, "objects", len(keys))
	return nil
}
