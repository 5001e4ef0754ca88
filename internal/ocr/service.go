package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/apierror"
	"hotelpricing/internal/documents"
	"hotelpricing/internal/logger"
	"hotelpricing/internal/storage"

	"golang.org/x/sync/errgroup"
)

var ErrNotExtracted = apierror.New(apierror.ErrConflict, "upload has not finished extracting")

// UploadSource resolves uploads and their extracted files.
type UploadSource interface {
	Get(ctx context.Context, id string) (*documents.Upload, error)
	List(ctx context.Context, userID string) ([]documents.Upload, error)
}

// FileResult is the outcome for one analysis created by a run.
type FileResult struct {
	FileName      string  `json:"fileName"`
	WorksheetName *string `json:"worksheetName,omitempty"`
	AnalysisID    string  `json:"analysisId,omitempty"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
}

// ResultReleased marks files a stopped batch gave back; they can be
// requested again.
const ResultReleased = "released"

// Result summarises one OCR request.
type Result struct {
	UploadID  string       `json:"uploadId"`
	Processed int          `json:"processed"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Queued    int          `json:"queued"`
	Released  int          `json:"released"`
	Results   []FileResult `json:"results"`
}

type Service struct {
	analyses    analysis.Repository
	uploads     UploadSource
	store       storage.Storage
	recognizer  Recognizer
	concurrency int
	log         *slog.Logger
}

func NewService(
	analyses analysis.Repository,
	uploads UploadSource,
	store storage.Storage,
	recognizer Recognizer,
	concurrency int,
) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		analyses:    analyses,
		uploads:     uploads,
		store:       store,
		recognizer:  recognizer,
		concurrency: concurrency,
		log:         logger.For("ocr"),
	}
}

// Upload loads an upload for the handler's ownership check.
func (s *Service) Upload(ctx context.Context, id string) (*documents.Upload, error) {
	return s.uploads.Get(ctx, id)
}

// Process OCRs the eligible files of u, or only fileName when given. With
// queue set the analyses are left pending for the background worker.
func (s *Service) Process(ctx context.Context, u *documents.Upload, fileName string, queue bool) (*Result, error) {
	if u.UploadStatus != documents.StatusCompleted {
		return nil, ErrNotExtracted
	}

	files := u.ExtractedFiles
	if fileName != "" {
		files = nil
		for _, f := range u.ExtractedFiles {
			if f.FileName == fileName {
				files = append(files, f)
			}
		}
		if len(files) == 0 {
			return nil, apierror.New(apierror.ErrNotFound, fmt.Sprintf("file %q not found in upload", fileName))
		}
	}

	existing, err := s.ownerAnalyses(ctx, u)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]documents.ExtractedFile, len(files))
	candidates := make([]analysis.Candidate, 0, len(files))
	for _, f := range files {
		byName[f.FileName] = f
		candidates = append(candidates, analysis.Candidate{
			FileName:   f.FileName,
			FolderPath: f.FolderPath,
			FileType:   f.FileType,
			StorageKey: f.StorageKey,
		})
	}
	selected := analysis.SelectForOCR(candidates, existing)

	res := &Result{UploadID: u.ID, Skipped: len(files) - len(selected), Results: []FileResult{}}

	initial := analysis.StatusProcessing
	if queue {
		initial = analysis.StatusPending
	}

	var created []*analysis.Analysis
	for _, c := range selected {
		for _, a := range newAnalyses(u.ID, byName[c.FileName], initial) {
			if err := s.analyses.Create(ctx, a); err != nil {
				return nil, err
			}
			created = append(created, a)
		}
	}

	s.log.Info("OCR requested",
		"upload", u.ID,
		"selected", len(selected),
		"skipped", res.Skipped,
		"queued", queue,
	)

	if queue {
		for _, a := range created {
			res.Queued++
			res.Results = append(res.Results, FileResult{
				FileName:      a.FileName,
				WorksheetName: a.WorksheetName,
				AnalysisID:    a.ID,
				Status:        analysis.StatusPending,
			})
		}
		return res, nil
	}

	var mu sync.Mutex
	ran := make(map[string]bool, len(created))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, a := range created {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			runErr := s.run(gctx, a)
			if retryable(gctx, runErr) {
				// a rate limit cancels gctx and stops the rest of the batch
				return runErr
			}

			mu.Lock()
			defer mu.Unlock()
			ran[a.ID] = true
			fr := FileResult{FileName: a.FileName, WorksheetName: a.WorksheetName, AnalysisID: a.ID, Status: analysis.StatusCompleted}
			if runErr != nil {
				fr.Status = analysis.StatusFailed
				fr.Error = runErr.Error()
				res.Failed++
			} else {
				res.Processed++
			}
			res.Results = append(res.Results, fr)
			return nil
		})
	}

	err = g.Wait()
	if len(ran) == len(created) {
		return res, nil
	}
	if err == nil {
		err = ctx.Err()
	}
	if err == nil {
		err = errors.New("OCR batch stopped early")
	}
	s.release(context.WithoutCancel(ctx), created, ran, res, err)
	return res, err
}

// ownerAnalyses lists every analysis of the uploads owned by the owner of u.
// Files of other users never count as already processed.
func (s *Service) ownerAnalyses(ctx context.Context, u *documents.Upload) ([]analysis.Analysis, error) {
	owned, err := s.uploads.List(ctx, u.UserID)
	if err != nil {
		return nil, err
	}
	ids := []string{u.ID}
	for _, o := range owned {
		ids = append(ids, o.ID)
	}
	return s.analyses.List(ctx, analysis.Filter{Scope: analysis.OwnedBy(u.UserID, ids...)})
}

// release deletes the analyses a stopped batch never finished so their
// files are eligible for OCR again.
func (s *Service) release(ctx context.Context, created []*analysis.Analysis, ran map[string]bool, res *Result, cause error) {
	reason := "not processed: request cancelled"
	if errors.Is(cause, apierror.ErrRateLimited) {
		reason = "not processed: upstream rate limit"
	}

	for _, a := range created {
		if ran[a.ID] {
			continue
		}
		if err := s.analyses.Delete(ctx, a.ID); err != nil {
			s.log.Error("failed to release analysis", "analysis", a.ID, "err", err)
		}
		res.Released++
		res.Results = append(res.Results, FileResult{
			FileName:      a.FileName,
			WorksheetName: a.WorksheetName,
			Status:        ResultReleased,
			Error:         reason,
		})
	}
}

// retryable reports whether err means the work should be attempted again
// rather than recorded as a failure of the file.
func retryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, apierror.ErrRateLimited) || ctx.Err() != nil
}

// newAnalyses creates one analysis per worksheet for workbooks and one
// analysis for everything else.
func newAnalyses(uploadID string, f documents.ExtractedFile, status string) []*analysis.Analysis {
	base := analysis.Analysis{
		UploadID:     uploadID,
		FileName:     f.FileName,
		StorageKey:   f.StorageKey,
		FileType:     f.FileType,
		AnalysisType: analysis.TypeMistralOCR,
		Status:       status,
	}

	if f.FileType != documents.TypeExcel {
		return []*analysis.Analysis{&base}
	}

	base.AnalysisType = analysis.TypeExcelExtract
	if len(f.Worksheets) == 0 {
		return []*analysis.Analysis{&base}
	}

	out := make([]*analysis.Analysis, 0, len(f.Worksheets))
	for _, ws := range f.Worksheets {
		a := base
		name := ws.Name
		a.WorksheetName = &name
		out = append(out, &a)
	}
	return out
}

// run extracts text for a in processing state and records the outcome.
func (s *Service) run(ctx context.Context, a *analysis.Analysis) error {
	start := time.Now()

	text, err := s.extract(ctx, a)
	elapsed := time.Since(start)

	if retryable(ctx, err) {
		// left in processing; the caller releases or requeues it
		return err
	}

	// the outcome is recorded even when the caller has gone away
	ctx = context.WithoutCancel(ctx)

	if err != nil {
		s.log.Warn("OCR failed", "analysis", a.ID, "file", a.FileName, "err", err)
		if failErr := s.analyses.Fail(ctx, a.ID, err.Error(), elapsed); failErr != nil {
			return errors.Join(err, failErr)
		}
		return err
	}

	prices := ExtractPrices(text)
	s.log.Info("OCR completed",
		"analysis", a.ID,
		"file", a.FileName,
		"chars", len(text),
		"prices", len(prices),
		"ms", elapsed.Milliseconds(),
	)
	return s.analyses.Complete(ctx, a.ID, text, prices, elapsed)
}

func (s *Service) extract(ctx context.Context, a *analysis.Analysis) (string, error) {
	data, err := s.store.Get(ctx, a.StorageKey)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", a.FileName, err)
	}

	if a.AnalysisType != analysis.TypeExcelExtract {
		return s.recognizer.Recognize(ctx, a.FileName, data)
	}

	sheets, err := documents.ReadSheets(a.FileName, data)
	if err != nil {
		return "", err
	}

	if a.WorksheetName == nil {
		var all string
		for _, sh := range sheets {
			all += SheetText(sh) + "\n"
		}
		return all, nil
	}

	sh, ok := sheetByName(sheets, *a.WorksheetName)
	if !ok {
		return "", fmt.Errorf("worksheet %q not found", *a.WorksheetName)
	}
	return SheetText(sh), nil
}

// ProcessNext claims and runs one pending analysis. It reports whether
// anything was claimed.
func (s *Service) ProcessNext(ctx context.Context) (bool, error) {
	a, err := s.analyses.ClaimPending(ctx)
	if err != nil {
		return false, err
	}
	if a == nil {
		return false, nil
	}

	// per-file failures are recorded on the analysis, not returned
	if err := s.run(ctx, a); retryable(ctx, err) {
		if rqErr := s.analyses.Requeue(context.WithoutCancel(ctx), a.ID); rqErr != nil {
			return true, errors.Join(err, rqErr)
		}
		return true, err
	}
	return true, nil
}
