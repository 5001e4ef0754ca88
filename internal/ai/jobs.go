package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"hotelpricing/internal/analysis"
	"hotelpricing/internal/apierror"
	"hotelpricing/internal/llm"
	"hotelpricing/internal/ocr"
	"hotelpricing/internal/pricing"

	"github.com/google/uuid"
)

const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

const (
	jobTimeout   = 30 * time.Minute
	jobRetention = time.Hour
	digestChars  = 1500
)

var ErrJobNotFound = apierror.New(apierror.ErrNotFound, "job not found")

// DocumentProgress tracks one document inside a comprehensive job.
type DocumentProgress struct {
	AnalysisID string `json:"analysisId"`
	FileName   string `json:"fileName"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// Job is a comprehensive analysis run. Progress counts finished documents
// plus the final combining step.
type Job struct {
	ID          string             `json:"id"`
	UploadID    string             `json:"uploadId,omitempty"`
	Status      string             `json:"status"`
	Progress    float64            `json:"progress"`
	Stage       string             `json:"stage"`
	Documents   []DocumentProgress `json:"documents"`
	InsightID   string             `json:"insightId,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`

	owner string
}

func (j *Job) clone() *Job {
	cp := *j
	cp.Documents = append([]DocumentProgress(nil), j.Documents...)
	return &cp
}

// JobManager runs comprehensive analyses in the background.
type JobManager struct {
	service *Service

	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

func NewJobManager(service *Service) *JobManager {
	return &JobManager{service: service, jobs: make(map[string]*Job)}
}

// Start snapshots the completed analyses in scope and begins the job.
func (m *JobManager) Start(ctx context.Context, scope analysis.Scope) (*Job, error) {
	list, err := m.service.completedOCR(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apierror.New(apierror.ErrInvalidInput, "no completed analyses to combine")
	}

	job := &Job{
		ID:        uuid.New().String(),
		UploadID:  scope.UploadID(),
		Status:    JobPending,
		Stage:     "queued",
		Documents: make([]DocumentProgress, len(list)),
		CreatedAt: time.Now(),

		owner: scope.UserID,
	}
	for i, a := range list {
		job.Documents[i] = DocumentProgress{AnalysisID: a.ID, FileName: a.FileName, Status: JobPending}
	}

	m.mu.Lock()
	m.prune()
	m.jobs[job.ID] = job
	snapshot := job.clone()
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		m.process(ctx, job.ID, scope, list)
	}()

	m.service.log.Info("comprehensive analysis started", "job", job.ID, "documents", len(list))
	return snapshot, nil
}

// Get returns a copy of the job.
// Jobs started by other users look missing unless scope is unrestricted.
func (m *JobManager) Get(id string, scope analysis.Scope) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok || (scope.Restricted() && job.owner != scope.UserID) {
		return nil, ErrJobNotFound
	}
	return job.clone(), nil
}

// Wait blocks until running jobs have finished.
func (m *JobManager) Wait() {
	m.wg.Wait()
}

// prune drops finished jobs past retention. Callers hold mu.
func (m *JobManager) prune() {
	cutoff := time.Now().Add(-jobRetention)
	for id, j := range m.jobs {
		if j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}

func (m *JobManager) update(id string, fn func(j *Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		fn(j)
	}
}

func (m *JobManager) setDocument(id string, i int, status string, err error) {
	m.update(id, func(j *Job) {
		j.Documents[i].Status = status
		if err != nil {
			j.Documents[i].Error = err.Error()
		}
		done := 0
		for _, d := range j.Documents {
			if d.Status == JobCompleted || d.Status == JobFailed {
				done++
			}
		}
		j.Progress = percent(done, len(j.Documents)+1)
	})
}

func (m *JobManager) finish(id string, insightID string, err error) {
	m.update(id, func(j *Job) {
		now := time.Now()
		j.CompletedAt = &now
		if err != nil {
			j.Status = JobFailed
			j.Error = err.Error()
			j.Stage = "failed"
			return
		}
		j.Status = JobCompleted
		j.Stage = "done"
		j.Progress = 100
		j.InsightID = insightID
	})
}

func percent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(int(float64(done)/float64(total)*1000)) / 10
}

func (m *JobManager) process(ctx context.Context, id string, scope analysis.Scope, list []analysis.Analysis) {
	log := m.service.log.With("job", id)
	m.update(id, func(j *Job) {
		j.Status = JobProcessing
		j.Stage = "summarising documents"
	})

	var (
		digests []llm.Digest
		prices  []analysis.PricePoint
	)
	for i := range list {
		a := &list[i]
		m.setDocument(id, i, JobProcessing, nil)

		env, err := m.service.envelopeFor(ctx, a)
		if err != nil {
			log.Warn("document skipped", "analysis", a.ID, "err", err)
			m.setDocument(id, i, JobFailed, err)
			continue
		}

		digests = append(digests, digest(a, env))
		prices = append(prices, a.PriceData...)
		m.setDocument(id, i, JobCompleted, nil)
	}

	if len(digests) == 0 {
		m.finish(id, "", fmt.Errorf("no document could be summarised"))
		return
	}

	m.update(id, func(j *Job) { j.Stage = "combining documents" })

	insightID, err := m.service.combine(ctx, scope, digests, prices)
	if err != nil {
		log.Error("comprehensive analysis failed", "err", err)
	} else {
		log.Info("comprehensive analysis completed", "insight", insightID, "documents", len(digests))
	}
	m.finish(id, insightID, err)
}

// envelopeFor returns the stored summary of a, creating it when missing.
func (s *Service) envelopeFor(ctx context.Context, a *analysis.Analysis) (*analysis.Envelope, error) {
	if env, err := analysis.Normalize(a.Insights); err == nil {
		return env, nil
	}
	return s.Summarize(ctx, a)
}

func digest(a *analysis.Analysis, env *analysis.Envelope) llm.Digest {
	parts := []string{}
	if env.DocumentType != "" {
		parts = append(parts, "Type: "+env.DocumentType)
	}
	if env.Summary != "" {
		parts = append(parts, env.Summary)
	}
	for _, f := range env.KeyFindings {
		parts = append(parts, "- "+f)
	}
	for _, f := range env.BusinessInsights {
		parts = append(parts, "- "+f)
	}

	text := strings.Join(parts, "\n")
	text = ocr.CutBytes(text, digestChars)

	name := a.FileName
	if a.WorksheetName != nil {
		name += " / " + *a.WorksheetName
	}

	var prices []string
	for _, p := range env.PriceMentions {
		prices = append(prices, fmt.Sprintf("%.2f %s", p.Value, p.Currency))
	}
	return llm.Digest{FileName: name, Summary: text, Prices: prices}
}

// combine runs the cross-document prompt and stores the insight.
func (s *Service) combine(ctx context.Context, scope analysis.Scope, digests []llm.Digest, prices []analysis.PricePoint) (string, error) {
	var result llm.ComprehensiveResult
	err := llm.CompleteJSON(ctx, s.llm, llm.Request{
		System: llm.SystemAnalyst,
		Prompt: llm.BuildComprehensivePrompt(digests),
		Schema: llm.ComprehensiveSchema,
	}, &result)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(result.Summary) == "" {
		return "", fmt.Errorf("%w: comprehensive analysis has no summary", apierror.ErrUpstream)
	}

	sources := make([]string, 0, len(digests))
	for _, d := range digests {
		sources = append(sources, d.FileName)
	}
	sort.Strings(sources)

	data, err := json.Marshal(struct {
		llm.ComprehensiveResult
		Sources []string `json:"sources"`
	}{result, sources})
	if err != nil {
		return "", err
	}
	viz, err := json.Marshal(pricing.Compute(prices))
	if err != nil {
		return "", err
	}

	in := &analysis.Insight{
		InsightType:       analysis.InsightComprehensive,
		Title:             fmt.Sprintf("Comprehensive analysis of %d documents", len(digests)),
		Description:       result.Summary,
		Data:              data,
		VisualizationData: viz,
	}
	if id := scope.UploadID(); id != "" {
		in.UploadID = &id
	}
	if scope.UserID != "" {
		in.UserID = &scope.UserID
	}

	if err := s.insights.Create(ctx, in); err != nil {
		return "", err
	}
	return in.ID, nil
}
