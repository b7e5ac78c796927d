package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/clearterms/clearterms-backend/internal/config"
	"github.com/clearterms/clearterms-backend/internal/platform/gemini"
	"github.com/clearterms/clearterms-backend/internal/platform/logger"
	"github.com/clearterms/clearterms-backend/internal/report"
	"github.com/clearterms/clearterms-backend/internal/store"
	"github.com/clearterms/clearterms-backend/internal/textproc"
)

// ErrQueueFull is returned by Enqueue when the bounded job queue cannot
// accept another id. The handler maps it to 503.
var ErrQueueFull = errors.New("analysis queue is full")

// AnalysisService owns the job lifecycle: it consumes queued job ids,
// drives each job through the cache-check / prompt / model-call / parse /
// cache-write sequence, and runs the two periodic reapers.
type AnalysisService struct {
	cfg    *config.Config
	log    *logger.Logger
	jobs   *store.JobStore
	cache  *store.ReportCache
	model  gemini.Client
	prompt string

	// group coalesces concurrent first-submissions of the same content and
	// language into a single model call.
	group singleflight.Group
	queue chan string
}

func NewAnalysisService(cfg *config.Config, log *logger.Logger, jobs *store.JobStore, cache *store.ReportCache, model gemini.Client) (*AnalysisService, error) {
	prompt, err := loadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}
	return &AnalysisService{
		cfg:    cfg,
		log:    log.With("service", "AnalysisService"),
		jobs:   jobs,
		cache:  cache,
		model:  model,
		prompt: prompt,
		queue:  make(chan string, cfg.QueueSize),
	}, nil
}

// Enqueue hands a created job to the worker pool without blocking the
// request handler.
func (s *AnalysisService) Enqueue(jobID string) error {
	select {
	case s.queue <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the worker pool. Workers run until ctx is cancelled; a job
// already being processed runs to completion regardless of the client.
func (s *AnalysisService) Start(ctx context.Context) {
	for i := 0; i < s.cfg.WorkerCount; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case jobID := <-s.queue:
					s.process(ctx, jobID)
				}
			}
		}()
	}
}

// StartReapers launches the two periodic sweeps: old jobs and expired cache
// entries.
func (s *AnalysisService) StartReapers(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.cfg.JobReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.jobs.DeleteOlderThan(s.cfg.JobRetention); n > 0 {
					s.log.Info("reaped old jobs", "count", n)
				}
			}
		}
	}()
	go func() {
		ticker := time.NewTicker(s.cfg.CacheReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.cache.DeleteOlderThan(s.cfg.CacheTTL); n > 0 {
					s.log.Info("reaped expired cache entries", "count", n)
				}
			}
		}
	}()
}

// process runs one job to a terminal state. Every failure is recorded on the
// job; nothing escapes past this boundary.
func (s *AnalysisService) process(ctx context.Context, jobID string) {
	job, ok := s.jobs.MarkRunning(jobID)
	if !ok {
		// Unknown id (already reaped) or not queued anymore. Job ids are
		// processed exactly once.
		return
	}
	log := s.log.With("job_id", jobID)

	cleaned := textproc.CleanText(job.Content)
	key := textproc.ContentHash(cleaned)

	if cached, ok, _ := s.cache.GetReport(key, job.Language); ok {
		log.Info("report served from cache", "key", key[:8], "lang", job.Language)
		s.jobs.Complete(jobID, cached)
		return
	}

	result, err, shared := s.group.Do(key+"|"+job.Language, func() (any, error) {
		return s.generate(ctx, key, cleaned, job.Language, job.URL)
	})
	if err != nil {
		log.Error("job failed", "error", err)
		s.jobs.Fail(jobID, err.Error())
		return
	}
	if shared {
		log.Info("joined in-flight generation", "key", key[:8], "lang", job.Language)
	}

	s.jobs.Complete(jobID, result.(report.Report))
}

// generate performs the model round-trip for one key+language and caches the
// validated report. Parse and validation failures are never cached: an HTML
// quota page or a half-formed reply must not poison the cache.
func (s *AnalysisService) generate(ctx context.Context, key, cleaned, lang, sourceURL string) (report.Report, error) {
	prompt := buildPrompt(s.prompt, lang, cleaned)

	raw, model, err := s.model.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	r, err := report.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := report.Validate(r, s.cfg.RequireDetectedLanguage); err != nil {
		return nil, err
	}

	report.Stamp(r, report.Metadata{
		ContentHash:    key,
		AnalyzedURL:    sourceURL,
		ModelUsed:      model,
		OutputLanguage: lang,
	})

	s.cache.Put(key, lang, r, textproc.Domain(sourceURL), report.DetectedLanguage(r))
	if sourceURL != "" && sourceURL != "unknown" {
		s.cache.AddURLAlias(textproc.URLHash(sourceURL), key)
	}

	return r, nil
}
