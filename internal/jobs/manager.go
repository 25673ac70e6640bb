package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"attrib/internal/cache"
	"attrib/internal/cms"
	attriberrors "attrib/internal/errors"
	"attrib/internal/evidence"
	"attrib/internal/load"
	"attrib/internal/logging"
	"attrib/internal/providers"
	"attrib/internal/scoring"
	"attrib/internal/synthesis"
	"attrib/internal/terms"
)

// Manager owns the deep-scan lifecycle: submission with deterministic
// dedup, the batch driver, control actions and staleness detection. All
// state lives in the store; the manager itself is stateless between calls,
// so any process holding the database can drive any job.
type Manager struct {
	store     *Store
	source    cms.ContentSource
	adapter   cms.BuilderAdapter
	cache     *cache.Cache
	cacheTTL  time.Duration
	monitor   *load.Monitor
	scorer    *scoring.Scorer
	synth     *synthesis.Synthesizer
	extractor *terms.Extractor
	logger    *logging.Logger

	batchLimit time.Duration
	staleAfter time.Duration
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Source      cms.ContentSource
	Adapter     cms.BuilderAdapter
	Cache       *cache.Cache
	CacheTTL    time.Duration
	Monitor     *load.Monitor
	Scorer      *scoring.Scorer
	Synthesizer *synthesis.Synthesizer
	Extractor   *terms.Extractor
	Logger      *logging.Logger
	BatchLimit  time.Duration // 0 selects 30s
	StaleAfter  time.Duration // 0 selects 90s
}

// NewManager creates a Manager over an initialized store.
func NewManager(store *Store, opts ManagerOptions) *Manager {
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 30 * time.Second
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 90 * time.Second
	}
	if opts.Extractor == nil {
		opts.Extractor = terms.NewExtractor()
	}

	return &Manager{
		store:      store,
		source:     opts.Source,
		adapter:    opts.Adapter,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
		monitor:    opts.Monitor,
		scorer:     opts.Scorer,
		synth:      opts.Synthesizer,
		extractor:  opts.Extractor,
		logger:     opts.Logger,
		batchLimit: opts.BatchLimit,
		staleAfter: opts.StaleAfter,
	}
}

// Start submits a deep scan. Re-submitting an identical (query, target)
// pair while the job is still live returns the existing job unchanged;
// a finished job with the same key is restarted from scratch.
func (m *Manager) Start(query string, target cms.PageContext) (*Job, error) {
	id := JobID(query, target)

	existing, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.IsTerminal() {
		m.logger.Debug("Deduplicated deep scan submission", map[string]interface{}{
			"jobId":  id,
			"status": existing.Status,
		})
		return existing, nil
	}

	active, err := m.store.CountActive()
	if err != nil {
		return nil, err
	}
	if ceiling := m.monitor.MaxDeepJobs(); active >= ceiling {
		return nil, attriberrors.JobLimitError(active, ceiling)
	}

	job := NewJob(query, target)
	if existing != nil {
		// Same key as a finished job: swap in a clean row atomically.
		if err := m.store.Replace(job); err != nil {
			return nil, err
		}
	} else if err := m.store.Create(job); err != nil {
		return nil, err
	}

	m.logger.Info("Started deep scan", map[string]interface{}{
		"jobId": job.ID,
		"query": query,
		"page":  target.Path,
	})
	return job, nil
}

// RunBatch executes one time-boxed batch of the job's current phase and
// persists the advanced state. Paused, cancelled and finished jobs exit
// immediately with no side effects, which makes control actions take effect
// at the next batch boundary.
func (m *Manager) RunBatch(ctx context.Context, jobID string) (*Job, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, attriberrors.JobNotFoundError(jobID)
	}
	if job.Status != StatusInitiated && job.Status != StatusInProgress {
		return job, nil
	}
	job.Status = StatusInProgress

	batchID := uuid.NewString()
	throttle := m.monitor.ThrottleFor(load.KindDeep)

	batchCtx, cancel := context.WithTimeout(ctx, m.batchLimit)
	defer cancel()

	searchTerms := m.extractor.Extract(job.Query)
	target := providers.Target{Page: job.Target}

	if job.Phase == PhaseSynthesis {
		scored := m.scorer.Score(job.Results, searchTerms)
		outcome := m.synth.Explain(batchCtx, job.Query, scored)
		job.markCompleted(&outcome)
		return m.persistBatch(job, batchID)
	}

	items, done, err := m.runPhaseBatch(batchCtx, job, searchTerms, target, throttle.BatchSize)
	if err != nil {
		// A failed provider contributes zero evidence; the scan carries on.
		m.logger.Warn("Scan phase batch failed, skipping phase", map[string]interface{}{
			"jobId":   job.ID,
			"batchId": batchID,
			"phase":   job.Phase,
			"code":    attriberrors.ProviderFailed,
			"error":   err.Error(),
		})
		items, done = nil, true
	}

	job.Results = append(job.Results, items...)
	if done {
		job.advancePhase()
	} else {
		job.BatchPosition += throttle.BatchSize
		job.bumpProgress()
	}

	return m.persistBatch(job, batchID)
}

// runPhaseBatch dispatches to the provider backing the current phase.
// Sliceable corpora advance through BatchPosition; the rest complete in a
// single batch.
func (m *Manager) runPhaseBatch(ctx context.Context, job *Job, searchTerms []terms.Term, target providers.Target, batchSize int) ([]evidence.Item, bool, error) {
	switch job.Phase {
	case PhaseTemplates:
		p := providers.NewTemplateProvider(m.source, m.cache, m.cacheTTL)
		return p.ScanSlice(ctx, searchTerms, target, job.BatchPosition, batchSize)
	case PhaseExtensions:
		items, err := providers.NewExtensionProvider(m.source).Scan(ctx, searchTerms, target)
		return items, true, err
	case PhaseRecords:
		p := providers.NewRecordProvider(m.source)
		return p.ScanSlice(ctx, searchTerms, target, job.BatchPosition, batchSize)
	case PhaseBuilder:
		items, err := providers.NewBuilderProvider(m.adapter).Scan(ctx, searchTerms, target)
		return items, true, err
	case PhaseBranding:
		items, err := providers.NewCSSProvider(m.source).Scan(ctx, searchTerms, target)
		return items, true, err
	}
	return nil, true, nil
}

// persistBatch writes the batch outcome unless a control action landed
// while the batch was running; pause and cancel always win over in-flight
// work.
func (m *Manager) persistBatch(job *Job, batchID string) (*Job, error) {
	current, err := m.store.Get(job.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, attriberrors.JobNotFoundError(job.ID)
	}
	if current.Status == StatusPaused || current.Status == StatusCancelled {
		m.logger.Debug("Discarding batch after control action", map[string]interface{}{
			"jobId":   job.ID,
			"batchId": batchID,
			"status":  current.Status,
		})
		return current, nil
	}

	job.LastUpdate = time.Now().UTC()
	if err := m.store.Update(job); err != nil {
		return nil, err
	}

	m.logger.Debug("Persisted scan batch", map[string]interface{}{
		"jobId":    job.ID,
		"batchId":  batchID,
		"phase":    job.Phase,
		"progress": job.Progress,
		"status":   job.Status,
		"evidence": len(job.Results),
	})
	return job, nil
}

// Pause suspends a live job at the next batch boundary. Like every control
// action, pausing a job that already finished is a no-op returning the
// terminal snapshot, never an error.
func (m *Manager) Pause(jobID string) (*Job, error) {
	return m.control(jobID, func(job *Job) error {
		if !job.IsTerminal() {
			job.Status = StatusPaused
		}
		return nil
	})
}

// Resume returns a paused job to the running state; it picks up exactly
// where it left off, same phase and batch position. A no-op on jobs that
// are not paused, terminal ones included.
func (m *Manager) Resume(jobID string) (*Job, error) {
	return m.control(jobID, func(job *Job) error {
		if job.Status == StatusPaused {
			job.Status = StatusInProgress
		}
		return nil
	})
}

// Cancel stops a job for good. Cancelling an already-finished job is a
// no-op, not an error.
func (m *Manager) Cancel(jobID string) (*Job, error) {
	return m.control(jobID, func(job *Job) error {
		if !job.IsTerminal() {
			job.Status = StatusCancelled
		}
		return nil
	})
}

func (m *Manager) control(jobID string, apply func(*Job) error) (*Job, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, attriberrors.JobNotFoundError(jobID)
	}

	before := job.Status
	if err := apply(job); err != nil {
		return nil, err
	}
	if job.Status == before {
		return job, nil
	}

	job.LastUpdate = time.Now().UTC()
	if err := m.store.Update(job); err != nil {
		return nil, err
	}

	m.logger.Info("Applied job control action", map[string]interface{}{
		"jobId": job.ID,
		"from":  before,
		"to":    job.Status,
	})
	return job, nil
}

// Progress returns the last persisted state of the job. It only reads the
// stored row and never waits on a running batch.
func (m *Manager) Progress(jobID string) (*Job, error) {
	job, err := m.store.Get(jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, attriberrors.JobNotFoundError(jobID)
	}
	return job, nil
}

// List returns recent jobs, newest first.
func (m *Manager) List(limit int) ([]*Job, error) {
	return m.store.List(limit)
}

// NeedsKick reports whether a job claims to be running but has not
// persisted a batch within the staleness threshold, meaning whatever was
// driving it went away and a caller should drive the next batch itself.
func (m *Manager) NeedsKick(job *Job) bool {
	return job.Status == StatusInProgress &&
		time.Since(job.LastUpdate) > m.staleAfter
}

// Reclaim deletes jobs past their TTL.
func (m *Manager) Reclaim(ttl time.Duration) (int64, error) {
	return m.store.Reclaim(ttl)
}
