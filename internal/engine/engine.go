// Package engine wires the attribution components into the one surface the
// CLI talks to: quick scans, deep-scan jobs, job control, export and cache
// maintenance.
package engine

import (
	"context"
	"io"
	"time"

	"attrib/internal/cache"
	"attrib/internal/cms"
	"attrib/internal/config"
	attriberrors "attrib/internal/errors"
	"attrib/internal/export"
	"attrib/internal/jobs"
	"attrib/internal/load"
	"attrib/internal/logging"
	"attrib/internal/providers"
	"attrib/internal/quick"
	"attrib/internal/scoring"
	"attrib/internal/store"
	"attrib/internal/synthesis"
	"attrib/internal/terms"
)

// Action is a job control verb.
type Action string

const (
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
)

// Engine owns the component graph for one site.
type Engine struct {
	cfg      *config.Config
	logger   *logging.Logger
	db       *store.DB
	cache    *cache.Cache
	monitor  *load.Monitor
	scanner  *quick.Scanner
	manager  *jobs.Manager
	exporter *export.Exporter
}

// New builds an engine for the configured site. explainer may be nil, in
// which case synthesis always takes the deterministic fallback path.
func New(cfg *config.Config, source cms.ContentSource, adapter cms.BuilderAdapter, explainer cms.Explainer, logger *logging.Logger) (*Engine, error) {
	db, err := store.Open(cfg.SiteRoot, logger)
	if err != nil {
		return nil, err
	}

	resultCache, err := cache.New(db, logger.Named("cache"), cfg.Cache.CompressThresholdBytes)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	jobStore, err := jobs.NewStore(db, logger.Named("jobs"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	monitor := load.NewMonitor(load.Options{
		MaxDeepJobs:   cfg.Scan.MaxDeepJobs,
		BaseBatchSize: cfg.Scan.BatchSize,
		ActiveJobs: func() int {
			n, err := jobStore.CountActive()
			if err != nil {
				return 0
			}
			return n
		},
	})

	scorer := scoring.NewScorer(cfg.Scoring.FuzzyThreshold, cfg.Scoring.TopN)
	extractor := terms.NewExtractor()
	cacheTTL := time.Duration(cfg.Cache.TtlSeconds) * time.Second

	synth := synthesis.New(explainer, logger.Named("synthesis"),
		time.Duration(cfg.Synthesis.TimeoutMs)*time.Millisecond,
		cfg.Synthesis.TopEvidence)

	scanner := quick.NewScanner(source, resultCache, cacheTTL, scorer, extractor,
		logger.Named("quick"),
		time.Duration(cfg.Scan.QuickBudgetMs)*time.Millisecond)

	manager := jobs.NewManager(jobStore, jobs.ManagerOptions{
		Source:      source,
		Adapter:     adapter,
		Cache:       resultCache,
		CacheTTL:    cacheTTL,
		Monitor:     monitor,
		Scorer:      scorer,
		Synthesizer: synth,
		Extractor:   extractor,
		Logger:      logger.Named("jobs"),
		BatchLimit:  time.Duration(cfg.Scan.BatchLimitMs) * time.Millisecond,
		StaleAfter:  time.Duration(cfg.Scan.StaleAfterMs) * time.Millisecond,
	})

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		cache:    resultCache,
		monitor:  monitor,
		scanner:  scanner,
		manager:  manager,
		exporter: export.NewExporter(logger.Named("export")),
	}, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// QuickScan answers within the configured budget.
func (e *Engine) QuickScan(ctx context.Context, query string, target providers.Target) quick.Result {
	return e.scanner.Scan(ctx, query, target)
}

// StartDeepScan submits a background job and returns it along with a rough
// duration estimate derived from current load.
func (e *Engine) StartDeepScan(query string, page cms.PageContext) (*jobs.Job, time.Duration, error) {
	job, err := e.manager.Start(query, page)
	if err != nil {
		return nil, 0, err
	}
	return job, e.estimateDuration(), nil
}

// estimateDuration scales a one-minute baseline by the current throttle
// delay. It is advisory only.
func (e *Engine) estimateDuration() time.Duration {
	throttle := e.monitor.ThrottleFor(load.KindDeep)
	return time.Minute + 20*throttle.Delay
}

// DriveJob runs batches until the job reaches a terminal or paused state,
// honoring inter-batch throttle delays. The caller's context stops the
// loop between batches.
func (e *Engine) DriveJob(ctx context.Context, jobID string) (*jobs.Job, error) {
	for {
		job, err := e.manager.RunBatch(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.IsTerminal() || job.Status == jobs.StatusPaused {
			return job, nil
		}

		throttle := e.monitor.ThrottleFor(load.KindDeep)
		if throttle.Delay > 0 {
			select {
			case <-time.After(throttle.Delay):
			case <-ctx.Done():
				return job, ctx.Err()
			}
		} else if ctx.Err() != nil {
			return job, ctx.Err()
		}
	}
}

// JobProgress reports the last persisted job state. When the job looks
// stalled the engine drives one batch inline before answering, so progress
// polls double as the recovery path.
func (e *Engine) JobProgress(ctx context.Context, jobID string) (*jobs.Job, error) {
	job, err := e.manager.Progress(jobID)
	if err != nil {
		return nil, err
	}

	if e.manager.NeedsKick(job) {
		e.logger.Info("Job looks stalled, driving one batch inline", map[string]interface{}{
			"jobId": jobID,
		})
		return e.manager.RunBatch(ctx, jobID)
	}
	return job, nil
}

// ControlJob applies a pause/resume/cancel action.
func (e *Engine) ControlJob(jobID string, action Action) (*jobs.Job, error) {
	switch action {
	case ActionPause:
		return e.manager.Pause(jobID)
	case ActionResume:
		return e.manager.Resume(jobID)
	case ActionCancel:
		return e.manager.Cancel(jobID)
	default:
		return nil, attriberrors.New(attriberrors.InvalidAction,
			"unknown job action: "+string(action), nil)
	}
}

// ListJobs returns recent jobs, newest first.
func (e *Engine) ListJobs(limit int) ([]*jobs.Job, error) {
	return e.manager.List(limit)
}

// ExportResults writes a job's results in the requested format.
func (e *Engine) ExportResults(w io.Writer, jobID string, format export.Format) error {
	job, err := e.manager.Progress(jobID)
	if err != nil {
		return err
	}
	return e.exporter.Export(w, job, format)
}

// Sweep removes expired cache entries and jobs past their TTL.
func (e *Engine) Sweep() (cacheRemoved, jobsRemoved int64, err error) {
	cacheRemoved, err = e.cache.Sweep()
	if err != nil {
		return 0, 0, err
	}
	jobsRemoved, err = e.manager.Reclaim(time.Duration(e.cfg.Scan.JobTtlHours) * time.Hour)
	if err != nil {
		return cacheRemoved, 0, err
	}
	return cacheRemoved, jobsRemoved, nil
}

// CacheStats exposes cache counters for diagnostics.
func (e *Engine) CacheStats() (map[string]interface{}, error) {
	return e.cache.Stats()
}

// LoadSnapshot exposes the current load inputs and level for diagnostics.
func (e *Engine) LoadSnapshot() (load.Snapshot, load.Level) {
	s := e.monitor.Snapshot()
	return s, e.monitor.LevelOf(s)
}
