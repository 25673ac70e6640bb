// Package load computes a coarse load level and derives batch throttling
// from it. Snapshots are ephemeral: computed on demand, never stored.
package load

import (
	"runtime"
	"time"
)

// Level is the coarse load classification.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// ScanKind selects a throttle profile.
type ScanKind string

const (
	KindQuick ScanKind = "quick"
	KindDeep  ScanKind = "deep"
)

// Snapshot captures the inputs to a load decision at one instant.
type Snapshot struct {
	MemoryUsed  uint64        `json:"memoryUsed"`
	MemoryLimit uint64        `json:"memoryLimit"`
	Elapsed     time.Duration `json:"elapsed"`
	ActiveJobs  int           `json:"activeJobs"`
}

// Throttle is the batch shape a caller should use before starting work.
type Throttle struct {
	BatchSize int           `json:"batchSize"`
	Delay     time.Duration `json:"delay"`
}

// Monitor computes load snapshots. Active job counts and elapsed time are
// injected so the monitor stays free of job-store dependencies.
type Monitor struct {
	memoryLimit uint64
	maxDeepJobs int
	softCeiling time.Duration
	activeJobs  func() int
	started     time.Time

	baseBatchSize int
}

// Options configures a Monitor.
type Options struct {
	MemoryLimit   uint64        // 0 selects a 256MB default
	MaxDeepJobs   int           // 0 selects 3
	SoftCeiling   time.Duration // 0 selects 25s
	BaseBatchSize int           // 0 selects 25
	ActiveJobs    func() int    // nil counts zero
}

// NewMonitor creates a Monitor. The elapsed-time fraction of the load level
// is measured from this call.
func NewMonitor(opts Options) *Monitor {
	if opts.MemoryLimit == 0 {
		opts.MemoryLimit = 256 * 1024 * 1024
	}
	if opts.MaxDeepJobs <= 0 {
		opts.MaxDeepJobs = 3
	}
	if opts.SoftCeiling <= 0 {
		opts.SoftCeiling = 25 * time.Second
	}
	if opts.BaseBatchSize <= 0 {
		opts.BaseBatchSize = 25
	}
	if opts.ActiveJobs == nil {
		opts.ActiveJobs = func() int { return 0 }
	}

	return &Monitor{
		memoryLimit:   opts.MemoryLimit,
		maxDeepJobs:   opts.MaxDeepJobs,
		softCeiling:   opts.SoftCeiling,
		activeJobs:    opts.ActiveJobs,
		started:       time.Now(),
		baseBatchSize: opts.BaseBatchSize,
	}
}

// MaxDeepJobs returns the deep-scan concurrency ceiling.
func (m *Monitor) MaxDeepJobs() int {
	return m.maxDeepJobs
}

// Snapshot computes the current load inputs.
func (m *Monitor) Snapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Snapshot{
		MemoryUsed:  ms.HeapAlloc,
		MemoryLimit: m.memoryLimit,
		Elapsed:     time.Since(m.started),
		ActiveJobs:  m.activeJobs(),
	}
}

// LevelOf classifies a snapshot. Memory contributes up to 40 points, active
// jobs up to 30 and elapsed time up to 30; 40/60/80 map to medium/high/
// critical.
func (m *Monitor) LevelOf(s Snapshot) Level {
	score := 40*fraction(float64(s.MemoryUsed), float64(s.MemoryLimit)) +
		30*fraction(float64(s.ActiveJobs), float64(m.maxDeepJobs)) +
		30*fraction(float64(s.Elapsed), float64(m.softCeiling))

	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// ThrottleFor returns the batch shape for a scan kind under current load.
// Quick scans get full batches and no delay; deep scans shrink batches and
// add inter-batch delay as load climbs.
func (m *Monitor) ThrottleFor(kind ScanKind) Throttle {
	if kind == KindQuick {
		return Throttle{BatchSize: m.baseBatchSize * 2}
	}

	level := m.LevelOf(m.Snapshot())
	switch level {
	case LevelCritical:
		return Throttle{BatchSize: max(1, m.baseBatchSize/4), Delay: 2 * time.Second}
	case LevelHigh:
		return Throttle{BatchSize: max(1, m.baseBatchSize/2), Delay: time.Second}
	case LevelMedium:
		return Throttle{BatchSize: m.baseBatchSize, Delay: 250 * time.Millisecond}
	default:
		return Throttle{BatchSize: m.baseBatchSize}
	}
}

// ShouldThrottle reports whether callers should degrade batch size before
// starting work: above 80% memory, past the deep-job ceiling, or past the
// soft elapsed-time ceiling.
func (m *Monitor) ShouldThrottle(s Snapshot) bool {
	if s.MemoryLimit > 0 && float64(s.MemoryUsed) > 0.8*float64(s.MemoryLimit) {
		return true
	}
	if s.ActiveJobs > m.maxDeepJobs {
		return true
	}
	if s.Elapsed > m.softCeiling {
		return true
	}
	return false
}

func fraction(value, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	f := value / limit
	if f > 1 {
		return 1
	}
	return f
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
