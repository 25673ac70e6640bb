// Package quick runs the bounded-time scan: a fixed priority order of
// providers under a single wall-clock budget, returning whatever evidence
// was gathered when the budget runs out.
package quick

import (
	"context"
	"time"

	"attrib/internal/cache"
	"attrib/internal/cms"
	attriberrors "attrib/internal/errors"
	"attrib/internal/evidence"
	"attrib/internal/logging"
	"attrib/internal/providers"
	"attrib/internal/scoring"
	"attrib/internal/terms"
)

// Result is the quick-scan answer. A quick scan always produces one, even
// when every provider failed or the budget expired early; missing evidence
// shows up as an empty list and zero confidence, never as an error.
type Result struct {
	PrimarySource string            `json:"primarySource,omitempty"`
	Evidence      []evidence.Scored `json:"evidence"`
	Confidence    float64           `json:"confidence"`
	ElapsedMs     int64             `json:"elapsedMs"`
	TimedOut      bool              `json:"timedOut"`
}

// Scanner drives quick scans.
type Scanner struct {
	source    cms.ContentSource
	cache     *cache.Cache
	cacheTTL  time.Duration
	scorer    *scoring.Scorer
	extractor *terms.Extractor
	logger    *logging.Logger
	budget    time.Duration
}

// NewScanner creates a quick scanner. budget <= 0 selects 5s.
func NewScanner(source cms.ContentSource, c *cache.Cache, cacheTTL time.Duration, scorer *scoring.Scorer, extractor *terms.Extractor, logger *logging.Logger, budget time.Duration) *Scanner {
	if budget <= 0 {
		budget = 5 * time.Second
	}
	if extractor == nil {
		extractor = terms.NewExtractor()
	}
	return &Scanner{
		source:    source,
		cache:     c,
		cacheTTL:  cacheTTL,
		scorer:    scorer,
		extractor: extractor,
		logger:    logger,
		budget:    budget,
	}
}

// worstCaseCost is a coarse upper bound on a single call per provider kind.
// A provider whose bound no longer fits in the remaining budget is skipped,
// so the scan can only overrun by the one call already in flight when the
// budget ran out.
var worstCaseCost = map[string]time.Duration{
	"hint":      10 * time.Millisecond,
	"menu":      100 * time.Millisecond,
	"template":  500 * time.Millisecond,
	"widget":    100 * time.Millisecond,
	"shortcode": 250 * time.Millisecond,
}

// Scan runs the provider chain under the budget and ranks what came back.
// Provider failures are logged and contribute zero evidence; before each
// provider the remaining budget is checked against its worst-case cost, and
// providers that cannot fit are skipped while cheaper later ones still run.
func (s *Scanner) Scan(ctx context.Context, query string, target providers.Target) Result {
	start := time.Now()
	deadline := start.Add(s.budget)

	scanCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	searchTerms := s.extractor.Extract(query)

	var items []evidence.Item
	timedOut := false
	for _, p := range providers.QuickOrder(s.source, s.cache, s.cacheTTL) {
		if remaining := time.Until(deadline); remaining < worstCaseCost[p.Kind()] {
			timedOut = true
			s.logger.Debug("Skipping provider that cannot fit the remaining budget", map[string]interface{}{
				"provider":  p.Kind(),
				"remaining": remaining.String(),
				"code":      attriberrors.BudgetExceeded,
			})
			continue
		}

		found, err := p.Scan(scanCtx, searchTerms, target)
		if err != nil {
			s.logger.Warn("Quick scan provider failed", map[string]interface{}{
				"provider": p.Kind(),
				"code":     attriberrors.ProviderFailed,
				"error":    err.Error(),
			})
			continue
		}
		items = append(items, found...)
	}

	scored := s.scorer.Score(items, searchTerms)

	result := Result{
		Evidence:   scored,
		Confidence: aggregateConfidence(scored),
		ElapsedMs:  time.Since(start).Milliseconds(),
		TimedOut:   timedOut,
	}
	if len(scored) > 0 {
		result.PrimarySource = string(scored[0].Item.SourceType)
	}

	s.logger.Info("Quick scan finished", map[string]interface{}{
		"query":     query,
		"evidence":  len(scored),
		"elapsedMs": result.ElapsedMs,
		"timedOut":  timedOut,
	})
	return result
}

// aggregateConfidence averages the confidences of the top three ranked
// items. One strong hit among weak ones still reads as a confident answer
// without letting a single fuzzy match claim certainty.
func aggregateConfidence(scored []evidence.Scored) float64 {
	n := len(scored)
	if n == 0 {
		return 0
	}
	if n > 3 {
		n = 3
	}

	sum := 0.0
	for i := 0; i < n; i++ {
		sum += scored[i].Item.Confidence
	}
	return sum / float64(n)
}
