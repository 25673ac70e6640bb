// Package synthesis turns ranked evidence into one explained answer.
//
// It builds a compact digest of the evidence, hands it to the single
// abstract explain capability, and parses the narrative back into a
// primary-source/location/edit-path triple. Any explainer failure degrades
// to a deterministic fallback built from the top-ranked evidence item; a
// synthesis failure is never surfaced as a hard error.
package synthesis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/logging"
)

// Explanation is the final answer handed back to the caller.
type Explanation struct {
	PrimarySource string `json:"primarySource"`
	Location      string `json:"location"`
	EditPath      string `json:"editPath,omitempty"`
	Narrative     string `json:"narrative,omitempty"`
	Fallback      bool   `json:"fallback"`
}

// Synthesizer builds digests and delegates to the external explainer.
type Synthesizer struct {
	explainer   cms.Explainer
	logger      *logging.Logger
	timeout     time.Duration
	topEvidence int
}

// New creates a Synthesizer. explainer may be nil, in which case every
// call takes the deterministic fallback path.
func New(explainer cms.Explainer, logger *logging.Logger, timeout time.Duration, topEvidence int) *Synthesizer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if topEvidence <= 0 {
		topEvidence = 5
	}
	return &Synthesizer{
		explainer:   explainer,
		logger:      logger,
		timeout:     timeout,
		topEvidence: topEvidence,
	}
}

// Explain produces the final explanation for the query given ranked
// evidence. Never returns an error: explainer failures fall back.
func (s *Synthesizer) Explain(ctx context.Context, query string, scored []evidence.Scored) Explanation {
	if len(scored) == 0 {
		return Explanation{Fallback: true}
	}

	if s.explainer == nil {
		return s.fallback(scored)
	}

	digest := BuildDigest(scored, s.topEvidence)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	narrative, err := s.explainer.Explain(callCtx, query, digest)
	if err != nil {
		s.logger.Warn("Explainer failed, using highest-scored evidence", map[string]interface{}{
			"error": err.Error(),
		})
		return s.fallback(scored)
	}

	explanation, ok := parseNarrative(narrative)
	if !ok {
		s.logger.Debug("Narrative missing markers, using highest-scored evidence", nil)
		fb := s.fallback(scored)
		fb.Narrative = narrative
		return fb
	}

	explanation.Narrative = narrative
	return explanation
}

// fallback answers with the single highest combined-score item.
func (s *Synthesizer) fallback(scored []evidence.Scored) Explanation {
	top := scored[0].Item
	return Explanation{
		PrimarySource: string(top.SourceType),
		Location:      top.Location,
		EditPath:      top.EditRef,
		Fallback:      true,
	}
}

// BuildDigest renders a compact structured digest: counts per source type
// followed by the top-ranked items with location and context. The digest is
// bounded by construction, keeping the downstream prompt small.
func BuildDigest(scored []evidence.Scored, top int) string {
	counts := make(map[evidence.SourceType]int)
	for _, sc := range scored {
		counts[sc.Item.SourceType]++
	}

	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	var b strings.Builder
	b.WriteString("evidence counts:\n")
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %s: %d\n", k, counts[evidence.SourceType(k)])
	}

	if top > len(scored) {
		top = len(scored)
	}
	b.WriteString("top evidence:\n")
	for i := 0; i < top; i++ {
		item := scored[i].Item
		fmt.Fprintf(&b, "  %d. [%s] %s (combined %.2f)", i+1, item.SourceType, item.Location, scored[i].Combined)
		if item.Context != "" {
			fmt.Fprintf(&b, " - %s", item.Context)
		}
		if item.EditRef != "" {
			fmt.Fprintf(&b, " (edit: %s)", item.EditRef)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// Marker lines the explainer is prompted to emit and the parser scans for.
const (
	markerPrimary  = "primary:"
	markerLocation = "location:"
	markerEdit     = "edit:"
)

// parseNarrative extracts the primary/location/edit triple from marker
// lines. Both primary and location markers must be present for the parse
// to count.
func parseNarrative(narrative string) (Explanation, bool) {
	var e Explanation
	for _, line := range strings.Split(narrative, "\n") {
		trimmed := strings.TrimSpace(line)
		lowered := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lowered, markerPrimary):
			e.PrimarySource = strings.TrimSpace(trimmed[len(markerPrimary):])
		case strings.HasPrefix(lowered, markerLocation):
			e.Location = strings.TrimSpace(trimmed[len(markerLocation):])
		case strings.HasPrefix(lowered, markerEdit):
			e.EditPath = strings.TrimSpace(trimmed[len(markerEdit):])
		}
	}

	return e, e.PrimarySource != "" && e.Location != ""
}
