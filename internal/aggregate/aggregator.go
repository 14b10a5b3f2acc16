package aggregate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wrdhall3/graphdb-trade-surveillance/internal/config"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/detect"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/graph"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/metrics"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/model"
	"github.com/wrdhall3/graphdb-trade-surveillance/internal/score"
)

// CycleReport summarizes one detection cycle for observability.
type CycleReport struct {
	CycleID    string                    `json:"cycle_id"`
	WindowFrom time.Time                 `json:"window_from"`
	WindowTo   time.Time                 `json:"window_to"`
	Counts     map[model.PatternType]int `json:"counts"` // Raw candidates per detector
	Partial    bool                      `json:"partial"`
	Skipped    []string                  `json:"skipped,omitempty"` // Detectors skipped with cause
	Duration   time.Duration             `json:"duration"`
}

// Result is the output of one detection cycle: deduplicated activities,
// newest first, plus the per-detector report.
type Result struct {
	Activities []model.SuspiciousActivity `json:"activities"`
	Report     CycleReport                `json:"report"`
}

// Aggregator runs the detectors over a window and folds their candidates
// into stable SuspiciousActivity records.
type Aggregator struct {
	detectors []detect.Detector
	scoring   config.ScoringConfig
	jaccard   float64
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates an Aggregator over the given detectors.
func New(detectors []detect.Detector, scoring config.ScoringConfig, jaccard float64, logger *slog.Logger, m *metrics.Metrics) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		detectors: detectors,
		scoring:   scoring,
		jaccard:   jaccard,
		logger:    logger,
		metrics:   m,
	}
}

// Detect runs one cycle over [from, to) with the given enabled patterns.
func (a *Aggregator) Detect(ctx context.Context, from, to time.Time, enabled []model.PatternType) (*Result, error) {
	start := time.Now()
	cycleID := uuid.NewString()

	report := CycleReport{
		CycleID:    cycleID,
		WindowFrom: from,
		WindowTo:   to,
		Counts:     make(map[model.PatternType]int),
	}

	type detectorOutput struct {
		pattern    model.PatternType
		candidates []detect.Candidate
		err        error
	}

	active := a.enabledDetectors(enabled)
	outputs := make([]detectorOutput, len(active))

	// Detectors are read-only and independent; run them concurrently and
	// wait for all of them before deduplication.
	var wg sync.WaitGroup
	for i, det := range active {
		wg.Add(1)
		go func(i int, det detect.Detector) {
			defer wg.Done()
			candidates, err := det.Detect(ctx, from, to)
			outputs[i] = detectorOutput{pattern: det.Pattern(), candidates: candidates, err: err}
		}(i, det)
	}
	wg.Wait()

	var all []detect.Candidate
	for _, out := range outputs {
		if out.err != nil {
			if errors.Is(out.err, graph.ErrMalformedQuery) {
				return nil, fmt.Errorf("cycle %s detector %s window [%s, %s): %w",
					cycleID, out.pattern, from, to, out.err)
			}
			// Transient: skip this detector for the cycle, keep the rest.
			a.logger.Warn("detector skipped for cycle",
				"cycle_id", cycleID,
				"detector", out.pattern,
				"window_from", from,
				"window_to", to,
				"err", out.err,
			)
			report.Partial = true
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", out.pattern, out.err))
			continue
		}
		report.Counts[out.pattern] = len(out.candidates)
		a.metrics.AddCandidates(string(out.pattern), len(out.candidates))
		all = append(all, out.candidates...)
	}

	for _, c := range all {
		if len(c.TransactionIDs) == 0 {
			return nil, fmt.Errorf("cycle %s detector %s emitted a candidate with no related transactions", cycleID, c.Pattern)
		}
	}

	activities := a.fold(all)
	report.Duration = time.Since(start)

	byPattern := make(map[model.PatternType]int)
	for _, act := range activities {
		byPattern[act.PatternType]++
	}
	for pattern, n := range byPattern {
		a.metrics.AddActivities(string(pattern), n)
	}

	a.logger.Info("detection cycle complete",
		"cycle_id", cycleID,
		"window_from", from,
		"window_to", to,
		"candidates", len(all),
		"activities", len(activities),
		"partial", report.Partial,
		"duration", report.Duration,
	)

	return &Result{Activities: activities, Report: report}, nil
}

func (a *Aggregator) enabledDetectors(enabled []model.PatternType) []detect.Detector {
	if len(enabled) == 0 {
		return a.detectors
	}
	var active []detect.Detector
	for _, det := range a.detectors {
		for _, pattern := range enabled {
			if det.Pattern() == pattern {
				active = append(active, det)
				break
			}
		}
	}
	return active
}

// fold scores, deduplicates and finalizes the raw candidate set.
func (a *Aggregator) fold(candidates []detect.Candidate) []model.SuspiciousActivity {
	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		confidence, severity := score.Score(c.Features, a.scoring)
		scored[i] = scoredCandidate{Candidate: c, confidence: confidence, severity: severity}
	}

	merged := dedupe(scored, a.jaccard)

	activities := make([]model.SuspiciousActivity, 0, len(merged))
	for _, m := range merged {
		activities = append(activities, model.SuspiciousActivity{
			ID:                  StableID(m.Pattern, m.TransactionIDs),
			PatternType:         m.Pattern,
			TraderID:            m.TraderID,
			AccountID:           m.AccountID,
			Instrument:          m.Instrument,
			ConfidenceScore:     m.confidence,
			Severity:            m.severity,
			Timestamp:           m.Timestamp,
			Description:         m.Description,
			RelatedTransactions: m.TransactionIDs,
			RelatedOrders:       m.OrderIDs,
		})
	}

	// Newest first; ID as a deterministic tie-break.
	sort.SliceStable(activities, func(i, j int) bool {
		if !activities[i].Timestamp.Equal(activities[j].Timestamp) {
			return activities[i].Timestamp.After(activities[j].Timestamp)
		}
		return activities[i].ID < activities[j].ID
	})

	return activities
}

// StableID derives the activity identifier from the pattern type and the
// sorted related-transaction set, so re-runs over unchanged data reproduce
// the same identifier.
func StableID(pattern model.PatternType, txnIDs []string) string {
	ids := append([]string(nil), txnIDs...)
	sort.Strings(ids)
	sum := sha256.Sum256([]byte(string(pattern) + ":" + strings.Join(ids, ":")))
	return hex.EncodeToString(sum[:16])
}
