// internal/assert/assert.go
package assert

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/geoprobe-cli/internal/geo"
	"github.com/xkilldash9x/geoprobe-cli/internal/harness"
	"github.com/xkilldash9x/geoprobe-cli/internal/probe"
)

// Engine validates observed query results against the scenario's spatial
// and performance invariants. Every violation is a typed, terminal failure
// carrying the offending data.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an assertion engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger.Named("assert")}
}

// SpatialBounds checks that every returned record lies within radiusKm of
// center, allowing epsilonKm of geodesic-model tolerance. The first record
// outside the bound fails the scenario, named in the error.
func (e *Engine) SpatialBounds(result *probe.QueryResult, center geo.Point, radiusKm, epsilonKm float64) error {
	for _, rec := range result.Records {
		dist := geo.HaversineKm(center, rec.Point())
		if dist > radiusKm+epsilonKm {
			return &harness.SpatialBoundsError{
				RecordID:   rec.ID,
				DistanceKm: dist,
				RadiusKm:   radiusKm,
				EpsilonKm:  epsilonKm,
			}
		}
	}
	e.logger.Info("Spatial bounds satisfied.",
		zap.Int("records", len(result.Records)), zap.Float64("radius_km", radiusKm))
	return nil
}

// Performance checks the observed wall-clock elapsed time against the
// budget.
func (e *Engine) Performance(result *probe.QueryResult, max time.Duration) error {
	if result.Elapsed > max {
		return &harness.PerformanceError{Elapsed: result.Elapsed, Max: max}
	}
	e.logger.Info("Performance budget satisfied.",
		zap.Duration("elapsed", result.Elapsed), zap.Duration("max", max))
	return nil
}

// Filter checks that every returned record satisfies the filter predicate.
// Only the status field is filterable in the issue schema.
func (e *Engine) Filter(result *probe.QueryResult, key, want string) error {
	if key == "" {
		return nil
	}
	if key != "status" {
		return fmt.Errorf("unsupported filter key %q", key)
	}
	for _, rec := range result.Records {
		if rec.Status != want {
			return fmt.Errorf("record %s has status %q, want %q", rec.ID, rec.Status, want)
		}
	}
	return nil
}

// Expectation guards against silent passes: a scenario whose author never
// finalized a success condition must resolve to an explicit failure, not a
// false positive.
func (e *Engine) Expectation(scenario string, defined bool) error {
	if !defined {
		return &harness.UndefinedExpectationError{Scenario: scenario}
	}
	return nil
}
