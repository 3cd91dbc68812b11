// File: internal/assert/assert_test.go
package assert_test

import (
	"errors"
	"testing"
	"time"

	stdassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/geoprobe-cli/internal/assert"
	"github.com/xkilldash9x/geoprobe-cli/internal/geo"
	"github.com/xkilldash9x/geoprobe-cli/internal/harness"
	"github.com/xkilldash9x/geoprobe-cli/internal/probe"
)

// Query center used throughout: lower Manhattan.
var center = geo.Point{Lat: 40.7128, Lng: -74.0060}

func TestSpatialBounds(t *testing.T) {
	e := assert.NewEngine(zaptest.NewLogger(t))

	inside := probe.Issue{ID: "in-1", Lat: 40.72, Lng: -74.00, Status: "open"}
	// ~0.27 degrees of latitude north is roughly 30 km out.
	outside := probe.Issue{ID: "out-1", Lat: 40.98, Lng: -74.00, Status: "open"}

	t.Run("all records within radius", func(t *testing.T) {
		result := &probe.QueryResult{Records: []probe.Issue{inside}}
		stdassert.NoError(t, e.SpatialBounds(result, center, 5, 0.05))
	})

	t.Run("empty result passes", func(t *testing.T) {
		stdassert.NoError(t, e.SpatialBounds(&probe.QueryResult{}, center, 5, 0.05))
	})

	t.Run("violation names the record", func(t *testing.T) {
		result := &probe.QueryResult{Records: []probe.Issue{inside, outside}}
		err := e.SpatialBounds(result, center, 5, 0.05)
		require.Error(t, err)

		var sbErr *harness.SpatialBoundsError
		require.True(t, errors.As(err, &sbErr))
		stdassert.Equal(t, "out-1", sbErr.RecordID)
		stdassert.Greater(t, sbErr.DistanceKm, 5.0)
		stdassert.Equal(t, harness.KindSpatialBoundsViolation, sbErr.Kind())
	})

	t.Run("epsilon tolerates boundary records", func(t *testing.T) {
		// ~5.02 km north of center: outside the bare radius, inside
		// radius+epsilon for epsilon of 50 m.
		boundary := probe.Issue{ID: "edge-1", Lat: center.Lat + 0.04514, Lng: center.Lng, Status: "open"}
		result := &probe.QueryResult{Records: []probe.Issue{boundary}}

		stdassert.NoError(t, e.SpatialBounds(result, center, 5, 0.05))
		stdassert.Error(t, e.SpatialBounds(result, center, 5, 0))
	})
}

func TestPerformance(t *testing.T) {
	e := assert.NewEngine(zaptest.NewLogger(t))

	t.Run("within budget", func(t *testing.T) {
		result := &probe.QueryResult{Elapsed: 1500 * time.Millisecond}
		stdassert.NoError(t, e.Performance(result, 2*time.Second))
	})

	t.Run("exactly at budget passes", func(t *testing.T) {
		result := &probe.QueryResult{Elapsed: 2 * time.Second}
		stdassert.NoError(t, e.Performance(result, 2*time.Second))
	})

	t.Run("over budget", func(t *testing.T) {
		result := &probe.QueryResult{Elapsed: 2500 * time.Millisecond}
		err := e.Performance(result, 2*time.Second)
		require.Error(t, err)

		var perfErr *harness.PerformanceError
		require.True(t, errors.As(err, &perfErr))
		stdassert.Equal(t, 2500*time.Millisecond, perfErr.Elapsed)
		stdassert.Equal(t, harness.KindPerformanceThresholdExceeded, perfErr.Kind())
	})
}

func TestFilter(t *testing.T) {
	e := assert.NewEngine(zaptest.NewLogger(t))

	open := probe.Issue{ID: "1", Status: "open"}
	closed := probe.Issue{ID: "2", Status: "closed"}

	t.Run("all matching", func(t *testing.T) {
		result := &probe.QueryResult{Records: []probe.Issue{open}}
		stdassert.NoError(t, e.Filter(result, "status", "open"))
	})

	t.Run("mismatch names the record", func(t *testing.T) {
		result := &probe.QueryResult{Records: []probe.Issue{open, closed}}
		err := e.Filter(result, "status", "open")
		require.Error(t, err)
		stdassert.Contains(t, err.Error(), "record 2")
	})

	t.Run("empty key is a no-op", func(t *testing.T) {
		result := &probe.QueryResult{Records: []probe.Issue{open, closed}}
		stdassert.NoError(t, e.Filter(result, "", ""))
	})

	t.Run("unsupported key", func(t *testing.T) {
		stdassert.Error(t, e.Filter(&probe.QueryResult{}, "severity", "high"))
	})
}

func TestExpectation(t *testing.T) {
	e := assert.NewEngine(zaptest.NewLogger(t))

	stdassert.NoError(t, e.Expectation("demo", true))

	err := e.Expectation("demo", false)
	require.Error(t, err)

	var undefErr *harness.UndefinedExpectationError
	require.True(t, errors.As(err, &undefErr))
	stdassert.Equal(t, "demo", undefErr.Scenario)
	stdassert.Equal(t, harness.KindUndefinedExpectation, undefErr.Kind())
}
