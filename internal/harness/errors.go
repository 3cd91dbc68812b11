// internal/harness/errors.go
package harness

import (
	"fmt"
	"time"
)

// FailureKind classifies the terminal failure of a scenario. Using a custom
// type ensures only the predefined kinds reach the Outcome.
type FailureKind string

const (
	// KindLocatorTimeout means a required UI element never resolved within
	// its budget. Repeating an identical wait would not resolve a
	// structurally missing element, so this is terminal.
	KindLocatorTimeout FailureKind = "LOCATOR_TIMEOUT"
	// KindNoMatchingRequest means the UI never triggered the expected
	// spatial query call within the observe window. Distinct from a slow
	// but observed request.
	KindNoMatchingRequest FailureKind = "NO_MATCHING_REQUEST"
	// KindSpatialBoundsViolation means a returned record lies outside the
	// requested radius (plus epsilon).
	KindSpatialBoundsViolation FailureKind = "SPATIAL_BOUNDS_VIOLATION"
	// KindPerformanceThresholdExceeded means the observed query took longer
	// than the configured budget.
	KindPerformanceThresholdExceeded FailureKind = "PERFORMANCE_THRESHOLD_EXCEEDED"
	// KindUndefinedExpectation means the scenario author never finalized a
	// success condition. Resolved as a failure, never a silent pass.
	KindUndefinedExpectation FailureKind = "UNDEFINED_EXPECTATION"
	// KindInternal covers unexpected harness errors (browser launch failure,
	// protocol breakage). Still exactly one Outcome, still cleaned up.
	KindInternal FailureKind = "INTERNAL_ERROR"
)

// LocatorTimeoutError is raised when an interaction target never resolves.
type LocatorTimeoutError struct {
	Locator string
	Timeout time.Duration
}

func (e *LocatorTimeoutError) Error() string {
	return fmt.Sprintf("element matching %s did not resolve within %s", e.Locator, e.Timeout)
}

// Kind implements Failure.
func (e *LocatorTimeoutError) Kind() FailureKind { return KindLocatorTimeout }

// NoMatchingRequestError is raised when no request against the query
// endpoint was observed within the configured window.
type NoMatchingRequestError struct {
	Pattern string
	Window  time.Duration
	Err     error
}

func (e *NoMatchingRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no request matching %q observed within %s: %v", e.Pattern, e.Window, e.Err)
	}
	return fmt.Sprintf("no request matching %q observed within %s", e.Pattern, e.Window)
}

func (e *NoMatchingRequestError) Unwrap() error { return e.Err }

// Kind implements Failure.
func (e *NoMatchingRequestError) Kind() FailureKind { return KindNoMatchingRequest }

// SpatialBoundsError names the first record found outside the query radius.
type SpatialBoundsError struct {
	RecordID   string
	DistanceKm float64
	RadiusKm   float64
	EpsilonKm  float64
}

func (e *SpatialBoundsError) Error() string {
	return fmt.Sprintf("record %s is %.3f km from the query center, outside radius %.3f km (+%.3f km epsilon)",
		e.RecordID, e.DistanceKm, e.RadiusKm, e.EpsilonKm)
}

// Kind implements Failure.
func (e *SpatialBoundsError) Kind() FailureKind { return KindSpatialBoundsViolation }

// PerformanceError reports a query that completed but blew its time budget.
type PerformanceError struct {
	Elapsed time.Duration
	Max     time.Duration
}

func (e *PerformanceError) Error() string {
	return fmt.Sprintf("query completed in %s, exceeding the %s budget", e.Elapsed, e.Max)
}

// Kind implements Failure.
func (e *PerformanceError) Kind() FailureKind { return KindPerformanceThresholdExceeded }

// UndefinedExpectationError marks a scenario whose success criteria were
// never finalized.
type UndefinedExpectationError struct {
	Scenario string
}

func (e *UndefinedExpectationError) Error() string {
	return fmt.Sprintf("scenario %q has no defined expected outcome; refusing to pass", e.Scenario)
}

// Kind implements Failure.
func (e *UndefinedExpectationError) Kind() FailureKind { return KindUndefinedExpectation }

// Failure is implemented by every terminal error kind, so the runner can map
// any fatal error to its Outcome classification.
type Failure interface {
	error
	Kind() FailureKind
}

// ClassifyFailure extracts the FailureKind from err, walking the wrap chain.
// Errors outside the taxonomy classify as KindInternal.
func ClassifyFailure(err error) FailureKind {
	for e := err; e != nil; e = unwrap(e) {
		if f, ok := e.(Failure); ok {
			return f.Kind()
		}
	}
	return KindInternal
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}
