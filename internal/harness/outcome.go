// internal/harness/outcome.go
package harness

import (
	"fmt"
	"time"
)

// Readiness is the explicit result of a best-effort wait. Modelling the
// swallow-and-continue policy as a value keeps the non-fatal/fatal
// distinction visible at each call site.
type Readiness int

const (
	// Ready means the readiness signal was observed within the budget.
	Ready Readiness = iota
	// TimedOut means the signal was not observed; the scenario proceeds
	// with best effort.
	TimedOut
)

func (r Readiness) String() string {
	if r == Ready {
		return "ready"
	}
	return "timed-out"
}

// Diagnostic records a non-fatal event. Diagnostics are retained for
// debugging but never change the verdict on their own.
type Diagnostic struct {
	Step    string    `json:"step"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Outcome is the single terminal verdict of a scenario run.
type Outcome struct {
	Scenario    string        `json:"scenario"`
	Passed      bool          `json:"passed"`
	Kind        FailureKind   `json:"kind,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// String renders the one-line verdict.
func (o Outcome) String() string {
	if o.Passed {
		return fmt.Sprintf("PASSED %s (%s)", o.Scenario, o.Elapsed.Round(time.Millisecond))
	}
	return fmt.Sprintf("FAILED %s [%s]: %s", o.Scenario, o.Kind, o.Reason)
}
