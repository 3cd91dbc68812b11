// internal/harness/runner.go
package harness

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Step is one scripted unit of the scenario. Steps run strictly in order;
// a later step never begins before the prior step's wait resolves.
type Step struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Runner executes a scripted step sequence with a guaranteed reverse-order
// teardown stack. Acquired resources register their release via Defer; the
// stack runs unconditionally on every exit path, including fatal errors and
// panics, so a Session is never leaked past process exit.
type Runner struct {
	scenario string
	logger   *zap.Logger
	steps    []Step

	mu          sync.Mutex
	teardown    []namedTeardown
	diagnostics []Diagnostic
}

type namedTeardown struct {
	name string
	fn   func(ctx context.Context) error
}

// NewRunner creates a runner for the named scenario.
func NewRunner(scenario string, logger *zap.Logger) *Runner {
	return &Runner{
		scenario: scenario,
		logger:   logger.Named("runner").With(zap.String("scenario", scenario)),
	}
}

// AddStep appends a scripted step.
func (r *Runner) AddStep(name string, fn func(ctx context.Context) error) {
	r.steps = append(r.steps, Step{Name: name, Fn: fn})
}

// Defer registers a teardown. Teardowns run in reverse registration order.
// Teardown failures are logged and recorded as diagnostics, never re-raised:
// cleanup must not mask the original verdict.
func (r *Runner) Defer(name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teardown = append(r.teardown, namedTeardown{name: name, fn: fn})
}

// Diag records a non-fatal event against the eventual Outcome.
func (r *Runner) Diag(step, format string, args ...interface{}) {
	d := Diagnostic{Step: step, Message: fmt.Sprintf(format, args...), At: time.Now()}
	r.mu.Lock()
	r.diagnostics = append(r.diagnostics, d)
	r.mu.Unlock()
	r.logger.Debug("Diagnostic recorded.", zap.String("step", d.Step), zap.String("message", d.Message))
}

// Run executes the steps in order and yields exactly one Outcome. A fatal
// error aborts the remaining steps; teardown still runs before the Outcome
// surfaces.
func (r *Runner) Run(ctx context.Context) Outcome {
	start := time.Now()
	var fatal error

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Panic during scenario execution.",
					zap.Any("panic", rec), zap.String("stack", string(debug.Stack())))
				fatal = fmt.Errorf("panic during scenario: %v", rec)
			}
		}()

		for _, step := range r.steps {
			if err := ctx.Err(); err != nil {
				fatal = fmt.Errorf("scenario canceled before step %q: %w", step.Name, err)
				return
			}
			r.logger.Info("Executing step.", zap.String("step", step.Name))
			if err := step.Fn(ctx); err != nil {
				fatal = fmt.Errorf("step %q: %w", step.Name, err)
				return
			}
		}
	}()

	r.runTeardown()

	r.mu.Lock()
	diags := make([]Diagnostic, len(r.diagnostics))
	copy(diags, r.diagnostics)
	r.mu.Unlock()

	outcome := Outcome{
		Scenario:    r.scenario,
		Elapsed:     time.Since(start),
		Diagnostics: diags,
	}
	if fatal != nil {
		outcome.Passed = false
		outcome.Kind = ClassifyFailure(fatal)
		outcome.Reason = fatal.Error()
		r.logger.Error("Scenario failed.", zap.String("kind", string(outcome.Kind)), zap.Error(fatal))
	} else {
		outcome.Passed = true
		r.logger.Info("Scenario passed.", zap.Duration("elapsed", outcome.Elapsed))
	}
	return outcome
}

// runTeardown drains the stack in reverse order. Each entry is attempted
// even if a prior one fails. Uses a background context so a canceled
// scenario context cannot skip cleanup.
func (r *Runner) runTeardown() {
	r.mu.Lock()
	stack := r.teardown
	r.teardown = nil
	r.mu.Unlock()

	for i := len(stack) - 1; i >= 0; i-- {
		td := stack[i]
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error("Panic during teardown.", zap.String("teardown", td.name), zap.Any("panic", rec))
				}
			}()
			if err := td.fn(ctx); err != nil {
				r.Diag(td.name, "teardown error (ignored): %v", err)
				r.logger.Warn("Teardown step failed.", zap.String("teardown", td.name), zap.Error(err))
			}
		}()
		cancel()
	}
}
