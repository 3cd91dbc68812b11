// internal/scenario/nearby.go
package scenario

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/geoprobe-cli/internal/assert"
	"github.com/xkilldash9x/geoprobe-cli/internal/browser"
	"github.com/xkilldash9x/geoprobe-cli/internal/config"
	"github.com/xkilldash9x/geoprobe-cli/internal/geo"
	"github.com/xkilldash9x/geoprobe-cli/internal/harness"
	"github.com/xkilldash9x/geoprobe-cli/internal/probe"
)

// Name identifies the nearby-issues scenario in outcomes and logs.
const Name = "nearby-issues"

// NearbyIssues validates the geospatial "nearby issues" query feature end
// to end: it drives the UI sequence that should cause the application to
// issue a spatial query, observes the query, and asserts the returned
// records against the spatial and performance invariants.
type NearbyIssues struct {
	cfg    *config.Config
	logger *zap.Logger
}

// New builds the scenario from configuration.
func New(cfg *config.Config, logger *zap.Logger) *NearbyIssues {
	return &NearbyIssues{cfg: cfg, logger: logger}
}

// Run executes the scripted sequence and yields exactly one Outcome. The
// browser session is registered on the teardown stack as soon as it is
// acquired, so release happens on every exit path.
func (n *NearbyIssues) Run(ctx context.Context) harness.Outcome {
	r := harness.NewRunner(Name, n.logger)
	engine := assert.NewEngine(n.logger)

	sc := n.cfg.Scenario
	center := geo.Point{Lat: sc.Lat, Lng: sc.Lng}
	filterKey, filterValue := sc.FilterKV()
	query := probe.QueryRequest{
		Center:      center,
		RadiusKm:    sc.RadiusKm,
		FilterKey:   filterKey,
		FilterValue: filterValue,
	}

	var (
		mgr        *browser.Manager
		sess       *browser.Session
		interactor *browser.Interactor
		result     *probe.QueryResult
	)

	r.AddStep("acquire-session", func(ctx context.Context) error {
		mgr = browser.NewManager(n.cfg, n.logger)
		s, err := mgr.Acquire(ctx)
		if err != nil {
			return err
		}
		sess = s
		interactor = browser.NewInteractor(sess, n.cfg.Network, n.logger)
		r.Defer("release-session", func(ctx context.Context) error {
			mgr.Release(ctx)
			return nil
		})
		return nil
	})

	r.AddStep("navigate", func(ctx context.Context) error {
		return sess.Navigate(ctx, sc.BaseURL)
	})

	r.AddStep("wait-ready", func(ctx context.Context) error {
		return n.waitReadiness(ctx, r, sess)
	})

	r.AddStep("open-map-view", func(ctx context.Context) error {
		return interactor.Click(ctx, browser.ByXPath(sc.MapToggleXPath))
	})

	r.AddStep("observe-query", func(ctx context.Context) error {
		p := n.buildProbe()
		obsCtx := ctx
		if n.cfg.Probe.Mode == config.ProbeModeIntercept {
			// The intercepting probe attaches CDP listeners through the
			// tab context.
			obsCtx = sess.Context()
		}
		res, err := p.Observe(obsCtx, query, n.buildTrigger(interactor))
		if err != nil {
			return err
		}
		result = res
		return nil
	})

	r.AddStep("assert", func(ctx context.Context) error {
		if err := engine.Expectation(Name, sc.ExpectationDefined); err != nil {
			return err
		}
		if err := engine.SpatialBounds(result, center, sc.RadiusKm, sc.EpsilonKm); err != nil {
			return err
		}
		if err := engine.Filter(result, filterKey, filterValue); err != nil {
			return err
		}
		return engine.Performance(result, sc.MaxElapsed)
	})

	return r.Run(ctx)
}

// readinessWaiter is the slice of a Session the readiness step needs.
type readinessWaiter interface {
	WaitReady(ctx context.Context) harness.Readiness
	WaitFramesReady(ctx context.Context) []browser.FrameReadiness
}

// waitReadiness applies the best-effort readiness policy: a page or frame
// that never signals ready is recorded as a diagnostic and the run proceeds.
func (n *NearbyIssues) waitReadiness(ctx context.Context, r *harness.Runner, sess readinessWaiter) error {
	if sess.WaitReady(ctx) == harness.TimedOut {
		r.Diag("wait-ready", "page readiness not reached within %s; proceeding best effort",
			n.cfg.Network.ReadyTimeout)
	}
	for _, fr := range sess.WaitFramesReady(ctx) {
		if fr.State == harness.TimedOut {
			r.Diag("wait-ready", "frame %q readiness not reached; proceeding best effort", fr.FrameURL)
		}
	}
	return nil
}

// buildProbe selects the configured observation strategy.
func (n *NearbyIssues) buildProbe() probe.Probe {
	if n.cfg.Probe.Mode == config.ProbeModeDirect {
		return probe.NewDirectProbe(
			n.cfg.Scenario.BaseURL,
			n.cfg.Probe.EndpointPath,
			n.cfg.Network.ObserveTimeout,
			n.logger,
		)
	}
	return probe.NewInterceptProbe(
		n.cfg.Probe.EndpointPath,
		n.cfg.Network.ObserveTimeout,
		n.logger,
	)
}

// buildTrigger is the map-interaction sequence expected to make the app
// issue the spatial query: pan/zoom affordances first, then "load more".
func (n *NearbyIssues) buildTrigger(interactor *browser.Interactor) probe.Trigger {
	sc := n.cfg.Scenario
	return func(ctx context.Context) error {
		for _, xpath := range sc.MapActionXPaths {
			if err := interactor.Click(ctx, browser.ByXPath(xpath)); err != nil {
				return err
			}
		}
		if sc.LoadMoreXPath != "" {
			return interactor.Click(ctx, browser.ByXPath(sc.LoadMoreXPath))
		}
		return nil
	}
}
