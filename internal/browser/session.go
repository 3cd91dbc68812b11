// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/geoprobe-cli/internal/config"
	"github.com/xkilldash9x/geoprobe-cli/internal/harness"
)

// readyPollInterval is how often the readiness signal is sampled.
const readyPollInterval = 100 * time.Millisecond

// Session is one isolated browser tab, owned by the Manager and invalid
// after release.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *zap.Logger
}

// FrameReadiness is the per-frame result of the best-effort readiness wait.
type FrameReadiness struct {
	FrameURL string
	State    harness.Readiness
}

func newSession(id string, ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) *Session {
	return &Session{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.Named("session").With(zap.String("session_id", id)),
	}
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Context returns the tab context. The intercepting network probe attaches
// its CDP listeners through it.
func (s *Session) Context() context.Context {
	return s.ctx
}

// close gracefully shuts the tab down. Called by the Manager during release.
func (s *Session) close(grace time.Duration) error {
	defer s.cancel()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), grace)
	defer waitCancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.ctx) }()
	select {
	case err := <-done:
		return err
	case <-waitCtx.Done():
		return fmt.Errorf("timed out waiting for tab to close")
	}
}

// Navigate loads url, waiting only until the navigation is committed - not
// until full load - to bound latency. Readiness is a separate, best-effort
// concern (WaitReady / WaitFramesReady).
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := s.boundedCtx(ctx, s.cfg.Network.NavigationTimeout)
	defer cancel()

	s.logger.Info("Navigating.", zap.String("url", url))

	err := chromedp.Run(navCtx, chromedp.ActionFunc(func(c context.Context) error {
		_, _, errText, _, err := page.Navigate(url).Do(c)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigation error: %s", errText)
		}
		return nil
	}))
	if err != nil {
		return fmt.Errorf("failed to commit navigation to %s: %w", url, err)
	}
	return nil
}

// WaitReady polls the page's readiness signal (structural content loaded)
// under the secondary ready timeout. Failure to reach it downgrades to
// TimedOut; the scenario proceeds with best effort, since partial readiness
// is common with asynchronous map widgets.
func (s *Session) WaitReady(ctx context.Context) harness.Readiness {
	readyCtx, cancel := s.boundedCtx(ctx, s.cfg.Network.ReadyTimeout)
	defer cancel()

	state := s.pollReadyState(readyCtx, `document.readyState`)
	s.logger.Debug("Page readiness wait finished.", zap.String("state", state.String()))
	return state
}

// WaitFramesReady enumerates the currently known child frames and applies
// the same bounded readiness wait to each independently. Zero frames is a
// valid no-op. A frame that detaches mid-wait (or is cross-origin and
// therefore unobservable) is swallowed as TimedOut; it never aborts the
// navigation.
//
// Coverage is limited to the page's direct, same-origin iframes, observed
// through the main frame's DOM in document order. Nested and cross-origin
// frames report TimedOut, which the best-effort policy absorbs; observing
// them for real would need a per-frame execution context, which the wait's
// non-fatal contract does not justify. The iframe index can drift from the
// frame-tree order if the page mutates its iframes mid-wait; a mismatch
// reads the wrong sibling's state and at worst misreports a TimedOut.
func (s *Session) WaitFramesReady(ctx context.Context) []FrameReadiness {
	opCtx, cancel := s.boundedCtx(ctx, s.cfg.Network.OperationTimeout)
	var tree *page.FrameTree
	err := chromedp.Run(opCtx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		tree, err = page.GetFrameTree().Do(c)
		return err
	}))
	cancel()
	if err != nil || tree == nil {
		s.logger.Debug("Could not enumerate frames (ignored).", zap.Error(err))
		return nil
	}

	results := make([]FrameReadiness, 0, len(tree.ChildFrames))
	for i, child := range tree.ChildFrames {
		frameURL := ""
		if child.Frame != nil {
			frameURL = child.Frame.URL
		}

		frameCtx, frameCancel := s.boundedCtx(ctx, s.cfg.Network.ReadyTimeout)
		// Same-origin frames are observable from the main frame; anything
		// else reads as unavailable and times out harmlessly.
		expr := fmt.Sprintf(`(() => {
			const f = document.querySelectorAll('iframe')[%d];
			if (!f) { return "detached"; }
			try {
				return f.contentDocument ? f.contentDocument.readyState : "unavailable";
			} catch (e) { return "unavailable"; }
		})()`, i)
		state := s.pollReadyState(frameCtx, expr)
		frameCancel()

		s.logger.Debug("Frame readiness wait finished.",
			zap.String("frame_url", frameURL), zap.String("state", state.String()))
		results = append(results, FrameReadiness{FrameURL: frameURL, State: state})
	}
	return results
}

// pollReadyState samples expr until it reports a usable document state or
// the context expires. Evaluation errors are swallowed: the wait is best
// effort by contract.
func (s *Session) pollReadyState(ctx context.Context, expr string) harness.Readiness {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		var state string
		if err := chromedp.Run(ctx, chromedp.Evaluate(expr, &state)); err == nil {
			switch state {
			case "interactive", "complete":
				return harness.Ready
			case "detached", "unavailable":
				return harness.TimedOut
			}
		} else if ctx.Err() != nil {
			return harness.TimedOut
		}

		select {
		case <-ctx.Done():
			return harness.TimedOut
		case <-ticker.C:
		}
	}
}

// boundedCtx derives an operation context that respects the session
// lifetime, the caller's context, and the given budget.
func (s *Session) boundedCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	combined, cancelCombined := combineContext(s.ctx, ctx)
	bounded, cancelBounded := context.WithTimeout(combined, timeout)
	return bounded, func() {
		cancelBounded()
		cancelCombined()
	}
}

// combineContext returns a context derived from parent that is also
// canceled when secondary is done.
func combineContext(parent, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
