// internal/browser/interactor.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/geoprobe-cli/internal/config"
	"github.com/xkilldash9x/geoprobe-cli/internal/harness"
)

// Interactor performs scripted element actions against a session. Each
// action is a single attempt: settle, resolve, act. There are no retries
// across actions; repeated identical waits would not resolve a structurally
// missing element.
type Interactor struct {
	session   *Session
	settle    time.Duration
	opTimeout time.Duration
	logger    *zap.Logger
}

// NewInteractor wires an interactor to a session using the configured
// settling delay and per-operation timeout.
func NewInteractor(session *Session, cfg config.NetworkConfig, logger *zap.Logger) *Interactor {
	return &Interactor{
		session:   session,
		settle:    cfg.SettleDelay,
		opTimeout: cfg.OperationTimeout,
		logger:    logger.Named("interactor"),
	}
}

// Click settles, re-resolves the locator against the current page, and
// clicks the first match. The fixed settling delay trades speed for
// determinism: rendering completion signals are unreliable for map tiles
// and lazy lists, so every action waits the same amount. A timeout with the
// element still absent is a terminal LocatorTimeout.
func (i *Interactor) Click(ctx context.Context, loc Locator) error {
	if loc.IsZero() {
		return errors.New("click requires a non-empty locator")
	}

	i.logger.Info("Clicking.", zap.String("locator", loc.String()))

	if err := i.settleDelay(ctx); err != nil {
		return err
	}

	actionCtx, cancel := i.session.boundedCtx(ctx, i.opTimeout)
	defer cancel()

	// BySearch resolves the XPath fresh on this call; no node handle is
	// cached between actions.
	err := chromedp.Run(actionCtx, chromedp.Click(loc.XPath(), chromedp.BySearch))
	if err == nil {
		return nil
	}

	// Caller cancellation is not a locator failure.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	// Neither is a session that died mid-action (browser crash, release).
	if sErr := i.session.ctx.Err(); sErr != nil {
		return fmt.Errorf("session terminated during click on %s: %w", loc.String(), sErr)
	}
	if errors.Is(err, context.DeadlineExceeded) || actionCtx.Err() != nil {
		return &harness.LocatorTimeoutError{Locator: loc.String(), Timeout: i.opTimeout}
	}
	return err
}

// settleDelay enforces the fixed pre-action pause.
func (i *Interactor) settleDelay(ctx context.Context) error {
	if i.settle <= 0 {
		return nil
	}
	timer := time.NewTimer(i.settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
