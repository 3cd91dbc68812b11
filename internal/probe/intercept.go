// internal/probe/intercept.go
package probe

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/geoprobe-cli/internal/harness"
)

// InterceptProbe passively monitors the browser's outgoing traffic while a
// UI trigger runs, and captures the first response whose path matches the
// query endpoint pattern. Elapsed time is taken from the CDP monotonic
// timestamps between request dispatch and loading completion.
type InterceptProbe struct {
	pattern string
	window  time.Duration
	logger  *zap.Logger
}

// NewInterceptProbe builds an intercepting probe for the given path pattern.
func NewInterceptProbe(pattern string, window time.Duration, logger *zap.Logger) *InterceptProbe {
	return &InterceptProbe{
		pattern: pattern,
		window:  window,
		logger:  logger.Named("probe_intercept"),
	}
}

type capture struct {
	result *QueryResult
	err    error
}

type pendingRequest struct {
	url   string
	start *cdp.MonotonicTime
}

// fetchTracker counts in-flight body fetches. Once drained it admits no new
// fetches, so a listener firing after the observe window closes cannot race
// the final wait.
type fetchTracker struct {
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// begin registers a fetch. Returns false once draining has started.
func (t *fetchTracker) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	return true
}

func (t *fetchTracker) done() { t.wg.Done() }

// drain stops admitting fetches and waits for the in-flight ones.
func (t *fetchTracker) drain() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}

// monotonicElapsed computes the span between two CDP timestamps. Events can
// carry nil timestamps; those spans are unreportable.
func monotonicElapsed(start, end *cdp.MonotonicTime) (time.Duration, bool) {
	if start == nil || end == nil {
		return 0, false
	}
	return end.Time().Sub(start.Time()), true
}

// Observe runs the trigger while listening for the spatial query. ctx must
// be the session's tab context. If no matching request completes within the
// observe window, the failure is NoMatchingRequest: the UI never triggered
// the expected call, which is distinct from a slow-but-observed request.
func (p *InterceptProbe) Observe(ctx context.Context, req QueryRequest, trigger Trigger) (*QueryResult, error) {
	listenCtx, cancelListen := context.WithCancel(ctx)
	defer cancelListen()

	matched := make(chan capture, 1)
	var (
		mu      sync.Mutex
		pending = make(map[network.RequestID]*pendingRequest)
		fetches fetchTracker
	)

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			if !p.matches(e.Request.URL) {
				return
			}
			p.logger.Debug("Matching request dispatched.", zap.String("url", e.Request.URL))
			mu.Lock()
			pending[e.RequestID] = &pendingRequest{url: e.Request.URL, start: e.Timestamp}
			mu.Unlock()

		case *network.EventLoadingFinished:
			mu.Lock()
			pr, ok := pending[e.RequestID]
			delete(pending, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}
			elapsed, ok := monotonicElapsed(pr.start, e.Timestamp)
			if !ok {
				p.logger.Debug("Matching request has no usable timestamps; dropped.",
					zap.String("url", pr.url))
				return
			}
			if !fetches.begin() {
				return
			}
			go p.deliver(ctx, e.RequestID, pr.url, elapsed, matched, &fetches)

		case *network.EventLoadingFailed:
			mu.Lock()
			delete(pending, e.RequestID)
			mu.Unlock()
		}
	})

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		return nil, fmt.Errorf("enabling network domain: %w", err)
	}

	// The trigger runs concurrently with capture; it is the only parallel
	// pair in the harness, and the capture side is event-driven.
	trigCtx, cancelTrig := context.WithCancel(ctx)
	defer cancelTrig()

	g, _ := errgroup.WithContext(trigCtx)
	g.Go(func() error {
		if trigger == nil {
			return nil
		}
		return trigger(trigCtx)
	})
	trigErrCh := make(chan error, 1)
	go func() { trigErrCh <- g.Wait() }()
	triggerDone := false

	timer := time.NewTimer(p.window)
	defer timer.Stop()

	for {
		select {
		case c := <-matched:
			cancelTrig()
			if !triggerDone {
				<-trigErrCh
			}
			return c.result, c.err

		case err := <-trigErrCh:
			triggerDone = true
			if err != nil && ctx.Err() == nil {
				return nil, fmt.Errorf("trigger failed before a matching request was observed: %w", err)
			}
			// Trigger finished cleanly; keep listening until the window
			// closes, since the call may still be in flight.
			trigErrCh = nil

		case <-timer.C:
			// Unsubscribe first so a late event cannot schedule a new fetch
			// while we wait out the in-flight ones.
			cancelListen()
			cancelTrig()
			if !triggerDone {
				<-trigErrCh
			}
			fetches.drain()
			// A late body fetch may have landed while we waited.
			select {
			case c := <-matched:
				return c.result, c.err
			default:
			}
			return nil, &harness.NoMatchingRequestError{Pattern: p.pattern, Window: p.window}

		case <-ctx.Done():
			cancelListen()
			cancelTrig()
			if !triggerDone {
				<-trigErrCh
			}
			fetches.drain()
			return nil, ctx.Err()
		}
	}
}

// deliver fetches the response body and pushes the completed capture.
// Only the first capture wins; later ones are dropped.
func (p *InterceptProbe) deliver(
	tabCtx context.Context,
	id network.RequestID,
	reqURL string,
	elapsed time.Duration,
	matched chan<- capture,
	fetches *fetchTracker,
) {
	defer fetches.done()

	fetchCtx, cancel := context.WithTimeout(tabCtx, 10*time.Second)
	defer cancel()

	var body []byte
	err := chromedp.Run(fetchCtx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(c)
		return err
	}))
	if err != nil {
		if fetchCtx.Err() == nil {
			p.logger.Debug("Failed to fetch response body for matching request.",
				zap.String("url", reqURL), zap.Error(err))
		}
		return
	}

	records, err := decodeIssues(body)
	c := capture{}
	if err != nil {
		c.err = fmt.Errorf("decoding intercepted response from %s: %w", reqURL, err)
	} else {
		p.logger.Info("Spatial query intercepted.",
			zap.String("url", reqURL), zap.Int("records", len(records)), zap.Duration("elapsed", elapsed))
		c.result = &QueryResult{Records: records, Elapsed: elapsed}
	}

	select {
	case matched <- c:
	default:
	}
}

// matches reports whether a request URL targets the query endpoint.
func (p *InterceptProbe) matches(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, p.pattern)
}
