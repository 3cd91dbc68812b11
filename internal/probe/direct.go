// internal/probe/direct.go
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/geoprobe-cli/internal/harness"
)

// DirectProbe issues the HTTP GET against the query endpoint itself, with
// explicit parameters, and parses the response. The UI trigger is not
// executed: direct invocation replaces UI-triggered capture entirely.
type DirectProbe struct {
	client       *http.Client
	baseURL      string
	endpointPath string
	timeout      time.Duration
	logger       *zap.Logger
}

// NewDirectProbe builds a direct probe against baseURL+endpointPath.
func NewDirectProbe(baseURL, endpointPath string, timeout time.Duration, logger *zap.Logger) *DirectProbe {
	return &DirectProbe{
		client:       &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		endpointPath: endpointPath,
		timeout:      timeout,
		logger:       logger.Named("probe_direct"),
	}
}

// Observe dispatches the query and measures wall-clock elapsed time from
// dispatch to response completion (body fully read). An unreachable or
// absent endpoint reports NoMatchingRequest: the interface contract is
// assumed, not owned, and its absence must not panic the harness.
func (p *DirectProbe) Observe(ctx context.Context, req QueryRequest, _ Trigger) (*QueryResult, error) {
	target, err := p.buildURL(req)
	if err != nil {
		return nil, fmt.Errorf("building query URL: %w", err)
	}

	p.logger.Info("Issuing direct spatial query.", zap.String("url", target))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &harness.NoMatchingRequestError{Pattern: p.endpointPath, Window: p.timeout, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &harness.NoMatchingRequestError{
			Pattern: p.endpointPath,
			Window:  p.timeout,
			Err:     fmt.Errorf("endpoint returned %d", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("query endpoint returned status %d", resp.StatusCode)
	}

	records, err := decodeIssues(body)
	if err != nil {
		return nil, fmt.Errorf("decoding query response: %w", err)
	}

	p.logger.Info("Spatial query observed.",
		zap.Int("records", len(records)), zap.Duration("elapsed", elapsed))

	return &QueryResult{Records: records, Elapsed: elapsed}, nil
}

func (p *DirectProbe) buildURL(req QueryRequest) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", err
	}
	u.Path = p.endpointPath

	q := u.Query()
	q.Set("lat", strconv.FormatFloat(req.Center.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(req.Center.Lng, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(req.RadiusKm, 'f', -1, 64))
	q.Set("filter", req.Filter())
	u.RawQuery = q.Encode()

	return u.String(), nil
}
