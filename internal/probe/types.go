// internal/probe/types.go
package probe

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/geoprobe-cli/internal/geo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Issue is one record returned by the spatial query endpoint.
type Issue struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Status string  `json:"status"`
}

// Point returns the record's coordinate.
func (i Issue) Point() geo.Point {
	return geo.Point{Lat: i.Lat, Lng: i.Lng}
}

// QueryRequest describes one spatial query. Immutable once constructed.
type QueryRequest struct {
	Center      geo.Point
	RadiusKm    float64
	FilterKey   string
	FilterValue string
}

// Filter renders the key:value predicate as sent on the wire.
func (q QueryRequest) Filter() string {
	if q.FilterValue == "" {
		return q.FilterKey
	}
	return q.FilterKey + ":" + q.FilterValue
}

// QueryResult is the observed response: the returned records plus the
// wall-clock time from request dispatch to response completion.
type QueryResult struct {
	Records []Issue
	Elapsed time.Duration
}

// Trigger is the UI interaction sequence expected to cause the application
// to issue the spatial query.
type Trigger func(ctx context.Context) error

// Probe observes one spatial query and captures its result. For the
// intercepting implementation, ctx must be the session's tab context.
type Probe interface {
	Observe(ctx context.Context, req QueryRequest, trigger Trigger) (*QueryResult, error)
}

// wireIssue tolerates numeric or string IDs; the endpoint contract was
// assumed, not owned, so the decoder stays permissive.
type wireIssue struct {
	ID     interface{} `json:"id"`
	Lat    float64     `json:"lat"`
	Lng    float64     `json:"lng"`
	Status string      `json:"status"`
}

func (w wireIssue) issue() Issue {
	id := ""
	switch v := w.ID.(type) {
	case string:
		id = v
	case nil:
	default:
		id = fmt.Sprintf("%v", v)
	}
	return Issue{ID: id, Lat: w.Lat, Lng: w.Lng, Status: w.Status}
}

// decodeIssues parses a response payload. Both a bare array and an
// {"issues": [...]} envelope are accepted.
func decodeIssues(payload []byte) ([]Issue, error) {
	var raw []wireIssue
	if err := json.Unmarshal(payload, &raw); err != nil {
		var envelope struct {
			Issues []wireIssue `json:"issues"`
		}
		if envErr := json.Unmarshal(payload, &envelope); envErr != nil {
			return nil, fmt.Errorf("response is neither an issue array nor an issues envelope: %w", err)
		}
		raw = envelope.Issues
	}

	issues := make([]Issue, 0, len(raw))
	for _, w := range raw {
		issues = append(issues, w.issue())
	}
	return issues, nil
}
