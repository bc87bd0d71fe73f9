package nodeboard

import (
	"errors"
	"time"
)

// Sentinel errors carried by [CycleResult.Err]. Use [errors.Is] to classify.
var (
	// ErrUnexpectedStatus means the endpoint answered with a code other than 200.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrMalformedStatus means the body was not a status document.
	ErrMalformedStatus = errors.New("malformed status response")

	// ErrStaleResponse means a newer response had already been rendered.
	ErrStaleResponse = errors.New("stale status response")
)

// Report is a decoded status response.
//
// Collections preserve the order in which from-symbols appeared in the
// response, and each collection's nodes preserve the order of their
// to-symbols.
type Report struct {
	// Active is false when the response's data field was null.
	Active bool

	// Collections lists one entry per from-symbol.
	Collections []Collection
}

// NodeCount returns the total number of (from, to) jobs in the report.
func (r *Report) NodeCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, c := range r.Collections {
		n += len(c.Nodes)
	}
	return n
}

// Collection groups the jobs sharing a from-symbol.
type Collection struct {
	From  string
	Nodes []Node
}

// Node is a single collection job.
type Node struct {
	// To is the destination symbol.
	To string

	// Interval is the polling interval as received. Numeric intervals keep
	// their JSON text, so a pull task every 60 seconds reads "60".
	Interval string

	// IntervalSet is false when the job carried no interval at all, which
	// is how streaming (websocket) subscriptions are reported.
	IntervalSet bool
}

// CycleResult is the outcome of one fetch-and-render cycle.
//
// Exactly one of two things is true: Applied is set and Fragment holds what
// was rendered, or Err explains why the render targets were left untouched.
type CycleResult struct {
	// Seq is the poll's dispatch sequence number.
	Seq uint64

	// StatusCode is the HTTP status code, zero on transport failure.
	StatusCode int

	// Latency is the time taken by the HTTP request.
	Latency time.Duration

	// CheckedAt is when the response was received.
	CheckedAt time.Time

	// Report is the decoded response, nil when decoding did not happen or failed.
	Report *Report

	// Fragment is the HTML produced from Report. It is set even for stale
	// responses, which are decoded but not rendered.
	Fragment string

	// Applied reports whether Fragment was written to the render targets.
	Applied bool

	// Err is nil for applied cycles.
	Err error
}
