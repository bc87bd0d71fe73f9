package nodeboard

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// DecodeStatus parses a `v1/collect/status` response body into a [Report].
//
// The body must be a JSON object. A null data field yields an inactive
// report; a missing one yields an active report with no collections. Otherwise data must map from-symbols to
// objects, which in turn map to-symbols to job objects. Key order is kept
// as it appears in the body, which a decode into Go maps would lose.
//
// An interval field holding a JSON string is taken verbatim; any other
// JSON value keeps its raw text. Jobs without an interval field are
// reported with IntervalSet false.
//
// Returns an error wrapping [ErrMalformedStatus] if the body does not have
// this shape.
func DecodeStatus(body []byte) (*Report, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedStatus)
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrMalformedStatus, root.Type)
	}

	data := root.Get("data")
	if !data.Exists() {
		return &Report{Active: true}, nil
	}
	if data.Type == gjson.Null {
		return &Report{}, nil
	}
	if !data.IsObject() {
		return nil, fmt.Errorf("%w: data must be an object or null", ErrMalformedStatus)
	}

	report := &Report{Active: true}
	var err error

	data.ForEach(func(from, nodes gjson.Result) bool {
		if !nodes.IsObject() {
			err = fmt.Errorf("%w: data[%q] must be an object", ErrMalformedStatus, from.String())
			return false
		}

		collection := Collection{From: from.String()}
		nodes.ForEach(func(to, info gjson.Result) bool {
			if !info.IsObject() {
				err = fmt.Errorf("%w: data[%q][%q] must be an object", ErrMalformedStatus, from.String(), to.String())
				return false
			}
			collection.Nodes = append(collection.Nodes, decodeNode(to.String(), info))
			return true
		})
		if err != nil {
			return false
		}

		report.Collections = append(report.Collections, collection)
		return true
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

func decodeNode(to string, info gjson.Result) Node {
	interval := info.Get("interval")
	if !interval.Exists() {
		return Node{To: to}
	}
	if interval.Type == gjson.String {
		return Node{To: to, Interval: interval.Str, IntervalSet: true}
	}
	return Node{To: to, Interval: interval.Raw, IntervalSet: true}
}
