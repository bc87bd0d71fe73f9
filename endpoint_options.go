package nodeboard

import (
	"errors"
	"strings"
	"time"
)

// endpointConfig holds mutable state during endpoint construction.
type endpointConfig struct {
	path    string
	headers map[string]string
	timeout time.Duration
}

// EndpointOption is a function that configures an [Endpoint] during construction.
//
// Built-in options: [WithHeaders], [WithTimeout], [WithPath].
type EndpointOption func(*endpointConfig) error

// WithHeaders adds custom HTTP headers to status requests.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	ep, err := nodeboard.NewEndpoint(baseURL,
//	    nodeboard.WithHeaders("Authorization", "Bearer token123"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) EndpointOption {
	return func(cfg *endpointConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}

// WithTimeout sets the per-request timeout.
//
// A request that has not completed within d is abandoned and the cycle is
// reported as failed; the next tick polls again. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) EndpointOption {
	return func(cfg *endpointConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithPath overrides [StatusPath]. Relative paths resolve against the base
// URL; absolute paths replace its path.
//
// Returns an error if path is empty.
func WithPath(path string) EndpointOption {
	return func(cfg *endpointConfig) error {
		path = strings.TrimSpace(path)
		if path == "" {
			return errors.New("path cannot be empty")
		}
		cfg.path = path
		return nil
	}
}
