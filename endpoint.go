package nodeboard

import (
	"errors"
	"net/url"
	"time"
)

const (
	// StatusPath is the status route, relative to the collection service's base URL.
	StatusPath = "v1/collect/status"

	defaultEndpointTimeout = 10 * time.Second
)

// Endpoint is the collection service status endpoint to poll.
//
// Endpoint is immutable after creation via [NewEndpoint]. Getters return
// copies of mutable data (maps).
type Endpoint struct {
	baseURL string
	url     string
	headers map[string]string
	timeout time.Duration
}

// BaseURL returns the collection service base URL as given.
func (e Endpoint) BaseURL() string {
	return e.baseURL
}

// URL returns the resolved status URL that is polled.
func (e Endpoint) URL() string {
	return e.url
}

// Headers returns a copy of the custom HTTP headers sent with each poll.
// Returns nil if no custom headers are set.
func (e Endpoint) Headers() map[string]string {
	return copyMap(e.headers)
}

// Timeout returns the per-request timeout.
// Defaults to 10 seconds if not explicitly set via [WithTimeout].
func (e Endpoint) Timeout() time.Duration {
	return e.timeout
}

// NewEndpoint creates an [Endpoint] for the collection service at baseURL.
//
// The status URL is [StatusPath] resolved against baseURL the way a browser
// resolves a relative link against its page: "http://host/app/" polls
// "http://host/app/v1/collect/status". A base URL without a path is treated
// as the service root. Use [WithPath] to poll a different route.
//
// Returns an error if baseURL is not an absolute http(s) URL.
//
// Example:
//
//	ep, err := nodeboard.NewEndpoint("http://localhost:8080/",
//	    nodeboard.WithTimeout(3 * time.Second),
//	)
func NewEndpoint(baseURL string, opts ...EndpointOption) (Endpoint, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return Endpoint{}, errors.New("invalid URL: " + err.Error())
	}
	if base.Scheme == "" || base.Host == "" {
		return Endpoint{}, errors.New("URL must be absolute (http:// or https://)")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return Endpoint{}, errors.New("URL scheme must be http or https, got " + base.Scheme)
	}
	if base.Path == "" {
		base.Path = "/"
	}

	cfg := &endpointConfig{
		path:    StatusPath,
		headers: make(map[string]string),
		timeout: defaultEndpointTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Endpoint{}, err
		}
	}

	ref, err := url.Parse(cfg.path)
	if err != nil {
		return Endpoint{}, errors.New("invalid path: " + err.Error())
	}

	return Endpoint{
		baseURL: baseURL,
		url:     base.ResolveReference(ref).String(),
		headers: cfg.headers,
		timeout: cfg.timeout,
	}, nil
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
