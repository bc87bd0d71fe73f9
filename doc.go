// Package nodeboard provides an embeddable live view of the jobs a data
// collection service is running.
//
// A [Watcher] polls the service's v1/collect/status endpoint, renders the
// active (from, to) currency pairs as an HTML fragment, and writes it into
// the element with id running-nodes of a host page. Rendering is a pure
// function of the response, so the same response always renders the same
// fragment.
//
// # Quick Start
//
// Create an endpoint and start watching with graceful shutdown:
//
//	ep, _ := nodeboard.NewEndpoint("http://localhost:8081/")
//	w, _ := nodeboard.New(nodeboard.WithEndpoint(ep))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	w.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// nodeboard uses the functional options pattern for configuration:
//
//	w, err := nodeboard.New(
//	    nodeboard.WithEndpoint(ep),
//	    nodeboard.WithPollingInterval(10 * time.Second),
//	    nodeboard.WithPort(9090),
//	    nodeboard.WithPrefersDark(true),
//	    nodeboard.WithThemeNotifier(notifier),
//	)
//
// Endpoints can also be configured with options:
//
//	ep, err := nodeboard.NewEndpoint("https://collector.example.com/",
//	    nodeboard.WithHeaders("Authorization", "Bearer token"),
//	    nodeboard.WithTimeout(5 * time.Second),
//	)
//
// # Cycles
//
// Every poll produces a [CycleResult]. A cycle that fails leaves the
// rendered content untouched and reports why through [CycleResult.Err]:
// [ErrUnexpectedStatus], [ErrMalformedStatus], [ErrStaleResponse] or a
// wrapped transport error. The loop never stops on a failure; the next tick
// is the retry.
//
// Polls may overlap. Each poll is numbered when it is dispatched and a
// response older than the last rendered one is dropped, so a slow response
// can never overwrite a newer one.
//
// # Theme
//
// [Watcher.ToggleTheme] flips the dark class on the page's root element and
// tells every [ThemeNotifier] about the new theme. Dashboard clients are
// told too, and call window.ccd.changeTheme when the host page defines it.
//
// # Architecture
//
// nodeboard consists of several internal packages (under internal/):
//
//   - internal/poller: HTTP fetch client and sequenced poll scheduler
//   - internal/dom: Host page manipulation
//   - internal/store: Latest snapshot with pub/sub for real-time updates
//   - internal/server: Dashboard HTTP server with SSE and WebSocket push
//   - internal/metrics: Prometheus collectors
//   - internal/collect: The collection registry service
//   - dashboard: Embedded host page
//
// The internal packages are not part of the public API and may change
// without notice.
package nodeboard
