// Package poller fetches the collection status endpoint on a fixed interval.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with per-request timeout and body size limit
//   - [Scheduler]: cancellable poll loop that tags each request with a sequence number
//   - [Ticker]: tick source, replaceable in tests
//
// Users of the nodeboard library configure polling through the root package
// and should not need this package directly.
package poller
