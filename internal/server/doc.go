// Package server provides the HTTP server for the nodeboard dashboard and API.
//
// This package is internal to nodeboard and handles all HTTP concerns:
//
//   - Dashboard serving: the host page with the latest status rendered in place
//   - REST API: the current snapshot at "/api/status" and theme toggling at "/api/theme"
//   - Live updates: Server-Sent Events at "/api/sse" and a WebSocket at "/ws"
//   - Operations: Prometheus metrics at "/metrics" and a probe at "/healthz"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the nodeboard library should not need to interact with this
// package directly. The server is started by [nodeboard.Watcher.Start].
package server
