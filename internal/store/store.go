package store

import "time"

// Snapshot is what the dashboard currently shows.
//
// Snapshot is the storage representation of the watcher's state, shaped for
// JSON (used by the REST API, SSE and WebSocket streams). It is decoupled
// from the root package types to allow independent evolution.
type Snapshot struct {
	// Seq is the sequence number of the poll that produced Fragment.
	// Zero means nothing has been rendered yet.
	Seq uint64 `json:"seq"`

	// Active reports whether any data is being collected.
	Active bool `json:"active"`

	// Nodes is the number of (from, to) collection jobs rendered.
	Nodes int `json:"nodes"`

	// Fragment is the HTML placed into the running-nodes element.
	Fragment string `json:"fragment"`

	// Theme is the current dashboard theme, "light" or "dark".
	Theme string `json:"theme"`

	// CheckedAt is when the rendered response was received.
	CheckedAt time.Time `json:"checked_at"`
}

// Store defines the interface for storing and subscribing to snapshots.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Render replaces the rendered part of the snapshot and notifies subscribers.
	// The theme is left untouched.
	Render(seq uint64, active bool, nodes int, fragment string, checkedAt time.Time)

	// SetTheme records a theme change and notifies subscribers.
	SetTheme(theme string)

	// Get returns the current snapshot.
	Get() Snapshot

	// Subscribe returns a channel that receives every new snapshot.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
