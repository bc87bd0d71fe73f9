// Package dashboard provides the embedded host page for nodeboard.
//
// The page is parsed once by the watcher, which then renders status
// fragments into its running-nodes element and toggles the dark class on
// its root element. Users of the nodeboard library should not need to
// interact with this package directly.
package dashboard

import "embed"

// IndexPath is the location of the host page inside [Assets].
const IndexPath = "assets/index.html"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Host page with inline CSS and JavaScript
//
//go:embed assets/*
var Assets embed.FS
