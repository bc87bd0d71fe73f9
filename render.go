package nodeboard

import (
	"html"
	"strings"
)

const (
	// InactiveMessage is rendered when no data is being collected.
	InactiveMessage = "Data is not currently being collected"

	// ActiveHeading introduces the list of collection jobs.
	ActiveHeading = "<strong>Data is currently being collected for:</strong>"

	// IntervalNotSet stands in for jobs that report no interval.
	IntervalNotSet = "interval not set (wss)"

	// RenderTargetID is the id of the host page element that receives the
	// rendered fragment.
	RenderTargetID = "running-nodes"
)

// Render returns the HTML fragment describing report.
//
// An inactive (or nil) report renders as [InactiveMessage]. An active one
// renders [ActiveHeading] followed by a list with one item per from-symbol:
//
//	<li>BTC to: USD:60, EUR:interval not set (wss)</li>
//
// A from-symbol with no jobs renders as <li>BTC to</li>.
//
// Symbols and intervals are HTML-escaped, so a symbol containing &, < or "
// is written as an entity rather than as raw markup. Render is a pure
// function; the same report always produces the same bytes.
func Render(report *Report) string {
	if report == nil || !report.Active {
		return InactiveMessage
	}

	var b strings.Builder
	b.WriteString(ActiveHeading)
	b.WriteString("<ul>")
	for _, c := range report.Collections {
		b.WriteString("<li>")
		b.WriteString(html.EscapeString(c.From))
		if len(c.Nodes) == 0 {
			b.WriteString(" to</li>")
			continue
		}
		b.WriteString(" to: ")
		for i, n := range c.Nodes {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(html.EscapeString(n.To))
			b.WriteByte(':')
			b.WriteString(html.EscapeString(n.IntervalText()))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

// IntervalText returns the interval as displayed, substituting
// [IntervalNotSet] for jobs without one.
func (n Node) IntervalText() string {
	if !n.IntervalSet {
		return IntervalNotSet
	}
	return n.Interval
}
