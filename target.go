package nodeboard

// RenderTarget receives every rendered status fragment.
//
// The watcher always renders into its built-in dashboard page; targets
// added with [WithRenderTarget] receive the same fragment afterwards. A
// target's content should be fully replaced on each call.
type RenderTarget interface {
	Render(fragment string) error
}

// RenderTargetFunc adapts a function to [RenderTarget].
type RenderTargetFunc func(fragment string) error

// Render calls f(fragment).
func (f RenderTargetFunc) Render(fragment string) error {
	return f(fragment)
}
