package nodeboard

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// wConfig holds mutable state during Watcher construction.
type wConfig struct {
	title           string
	endpoint        *Endpoint
	pollingInterval time.Duration
	port            int
	serve           bool
	logger          *slog.Logger
	theme           Theme
	hostPage        string
	targets         []RenderTarget
	notifiers       []ThemeNotifier
	cycleCallbacks  []func(CycleResult)
	newTicker       TickerFunc
}

// Option is a function that configures a [Watcher] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithEndpoint], [WithPollingInterval], [WithPort],
// [WithoutDashboard], [WithLogger], [WithTitle], [WithTheme],
// [WithPrefersDark], [WithHostPage], [WithRenderTarget],
// [WithThemeNotifier], [WithCycleCallback], [WithTicker].
type Option func(*wConfig) error

// Ticker delivers poll ticks. The default is backed by [time.Ticker];
// tests supply their own to drive cycles by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a [Ticker] firing every d.
type TickerFunc func(d time.Duration) Ticker

// WithEndpoint sets the status [Endpoint] to poll. It is required.
//
// Example:
//
//	ep, _ := nodeboard.NewEndpoint("http://localhost:8080/")
//	w, err := nodeboard.New(nodeboard.WithEndpoint(ep))
func WithEndpoint(e Endpoint) Option {
	return func(cfg *wConfig) error {
		if e.url == "" {
			return errors.New("endpoint must be created with NewEndpoint")
		}
		cfg.endpoint = &e
		return nil
	}
}

// WithPollingInterval sets how often the status endpoint is polled.
//
// Defaults to 5 seconds if not specified. The first poll always happens
// immediately on [Watcher.Start].
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *wConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://localhost:<port>.
// Defaults to 8080 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *wConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithoutDashboard disables the HTTP server. Rendered fragments still reach
// the page held by the watcher and every [RenderTarget].
func WithoutDashboard() Option {
	return func(cfg *wConfig) error {
		cfg.serve = false
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Watcher instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *wConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
//
// If not specified, defaults to "Nodeboard".
func WithTitle(title string) Option {
	return func(cfg *wConfig) error {
		cfg.title = strings.TrimSpace(title)
		return nil
	}
}

// WithTheme sets the theme the page starts in. Defaults to [ThemeLight].
func WithTheme(theme Theme) Option {
	return func(cfg *wConfig) error {
		if theme != ThemeLight && theme != ThemeDark {
			return errors.New("theme must be light or dark")
		}
		cfg.theme = theme
		return nil
	}
}

// WithPrefersDark starts the page in [ThemeDark] when the viewer's color
// scheme preference is dark.
func WithPrefersDark(prefersDark bool) Option {
	return func(cfg *wConfig) error {
		cfg.theme = themeOf(prefersDark)
		return nil
	}
}

// WithHostPage replaces the built-in dashboard page. The page must contain
// an element with id "running-nodes".
func WithHostPage(html string) Option {
	return func(cfg *wConfig) error {
		if strings.TrimSpace(html) == "" {
			return errors.New("host page cannot be empty")
		}
		cfg.hostPage = html
		return nil
	}
}

// WithRenderTarget adds a [RenderTarget] that receives every rendered
// fragment after the dashboard page.
//
// Errors and panics from a target are logged; they never stop the cycle.
// Nil targets are silently ignored.
func WithRenderTarget(t RenderTarget) Option {
	return func(cfg *wConfig) error {
		if t != nil {
			cfg.targets = append(cfg.targets, t)
		}
		return nil
	}
}

// WithThemeNotifier registers a [ThemeNotifier] called with the new theme
// after every toggle. Without one, toggling only restyles the page.
//
// Nil notifiers are silently ignored.
//
// Example:
//
//	w, err := nodeboard.New(
//	    nodeboard.WithEndpoint(ep),
//	    nodeboard.WithThemeNotifier(nodeboard.ThemeNotifierFunc(func(t nodeboard.Theme) {
//	        widget.Restyle(t.String())
//	    })),
//	)
func WithThemeNotifier(n ThemeNotifier) Option {
	return func(cfg *wConfig) error {
		if n != nil {
			cfg.notifiers = append(cfg.notifiers, n)
		}
		return nil
	}
}

// WithCycleCallback registers a function to be called after every poll cycle.
//
// The callback receives a [CycleResult] describing the outcome, including
// stale and failed cycles that left the page unchanged.
//
// Multiple callbacks may be registered by calling WithCycleCallback multiple
// times; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Long-running operations should
// dispatch work to a separate goroutine. Blocking callbacks will delay
// subsequent poll result processing.
//
// Panics within callbacks are recovered and logged; they do not crash the
// watcher.
//
// Nil callbacks are silently ignored.
func WithCycleCallback(cb func(CycleResult)) Option {
	return func(cfg *wConfig) error {
		if cb == nil {
			return nil
		}
		cfg.cycleCallbacks = append(cfg.cycleCallbacks, cb)
		return nil
	}
}

// WithTicker replaces the clock driving the poll loop.
//
// Returns an error if f is nil.
func WithTicker(f TickerFunc) Option {
	return func(cfg *wConfig) error {
		if f == nil {
			return errors.New("ticker func cannot be nil")
		}
		cfg.newTicker = f
		return nil
	}
}
