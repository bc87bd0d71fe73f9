package nodeboard

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/nodeboard/dashboard"
	"github.com/jpalmerr/nodeboard/internal/dom"
	"github.com/jpalmerr/nodeboard/internal/metrics"
	"github.com/jpalmerr/nodeboard/internal/poller"
	"github.com/jpalmerr/nodeboard/internal/server"
	"github.com/jpalmerr/nodeboard/internal/store"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultPort            = 8080
	defaultTitle           = "Nodeboard"

	// titleID is the host page element that shows the title, if present.
	titleID = "title"
)

// Watcher polls a collection service for the jobs it is running and keeps
// a dashboard page showing them.
//
// Watcher is created using [New] with functional options and started with
// [Watcher.Start]. The typical lifecycle is:
//
//	ep, _ := nodeboard.NewEndpoint("http://localhost:8080/")
//	w, err := nodeboard.New(nodeboard.WithEndpoint(ep))
//	if err != nil {
//	    slog.Error("failed to create watcher", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	w.Start(ctx) // blocks until context cancelled
//
// Responses are applied in dispatch order: a response that completes after
// a newer one has been rendered is discarded, so the page never goes back
// to older data.
type Watcher struct {
	title           string
	endpoint        Endpoint
	pollingInterval time.Duration
	port            int
	serve           bool
	newTicker       poller.TickerFunc
	logger          *slog.Logger
	targets         []RenderTarget
	cycleCallbacks  []func(CycleResult)

	page    *dom.Page
	theme   *themeSwitch
	store   *store.MemoryStore
	metrics *metrics.Metrics
	client  *poller.Client
	seq     *poller.Sequence

	// mu serialises applying results so that the staleness check and the
	// render it guards happen together.
	mu          sync.Mutex
	lastApplied uint64
}

// New creates a new [Watcher] with the given options.
//
// An endpoint must be configured via [WithEndpoint]. Other options have
// sensible defaults:
//   - Polling interval: 5 seconds
//   - Port: 8080
//   - Theme: light
//
// Returns an error if no endpoint is configured, if any option is invalid,
// or if the host page has no running-nodes element.
func New(opts ...Option) (*Watcher, error) {
	cfg := &wConfig{
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
		serve:           true,
		theme:           ThemeLight,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.endpoint == nil {
		return nil, errors.New("an endpoint is required")
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	title := cfg.title
	if title == "" {
		title = defaultTitle
	}

	page, err := loadPage(cfg.hostPage)
	if err != nil {
		return nil, err
	}
	if !page.Has(RenderTargetID) {
		return nil, fmt.Errorf("host page has no element with id %q", RenderTargetID)
	}
	page.SetTitle(title)
	if page.Has(titleID) {
		_ = page.SetContent(titleID, html.EscapeString(title))
	}

	w := &Watcher{
		title:           title,
		endpoint:        *cfg.endpoint,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		serve:           cfg.serve,
		logger:          logger,
		targets:         cfg.targets,
		cycleCallbacks:  cfg.cycleCallbacks,
		page:            page,
		store:           store.NewMemoryStore(cfg.theme.String()),
		metrics:         metrics.New(),
		client:          poller.NewClient(),
		seq:             &poller.Sequence{},
	}

	if cfg.newTicker != nil {
		newTicker := cfg.newTicker
		w.newTicker = func(d time.Duration) poller.Ticker { return newTicker(d) }
	}

	notifiers := []ThemeNotifier{ThemeNotifierFunc(w.themeChanged)}
	for _, n := range cfg.notifiers {
		notifiers = append(notifiers, safeNotifier{n: n, logger: logger})
	}
	w.theme = newThemeSwitch(page, cfg.theme, notifiers...)

	return w, nil
}

// loadPage parses the custom host page, or the embedded one when src is empty.
func loadPage(src string) (*dom.Page, error) {
	if src != "" {
		return dom.ParseString(src)
	}
	content, err := fs.ReadFile(dashboard.Assets, dashboard.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard page: %w", err)
	}
	return dom.ParseString(string(content))
}

// Start begins polling the status endpoint and serving the dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The status endpoint is polled immediately, then at the configured interval
//   - Each response is rendered into the page unless a newer one already was
//   - The HTTP server serves the page, live updates and metrics
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails to start.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("nodeboard starting", "url", w.endpoint.URL())
	w.logger.Info("polling configured", "interval", w.pollingInterval.String())
	if w.serve {
		w.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", w.port))
	}

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	scheduler := poller.NewScheduler(w.target(), w.pollingInterval, w.newTicker, w.seq, w.client, w.logger)
	scheduler.Start(ctx)

	// track the results consumer goroutine to ensure clean shutdown
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range scheduler.Results() {
			w.finish(w.apply(result))
		}
	}()

	// cleanup ensures the scheduler is stopped and all results are processed
	cleanup := func() {
		scheduler.Stop() // closes results channel
		wg.Wait()
	}

	if w.serve {
		httpServer := server.NewServer(w.store, w.page, w.toggleThemeName, w.metrics.Handler(), w.port, w.logger)
		if err := httpServer.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	<-ctx.Done()
	cleanup()
	w.logger.Info("nodeboard stopped")
	return nil
}

// FetchAndRender runs one fetch-and-render cycle outside the poll loop.
//
// The cycle draws its sequence number from the same counter as scheduled
// polls, so it is ordered against them like any other cycle. Registered
// cycle callbacks are invoked before it returns.
func (w *Watcher) FetchAndRender(ctx context.Context) CycleResult {
	seq := w.seq.Next()
	resp := w.client.Fetch(ctx, w.target())
	cr := w.apply(poller.Result{Response: resp, Seq: seq, CheckedAt: time.Now()})
	w.finish(cr)
	return cr
}

// ToggleTheme flips the dashboard between light and dark and returns the
// new theme. Every [ThemeNotifier] is told about the change.
func (w *Watcher) ToggleTheme() Theme {
	return w.theme.toggle()
}

func (w *Watcher) toggleThemeName() string {
	return w.ToggleTheme().String()
}

// Theme returns the current dashboard theme.
func (w *Watcher) Theme() Theme {
	return w.theme.current()
}

// Content returns the current HTML of the running-nodes element.
func (w *Watcher) Content() string {
	content, err := w.page.Content(RenderTargetID)
	if err != nil {
		// New refuses pages without the element
		return ""
	}
	return content
}

// Page returns the whole host page as it currently stands.
func (w *Watcher) Page() (string, error) {
	return w.page.HTML()
}

// Handler returns the dashboard's HTTP routes without starting a listener,
// for mounting into an existing server.
func (w *Watcher) Handler() http.Handler {
	return server.NewServer(w.store, w.page, w.toggleThemeName, w.metrics.Handler(), w.port, w.logger).Handler()
}

// Endpoint returns the polled endpoint.
func (w *Watcher) Endpoint() Endpoint {
	return w.endpoint
}

// Port returns the configured HTTP port for the dashboard server.
func (w *Watcher) Port() int {
	return w.port
}

// PollingInterval returns the configured interval between polls.
func (w *Watcher) PollingInterval() time.Duration {
	return w.pollingInterval
}

// Title returns the dashboard title.
func (w *Watcher) Title() string {
	return w.title
}

func (w *Watcher) target() poller.Target {
	return poller.Target{
		URL:     w.endpoint.URL(),
		Method:  http.MethodGet,
		Headers: w.endpoint.Headers(),
		Timeout: w.endpoint.Timeout(),
	}
}

// apply turns a poll result into a cycle outcome, rendering it if it is a
// well-formed 200 response newer than anything rendered so far. Failed and
// stale cycles leave every render target untouched.
func (w *Watcher) apply(res poller.Result) CycleResult {
	cr := CycleResult{
		Seq:        res.Seq,
		StatusCode: res.StatusCode,
		Latency:    res.Latency,
		CheckedAt:  res.CheckedAt,
	}

	switch {
	case res.Error != nil:
		cr.Err = fmt.Errorf("failed to fetch status: %w", res.Error)
		w.metrics.ObservePoll(metrics.OutcomeTransportError, res.Latency)
		return cr
	case res.StatusCode != http.StatusOK:
		cr.Err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.StatusCode)
		w.metrics.ObservePoll(metrics.OutcomeHTTPError, res.Latency)
		return cr
	}

	report, err := DecodeStatus(res.Body)
	if err != nil {
		cr.Err = err
		w.metrics.ObservePoll(metrics.OutcomeMalformed, res.Latency)
		return cr
	}
	cr.Report = report
	cr.Fragment = Render(report)

	w.mu.Lock()
	defer w.mu.Unlock()

	if cr.Seq <= w.lastApplied {
		cr.Err = fmt.Errorf("%w: seq %d, already rendered %d", ErrStaleResponse, cr.Seq, w.lastApplied)
		w.metrics.ObservePoll(metrics.OutcomeStale, res.Latency)
		return cr
	}

	if err := w.page.SetContent(RenderTargetID, cr.Fragment); err != nil {
		// unreachable for pages accepted by New
		cr.Err = err
		return cr
	}
	w.lastApplied = cr.Seq
	cr.Applied = true

	for _, t := range w.targets {
		if err := w.renderSafe(t, cr.Fragment); err != nil {
			w.logger.Warn("render target failed", "seq", cr.Seq, "error", err)
		}
	}

	w.store.Render(cr.Seq, report.Active, report.NodeCount(), cr.Fragment, cr.CheckedAt)
	w.metrics.ObservePoll(metrics.OutcomeApplied, res.Latency)
	w.metrics.Applied(cr.Seq, report.NodeCount())
	return cr
}

// finish logs a cycle and hands it to the registered callbacks.
func (w *Watcher) finish(cr CycleResult) {
	logAttrs := []any{
		"seq", cr.Seq,
		"status_code", cr.StatusCode,
		"latency_ms", cr.Latency.Milliseconds(),
	}
	switch {
	case cr.Applied:
		// DEBUG for success to reduce noise
		w.logger.Debug("status rendered", append(logAttrs,
			"active", cr.Report.Active,
			"nodes", cr.Report.NodeCount(),
		)...)
	case errors.Is(cr.Err, ErrStaleResponse):
		w.logger.Debug("stale status discarded", logAttrs...)
	default:
		w.logger.Warn("status poll failed", append(logAttrs, "error", cr.Err.Error())...)
	}

	for _, cb := range w.cycleCallbacks {
		invokeCallbackSafe(cb, cr, w.logger)
	}
}

// themeChanged mirrors a toggle into the live snapshot and metrics.
func (w *Watcher) themeChanged(theme Theme) {
	w.store.SetTheme(theme.String())
	w.metrics.ThemeToggled(theme.String())
	w.logger.Info("theme changed", "theme", theme.String())
}

// safeNotifier shields the theme switch from a panicking notifier.
type safeNotifier struct {
	n      ThemeNotifier
	logger *slog.Logger
}

func (s safeNotifier) ChangeTheme(theme Theme) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("theme notifier panicked", "panic", r, "theme", theme.String())
		}
	}()
	s.n.ChangeTheme(theme)
}

// renderSafe calls a render target with panic recovery.
// If the target panics, it logs the full stack trace with a correlation ID
// and returns an error containing the ID.
func (w *Watcher) renderSafe(t RenderTarget, fragment string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			w.logger.Error("render target panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("render target panic (correlation_id: %s)", correlationID)
		}
	}()
	return t.Render(fragment)
}

// invokeCallbackSafe calls a cycle callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(CycleResult), result CycleResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle callback panicked",
				"panic", r,
				"seq", result.Seq,
			)
		}
	}()
	cb(result)
}
