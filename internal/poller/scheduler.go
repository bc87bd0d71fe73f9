package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// resultsBuffer bounds how many completed polls may wait for the consumer.
const resultsBuffer = 16

// Ticker delivers poll ticks. It covers the part of [time.Ticker] the
// scheduler uses so tests can drive cycles by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a [Ticker] firing every d.
type TickerFunc func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker returns a [Ticker] backed by [time.NewTicker].
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Sequence hands out poll sequence numbers. It may be shared between a
// [Scheduler] and polls made outside it so that all of them are ordered.
type Sequence struct {
	n atomic.Uint64
}

// Next returns the next sequence number, starting at 1.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// Result is a completed poll tagged with its dispatch sequence number.
type Result struct {
	Response

	// Seq increases monotonically in dispatch order, starting at 1.
	Seq uint64

	// CheckedAt is when the response (or failure) was received.
	CheckedAt time.Time
}

// Scheduler polls a single status [Target] on a fixed interval.
//
// A poll is dispatched immediately on start and then on every tick. Each
// poll runs in its own goroutine, so a slow response does not delay the
// next tick and responses may complete out of order. Every dispatch takes
// the next sequence number; consumers use it to discard responses older
// than one they have already applied.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	target    Target
	interval  time.Duration
	client    *Client
	newTicker TickerFunc
	results   chan Result
	logger    *slog.Logger
	seq       *Sequence

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup // poll loop
	inflight sync.WaitGroup // dispatched polls

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

// NewScheduler creates a [Scheduler] for target.
//
// If newTicker is nil, [NewTimeTicker] is used. If seq is nil, the
// scheduler numbers its polls on its own. If client is nil, the scheduler
// uses a client of its own. Stop releases the client's idle connections;
// the client stays usable afterwards. The scheduler must be started with
// [Scheduler.Start] and stopped with [Scheduler.Stop].
func NewScheduler(target Target, interval time.Duration, newTicker TickerFunc, seq *Sequence, client *Client, logger *slog.Logger) *Scheduler {
	if newTicker == nil {
		newTicker = NewTimeTicker
	}
	if seq == nil {
		seq = &Sequence{}
	}
	if client == nil {
		client = NewClient()
	}
	return &Scheduler{
		target:    target,
		interval:  interval,
		client:    client,
		newTicker: newTicker,
		results:   make(chan Result, resultsBuffer),
		seq:       seq,
		logger:    logger,
	}
}

// Results returns a receive-only channel that emits [Result] values.
//
// The channel is closed once the poll loop has exited and every dispatched
// poll has either delivered its result or been abandoned on cancellation.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Start begins the polling loop in a background goroutine.
//
// If ctx is nil, context.Background() is used as the parent context.
// Start is idempotent; subsequent calls after the first are no-ops.
// If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	pollCtx := s.ctx // capture under lock to avoid race
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.closeOnce.Do(func() { close(s.results) })
		defer s.inflight.Wait()

		s.dispatch(pollCtx)

		ticker := s.newTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C():
				s.dispatch(pollCtx)
			}
		}
	}()
}

// Stop cancels the loop and blocks until it and all in-flight polls have
// finished. Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	if s.client != nil {
		s.client.Close()
	}

	// ensure channel is closed even if Start() was never called
	s.closeOnce.Do(func() { close(s.results) })
}

// dispatch starts one poll without waiting for it.
func (s *Scheduler) dispatch(ctx context.Context) {
	seq := s.seq.Next()
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		result := s.poll(ctx, seq)
		select {
		case s.results <- result:
		case <-ctx.Done():
			s.logger.Debug("status poll abandoned", "seq", seq)
		}
	}()
}

func (s *Scheduler) poll(ctx context.Context, seq uint64) Result {
	resp := s.client.Fetch(ctx, s.target)
	return Result{
		Response:  resp,
		Seq:       seq,
		CheckedAt: time.Now(),
	}
}
