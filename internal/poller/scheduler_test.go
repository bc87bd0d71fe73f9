package poller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// manualTicker is a Ticker whose ticks are fired by the test.
type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

// tick blocks until the scheduler loop has received the tick.
func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not receive tick")
	}
}

func (m *manualTicker) factory() TickerFunc {
	return func(time.Duration) Ticker { return m }
}

func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func receive(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r, ok := <-ch:
		if !ok {
			t.Fatal("results channel closed unexpectedly")
		}
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for poll result")
	}
	return Result{}
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started does not panic and closes the results channel.
func TestScheduler_StopBeforeStart(t *testing.T) {
	scheduler := NewScheduler(Target{URL: "http://127.0.0.1:1"}, time.Minute, nil, nil, nil, testLogger())

	scheduler.Stop()

	if _, ok := <-scheduler.Results(); ok {
		t.Error("expected results channel to be closed")
	}
}

// TestScheduler_StopTwice verifies that Stop() is idempotent.
func TestScheduler_StopTwice(t *testing.T) {
	ts := okServer(t)
	scheduler := NewScheduler(Target{URL: ts.URL, Timeout: time.Second}, time.Minute, nil, nil, nil, testLogger())
	scheduler.Start(context.Background())

	go func() {
		for range scheduler.Results() {
		}
	}()

	scheduler.Stop()
	scheduler.Stop()
}

// TestScheduler_PollsImmediately verifies that the first poll happens on
// Start without waiting for a tick.
func TestScheduler_PollsImmediately(t *testing.T) {
	ts := okServer(t)
	ticker := newManualTicker()

	scheduler := NewScheduler(Target{URL: ts.URL, Timeout: time.Second}, time.Hour, ticker.factory(), nil, nil, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	result := receive(t, scheduler.Results())
	if result.Seq != 1 {
		t.Errorf("Seq = %d, want 1", result.Seq)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if string(result.Body) != `{"data":null}` {
		t.Errorf("Body = %q", result.Body)
	}
}

// TestScheduler_TicksDispatchPolls verifies each tick dispatches one poll
// with the next sequence number.
func TestScheduler_TicksDispatchPolls(t *testing.T) {
	ts := okServer(t)
	ticker := newManualTicker()

	scheduler := NewScheduler(Target{URL: ts.URL, Timeout: time.Second}, time.Hour, ticker.factory(), nil, nil, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	seen := map[uint64]bool{receive(t, scheduler.Results()).Seq: true}

	ticker.tick(t)
	seen[receive(t, scheduler.Results()).Seq] = true
	ticker.tick(t)
	seen[receive(t, scheduler.Results()).Seq] = true

	for _, want := range []uint64{1, 2, 3} {
		if !seen[want] {
			t.Errorf("missing result with Seq %d, got %v", want, seen)
		}
	}
}

// TestScheduler_OverlappingPollsCompleteOutOfOrder verifies that a slow poll
// does not block later polls and that sequence numbers reflect dispatch order.
func TestScheduler_OverlappingPollsCompleteOutOfOrder(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	var calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// first request hangs until released
		if calls.Add(1) == 1 {
			close(arrived)
			<-release
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	ticker := newManualTicker()
	scheduler := NewScheduler(Target{URL: ts.URL, Timeout: 5 * time.Second}, time.Hour, ticker.factory(), nil, nil, testLogger())
	scheduler.Start(context.Background())

	<-arrived
	ticker.tick(t)

	first := receive(t, scheduler.Results())
	if first.Seq != 2 {
		t.Errorf("first completed Seq = %d, want 2", first.Seq)
	}

	close(release)

	second := receive(t, scheduler.Results())
	if second.Seq != 1 {
		t.Errorf("second completed Seq = %d, want 1", second.Seq)
	}

	scheduler.Stop()
}

// TestScheduler_SequenceSharedWithCaller verifies numbers drawn outside the
// scheduler and scheduled polls come from the same sequence.
func TestScheduler_SequenceSharedWithCaller(t *testing.T) {
	ts := okServer(t)
	seq := &Sequence{}

	if manual := seq.Next(); manual != 1 {
		t.Errorf("manual Seq = %d, want 1", manual)
	}

	scheduler := NewScheduler(Target{URL: ts.URL, Timeout: time.Second}, time.Hour, newManualTicker().factory(), seq, nil, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	scheduled := receive(t, scheduler.Results())
	if scheduled.Seq != 2 {
		t.Errorf("scheduled Seq = %d, want 2", scheduled.Seq)
	}
}

// TestScheduler_UsesGivenClient verifies a supplied client is used, and
// stays usable once the scheduler stops.
func TestScheduler_UsesGivenClient(t *testing.T) {
	ts := okServer(t)
	client := NewClient()
	target := Target{URL: ts.URL, Timeout: time.Second}

	scheduler := NewScheduler(target, time.Hour, newManualTicker().factory(), nil, client, testLogger())
	if scheduler.client != client {
		t.Fatal("scheduler did not keep the given client")
	}
	scheduler.Start(context.Background())
	receive(t, scheduler.Results())
	scheduler.Stop()

	resp := client.Fetch(context.Background(), target)
	if resp.Error != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("Fetch() after Stop = %d, %v", resp.StatusCode, resp.Error)
	}
}

// TestScheduler_StopStopsTicker verifies the ticker is released on shutdown.
func TestScheduler_StopStopsTicker(t *testing.T) {
	ts := okServer(t)
	ticker := newManualTicker()

	scheduler := NewScheduler(Target{URL: ts.URL, Timeout: time.Second}, time.Hour, ticker.factory(), nil, nil, testLogger())
	scheduler.Start(context.Background())
	receive(t, scheduler.Results())

	scheduler.Stop()

	if !ticker.stopped.Load() {
		t.Error("expected ticker to be stopped")
	}
	if _, ok := <-scheduler.Results(); ok {
		t.Error("expected results channel to be closed after Stop()")
	}
}

// TestScheduler_ContextCancelClosesResults verifies that cancelling the
// parent context ends the loop and closes the results channel.
func TestScheduler_ContextCancelClosesResults(t *testing.T) {
	ts := okServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	scheduler := NewScheduler(Target{URL: ts.URL, Timeout: time.Second}, time.Hour, newManualTicker().factory(), nil, nil, testLogger())
	scheduler.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		for range scheduler.Results() {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("results channel not closed after context cancellation")
	}
	scheduler.Stop()
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not cause a race condition or panic.
// Run with: go test -race ./internal/poller/...
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	ts := okServer(t)

	for i := 0; i < 50; i++ {
		scheduler := NewScheduler(Target{URL: ts.URL, Timeout: time.Second}, time.Minute, nil, nil, nil, testLogger())

		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			scheduler.Start(context.Background())
		}()

		go func() {
			defer wg.Done()
			scheduler.Stop()
		}()

		wg.Wait()
		scheduler.Stop()

		for range scheduler.Results() {
		}
	}
}

// TestScheduler_TransportErrorIsReported verifies that a failed request
// still produces a result carrying the error.
func TestScheduler_TransportErrorIsReported(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	scheduler := NewScheduler(Target{URL: url, Timeout: time.Second}, time.Hour, newManualTicker().factory(), nil, nil, testLogger())
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	result := receive(t, scheduler.Results())
	if result.Error == nil {
		t.Fatal("expected error for closed server")
	}
	if result.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", result.StatusCode)
	}
}

// TestScheduler_SharedSequence verifies that two schedulers sharing a
// Sequence never hand out the same number.
func TestScheduler_SharedSequence(t *testing.T) {
	ts := okServer(t)
	seq := &Sequence{}
	target := Target{URL: ts.URL, Timeout: time.Second}

	a := NewScheduler(target, time.Hour, newManualTicker().factory(), seq, nil, testLogger())
	b := NewScheduler(target, time.Hour, newManualTicker().factory(), seq, nil, testLogger())
	a.Start(context.Background())
	defer a.Stop()
	receive(t, a.Results())
	b.Start(context.Background())
	defer b.Stop()

	if got := receive(t, b.Results()).Seq; got != 2 {
		t.Errorf("second scheduler Seq = %d, want 2", got)
	}
	if next := seq.Next(); next != 3 {
		t.Errorf("seq.Next() = %d, want 3", next)
	}
}
