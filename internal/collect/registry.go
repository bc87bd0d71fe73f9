package collect

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// DefaultInterval is the pull interval in seconds used when a task is
// added or updated without a positive interval.
const DefaultInterval int64 = 60

var (
	// ErrAlreadySubscribed is returned when subscribing to a pair twice.
	ErrAlreadySubscribed = errors.New("already subscribed to this pair")
	// ErrNotSubscribed is returned when unsubscribing from an unknown pair.
	ErrNotSubscribed = errors.New("not subscribed to this pair")
)

// Task is a REST pull job for a currency pair.
type Task struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Interval int64  `json:"interval"`
}

// Subscription is a streaming job for a currency pair. Streaming jobs
// have no interval.
type Subscription struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Registry keeps the running pull tasks and streaming subscriptions.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	tasks   map[string]Task
	subs    map[string]Subscription
	symbols *Symbols
}

// NewRegistry returns an empty registry that accepts [DefaultSymbols].
func NewRegistry() *Registry {
	symbols, err := NewSymbols(DefaultSymbols())
	if err != nil {
		panic(err)
	}
	return NewRegistryWithSymbols(symbols)
}

// NewRegistryWithSymbols returns an empty registry whose requests are
// checked against symbols.
func NewRegistryWithSymbols(symbols *Symbols) *Registry {
	return &Registry{
		tasks:   make(map[string]Task),
		subs:    make(map[string]Subscription),
		symbols: symbols,
	}
}

// Symbols returns the currencies requests may name.
func (r *Registry) Symbols() *Symbols {
	return r.symbols
}

// Task returns the pull task for the pair, if one is running.
func (r *Registry) Task(from, to string) (Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[pairKey(from, to)]
	return t, ok
}

// AddTask starts a pull task for the pair. When a task already exists it
// is returned unchanged and created is false.
func (r *Registry) AddTask(from, to string, interval int64) (task Task, created bool) {
	from, to = normalize(from), normalize(to)
	key := pairKey(from, to)

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[key]; ok {
		return t, false
	}
	t := Task{From: from, To: to, Interval: intervalOrDefault(interval)}
	r.tasks[key] = t
	return t, true
}

// UpdateTask changes the interval of a running task. It reports false when
// no task exists for the pair.
func (r *Registry) UpdateTask(from, to string, interval int64) (Task, bool) {
	key := pairKey(from, to)

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[key]
	if !ok {
		return Task{}, false
	}
	t.Interval = intervalOrDefault(interval)
	r.tasks[key] = t
	return t, true
}

// RemoveTask stops the pull task for the pair. It reports false when no
// task was running.
func (r *Registry) RemoveTask(from, to string) bool {
	key := pairKey(from, to)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[key]; !ok {
		return false
	}
	delete(r.tasks, key)
	return true
}

// ListTasks returns the running tasks ordered by pair.
func (r *Registry) ListTasks() []Task {
	r.mu.RLock()
	tasks := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].From != tasks[j].From {
			return tasks[i].From < tasks[j].From
		}
		return tasks[i].To < tasks[j].To
	})
	return tasks
}

// Subscribe starts a streaming job for the pair.
func (r *Registry) Subscribe(from, to string) (Subscription, error) {
	from, to = normalize(from), normalize(to)
	key := pairKey(from, to)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[key]; ok {
		return Subscription{}, ErrAlreadySubscribed
	}
	s := Subscription{From: from, To: to}
	r.subs[key] = s
	return s, nil
}

// Unsubscribe stops the streaming job for the pair.
func (r *Registry) Unsubscribe(from, to string) error {
	key := pairKey(from, to)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[key]; !ok {
		return ErrNotSubscribed
	}
	delete(r.subs, key)
	return nil
}

// ListSubscriptions returns the streaming jobs ordered by pair.
func (r *Registry) ListSubscriptions() []Subscription {
	r.mu.RLock()
	subs := make([]Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool {
		if subs[i].From != subs[j].From {
			return subs[i].From < subs[j].From
		}
		return subs[i].To < subs[j].To
	})
	return subs
}

// Status merges tasks and subscriptions into a from -> to -> job mapping.
// A subscription replaces a task for the same pair. Status returns nil
// when nothing is collected.
func (r *Registry) Status() map[string]map[string]any {
	tasks := r.ListTasks()
	subs := r.ListSubscriptions()
	if len(tasks) == 0 && len(subs) == 0 {
		return nil
	}

	status := make(map[string]map[string]any)
	put := func(from, to string, job any) {
		if status[from] == nil {
			status[from] = make(map[string]any)
		}
		status[from][to] = job
	}
	for _, t := range tasks {
		put(t.From, t.To, t)
	}
	for _, s := range subs {
		put(s.From, s.To, s)
	}
	return status
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func pairKey(from, to string) string {
	return normalize(from) + ":" + normalize(to)
}

func intervalOrDefault(interval int64) int64 {
	if interval <= 0 {
		return DefaultInterval
	}
	return interval
}
