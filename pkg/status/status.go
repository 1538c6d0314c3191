// Package status implements the operation status tracker backing
// /statusz. Every OmniFS operation runs to completion on the single
// processor goroutine before a response is ever written, so there is no
// progress percentage, ETA, or subscriber-channel machinery to carry —
// only a record of what ran, how it ended, and a short history for
// diagnostics.
package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omnifs/omnifs/pkg/health"
)

var opIDCounter uint64

// Outcome is how a tracked operation ended.
type Outcome int

const (
	InProgress Outcome = iota
	Completed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Operation is one tracked wire request.
type Operation struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Outcome   Outcome   `json:"outcome"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Tracker records in-flight and recently completed operations, and can fold
// in a health.Tracker's view to answer /statusz in one shot.
type Tracker struct {
	mu            sync.Mutex
	active        map[string]*Operation
	history       []*Operation
	maxHistory    int
	healthTracker *health.Tracker
}

// Config configures a Tracker.
type Config struct {
	MaxHistory    int
	HealthTracker *health.Tracker
}

// DefaultConfig returns the history size used by the server's default wiring.
func DefaultConfig() Config {
	return Config{MaxHistory: 200}
}

// NewTracker creates a Tracker.
func NewTracker(config Config) *Tracker {
	if config.MaxHistory <= 0 {
		config.MaxHistory = 200
	}
	return &Tracker{
		active:        make(map[string]*Operation),
		maxHistory:    config.MaxHistory,
		healthTracker: config.HealthTracker,
	}
}

// Start records a new in-progress operation and returns its ID.
func (t *Tracker) Start(opType string) string {
	id := nextOperationID()
	t.mu.Lock()
	t.active[id] = &Operation{ID: id, Type: opType, Outcome: InProgress, StartTime: time.Now()}
	t.mu.Unlock()
	return id
}

// Complete marks an operation successful and moves it to history.
func (t *Tracker) Complete(id string) {
	t.finish(id, Completed, nil)
}

// Fail marks an operation failed and moves it to history.
func (t *Tracker) Fail(id string, err error) {
	t.finish(id, Failed, err)
}

func (t *Tracker) finish(id string, outcome Outcome, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.active[id]
	if !ok {
		return
	}
	delete(t.active, id)

	op.Outcome = outcome
	op.EndTime = time.Now()
	if err != nil {
		op.Error = err.Error()
	}

	t.history = append([]*Operation{op}, t.history...)
	if len(t.history) > t.maxHistory {
		t.history = t.history[:t.maxHistory]
	}
}

// ActiveCount returns the number of currently in-progress operations.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// History returns up to limit most-recent completed/failed operations, most
// recent first. limit <= 0 returns the full retained history.
func (t *Tracker) History(limit int) []*Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > len(t.history) {
		limit = len(t.history)
	}
	result := make([]*Operation, limit)
	copy(result, t.history[:limit])
	return result
}

// SystemStatus is the payload served at /statusz.
type SystemStatus struct {
	Timestamp time.Time    `json:"timestamp"`
	ActiveOps int          `json:"active_operations"`
	Health    string       `json:"health,omitempty"`
	RecentOps []*Operation `json:"recent_operations"`
}

// Snapshot builds the current SystemStatus.
func (t *Tracker) Snapshot() SystemStatus {
	s := SystemStatus{
		Timestamp: time.Now(),
		ActiveOps: t.ActiveCount(),
		RecentOps: t.History(20),
	}
	if t.healthTracker != nil {
		s.Health = t.healthTracker.Overall().String()
	}
	return s
}

// Handler returns the HTTP handler to mount at /statusz.
func (t *Tracker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(t.Snapshot()); err != nil {
			fmt.Fprintf(w, `{"error":%q}`, err.Error())
		}
	})
}

func nextOperationID() string {
	counter := atomic.AddUint64(&opIDCounter, 1)
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), counter)
}
