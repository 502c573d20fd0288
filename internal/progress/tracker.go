// Package progress tracks the state of the current crawl run so it can be
// reported over HTTP and in the final run summary.
package progress

import (
	"sync"
	"time"

	"github.com/JakeFAU/manager-records-crawler/internal/crawler"
)

// State is the lifecycle stage of a run.
type State string

// Run states.
const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Snapshot is a point-in-time copy of run progress.
type Snapshot struct {
	RunID          string              `json:"run_id"`
	Command        string              `json:"command"`
	Seasons        crawler.SeasonRange `json:"seasons"`
	State          State               `json:"state"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
	ManagersTotal  int                 `json:"managers_total"`
	ManagersDone   int                 `json:"managers_done"`
	CurrentManager string              `json:"current_manager,omitempty"`
	Rows           int                 `json:"rows"`
	Failures       int                 `json:"failures"`
	Error          string              `json:"error,omitempty"`
}

// Tracker records run progress. It implements crawler.Observer and is safe
// for concurrent readers.
type Tracker struct {
	mu    sync.RWMutex
	clock crawler.Clock
	snap  Snapshot
}

// NewTracker returns an idle Tracker.
func NewTracker(clock crawler.Clock) *Tracker {
	return &Tracker{clock: clock, snap: Snapshot{State: StateIdle}}
}

// Start resets the tracker for a new run.
func (t *Tracker) Start(runID, command string, seasons crawler.SeasonRange) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap = Snapshot{
		RunID:     runID,
		Command:   command,
		Seasons:   seasons,
		State:     StateRunning,
		StartedAt: t.clock.Now(),
	}
}

// ManagersListed implements crawler.Observer.
func (t *Tracker) ManagersListed(total int) {
	t.mu.Lock()
	t.snap.ManagersTotal = total
	t.mu.Unlock()
}

// ManagerStarted implements crawler.Observer.
func (t *Tracker) ManagerStarted(_ int, m crawler.Manager) {
	t.mu.Lock()
	t.snap.CurrentManager = m.Name
	t.mu.Unlock()
}

// ManagerFinished implements crawler.Observer.
func (t *Tracker) ManagerFinished(_ crawler.Manager, _ int, _ error) {
	t.mu.Lock()
	t.snap.ManagersDone++
	t.snap.CurrentManager = ""
	t.mu.Unlock()
}

// RowWritten counts one output row.
func (t *Tracker) RowWritten() {
	t.mu.Lock()
	t.snap.Rows++
	t.mu.Unlock()
}

// UnitFailed counts one failed season or manager.
func (t *Tracker) UnitFailed() {
	t.mu.Lock()
	t.snap.Failures++
	t.mu.Unlock()
}

// Finish marks the run as done; a non-nil err marks it failed.
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	t.snap.FinishedAt = &now
	t.snap.State = StateSucceeded
	if err != nil {
		t.snap.State = StateFailed
		t.snap.Error = err.Error()
	}
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := t.snap
	if t.snap.FinishedAt != nil {
		finished := *t.snap.FinishedAt
		out.FinishedAt = &finished
	}
	return out
}

// Duration reports elapsed run time, up to FinishedAt when the run is over.
func (s Snapshot) Duration(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt != nil {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}
