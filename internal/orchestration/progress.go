package orchestration

import (
	"sync"

	"github.com/codescope-io/codescope/pkg/models"
)

// taskResult is the aggregate contribution of one terminal task.
type taskResult struct {
	status     models.TaskStatus
	severities models.SeverityCounts
	categories models.CategoryCounts
	security   models.SecurityCounters
}

// tracker keeps one scan's live counters in memory so progress reads are O(1)
// and never touch in-flight tasks. Results are kept per task id with a derived
// running total; the store row is only authoritative once the scan is terminal.
type tracker struct {
	mu sync.Mutex

	// persistMu serializes counter write-back to the store so concurrent task
	// completions for the same scan never interleave read-modify-write cycles.
	persistMu sync.Mutex

	scanID string
	kind   models.ScanKind
	total  int

	results    map[string]taskResult
	completed  int
	succeeded  int
	failed     int
	cancelled  int
	severities models.SeverityCounts
	categories models.CategoryCounts
	security   models.SecurityCounters

	fatalErr  string
	cancelReq bool
}

func newTracker(scanID string, kind models.ScanKind, total int) *tracker {
	return &tracker{
		scanID:  scanID,
		kind:    kind,
		total:   total,
		results: map[string]taskResult{},
	}
}

// record folds one terminal task into the running totals. It returns true when
// this was the last outstanding task, exactly once across all callers.
func (t *tracker) record(taskID string, res taskResult) (last bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, dup := t.results[taskID]; dup {
		return false
	}
	t.results[taskID] = res

	t.completed++
	switch res.status {
	case models.TaskStatusSucceeded:
		t.succeeded++
	case models.TaskStatusFailed:
		t.failed++
	case models.TaskStatusCancelled:
		t.cancelled++
	}

	t.severities.Critical += res.severities.Critical
	t.severities.Major += res.severities.Major
	t.severities.Minor += res.severities.Minor
	t.severities.Info += res.severities.Info

	t.categories.Security += res.categories.Security
	t.categories.Reliability += res.categories.Reliability
	t.categories.Maintainability += res.categories.Maintainability
	t.categories.CodeSmell += res.categories.CodeSmell

	t.security.TotalDependencies += res.security.TotalDependencies
	t.security.VulnerableDependencies += res.security.VulnerableDependencies
	t.security.LicenseViolations += res.security.LicenseViolations

	return t.completed == t.total
}

func (t *tracker) markFatal(msg string) {
	t.mu.Lock()
	if t.fatalErr == "" {
		t.fatalErr = msg
	}
	t.mu.Unlock()
}

func (t *tracker) markCancelled() {
	t.mu.Lock()
	t.cancelReq = true
	t.mu.Unlock()
}

func (t *tracker) aborted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fatalErr != "" || t.cancelReq
}

// apply copies the current totals onto a scan snapshot.
func (t *tracker) apply(scan *models.Scan) {
	t.mu.Lock()
	defer t.mu.Unlock()
	scan.CompletedTasks = t.completed
	scan.Severities = t.severities
	scan.Categories = t.categories
	scan.Security = t.security
	if t.fatalErr != "" {
		scan.Error = t.fatalErr
	}
}

// terminalStatus derives the scan's final status from its tasks' outcomes.
// All succeeded means completed, all failed means failed, anything in between
// means partially_failed. A cancelled or fatally aborted scan overrides that.
func (t *tracker) terminalStatus() models.ScanStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.cancelReq:
		return models.ScanStatusCancelled
	case t.fatalErr != "":
		return models.ScanStatusFailed
	case t.failed == 0 && t.cancelled == 0:
		return models.ScanStatusCompleted
	case t.succeeded == 0:
		return models.ScanStatusFailed
	default:
		return models.ScanStatusPartiallyFailed
	}
}

// board indexes live trackers by scan id.
type board struct {
	mu       sync.RWMutex
	trackers map[string]*tracker
}

func newBoard() *board {
	return &board{trackers: map[string]*tracker{}}
}

func (b *board) put(t *tracker) {
	b.mu.Lock()
	b.trackers[t.scanID] = t
	b.mu.Unlock()
}

func (b *board) get(scanID string) (*tracker, bool) {
	b.mu.RLock()
	t, ok := b.trackers[scanID]
	b.mu.RUnlock()
	return t, ok
}

func (b *board) remove(scanID string) {
	b.mu.Lock()
	delete(b.trackers, scanID)
	b.mu.Unlock()
}
