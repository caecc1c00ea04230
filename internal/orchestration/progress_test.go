package orchestration

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope-io/codescope/pkg/models"
)

func TestTrackerRecordReportsLastExactlyOnce(t *testing.T) {
	tr := newTracker("scan-1", models.ScanKindQuality, 10)

	var lastCount int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if tr.record(fmt.Sprintf("task-%d", i), taskResult{status: models.TaskStatusSucceeded}) {
				mu.Lock()
				lastCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	require.EqualValues(t, 1, lastCount)

	// Duplicate records are ignored.
	require.False(t, tr.record("task-0", taskResult{status: models.TaskStatusSucceeded}))

	var scan models.Scan
	tr.apply(&scan)
	require.Equal(t, 10, scan.CompletedTasks)
}

func TestTrackerTerminalStatus(t *testing.T) {
	cases := []struct {
		name      string
		statuses  []models.TaskStatus
		cancelled bool
		fatal     string
		want      models.ScanStatus
	}{
		{name: "all succeeded", statuses: []models.TaskStatus{models.TaskStatusSucceeded, models.TaskStatusSucceeded}, want: models.ScanStatusCompleted},
		{name: "all failed", statuses: []models.TaskStatus{models.TaskStatusFailed, models.TaskStatusFailed}, want: models.ScanStatusFailed},
		{name: "mixed", statuses: []models.TaskStatus{models.TaskStatusSucceeded, models.TaskStatusFailed}, want: models.ScanStatusPartiallyFailed},
		{name: "cancelled wins", statuses: []models.TaskStatus{models.TaskStatusSucceeded, models.TaskStatusCancelled}, cancelled: true, want: models.ScanStatusCancelled},
		{name: "fatal wins", statuses: []models.TaskStatus{models.TaskStatusSucceeded, models.TaskStatusFailed}, fatal: "store down", want: models.ScanStatusFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTracker("scan-1", models.ScanKindQuality, len(tc.statuses))
			for i, st := range tc.statuses {
				tr.record(fmt.Sprintf("task-%d", i), taskResult{status: st})
			}
			if tc.cancelled {
				tr.markCancelled()
			}
			if tc.fatal != "" {
				tr.markFatal(tc.fatal)
			}
			require.Equal(t, tc.want, tr.terminalStatus())
		})
	}
}

func TestTrackerAggregatesCounters(t *testing.T) {
	tr := newTracker("scan-1", models.ScanKindQuality, 2)
	tr.record("task-1", taskResult{
		status:     models.TaskStatusSucceeded,
		severities: models.SeverityCounts{Critical: 1, Minor: 2},
		categories: models.CategoryCounts{Security: 1, CodeSmell: 2},
	})
	tr.record("task-2", taskResult{
		status:     models.TaskStatusSucceeded,
		severities: models.SeverityCounts{Major: 3},
		categories: models.CategoryCounts{Reliability: 3},
		security:   models.SecurityCounters{TotalDependencies: 7, VulnerableDependencies: 1},
	})

	var scan models.Scan
	tr.apply(&scan)
	require.Equal(t, models.SeverityCounts{Critical: 1, Major: 3, Minor: 2}, scan.Severities)
	require.Equal(t, models.CategoryCounts{Security: 1, Reliability: 3, CodeSmell: 2}, scan.Categories)
	require.Equal(t, models.SecurityCounters{TotalDependencies: 7, VulnerableDependencies: 1}, scan.Security)
}
