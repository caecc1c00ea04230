package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	tests := []struct {
		name      string
		status    ScanStatus
		total     int
		completed int
		want      int
	}{
		{"pending reports zero even with counted tasks", ScanStatusPending, 6, 3, 0},
		{"running rounds down", ScanStatusRunning, 3, 1, 33},
		{"running two thirds", ScanStatusRunning, 3, 2, 66},
		{"all tasks terminal", ScanStatusCompleted, 3, 3, 100},
		{"all tasks counted but not yet finalized", ScanStatusRunning, 3, 3, 99},
		{"terminal before counter write-back", ScanStatusFailed, 3, 1, 100},
		{"zero tasks still running", ScanStatusRunning, 0, 0, 0},
		{"zero tasks finalized", ScanStatusCompleted, 0, 0, 100},
		{"zero tasks cancelled", ScanStatusCancelled, 0, 0, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scan{Status: tt.status, TotalTasks: tt.total, CompletedTasks: tt.completed}
			require.Equal(t, tt.want, s.Progress())
		})
	}
}

func TestScanStatusTerminal(t *testing.T) {
	terminal := []ScanStatus{ScanStatusCompleted, ScanStatusFailed, ScanStatusPartiallyFailed, ScanStatusCancelled}
	for _, s := range terminal {
		require.True(t, s.Terminal(), "%s", s)
	}
	require.False(t, ScanStatusPending.Terminal())
	require.False(t, ScanStatusRunning.Terminal())
}

func TestScanKindValid(t *testing.T) {
	require.True(t, ScanKindSecurity.Valid())
	require.True(t, ScanKindQuality.Valid())
	require.False(t, ScanKind("").Valid())
	require.False(t, ScanKind("full").Valid())
}

func TestCountTotals(t *testing.T) {
	sev := SeverityCounts{Critical: 1, Major: 2, Minor: 3, Info: 4}
	require.Equal(t, 10, sev.Total())

	cat := CategoryCounts{Security: 2, Reliability: 1, CodeSmell: 1}
	require.Equal(t, 4, cat.Total())
}
