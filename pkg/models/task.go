package models

import "time"

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed || s == TaskStatusCancelled
}

// ScanTask is the unit of concurrent execution: one (service, check item)
// pair for quality scans, one service for security scans.
type ScanTask struct {
	ID        string `json:"id"`
	ScanID    string `json:"scan_id"`
	ServiceID string `json:"service_id"`

	// Quality tasks only.
	CheckItemID  string `json:"check_item_id,omitempty"`
	CheckItemKey string `json:"check_item_key,omitempty"`

	Status   TaskStatus `json:"status"`
	Priority int        `json:"priority"`

	IssueCount  int    `json:"issue_count"`
	MaxSeverity string `json:"max_severity,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Error       string `json:"error,omitempty"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
