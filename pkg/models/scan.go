package models

import (
	"time"
)

type ScanKind string

const (
	ScanKindSecurity ScanKind = "security"
	ScanKindQuality  ScanKind = "quality"
)

func (k ScanKind) Valid() bool {
	return k == ScanKindSecurity || k == ScanKindQuality
}

type ScanStatus string

const (
	ScanStatusPending         ScanStatus = "pending"
	ScanStatusRunning         ScanStatus = "running"
	ScanStatusCompleted       ScanStatus = "completed"
	ScanStatusFailed          ScanStatus = "failed"
	ScanStatusPartiallyFailed ScanStatus = "partially_failed"
	ScanStatusCancelled       ScanStatus = "cancelled"
)

func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanStatusCompleted, ScanStatusFailed, ScanStatusPartiallyFailed, ScanStatusCancelled:
		return true
	}
	return false
}

// SeverityCounts aggregates findings per severity across one scan.
type SeverityCounts struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Info     int `json:"info"`
}

func (c SeverityCounts) Total() int {
	return c.Critical + c.Major + c.Minor + c.Info
}

// CategoryCounts aggregates quality issues per category across one scan.
type CategoryCounts struct {
	Security        int `json:"security"`
	Reliability     int `json:"reliability"`
	Maintainability int `json:"maintainability"`
	CodeSmell       int `json:"code_smell"`
}

func (c CategoryCounts) Total() int {
	return c.Security + c.Reliability + c.Maintainability + c.CodeSmell
}

// QualityScores are derived on completion of a quality scan and frozen with it.
type QualityScores struct {
	Quality         float64 `json:"quality"`
	Security        float64 `json:"security"`
	Reliability     float64 `json:"reliability"`
	Maintainability float64 `json:"maintainability"`
}

// SecurityCounters summarizes a security scan.
type SecurityCounters struct {
	TotalDependencies      int `json:"total_dependencies"`
	VulnerableDependencies int `json:"vulnerable_dependencies"`
	LicenseViolations      int `json:"license_violations"`
}

// Scan is one analysis run over one or more services. A batch scan is still a
// single Scan; its tasks span the full service × check-item cross product.
type Scan struct {
	ID           string     `json:"id"`
	Kind         ScanKind   `json:"kind"`
	Status       ScanStatus `json:"status"`
	ServiceIDs   []string   `json:"service_ids"`
	CheckItemIDs []string   `json:"check_item_ids,omitempty"`

	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`

	Severities SeverityCounts   `json:"severities"`
	Categories CategoryCounts   `json:"categories"`
	Security   SecurityCounters `json:"security_counters"`
	Scores     *QualityScores   `json:"scores,omitempty"`

	CurrentPhase string `json:"current_phase,omitempty"`
	ReportPath   string `json:"report_path,omitempty"`
	Error        string `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Progress returns the whole percentage of terminal tasks, rounded down.
// 100 is reserved for terminal scans: between the last task finishing and the
// finalizer landing, a running scan with all tasks counted reports 99.
func (s *Scan) Progress() int {
	if s.Status.Terminal() {
		return 100
	}
	if s.Status == ScanStatusPending || s.TotalTasks == 0 {
		return 0
	}
	p := s.CompletedTasks * 100 / s.TotalTasks
	if p > 99 {
		p = 99
	}
	return p
}
