// Package storage is the durable record of scans, tasks, dependencies,
// vulnerabilities and issues. The engine treats it as a transactional store
// with atomic per-scan and per-task update primitives; the in-memory and
// postgres implementations are interchangeable.
package storage

import (
	"context"

	"github.com/codescope-io/codescope/pkg/models"
)

type Store interface {
	CreateScan(ctx context.Context, scan *models.Scan) error
	GetScan(ctx context.Context, id string) (*models.Scan, error)
	ListScans(ctx context.Context) ([]*models.Scan, error)
	LatestScan(ctx context.Context, serviceID string, kind models.ScanKind) (*models.Scan, error)

	// FindActiveScan returns the non-terminal scan targeting serviceID with
	// the given kind, or nil when none exists.
	FindActiveScan(ctx context.Context, serviceID string, kind models.ScanKind) (*models.Scan, error)

	UpdateScan(ctx context.Context, scan *models.Scan) error

	// CompareAndSetScanStatus flips the scan's status only when it still has
	// the expected value. It is the fencing primitive behind exactly-once
	// finalization.
	CompareAndSetScanStatus(ctx context.Context, scanID string, from, to models.ScanStatus) (bool, error)

	CreateTasks(ctx context.Context, tasks []*models.ScanTask) error
	GetTask(ctx context.Context, id string) (*models.ScanTask, error)
	ListTasks(ctx context.Context, scanID string) ([]*models.ScanTask, error)
	UpdateTask(ctx context.Context, task *models.ScanTask) error

	InsertDependencies(ctx context.Context, deps []*models.Dependency) error
	GetDependency(ctx context.Context, id string) (*models.Dependency, error)
	ListDependencies(ctx context.Context, serviceID, scanID string) ([]*models.Dependency, error)

	InsertVulnerabilities(ctx context.Context, vulns []*models.Vulnerability) error
	ListVulnerabilities(ctx context.Context, dependencyID string) ([]*models.Vulnerability, error)

	InsertIssues(ctx context.Context, issues []*models.CodeQualityIssue) error

	// ListIssues filters conjunctively: empty category or severity matches all.
	ListIssues(ctx context.Context, scanID, category, severity string) ([]*models.CodeQualityIssue, error)

	Close() error
}
