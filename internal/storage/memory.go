package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/codescope-io/codescope/pkg/models"
)

// MemoryStore keeps everything in process memory. It backs tests and
// single-node deployments that do not need durability.
type MemoryStore struct {
	mu     sync.RWMutex
	scans  map[string]*models.Scan
	tasks  map[string]*models.ScanTask
	deps   map[string]*models.Dependency
	vulns  map[string][]*models.Vulnerability // by dependency id
	issues map[string][]*models.CodeQualityIssue

	scanOrder []string
	taskOrder []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scans:  make(map[string]*models.Scan),
		tasks:  make(map[string]*models.ScanTask),
		deps:   make(map[string]*models.Dependency),
		vulns:  make(map[string][]*models.Vulnerability),
		issues: make(map[string][]*models.CodeQualityIssue),
	}
}

func copyScan(s *models.Scan) *models.Scan {
	out := *s
	out.ServiceIDs = append([]string(nil), s.ServiceIDs...)
	out.CheckItemIDs = append([]string(nil), s.CheckItemIDs...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.Scores != nil {
		sc := *s.Scores
		out.Scores = &sc
	}
	return &out
}

func copyTask(t *models.ScanTask) *models.ScanTask {
	out := *t
	return &out
}

func (m *MemoryStore) CreateScan(_ context.Context, scan *models.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.scans[scan.ID]; exists {
		return models.Conflictf("scan %s already exists", scan.ID)
	}
	m.scans[scan.ID] = copyScan(scan)
	m.scanOrder = append(m.scanOrder, scan.ID)
	return nil
}

func (m *MemoryStore) GetScan(_ context.Context, id string) (*models.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	scan, ok := m.scans[id]
	if !ok {
		return nil, models.NotFoundf("scan %s", id)
	}
	return copyScan(scan), nil
}

func (m *MemoryStore) ListScans(_ context.Context) ([]*models.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Scan, 0, len(m.scanOrder))
	for i := len(m.scanOrder) - 1; i >= 0; i-- {
		out = append(out, copyScan(m.scans[m.scanOrder[i]]))
	}
	return out, nil
}

func (m *MemoryStore) LatestScan(_ context.Context, serviceID string, kind models.ScanKind) (*models.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.scanOrder) - 1; i >= 0; i-- {
		scan := m.scans[m.scanOrder[i]]
		if scan.Kind != kind {
			continue
		}
		for _, sid := range scan.ServiceIDs {
			if sid == serviceID {
				return copyScan(scan), nil
			}
		}
	}
	return nil, models.NotFoundf("no %s scan for service %s", kind, serviceID)
}

func (m *MemoryStore) FindActiveScan(_ context.Context, serviceID string, kind models.ScanKind) (*models.Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, scan := range m.scans {
		if scan.Kind != kind || scan.Status.Terminal() {
			continue
		}
		for _, sid := range scan.ServiceIDs {
			if sid == serviceID {
				return copyScan(scan), nil
			}
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateScan(_ context.Context, scan *models.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scans[scan.ID]; !ok {
		return models.NotFoundf("scan %s", scan.ID)
	}
	m.scans[scan.ID] = copyScan(scan)
	return nil
}

func (m *MemoryStore) CompareAndSetScanStatus(_ context.Context, scanID string, from, to models.ScanStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scan, ok := m.scans[scanID]
	if !ok {
		return false, models.NotFoundf("scan %s", scanID)
	}
	if scan.Status != from {
		return false, nil
	}
	scan.Status = to
	return true, nil
}

func (m *MemoryStore) CreateTasks(_ context.Context, tasks []*models.ScanTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range tasks {
		m.tasks[task.ID] = copyTask(task)
		m.taskOrder = append(m.taskOrder, task.ID)
	}
	return nil
}

func (m *MemoryStore) GetTask(_ context.Context, id string) (*models.ScanTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, models.NotFoundf("task %s", id)
	}
	return copyTask(task), nil
}

func (m *MemoryStore) ListTasks(_ context.Context, scanID string) ([]*models.ScanTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ScanTask
	for _, id := range m.taskOrder {
		if task := m.tasks[id]; task.ScanID == scanID {
			out = append(out, copyTask(task))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (m *MemoryStore) UpdateTask(_ context.Context, task *models.ScanTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return models.NotFoundf("task %s", task.ID)
	}
	m.tasks[task.ID] = copyTask(task)
	return nil
}

func (m *MemoryStore) InsertDependencies(_ context.Context, deps []*models.Dependency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dep := range deps {
		d := *dep
		m.deps[dep.ID] = &d
	}
	return nil
}

func (m *MemoryStore) GetDependency(_ context.Context, id string) (*models.Dependency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dep, ok := m.deps[id]
	if !ok {
		return nil, models.NotFoundf("dependency %s", id)
	}
	d := *dep
	return &d, nil
}

func (m *MemoryStore) ListDependencies(_ context.Context, serviceID, scanID string) ([]*models.Dependency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Dependency
	for _, dep := range m.deps {
		if serviceID != "" && dep.ServiceID != serviceID {
			continue
		}
		if scanID != "" && dep.ScanID != scanID {
			continue
		}
		d := *dep
		d.VulnerabilityCount = len(m.vulns[dep.ID])
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func (m *MemoryStore) InsertVulnerabilities(_ context.Context, vulns []*models.Vulnerability) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vulns {
		vc := *v
		m.vulns[v.DependencyID] = append(m.vulns[v.DependencyID], &vc)
	}
	return nil
}

func (m *MemoryStore) ListVulnerabilities(_ context.Context, dependencyID string) ([]*models.Vulnerability, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Vulnerability, 0, len(m.vulns[dependencyID]))
	for _, v := range m.vulns[dependencyID] {
		vc := *v
		out = append(out, &vc)
	}
	return out, nil
}

func (m *MemoryStore) InsertIssues(_ context.Context, issues []*models.CodeQualityIssue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, issue := range issues {
		ic := *issue
		m.issues[issue.ScanID] = append(m.issues[issue.ScanID], &ic)
	}
	return nil
}

func (m *MemoryStore) ListIssues(_ context.Context, scanID, category, severity string) ([]*models.CodeQualityIssue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.CodeQualityIssue
	for _, issue := range m.issues[scanID] {
		if category != "" && issue.Category != category {
			continue
		}
		if severity != "" && issue.Severity != severity {
			continue
		}
		ic := *issue
		out = append(out, &ic)
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
