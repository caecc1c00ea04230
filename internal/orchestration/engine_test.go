package orchestration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codescope-io/codescope/internal/storage"
	"github.com/codescope-io/codescope/pkg/models"
)

type fakeRegistry struct {
	snapshots map[string]models.FileSnapshot
}

func (f *fakeRegistry) ServiceExists(id string) bool {
	_, ok := f.snapshots[id]
	return ok
}

func (f *fakeRegistry) Snapshot(id string) (models.FileSnapshot, error) {
	snap, ok := f.snapshots[id]
	if !ok {
		return nil, models.NotFoundf("service %s", id)
	}
	return snap, nil
}

type fakeCatalog struct {
	items []models.CheckItem
}

func (f *fakeCatalog) ListEnabledItems() []models.CheckItem {
	return f.items
}

func (f *fakeCatalog) GetItem(id string) (models.CheckItem, error) {
	for _, it := range f.items {
		if it.ID == id {
			return it, nil
		}
	}
	return models.CheckItem{}, models.NotFoundf("check item %s", id)
}

type fakeChecker struct {
	mu        sync.Mutex
	failKeys  map[string]bool
	issuesPer int
	release   chan struct{} // when set, Check blocks until closed
	calls     int
}

func (f *fakeChecker) Check(ctx context.Context, _ models.FileSnapshot, item models.CheckItem) ([]models.CodeQualityIssue, error) {
	f.mu.Lock()
	f.calls++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.failKeys[item.ItemKey] {
		return nil, models.Checkf("rule engine rejected %s", item.ItemKey)
	}

	issues := make([]models.CodeQualityIssue, 0, f.issuesPer)
	for i := 0; i < f.issuesPer; i++ {
		issues = append(issues, models.CodeQualityIssue{
			FilePath: "main.go",
			Line:     i + 1,
			Category: models.CategoryForItemKey(item.ItemKey),
			Severity: models.MapSeverity(item.Severity),
			Message:  "finding",
			Status:   "OPEN",
		})
	}
	return issues, nil
}

type fakeResolver struct {
	deps []models.Dependency
	err  error
}

func (f *fakeResolver) Resolve(serviceID string, _ models.FileSnapshot) ([]models.Dependency, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Dependency, len(f.deps))
	copy(out, f.deps)
	for i := range out {
		out[i].ServiceID = serviceID
	}
	return out, nil
}

type fakeMatcher struct {
	matches map[string][]models.Vulnerability
	err     error
}

func (f *fakeMatcher) Match(_ context.Context, _ []models.Dependency) (map[string][]models.Vulnerability, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

// casCountingStore counts successful transitions into a terminal status so
// tests can assert finalization happened exactly once.
type casCountingStore struct {
	storage.Store
	mu       sync.Mutex
	terminal map[string]int
}

func (s *casCountingStore) CompareAndSetScanStatus(ctx context.Context, scanID string, from, to models.ScanStatus) (bool, error) {
	ok, err := s.Store.CompareAndSetScanStatus(ctx, scanID, from, to)
	if ok && to.Terminal() {
		s.mu.Lock()
		if s.terminal == nil {
			s.terminal = map[string]int{}
		}
		s.terminal[scanID]++
		s.mu.Unlock()
	}
	return ok, err
}

func (s *casCountingStore) terminalCount(scanID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal[scanID]
}

// failingIssueStore simulates a store outage during issue persistence.
type failingIssueStore struct {
	storage.Store
}

func (s *failingIssueStore) InsertIssues(context.Context, []*models.CodeQualityIssue) error {
	return models.Persistencef("connection refused")
}

func testItems() []models.CheckItem {
	return []models.CheckItem{
		{ID: "item-1", ItemKey: "security_hardcoded_secrets", ItemName: "Hardcoded secrets", Severity: models.SeverityCritical, Enabled: true},
		{ID: "item-2", ItemKey: "reliability_swallowed_errors", ItemName: "Swallowed errors", Severity: models.SeverityMajor, Enabled: true},
		{ID: "item-3", ItemKey: "maintainability_long_lines", ItemName: "Long lines", Severity: models.SeverityMinor, Enabled: true},
	}
}

type engineFixture struct {
	engine  *Engine
	store   *casCountingStore
	checker *fakeChecker
	catalog *fakeCatalog
}

func newEngineFixture(t *testing.T, opts func(f *engineFixture, base storage.Store) storage.Store) *engineFixture {
	t.Helper()
	f := &engineFixture{
		checker: &fakeChecker{issuesPer: 1},
		catalog: &fakeCatalog{items: testItems()},
	}
	var base storage.Store = storage.NewMemoryStore()
	if opts != nil {
		base = opts(f, base)
	}
	f.store = &casCountingStore{Store: base}

	reg := &fakeRegistry{snapshots: map[string]models.FileSnapshot{
		"svc-a": {"main.go": "package main"},
		"svc-b": {"main.go": "package main"},
	}}
	f.engine = NewEngine(
		models.EngineConfig{Workers: 4, TaskTimeout: 5 * time.Second},
		f.store,
		f.catalog,
		reg,
		&fakeResolver{},
		&fakeMatcher{},
		f.checker,
		nil,
		nil,
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.engine.Shutdown(ctx)
	})
	return f
}

func waitTerminal(t *testing.T, e *Engine, scanID string) *models.Scan {
	t.Helper()
	var scan *models.Scan
	require.Eventually(t, func() bool {
		s, err := e.GetScan(context.Background(), scanID)
		if err != nil {
			return false
		}
		scan = s
		return s.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return scan
}

func TestQualityScanPartialFailure(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.checker.failKeys = map[string]bool{"reliability_swallowed_errors": true}

	scan, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, nil)
	require.NoError(t, err)
	require.Equal(t, 3, scan.TotalTasks)
	require.Equal(t, models.ScanStatusRunning, scan.Status)
	require.Equal(t, 0, scan.Progress())

	final := waitTerminal(t, f.engine, scan.ID)
	require.Equal(t, models.ScanStatusPartiallyFailed, final.Status)
	require.Equal(t, 100, final.Progress())
	require.NotNil(t, final.CompletedAt)
	require.Equal(t, 3, final.CompletedTasks)

	tasks, err := f.engine.ListTasks(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	var failed, succeeded int
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusFailed:
			failed++
			require.Contains(t, task.Error, "reliability_swallowed_errors")
			require.Zero(t, task.IssueCount)
		case models.TaskStatusSucceeded:
			succeeded++
			require.Equal(t, 1, task.IssueCount)
		}
	}
	require.Equal(t, 1, failed)
	require.Equal(t, 2, succeeded)

	// Issues from the succeeded items survive the sibling failure.
	issues, err := f.engine.GetIssues(context.Background(), scan.ID, "", "")
	require.NoError(t, err)
	require.Len(t, issues, 2)
}

func TestQualityScanAllSucceedComputesScores(t *testing.T) {
	f := newEngineFixture(t, nil)

	scan, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, nil)
	require.NoError(t, err)

	final := waitTerminal(t, f.engine, scan.ID)
	require.Equal(t, models.ScanStatusCompleted, final.Status)
	require.NotNil(t, final.Scores)

	// One issue per item: one security, one reliability, one maintainability.
	require.Equal(t, 1, final.Categories.Security)
	require.Equal(t, 1, final.Categories.Reliability)
	require.Equal(t, 1, final.Categories.Maintainability)
	require.InDelta(t, 100-15-8-3, final.Scores.Quality, 0.001)
	require.InDelta(t, 90, final.Scores.Security, 0.001)
	require.InDelta(t, 95, final.Scores.Reliability, 0.001)
	require.InDelta(t, 97, final.Scores.Maintainability, 0.001)
}

func TestBatchScanCrossProduct(t *testing.T) {
	f := newEngineFixture(t, nil)
	items := []string{"item-1", "item-2"}

	scan, err := f.engine.StartBatchScan(context.Background(), []string{"svc-a", "svc-b"}, models.ScanKindQuality, items)
	require.NoError(t, err)
	require.Equal(t, 4, scan.TotalTasks)

	tasks, err := f.engine.ListTasks(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	// Service-major, check-item-minor creation order.
	type pair struct{ svc, item string }
	var got []pair
	for _, task := range tasks {
		got = append(got, pair{task.ServiceID, task.CheckItemID})
	}
	require.Equal(t, []pair{
		{"svc-a", "item-1"}, {"svc-a", "item-2"},
		{"svc-b", "item-1"}, {"svc-b", "item-2"},
	}, got)

	final := waitTerminal(t, f.engine, scan.ID)
	require.Equal(t, models.ScanStatusCompleted, final.Status)
	require.Equal(t, 4, final.Categories.Total())
}

func TestStartScanConflict(t *testing.T) {
	f := newEngineFixture(t, nil)
	release := make(chan struct{})
	f.checker.release = release

	scan, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, nil)
	require.NoError(t, err)

	_, err = f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, nil)
	require.ErrorIs(t, err, models.ErrConflict)

	// The rejected request must not leave anything behind.
	scans, err := f.engine.ListScans(context.Background())
	require.NoError(t, err)
	require.Len(t, scans, 1)

	// A different kind for the same service is admitted.
	other, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindSecurity, nil)
	require.NoError(t, err)

	close(release)
	waitTerminal(t, f.engine, scan.ID)
	waitTerminal(t, f.engine, other.ID)
}

func TestBatchScanAllOrNothing(t *testing.T) {
	f := newEngineFixture(t, nil)

	_, err := f.engine.StartBatchScan(context.Background(),
		[]string{"svc-a", "svc-b", "svc-missing"}, models.ScanKindQuality, nil)
	require.ErrorIs(t, err, models.ErrValidation)

	scans, err := f.engine.ListScans(context.Background())
	require.NoError(t, err)
	require.Empty(t, scans)
}

func TestUnknownCheckItemRejectsWholeRequest(t *testing.T) {
	f := newEngineFixture(t, nil)

	_, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality,
		[]string{"item-1", "item-nope"})
	require.ErrorIs(t, err, models.ErrValidation)

	scans, err := f.engine.ListScans(context.Background())
	require.NoError(t, err)
	require.Empty(t, scans)
}

func TestZeroTasksCompletesImmediately(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.catalog.items = nil

	scan, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, nil)
	require.NoError(t, err)
	require.Equal(t, models.ScanStatusCompleted, scan.Status)
	require.Equal(t, 100, scan.Progress())
	require.NotNil(t, scan.CompletedAt)
	require.Zero(t, scan.TotalTasks)

	progress, err := f.engine.GetProgress(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Equal(t, 100, progress)
}

func TestProgressMonotoneAndHundredOnlyWhenTerminal(t *testing.T) {
	f := newEngineFixture(t, nil)

	scan, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, nil)
	require.NoError(t, err)

	last := -1
	require.Eventually(t, func() bool {
		current, err := f.engine.GetScan(context.Background(), scan.ID)
		require.NoError(t, err)
		pct := current.Progress()
		require.GreaterOrEqual(t, pct, last, "progress regressed")
		last = pct
		if pct == 100 {
			require.True(t, current.Status.Terminal(), "100%% before terminal status")
			return true
		}
		require.False(t, current.Status.Terminal(), "terminal status below 100%%")
		return false
	}, 5*time.Second, time.Millisecond)
}

func TestFinalizationExactlyOnce(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newEngineFixture(t, nil)
		release := make(chan struct{})
		f.checker.release = release

		scan, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality,
			[]string{"item-1", "item-2"})
		require.NoError(t, err)

		// Both tasks finish as close to simultaneously as the pool allows.
		close(release)

		final := waitTerminal(t, f.engine, scan.ID)
		require.Equal(t, models.ScanStatusCompleted, final.Status)
		require.NotNil(t, final.CompletedAt)
		require.Equal(t, 1, f.store.terminalCount(scan.ID), "scan finalized more than once")
	}
}

func TestSecurityScanAggregatesCounters(t *testing.T) {
	f := newEngineFixture(t, nil)

	deps := []models.Dependency{
		{Name: "left-pad", Version: "1.3.0", Type: "npm", PURL: "pkg:npm/left-pad@1.3.0", LicenseStatus: models.LicenseStatusApproved},
		{Name: "event-stream", Version: "3.3.6", Type: "npm", PURL: "pkg:npm/event-stream@3.3.6", LicenseStatus: models.LicenseStatusViolation},
	}
	matches := map[string][]models.Vulnerability{
		"pkg:npm/event-stream@3.3.6": {
			{CVE: "CVE-2018-16487", Title: "Prototype pollution", Severity: "HIGH", CVSSScore: 7.5, Status: models.VulnStatusOpen},
		},
	}
	engine := NewEngine(
		models.EngineConfig{Workers: 2, TaskTimeout: 5 * time.Second},
		f.store,
		f.catalog,
		&fakeRegistry{snapshots: map[string]models.FileSnapshot{"svc-a": {"package.json": "{}"}}},
		&fakeResolver{deps: deps},
		&fakeMatcher{matches: matches},
		f.checker,
		nil,
		nil,
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	}()

	scan, err := engine.StartScan(context.Background(), "svc-a", models.ScanKindSecurity, nil)
	require.NoError(t, err)
	require.Equal(t, 1, scan.TotalTasks)

	final := waitTerminal(t, engine, scan.ID)
	require.Equal(t, models.ScanStatusCompleted, final.Status)
	require.Equal(t, 2, final.Security.TotalDependencies)
	require.Equal(t, 1, final.Security.VulnerableDependencies)
	require.Equal(t, 1, final.Security.LicenseViolations)
	require.Equal(t, 1, final.Severities.Major) // HIGH folds into MAJOR

	stored, err := engine.ListDependencies(context.Background(), "svc-a", scan.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, dep := range stored {
		if dep.Name == "event-stream" {
			require.Equal(t, 1, dep.VulnerabilityCount)
			vulns, err := engine.GetVulnerabilities(context.Background(), dep.ID)
			require.NoError(t, err)
			require.Len(t, vulns, 1)
			require.Equal(t, "CVE-2018-16487", vulns[0].CVE)
		}
	}
}

func TestSecurityScanResolverErrorFailsTaskOnly(t *testing.T) {
	f := newEngineFixture(t, nil)

	engine := NewEngine(
		models.EngineConfig{Workers: 2, TaskTimeout: 5 * time.Second},
		f.store,
		f.catalog,
		&fakeRegistry{snapshots: map[string]models.FileSnapshot{
			"svc-a": {"package.json": "{}"},
			"svc-b": {"package.json": "{}"},
		}},
		&brokenForServiceResolver{failFor: "svc-a"},
		&fakeMatcher{},
		f.checker,
		nil,
		nil,
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	}()

	scan, err := engine.StartBatchScan(context.Background(), []string{"svc-a", "svc-b"}, models.ScanKindSecurity, nil)
	require.NoError(t, err)
	require.Equal(t, 2, scan.TotalTasks)

	final := waitTerminal(t, engine, scan.ID)
	require.Equal(t, models.ScanStatusPartiallyFailed, final.Status)

	tasks, err := engine.ListTasks(context.Background(), scan.ID)
	require.NoError(t, err)
	for _, task := range tasks {
		if task.ServiceID == "svc-a" {
			require.Equal(t, models.TaskStatusFailed, task.Status)
			require.Contains(t, task.Error, "parse")
		} else {
			require.Equal(t, models.TaskStatusSucceeded, task.Status)
		}
	}
}

type brokenForServiceResolver struct {
	failFor string
}

func (r *brokenForServiceResolver) Resolve(serviceID string, _ models.FileSnapshot) ([]models.Dependency, error) {
	if serviceID == r.failFor {
		return nil, models.Parsef("malformed manifest for %s", serviceID)
	}
	return []models.Dependency{
		{Name: "ok", Version: "1.0.0", Type: "npm", PURL: "pkg:npm/ok@1.0.0"},
	}, nil
}

func TestPersistenceFailureFatal(t *testing.T) {
	f := newEngineFixture(t, func(_ *engineFixture, base storage.Store) storage.Store {
		return &failingIssueStore{Store: base}
	})

	scan, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, nil)
	require.NoError(t, err)

	final := waitTerminal(t, f.engine, scan.ID)
	require.Equal(t, models.ScanStatusFailed, final.Status)
	require.Contains(t, final.Error, "persistence")
}

func TestCancelScan(t *testing.T) {
	f := newEngineFixture(t, nil)
	release := make(chan struct{})
	f.checker.release = release
	defer close(release)

	scan, err := f.engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, nil)
	require.NoError(t, err)

	_, err = f.engine.CancelScan(context.Background(), scan.ID)
	require.NoError(t, err)

	final := waitTerminal(t, f.engine, scan.ID)
	require.Equal(t, models.ScanStatusCancelled, final.Status)
	require.NotNil(t, final.CompletedAt)

	tasks, err := f.engine.ListTasks(context.Background(), scan.ID)
	require.NoError(t, err)
	for _, task := range tasks {
		require.Equal(t, models.TaskStatusCancelled, task.Status)
	}

	// Cancelling a terminal scan is a conflict.
	_, err = f.engine.CancelScan(context.Background(), scan.ID)
	require.ErrorIs(t, err, models.ErrConflict)
}

func TestTaskTimeout(t *testing.T) {
	f := newEngineFixture(t, nil)
	f.checker.release = make(chan struct{}) // never released

	engine := NewEngine(
		models.EngineConfig{Workers: 2, TaskTimeout: 50 * time.Millisecond},
		f.store,
		f.catalog,
		&fakeRegistry{snapshots: map[string]models.FileSnapshot{"svc-a": {"main.go": "package main"}}},
		&fakeResolver{},
		&fakeMatcher{},
		f.checker,
		nil,
		nil,
	)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = engine.Shutdown(ctx)
	}()

	scan, err := engine.StartScan(context.Background(), "svc-a", models.ScanKindQuality, []string{"item-1"})
	require.NoError(t, err)

	final := waitTerminal(t, engine, scan.ID)
	require.Equal(t, models.ScanStatusFailed, final.Status)

	tasks, err := engine.ListTasks(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, models.TaskStatusFailed, tasks[0].Status)
	require.Contains(t, tasks[0].Error, "timeout")
}

func TestStatusMonotonicInStore(t *testing.T) {
	store := storage.NewMemoryStore()
	scan := &models.Scan{ID: "scan-1", Kind: models.ScanKindQuality, Status: models.ScanStatusPending, ServiceIDs: []string{"svc"}, StartedAt: time.Now()}
	require.NoError(t, store.CreateScan(context.Background(), scan))

	ok, err := store.CompareAndSetScanStatus(context.Background(), "scan-1", models.ScanStatusPending, models.ScanStatusRunning)
	require.NoError(t, err)
	require.True(t, ok)

	// A stale transition from pending must not apply anymore.
	ok, err = store.CompareAndSetScanStatus(context.Background(), "scan-1", models.ScanStatusPending, models.ScanStatusCompleted)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.CompareAndSetScanStatus(context.Background(), "scan-1", models.ScanStatusRunning, models.ScanStatusCompleted)
	require.NoError(t, err)
	require.True(t, ok)

	// Terminal means frozen: a competing terminal transition loses.
	ok, err = store.CompareAndSetScanStatus(context.Background(), "scan-1", models.ScanStatusRunning, models.ScanStatusFailed)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := store.GetScan(context.Background(), "scan-1")
	require.NoError(t, err)
	require.Equal(t, models.ScanStatusCompleted, got.Status)
}

// stallingCASStore holds the first terminal status transition open until
// released, exposing the window between the last task settling and the
// finalizer landing.
type stallingCASStore struct {
	storage.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallingCASStore) CompareAndSetScanStatus(ctx context.Context, scanID string, from, to models.ScanStatus) (bool, error) {
	if to.Terminal() {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	return s.Store.CompareAndSetScanStatus(ctx, scanID, from, to)
}

func TestProgressNotHundredUntilFinalized(t *testing.T) {
	stall := &stallingCASStore{entered: make(chan struct{}), release: make(chan struct{})}
	f := newEngineFixture(t, func(_ *engineFixture, base storage.Store) storage.Store {
		stall.Store = base
		return stall
	})

	scan, err := f.engine.StartBatchScan(context.Background(), []string{"svc-a"}, models.ScanKindQuality, []string{"item-1"})
	require.NoError(t, err)

	select {
	case <-stall.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("finalization never reached the store")
	}

	// Every task is counted but the scan is still running: it must not
	// report complete yet.
	mid, err := f.engine.GetScan(context.Background(), scan.ID)
	require.NoError(t, err)
	require.Equal(t, models.ScanStatusRunning, mid.Status)
	require.Equal(t, mid.TotalTasks, mid.CompletedTasks)
	require.Equal(t, 99, mid.Progress())

	close(stall.release)
	final := waitTerminal(t, f.engine, scan.ID)
	require.Equal(t, models.ScanStatusCompleted, final.Status)
	require.Equal(t, 100, final.Progress())
}

// statusRecordingStore captures every scan status written to the store, in
// order, so tests can assert a terminal status is never overwritten.
type statusRecordingStore struct {
	storage.Store
	mu      sync.Mutex
	history map[string][]models.ScanStatus
}

func (s *statusRecordingStore) note(scanID string, status models.ScanStatus) {
	s.mu.Lock()
	if s.history == nil {
		s.history = map[string][]models.ScanStatus{}
	}
	s.history[scanID] = append(s.history[scanID], status)
	s.mu.Unlock()
}

func (s *statusRecordingStore) UpdateScan(ctx context.Context, scan *models.Scan) error {
	err := s.Store.UpdateScan(ctx, scan)
	if err == nil {
		s.note(scan.ID, scan.Status)
	}
	return err
}

func (s *statusRecordingStore) CompareAndSetScanStatus(ctx context.Context, scanID string, from, to models.ScanStatus) (bool, error) {
	ok, err := s.Store.CompareAndSetScanStatus(ctx, scanID, from, to)
	if ok {
		s.note(scanID, to)
	}
	return ok, err
}

func (s *statusRecordingStore) statuses(scanID string) []models.ScanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ScanStatus(nil), s.history[scanID]...)
}

func TestTerminalStatusNeverOverwritten(t *testing.T) {
	recorder := &statusRecordingStore{}
	f := newEngineFixture(t, func(_ *engineFixture, base storage.Store) storage.Store {
		recorder.Store = base
		return recorder
	})
	f.checker.issuesPer = 0

	// Sibling counter write-backs race the finalizer; once a terminal status
	// lands, no later write may put the scan back to running.
	for i := 0; i < 20; i++ {
		scan, err := f.engine.StartBatchScan(context.Background(), []string{"svc-a", "svc-b"}, models.ScanKindQuality, nil)
		require.NoError(t, err)
		waitTerminal(t, f.engine, scan.ID)

		seenTerminal := false
		for _, status := range recorder.statuses(scan.ID) {
			if seenTerminal {
				require.True(t, status.Terminal(),
					"scan %s written back to %s after going terminal", scan.ID, status)
			}
			if status.Terminal() {
				seenTerminal = true
			}
		}
	}
}
