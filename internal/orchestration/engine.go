package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codescope-io/codescope/internal/storage"
	"github.com/codescope-io/codescope/internal/vuln"
	"github.com/codescope-io/codescope/pkg/models"
	"github.com/codescope-io/codescope/pkg/utils"
)

// CheckCatalog resolves the effective set of quality checks for a scan.
type CheckCatalog interface {
	ListEnabledItems() []models.CheckItem
	GetItem(id string) (models.CheckItem, error)
}

// ServiceRegistry supplies service existence checks and file snapshots.
type ServiceRegistry interface {
	ServiceExists(id string) bool
	Snapshot(serviceID string) (models.FileSnapshot, error)
}

// DependencyResolver turns a service snapshot into its dependency list.
type DependencyResolver interface {
	Resolve(serviceID string, snapshot models.FileSnapshot) ([]models.Dependency, error)
}

// Checker produces quality issues for one check item against a snapshot.
type Checker interface {
	Check(ctx context.Context, snapshot models.FileSnapshot, item models.CheckItem) ([]models.CodeQualityIssue, error)
}

// Engine owns the scan lifecycle: admission, task decomposition, bounded
// concurrent execution, live progress aggregation and exactly-once
// finalization through the store's compare-and-set primitive.
type Engine struct {
	cfg      models.EngineConfig
	store    storage.Store
	catalog  CheckCatalog
	registry ServiceRegistry
	resolver DependencyResolver
	matcher  vuln.Matcher
	checker  Checker

	pool    *Pool
	board   *board
	metrics *utils.Metrics
	logger  *logrus.Logger

	// admitMu serializes the conflict check against scan creation so two
	// concurrent StartScan calls for the same target cannot both pass.
	admitMu sync.Mutex

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc

	baseCtx   context.Context
	baseClose context.CancelFunc
}

func NewEngine(
	cfg models.EngineConfig,
	store storage.Store,
	cat CheckCatalog,
	reg ServiceRegistry,
	resolver DependencyResolver,
	matcher vuln.Matcher,
	checker Checker,
	metrics *utils.Metrics,
	logger *logrus.Logger,
) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:       cfg,
		store:     store,
		catalog:   cat,
		registry:  reg,
		resolver:  resolver,
		matcher:   matcher,
		checker:   checker,
		pool:      NewPool(cfg.Workers, metrics, logger),
		board:     newBoard(),
		metrics:   metrics,
		logger:    logger,
		cancels:   map[string]context.CancelFunc{},
		baseCtx:   ctx,
		baseClose: cancel,
	}
}

// StartScan admits a single-service scan and returns once its tasks are
// persisted and dispatched. The work itself proceeds asynchronously.
func (e *Engine) StartScan(ctx context.Context, serviceID string, kind models.ScanKind, checkItemIDs []string) (*models.Scan, error) {
	return e.StartBatchScan(ctx, []string{serviceID}, kind, checkItemIDs)
}

// StartBatchScan admits one scan spanning several services. Validation is
// all-or-nothing: any unknown service, unknown check item, or conflicting
// in-flight scan rejects the whole request before anything is persisted.
func (e *Engine) StartBatchScan(ctx context.Context, serviceIDs []string, kind models.ScanKind, checkItemIDs []string) (*models.Scan, error) {
	if len(serviceIDs) == 0 {
		return nil, models.Validationf("no services given")
	}
	if !kind.Valid() {
		return nil, models.Validationf("unknown scan kind %q", kind)
	}
	seen := map[string]bool{}
	for _, id := range serviceIDs {
		if id == "" || seen[id] {
			return nil, models.Validationf("duplicate or empty service id %q", id)
		}
		seen[id] = true
		if !e.registry.ServiceExists(id) {
			return nil, models.Validationf("unknown service %q", id)
		}
	}

	var items []models.CheckItem
	if kind == models.ScanKindQuality {
		var err error
		items, err = e.resolveItems(checkItemIDs)
		if err != nil {
			return nil, err
		}
	}

	e.admitMu.Lock()
	defer e.admitMu.Unlock()

	for _, id := range serviceIDs {
		active, err := e.store.FindActiveScan(ctx, id, kind)
		if err != nil {
			return nil, err
		}
		if active != nil {
			return nil, models.Conflictf("a %s scan (%s) is already in flight for service %q", kind, active.ID, id)
		}
	}

	scan := &models.Scan{
		ID:           uuid.NewString(),
		Kind:         kind,
		Status:       models.ScanStatusPending,
		ServiceIDs:   append([]string(nil), serviceIDs...),
		CheckItemIDs: append([]string(nil), checkItemIDs...),
		StartedAt:    time.Now().UTC(),
	}
	tasks := decompose(scan, items)
	scan.TotalTasks = len(tasks)

	if err := e.store.CreateScan(ctx, scan); err != nil {
		return nil, err
	}
	if err := e.store.CreateTasks(ctx, tasks); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ScansStarted.WithLabelValues(string(kind)).Inc()
	}

	if len(tasks) == 0 {
		return e.completeEmpty(ctx, scan)
	}

	if ok, err := e.store.CompareAndSetScanStatus(ctx, scan.ID, models.ScanStatusPending, models.ScanStatusRunning); err != nil {
		return nil, err
	} else if ok {
		scan.Status = models.ScanStatusRunning
	}

	t := newTracker(scan.ID, kind, len(tasks))
	e.board.put(t)
	if e.metrics != nil {
		e.metrics.ScansInFlight.Inc()
	}

	scanCtx, cancel := context.WithCancel(e.baseCtx)
	e.cancelMu.Lock()
	e.cancels[scan.ID] = cancel
	e.cancelMu.Unlock()

	for _, task := range tasks {
		task := task
		e.pool.Submit(func() { e.runTask(scanCtx, t, task) })
	}

	e.logger.WithFields(logrus.Fields{
		"scan_id":  scan.ID,
		"kind":     kind,
		"services": len(serviceIDs),
		"tasks":    len(tasks),
	}).Info("Scan admitted")
	return scan, nil
}

// resolveItems returns the explicit check items, or all enabled catalog items
// when none were requested. Unknown ids reject the whole request.
func (e *Engine) resolveItems(checkItemIDs []string) ([]models.CheckItem, error) {
	if len(checkItemIDs) == 0 {
		return e.catalog.ListEnabledItems(), nil
	}
	items := make([]models.CheckItem, 0, len(checkItemIDs))
	for _, id := range checkItemIDs {
		item, err := e.catalog.GetItem(id)
		if err != nil {
			return nil, models.Validationf("unknown check item %q", id)
		}
		items = append(items, item)
	}
	return items, nil
}

// decompose builds the full task list before anything is dispatched,
// service-major and check-item-minor so task priority reflects request order.
func decompose(scan *models.Scan, items []models.CheckItem) []*models.ScanTask {
	now := time.Now().UTC()
	var tasks []*models.ScanTask
	priority := 0
	for _, serviceID := range scan.ServiceIDs {
		if scan.Kind == models.ScanKindSecurity {
			tasks = append(tasks, &models.ScanTask{
				ID:        uuid.NewString(),
				ScanID:    scan.ID,
				ServiceID: serviceID,
				Status:    models.TaskStatusPending,
				Priority:  priority,
				CreatedAt: now,
			})
			priority++
			continue
		}
		for _, item := range items {
			tasks = append(tasks, &models.ScanTask{
				ID:           uuid.NewString(),
				ScanID:       scan.ID,
				ServiceID:    serviceID,
				CheckItemID:  item.ID,
				CheckItemKey: item.ItemKey,
				Status:       models.TaskStatusPending,
				Priority:     priority,
				CreatedAt:    now,
			})
			priority++
		}
	}
	return tasks
}

// completeEmpty finalizes a scan that decomposed into zero tasks. It is
// terminal immediately, so progress reads 100 from the start.
func (e *Engine) completeEmpty(ctx context.Context, scan *models.Scan) (*models.Scan, error) {
	now := time.Now().UTC()
	scan.Status = models.ScanStatusCompleted
	scan.CompletedAt = &now
	if scan.Kind == models.ScanKindQuality {
		scan.Scores = computeScores(scan.Categories)
	}
	if ok, err := e.store.CompareAndSetScanStatus(ctx, scan.ID, models.ScanStatusPending, models.ScanStatusCompleted); err != nil {
		return nil, err
	} else if !ok {
		return e.store.GetScan(ctx, scan.ID)
	}
	if err := e.store.UpdateScan(ctx, scan); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ScansFinished.WithLabelValues(string(scan.Kind), string(scan.Status)).Inc()
	}
	return scan, nil
}

// runTask executes one task end to end. Collaborator errors fail only this
// task; a store error aborts the whole scan and halts further dispatch.
func (e *Engine) runTask(scanCtx context.Context, t *tracker, task *models.ScanTask) {
	if scanCtx.Err() != nil || t.aborted() {
		e.settleTask(scanCtx, t, task, models.TaskStatusCancelled, taskResult{}, errors.New("scan aborted before task start"))
		return
	}

	now := time.Now().UTC()
	task.Status = models.TaskStatusRunning
	task.StartedAt = &now
	if err := e.store.UpdateTask(scanCtx, task); err != nil {
		e.failScan(scanCtx, t, task, err)
		return
	}

	ctx, cancel := context.WithTimeout(scanCtx, e.cfg.TaskTimeout)
	defer cancel()

	var res taskResult
	var err error
	if t.kind == models.ScanKindSecurity {
		res, err = e.runSecurityTask(ctx, task)
	} else {
		res, err = e.runQualityTask(ctx, task)
	}
	if e.metrics != nil && task.StartedAt != nil {
		e.metrics.TaskDuration.WithLabelValues(string(t.kind)).Observe(time.Since(*task.StartedAt).Seconds())
	}

	switch {
	case err == nil:
		e.settleTask(scanCtx, t, task, models.TaskStatusSucceeded, res, nil)
	case errors.Is(err, models.ErrPersistence):
		e.failScan(scanCtx, t, task, err)
	case scanCtx.Err() != nil:
		e.settleTask(scanCtx, t, task, models.TaskStatusCancelled, taskResult{}, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%w: task exceeded %s: %v", models.ErrTimeout, e.cfg.TaskTimeout, err)
		e.settleTask(scanCtx, t, task, models.TaskStatusFailed, taskResult{}, err)
	default:
		e.settleTask(scanCtx, t, task, models.TaskStatusFailed, taskResult{}, err)
	}
}

// runSecurityTask resolves one service's dependencies, matches them against
// the vulnerability source and persists both sides.
func (e *Engine) runSecurityTask(ctx context.Context, task *models.ScanTask) (taskResult, error) {
	snapshot, err := e.registry.Snapshot(task.ServiceID)
	if err != nil {
		return taskResult{}, err
	}
	deps, err := e.resolver.Resolve(task.ServiceID, snapshot)
	if err != nil {
		return taskResult{}, err
	}
	matches, err := e.matcher.Match(ctx, deps)
	if err != nil {
		return taskResult{}, err
	}

	now := time.Now().UTC()
	var res taskResult
	res.security.TotalDependencies = len(deps)

	depRows := make([]*models.Dependency, 0, len(deps))
	var vulnRows []*models.Vulnerability
	for i := range deps {
		dep := deps[i]
		dep.ID = uuid.NewString()
		dep.ScanID = task.ScanID
		dep.CreatedAt = now

		hits := matches[dep.Key()]
		dep.VulnerabilityCount = len(hits)
		if len(hits) > 0 {
			res.security.VulnerableDependencies++
		}
		if dep.LicenseStatus == models.LicenseStatusViolation {
			res.security.LicenseViolations++
		}
		for _, v := range hits {
			v.ID = uuid.NewString()
			v.DependencyID = dep.ID
			v.CreatedAt = now
			switch models.MapSeverity(v.Severity) {
			case models.SeverityCritical:
				res.severities.Critical++
			case models.SeverityMajor:
				res.severities.Major++
			case models.SeverityMinor:
				res.severities.Minor++
			default:
				res.severities.Info++
			}
			vulnRows = append(vulnRows, &v)
		}
		depRows = append(depRows, &dep)
	}

	if err := e.store.InsertDependencies(ctx, depRows); err != nil {
		return taskResult{}, err
	}
	if len(vulnRows) > 0 {
		if err := e.store.InsertVulnerabilities(ctx, vulnRows); err != nil {
			return taskResult{}, err
		}
	}

	task.IssueCount = len(vulnRows)
	task.Summary = fmt.Sprintf("%d dependencies, %d vulnerable, %d advisories",
		len(depRows), res.security.VulnerableDependencies, len(vulnRows))
	return res, nil
}

// runQualityTask runs one check item against the service snapshot. Issues are
// persisted all or nothing: a failed check leaves no partial rows behind.
func (e *Engine) runQualityTask(ctx context.Context, task *models.ScanTask) (taskResult, error) {
	item, err := e.catalog.GetItem(task.CheckItemID)
	if err != nil {
		return taskResult{}, models.Checkf("check item %q vanished from catalog", task.CheckItemID)
	}
	snapshot, err := e.registry.Snapshot(task.ServiceID)
	if err != nil {
		return taskResult{}, err
	}
	issues, err := e.checker.Check(ctx, snapshot, item)
	if err != nil {
		return taskResult{}, err
	}

	now := time.Now().UTC()
	var res taskResult
	rows := make([]*models.CodeQualityIssue, 0, len(issues))
	for i := range issues {
		issue := issues[i]
		issue.ID = uuid.NewString()
		issue.ScanID = task.ScanID
		issue.CheckItemID = item.ID
		issue.CreatedAt = now

		switch issue.Category {
		case models.CategorySecurity:
			res.categories.Security++
		case models.CategoryReliability:
			res.categories.Reliability++
		case models.CategoryMaintainability:
			res.categories.Maintainability++
		default:
			res.categories.CodeSmell++
		}
		switch issue.Severity {
		case models.SeverityCritical:
			res.severities.Critical++
		case models.SeverityMajor:
			res.severities.Major++
		case models.SeverityMinor:
			res.severities.Minor++
		default:
			res.severities.Info++
		}
		rows = append(rows, &issue)
	}

	if len(rows) > 0 {
		if err := e.store.InsertIssues(ctx, rows); err != nil {
			return taskResult{}, err
		}
	}

	task.IssueCount = len(rows)
	task.MaxSeverity = maxSeverity(rows)
	task.Summary = fmt.Sprintf("%s: %d issue(s)", item.ItemKey, len(rows))
	return res, nil
}

func maxSeverity(issues []*models.CodeQualityIssue) string {
	rank := map[string]int{
		models.SeverityCritical: 4,
		models.SeverityMajor:    3,
		models.SeverityMinor:    2,
		models.SeverityInfo:     1,
	}
	best := ""
	for _, issue := range issues {
		if rank[issue.Severity] > rank[best] {
			best = issue.Severity
		}
	}
	return best
}

// settleTask records the task's terminal state, folds its result into the
// live counters, writes the counters back, and triggers finalization when it
// was the last sibling to finish.
func (e *Engine) settleTask(scanCtx context.Context, t *tracker, task *models.ScanTask, status models.TaskStatus, res taskResult, taskErr error) {
	now := time.Now().UTC()
	task.Status = status
	task.CompletedAt = &now
	if taskErr != nil {
		task.Error = taskErr.Error()
		e.logger.WithFields(logrus.Fields{
			"scan_id":    task.ScanID,
			"task_id":    task.ID,
			"service_id": task.ServiceID,
		}).WithError(taskErr).Warn("Scan task failed")
	}
	if err := e.store.UpdateTask(context.WithoutCancel(scanCtx), task); err != nil {
		e.logger.WithError(err).Error("Persisting task state failed")
		t.markFatal(err.Error())
	}
	if e.metrics != nil {
		e.metrics.TasksFinished.WithLabelValues(string(status)).Inc()
	}

	res.status = status
	last := t.record(task.ID, res)

	e.syncCounters(t)
	if last {
		e.finalize(t)
	}
}

// failScan aborts the whole scan after a store failure. Remaining tasks see
// the cancelled context and settle as cancelled without doing work.
func (e *Engine) failScan(scanCtx context.Context, t *tracker, task *models.ScanTask, err error) {
	e.logger.WithFields(logrus.Fields{
		"scan_id": task.ScanID,
		"task_id": task.ID,
	}).WithError(err).Error("Store failure, aborting scan")
	t.markFatal(err.Error())
	e.cancelContext(task.ScanID)
	e.settleTask(scanCtx, t, task, models.TaskStatusFailed, taskResult{}, err)
}

// syncCounters writes the live totals onto the scan row. Writes for one scan
// are serialized; the row stays advisory until finalization freezes it.
func (e *Engine) syncCounters(t *tracker) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()

	ctx := context.WithoutCancel(e.baseCtx)
	scan, err := e.store.GetScan(ctx, t.scanID)
	if err != nil {
		e.logger.WithError(err).Warn("Counter write-back read failed")
		return
	}
	if scan.Status.Terminal() {
		return
	}
	t.apply(scan)
	if err := e.store.UpdateScan(ctx, scan); err != nil {
		e.logger.WithError(err).Warn("Counter write-back failed")
	}
}

// finalize freezes the scan exactly once. The store CAS from running to the
// computed terminal status is the fence: whichever caller wins writes the
// final counters, completion time and scores, every other caller backs off.
// The CAS happens under persistMu so a sibling's counter write-back cannot
// read running before the CAS and write the stale row back after it.
func (e *Engine) finalize(t *tracker) {
	status := t.terminalStatus()
	ctx := context.WithoutCancel(e.baseCtx)

	t.persistMu.Lock()
	defer t.persistMu.Unlock()

	ok, err := e.store.CompareAndSetScanStatus(ctx, t.scanID, models.ScanStatusRunning, status)
	if err != nil {
		e.logger.WithError(err).WithField("scan_id", t.scanID).Error("Finalization CAS failed")
		return
	}
	if !ok {
		return
	}

	scan, err := e.store.GetScan(ctx, t.scanID)
	if err != nil {
		e.logger.WithError(err).Error("Finalization read failed")
		return
	}
	t.apply(scan)
	scan.Status = status
	now := time.Now().UTC()
	scan.CompletedAt = &now
	if scan.Kind == models.ScanKindQuality {
		scan.Scores = computeScores(scan.Categories)
	}
	if err := e.store.UpdateScan(ctx, scan); err != nil {
		e.logger.WithError(err).Error("Finalization write failed")
	}

	e.board.remove(t.scanID)
	e.dropCancel(t.scanID)
	if e.metrics != nil {
		e.metrics.ScansInFlight.Dec()
		e.metrics.ScansFinished.WithLabelValues(string(scan.Kind), string(status)).Inc()
	}
	e.logger.WithFields(logrus.Fields{
		"scan_id": t.scanID,
		"status":  status,
	}).Info("Scan finalized")
}

// computeScores derives the quality score card from category totals. Weights
// follow the platform's scoring model: security issues cost the most, code
// smells only affect the issue count.
func computeScores(c models.CategoryCounts) *models.QualityScores {
	floor := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	penalty := float64(c.Security*15 + c.Reliability*8 + c.Maintainability*3)
	return &models.QualityScores{
		Quality:         floor(100 - penalty),
		Security:        floor(100 - float64(c.Security*10)),
		Reliability:     floor(100 - float64(c.Reliability*5)),
		Maintainability: floor(100 - float64(c.Maintainability*3)),
	}
}

// CancelScan stops a running scan. Tasks already in flight run to their next
// checkpoint and settle as cancelled; pending tasks never start.
func (e *Engine) CancelScan(ctx context.Context, scanID string) (*models.Scan, error) {
	t, ok := e.board.get(scanID)
	if !ok {
		scan, err := e.store.GetScan(ctx, scanID)
		if err != nil {
			return nil, err
		}
		return nil, models.Conflictf("scan %s is not running (status %s)", scanID, scan.Status)
	}
	t.markCancelled()
	e.cancelContext(scanID)

	scan, err := e.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	e.logger.WithField("scan_id", scanID).Info("Scan cancellation requested")
	return scan, nil
}

func (e *Engine) cancelContext(scanID string) {
	e.cancelMu.Lock()
	cancel, ok := e.cancels[scanID]
	e.cancelMu.Unlock()
	if ok {
		cancel()
	}
}

func (e *Engine) dropCancel(scanID string) {
	e.cancelMu.Lock()
	if cancel, ok := e.cancels[scanID]; ok {
		cancel()
		delete(e.cancels, scanID)
	}
	e.cancelMu.Unlock()
}

// GetProgress reports whole-percentage completion. Live scans read the
// in-memory tracker so the answer never lags behind task completions.
func (e *Engine) GetProgress(ctx context.Context, scanID string) (int, error) {
	scan, err := e.GetScan(ctx, scanID)
	if err != nil {
		return 0, err
	}
	return scan.Progress(), nil
}

// GetScan returns the scan with live counters overlaid while it is running.
func (e *Engine) GetScan(ctx context.Context, scanID string) (*models.Scan, error) {
	scan, err := e.store.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if t, ok := e.board.get(scanID); ok && !scan.Status.Terminal() {
		t.apply(scan)
	}
	return scan, nil
}

func (e *Engine) ListScans(ctx context.Context) ([]*models.Scan, error) {
	return e.store.ListScans(ctx)
}

func (e *Engine) LatestScan(ctx context.Context, serviceID string, kind models.ScanKind) (*models.Scan, error) {
	return e.store.LatestScan(ctx, serviceID, kind)
}

func (e *Engine) ListTasks(ctx context.Context, scanID string) ([]*models.ScanTask, error) {
	if _, err := e.store.GetScan(ctx, scanID); err != nil {
		return nil, err
	}
	return e.store.ListTasks(ctx, scanID)
}

// GetIssues lists a scan's quality issues, optionally filtered by category
// and severity. Both filters apply conjunctively when supplied.
func (e *Engine) GetIssues(ctx context.Context, scanID, category, severity string) ([]*models.CodeQualityIssue, error) {
	if _, err := e.store.GetScan(ctx, scanID); err != nil {
		return nil, err
	}
	return e.store.ListIssues(ctx, scanID, category, severity)
}

func (e *Engine) GetVulnerabilities(ctx context.Context, dependencyID string) ([]*models.Vulnerability, error) {
	if _, err := e.store.GetDependency(ctx, dependencyID); err != nil {
		return nil, err
	}
	return e.store.ListVulnerabilities(ctx, dependencyID)
}

func (e *Engine) ListDependencies(ctx context.Context, serviceID, scanID string) ([]*models.Dependency, error) {
	return e.store.ListDependencies(ctx, serviceID, scanID)
}

// Shutdown cancels all in-flight scan contexts and drains the worker pool.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.baseClose()
	return e.pool.Shutdown(ctx)
}
