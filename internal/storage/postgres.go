package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/codescope-io/codescope/pkg/models"
)

// PostgresStore persists scans in PostgreSQL via lib/pq.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = logrus.New()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, models.Persistencef("open postgres: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &PostgresStore{db: db, logger: logger}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			service_ids TEXT[] NOT NULL,
			check_item_ids TEXT[],
			total_tasks INT NOT NULL DEFAULT 0,
			completed_tasks INT NOT NULL DEFAULT 0,
			critical_count INT NOT NULL DEFAULT 0,
			major_count INT NOT NULL DEFAULT 0,
			minor_count INT NOT NULL DEFAULT 0,
			info_count INT NOT NULL DEFAULT 0,
			security_issues INT NOT NULL DEFAULT 0,
			reliability_issues INT NOT NULL DEFAULT 0,
			maintainability_issues INT NOT NULL DEFAULT 0,
			code_smell_issues INT NOT NULL DEFAULT 0,
			total_dependencies INT NOT NULL DEFAULT 0,
			vulnerable_dependencies INT NOT NULL DEFAULT 0,
			license_violations INT NOT NULL DEFAULT 0,
			quality_score DOUBLE PRECISION,
			security_score DOUBLE PRECISION,
			reliability_score DOUBLE PRECISION,
			maintainability_score DOUBLE PRECISION,
			current_phase TEXT,
			report_path TEXT,
			error TEXT,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS scan_tasks (
			id TEXT PRIMARY KEY,
			scan_id TEXT NOT NULL REFERENCES scans(id),
			service_id TEXT NOT NULL,
			check_item_id TEXT,
			check_item_key TEXT,
			status TEXT NOT NULL,
			priority INT NOT NULL,
			issue_count INT NOT NULL DEFAULT 0,
			max_severity TEXT,
			summary TEXT,
			error TEXT,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_tasks_scan ON scan_tasks(scan_id)`,
		`CREATE TABLE IF NOT EXISTS dependencies (
			id TEXT PRIMARY KEY,
			service_id TEXT NOT NULL,
			scan_id TEXT NOT NULL,
			name TEXT NOT NULL,
			version TEXT NOT NULL,
			group_id TEXT,
			artifact_id TEXT,
			type TEXT NOT NULL,
			scope TEXT,
			purl TEXT NOT NULL,
			license TEXT,
			license_status TEXT NOT NULL,
			file_path TEXT,
			checksum TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dependencies_service ON dependencies(service_id)`,
		`CREATE TABLE IF NOT EXISTS vulnerabilities (
			id TEXT PRIMARY KEY,
			dependency_id TEXT NOT NULL REFERENCES dependencies(id),
			cve TEXT NOT NULL,
			cwe TEXT,
			title TEXT NOT NULL,
			description TEXT,
			severity TEXT NOT NULL,
			cvss_score DOUBLE PRECISION NOT NULL,
			affected_version TEXT,
			fixed_version TEXT,
			refs TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vulnerabilities_dep ON vulnerabilities(dependency_id)`,
		`CREATE TABLE IF NOT EXISTS quality_issues (
			id TEXT PRIMARY KEY,
			scan_id TEXT NOT NULL,
			check_item_id TEXT,
			file_path TEXT NOT NULL,
			line INT NOT NULL,
			col INT NOT NULL,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			rule_id TEXT,
			rule_name TEXT,
			message TEXT NOT NULL,
			suggestion TEXT,
			code_snippet TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_quality_issues_scan ON quality_issues(scan_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return models.Persistencef("ensure schema: %v", err)
		}
	}
	return nil
}

const scanColumns = `id, kind, status, service_ids, check_item_ids, total_tasks, completed_tasks,
	critical_count, major_count, minor_count, info_count,
	security_issues, reliability_issues, maintainability_issues, code_smell_issues,
	total_dependencies, vulnerable_dependencies, license_violations,
	quality_score, security_score, reliability_score, maintainability_score,
	current_phase, report_path, error, started_at, completed_at`

func (s *PostgresStore) CreateScan(ctx context.Context, scan *models.Scan) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO scans (`+scanColumns+`) VALUES
		($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		scan.ID, scan.Kind, scan.Status, pq.Array(scan.ServiceIDs), pq.Array(scan.CheckItemIDs),
		scan.TotalTasks, scan.CompletedTasks,
		scan.Severities.Critical, scan.Severities.Major, scan.Severities.Minor, scan.Severities.Info,
		scan.Categories.Security, scan.Categories.Reliability, scan.Categories.Maintainability, scan.Categories.CodeSmell,
		scan.Security.TotalDependencies, scan.Security.VulnerableDependencies, scan.Security.LicenseViolations,
		scoreOrNil(scan.Scores, func(q models.QualityScores) float64 { return q.Quality }),
		scoreOrNil(scan.Scores, func(q models.QualityScores) float64 { return q.Security }),
		scoreOrNil(scan.Scores, func(q models.QualityScores) float64 { return q.Reliability }),
		scoreOrNil(scan.Scores, func(q models.QualityScores) float64 { return q.Maintainability }),
		scan.CurrentPhase, scan.ReportPath, scan.Error, scan.StartedAt, scan.CompletedAt)
	if err != nil {
		return models.Persistencef("insert scan: %v", err)
	}
	return nil
}

func scoreOrNil(scores *models.QualityScores, pick func(models.QualityScores) float64) any {
	if scores == nil {
		return nil
	}
	return pick(*scores)
}

func (s *PostgresStore) scanRow(row interface{ Scan(...any) error }) (*models.Scan, error) {
	var scan models.Scan
	var serviceIDs, checkItemIDs pq.StringArray
	var quality, security, reliability, maintainability sql.NullFloat64
	var phase, report, errMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&scan.ID, &scan.Kind, &scan.Status, &serviceIDs, &checkItemIDs,
		&scan.TotalTasks, &scan.CompletedTasks,
		&scan.Severities.Critical, &scan.Severities.Major, &scan.Severities.Minor, &scan.Severities.Info,
		&scan.Categories.Security, &scan.Categories.Reliability, &scan.Categories.Maintainability, &scan.Categories.CodeSmell,
		&scan.Security.TotalDependencies, &scan.Security.VulnerableDependencies, &scan.Security.LicenseViolations,
		&quality, &security, &reliability, &maintainability,
		&phase, &report, &errMsg, &scan.StartedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	scan.ServiceIDs = []string(serviceIDs)
	scan.CheckItemIDs = []string(checkItemIDs)
	if quality.Valid {
		scan.Scores = &models.QualityScores{
			Quality:         quality.Float64,
			Security:        security.Float64,
			Reliability:     reliability.Float64,
			Maintainability: maintainability.Float64,
		}
	}
	scan.CurrentPhase = phase.String
	scan.ReportPath = report.String
	scan.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		scan.CompletedAt = &t
	}
	return &scan, nil
}

func (s *PostgresStore) GetScan(ctx context.Context, id string) (*models.Scan, error) {
	scan, err := s.scanRow(s.db.QueryRowContext(ctx, `SELECT `+scanColumns+` FROM scans WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("scan %s", id)
	}
	if err != nil {
		return nil, models.Persistencef("get scan: %v", err)
	}
	return scan, nil
}

func (s *PostgresStore) queryScans(ctx context.Context, query string, args ...any) ([]*models.Scan, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Persistencef("query scans: %v", err)
	}
	defer rows.Close()

	var out []*models.Scan
	for rows.Next() {
		scan, err := s.scanRow(rows)
		if err != nil {
			return nil, models.Persistencef("scan row: %v", err)
		}
		out = append(out, scan)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListScans(ctx context.Context) ([]*models.Scan, error) {
	return s.queryScans(ctx, `SELECT `+scanColumns+` FROM scans ORDER BY started_at DESC`)
}

func (s *PostgresStore) LatestScan(ctx context.Context, serviceID string, kind models.ScanKind) (*models.Scan, error) {
	scans, err := s.queryScans(ctx,
		`SELECT `+scanColumns+` FROM scans WHERE kind = $1 AND $2 = ANY(service_ids)
		 ORDER BY started_at DESC LIMIT 1`, kind, serviceID)
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, models.NotFoundf("no %s scan for service %s", kind, serviceID)
	}
	return scans[0], nil
}

func (s *PostgresStore) FindActiveScan(ctx context.Context, serviceID string, kind models.ScanKind) (*models.Scan, error) {
	scans, err := s.queryScans(ctx,
		`SELECT `+scanColumns+` FROM scans
		 WHERE kind = $1 AND $2 = ANY(service_ids) AND status IN ('pending', 'running')
		 LIMIT 1`, kind, serviceID)
	if err != nil {
		return nil, err
	}
	if len(scans) == 0 {
		return nil, nil
	}
	return scans[0], nil
}

func (s *PostgresStore) UpdateScan(ctx context.Context, scan *models.Scan) error {
	res, err := s.db.ExecContext(ctx, `UPDATE scans SET
		status=$2, total_tasks=$3, completed_tasks=$4,
		critical_count=$5, major_count=$6, minor_count=$7, info_count=$8,
		security_issues=$9, reliability_issues=$10, maintainability_issues=$11, code_smell_issues=$12,
		total_dependencies=$13, vulnerable_dependencies=$14, license_violations=$15,
		quality_score=$16, security_score=$17, reliability_score=$18, maintainability_score=$19,
		current_phase=$20, report_path=$21, error=$22, completed_at=$23
		WHERE id=$1`,
		scan.ID, scan.Status, scan.TotalTasks, scan.CompletedTasks,
		scan.Severities.Critical, scan.Severities.Major, scan.Severities.Minor, scan.Severities.Info,
		scan.Categories.Security, scan.Categories.Reliability, scan.Categories.Maintainability, scan.Categories.CodeSmell,
		scan.Security.TotalDependencies, scan.Security.VulnerableDependencies, scan.Security.LicenseViolations,
		scoreOrNil(scan.Scores, func(q models.QualityScores) float64 { return q.Quality }),
		scoreOrNil(scan.Scores, func(q models.QualityScores) float64 { return q.Security }),
		scoreOrNil(scan.Scores, func(q models.QualityScores) float64 { return q.Reliability }),
		scoreOrNil(scan.Scores, func(q models.QualityScores) float64 { return q.Maintainability }),
		scan.CurrentPhase, scan.ReportPath, scan.Error, scan.CompletedAt)
	if err != nil {
		return models.Persistencef("update scan: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFoundf("scan %s", scan.ID)
	}
	return nil
}

func (s *PostgresStore) CompareAndSetScanStatus(ctx context.Context, scanID string, from, to models.ScanStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scans SET status=$3 WHERE id=$1 AND status=$2`, scanID, from, to)
	if err != nil {
		return false, models.Persistencef("cas scan status: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, models.Persistencef("cas scan status: %v", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) CreateTasks(ctx context.Context, tasks []*models.ScanTask) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Persistencef("begin: %v", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO scan_tasks
		(id, scan_id, service_id, check_item_id, check_item_key, status, priority,
		 issue_count, max_severity, summary, error, started_at, completed_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`)
	if err != nil {
		return models.Persistencef("prepare: %v", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if _, err := stmt.ExecContext(ctx, t.ID, t.ScanID, t.ServiceID, t.CheckItemID, t.CheckItemKey,
			t.Status, t.Priority, t.IssueCount, t.MaxSeverity, t.Summary, t.Error,
			t.StartedAt, t.CompletedAt, t.CreatedAt); err != nil {
			return models.Persistencef("insert task: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Persistencef("commit tasks: %v", err)
	}
	return nil
}

func (s *PostgresStore) taskRow(row interface{ Scan(...any) error }) (*models.ScanTask, error) {
	var t models.ScanTask
	var checkItemID, checkItemKey, maxSeverity, summary, errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(&t.ID, &t.ScanID, &t.ServiceID, &checkItemID, &checkItemKey,
		&t.Status, &t.Priority, &t.IssueCount, &maxSeverity, &summary, &errMsg,
		&startedAt, &completedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.CheckItemID = checkItemID.String
	t.CheckItemKey = checkItemKey.String
	t.MaxSeverity = maxSeverity.String
	t.Summary = summary.String
	t.Error = errMsg.String
	if startedAt.Valid {
		v := startedAt.Time
		t.StartedAt = &v
	}
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	return &t, nil
}

const taskColumns = `id, scan_id, service_id, check_item_id, check_item_key, status, priority,
	issue_count, max_severity, summary, error, started_at, completed_at, created_at`

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*models.ScanTask, error) {
	task, err := s.taskRow(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM scan_tasks WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("task %s", id)
	}
	if err != nil {
		return nil, models.Persistencef("get task: %v", err)
	}
	return task, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, scanID string) ([]*models.ScanTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM scan_tasks WHERE scan_id=$1 ORDER BY priority`, scanID)
	if err != nil {
		return nil, models.Persistencef("list tasks: %v", err)
	}
	defer rows.Close()

	var out []*models.ScanTask
	for rows.Next() {
		task, err := s.taskRow(rows)
		if err != nil {
			return nil, models.Persistencef("task row: %v", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task *models.ScanTask) error {
	res, err := s.db.ExecContext(ctx, `UPDATE scan_tasks SET
		status=$2, issue_count=$3, max_severity=$4, summary=$5, error=$6,
		started_at=$7, completed_at=$8 WHERE id=$1`,
		task.ID, task.Status, task.IssueCount, task.MaxSeverity, task.Summary,
		task.Error, task.StartedAt, task.CompletedAt)
	if err != nil {
		return models.Persistencef("update task: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.NotFoundf("task %s", task.ID)
	}
	return nil
}

func (s *PostgresStore) InsertDependencies(ctx context.Context, deps []*models.Dependency) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Persistencef("begin: %v", err)
	}
	defer tx.Rollback()

	for _, d := range deps {
		if _, err := tx.ExecContext(ctx, `INSERT INTO dependencies
			(id, service_id, scan_id, name, version, group_id, artifact_id, type, scope,
			 purl, license, license_status, file_path, checksum, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			d.ID, d.ServiceID, d.ScanID, d.Name, d.Version, d.GroupID, d.ArtifactID,
			d.Type, d.Scope, d.PURL, d.License, d.LicenseStatus, d.FilePath, d.Checksum, d.CreatedAt); err != nil {
			return models.Persistencef("insert dependency: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Persistencef("commit dependencies: %v", err)
	}
	return nil
}

func (s *PostgresStore) GetDependency(ctx context.Context, id string) (*models.Dependency, error) {
	var d models.Dependency
	var groupID, artifactID, scope, license, filePath, checksum sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, service_id, scan_id, name, version, group_id,
		artifact_id, type, scope, purl, license, license_status, file_path, checksum, created_at
		FROM dependencies WHERE id=$1`, id).
		Scan(&d.ID, &d.ServiceID, &d.ScanID, &d.Name, &d.Version, &groupID, &artifactID,
			&d.Type, &scope, &d.PURL, &license, &d.LicenseStatus, &filePath, &checksum, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFoundf("dependency %s", id)
	}
	if err != nil {
		return nil, models.Persistencef("get dependency: %v", err)
	}
	d.GroupID, d.ArtifactID, d.Scope = groupID.String, artifactID.String, scope.String
	d.License, d.FilePath, d.Checksum = license.String, filePath.String, checksum.String
	return &d, nil
}

func (s *PostgresStore) ListDependencies(ctx context.Context, serviceID, scanID string) ([]*models.Dependency, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT d.id, d.service_id, d.scan_id, d.name, d.version,
		d.group_id, d.artifact_id, d.type, d.scope, d.purl, d.license, d.license_status,
		d.file_path, d.checksum, d.created_at,
		(SELECT COUNT(*) FROM vulnerabilities v WHERE v.dependency_id = d.id)
		FROM dependencies d
		WHERE ($1 = '' OR d.service_id = $1) AND ($2 = '' OR d.scan_id = $2)
		ORDER BY d.name, d.version`, serviceID, scanID)
	if err != nil {
		return nil, models.Persistencef("list dependencies: %v", err)
	}
	defer rows.Close()

	var out []*models.Dependency
	for rows.Next() {
		var d models.Dependency
		var groupID, artifactID, scope, license, filePath, checksum sql.NullString
		if err := rows.Scan(&d.ID, &d.ServiceID, &d.ScanID, &d.Name, &d.Version, &groupID, &artifactID,
			&d.Type, &scope, &d.PURL, &license, &d.LicenseStatus, &filePath, &checksum,
			&d.CreatedAt, &d.VulnerabilityCount); err != nil {
			return nil, models.Persistencef("dependency row: %v", err)
		}
		d.GroupID, d.ArtifactID, d.Scope = groupID.String, artifactID.String, scope.String
		d.License, d.FilePath, d.Checksum = license.String, filePath.String, checksum.String
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertVulnerabilities(ctx context.Context, vulns []*models.Vulnerability) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Persistencef("begin: %v", err)
	}
	defer tx.Rollback()

	for _, v := range vulns {
		if _, err := tx.ExecContext(ctx, `INSERT INTO vulnerabilities
			(id, dependency_id, cve, cwe, title, description, severity, cvss_score,
			 affected_version, fixed_version, refs, status, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			v.ID, v.DependencyID, v.CVE, v.CWE, v.Title, v.Description, v.Severity,
			v.CVSSScore, v.AffectedVersion, v.FixedVersion, v.References, v.Status, v.CreatedAt); err != nil {
			return models.Persistencef("insert vulnerability: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Persistencef("commit vulnerabilities: %v", err)
	}
	return nil
}

func (s *PostgresStore) ListVulnerabilities(ctx context.Context, dependencyID string) ([]*models.Vulnerability, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, dependency_id, cve, cwe, title, description,
		severity, cvss_score, affected_version, fixed_version, refs, status, created_at
		FROM vulnerabilities WHERE dependency_id=$1 ORDER BY cvss_score DESC`, dependencyID)
	if err != nil {
		return nil, models.Persistencef("list vulnerabilities: %v", err)
	}
	defer rows.Close()

	var out []*models.Vulnerability
	for rows.Next() {
		var v models.Vulnerability
		var cwe, description, affected, fixed, refs sql.NullString
		if err := rows.Scan(&v.ID, &v.DependencyID, &v.CVE, &cwe, &v.Title, &description,
			&v.Severity, &v.CVSSScore, &affected, &fixed, &refs, &v.Status, &v.CreatedAt); err != nil {
			return nil, models.Persistencef("vulnerability row: %v", err)
		}
		v.CWE, v.Description = cwe.String, description.String
		v.AffectedVersion, v.FixedVersion, v.References = affected.String, fixed.String, refs.String
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) InsertIssues(ctx context.Context, issues []*models.CodeQualityIssue) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Persistencef("begin: %v", err)
	}
	defer tx.Rollback()

	for _, issue := range issues {
		if _, err := tx.ExecContext(ctx, `INSERT INTO quality_issues
			(id, scan_id, check_item_id, file_path, line, col, category, severity,
			 rule_id, rule_name, message, suggestion, code_snippet, status, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			issue.ID, issue.ScanID, issue.CheckItemID, issue.FilePath, issue.Line, issue.Column,
			issue.Category, issue.Severity, issue.RuleID, issue.RuleName,
			issue.Message, issue.Suggestion, issue.CodeSnippet, issue.Status, issue.CreatedAt); err != nil {
			return models.Persistencef("insert issue: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Persistencef("commit issues: %v", err)
	}
	return nil
}

func (s *PostgresStore) ListIssues(ctx context.Context, scanID, category, severity string) ([]*models.CodeQualityIssue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, scan_id, check_item_id, file_path, line, col,
		category, severity, rule_id, rule_name, message, suggestion, code_snippet, status, created_at
		FROM quality_issues
		WHERE scan_id=$1 AND ($2 = '' OR category = $2) AND ($3 = '' OR severity = $3)
		ORDER BY file_path, line`, scanID, category, severity)
	if err != nil {
		return nil, models.Persistencef("list issues: %v", err)
	}
	defer rows.Close()

	var out []*models.CodeQualityIssue
	for rows.Next() {
		var issue models.CodeQualityIssue
		var checkItemID, ruleID, ruleName, suggestion, snippet sql.NullString
		if err := rows.Scan(&issue.ID, &issue.ScanID, &checkItemID, &issue.FilePath, &issue.Line,
			&issue.Column, &issue.Category, &issue.Severity, &ruleID, &ruleName,
			&issue.Message, &suggestion, &snippet, &issue.Status, &issue.CreatedAt); err != nil {
			return nil, models.Persistencef("issue row: %v", err)
		}
		issue.CheckItemID, issue.RuleID, issue.RuleName = checkItemID.String, ruleID.String, ruleName.String
		issue.Suggestion, issue.CodeSnippet = suggestion.String, snippet.String
		out = append(out, &issue)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}
