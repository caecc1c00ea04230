// Package quality applies check items against a service file snapshot. The
// Checker contract hides the implementation: the built-in one is rule based,
// model-driven implementations plug in behind the same interface.
package quality

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codescope-io/codescope/pkg/models"
)

// Checker produces issues for one check item over a read-only snapshot. It
// must be safe to call concurrently for different items against the same
// snapshot.
type Checker interface {
	Check(ctx context.Context, snapshot models.FileSnapshot, item models.CheckItem) ([]models.CodeQualityIssue, error)
}

var sourceExtensions = map[string]bool{
	".java": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".go": true, ".vue": true, ".kt": true, ".scala": true,
	".rs": true, ".c": true, ".cpp": true, ".h": true, ".cs": true,
}

// RuleChecker is the built-in line-rule implementation keyed by item key.
type RuleChecker struct {
	logger *logrus.Logger
}

func NewRuleChecker(logger *logrus.Logger) *RuleChecker {
	if logger == nil {
		logger = logrus.New()
	}
	return &RuleChecker{logger: logger}
}

func (c *RuleChecker) Check(ctx context.Context, snapshot models.FileSnapshot, item models.CheckItem) ([]models.CodeQualityIssue, error) {
	rule, ok := rulesByKey[item.ItemKey]
	if !ok {
		return nil, models.Checkf("no rule for check item %q", item.ItemKey)
	}

	var issues []models.CodeQualityIssue
	for _, filePath := range snapshot.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !sourceExtensions[strings.ToLower(path.Ext(filePath))] {
			continue
		}
		content := snapshot[filePath]
		for i, line := range strings.Split(content, "\n") {
			finding, ok := rule(line)
			if !ok {
				continue
			}
			severity := finding.severity
			if severity == "" {
				severity = models.MapSeverity(item.Severity)
			}
			snippet := strings.TrimSpace(line)
			if len(snippet) > 200 {
				snippet = snippet[:200]
			}
			issues = append(issues, models.CodeQualityIssue{
				CheckItemID: item.ID,
				FilePath:    filePath,
				Line:        i + 1,
				Column:      1,
				Category:    models.CategoryForItemKey(item.ItemKey),
				Severity:    severity,
				RuleID:      item.ItemKey,
				RuleName:    item.ItemName,
				Message:     finding.message,
				Suggestion:  finding.suggestion,
				CodeSnippet: snippet,
				Status:      "OPEN",
				CreatedAt:   time.Now().UTC(),
			})
		}
	}
	return issues, nil
}

// MaxSeverity returns the highest severity present in a set of issues.
func MaxSeverity(issues []models.CodeQualityIssue) string {
	rank := map[string]int{
		models.SeverityInfo:     1,
		models.SeverityMinor:    2,
		models.SeverityMajor:    3,
		models.SeverityCritical: 4,
		models.SeverityBlocker:  5,
	}
	best, bestRank := "", 0
	for _, issue := range issues {
		if r := rank[issue.Severity]; r > bestRank {
			best, bestRank = issue.Severity, r
		}
	}
	return best
}
