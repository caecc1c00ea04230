package models

import (
	"strings"
	"time"
)

const (
	CategorySecurity        = "SECURITY"
	CategoryReliability     = "RELIABILITY"
	CategoryMaintainability = "MAINTAINABILITY"
	CategoryCodeSmell       = "CODE_SMELL"
)

const (
	SeverityBlocker  = "BLOCKER"
	SeverityCritical = "CRITICAL"
	SeverityMajor    = "MAJOR"
	SeverityMinor    = "MINOR"
	SeverityInfo     = "INFO"
)

// MapSeverity folds external severity vocabularies into the issue scale.
func MapSeverity(severity string) string {
	switch strings.ToUpper(severity) {
	case "CRITICAL", "BLOCKER":
		return SeverityCritical
	case "HIGH", "MAJOR":
		return SeverityMajor
	case "MEDIUM":
		return SeverityMinor
	default:
		return SeverityInfo
	}
}

// CategoryForItemKey derives an issue category from a check item key such as
// "security_sql_injection". Unrecognized prefixes land in CODE_SMELL.
func CategoryForItemKey(key string) string {
	groupKey := key
	if i := strings.IndexByte(key, '_'); i > 0 {
		groupKey = key[:i]
	}
	switch strings.ToLower(groupKey) {
	case "security", "injection", "auth":
		return CategorySecurity
	case "reliability", "error", "exception":
		return CategoryReliability
	case "maintainability", "complexity", "duplication":
		return CategoryMaintainability
	default:
		return CategoryCodeSmell
	}
}

// CodeQualityIssue is one finding from a checker run. Append-only once written.
type CodeQualityIssue struct {
	ID          string `json:"id"`
	ScanID      string `json:"scan_id"`
	CheckItemID string `json:"check_item_id,omitempty"`

	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`

	Category string `json:"category"`
	Severity string `json:"severity"`

	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`

	Message     string `json:"message"`
	Suggestion  string `json:"suggestion,omitempty"`
	CodeSnippet string `json:"code_snippet,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
