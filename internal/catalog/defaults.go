package catalog

import "github.com/codescope-io/codescope/pkg/models"

// defaultGroups is the catalog shipped with the binary. Item keys follow the
// group-prefix convention used to derive issue categories.
func defaultGroups() []models.CheckGroup {
	return []models.CheckGroup{
		{
			ID:        "grp-security",
			Key:       "security",
			Name:      "Security",
			SortOrder: 1,
			Enabled:   true,
			Items: []models.CheckItem{
				{
					ID: "chk-sec-secrets", GroupID: "grp-security",
					ItemKey: "security_hardcoded_secrets", ItemName: "Hardcoded secrets",
					Description:    "Credentials or API keys embedded in source",
					PromptTemplate: "Review the code below for hardcoded passwords, tokens or keys.\n{{code}}",
					Severity:       models.SeverityCritical, SortOrder: 1, Enabled: true,
				},
				{
					ID: "chk-sec-sqli", GroupID: "grp-security",
					ItemKey: "security_sql_injection", ItemName: "SQL injection",
					Description:    "SQL statements built by string concatenation",
					PromptTemplate: "Review the code below for SQL built from untrusted input.\n{{code}}",
					Severity:       models.SeverityCritical, SortOrder: 2, Enabled: true,
				},
				{
					ID: "chk-sec-exec", GroupID: "grp-security",
					ItemKey: "security_command_exec", ItemName: "Dynamic command execution",
					Description:    "exec/eval of runtime-assembled commands",
					PromptTemplate: "Review the code below for unsafe dynamic command execution.\n{{code}}",
					Severity:       models.SeverityMajor, SortOrder: 3, Enabled: true,
				},
				{
					ID: "chk-sec-crypto", GroupID: "grp-security",
					ItemKey: "security_weak_crypto", ItemName: "Weak cryptography",
					Description:    "MD5, SHA-1, DES and other deprecated primitives",
					PromptTemplate: "Review the code below for weak cryptographic primitives.\n{{code}}",
					Severity:       models.SeverityMajor, SortOrder: 4, Enabled: true,
				},
			},
		},
		{
			ID:        "grp-reliability",
			Key:       "reliability",
			Name:      "Reliability",
			SortOrder: 2,
			Enabled:   true,
			Items: []models.CheckItem{
				{
					ID: "chk-rel-swallow", GroupID: "grp-reliability",
					ItemKey: "reliability_swallowed_errors", ItemName: "Swallowed errors",
					Description:    "Errors caught or returned but never handled",
					PromptTemplate: "Review the code below for ignored or swallowed errors.\n{{code}}",
					Severity:       models.SeverityMajor, SortOrder: 1, Enabled: true,
				},
				{
					ID: "chk-rel-sleep", GroupID: "grp-reliability",
					ItemKey: "reliability_blocking_sleep", ItemName: "Blocking sleeps",
					Description:    "Sleep calls on hot paths",
					PromptTemplate: "Review the code below for blocking sleep calls.\n{{code}}",
					Severity:       models.SeverityMinor, SortOrder: 2, Enabled: true,
				},
			},
		},
		{
			ID:        "grp-maintainability",
			Key:       "maintainability",
			Name:      "Maintainability",
			SortOrder: 3,
			Enabled:   true,
			Items: []models.CheckItem{
				{
					ID: "chk-main-longline", GroupID: "grp-maintainability",
					ItemKey: "maintainability_long_lines", ItemName: "Long lines",
					Description:    "Lines beyond 120 characters",
					PromptTemplate: "Review the code below for readability problems.\n{{code}}",
					Severity:       models.SeverityMinor, SortOrder: 1, Enabled: true,
				},
				{
					ID: "chk-main-todo", GroupID: "grp-maintainability",
					ItemKey: "maintainability_todo", ItemName: "Stale TODO markers",
					Description:    "TODO/FIXME/HACK markers left in source",
					PromptTemplate: "Review the code below for leftover TODO or FIXME markers.\n{{code}}",
					Severity:       models.SeverityInfo, SortOrder: 2, Enabled: true,
				},
			},
		},
		{
			ID:        "grp-smell",
			Key:       "smell",
			Name:      "Code smells",
			SortOrder: 4,
			Enabled:   true,
			Items: []models.CheckItem{
				{
					ID: "chk-smell-print", GroupID: "grp-smell",
					ItemKey: "smell_console_output", ItemName: "Console output",
					Description:    "Print statements instead of structured logging",
					PromptTemplate: "Review the code below for raw console output.\n{{code}}",
					Severity:       models.SeverityMinor, SortOrder: 1, Enabled: true,
				},
			},
		},
	}
}
