package models

import "time"

const (
	LicenseStatusUnknown   = "UNKNOWN"
	LicenseStatusApproved  = "APPROVED"
	LicenseStatusViolation = "VIOLATION"
)

// Dependency is one resolved manifest entry for a service. A scan snapshot is
// immutable: re-resolving writes new rows instead of mutating old ones so
// vulnerability counts on past scans stay historically accurate.
type Dependency struct {
	ID        string `json:"id"`
	ServiceID string `json:"service_id"`
	ScanID    string `json:"scan_id"`

	Name       string `json:"name"`
	Version    string `json:"version"`
	GroupID    string `json:"group_id,omitempty"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Type       string `json:"type"`
	Scope      string `json:"scope,omitempty"`
	PURL       string `json:"purl"`

	License       string `json:"license,omitempty"`
	LicenseStatus string `json:"license_status"`

	FilePath string `json:"file_path"`
	Checksum string `json:"checksum,omitempty"`

	VulnerabilityCount int `json:"vulnerability_count"`

	CreatedAt time.Time `json:"created_at"`
}

// Key identifies a dependency for vulnerability matching.
func (d Dependency) Key() string {
	if d.PURL != "" {
		return d.PURL
	}
	return d.Name + "@" + d.Version
}

const (
	VulnStatusOpen    = "open"
	VulnStatusFixed   = "fixed"
	VulnStatusIgnored = "ignored"
)

// Vulnerability is one matched advisory against a dependency.
type Vulnerability struct {
	ID           string `json:"id"`
	DependencyID string `json:"dependency_id"`

	CVE         string  `json:"cve"`
	CWE         string  `json:"cwe,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Severity    string  `json:"severity"`
	CVSSScore   float64 `json:"cvss_score"`

	AffectedVersion string `json:"affected_version"`
	FixedVersion    string `json:"fixed_version"`
	References      string `json:"references,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
