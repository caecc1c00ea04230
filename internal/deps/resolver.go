// Package deps resolves a service's manifest files into a dependency list.
// Resolution is pure and deterministic: the same file snapshot always yields
// the same ordered list.
package deps

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"github.com/codescope-io/codescope/pkg/models"
)

// Parser handles one ecosystem's manifest format.
type Parser interface {
	Ecosystem() string
	Supports(snapshot models.FileSnapshot) bool
	Parse(serviceID string, snapshot models.FileSnapshot) ([]models.Dependency, error)
}

type Resolver struct {
	parsers  []Parser
	licenses models.LicenseConfig
	logger   *logrus.Logger
}

func NewResolver(licenses models.LicenseConfig, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{
		parsers: []Parser{
			&MavenParser{},
			&NpmParser{},
			&PythonParser{},
			&GoParser{},
		},
		licenses: licenses,
		logger:   logger,
	}
}

// Resolve runs every parser that recognizes the snapshot and concatenates
// their output in fixed parser order. It fails only when no parser recognizes
// any manifest at all; a single parser failing is logged and skipped.
func (r *Resolver) Resolve(serviceID string, snapshot models.FileSnapshot) ([]models.Dependency, error) {
	var all []models.Dependency
	supported := false

	for _, p := range r.parsers {
		if !p.Supports(snapshot) {
			continue
		}
		supported = true
		parsed, err := p.Parse(serviceID, snapshot)
		if err != nil {
			r.logger.Errorf("%s parser failed for service %s: %v", p.Ecosystem(), serviceID, err)
			continue
		}
		r.logger.Infof("Resolved %d %s dependencies for service %s", len(parsed), p.Ecosystem(), serviceID)
		all = append(all, parsed...)
	}

	if !supported {
		return nil, models.Parsef("no recognizable manifest in snapshot of service %s", serviceID)
	}

	seen := make(map[string]bool, len(all))
	out := all[:0]
	for _, d := range all {
		key := d.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		d.Checksum = checksum(snapshot[d.FilePath])
		d.LicenseStatus = r.licenseStatus(d.License)
		out = append(out, d)
	}
	return out, nil
}

func (r *Resolver) licenseStatus(license string) string {
	if license == "" {
		return models.LicenseStatusUnknown
	}
	for _, denied := range r.licenses.Denied {
		if strings.EqualFold(license, denied) {
			return models.LicenseStatusViolation
		}
	}
	for _, approved := range r.licenses.Approved {
		if strings.EqualFold(license, approved) {
			return models.LicenseStatusApproved
		}
	}
	return models.LicenseStatusUnknown
}

func checksum(content string) string {
	if content == "" {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.HashString(content))
}

// MapEcosystem translates a dependency type into the vulnerability source's
// ecosystem name. Unknown types yield "" and are skipped by the matcher.
func MapEcosystem(depType string) string {
	switch strings.ToLower(depType) {
	case "maven":
		return "Maven"
	case "npm":
		return "npm"
	case "pypi":
		return "PyPI"
	case "golang":
		return "Go"
	}
	return ""
}

// ValidVersion reports whether a version string is concrete enough to match
// against advisories.
func ValidVersion(version string) bool {
	switch strings.ToLower(version) {
	case "", "managed", "unknown", "latest":
		return false
	}
	return true
}
