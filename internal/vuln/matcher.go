// Package vuln matches resolved dependencies against a vulnerability data
// source. Matching is best effort: a dependency the source does not know
// simply yields no vulnerabilities.
package vuln

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/codescope-io/codescope/pkg/models"
)

// Matcher is the collaborator contract consumed by the scan engine. The
// returned map is keyed by Dependency.Key(). Only total unavailability of the
// data source is an error.
type Matcher interface {
	Match(ctx context.Context, deps []models.Dependency) (map[string][]models.Vulnerability, error)
}

// EstimateCVSS supplies a score when the advisory carries none.
func EstimateCVSS(severity string) float64 {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return 9.5
	case "HIGH":
		return 7.5
	case "MEDIUM":
		return 5.0
	case "LOW":
		return 2.5
	}
	return 5.0
}

// rangeContains reports whether version sits inside [introduced, fixed).
// Unparseable versions fall back to inclusion, matching the source's own
// affected-list semantics.
func rangeContains(version, introduced, fixed string) bool {
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return true
	}
	if introduced != "" && introduced != "0" {
		iv, err := semver.NewVersion(strings.TrimPrefix(introduced, "v"))
		if err == nil && v.LessThan(iv) {
			return false
		}
	}
	if fixed != "" {
		fv, err := semver.NewVersion(strings.TrimPrefix(fixed, "v"))
		if err == nil && !v.LessThan(fv) {
			return false
		}
	}
	return true
}
