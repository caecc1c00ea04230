package deps

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/codescope-io/codescope/pkg/models"
)

// NpmParser prefers package-lock.json (pinned versions, license metadata)
// and falls back to the declared ranges in package.json.
type NpmParser struct{}

func (p *NpmParser) Ecosystem() string { return "npm" }

func (p *NpmParser) Supports(snapshot models.FileSnapshot) bool {
	_, ok := snapshot["package.json"]
	return ok
}

func (p *NpmParser) Parse(serviceID string, snapshot models.FileSnapshot) ([]models.Dependency, error) {
	if lock, ok := snapshot["package-lock.json"]; ok {
		return p.parseLock(serviceID, lock)
	}
	return p.parsePackageJSON(serviceID, snapshot["package.json"])
}

func (p *NpmParser) parseLock(serviceID, content string) ([]models.Dependency, error) {
	var lock struct {
		Packages map[string]struct {
			Version string `json:"version"`
			Dev     bool   `json:"dev"`
			License string `json:"license"`
		} `json:"packages"`
	}
	if err := json.Unmarshal([]byte(content), &lock); err != nil {
		return nil, models.Parsef("package-lock.json: %v", err)
	}

	paths := make([]string, 0, len(lock.Packages))
	for path := range lock.Packages {
		if strings.HasPrefix(path, "node_modules/") {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	out := make([]models.Dependency, 0, len(paths))
	for _, path := range paths {
		pkg := lock.Packages[path]
		name := strings.TrimPrefix(path, "node_modules/")
		version := pkg.Version
		if version == "" {
			version = "unknown"
		}
		scope := ""
		if pkg.Dev {
			scope = "dev"
		}
		out = append(out, models.Dependency{
			ServiceID: serviceID,
			Name:      name,
			Version:   version,
			Type:      "npm",
			Scope:     scope,
			License:   pkg.License,
			PURL:      "pkg:npm/" + name + "@" + version,
			FilePath:  "package-lock.json",
		})
	}
	return out, nil
}

func (p *NpmParser) parsePackageJSON(serviceID, content string) ([]models.Dependency, error) {
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, models.Parsef("package.json: %v", err)
	}

	var out []models.Dependency
	appendDeps := func(deps map[string]string, scope string) {
		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			version := strings.TrimLeft(deps[name], "^~>=< ")
			if version == "" {
				version = "unknown"
			}
			out = append(out, models.Dependency{
				ServiceID: serviceID,
				Name:      name,
				Version:   version,
				Type:      "npm",
				Scope:     scope,
				PURL:      "pkg:npm/" + name + "@" + version,
				FilePath:  "package.json",
			})
		}
	}
	appendDeps(pkg.Dependencies, "")
	appendDeps(pkg.DevDependencies, "dev")
	return out, nil
}
