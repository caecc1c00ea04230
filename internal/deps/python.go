package deps

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/codescope-io/codescope/pkg/models"
)

// PythonParser reads poetry.lock and Pipfile.lock when present, otherwise
// requirements.txt. Only pinned (==) requirements produce concrete versions.
type PythonParser struct{}

var poetryPackageRe = regexp.MustCompile(`\[\[package\]\]\s*\nname\s*=\s*"([^"]+)"\s*\nversion\s*=\s*"([^"]+)"`)
var requirementRe = regexp.MustCompile(`^([A-Za-z0-9._-]+)\s*(==|>=|<=|~=|>|<)?\s*([A-Za-z0-9._*-]*)`)

func (p *PythonParser) Ecosystem() string { return "PyPI" }

func (p *PythonParser) Supports(snapshot models.FileSnapshot) bool {
	for _, name := range []string{"requirements.txt", "pyproject.toml", "Pipfile", "poetry.lock", "Pipfile.lock"} {
		if _, ok := snapshot[name]; ok {
			return true
		}
	}
	return false
}

func (p *PythonParser) Parse(serviceID string, snapshot models.FileSnapshot) ([]models.Dependency, error) {
	var out []models.Dependency
	if lock, ok := snapshot["poetry.lock"]; ok {
		out = append(out, p.parsePoetryLock(serviceID, lock)...)
	}
	if lock, ok := snapshot["Pipfile.lock"]; ok {
		parsed, err := p.parsePipfileLock(serviceID, lock)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed...)
	}
	if len(out) == 0 {
		if reqs, ok := snapshot["requirements.txt"]; ok {
			out = append(out, p.parseRequirements(serviceID, reqs)...)
		}
	}
	return out, nil
}

func (p *PythonParser) parsePoetryLock(serviceID, content string) []models.Dependency {
	var out []models.Dependency
	for _, m := range poetryPackageRe.FindAllStringSubmatch(content, -1) {
		out = append(out, pypiDependency(serviceID, m[1], m[2], "poetry.lock"))
	}
	return out
}

func (p *PythonParser) parsePipfileLock(serviceID, content string) ([]models.Dependency, error) {
	var lock struct {
		Default map[string]struct {
			Version string `json:"version"`
		} `json:"default"`
		Develop map[string]struct {
			Version string `json:"version"`
		} `json:"develop"`
	}
	if err := json.Unmarshal([]byte(content), &lock); err != nil {
		return nil, models.Parsef("Pipfile.lock: %v", err)
	}

	var out []models.Dependency
	appendSection := func(section map[string]struct {
		Version string `json:"version"`
	}, scope string) {
		names := make([]string, 0, len(section))
		for name := range section {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			version := strings.TrimPrefix(section[name].Version, "==")
			if version == "" {
				version = "unknown"
			}
			dep := pypiDependency(serviceID, name, version, "Pipfile.lock")
			dep.Scope = scope
			out = append(out, dep)
		}
	}
	appendSection(lock.Default, "")
	appendSection(lock.Develop, "dev")
	return out, nil
}

func (p *PythonParser) parseRequirements(serviceID, content string) []models.Dependency {
	var out []models.Dependency
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		m := requirementRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		version := "unknown"
		if m[2] == "==" && m[3] != "" && !strings.Contains(m[3], "*") {
			version = m[3]
		}
		out = append(out, pypiDependency(serviceID, name, version, "requirements.txt"))
	}
	return out
}

func pypiDependency(serviceID, name, version, path string) models.Dependency {
	return models.Dependency{
		ServiceID: serviceID,
		Name:      name,
		Version:   version,
		Type:      "pypi",
		PURL:      "pkg:pypi/" + strings.ToLower(name) + "@" + version,
		FilePath:  path,
	}
}
