package deps

import (
	"strings"
	"unicode"

	"github.com/codescope-io/codescope/pkg/models"
)

// GoParser reads go.sum when present (complete module graph) and falls back
// to the go.mod require block otherwise.
type GoParser struct{}

func (p *GoParser) Ecosystem() string { return "Go" }

func (p *GoParser) Supports(snapshot models.FileSnapshot) bool {
	_, ok := snapshot["go.mod"]
	return ok
}

func (p *GoParser) Parse(serviceID string, snapshot models.FileSnapshot) ([]models.Dependency, error) {
	if sum, ok := snapshot["go.sum"]; ok {
		return p.parseGoSum(serviceID, sum), nil
	}
	return p.parseGoMod(serviceID, snapshot["go.mod"]), nil
}

func (p *GoParser) parseGoSum(serviceID, content string) []models.Dependency {
	var out []models.Dependency
	seen := make(map[string]bool)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		name, version := parts[0], strings.TrimSuffix(parts[1], "/go.mod")
		if version == "" || (!strings.HasPrefix(version, "v") && !unicode.IsDigit(rune(version[0]))) {
			continue
		}
		key := name + "@" + version
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, goDependency(serviceID, name, version, "go.sum"))
	}
	return out
}

func (p *GoParser) parseGoMod(serviceID, content string) []models.Dependency {
	var out []models.Dependency
	inBlock := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "require ("):
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		}
		if !inBlock && !strings.HasPrefix(line, "require ") {
			continue
		}
		line = strings.TrimPrefix(line, "require ")
		parts := strings.Fields(line)
		if len(parts) < 2 || parts[0] == "module" || parts[0] == "go" {
			continue
		}
		out = append(out, goDependency(serviceID, parts[0], parts[1], "go.mod"))
	}
	return out
}

func goDependency(serviceID, name, version, path string) models.Dependency {
	return models.Dependency{
		ServiceID: serviceID,
		Name:      name,
		Version:   version,
		Type:      "golang",
		PURL:      "pkg:golang/" + name + "@" + version,
		FilePath:  path,
	}
}
