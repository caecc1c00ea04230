package deps

import (
	"encoding/xml"
	"path"
	"strings"

	"github.com/codescope-io/codescope/pkg/models"
)

// MavenParser reads pom.xml files, resolving ${property} references and
// dependencyManagement versions, and follows <module> declarations into
// sub-module poms present in the snapshot.
type MavenParser struct{}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

type pomModel struct {
	GroupID    string      `xml:"groupId"`
	ArtifactID string      `xml:"artifactId"`
	Properties pomProperty `xml:"properties"`

	DependencyManagement struct {
		Dependencies []pomDependency `xml:"dependencies>dependency"`
	} `xml:"dependencyManagement"`

	Dependencies []pomDependency `xml:"dependencies>dependency"`
	Modules      []string        `xml:"modules>module"`
}

// pomProperty captures the free-form <properties> children as a map.
type pomProperty map[string]string

func (p *pomProperty) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	if *p == nil {
		*p = make(map[string]string)
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			(*p)[t.Name.Local] = strings.TrimSpace(value)
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

func (p *MavenParser) Ecosystem() string { return "Maven" }

func (p *MavenParser) Supports(snapshot models.FileSnapshot) bool {
	_, ok := snapshot["pom.xml"]
	return ok
}

func (p *MavenParser) Parse(serviceID string, snapshot models.FileSnapshot) ([]models.Dependency, error) {
	managed := make(map[string]string)
	properties := make(map[string]string)
	parsed := make(map[string]bool)
	var out []models.Dependency

	if err := p.parsePom(serviceID, "pom.xml", snapshot, managed, properties, parsed, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *MavenParser) parsePom(serviceID, pomPath string, snapshot models.FileSnapshot,
	managed, properties map[string]string, parsed map[string]bool, out *[]models.Dependency) error {

	content, ok := snapshot[pomPath]
	if !ok {
		return nil
	}
	if parsed[pomPath] {
		return nil
	}
	parsed[pomPath] = true

	var model pomModel
	if err := xml.Unmarshal([]byte(content), &model); err != nil {
		return models.Parsef("%s: %v", pomPath, err)
	}

	for k, v := range model.Properties {
		properties[k] = v
	}
	for _, dep := range model.DependencyManagement.Dependencies {
		groupID := resolveProperty(dep.GroupID, properties)
		artifactID := resolveProperty(dep.ArtifactID, properties)
		version := resolveProperty(dep.Version, properties)
		if groupID != "" && artifactID != "" && version != "" && !strings.HasPrefix(version, "${") {
			managed[groupID+":"+artifactID] = version
		}
	}

	for _, mavenDep := range model.Dependencies {
		dep, ok := p.toDependency(serviceID, pomPath, mavenDep, managed, properties)
		if !ok {
			continue
		}
		duplicate := false
		for _, existing := range *out {
			if existing.Key() == dep.Key() {
				duplicate = true
				break
			}
		}
		if !duplicate {
			*out = append(*out, dep)
		}
	}

	base := path.Dir(pomPath)
	for _, module := range model.Modules {
		modulePom := path.Join(base, module, "pom.xml")
		if err := p.parsePom(serviceID, modulePom, snapshot, managed, properties, parsed, out); err != nil {
			return err
		}
	}
	return nil
}

func (p *MavenParser) toDependency(serviceID, pomPath string, mavenDep pomDependency,
	managed, properties map[string]string) (models.Dependency, bool) {

	groupID := resolveProperty(mavenDep.GroupID, properties)
	artifactID := resolveProperty(mavenDep.ArtifactID, properties)
	if groupID == "" || artifactID == "" ||
		strings.HasPrefix(groupID, "${") || strings.HasPrefix(artifactID, "${") {
		return models.Dependency{}, false
	}

	version := resolveProperty(mavenDep.Version, properties)
	if version == "" || strings.HasPrefix(version, "${") {
		if mv, ok := managed[groupID+":"+artifactID]; ok {
			version = mv
		} else {
			version = "managed"
		}
	}

	return models.Dependency{
		ServiceID:  serviceID,
		Name:       groupID + ":" + artifactID,
		Version:    version,
		GroupID:    groupID,
		ArtifactID: artifactID,
		Type:       "maven",
		Scope:      mavenDep.Scope,
		PURL:       "pkg:maven/" + groupID + "/" + artifactID + "@" + version,
		FilePath:   pomPath,
	}, true
}

func resolveProperty(value string, properties map[string]string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		key := value[2 : len(value)-1]
		if resolved, ok := properties[key]; ok {
			return resolved
		}
	}
	return value
}
