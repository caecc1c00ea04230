// Package registry is the service-registry collaborator: it knows which
// services exist and can produce a file snapshot of a service's prepared
// checkout directory. Cloning and branch management happen elsewhere; the
// registry only reads what is already on disk.
package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/codescope-io/codescope/pkg/models"
)

// manifest files are always captured regardless of extension filters.
var manifestNames = map[string]bool{
	"go.mod": true, "go.sum": true,
	"package.json": true, "package-lock.json": true,
	"pom.xml": true,
	"requirements.txt": true, "poetry.lock": true, "Pipfile.lock": true, "Pipfile": true,
	"pyproject.toml": true,
}

var codeExtensions = map[string]bool{
	".java": true, ".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".py": true, ".go": true, ".vue": true, ".kt": true, ".scala": true,
	".rs": true, ".c": true, ".cpp": true, ".h": true, ".cs": true,
}

var excludedDirs = map[string]bool{
	"target": true, "node_modules": true, "build": true, "dist": true, "vendor": true,
}

type Service struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LocalPath string `json:"local_path"`
}

type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
	maxFile  int
	logger   *logrus.Logger
}

func New(maxFileSize int, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	if maxFileSize <= 0 {
		maxFileSize = 1 << 20
	}
	return &Registry{
		services: make(map[string]Service),
		maxFile:  maxFileSize,
		logger:   logger,
	}
}

// LoadWorkspace registers every direct child directory of workspaceDir as a
// service, keyed by directory name.
func (r *Registry) LoadWorkspace(workspaceDir string) error {
	entries, err := os.ReadDir(workspaceDir)
	if err != nil {
		return fmt.Errorf("read workspace %s: %w", workspaceDir, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		r.services[e.Name()] = Service{
			ID:        e.Name(),
			Name:      e.Name(),
			LocalPath: filepath.Join(workspaceDir, e.Name()),
		}
	}
	r.logger.Infof("Registered %d services from %s", len(r.services), workspaceDir)
	return nil
}

func (r *Registry) Register(svc Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[svc.ID] = svc
}

func (r *Registry) ServiceExists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.services[id]
	return ok
}

func (r *Registry) GetService(id string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[id]
	if !ok {
		return Service{}, models.NotFoundf("service %s", id)
	}
	return svc, nil
}

func (r *Registry) ListServices() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Service, 0, len(r.services))
	for _, svc := range r.services {
		out = append(out, svc)
	}
	return out
}

// Snapshot walks the service checkout and returns manifest and source files
// as an in-memory path → content view. Excluded and hidden directories are
// skipped; files over the size limit are skipped rather than truncated.
func (r *Registry) Snapshot(serviceID string) (models.FileSnapshot, error) {
	svc, err := r.GetService(serviceID)
	if err != nil {
		return nil, err
	}

	snapshot := make(models.FileSnapshot)
	root := svc.LocalPath
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (excludedDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !manifestNames[name] && !codeExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > int64(r.maxFile) {
			r.logger.Debugf("Skipping %s: %d bytes over limit", path, info.Size())
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		snapshot[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", serviceID, err)
	}
	return snapshot, nil
}
