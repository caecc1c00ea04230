package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codescope-io/codescope/pkg/models"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadWorkspace(t *testing.T) {
	workspace := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(workspace, "billing"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(workspace, "checkout"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(workspace, ".cache"), 0o755))
	writeFile(t, workspace, "README.md", "not a service")

	r := New(0, nil)
	require.NoError(t, r.LoadWorkspace(workspace))

	require.True(t, r.ServiceExists("billing"))
	require.True(t, r.ServiceExists("checkout"))
	require.False(t, r.ServiceExists(".cache"))
	require.False(t, r.ServiceExists("README.md"))
	require.Len(t, r.ListServices(), 2)

	svc, err := r.GetService("billing")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(workspace, "billing"), svc.LocalPath)

	_, err = r.GetService("nope")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSnapshotFiltersAndWalks(t *testing.T) {
	workspace := t.TempDir()
	svcDir := filepath.Join(workspace, "billing")
	writeFile(t, svcDir, "go.mod", "module billing")
	writeFile(t, svcDir, "main.go", "package main")
	writeFile(t, svcDir, "internal/api/server.go", "package api")
	writeFile(t, svcDir, "docs/guide.md", "markdown")
	writeFile(t, svcDir, "vendor/dep/dep.go", "package dep")
	writeFile(t, svcDir, "node_modules/react/index.js", "module.exports = {}")
	writeFile(t, svcDir, ".git/config", "[core]")
	writeFile(t, svcDir, "big.go", strings.Repeat("x", 2048))

	r := New(1024, nil)
	require.NoError(t, r.LoadWorkspace(workspace))

	snapshot, err := r.Snapshot("billing")
	require.NoError(t, err)

	require.Contains(t, snapshot, "go.mod")
	require.Contains(t, snapshot, "main.go")
	require.Contains(t, snapshot, "internal/api/server.go")
	require.NotContains(t, snapshot, "docs/guide.md", "non-source files are skipped")
	require.NotContains(t, snapshot, "vendor/dep/dep.go", "excluded directories are skipped")
	require.NotContains(t, snapshot, "node_modules/react/index.js")
	require.NotContains(t, snapshot, ".git/config")
	require.NotContains(t, snapshot, "big.go", "oversize files are skipped")

	require.Equal(t, "package main", snapshot["main.go"])
}

func TestSnapshotUnknownService(t *testing.T) {
	r := New(0, nil)
	_, err := r.Snapshot("ghost")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSnapshotPathsSorted(t *testing.T) {
	workspace := t.TempDir()
	svcDir := filepath.Join(workspace, "svc")
	writeFile(t, svcDir, "b.go", "package b")
	writeFile(t, svcDir, "a.go", "package a")
	writeFile(t, svcDir, "c.go", "package c")

	r := New(0, nil)
	require.NoError(t, r.LoadWorkspace(workspace))

	snapshot, err := r.Snapshot("svc")
	require.NoError(t, err)
	require.Equal(t, []string{"a.go", "b.go", "c.go"}, snapshot.Paths())
}
