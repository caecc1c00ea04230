package models

import "sort"

// FileSnapshot is a point-in-time view of a service checkout: relative path
// to file content. Resolvers and checkers treat it as read-only.
type FileSnapshot map[string]string

// Paths returns the snapshot's paths sorted lexically, so anything iterating
// a snapshot behaves deterministically.
func (s FileSnapshot) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
