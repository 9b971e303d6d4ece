package model

import "sort"

// ArtifactMap maps relative output paths to file contents.
type ArtifactMap map[Path][]byte

// Put stores text content at path.
func (a ArtifactMap) Put(path Path, content string) {
	a[path] = []byte(content)
}

// Merge copies other into a with every path placed under prefix.
func (a ArtifactMap) Merge(prefix Path, other ArtifactMap) {
	for path, content := range other {
		if prefix == "" {
			a[path] = content
			continue
		}

		a[prefix.Join(string(path))] = content
	}
}

// Paths returns the artifact paths in sorted order.
func (a ArtifactMap) Paths() []Path {
	paths := make([]Path, 0, len(a))
	for path := range a {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool {
		return paths[i] < paths[j]
	})

	return paths
}
