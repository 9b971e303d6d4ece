// Package model defines the data structures shared by the fppgen parser, backends
// and adapters.
package model

import (
	"path/filepath"
	"strings"
)

// Path represents a file system path.
type Path string

// Ext returns the extension of the path including the leading dot.
func (p Path) Ext() string {
	return filepath.Ext(string(p))
}

// Stem returns the base name of the path without its extension.
func (p Path) Stem() string {
	base := filepath.Base(string(p))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Dir returns the directory containing the path.
func (p Path) Dir() Path {
	return Path(filepath.Dir(string(p)))
}

// Join appends elements to the path.
func (p Path) Join(elem ...string) Path {
	return Path(filepath.Join(append([]string{string(p)}, elem...)...))
}

// Source describes one annotated source file selected for generation.
type Source struct {
	// Path is the resolved location of the source file.
	Path Path
	// ForceJSON regenerates info.json even when it already exists.
	ForceJSON bool
}
