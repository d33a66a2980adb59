// Package dotpath builds dot-delimited field paths, one segment per tree level.
package dotpath

import "strings"

// Path addresses a field at arbitrary depth inside a document, e.g. "cs.stg.1".
// The zero Path is the root path.
type Path struct {
	value string
}

// Root returns the empty path of a document root.
func Root() Path {
	return Path{}
}

// Of joins segments into a path.
func Of(segments ...string) Path {
	var p Path
	for _, s := range segments {
		p = p.Resolve(s)
	}
	return p
}

// Parse turns a dot-delimited string back into a Path.
func Parse(s string) Path {
	return Path{s}
}

// Resolve appends one more segment.
func (p Path) Resolve(segment string) Path {
	if segment == "" {
		panic("dotpath: empty segment")
	}
	if p.value == "" {
		return Path{segment}
	}
	return Path{p.value + "." + segment}
}

func (p Path) Value() string {
	return p.value
}

func (p Path) String() string {
	if p.value == "" {
		return "<root>"
	}
	return p.value
}

func (p Path) Equal(o Path) bool {
	return p.value == o.value
}

func (p Path) IsRoot() bool {
	return p.value == ""
}

// Segments splits the path. The root path has no segments.
func (p Path) Segments() []string {
	if p.value == "" {
		return nil
	}
	return strings.Split(p.value, ".")
}

// Split returns the parent path and the last segment.
func (p Path) Split() (Path, string) {
	i := strings.LastIndexByte(p.value, '.')
	if i < 0 {
		return Path{}, p.value
	}
	return Path{p.value[:i]}, p.value[i+1:]
}
