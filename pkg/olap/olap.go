// Package olap describes the read-only multidimensional metadata model that
// access decisions are computed against, and provides an in-memory catalog
// implementation of it.
package olap

// Element is any securable piece of metadata
type Element interface {
	// Name returns the element's short name
	Name() string
	// UniqueName returns a stable name that identifies the element
	UniqueName() string
}

// Schema is the root of the containment tree
type Schema interface {
	Element
	Cubes() []Cube
}

// Cube belongs to a schema and exposes the dimensions it uses
type Cube interface {
	Element
	Schema() Schema
	Dimensions() []Dimension
	// IsVirtual reports whether the cube is assembled from other cubes
	IsVirtual() bool
}

// Dimension is a cube's usage of a dimension. The same logical dimension
// used by two cubes yields two Dimension values sharing a unique name.
type Dimension interface {
	Element
	Schema() Schema
	// Cube returns the owning cube, or nil for a schema-level dimension
	Cube() Cube
	Hierarchies() []Hierarchy
}

// Hierarchy is an ordered list of levels over a tree of members
type Hierarchy interface {
	Element
	Dimension() Dimension
	// Levels returns the levels root-first
	Levels() []Level
}

// Level is one depth of a hierarchy
type Level interface {
	Element
	Hierarchy() Hierarchy
	Depth() int
}

// Member is a node in a hierarchy's member tree
type Member interface {
	Element
	// Parent returns nil for a root member
	Parent() Member
	Level() Level
	Hierarchy() Hierarchy
	// IsCalculatedInQuery reports whether the member was defined by the
	// query being evaluated rather than by the schema
	IsCalculatedInQuery() bool
}

// NamedSet is a named set expression defined in a schema
type NamedSet interface {
	Element
	Expression() string
}

// IsAncestorOrSelf reports whether ancestor is m or one of m's ancestors.
// Members are compared by unique name.
func IsAncestorOrSelf(ancestor, m Member) bool {
	name := ancestor.UniqueName()
	for ; m != nil; m = m.Parent() {
		if m.UniqueName() == name {
			return true
		}
	}
	return false
}
