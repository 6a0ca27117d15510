package olap

import "strings"

// Catalog is an in-memory Schema built by a Builder or loaded from a
// catalog document. It is immutable once built.
type Catalog struct {
	name      string
	cubes     []*CatalogCube
	cubeIndex map[string]*CatalogCube
	namedSets []*CatalogNamedSet
}

func (c *Catalog) Name() string       { return c.name }
func (c *Catalog) UniqueName() string { return c.name }

// Cubes implements Schema
func (c *Catalog) Cubes() []Cube {
	cubes := make([]Cube, len(c.cubes))
	for i, cube := range c.cubes {
		cubes[i] = cube
	}
	return cubes
}

// Cube finds a cube by name or unique name
func (c *Catalog) Cube(name string) (*CatalogCube, bool) {
	cube, ok := c.cubeIndex[strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")]
	return cube, ok
}

// NamedSets returns the schema's named sets in definition order
func (c *Catalog) NamedSets() []*CatalogNamedSet {
	return c.namedSets
}

// NamedSet finds a named set by name
func (c *Catalog) NamedSet(name string) (*CatalogNamedSet, bool) {
	for _, set := range c.namedSets {
		if set.name == name || set.UniqueName() == name {
			return set, true
		}
	}
	return nil, false
}

// CatalogCube is a cube of a Catalog
type CatalogCube struct {
	catalog    *Catalog
	name       string
	virtual    bool
	dimensions []*CatalogDimension

	dimensionIndex map[string]*CatalogDimension
	hierarchyIndex map[string]*CatalogHierarchy
	levelIndex     map[string]*CatalogLevel
}

func (c *CatalogCube) Name() string       { return c.name }
func (c *CatalogCube) UniqueName() string { return "[" + c.name + "]" }
func (c *CatalogCube) Schema() Schema     { return c.catalog }
func (c *CatalogCube) IsVirtual() bool    { return c.virtual }

// Dimensions implements Cube
func (c *CatalogCube) Dimensions() []Dimension {
	dims := make([]Dimension, len(c.dimensions))
	for i, d := range c.dimensions {
		dims[i] = d
	}
	return dims
}

// Dimension finds one of the cube's dimensions by unique name
func (c *CatalogCube) Dimension(uniqueName string) (*CatalogDimension, bool) {
	d, ok := c.dimensionIndex[uniqueName]
	return d, ok
}

// Hierarchy finds one of the cube's hierarchies by unique name
func (c *CatalogCube) Hierarchy(uniqueName string) (*CatalogHierarchy, bool) {
	h, ok := c.hierarchyIndex[uniqueName]
	return h, ok
}

// Level finds a level of one of the cube's hierarchies by unique name
func (c *CatalogCube) Level(uniqueName string) (*CatalogLevel, bool) {
	l, ok := c.levelIndex[uniqueName]
	return l, ok
}

// Member finds a member of one of the cube's hierarchies by unique name
func (c *CatalogCube) Member(uniqueName string) (Member, bool) {
	for _, d := range c.dimensions {
		for _, h := range d.hierarchies {
			if m, ok := h.Member(uniqueName); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// Lookup resolves a unique name to a dimension, hierarchy, level or member,
// trying them in that order.
func (c *CatalogCube) Lookup(uniqueName string) (Element, bool) {
	if d, ok := c.Dimension(uniqueName); ok {
		return d, true
	}
	if h, ok := c.Hierarchy(uniqueName); ok {
		return h, true
	}
	if l, ok := c.Level(uniqueName); ok {
		return l, true
	}
	return c.Member(uniqueName)
}

// CatalogDimension is a cube's instance of a dimension definition
type CatalogDimension struct {
	cube        *CatalogCube
	def         *DimensionDef
	hierarchies []*CatalogHierarchy
}

func (d *CatalogDimension) Name() string       { return d.def.name }
func (d *CatalogDimension) UniqueName() string { return "[" + d.def.name + "]" }
func (d *CatalogDimension) Schema() Schema     { return d.cube.catalog }
func (d *CatalogDimension) Cube() Cube         { return d.cube }

// Hierarchies implements Dimension
func (d *CatalogDimension) Hierarchies() []Hierarchy {
	hs := make([]Hierarchy, len(d.hierarchies))
	for i, h := range d.hierarchies {
		hs[i] = h
	}
	return hs
}

// CatalogHierarchy is a cube's instance of a hierarchy definition. Its
// members are handles into the definition's shared member store.
type CatalogHierarchy struct {
	dimension *CatalogDimension
	def       *HierarchyDef
	levels    []*CatalogLevel
}

func (h *CatalogHierarchy) Name() string         { return h.def.Name() }
func (h *CatalogHierarchy) UniqueName() string   { return h.def.uniqueName() }
func (h *CatalogHierarchy) Dimension() Dimension { return h.dimension }

// Levels implements Hierarchy
func (h *CatalogHierarchy) Levels() []Level {
	levels := make([]Level, len(h.levels))
	for i, l := range h.levels {
		levels[i] = l
	}
	return levels
}

// Members returns every member, parents before children
func (h *CatalogHierarchy) Members() []Member {
	members := make([]Member, len(h.def.store.names))
	for i := range members {
		members[i] = CatalogMember{hierarchy: h, index: int32(i)}
	}
	return members
}

// Member finds a member by unique name
func (h *CatalogHierarchy) Member(uniqueName string) (Member, bool) {
	index, ok := h.def.store.byUniqueName[uniqueName]
	if !ok {
		return nil, false
	}
	return CatalogMember{hierarchy: h, index: index}, true
}

// Children returns the direct children of m, which must belong to h
func (h *CatalogHierarchy) Children(m Member) []Member {
	cm, ok := m.(CatalogMember)
	if !ok || cm.hierarchy != h {
		return nil
	}
	var children []Member
	for _, child := range h.def.store.children[cm.index] {
		children = append(children, CatalogMember{hierarchy: h, index: child})
	}
	return children
}

// CatalogLevel is a level of a CatalogHierarchy
type CatalogLevel struct {
	hierarchy *CatalogHierarchy
	name      string
	depth     int
}

func (l *CatalogLevel) Name() string         { return l.name }
func (l *CatalogLevel) UniqueName() string   { return l.hierarchy.UniqueName() + ".[" + l.name + "]" }
func (l *CatalogLevel) Hierarchy() Hierarchy { return l.hierarchy }
func (l *CatalogLevel) Depth() int           { return l.depth }

// CatalogMember is a handle to one entry of a hierarchy's member store.
// Handles are comparable values.
type CatalogMember struct {
	hierarchy *CatalogHierarchy
	index     int32
}

func (m CatalogMember) Name() string {
	return m.hierarchy.def.store.names[m.index]
}

func (m CatalogMember) UniqueName() string {
	return m.hierarchy.def.store.uniqueNames[m.index]
}

func (m CatalogMember) Parent() Member {
	parent := m.hierarchy.def.store.parents[m.index]
	if parent < 0 {
		return nil
	}
	return CatalogMember{hierarchy: m.hierarchy, index: parent}
}

func (m CatalogMember) Level() Level {
	return m.hierarchy.levels[m.hierarchy.def.store.depths[m.index]]
}

func (m CatalogMember) Hierarchy() Hierarchy      { return m.hierarchy }
func (m CatalogMember) IsCalculatedInQuery() bool { return false }

// CatalogNamedSet is a named set of a Catalog
type CatalogNamedSet struct {
	catalog    *Catalog
	name       string
	expression string
}

func (s *CatalogNamedSet) Name() string       { return s.name }
func (s *CatalogNamedSet) UniqueName() string { return "[" + s.name + "]" }
func (s *CatalogNamedSet) Expression() string { return s.expression }

// QueryMember is a calculated member defined by a query. It has no parent
// and is never secured.
type QueryMember struct {
	level Level
	name  string
}

// NewQueryMember creates a query-scope calculated member on the given level
func NewQueryMember(level Level, name string) *QueryMember {
	return &QueryMember{level: level, name: name}
}

func (m *QueryMember) Name() string { return m.name }
func (m *QueryMember) UniqueName() string {
	return m.level.Hierarchy().UniqueName() + ".[" + m.name + "]"
}
func (m *QueryMember) Parent() Member            { return nil }
func (m *QueryMember) Level() Level              { return m.level }
func (m *QueryMember) Hierarchy() Hierarchy      { return m.level.Hierarchy() }
func (m *QueryMember) IsCalculatedInQuery() bool { return true }
