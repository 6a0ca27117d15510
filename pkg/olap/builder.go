package olap

import (
	"fmt"
	"strings"
)

// AllLevelName is the name of the level holding a hierarchy's all member
const AllLevelName = "(All)"

// Builder assembles a Catalog. Definition errors are recorded and returned
// by Build so that calls can be chained.
type Builder struct {
	name       string
	dimensions map[string]*DimensionDef
	cubes      []cubeSpec
	namedSets  []namedSetSpec
	err        error
}

type cubeSpec struct {
	name       string
	virtual    bool
	dimensions []string
	baseCubes  []string
}

type namedSetSpec struct {
	name       string
	expression string
}

// NewBuilder creates a Builder for a catalog with the given schema name
func NewBuilder(name string) *Builder {
	return &Builder{
		name:       name,
		dimensions: make(map[string]*DimensionDef),
	}
}

func (b *Builder) fail(format string, args ...interface{}) {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
}

// Dimension returns the shared dimension definition with the given name,
// creating it on first use.
func (b *Builder) Dimension(name string) *DimensionDef {
	if d, ok := b.dimensions[name]; ok {
		return d
	}
	d := &DimensionDef{builder: b, name: name}
	b.dimensions[name] = d
	return d
}

// Cube defines a cube over previously defined dimensions
func (b *Builder) Cube(name string, dimensions ...string) *Builder {
	b.cubes = append(b.cubes, cubeSpec{name: name, dimensions: dimensions})
	return b
}

// VirtualCube defines a cube whose dimensions are the union, by name, of the
// dimensions of its base cubes.
func (b *Builder) VirtualCube(name string, baseCubes ...string) *Builder {
	b.cubes = append(b.cubes, cubeSpec{name: name, virtual: true, baseCubes: baseCubes})
	return b
}

// NamedSet defines a schema-level named set
func (b *Builder) NamedSet(name, expression string) *Builder {
	b.namedSets = append(b.namedSets, namedSetSpec{name: name, expression: expression})
	return b
}

// Build validates the definitions and instantiates the catalog
func (b *Builder) Build() (*Catalog, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.name == "" {
		return nil, fmt.Errorf("schema name is required")
	}

	specs := make(map[string]cubeSpec, len(b.cubes))
	for _, spec := range b.cubes {
		if _, ok := specs[spec.name]; ok {
			return nil, fmt.Errorf("duplicate cube %q", spec.name)
		}
		specs[spec.name] = spec
	}

	catalog := &Catalog{
		name:      b.name,
		cubeIndex: make(map[string]*CatalogCube, len(b.cubes)),
	}
	for _, spec := range b.cubes {
		defs, err := b.cubeDimensions(spec, specs)
		if err != nil {
			return nil, err
		}
		cube := &CatalogCube{
			catalog:        catalog,
			name:           spec.name,
			virtual:        spec.virtual,
			dimensionIndex: make(map[string]*CatalogDimension),
			hierarchyIndex: make(map[string]*CatalogHierarchy),
			levelIndex:     make(map[string]*CatalogLevel),
		}
		for _, def := range defs {
			cube.addDimension(def)
		}
		catalog.cubes = append(catalog.cubes, cube)
		catalog.cubeIndex[spec.name] = cube
	}

	for _, spec := range b.namedSets {
		catalog.namedSets = append(catalog.namedSets, &CatalogNamedSet{
			catalog:    catalog,
			name:       spec.name,
			expression: spec.expression,
		})
	}
	return catalog, nil
}

// cubeDimensions resolves the dimension definitions a cube uses
func (b *Builder) cubeDimensions(spec cubeSpec, specs map[string]cubeSpec) ([]*DimensionDef, error) {
	if !spec.virtual {
		defs := make([]*DimensionDef, 0, len(spec.dimensions))
		for _, name := range spec.dimensions {
			def, ok := b.dimensions[name]
			if !ok {
				return nil, fmt.Errorf("cube %q: unknown dimension %q", spec.name, name)
			}
			if err := def.validate(); err != nil {
				return nil, fmt.Errorf("cube %q: %w", spec.name, err)
			}
			defs = append(defs, def)
		}
		return defs, nil
	}

	var defs []*DimensionDef
	seen := make(map[string]bool)
	for _, baseName := range spec.baseCubes {
		base, ok := specs[baseName]
		if !ok {
			return nil, fmt.Errorf("virtual cube %q: unknown base cube %q", spec.name, baseName)
		}
		if base.virtual {
			return nil, fmt.Errorf("virtual cube %q: base cube %q is virtual", spec.name, baseName)
		}
		baseDefs, err := b.cubeDimensions(base, specs)
		if err != nil {
			return nil, err
		}
		for _, def := range baseDefs {
			if !seen[def.name] {
				seen[def.name] = true
				defs = append(defs, def)
			}
		}
	}
	return defs, nil
}

func (c *CatalogCube) addDimension(def *DimensionDef) {
	d := &CatalogDimension{cube: c, def: def}
	for _, hdef := range def.hierarchies {
		h := &CatalogHierarchy{dimension: d, def: hdef}
		for depth, name := range hdef.levels {
			l := &CatalogLevel{hierarchy: h, name: name, depth: depth}
			h.levels = append(h.levels, l)
			c.levelIndex[l.UniqueName()] = l
		}
		d.hierarchies = append(d.hierarchies, h)
		c.hierarchyIndex[h.UniqueName()] = h
	}
	c.dimensions = append(c.dimensions, d)
	c.dimensionIndex[d.UniqueName()] = d
}

// DimensionDef is a shared dimension definition
type DimensionDef struct {
	builder     *Builder
	name        string
	hierarchies []*HierarchyDef
}

// Hierarchy adds a hierarchy with the given levels, root-first. An empty
// name gives the dimension's default hierarchy.
func (d *DimensionDef) Hierarchy(name string, levels ...string) *HierarchyDef {
	h := &HierarchyDef{
		dimension: d,
		name:      name,
		levels:    levels,
		store:     newMemberStore(),
	}
	d.hierarchies = append(d.hierarchies, h)
	return h
}

func (d *DimensionDef) validate() error {
	if len(d.hierarchies) == 0 {
		return fmt.Errorf("dimension %q has no hierarchies", d.name)
	}
	for _, h := range d.hierarchies {
		if len(h.levels) == 0 {
			return fmt.Errorf("hierarchy %s has no levels", h.uniqueName())
		}
	}
	return nil
}

// HierarchyDef is a hierarchy definition and the member store shared by
// every cube that uses it.
type HierarchyDef struct {
	dimension *DimensionDef
	name      string
	levels    []string
	hasAll    bool
	store     *memberStore
}

// Name returns the hierarchy name, which defaults to the dimension name
func (h *HierarchyDef) Name() string {
	if h.name == "" {
		return h.dimension.name
	}
	return h.name
}

func (h *HierarchyDef) uniqueName() string {
	if h.name == "" || h.name == h.dimension.name {
		return "[" + h.dimension.name + "]"
	}
	return "[" + h.dimension.name + "." + h.name + "]"
}

// WithAll gives the hierarchy an all level holding a single root member.
// It must be called before any member is added.
func (h *HierarchyDef) WithAll(allMemberName string) *HierarchyDef {
	if h.hasAll {
		return h
	}
	if len(h.store.names) > 0 {
		h.dimension.builder.fail("hierarchy %s: all member must be defined before other members", h.uniqueName())
		return h
	}
	h.hasAll = true
	h.levels = append([]string{AllLevelName}, h.levels...)
	h.store.add(h.uniqueName(), allMemberName, "", -1, 0)
	return h
}

// Member adds the member at the given path of names below the all member.
// Ancestors must already exist; adding an existing member is a no-op.
func (h *HierarchyDef) Member(path ...string) *HierarchyDef {
	offset := 0
	if h.hasAll {
		offset = 1
	}
	if len(path) == 0 || len(path) > len(h.levels)-offset {
		h.dimension.builder.fail("hierarchy %s: member path %q does not fit %d levels",
			h.uniqueName(), path, len(h.levels)-offset)
		return h
	}

	key := memberPath(path)
	if _, ok := h.store.byPath[key]; ok {
		return h
	}

	parent := int32(-1)
	if len(path) > 1 {
		p, ok := h.store.byPath[memberPath(path[:len(path)-1])]
		if !ok {
			h.dimension.builder.fail("hierarchy %s: parent of member %q is not defined", h.uniqueName(), path)
			return h
		}
		parent = p
	} else if h.hasAll {
		parent = 0
	}
	h.store.add(h.uniqueName(), path[len(path)-1], key, parent, int32(len(path)-1+offset))
	return h
}

func memberPath(path []string) string {
	var sb strings.Builder
	for _, name := range path {
		sb.WriteString(".[")
		sb.WriteString(name)
		sb.WriteString("]")
	}
	return sb.String()
}

// memberStore is an arena of members addressed by index, with a parent
// index per entry.
type memberStore struct {
	names        []string
	uniqueNames  []string
	parents      []int32
	depths       []int32
	children     [][]int32
	byPath       map[string]int32
	byUniqueName map[string]int32
}

func newMemberStore() *memberStore {
	return &memberStore{
		byPath:       make(map[string]int32),
		byUniqueName: make(map[string]int32),
	}
}

func (s *memberStore) add(hierarchy, name, path string, parent, depth int32) {
	index := int32(len(s.names))
	uniqueName := hierarchy + path
	if path == "" {
		// the all member is addressed by its own name
		uniqueName = hierarchy + ".[" + name + "]"
	} else {
		s.byPath[path] = index
	}
	s.names = append(s.names, name)
	s.uniqueNames = append(s.uniqueNames, uniqueName)
	s.parents = append(s.parents, parent)
	s.depths = append(s.depths, depth)
	s.children = append(s.children, nil)
	s.byUniqueName[uniqueName] = index
	if parent >= 0 {
		s.children[parent] = append(s.children[parent], index)
	}
}
