package access

import (
	"fmt"
	"sync/atomic"

	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/mmcdole/olapsec/pkg/olap"
)

// Role is a bundle of access grants. It is mutable until MakeImmutable is
// called; after that every grant panics and the role may be queried
// concurrently.
type Role struct {
	mutable         bool
	schemaGrants    map[olap.Schema]Access
	cubeGrants      map[olap.Cube]Access
	dimensionGrants map[olap.Dimension]Access
	hierarchyGrants map[olap.Hierarchy]*hierarchyGrant
	cacheSize       int

	// canonical digest, zero until computed
	hash atomic.Uint64
}

var _ Authorizer = (*Role)(nil)

// RoleOption configures a new Role
type RoleOption func(*Role)

// WithMemberCacheSize sets the capacity of the per-hierarchy descendant
// memo. Zero or less disables it.
func WithMemberCacheSize(size int) RoleOption {
	return func(r *Role) {
		r.cacheSize = size
	}
}

// NewRole creates an empty, mutable role
func NewRole(opts ...RoleOption) *Role {
	r := &Role{
		mutable:         true,
		schemaGrants:    make(map[olap.Schema]Access),
		cubeGrants:      make(map[olap.Cube]Access),
		dimensionGrants: make(map[olap.Dimension]Access),
		hierarchyGrants: make(map[olap.Hierarchy]*hierarchyGrant),
		cacheSize:       DefaultMemberCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsMutable reports whether grants are still accepted
func (r *Role) IsMutable() bool {
	return r.mutable
}

// MakeImmutable freezes the role
func (r *Role) MakeImmutable() {
	r.mutable = false
}

// MakeMutableClone returns a mutable copy of the role's grants
func (r *Role) MakeMutableClone() *Role {
	c := NewRole(WithMemberCacheSize(r.cacheSize))
	for s, a := range r.schemaGrants {
		c.schemaGrants[s] = a
	}
	for cube, a := range r.cubeGrants {
		c.cubeGrants[cube] = a
	}
	for d, a := range r.dimensionGrants {
		c.dimensionGrants[d] = a
	}
	for h, g := range r.hierarchyGrants {
		c.hierarchyGrants[h] = g.clone(c)
	}
	return c
}

func (r *Role) checkMutable() {
	if !r.mutable {
		panic(ErrImmutable)
	}
}

func (r *Role) changed() {
	r.hash.Store(0)
}

func checkAccess(kind string, access Access, allowed ...Access) {
	for _, a := range allowed {
		if a == access {
			return
		}
	}
	panic(fmt.Errorf("%w: %s for %s", ErrInvalidAccess, access, kind))
}

func checkElement(kind string, e olap.Element) {
	if e == nil {
		panic(fmt.Errorf("%w: %s", ErrNilElement, kind))
	}
}

// GrantSchema sets the role's access to a schema
func (r *Role) GrantSchema(s olap.Schema, access Access) {
	r.checkMutable()
	checkElement("schema", s)
	checkAccess("schema", access, All, None, AllDimensions, Custom)

	r.schemaGrants[s] = access
	r.changed()
	logging.App.Debug("Schema grant", "schema", s.UniqueName(), "access", access)
}

// GrantCube sets the role's access to a cube. A schema that was explicitly
// closed is reopened as Custom.
func (r *Role) GrantCube(c olap.Cube, access Access) {
	r.checkMutable()
	checkElement("cube", c)
	checkAccess("cube", access, All, None, Custom)

	r.cubeGrants[c] = access
	if s := c.Schema(); r.SchemaAccess(s) == None {
		r.schemaGrants[s] = Custom
		logging.App.Debug("Schema grant cascaded", "schema", s.UniqueName(), "access", Custom)
	}
	r.changed()
	logging.App.Debug("Cube grant", "cube", c.UniqueName(), "access", access)
}

// GrantDimension sets the role's access to a dimension. Cubes are not
// affected; a dimension's inherited access is computed when queried.
func (r *Role) GrantDimension(d olap.Dimension, access Access) {
	r.checkMutable()
	checkElement("dimension", d)
	checkAccess("dimension", access, All, None, Custom)

	r.dimensionGrants[d] = access
	r.changed()
	logging.App.Debug("Dimension grant", "dimension", d.UniqueName(), "access", access)
}

// GrantHierarchy sets the role's access to a hierarchy, replacing any
// previous grant and its member grants. Nil bounds default to the
// hierarchy's first and last levels; other bounds require Custom access.
// A dimension without access is opened as Custom.
func (r *Role) GrantHierarchy(h olap.Hierarchy, access Access, top, bottom olap.Level, rollup RollupPolicy) {
	r.checkMutable()
	checkElement("hierarchy", h)
	checkAccess("hierarchy", access, All, None, Custom)

	levels := h.Levels()
	if len(levels) == 0 {
		panic(fmt.Errorf("%w: %s has no levels", ErrInvalidBounds, h.UniqueName()))
	}
	if top == nil {
		top = levels[0]
	}
	if bottom == nil {
		bottom = levels[len(levels)-1]
	}
	if top.Hierarchy() != h || bottom.Hierarchy() != h {
		panic(fmt.Errorf("%w: levels %s..%s are not in %s", ErrInvalidBounds, top.UniqueName(), bottom.UniqueName(), h.UniqueName()))
	}
	if top.Depth() > bottom.Depth() {
		panic(fmt.Errorf("%w: top %s is below bottom %s", ErrInvalidBounds, top.UniqueName(), bottom.UniqueName()))
	}
	defaultBounds := top.Depth() == levels[0].Depth() && bottom.Depth() == levels[len(levels)-1].Depth()
	if !defaultBounds && access != Custom {
		panic(fmt.Errorf("%w: bounds on %s require custom access, got %s", ErrInvalidBounds, h.UniqueName(), access))
	}

	r.hierarchyGrants[h] = newHierarchyGrant(r, h, access, top, bottom, rollup)
	if d := h.Dimension(); r.DimensionAccess(d) == None {
		r.dimensionGrants[d] = Custom
		logging.App.Debug("Dimension grant cascaded", "dimension", d.UniqueName(), "access", Custom)
	}
	r.changed()
	logging.App.Debug("Hierarchy grant", "hierarchy", h.UniqueName(), "access", access,
		"top", top.UniqueName(), "bottom", bottom.UniqueName(), "rollup", rollup)
}

// GrantMember sets the role's access to a member. The member's hierarchy
// must have Custom access.
func (r *Role) GrantMember(m olap.Member, access Access) {
	r.checkMutable()
	checkElement("member", m)
	checkAccess("member", access, All, None, Custom)

	h := m.Hierarchy()
	if got := r.HierarchyAccess(h); got != Custom {
		panic(fmt.Errorf("%w: %s is %s", ErrHierarchyNotCustom, h.UniqueName(), got))
	}
	r.hierarchyGrants[h].grant(m, access)
	r.changed()
}

// SchemaAccess implements Authorizer. A schema without a grant is Custom:
// its children are evaluated individually.
func (r *Role) SchemaAccess(s olap.Schema) Access {
	checkElement("schema", s)
	if a, ok := r.schemaGrants[s]; ok {
		return a
	}
	return Custom
}

// CubeAccess implements Authorizer
func (r *Role) CubeAccess(c olap.Cube) Access {
	checkElement("cube", c)
	if a, ok := r.cubeGrants[c]; ok {
		return a
	}
	if r.schemaGrants[c.Schema()] == All {
		return All
	}
	return None
}

// DimensionAccess implements Authorizer
func (r *Role) DimensionAccess(d olap.Dimension) Access {
	checkElement("dimension", d)
	if a, ok := r.dimensionGrants[d]; ok {
		if a == Custom && !r.hasVisibleHierarchy(d) {
			return None
		}
		return a
	}

	for cube, a := range r.cubeGrants {
		if a == None || a == Custom {
			continue
		}
		for _, d1 := range cube.Dimensions() {
			if d1 == d || (cube.IsVirtual() && d1.UniqueName() == d.UniqueName()) {
				return a
			}
		}
	}

	switch r.SchemaAccess(d.Schema()) {
	case All:
		return All
	case AllDimensions:
		if r.hasAccessibleCube(d.Schema()) {
			return All
		}
	}
	return None
}

func (r *Role) hasVisibleHierarchy(d olap.Dimension) bool {
	for _, h := range d.Hierarchies() {
		if g, ok := r.hierarchyGrants[h]; ok && g.access != None {
			return true
		}
	}
	return false
}

func (r *Role) hasAccessibleCube(s olap.Schema) bool {
	for cube, a := range r.cubeGrants {
		if a != None && cube.Schema() == s {
			return true
		}
	}
	return false
}

// HierarchyAccess implements Authorizer
func (r *Role) HierarchyAccess(h olap.Hierarchy) Access {
	checkElement("hierarchy", h)
	if g, ok := r.hierarchyGrants[h]; ok {
		return g.access
	}
	if r.DimensionAccess(h.Dimension()) == All {
		return All
	}
	return None
}

// AccessDetails implements Authorizer. A hierarchy without a grant gets a
// synthesized record that is not stored in the role.
func (r *Role) AccessDetails(h olap.Hierarchy) HierarchyAccess {
	checkElement("hierarchy", h)
	if g, ok := r.hierarchyGrants[h]; ok {
		return g
	}

	access := None
	if r.schemaGrants[h.Dimension().Schema()] == All || r.DimensionAccess(h.Dimension()) == All {
		access = All
	}
	return defaultHierarchyGrant(r, h, access)
}

// LevelAccess implements Authorizer
func (r *Role) LevelAccess(l olap.Level) Access {
	checkElement("level", l)
	h := l.Hierarchy()
	if g, ok := r.hierarchyGrants[h]; ok && g.access != None {
		if depth := l.Depth(); depth >= g.top.Depth() && depth <= g.bottom.Depth() {
			return g.access
		}
	}
	return r.DimensionAccess(h.Dimension())
}

// MemberAccess implements Authorizer. Members calculated by the current
// query are always accessible.
func (r *Role) MemberAccess(m olap.Member) Access {
	checkElement("member", m)
	if m.IsCalculatedInQuery() {
		return All
	}
	if g, ok := r.hierarchyGrants[m.Hierarchy()]; ok {
		return g.MemberAccess(m)
	}
	return r.LevelAccess(m.Level())
}

// NamedSetAccess implements Authorizer. Named sets are not securable.
func (r *Role) NamedSetAccess(s olap.NamedSet) Access {
	checkElement("named set", s)
	return All
}

// CanAccess implements Authorizer
func (r *Role) CanAccess(e olap.Element) bool {
	return CanAccess(r, e)
}
