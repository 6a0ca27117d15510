package access

import (
	"fmt"

	"github.com/mmcdole/olapsec/pkg/olap"
)

// Union answers every question with the most permissive answer of its
// constituents. It is read-only and safe for concurrent use.
type Union struct {
	roles []Authorizer
}

var _ Authorizer = (*Union)(nil)

// NewUnion combines roles into one. It panics if roles is empty or contains
// a Role that is still mutable. With many constituents each one is wrapped
// in a CachingAuthorizer.
func NewUnion(roles ...Authorizer) *Union {
	if len(roles) == 0 {
		panic(ErrEmptyUnion)
	}

	u := &Union{roles: make([]Authorizer, 0, len(roles))}
	for i, r := range roles {
		if r == nil {
			panic(fmt.Errorf("%w: union constituent %d", ErrNilElement, i))
		}
		if role, ok := r.(*Role); ok && role.IsMutable() {
			panic(fmt.Errorf("%w: constituent %d", ErrMutableConstituent, i))
		}
		if len(roles) >= unionCachingThreshold {
			r = NewCachingAuthorizer(r, DefaultMemberCacheSize)
		}
		u.roles = append(u.roles, r)
	}
	return u
}

// Roles returns the constituents in the order they were given
func (u *Union) Roles() []Authorizer {
	return append([]Authorizer(nil), u.roles...)
}

func (u *Union) max(get func(Authorizer) Access) Access {
	result := None
	for _, r := range u.roles {
		if result = MaxAccess(result, get(r)); result == All {
			break
		}
	}
	return result
}

// SchemaAccess implements Authorizer
func (u *Union) SchemaAccess(s olap.Schema) Access {
	return u.max(func(r Authorizer) Access { return r.SchemaAccess(s) })
}

// CubeAccess implements Authorizer
func (u *Union) CubeAccess(c olap.Cube) Access {
	return u.max(func(r Authorizer) Access { return r.CubeAccess(c) })
}

// DimensionAccess implements Authorizer
func (u *Union) DimensionAccess(d olap.Dimension) Access {
	return u.max(func(r Authorizer) Access { return r.DimensionAccess(d) })
}

// HierarchyAccess implements Authorizer
func (u *Union) HierarchyAccess(h olap.Hierarchy) Access {
	return u.max(func(r Authorizer) Access { return r.HierarchyAccess(h) })
}

// LevelAccess implements Authorizer
func (u *Union) LevelAccess(l olap.Level) Access {
	return u.max(func(r Authorizer) Access { return r.LevelAccess(l) })
}

// MemberAccess implements Authorizer
func (u *Union) MemberAccess(m olap.Member) Access {
	return u.max(func(r Authorizer) Access { return r.MemberAccess(m) })
}

// NamedSetAccess implements Authorizer
func (u *Union) NamedSetAccess(s olap.NamedSet) Access {
	return u.max(func(r Authorizer) Access { return r.NamedSetAccess(s) })
}

// CanAccess implements Authorizer
func (u *Union) CanAccess(e olap.Element) bool {
	return CanAccess(u, e)
}

// AccessDetails implements Authorizer. Bounds are the widest of the
// constituents that can see the hierarchy and the rollup policy is the most
// permissive of those.
func (u *Union) AccessDetails(h olap.Hierarchy) HierarchyAccess {
	details := make([]HierarchyAccess, len(u.roles))
	for i, r := range u.roles {
		details[i] = r.AccessDetails(h)
	}

	union := &unionHierarchyAccess{
		details: details,
		access:  None,
		top:     details[0].TopLevelDepth(),
		bottom:  details[0].BottomLevelDepth(),
		rollup:  details[0].RollupPolicy(),
	}
	first := true
	for _, d := range details {
		union.access = MaxAccess(union.access, d.Access())
		if d.Access() == None {
			continue
		}
		if first {
			union.top, union.bottom, union.rollup = d.TopLevelDepth(), d.BottomLevelDepth(), d.RollupPolicy()
			first = false
			continue
		}
		union.top = min(union.top, d.TopLevelDepth())
		union.bottom = max(union.bottom, d.BottomLevelDepth())
		if d.RollupPolicy() > union.rollup {
			union.rollup = d.RollupPolicy()
		}
	}
	return union
}

type unionHierarchyAccess struct {
	details []HierarchyAccess
	access  Access
	top     int
	bottom  int
	rollup  RollupPolicy
}

func (u *unionHierarchyAccess) Access() Access             { return u.access }
func (u *unionHierarchyAccess) TopLevelDepth() int         { return u.top }
func (u *unionHierarchyAccess) BottomLevelDepth() int      { return u.bottom }
func (u *unionHierarchyAccess) RollupPolicy() RollupPolicy { return u.rollup }

func (u *unionHierarchyAccess) MemberAccess(m olap.Member) Access {
	result := None
	for _, d := range u.details {
		if result = MaxAccess(result, d.MemberAccess(m)); result == All {
			break
		}
	}
	return result
}

// HasInaccessibleDescendants is false when some constituent sees m and
// everything below it.
func (u *unionHierarchyAccess) HasInaccessibleDescendants(m olap.Member) bool {
	switch u.MemberAccess(m) {
	case All:
		return false
	case None:
		return true
	}
	for _, d := range u.details {
		if d.MemberAccess(m) == Custom && !d.HasInaccessibleDescendants(m) {
			return false
		}
	}
	return true
}
