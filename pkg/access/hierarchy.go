package access

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/mmcdole/olapsec/pkg/olap"
)

type memberGrant struct {
	member olap.Member
	access Access
}

// hierarchyGrant is a role's access record for one hierarchy. Member
// entries exist only for members with an explicit or cascaded grant.
type hierarchyGrant struct {
	role      *Role
	hierarchy olap.Hierarchy
	access    Access
	top       olap.Level
	bottom    olap.Level
	rollup    RollupPolicy
	members   map[string]memberGrant

	// memoized HasInaccessibleDescendants answers, purged on every grant
	descendants *lru.Cache[string, bool]
}

var _ HierarchyAccess = (*hierarchyGrant)(nil)

func newHierarchyGrant(role *Role, h olap.Hierarchy, access Access, top, bottom olap.Level, rollup RollupPolicy) *hierarchyGrant {
	g := defaultHierarchyGrant(role, h, access)
	if top != nil {
		g.top = top
	}
	if bottom != nil {
		g.bottom = bottom
	}
	g.rollup = rollup
	g.descendants = newCache[string, bool](memberCacheSize(role))
	return g
}

// defaultHierarchyGrant is the record implied for a hierarchy nobody
// granted: full depth, hidden rollup and no member entries.
func defaultHierarchyGrant(role *Role, h olap.Hierarchy, access Access) *hierarchyGrant {
	levels := h.Levels()
	return &hierarchyGrant{
		role:      role,
		hierarchy: h,
		access:    access,
		top:       levels[0],
		bottom:    levels[len(levels)-1],
		rollup:    RollupHidden,
		members:   make(map[string]memberGrant),
	}
}

func (h *hierarchyGrant) clone(role *Role) *hierarchyGrant {
	c := newHierarchyGrant(role, h.hierarchy, h.access, h.top, h.bottom, h.rollup)
	for name, g := range h.members {
		c.members[name] = g
	}
	return c
}

func (h *hierarchyGrant) Access() Access             { return h.access }
func (h *hierarchyGrant) TopLevelDepth() int         { return h.top.Depth() }
func (h *hierarchyGrant) BottomLevelDepth() int      { return h.bottom.Depth() }
func (h *hierarchyGrant) RollupPolicy() RollupPolicy { return h.rollup }

func (h *hierarchyGrant) inBounds(m olap.Member) bool {
	depth := m.Level().Depth()
	return depth >= h.top.Depth() && depth <= h.bottom.Depth()
}

// grant records access to m and cascades the consequences to m's
// ancestors. Existing grants on m's descendants are discarded.
func (h *hierarchyGrant) grant(m olap.Member, access Access) {
	if h.access == None && access != None {
		h.access = Custom
	}
	if h.access != Custom {
		panic(fmt.Errorf("%w: %s is %s", ErrHierarchyNotCustom, h.hierarchy.UniqueName(), h.access))
	}

	for name, g := range h.members {
		if olap.IsAncestorOrSelf(m, g.member) {
			delete(h.members, name)
		}
	}
	h.set(m, access)

	for p := m.Parent(); p != nil; p = p.Parent() {
		if !h.inBounds(p) {
			continue
		}
		current, ok := h.members[p.UniqueName()]
		switch {
		case access == None && (!ok || current.access == All):
			// open ancestors stay open except for the denial
			h.set(p, Restricted)
		case !ok || current.access == None:
			h.set(p, Custom)
		}
	}

	if h.descendants != nil {
		h.descendants.Purge()
	}
}

func (h *hierarchyGrant) set(m olap.Member, access Access) {
	h.members[m.UniqueName()] = memberGrant{member: m, access: access}
	logging.App.Debug("Member grant", "hierarchy", h.hierarchy.UniqueName(), "member", m.UniqueName(), "access", access)
}

// MemberAccess implements HierarchyAccess
func (h *hierarchyGrant) MemberAccess(m olap.Member) Access {
	if h.access != Custom {
		return h.access
	}
	if !h.inBounds(m) {
		return None
	}

	if g, ok := h.members[m.UniqueName()]; ok {
		if g.access == Restricted {
			return Custom
		}
		return g.access
	}

	for p := m.Parent(); p != nil; p = p.Parent() {
		g, ok := h.members[p.UniqueName()]
		if !ok {
			continue
		}
		switch g.access {
		case None, Custom:
			return None
		default:
			return All
		}
	}

	if h.role != nil && h.role.LevelAccess(m.Level()) == All {
		return All
	}
	if len(h.members) == 0 {
		return All
	}
	return None
}

// HasInaccessibleDescendants implements HierarchyAccess
func (h *hierarchyGrant) HasInaccessibleDescendants(m olap.Member) bool {
	if len(h.members) == 0 {
		return false
	}
	key := m.UniqueName()
	if h.descendants != nil {
		if result, ok := h.descendants.Get(key); ok {
			return result
		}
	}

	result := false
	for _, g := range h.members {
		if (g.access == None || g.access == Custom) && olap.IsAncestorOrSelf(m, g.member) {
			result = true
			break
		}
	}

	if h.descendants != nil {
		h.descendants.Add(key, result)
	}
	return result
}
