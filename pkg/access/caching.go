package access

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mmcdole/olapsec/pkg/olap"
)

const (
	// DefaultMemberCacheSize is the per-hierarchy capacity of member memos
	DefaultMemberCacheSize = 1024

	// unionCachingThreshold is the constituent count from which a union
	// memoizes each constituent's member answers
	unionCachingThreshold = 5

	// hierarchyCacheSize bounds the hierarchy details a CachingAuthorizer
	// keeps
	hierarchyCacheSize = 256
)

func newCache[K comparable, V any](size int) *lru.Cache[K, V] {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil
	}
	return c
}

func memberCacheSize(r *Role) int {
	if r == nil {
		return DefaultMemberCacheSize
	}
	return r.cacheSize
}

// CachingHierarchyAccess memoizes the member answers of a HierarchyAccess.
// Entries may be evicted at any time; a miss recomputes the same answer.
type CachingHierarchyAccess struct {
	HierarchyAccess

	access      *lru.Cache[string, Access]
	descendants *lru.Cache[string, bool]
}

// NewCachingHierarchyAccess wraps h with member caches of the given size
func NewCachingHierarchyAccess(h HierarchyAccess, size int) *CachingHierarchyAccess {
	return &CachingHierarchyAccess{
		HierarchyAccess: h,
		access:          newCache[string, Access](size),
		descendants:     newCache[string, bool](size),
	}
}

// MemberAccess implements HierarchyAccess
func (c *CachingHierarchyAccess) MemberAccess(m olap.Member) Access {
	if c.access == nil || m.IsCalculatedInQuery() {
		return c.HierarchyAccess.MemberAccess(m)
	}
	key := m.UniqueName()
	if a, ok := c.access.Get(key); ok {
		return a
	}
	a := c.HierarchyAccess.MemberAccess(m)
	c.access.Add(key, a)
	return a
}

// HasInaccessibleDescendants implements HierarchyAccess
func (c *CachingHierarchyAccess) HasInaccessibleDescendants(m olap.Member) bool {
	if c.descendants == nil {
		return c.HierarchyAccess.HasInaccessibleDescendants(m)
	}
	key := m.UniqueName()
	if v, ok := c.descendants.Get(key); ok {
		return v
	}
	v := c.HierarchyAccess.HasInaccessibleDescendants(m)
	c.descendants.Add(key, v)
	return v
}

// memberKey identifies a member within one cube's hierarchy. Unique names
// alone are shared by every cube using the dimension.
type memberKey struct {
	hierarchy olap.Hierarchy
	name      string
}

// CachingAuthorizer memoizes member access of an underlying Authorizer and
// hands out one caching HierarchyAccess per hierarchy.
type CachingAuthorizer struct {
	Delegate

	size        int
	members     *lru.Cache[memberKey, Access]
	hierarchies *lru.Cache[olap.Hierarchy, *CachingHierarchyAccess]
}

// NewCachingAuthorizer wraps a with member caches of the given size
func NewCachingAuthorizer(a Authorizer, size int) *CachingAuthorizer {
	c := &CachingAuthorizer{
		Delegate: Delegate{Authorizer: a},
		size:     size,
		members:  newCache[memberKey, Access](size),
	}
	if size > 0 {
		c.hierarchies = newCache[olap.Hierarchy, *CachingHierarchyAccess](hierarchyCacheSize)
	}
	return c
}

// MemberAccess implements Authorizer
func (c *CachingAuthorizer) MemberAccess(m olap.Member) Access {
	if c.members == nil || m == nil || m.IsCalculatedInQuery() {
		return c.Authorizer.MemberAccess(m)
	}
	key := memberKey{hierarchy: m.Hierarchy(), name: m.UniqueName()}
	if a, ok := c.members.Get(key); ok {
		return a
	}
	a := c.Authorizer.MemberAccess(m)
	c.members.Add(key, a)
	return a
}

// AccessDetails implements Authorizer
func (c *CachingAuthorizer) AccessDetails(h olap.Hierarchy) HierarchyAccess {
	if c.hierarchies == nil || h == nil {
		return c.Authorizer.AccessDetails(h)
	}
	if details, ok := c.hierarchies.Get(h); ok {
		return details
	}
	details := NewCachingHierarchyAccess(c.Authorizer.AccessDetails(h), c.size)
	if previous, ok, _ := c.hierarchies.PeekOrAdd(h, details); ok {
		return previous
	}
	return details
}

// CanAccess implements Authorizer
func (c *CachingAuthorizer) CanAccess(e olap.Element) bool {
	return CanAccess(c, e)
}
