// Package access computes whether a role may see the elements of a
// multidimensional schema: schemas, cubes, dimensions, hierarchies, levels
// and members.
//
// A Role is built by a sequence of grant calls and then frozen with
// MakeImmutable. A frozen Role, and any Union of frozen roles, is safe for
// concurrent use without locking.
package access

import (
	"fmt"
	"strings"

	"github.com/mmcdole/olapsec/pkg/olap"
)

// Access is the level of access granted to an element. Values are ordered
// from least to most permissive.
type Access int

const (
	// None hides the element
	None Access = iota
	// Custom hides everything below the element except what is granted
	// explicitly
	Custom
	// Restricted shows everything below the element except what is denied
	// explicitly. It is only derived, never granted.
	Restricted
	// AllDimensions is only valid for schema grants: every dimension of an
	// accessible cube is visible
	AllDimensions
	// All shows the element and everything below it
	All
)

var accessNames = map[Access]string{
	None:          "none",
	Custom:        "custom",
	Restricted:    "restricted",
	AllDimensions: "all_dimensions",
	All:           "all",
}

func (a Access) String() string {
	if name, ok := accessNames[a]; ok {
		return name
	}
	return fmt.Sprintf("Access(%d)", int(a))
}

// ParseAccess converts a name such as "all" or "all_dimensions" to an Access
func ParseAccess(s string) (Access, error) {
	name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for a, n := range accessNames {
		if n == name {
			return a, nil
		}
	}
	return None, fmt.Errorf("unknown access %q", s)
}

// MaxAccess returns the most permissive of a and b
func MaxAccess(a, b Access) Access {
	if a > b {
		return a
	}
	return b
}

// RollupPolicy describes how an aggregate over a hierarchy with hidden
// members is treated. It is recorded here and interpreted by the
// aggregation engine.
type RollupPolicy int

const (
	// RollupHidden suppresses aggregates that include hidden members
	RollupHidden RollupPolicy = iota
	// RollupPartial computes the aggregate over visible members and flags it
	RollupPartial
	// RollupFull computes the aggregate as if no member were hidden
	RollupFull
)

var rollupNames = map[RollupPolicy]string{
	RollupHidden:  "hidden",
	RollupPartial: "partial",
	RollupFull:    "full",
}

func (p RollupPolicy) String() string {
	if name, ok := rollupNames[p]; ok {
		return name
	}
	return fmt.Sprintf("RollupPolicy(%d)", int(p))
}

// ParseRollupPolicy converts "full", "partial" or "hidden" to a RollupPolicy
func ParseRollupPolicy(s string) (RollupPolicy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, n := range rollupNames {
		if n == name {
			return p, nil
		}
	}
	return RollupHidden, fmt.Errorf("unknown rollup policy %q", s)
}

// HierarchyAccess describes a role's access to one hierarchy and its members
type HierarchyAccess interface {
	// Access returns the overall access to the hierarchy
	Access() Access
	// TopLevelDepth returns the depth of the highest visible level
	TopLevelDepth() int
	// BottomLevelDepth returns the depth of the lowest visible level
	BottomLevelDepth() int
	RollupPolicy() RollupPolicy
	// MemberAccess returns the access to a member of the hierarchy
	MemberAccess(m olap.Member) Access
	// HasInaccessibleDescendants reports whether some descendant of m, or
	// m itself, is hidden or only partially visible
	HasInaccessibleDescendants(m olap.Member) bool
}

// Authorizer answers access questions for every kind of element
type Authorizer interface {
	SchemaAccess(s olap.Schema) Access
	CubeAccess(c olap.Cube) Access
	DimensionAccess(d olap.Dimension) Access
	HierarchyAccess(h olap.Hierarchy) Access
	// AccessDetails returns the hierarchy's access including depth bounds,
	// rollup policy and member access
	AccessDetails(h olap.Hierarchy) HierarchyAccess
	LevelAccess(l olap.Level) Access
	MemberAccess(m olap.Member) Access
	NamedSetAccess(s olap.NamedSet) Access
	// CanAccess reports whether the element's access is anything but None
	CanAccess(e olap.Element) bool
}

// ElementAccess dispatches to the Authorizer method matching the element's
// kind. It panics for nil or unknown elements.
func ElementAccess(a Authorizer, e olap.Element) Access {
	switch e := e.(type) {
	case nil:
		panic(fmt.Errorf("%w: element", ErrNilElement))
	case olap.Member:
		return a.MemberAccess(e)
	case olap.Level:
		return a.LevelAccess(e)
	case olap.Hierarchy:
		return a.HierarchyAccess(e)
	case olap.Dimension:
		return a.DimensionAccess(e)
	case olap.Cube:
		return a.CubeAccess(e)
	case olap.Schema:
		return a.SchemaAccess(e)
	case olap.NamedSet:
		return a.NamedSetAccess(e)
	default:
		panic(fmt.Errorf("%w: unsupported element %T", ErrInvalidElement, e))
	}
}

// CanAccess reports whether a grants any access to e. Wrappers that
// override individual methods use it so their overrides apply.
func CanAccess(a Authorizer, e olap.Element) bool {
	return ElementAccess(a, e) != None
}

// ElementKind names the kind of e for logs and reports
func ElementKind(e olap.Element) string {
	switch e.(type) {
	case olap.Member:
		return "member"
	case olap.Level:
		return "level"
	case olap.Hierarchy:
		return "hierarchy"
	case olap.Dimension:
		return "dimension"
	case olap.Cube:
		return "cube"
	case olap.Schema:
		return "schema"
	case olap.NamedSet:
		return "named_set"
	}
	return "unknown"
}
