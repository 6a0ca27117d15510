package access

import (
	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/mmcdole/olapsec/pkg/olap"
)

// Auditor records every schema, cube, dimension, hierarchy, level, member
// and named set decision of the wrapped Authorizer. Hierarchy details are
// passed through unaudited.
type Auditor struct {
	Delegate

	name   string
	logger logging.AuditLogger
}

var _ Authorizer = (*Auditor)(nil)

// NewAuditor wraps a, logging decisions under the given role name. A nil
// logger uses logging.Audit.
func NewAuditor(name string, a Authorizer, logger logging.AuditLogger) *Auditor {
	return &Auditor{
		Delegate: NewDelegate(a),
		name:     name,
		logger:   logger,
	}
}

func (a *Auditor) record(e olap.Element, access Access) Access {
	logger := a.logger
	if logger == nil {
		logger = logging.Audit
	}
	logger.LogDecision(a.name, ElementKind(e), e.UniqueName(), access.String(), "granted", access != None)
	return access
}

// SchemaAccess implements Authorizer
func (a *Auditor) SchemaAccess(s olap.Schema) Access {
	return a.record(s, a.Authorizer.SchemaAccess(s))
}

// CubeAccess implements Authorizer
func (a *Auditor) CubeAccess(c olap.Cube) Access {
	return a.record(c, a.Authorizer.CubeAccess(c))
}

// DimensionAccess implements Authorizer
func (a *Auditor) DimensionAccess(d olap.Dimension) Access {
	return a.record(d, a.Authorizer.DimensionAccess(d))
}

// HierarchyAccess implements Authorizer
func (a *Auditor) HierarchyAccess(h olap.Hierarchy) Access {
	return a.record(h, a.Authorizer.HierarchyAccess(h))
}

// LevelAccess implements Authorizer
func (a *Auditor) LevelAccess(l olap.Level) Access {
	return a.record(l, a.Authorizer.LevelAccess(l))
}

// MemberAccess implements Authorizer
func (a *Auditor) MemberAccess(m olap.Member) Access {
	return a.record(m, a.Authorizer.MemberAccess(m))
}

// NamedSetAccess implements Authorizer
func (a *Auditor) NamedSetAccess(s olap.NamedSet) Access {
	return a.record(s, a.Authorizer.NamedSetAccess(s))
}

// CanAccess implements Authorizer. The decision is logged once, by the
// method matching the element's kind.
func (a *Auditor) CanAccess(e olap.Element) bool {
	return CanAccess(a, e)
}
