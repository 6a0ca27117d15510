package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/olapsec/pkg/access"
	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/mmcdole/olapsec/pkg/olap"
)

// Policy is a set of frozen roles and the principals they are assigned to
type Policy struct {
	roles       map[string]*access.Role
	names       []string
	users       map[string][]string
	defaultRole string
}

// Role returns the named role
func (p *Policy) Role(name string) (*access.Role, bool) {
	r, ok := p.roles[name]
	return r, ok
}

// RoleNames returns role names in document order
func (p *Policy) RoleNames() []string {
	return append([]string(nil), p.names...)
}

// UserRoles returns the roles assigned to a principal
func (p *Policy) UserRoles(user string) []string {
	return append([]string(nil), p.users[user]...)
}

// DefaultRole returns the role for principals without an assignment
func (p *Policy) DefaultRole() string {
	return p.defaultRole
}

// Options tunes the roles Build creates
type Options struct {
	// MemberCacheSize is passed to every role; zero keeps the default
	MemberCacheSize int
	// Audit receives every grant; nil uses logging.Audit
	Audit logging.AuditLogger
}

// Build decodes raw and builds its roles against catalog
func Build(raw map[string]interface{}, catalog *olap.Catalog, opts Options) (*Policy, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return BuildDocument(doc, catalog, opts)
}

// BuildDocument issues the document's grants in order and freezes each role
func BuildDocument(doc *Document, catalog *olap.Catalog, opts Options) (*Policy, error) {
	p := &Policy{
		roles:       make(map[string]*access.Role, len(doc.Roles)),
		users:       make(map[string][]string, len(doc.Users)),
		defaultRole: doc.DefaultRole,
	}

	for _, rd := range doc.Roles {
		if rd.Name == "" {
			return nil, fmt.Errorf("%w: role without a name", ErrInvalidDocument)
		}
		if _, ok := p.roles[rd.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate role %q", ErrInvalidDocument, rd.Name)
		}

		b := newRoleBuilder(rd.Name, catalog, opts)
		if err := b.build(rd); err != nil {
			return nil, fmt.Errorf("role %q: %w", rd.Name, err)
		}
		b.role.MakeImmutable()

		p.roles[rd.Name] = b.role
		p.names = append(p.names, rd.Name)
		logging.App.Debug("Built role", "role", rd.Name, "fingerprint", b.role.Fingerprint())
	}

	for user, names := range doc.Users {
		for _, name := range names {
			if _, ok := p.roles[name]; !ok {
				return nil, fmt.Errorf("%w: %q assigned to %s", ErrUnknownRole, name, user)
			}
		}
		p.users[user] = append([]string(nil), names...)
	}
	if doc.DefaultRole != "" {
		if _, ok := p.roles[doc.DefaultRole]; !ok {
			return nil, fmt.Errorf("%w: default role %q", ErrUnknownRole, doc.DefaultRole)
		}
	}

	return p, nil
}

type roleBuilder struct {
	name    string
	catalog *olap.Catalog
	role    *access.Role
	audit   logging.AuditLogger
}

func newRoleBuilder(name string, catalog *olap.Catalog, opts Options) *roleBuilder {
	var roleOpts []access.RoleOption
	if opts.MemberCacheSize != 0 {
		roleOpts = append(roleOpts, access.WithMemberCacheSize(opts.MemberCacheSize))
	}
	audit := opts.Audit
	if audit == nil {
		audit = logging.Audit
	}
	return &roleBuilder{
		name:    name,
		catalog: catalog,
		role:    access.NewRole(roleOpts...),
		audit:   audit,
	}
}

func (b *roleBuilder) build(rd RoleDocument) error {
	for _, sg := range rd.SchemaGrants {
		a, err := parseAccess(sg.Access)
		if err != nil {
			return err
		}
		if err := b.grant("schema", b.catalog, a, func() { b.role.GrantSchema(b.catalog, a) }); err != nil {
			return err
		}
		for _, cg := range sg.CubeGrants {
			if err := b.buildCube(cg); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *roleBuilder) buildCube(cg CubeGrant) error {
	cube, ok := b.catalog.Cube(cg.Cube)
	if !ok {
		return fmt.Errorf("%w: cube %q", ErrUnknownElement, cg.Cube)
	}
	a, err := parseAccess(cg.Access)
	if err != nil {
		return err
	}
	if err := b.grant("cube", cube, a, func() { b.role.GrantCube(cube, a) }); err != nil {
		return err
	}

	for _, dg := range cg.DimensionGrants {
		d, ok := cube.Dimension(bracket(dg.Dimension))
		if !ok {
			return fmt.Errorf("%w: dimension %q in %s", ErrUnknownElement, dg.Dimension, cube.UniqueName())
		}
		a, err := parseAccess(dg.Access)
		if err != nil {
			return err
		}
		if err := b.grant("dimension", d, a, func() { b.role.GrantDimension(d, a) }); err != nil {
			return err
		}
	}

	for _, hg := range cg.HierarchyGrants {
		if err := b.buildHierarchy(cube, hg); err != nil {
			return err
		}
	}
	return nil
}

func (b *roleBuilder) buildHierarchy(cube *olap.CatalogCube, hg HierarchyGrant) error {
	h, ok := cube.Hierarchy(bracket(hg.Hierarchy))
	if !ok {
		return fmt.Errorf("%w: hierarchy %q in %s", ErrUnknownElement, hg.Hierarchy, cube.UniqueName())
	}
	a, err := parseAccess(hg.Access)
	if err != nil {
		return err
	}
	top, err := b.level(cube, hg.TopLevel)
	if err != nil {
		return err
	}
	bottom, err := b.level(cube, hg.BottomLevel)
	if err != nil {
		return err
	}
	rollup := access.RollupHidden
	if hg.RollupPolicy != "" {
		if rollup, err = access.ParseRollupPolicy(hg.RollupPolicy); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}

	err = b.grant("hierarchy", h, a, func() { b.role.GrantHierarchy(h, a, top, bottom, rollup) },
		"rollup", rollup)
	if err != nil {
		return err
	}

	for _, mg := range hg.MemberGrants {
		m, ok := cube.Member(mg.Member)
		if !ok || m.Hierarchy() != olap.Hierarchy(h) {
			return fmt.Errorf("%w: member %q in %s", ErrUnknownElement, mg.Member, h.UniqueName())
		}
		a, err := parseAccess(mg.Access)
		if err != nil {
			return err
		}
		if err := b.grant("member", m, a, func() { b.role.GrantMember(m, a) }); err != nil {
			return err
		}
	}
	return nil
}

// level resolves an optional bound; an empty name means the default
func (b *roleBuilder) level(cube *olap.CatalogCube, name string) (olap.Level, error) {
	if name == "" {
		return nil, nil
	}
	l, ok := cube.Level(name)
	if !ok {
		return nil, fmt.Errorf("%w: level %q in %s", ErrUnknownElement, name, cube.UniqueName())
	}
	return l, nil
}

// grant runs fn and reports a rejected grant as an error
func (b *roleBuilder) grant(kind string, e olap.Element, a access.Access, fn func(), details ...interface{}) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		perr, ok := r.(error)
		if !ok {
			panic(r)
		}
		err = fmt.Errorf("%w: %s %s: %w", ErrInvalidGrant, kind, e.UniqueName(), perr)
	}()

	fn()
	b.audit.LogGrant(b.name, kind, e.UniqueName(), a.String(), details...)
	return nil
}

func parseAccess(s string) (access.Access, error) {
	if s == "" {
		return access.None, fmt.Errorf("%w: missing access", ErrInvalidDocument)
	}
	a, err := access.ParseAccess(s)
	if err != nil {
		return access.None, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return a, nil
}

// bracket accepts "Store" as shorthand for "[Store]"
func bracket(name string) string {
	if strings.HasPrefix(name, "[") {
		return name
	}
	return "[" + name + "]"
}

// IsNotFound reports whether err names an element or role that does not
// exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownElement) || errors.Is(err, ErrUnknownRole)
}
