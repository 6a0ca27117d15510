package access

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/mmcdole/olapsec/pkg/olap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stateOnly hides every member below the state level
type stateOnly struct {
	Delegate
}

func (s stateOnly) MemberAccess(m olap.Member) Access {
	if m.Level().Depth() > 2 {
		return None
	}
	return s.Authorizer.MemberAccess(m)
}

func (s stateOnly) CanAccess(e olap.Element) bool {
	return CanAccess(s, e)
}

func TestDelegate(t *testing.T) {
	f := newFixture(t)
	r := NewRole()
	r.GrantCube(f.sales, All)
	r.MakeImmutable()

	d := NewDelegate(r)
	assert.Same(t, r, d.Unwrap())
	assert.Equal(t, All, d.CubeAccess(f.sales))
	assert.True(t, d.CanAccess(f.member(t, sanFrancisco)))

	s := stateOnly{Delegate: d}
	assert.Equal(t, All, s.CubeAccess(f.sales))
	assert.True(t, s.CanAccess(f.member(t, california)))
	assert.False(t, s.CanAccess(f.member(t, sanFrancisco)))
}

func TestAuditor(t *testing.T) {
	f := newFixture(t)
	r := f.customStore(t)
	r.GrantMember(f.member(t, oregon), None)
	r.MakeImmutable()

	var buf bytes.Buffer
	a := NewAuditor("No Oregon", r, logging.NewAuditLoggerWriter(&buf))

	assert.True(t, a.CanAccess(f.member(t, california)))
	assert.False(t, a.CanAccess(f.member(t, portland)))
	assert.Equal(t, Custom, a.HierarchyAccess(f.store(t)))

	assert.Equal(t, None, a.CubeAccess(f.warehouse))
	assert.Equal(t, Custom, a.LevelAccess(f.level(t, stateLevel)))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], `op=decision role="No Oregon" kind=member element=[Store].[USA].[CA] access=all granted=true`)
	assert.Contains(t, lines[1], "element=[Store].[USA].[OR].[Portland] access=none granted=false")
	assert.Contains(t, lines[2], "kind=hierarchy element=[Store] access=custom granted=true")
	assert.Contains(t, lines[3], "kind=cube element=[Warehouse] access=none granted=false")
	assert.Contains(t, lines[4], "kind=level element=[Store].[State] access=custom granted=true")

	t.Run("Details are not audited", func(t *testing.T) {
		buf.Reset()
		details := a.AccessDetails(f.store(t))
		assert.Equal(t, None, details.MemberAccess(f.member(t, portland)))
		assert.Empty(t, buf.String())
	})
}
