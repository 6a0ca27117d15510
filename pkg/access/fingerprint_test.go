package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqualIgnoresGrantOrder(t *testing.T) {
	f := newFixture(t)
	store := f.store(t)
	timeH := f.hierarchy(t, timeHierarchy)
	quarter := f.member(t, "[Time].[1997].[Q1]")

	a := NewRole()
	a.GrantSchema(f.catalog, Custom)
	a.GrantCube(f.sales, All)
	a.GrantCube(f.warehouse, None)
	a.GrantHierarchy(store, Custom, nil, nil, RollupPartial)
	a.GrantMember(f.member(t, oregon), All)
	a.GrantHierarchy(timeH, Custom, nil, nil, RollupFull)
	a.GrantMember(quarter, None)
	a.MakeImmutable()

	b := NewRole()
	b.GrantCube(f.sales, All)
	b.GrantHierarchy(timeH, Custom, nil, nil, RollupFull)
	b.GrantMember(quarter, None)
	b.GrantHierarchy(store, Custom, nil, nil, RollupPartial)
	b.GrantMember(f.member(t, oregon), All)
	b.GrantCube(f.warehouse, None)
	b.GrantSchema(f.catalog, Custom)
	b.MakeImmutable()

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)

	c := a.MakeMutableClone()
	c.GrantMember(f.member(t, portland), None)
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestEqualDistinguishesCubes(t *testing.T) {
	f := newFixture(t)

	a := NewRole()
	a.GrantDimension(f.dimension(t, f.sales, "[Store]"), All)
	b := NewRole()
	b.GrantDimension(f.dimension(t, f.warehouse, "[Store]"), All)

	assert.False(t, a.Equal(b))
	assert.True(t, NewRole().Equal(NewRole()))
	assert.False(t, a.Equal(nil))
}

func TestHashStableOnceFrozen(t *testing.T) {
	f := newFixture(t)
	r := NewRole()
	empty := r.Hash()
	r.GrantCube(f.sales, All)
	assert.NotEqual(t, empty, r.Hash(), "mutable roles rehash")

	r.MakeImmutable()
	h := r.Hash()
	assert.NotZero(t, h)
	assert.Equal(t, h, r.Hash())
	assert.Equal(t, h, r.hash.Load())
}
