package access

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mmcdole/olapsec/pkg/olap"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	catalog   *olap.Catalog
	sales     *olap.CatalogCube
	warehouse *olap.CatalogCube
	virtual   *olap.CatalogCube
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := olap.NewBuilder("FoodMart")
	b.Dimension("Store").Hierarchy("", "Country", "State", "City").
		WithAll("All Stores").
		Member("USA").
		Member("USA", "CA").
		Member("USA", "CA", "San Francisco").
		Member("USA", "CA", "Los Angeles").
		Member("USA", "OR").
		Member("USA", "OR", "Portland").
		Member("Mexico")
	b.Dimension("Time").Hierarchy("", "Year", "Quarter").
		Member("1997").
		Member("1997", "Q1").
		Member("1997", "Q2")
	b.Cube("Sales", "Store", "Time")
	b.Cube("Warehouse", "Store")
	b.VirtualCube("Warehouse and Sales", "Sales", "Warehouse")
	b.NamedSet("Top Stores", "TopCount([Store].[City].Members, 5)")

	catalog, err := b.Build()
	require.NoError(t, err)

	f := &fixture{catalog: catalog}
	var ok bool
	f.sales, ok = catalog.Cube("Sales")
	require.True(t, ok)
	f.warehouse, ok = catalog.Cube("Warehouse")
	require.True(t, ok)
	f.virtual, ok = catalog.Cube("Warehouse and Sales")
	require.True(t, ok)
	return f
}

func (f *fixture) dimension(t *testing.T, c *olap.CatalogCube, name string) olap.Dimension {
	t.Helper()
	d, ok := c.Dimension(name)
	require.True(t, ok, name)
	return d
}

func (f *fixture) hierarchy(t *testing.T, name string) olap.Hierarchy {
	t.Helper()
	h, ok := f.sales.Hierarchy(name)
	require.True(t, ok, name)
	return h
}

func (f *fixture) level(t *testing.T, name string) olap.Level {
	t.Helper()
	l, ok := f.sales.Level(name)
	require.True(t, ok, name)
	return l
}

func (f *fixture) member(t *testing.T, name string) olap.Member {
	t.Helper()
	m, ok := f.sales.Member(name)
	require.True(t, ok, name)
	return m
}

func (f *fixture) store(t *testing.T) olap.Hierarchy {
	return f.hierarchy(t, "[Store]")
}

const (
	allStores     = "[Store].[All Stores]"
	usa           = "[Store].[USA]"
	california    = "[Store].[USA].[CA]"
	sanFrancisco  = "[Store].[USA].[CA].[San Francisco]"
	losAngeles    = "[Store].[USA].[CA].[Los Angeles]"
	oregon        = "[Store].[USA].[OR]"
	portland      = "[Store].[USA].[OR].[Portland]"
	mexico        = "[Store].[Mexico]"
	countryLevel  = "[Store].[Country]"
	stateLevel    = "[Store].[State]"
	cityLevel     = "[Store].[City]"
	yearLevel     = "[Time].[Year]"
	timeHierarchy = "[Time]"
)

// customStore returns a role with Custom access to the store hierarchy
func (f *fixture) customStore(t *testing.T) *Role {
	r := NewRole()
	r.GrantHierarchy(f.store(t), Custom, nil, nil, RollupHidden)
	return r
}

func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	var recovered interface{}
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	require.NotNil(t, recovered, "expected a panic wrapping %v", target)

	err, ok := recovered.(error)
	require.True(t, ok, "panic value %v is not an error", recovered)
	require.True(t, errors.Is(err, target), fmt.Sprintf("%v does not wrap %v", err, target))
}
