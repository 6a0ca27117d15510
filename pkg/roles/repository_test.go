package roles

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/mmcdole/olapsec/pkg/access"
	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/mmcdole/olapsec/pkg/olap"
	"github.com/mmcdole/olapsec/pkg/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *olap.Catalog {
	t.Helper()
	b := olap.NewBuilder("FoodMart")
	b.Dimension("Store").Hierarchy("", "Country", "State").
		WithAll("All Stores").
		Member("USA").
		Member("USA", "CA").
		Member("USA", "OR")
	b.Cube("Sales", "Store")
	b.Cube("Warehouse", "Store")
	catalog, err := b.Build()
	require.NoError(t, err)
	return catalog
}

func cubeRole(name, cube string) map[string]interface{} {
	return map[string]interface{}{
		"name": name,
		"schemaGrants": []interface{}{
			map[string]interface{}{
				"access": "custom",
				"cubeGrants": []interface{}{
					map[string]interface{}{"cube": cube, "access": "all"},
				},
			},
		},
	}
}

func testPolicy() map[string]interface{} {
	return map[string]interface{}{
		"roles": []interface{}{
			cubeRole("Sales analyst", "Sales"),
			cubeRole("Warehouse clerk", "Warehouse"),
		},
		"users": map[string]interface{}{
			"alice": []interface{}{"Sales analyst"},
			"bob":   []interface{}{"Warehouse clerk", "Sales analyst"},
		},
		"defaultRole": "Warehouse clerk",
	}
}

// countingSource counts loads and fails them while err is set
type countingSource struct {
	policy.Source
	loads int
	err   error
}

func (s *countingSource) LoadRawData() (map[string]interface{}, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.Source.LoadRawData()
}

func newTestRepository(t *testing.T, source policy.Source, cacheDuration time.Duration) *Repository {
	t.Helper()
	options := policy.Options{Audit: logging.NewAuditLoggerWriter(&bytes.Buffer{})}
	r, err := NewRepository(source, testCatalog(t), cacheDuration, options)
	require.NoError(t, err)
	return r
}

func TestRepository(t *testing.T) {
	source := policy.NewMemorySource(testPolicy())
	repository := newTestRepository(t, source, time.Hour)
	sales, _ := repository.catalog.Cube("Sales")
	warehouse, _ := repository.catalog.Cube("Warehouse")

	t.Run("role names", func(t *testing.T) {
		assert.Equal(t, []string{"Sales analyst", "Warehouse clerk"}, repository.RoleNames())
	})

	t.Run("get role", func(t *testing.T) {
		role, err := repository.Role("Sales analyst")
		require.NoError(t, err)
		assert.Equal(t, access.All, role.CubeAccess(sales))
		assert.False(t, role.IsMutable())

		_, err = repository.Role("ghost")
		assert.True(t, errors.Is(err, ErrRoleNotFound))
	})

	t.Run("resolve single role", func(t *testing.T) {
		a, err := repository.Resolve("Sales analyst", "Sales analyst")
		require.NoError(t, err)
		assert.IsType(t, &access.Role{}, a)
	})

	t.Run("resolve union", func(t *testing.T) {
		a, err := repository.Resolve("Warehouse clerk", "Sales analyst")
		require.NoError(t, err)
		require.IsType(t, &access.Union{}, a)
		assert.Equal(t, access.All, a.CubeAccess(sales))
		assert.Equal(t, access.All, a.CubeAccess(warehouse))

		again, err := repository.Resolve("Sales analyst", "Warehouse clerk")
		require.NoError(t, err)
		assert.Same(t, a, again, "unions are cached regardless of name order")

		_, err = repository.Resolve("Sales analyst", "ghost")
		assert.True(t, errors.Is(err, ErrRoleNotFound))

		_, err = repository.Resolve()
		assert.True(t, errors.Is(err, ErrNoRoles))
	})

	t.Run("resolve principal", func(t *testing.T) {
		alice, err := repository.ResolvePrincipal("alice")
		require.NoError(t, err)
		assert.Equal(t, access.None, alice.CubeAccess(warehouse))

		bob, err := repository.ResolvePrincipal("bob")
		require.NoError(t, err)
		assert.Equal(t, access.All, bob.CubeAccess(warehouse))
		assert.Equal(t, access.All, bob.CubeAccess(sales))

		stranger, err := repository.ResolvePrincipal("stranger")
		require.NoError(t, err)
		assert.Equal(t, access.All, stranger.CubeAccess(warehouse))
		assert.Equal(t, access.None, stranger.CubeAccess(sales))
	})
}

func TestRepositoryNoDefaultRole(t *testing.T) {
	data := testPolicy()
	delete(data, "defaultRole")
	repository := newTestRepository(t, policy.NewMemorySource(data), time.Hour)

	_, err := repository.ResolvePrincipal("stranger")
	assert.True(t, errors.Is(err, ErrNoRoles))
}

func TestRepositoryRefresh(t *testing.T) {
	source := policy.NewMemorySource(testPolicy())

	t.Run("cached until refresh", func(t *testing.T) {
		repository := newTestRepository(t, source, time.Hour)

		updated := testPolicy()
		updated["roles"] = []interface{}{cubeRole("Auditor", "Sales")}
		updated["users"] = map[string]interface{}{}
		updated["defaultRole"] = "Auditor"
		source.SetData(updated)
		t.Cleanup(func() { source.SetData(testPolicy()) })

		assert.Equal(t, []string{"Sales analyst", "Warehouse clerk"}, repository.RoleNames())

		require.NoError(t, repository.Refresh())
		assert.Equal(t, []string{"Auditor"}, repository.RoleNames())
	})

	t.Run("expired cache reloads", func(t *testing.T) {
		source.SetData(testPolicy())
		repository := newTestRepository(t, source, 0)

		updated := testPolicy()
		updated["roles"] = append(updated["roles"].([]interface{}), cubeRole("Auditor", "Sales"))
		source.SetData(updated)

		assert.Contains(t, repository.RoleNames(), "Auditor")
	})

	t.Run("failed reload keeps the previous policy", func(t *testing.T) {
		source.SetData(testPolicy())
		repository := newTestRepository(t, source, 0)

		source.SetData(map[string]interface{}{"defaultRole": "ghost"})
		assert.Error(t, repository.Refresh())
		assert.Equal(t, []string{"Sales analyst", "Warehouse clerk"}, repository.RoleNames())
	})

	t.Run("failed reload waits for the next expiry", func(t *testing.T) {
		counting := &countingSource{Source: policy.NewMemorySource(testPolicy())}
		repository := newTestRepository(t, counting, time.Hour)
		require.Equal(t, 1, counting.loads)

		counting.err = errors.New("policy store unavailable")
		repository.mu.Lock()
		repository.lastRefresh = time.Time{}
		repository.mu.Unlock()

		for i := 0; i < 3; i++ {
			assert.Equal(t, []string{"Sales analyst", "Warehouse clerk"}, repository.RoleNames())
		}
		assert.Equal(t, 2, counting.loads)
	})

	t.Run("initial load errors", func(t *testing.T) {
		_, err := NewRepository(policy.NewMemorySource(nil), testCatalog(t), time.Hour, policy.Options{})
		assert.Error(t, err)
	})
}
