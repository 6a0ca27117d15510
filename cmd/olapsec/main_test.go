package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/mmcdole/olapsec/pkg/access"
	"github.com/mmcdole/olapsec/pkg/logging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
name: FoodMart
dimensions:
  - name: Store
    hierarchies:
      - allMember: All Stores
        levels: [Country, State, City]
        members:
          - name: USA
            children:
              - name: CA
                children: [San Francisco, Los Angeles]
              - name: OR
                children: [Portland]
          - Mexico
cubes:
  - name: Sales
    dimensions: [Store]
  - name: Warehouse
    dimensions: [Store]
namedSets:
  - name: Top Stores
    expression: "TopCount([Store].[City].Members, 5)"
`

const testPolicy = `
roles:
  - name: California manager
    schemaGrants:
      - access: none
        cubeGrants:
          - cube: Sales
            access: all
            hierarchyGrants:
              - hierarchy: Store
                access: custom
                topLevel: "[Store].[Country]"
                rollupPolicy: partial
                memberGrants:
                  - member: "[Store].[USA].[CA]"
                    access: all
                  - member: "[Store].[USA].[CA].[Los Angeles]"
                    access: none
  - name: Warehouse clerk
    schemaGrants:
      - access: custom
        cubeGrants:
          - cube: Warehouse
            access: all
users:
  alice: [California manager]
defaultRole: Warehouse clerk
`

const testConfig = `{
	"catalog_path": "catalog.yaml",
	"policy_path": "policy.yaml"
}`

func setupEnvironment(t *testing.T) *environment {
	t.Helper()
	return setupEnvironmentWithConfig(t, testConfig)
}

func setupEnvironmentWithConfig(t *testing.T, config string) *environment {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/olapsec/catalog.yaml", []byte(testCatalog), 0644))
	require.NoError(t, afero.WriteFile(fs, "/etc/olapsec/policy.yaml", []byte(testPolicy), 0644))
	require.NoError(t, afero.WriteFile(fs, "/etc/olapsec/config.json", []byte(config), 0644))

	app, audit := logging.App, logging.Audit
	t.Cleanup(func() { logging.App, logging.Audit = app, audit })

	previous := cfgFile
	cfgFile = "/etc/olapsec/config.json"
	t.Cleanup(func() { cfgFile = previous })

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	env, err := loadEnvironment(fs)
	require.NoError(t, err)
	return env
}

func TestLoadEnvironment(t *testing.T) {
	previous := cfgFile
	cfgFile = ""
	defer func() { cfgFile = previous }()

	_, err := loadEnvironment(afero.NewMemMapFs())
	assert.ErrorContains(t, err, "config file is required")

	env := setupEnvironment(t)
	assert.Equal(t, "FoodMart", env.catalog.Name())
	assert.Equal(t, []string{"California manager", "Warehouse clerk"}, env.roles.RoleNames())
}

func TestAuthorizer(t *testing.T) {
	env := setupEnvironment(t)

	_, name, err := env.authorizer([]string{"California manager", "Warehouse clerk"}, "")
	require.NoError(t, err)
	assert.Equal(t, "[California manager Warehouse clerk]", name)

	_, name, err = env.authorizer(nil, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	_, _, err = env.authorizer([]string{"ghost"}, "")
	assert.Error(t, err)

	_, _, err = env.authorizer([]string{"Warehouse clerk"}, "alice")
	assert.ErrorContains(t, err, "either --role or --user")

	_, _, err = env.authorizer(nil, "")
	assert.ErrorContains(t, err, "required")
}

func TestElement(t *testing.T) {
	env := setupEnvironment(t)

	tests := []struct {
		cube string
		name string
		kind string
	}{
		{"", "FoodMart", "schema"},
		{"", "Sales", "cube"},
		{"", "[Warehouse]", "cube"},
		{"", "Top Stores", "named_set"},
		{"Sales", "[Store]", "dimension"},
		{"Sales", "[Store].[State]", "level"},
		{"Sales", "[Store].[USA].[OR]", "member"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := env.element(tt.cube, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, access.ElementKind(e))
		})
	}

	_, err := env.element("", "[Store]")
	assert.ErrorContains(t, err, "use --cube")

	_, err = env.element("Inventory", "[Store]")
	assert.ErrorContains(t, err, "cube \"Inventory\" not found")

	_, err = env.element("Sales", "[Store].[Atlantis]")
	assert.ErrorContains(t, err, "not found in cube Sales")
}

func TestRunCheck(t *testing.T) {
	env := setupEnvironment(t)
	a, name, err := env.authorizer(nil, "alice")
	require.NoError(t, err)

	check := func(cube, element string) string {
		e, err := env.element(cube, element)
		require.NoError(t, err)
		var out bytes.Buffer
		require.NoError(t, runCheck(&out, name, a, e))
		return out.String()
	}

	out := check("Sales", "[Store].[USA]")
	assert.Contains(t, out, "alice member [Store].[USA]")
	assert.Contains(t, out, "access:  custom")
	assert.Contains(t, out, "visible: true")
	assert.Contains(t, out, "hasInaccessibleDescendants: true")

	out = check("Sales", "[Store].[USA].[CA].[Los Angeles]")
	assert.Contains(t, out, "access:  none")
	assert.Contains(t, out, "visible: false")

	out = check("Sales", "[Store]")
	assert.Contains(t, out, "dimension [Store]")

	out = check("", "Warehouse")
	assert.Contains(t, out, "access:  none")
}

func TestRunCheckHierarchy(t *testing.T) {
	env := setupEnvironment(t)
	a, _, err := env.authorizer([]string{"California manager"}, "")
	require.NoError(t, err)

	sales, err := env.cube("Sales")
	require.NoError(t, err)
	h, ok := sales.Hierarchy("[Store]")
	require.True(t, ok)

	var out bytes.Buffer
	require.NoError(t, runCheck(&out, "manager", a, h))
	assert.Contains(t, out.String(), "topLevelDepth:    1")
	assert.Contains(t, out.String(), "bottomLevelDepth: 3")
	assert.Contains(t, out.String(), "rollupPolicy:     partial")
}

func TestRunReport(t *testing.T) {
	env := setupEnvironment(t)
	a, _, err := env.authorizer([]string{"California manager"}, "")
	require.NoError(t, err)
	sales, err := env.cube("Sales")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runReport(&out, a, sales, false))
	assert.Contains(t, out.String(), "levels 1-3, rollup partial")
	assert.NotContains(t, out.String(), "[Store].[USA].[CA]")

	out.Reset()
	require.NoError(t, runReport(&out, a, sales, true))
	assert.Contains(t, out.String(), "[Store].[USA].[CA].[San Francisco]")
	assert.Contains(t, out.String(), "has hidden descendants")
}

func TestRunRoles(t *testing.T) {
	env := setupEnvironment(t)

	var out bytes.Buffer
	require.NoError(t, runRoles(&out, env.roles))

	manager, err := env.roles.Role("California manager")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "California manager")
	assert.Contains(t, out.String(), manager.Fingerprint())
}

func TestRunCheckAudit(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.log")
	env := setupEnvironmentWithConfig(t, fmt.Sprintf(`{
		"catalog_path": "catalog.yaml",
		"policy_path": "policy.yaml",
		"audit_log_path": %q
	}`, auditPath))

	a, name, err := env.authorizer(nil, "alice")
	require.NoError(t, err)
	e, err := env.element("Sales", "[Store].[USA].[OR]")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, runCheck(&out, name, a, e))
	assert.Contains(t, out.String(), "visible: false")

	data, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	var decisions []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if strings.Contains(line, "op=decision") {
			decisions = append(decisions, line)
		}
	}
	require.Len(t, decisions, 1)
	assert.Contains(t, decisions[0], "op=decision role=alice kind=member element=[Store].[USA].[OR] access=none granted=false")
}
