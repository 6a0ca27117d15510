package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mmcdole/olapsec/pkg/access"
	"github.com/mmcdole/olapsec/pkg/olap"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var appFs = afero.NewOsFs()

var (
	grantedColor = color.New(color.FgGreen, color.Bold)
	partialColor = color.New(color.FgYellow)
	deniedColor  = color.New(color.FgRed, color.Bold)
)

// colorAccess renders an access value colored by how much it shows
func colorAccess(a access.Access) string {
	switch a {
	case access.None:
		return deniedColor.Sprint(a)
	case access.All, access.AllDimensions:
		return grantedColor.Sprint(a)
	default:
		return partialColor.Sprint(a)
	}
}

func newCheckCmd() *cobra.Command {
	var (
		roleNames []string
		user      string
		cubeName  string
	)

	cmd := &cobra.Command{
		Use:   "check <unique-name>",
		Short: "Check a role's access to one element",
		Long: `Check prints the access a role, a set of roles or a user's roles
have to a schema, cube, named set, dimension, hierarchy, level or member.

Without --cube the name is resolved against the catalog, its cubes and its
named sets. With --cube it is resolved inside that cube.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(appFs)
			if err != nil {
				return err
			}
			a, name, err := env.authorizer(roleNames, user)
			if err != nil {
				return err
			}
			e, err := env.element(cubeName, args[0])
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), name, a, e)
		},
	}

	cmd.Flags().StringSliceVarP(&roleNames, "role", "r", nil, "role to check (repeat for a union)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "check the roles assigned to a user")
	cmd.Flags().StringVar(&cubeName, "cube", "", "cube to resolve the element in")
	return cmd
}

// element resolves a unique name to a catalog element
func (e *environment) element(cubeName, name string) (olap.Element, error) {
	if cubeName != "" {
		c, err := e.cube(cubeName)
		if err != nil {
			return nil, err
		}
		if el, ok := c.Lookup(name); ok {
			return el, nil
		}
		return nil, fmt.Errorf("%s not found in cube %s", name, c.Name())
	}

	if name == e.catalog.Name() {
		return e.catalog, nil
	}
	if c, ok := e.catalog.Cube(name); ok {
		return c, nil
	}
	if s, ok := e.catalog.NamedSet(name); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%s not found (use --cube for dimensions, hierarchies, levels and members)", name)
}

func runCheck(w io.Writer, name string, a access.Authorizer, e olap.Element) error {
	level := access.ElementAccess(a, e)
	granted := level != access.None

	fmt.Fprintf(w, "%s %s %s\n", name, access.ElementKind(e), e.UniqueName())
	fmt.Fprintf(w, "  access:  %s\n", colorAccess(level))
	fmt.Fprintf(w, "  visible: %t\n", granted)

	switch e := e.(type) {
	case olap.Member:
		details := a.AccessDetails(e.Hierarchy())
		fmt.Fprintf(w, "  hasInaccessibleDescendants: %t\n", details.HasInaccessibleDescendants(e))
	case olap.Hierarchy:
		details := a.AccessDetails(e)
		fmt.Fprintf(w, "  topLevelDepth:    %d\n", details.TopLevelDepth())
		fmt.Fprintf(w, "  bottomLevelDepth: %d\n", details.BottomLevelDepth())
		fmt.Fprintf(w, "  rollupPolicy:     %s\n", details.RollupPolicy())
	}
	return nil
}
