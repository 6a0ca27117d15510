package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mmcdole/olapsec/pkg/access"
	"github.com/mmcdole/olapsec/pkg/olap"
	"github.com/spf13/cobra"
)

// memberLister is implemented by hierarchies that can enumerate members
type memberLister interface {
	Members() []olap.Member
}

func newReportCmd() *cobra.Command {
	var (
		roleNames []string
		user      string
		members   bool
	)

	cmd := &cobra.Command{
		Use:   "report <cube>",
		Short: "Print a table of a role's access to a cube",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(appFs)
			if err != nil {
				return err
			}
			a, _, err := env.authorizer(roleNames, user)
			if err != nil {
				return err
			}
			c, err := env.cube(args[0])
			if err != nil {
				return err
			}
			return runReport(cmd.OutOrStdout(), a, c, members)
		},
	}

	cmd.Flags().StringSliceVarP(&roleNames, "role", "r", nil, "role to report on (repeat for a union)")
	cmd.Flags().StringVarP(&user, "user", "u", "", "report on the roles assigned to a user")
	cmd.Flags().BoolVarP(&members, "members", "m", false, "include every member of custom hierarchies")
	return cmd
}

func runReport(w io.Writer, a access.Authorizer, c olap.Cube, members bool) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true, VAlign: text.VAlignMiddle},
	})
	t.AppendHeader(table.Row{"Dimension", "Element", "Kind", "Access", "Details"})

	t.AppendRow(table.Row{"", c.UniqueName(), "cube", colorAccess(a.CubeAccess(c)), ""})
	t.AppendSeparator()

	for _, d := range c.Dimensions() {
		dim := d.UniqueName()
		t.AppendRow(table.Row{dim, dim, "dimension", colorAccess(a.DimensionAccess(d)), ""})

		for _, h := range d.Hierarchies() {
			details := a.AccessDetails(h)
			t.AppendRow(table.Row{
				dim, h.UniqueName(), "hierarchy", colorAccess(details.Access()),
				fmt.Sprintf("levels %d-%d, rollup %s", details.TopLevelDepth(), details.BottomLevelDepth(), details.RollupPolicy()),
			})

			for _, l := range h.Levels() {
				t.AppendRow(table.Row{dim, l.UniqueName(), "level", colorAccess(a.LevelAccess(l)), ""})
			}

			lister, ok := h.(memberLister)
			if !members || !ok || details.Access() != access.Custom {
				continue
			}
			for _, m := range lister.Members() {
				var notes string
				if details.HasInaccessibleDescendants(m) {
					notes = "has hidden descendants"
				}
				name := strings.Repeat("  ", m.Level().Depth()) + m.UniqueName()
				t.AppendRow(table.Row{dim, name, "member", colorAccess(details.MemberAccess(m)), notes})
			}
		}
		t.AppendSeparator()
	}

	t.Render()
	return nil
}
