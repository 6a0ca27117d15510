package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mmcdole/olapsec/pkg/roles"
	"github.com/spf13/cobra"
)

func newRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the policy's roles and their fingerprints",
		Long: `Roles lists every role of the policy. Two roles with the same
fingerprint grant exactly the same access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(appFs)
			if err != nil {
				return err
			}
			return runRoles(cmd.OutOrStdout(), env.roles)
		},
	}
}

func runRoles(w io.Writer, repository *roles.Repository) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Role", "Fingerprint"})

	for _, name := range repository.RoleNames() {
		role, err := repository.Role(name)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{name, role.Fingerprint()})
	}

	t.Render()
	return nil
}
