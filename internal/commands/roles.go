package commands

import (
	"github.com/spf13/cobra"

	"github.com/studioline/shootplan/internal/output"
)

// NewRolesCmd lists the company's roles.
func NewRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the company's roles",
		Long:  "List the roles members can fill on an event. Role names are accepted wherever a role id is.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			resolver, err := app.Names()
			if err != nil {
				return err
			}
			roles, err := resolver.Roles(cmd.Context())
			if err != nil {
				return err
			}
			return app.OK(roles, output.WithSummary(plural(len(roles), "role")))
		},
	}
}
