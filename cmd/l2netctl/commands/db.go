package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/l2net/cmd/l2netctl/handlers"
)

// DB returns the database maintenance command group.
func DB(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the inventory tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DBInit(cmd.Context(), flags.configPath)
		},
	})

	return cmd
}
