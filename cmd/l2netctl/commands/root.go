// Package commands defines the l2netctl command tree and flag bindings.
//
// Command execution is delegated to handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// globalFlags are shared by every inventory command.
type globalFlags struct {
	configPath string
	output     string
}

// Root returns the root command for the l2netctl CLI.
func Root() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:          "l2netctl",
		Short:        "Inspect the L2 network operator's interface inventory",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to operator configuration file (environment variables override it)")
	cmd.PersistentFlags().StringVarP(&flags.output, "output", "o", "table", "Output format: table, yaml or json")

	cmd.AddCommand(Switches(flags))
	cmd.AddCommand(Interfaces(flags))
	cmd.AddCommand(Networks(flags))
	cmd.AddCommand(Status(flags))
	cmd.AddCommand(DB(flags))
	cmd.AddCommand(Export(flags))
	cmd.AddCommand(Snapshots(flags))
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
