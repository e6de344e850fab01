package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/l2net/cmd/l2netctl/handlers"
)

// Switches returns the command listing registered switches.
func Switches(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "switches",
		Aliases: []string{"sw"},
		Short:   "List registered switches and their free interfaces",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Switches(cmd.Context(), flags.configPath, flags.output)
		},
	}
}

// Interfaces returns the command listing interfaces and their bindings.
//
// Optional flags:
//
//	--node, -n: Only list interfaces on this node
func Interfaces(flags *globalFlags) *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:     "interfaces",
		Aliases: []string{"if"},
		Short:   "List interfaces with their network and pod bindings",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Interfaces(cmd.Context(), flags.configPath, flags.output, node)
		},
	}

	cmd.Flags().StringVarP(&node, "node", "n", "", "Only list interfaces on this node")

	return cmd
}

// Networks returns the command listing registered networks.
func Networks(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "networks",
		Aliases: []string{"net"},
		Short:   "List networks registered with the SDN controller",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Networks(cmd.Context(), flags.configPath, flags.output)
		},
	}
}
