package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/imamik/l2net/cmd/l2netctl/handlers"
)

// Status returns the command checking the operator's dependencies.
func Status(flags *globalFlags) *cobra.Command {
	var timeout time.Duration
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check database and SDN controller connectivity",
		Long: `Check that the database and the SDN controller answer, then summarize
free interfaces per node.

Exits non-zero when any check fails.

Examples:
  # Check with the configuration mounted into the operator
  l2netctl status -c /etc/l2net/config.yaml

  # Machine-readable report
  l2netctl status -o json

  # Live dashboard
  l2netctl status --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch {
				return handlers.StatusWatch(cmd.Context(), flags.configPath, interval)
			}
			return handlers.Status(cmd.Context(), flags.configPath, flags.output, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall timeout for the checks")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Continuously watch status in a dashboard")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Refresh interval with --watch")

	return cmd
}
