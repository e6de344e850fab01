package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/l2net/cmd/l2netctl/handlers"
)

// Export returns the command writing an inventory snapshot.
//
// Optional flags:
//
//	--upload: Upload to the configured object storage bucket instead of printing
func Export(flags *globalFlags) *cobra.Command {
	var upload bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a YAML snapshot of the interface inventory",
		Long: `Write a point-in-time YAML snapshot of switches, interfaces and networks.

With --upload the snapshot is stored in S3-compatible object storage under
<prefix>/<timestamp>.yaml, configured through the snapshot section of the
config file or the L2NET_SNAPSHOT_* environment variables.

Examples:
  # Print the snapshot
  l2netctl export > inventory.yaml

  # Upload it
  l2netctl export --upload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Export(cmd.Context(), flags.configPath, upload)
		},
	}

	cmd.Flags().BoolVar(&upload, "upload", false, "Upload to the configured bucket instead of printing")

	return cmd
}

// Snapshots returns the command listing uploaded snapshots.
func Snapshots(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List inventory snapshots stored in object storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Snapshots(cmd.Context(), flags.configPath, flags.output)
		},
	}
}
