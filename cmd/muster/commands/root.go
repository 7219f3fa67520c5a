package commands

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/muster/internal/version"
)

// NewRootCmd builds the muster command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "muster",
		Short: "Launch a set of local services and report their state",
		Long: `muster starts every service listed in a manifest, waits until each one
announces the address it listens on (or dies), serves their state and output
over HTTP and stops them all on SIGINT/SIGTERM.

Configuration comes from MUSTER_* environment variables; flags override them.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(), newStatusCmd(), newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
