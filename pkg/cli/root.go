// Package cli implements the apisniffer command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the apisniffer root command.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "apisniffer",
		Short: "Capture, inspect, and persist HTTP request/response traffic",
		Long: `apisniffer records the HTTP traffic of a local service into a bounded
in-memory history, masks sensitive fields, and persists the history to
a file with adaptive write coalescing. The admin API exposes filtered
queries, statistics, exports, and live tailing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newExportCmd())
	return root
}
