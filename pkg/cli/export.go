package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shubhon9/api-sniffer/pkg/export"
	"github.com/Shubhon9/api-sniffer/pkg/masking"
	"github.com/Shubhon9/api-sniffer/pkg/persist"
	"github.com/Shubhon9/api-sniffer/pkg/requestlog"
)

func newExportCmd() *cobra.Command {
	var (
		filePath string
		format   string
		method   string
		status   int
		pathRE   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a persisted capture log to stdout",
		Long: `Reads a persisted capture log file and prints it as JSON or CSV,
optionally filtered. Entries in the file were masked at capture time,
so exports never contain sensitive values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := persist.LoadFile(filePath)
			if err != nil {
				return err
			}

			// Replay through a store so filtering and ordering match
			// the admin API exactly.
			mem := requestlog.NewMemoryStore(len(entries), masking.NewPolicy())
			mem.Restore(entries)
			filtered, err := mem.List(&requestlog.Filter{
				Method:      method,
				StatusCode:  status,
				PathPattern: pathRE,
				Limit:       limit,
			})
			if err != nil {
				return err
			}

			data, err := export.Export(filtered, export.Format(format))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "api-sniffer.log.json", "capture log file to export")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json or csv)")
	cmd.Flags().StringVar(&method, "method", "", "filter by HTTP method")
	cmd.Flags().IntVar(&status, "status", 0, "filter by response status code")
	cmd.Flags().StringVar(&pathRE, "path", "", "filter by path regular expression")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries to export")
	return cmd
}
