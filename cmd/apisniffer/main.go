// apisniffer - HTTP traffic capture, inspection, and persistence.
package main

import (
	"fmt"
	"os"

	"github.com/Shubhon9/api-sniffer/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
)

func main() {
	root := cli.NewRootCmd(Version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
