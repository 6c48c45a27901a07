// sondectl processes Level-1 sounding files offline: the same per-sonde
// chain the ETL service runs, plus circle products, without Kafka.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sondectl",
	Short: "Offline dropsonde processing",
	Long: `sondectl runs the dropsonde processing chain on local NetCDF files:
quality control, altitude regridding and provenance flagging per sonde,
and circle-fit products per flight segment.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
