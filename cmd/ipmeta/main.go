package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ipmeta/ipmeta/cmd/ipmeta/commands"
	"github.com/ipmeta/ipmeta/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ipmeta",
	Short: "ipmeta - IP address attribution for network measurement",
	Long: `ipmeta - IP address attribution for network measurement.

ipmeta maps IP addresses to the autonomous systems and Internet exchange
points behind them, combining routing table snapshots, PeeringDB exchange
data, and looking glass neighbor dumps.

Available commands:
  lookup  - Attribute IP addresses to ASNs and IXPs
  asn     - Show where an ASN is visible (routing tables, exchange memberships)
  fetch   - Fetch and dump the upstream data sets
  version - Show version information

Examples:
  ipmeta lookup 192.0.2.1           # Attribute one address
  ipmeta asn 65001 --family 6       # IPv6 visibility of AS65001
  ipmeta fetch pdb                  # Dump PeeringDB exchange data
  ipmeta fetch lg                   # Crawl configured looking glasses
  ipmeta fetch rib                  # Download a routing table snapshot`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(logger.VerbosityToLevel(verbosity), jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON instead of console output")
	rootCmd.PersistentFlags().StringVar(&commands.ConfigFile, "config", "", "Config file (default: ./ipmeta.toml)")

	rootCmd.AddCommand(commands.LookupCmd)
	rootCmd.AddCommand(commands.AsnCmd)
	rootCmd.AddCommand(commands.FetchCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
