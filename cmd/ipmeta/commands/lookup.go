package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var lookupFormat string

// LookupCmd represents the lookup command
var LookupCmd = &cobra.Command{
	Use:   "lookup IP [IP...]",
	Short: "Attribute IP addresses to ASNs and IXPs",
	Long: `Attribute IP addresses to autonomous systems and Internet exchange points.

Each address is resolved against the routing table snapshot first and the
exchange membership data second. Addresses that cannot be attributed print
AS0; addresses outside any exchange print an empty IXP.

Examples:
  ipmeta lookup 192.0.2.1
  ipmeta lookup 192.0.2.1 2001:db8::1 --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookupCommand,
}

func init() {
	LookupCmd.Flags().StringVarP(&lookupFormat, "format", "f", "table", "Output format (table/json)")
}

type lookupResult struct {
	IP      string `json:"ip"`
	ASN     string `json:"asn"`
	Prefix  string `json:"prefix,omitempty"`
	IXPName string `json:"ixp_name,omitempty"`
	IXPID   int    `json:"ixp_id,omitempty"`
}

func runLookupCommand(cmd *cobra.Command, args []string) error {
	engine, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}

	results := make([]lookupResult, 0, len(args))
	for _, ip := range args {
		results = append(results, lookupResult{
			IP:      ip,
			ASN:     engine.IP2ASN(ip),
			Prefix:  engine.IP2Prefix(ip),
			IXPName: engine.IP2IXPName(ip),
			IXPID:   engine.IP2IXPID(ip),
		})
	}

	if lookupFormat == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "IP\tASN\tPREFIX\tIXP")
	for _, r := range results {
		ixp := r.IXPName
		if r.IXPID != 0 {
			ixp = fmt.Sprintf("%s (%d)", r.IXPName, r.IXPID)
		}
		fmt.Fprintf(w, "%s\tAS%s\t%s\t%s\n", r.IP, r.ASN, r.Prefix, ixp)
	}
	return w.Flush()
}
