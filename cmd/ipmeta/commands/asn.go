package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/lookup"
)

var asnFamily string

// AsnCmd represents the asn command
var AsnCmd = &cobra.Command{
	Use:   "asn ASN [ASN...]",
	Short: "Show where an ASN is visible",
	Long: `Show where an ASN is visible, per data source.

For each ASN this reports whether it announces prefixes in the routing table
snapshot and whether it appears as an exchange member, along with prefix and
address counts per source.

Examples:
  ipmeta asn 65001
  ipmeta asn 65001 65002 --family 6`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsnCommand,
}

func init() {
	AsnCmd.Flags().StringVar(&asnFamily, "family", "4", "Address family (4/6)")
}

func parseFamily(s string) (lookup.AddressFamily, error) {
	switch s {
	case "4", "ipv4", "IPv4":
		return lookup.IPv4, nil
	case "6", "ipv6", "IPv6":
		return lookup.IPv6, nil
	}
	return 0, errors.Newf("unknown address family %q (want 4 or 6)", s)
}

func runAsnCommand(cmd *cobra.Command, args []string) error {
	family, err := parseFamily(asnFamily)
	if err != nil {
		return err
	}
	asns := make([]uint32, 0, len(args))
	for _, arg := range args {
		asn, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return errors.Wrapf(err, "parsing ASN %q", arg)
		}
		asns = append(asns, uint32(asn))
	}

	engine, err := buildEngine(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ASN\tIN RIB\tRIB PREFIXES\tRIB ADDRESSES\tIN MEMBERSHIP\tMEMBER PREFIXES\tMEMBER ADDRESSES")
	for _, asn := range asns {
		vis := engine.ASN2Source(asn, family)
		fmt.Fprintf(w, "AS%d\t%t\t%d\t%s\t%t\t%d\t%s\n",
			asn,
			vis.InRIB, vis.RIBStats.PrefixCount, vis.RIBStats.AddressSum.String(),
			vis.InMembership, vis.MembershipStats.PrefixCount, vis.MembershipStats.AddressSum.String())
	}
	return w.Flush()
}
