package commands

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/spf13/cobra"

	"github.com/ipmeta/ipmeta/dump"
	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/fetch/lg"
	"github.com/ipmeta/ipmeta/fetch/pdb"
	"github.com/ipmeta/ipmeta/logger"
	"github.com/ipmeta/ipmeta/ribdb"
)

// FetchCmd represents the fetch command
var FetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch and dump the upstream data sets",
	Long: `Fetch the upstream data sets and write them as dated dump files.

Dated files land in <output_dir>/data/ and a .latest symlink in <output_dir>
always points at the newest dump of each kind.

Examples:
  ipmeta fetch pdb
  ipmeta fetch lg
  ipmeta fetch rib https://example.org/routeviews-rv2-latest.pfx2as.gz`,
}

var fetchPdbCmd = &cobra.Command{
	Use:   "pdb",
	Short: "Dump PeeringDB exchange and membership data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f := pdb.New(cfg.Fetch, fetchClient(cfg.Fetch))
		return f.Run(cmd.Context())
	},
}

var fetchLgCmd = &cobra.Command{
	Use:   "lg",
	Short: "Crawl the configured looking glasses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(cfg.Fetch.LookingGlasses) == 0 {
			return errors.NewConfigurationError("no looking glasses configured")
		}
		return lg.RunAll(cmd.Context(), cfg.Fetch, fetchClient(cfg.Fetch))
	},
}

var fetchRibCmd = &cobra.Command{
	Use:   "rib URL",
	Short: "Download a prefix-to-ASN snapshot and convert it to a RIB dump",
	Long: `Download a prefix-to-ASN snapshot (RouteViews pfx2as format, gzipped
TSV of prefix, length, and origin ASN) and convert it into the RIB database
dump the lookup engine consumes.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetchRibCommand,
}

func init() {
	FetchCmd.AddCommand(fetchPdbCmd)
	FetchCmd.AddCommand(fetchLgCmd)
	FetchCmd.AddCommand(fetchRibCmd)
}

const ribName = "rib"

func runFetchRibCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "ipmeta-rib-*")
	if err != nil {
		return errors.Wrap(err, "creating download directory")
	}
	defer os.RemoveAll(tmpDir)

	logger.Infof("Downloading %s", args[0])
	resp, err := grab.Get(tmpDir, args[0])
	if err != nil {
		return errors.Wrapf(errors.ErrSourceUnavailable, "downloading %s: %v", args[0], err)
	}
	logger.Infof("Downloaded %s (%d bytes)", resp.Filename, resp.Size())

	entries, err := ribdb.ReadPfx2AS(resp.Filename)
	if err != nil {
		return err
	}
	logger.Infof("Parsed %d prefix entries", len(entries))

	now := time.Now().UTC()
	dated := filepath.Join(dump.SubdirName, dump.DatedName(ribName, now))
	if err := dump.WriteRecords(filepath.Join(cfg.Fetch.OutputDir, dated), entries); err != nil {
		return err
	}
	link := filepath.Join(cfg.Fetch.OutputDir, dump.LatestName(ribName))
	return dump.UpdateSymlink(dated, link)
}
