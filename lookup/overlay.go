package lookup

import (
	"net/netip"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipmeta/ipmeta/dump"
	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/logger"
	"github.com/ipmeta/ipmeta/records"
)

// mergeNeighborDumps overlays looking-glass neighbor snapshots onto the
// override map. Looking-glass data takes precedence over PeeringDB
// membership: an address already present is unconditionally overwritten,
// with a warning naming both ASNs. Statistics tables are not touched:
// overlay attributions show up in lookups but not in visibility counts.
//
// Files are processed in lexical filename order; when several dumps disagree
// on an address, the lexically last one wins, so reloads of the same
// directory are deterministic.
func (e *Engine) mergeNeighborDumps(dir string) error {
	logger.Infof("Loading route server looking glass dumps from: %s", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(errors.ErrSourceUnavailable, "reading looking glass dump directory %s: %v", dir, err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), dump.Suffix) {
			continue
		}
		logger.Infof("Loading dump: %s", entry.Name())

		var data records.NeighborDump
		if err := dump.ReadJSON(filepath.Join(dir, entry.Name()), &data); err != nil {
			logger.Errorf("Failed to load dump: %v", err)
			continue
		}
		for ip, asn := range data {
			addr, err := netip.ParseAddr(ip)
			if err != nil {
				logger.Warnf("Skipping looking glass entry with bad address %q: %v", ip, err)
				continue
			}
			addr = addr.Unmap()
			if prev, ok := e.override[addr]; ok && prev != asn {
				logger.Warnf("Overwriting IXP member for IP %s from PeeringDB with looking glass data. PDB: %d LG: %d",
					addr, prev, asn)
			}
			e.override[addr] = asn
		}
		logger.Infof("Loaded %d IXP IP -> AS mappings", len(data))
	}
	return nil
}
