package lookup

import (
	"net/netip"

	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/logger"
	"github.com/ipmeta/ipmeta/records"
	"github.com/ipmeta/ipmeta/source"
)

// buildIXPIndex inserts every peering-LAN prefix into the exchange
// longest-prefix-match index. Records missing prefix, name, or exchange id
// are logged and skipped; only a failing source aborts the phase.
func (e *Engine) buildIXPIndex(src source.Source[records.ExchangeRecord]) error {
	logger.Infof("Reading ix entries from %s", src.Name())

	ixIDs := make(map[int]struct{})
	prefixes := make(map[netip.Prefix]struct{})
	err := src.Each(func(rec records.ExchangeRecord) bool {
		if rec.Prefix == "" || rec.Name == "" || rec.IXID == 0 {
			logger.Warnf("Read invalid ix entry: %+v", rec)
			return true
		}
		pfx, err := netip.ParsePrefix(rec.Prefix)
		if err != nil {
			logger.Warnf("Read ix entry with bad prefix %q: %v", rec.Prefix, err)
			return true
		}
		pfx = pfx.Masked()
		e.ixp.Insert(pfx, ixpEntry{id: rec.IXID, name: rec.Name})
		ixIDs[rec.IXID] = struct{}{}
		prefixes[pfx] = struct{}{}
		return true
	})
	if err != nil {
		return errors.Wrapf(err, "reading exchange records from %s", src.Name())
	}

	logger.Infof("Loaded %d IXPs with %d prefixes", len(ixIDs), len(prefixes))
	return nil
}
