package lookup

import (
	"net/netip"

	"lukechampine.com/uint128"

	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/logger"
	"github.com/ipmeta/ipmeta/records"
	"github.com/ipmeta/ipmeta/source"
)

// buildOverrides fills the exact IP to ASN override map from exchange
// membership records and maintains the membership statistics tables.
// Records without an ASN are skipped entirely; each present address is
// processed independently.
func (e *Engine) buildOverrides(src source.Source[records.MembershipRecord]) error {
	logger.Infof("Reading netixlan entries from %s", src.Name())

	err := src.Each(func(rec records.MembershipRecord) bool {
		if rec.IPAddr4 == "" && rec.IPAddr6 == "" {
			logger.Warnf("Read invalid netixlan entry: %+v", rec)
			return true
		}
		if rec.ASN == nil {
			logger.Debugf("Skipping netixlan entry without ASN: netixlan_id=%d", rec.NetixlanID)
			return true
		}
		if rec.IPAddr4 != "" {
			e.noteMemberAddress(rec.IPAddr4, *rec.ASN)
		}
		if rec.IPAddr6 != "" {
			e.noteMemberAddress(rec.IPAddr6, *rec.ASN)
		}
		return true
	})
	if err != nil {
		return errors.Wrapf(err, "reading membership records from %s", src.Name())
	}

	logger.Infof("Loaded %d IXP IP -> AS mappings", len(e.override))
	return nil
}

// noteMemberAddress records one member address for asn. A fresh address is
// inserted and credited to asn's statistics. An address moving between ASNs
// debits the previous ASN but credits the new one only when creditReassigned
// is set (it is not by default; the membership tables undercount reassigned
// addresses). A repeat of the same mapping is a no-op.
func (e *Engine) noteMemberAddress(ip string, asn uint32) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		logger.Warnf("Read netixlan entry with bad address %q: %v", ip, err)
		return
	}
	addr = addr.Unmap()
	one := uint128.From64(1)
	stats := e.memberStats[familyOf(addr)]

	prev, exists := e.override[addr]
	switch {
	case !exists:
		stats.add(asn, 1, one)
	case prev != asn:
		logger.Debugf("Updating AS entry for IP %s: %d -> %d", addr, prev, asn)
		stats.sub(prev, 1, one)
		if e.creditReassigned {
			stats.add(asn, 1, one)
		}
	default:
		// Same mapping again; nothing to account for.
	}
	e.override[addr] = asn
}
