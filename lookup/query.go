package lookup

import (
	"net/netip"
	"strconv"

	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/logger"
)

// Visibility reports where an ASN is seen and with how many prefixes and
// addresses, per data source.
type Visibility struct {
	InRIB           bool
	InMembership    bool
	RIBStats        PrefixStats
	MembershipStats PrefixStats
}

// IP2ASN returns the ASN attributed to ip as a decimal string. The RIB index
// takes precedence; the membership override map is consulted only when the
// RIB yields nothing. "0" means not found (or unparseable input).
func (e *Engine) IP2ASN(ip string) string {
	if e.notReady("IP2ASN") {
		return "0"
	}
	addr, ok := e.parseAddr(ip)
	if !ok {
		return "0"
	}
	if asn := e.rib.LookupASN(addr); asn != 0 {
		return strconv.FormatUint(uint64(asn), 10)
	}
	if asn, ok := e.override[addr]; ok {
		return strconv.FormatUint(uint64(asn), 10)
	}
	return "0"
}

// IP2IXPName returns the name of the exchange whose peering LAN covers ip
// (most specific prefix wins), or "" if none does.
func (e *Engine) IP2IXPName(ip string) string {
	if e.notReady("IP2IXPName") {
		return ""
	}
	if entry, _, ok := e.ixpLookup(ip); ok {
		return entry.name
	}
	return ""
}

// IP2IXPID returns the id of the exchange whose peering LAN covers ip, or 0
// if none does. The id corresponds to PeeringDB's ix_id.
func (e *Engine) IP2IXPID(ip string) int {
	if e.notReady("IP2IXPID") {
		return 0
	}
	if entry, _, ok := e.ixpLookup(ip); ok {
		return entry.id
	}
	return 0
}

// IP2Prefix returns the most specific prefix covering ip, preferring the RIB
// index and falling back to the exchange peering LANs. "" means no match.
func (e *Engine) IP2Prefix(ip string) string {
	if e.notReady("IP2Prefix") {
		return ""
	}
	addr, ok := e.parseAddr(ip)
	if !ok {
		return ""
	}
	if prefix := e.rib.LookupPrefix(addr); prefix != "" {
		return prefix
	}
	if pfx, _, ok := e.ixp.LookupPrefixLPM(netip.PrefixFrom(addr, addr.BitLen())); ok {
		return pfx.String()
	}
	return ""
}

// ASN2Source reports the visibility of asn in both data sources for the
// requested family. An unrecognized family is an input error: it is logged
// and yields a zero Visibility.
func (e *Engine) ASN2Source(asn uint32, family AddressFamily) Visibility {
	if e.notReady("ASN2Source") {
		return Visibility{}
	}
	if !family.valid() {
		logger.Errorf("Invalid address family specified: %d", family)
		return Visibility{}
	}

	var ret Visibility
	if e.ribStats[family].contains(asn) {
		ret.InRIB = true
		ret.RIBStats = e.ribStats[family].get(asn)
	}
	if e.memberStats[family].contains(asn) {
		ret.InMembership = true
		ret.MembershipStats = e.memberStats[family].get(asn)
	}
	return ret
}

// ixpLookup finds the most specific exchange peering LAN covering ip.
func (e *Engine) ixpLookup(ip string) (ixpEntry, netip.Prefix, bool) {
	addr, ok := e.parseAddr(ip)
	if !ok {
		return ixpEntry{}, netip.Prefix{}, false
	}
	pfx, entry, ok := e.ixp.LookupPrefixLPM(netip.PrefixFrom(addr, addr.BitLen()))
	return entry, pfx, ok
}

// notReady guards every query: a not-ready engine answers with the zero
// sentinel after a warning, never with an error.
func (e *Engine) notReady(op string) bool {
	if e.ready {
		return false
	}
	logger.Warnf("%s called on not-ready engine: %v", op, errors.ErrNotReady)
	return true
}

// parseAddr parses a query address. Malformed input is a debug-level event,
// never an error surfaced to the caller.
func (e *Engine) parseAddr(ip string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		logger.Debugf("Wrong IP address format: %v", errors.Wrapf(errors.ErrInvalidAddress, "%q: %v", ip, err))
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
