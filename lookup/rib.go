package lookup

import (
	"lukechampine.com/uint128"

	"github.com/ipmeta/ipmeta/logger"
)

// loadRIBStats scans the injected RIB index once and records, per ASN and
// family, how many prefixes it originates and how many addresses those
// prefixes cover. The index itself is read-only to this phase.
func (e *Engine) loadRIBStats() {
	nodes := 0
	for node := range e.rib.Nodes() {
		if node.ASN == 0 {
			logger.Warnf("Missing origin ASN for RIB prefix %s", node.Prefix)
			continue
		}
		fam := familyOf(node.Prefix.Addr())
		e.ribStats[fam].add(node.ASN, 1, addressSpan(fam, node.Prefix.Bits()))
		nodes++
	}
	logger.Infof("Aggregated %d RIB prefixes (%d IPv4 ASNs, %d IPv6 ASNs)",
		nodes, len(e.ribStats[IPv4]), len(e.ribStats[IPv6]))
}

// addressSpan returns the number of addresses covered by a prefix of the
// given length: 2^(32-bits) for IPv4 and 2^(64-bits) for IPv6. The IPv6
// exponent follows the upstream RIB dataset's documented convention of
// counting /64 networks rather than the full 2^(128-bits) address space;
// prefixes longer than /64 contribute zero.
func addressSpan(fam AddressFamily, bits int) uint128.Uint128 {
	exp := 32 - bits
	if fam == IPv6 {
		exp = 64 - bits
	}
	if exp < 0 {
		return uint128.Zero
	}
	return uint128.From64(1).Lsh(uint(exp))
}
