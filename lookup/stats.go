package lookup

import (
	"net/netip"

	"lukechampine.com/uint128"
)

// AddressFamily selects between the IPv4 and IPv6 halves of the per-ASN
// statistics tables.
type AddressFamily int

const (
	IPv4 AddressFamily = iota
	IPv6
	familyCount
)

func (f AddressFamily) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	}
	return "unknown"
}

// valid reports whether f is one of the two known families.
func (f AddressFamily) valid() bool {
	return f == IPv4 || f == IPv6
}

// familyOf returns the address family of a (normalized) address.
func familyOf(addr netip.Addr) AddressFamily {
	if addr.Is4() {
		return IPv4
	}
	return IPv6
}

// PrefixStats aggregates the visibility of one ASN in one data source:
// how many prefixes it originates and how many individual addresses those
// prefixes cover. AddressSum counts addresses, not prefixes; IPv6 spans
// exceed 64 bits, hence the 128-bit accumulator.
type PrefixStats struct {
	PrefixCount uint64
	AddressSum  uint128.Uint128
}

// statsTable maps ASN to PrefixStats for one (source, family) pair. Reads of
// an absent ASN yield the zero value without inserting it; all writes go
// through add/sub.
type statsTable map[uint32]PrefixStats

// get returns the stats for asn, or the zero value if absent. Pure read.
func (t statsTable) get(asn uint32) PrefixStats {
	return t[asn]
}

// contains reports whether asn has an entry.
func (t statsTable) contains(asn uint32) bool {
	_, ok := t[asn]
	return ok
}

// add credits asn with prefixes and the covered address count.
func (t statsTable) add(asn uint32, prefixes uint64, addresses uint128.Uint128) {
	s := t[asn]
	s.PrefixCount += prefixes
	s.AddressSum = s.AddressSum.Add(addresses)
	t[asn] = s
}

// sub debits asn. Counters are unsigned by contract: callers only debit what
// they previously credited.
func (t statsTable) sub(asn uint32, prefixes uint64, addresses uint128.Uint128) {
	s := t[asn]
	s.PrefixCount -= prefixes
	s.AddressSum = s.AddressSum.Sub(addresses)
	t[asn] = s
}
