// Package ribdb provides the routing-table-derived IP to ASN index consumed
// by the lookup engine.
//
// The engine depends only on the Index interface: a longest-prefix-match
// capability injected at construction. Table is the bundled implementation,
// an adapter around gaissmai/bart, loadable from the repository's own dump
// format or from pfx2as-style datasets.
package ribdb

import (
	"iter"
	"net/netip"

	"github.com/gaissmai/bart"
)

// Node is one prefix of the RIB index together with its origin ASN.
// ASN 0 means the source dataset carried no origin for the prefix.
type Node struct {
	Prefix netip.Prefix
	ASN    uint32
}

// Index is the read-only longest-prefix-match capability the engine is
// constructed with. Implementations must be safe for concurrent lookups.
type Index interface {
	// LookupASN returns the ASN of the most specific prefix covering addr,
	// or 0 if no prefix covers it.
	LookupASN(addr netip.Addr) uint32

	// LookupPrefix returns the most specific prefix covering addr in CIDR
	// notation, or "" if no prefix covers it.
	LookupPrefix(addr netip.Addr) string

	// Nodes iterates over every prefix of the index, in no particular order.
	Nodes() iter.Seq[Node]
}

// Table is a bart-backed Index.
//
// Build it once with Insert (or the Load functions) before handing it to the
// engine; it must not be mutated afterwards.
type Table struct {
	t bart.Table[uint32]
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Insert adds a prefix with its origin ASN, overwriting any previous entry
// for the same prefix.
func (t *Table) Insert(pfx netip.Prefix, asn uint32) {
	t.t.Insert(pfx.Masked(), asn)
}

// LookupASN implements Index.
func (t *Table) LookupASN(addr netip.Addr) uint32 {
	asn, ok := t.t.Lookup(addr)
	if !ok {
		return 0
	}
	return asn
}

// LookupPrefix implements Index.
func (t *Table) LookupPrefix(addr netip.Addr) string {
	pfx, _, ok := t.t.LookupPrefixLPM(netip.PrefixFrom(addr, addr.BitLen()))
	if !ok {
		return ""
	}
	return pfx.String()
}

// Nodes implements Index.
func (t *Table) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for pfx, asn := range t.t.All() {
			if !yield(Node{Prefix: pfx, ASN: asn}) {
				return
			}
		}
	}
}

// Size returns the number of prefixes in the table.
func (t *Table) Size() int {
	return t.t.Size()
}
