// Package records defines the decoded record shapes exchanged between the
// fetchers and the lookup engine.
//
// The engine never sees transport or file-format details; it consumes finite
// sequences of these records, validating required fields per record and
// skipping anything malformed.
package records

// ExchangeRecord identifies one peering LAN of an exchange.
//
// The field set mirrors the formatted values produced by the PeeringDB
// fetcher: one record per ixpfx, joined with the owning ixlan and ix. The
// engine requires Prefix, Name, and IXID; the remaining fields are carried
// for downstream consumers.
type ExchangeRecord struct {
	IXID     int    `json:"ix_id"`
	Name     string `json:"name"`
	NameLong string `json:"name_long,omitempty"`
	Country  string `json:"country,omitempty"`
	IXLanID  int    `json:"ixlan_id,omitempty"`
	IXPfxID  int    `json:"ixpfx_id,omitempty"`
	Protocol string `json:"protocol,omitempty"`
	Prefix   string `json:"prefix"`
}

// MembershipRecord is an exchange's record of which ASN occupies which IP on
// its peering LAN (PeeringDB netixlan). ASN is a pointer because PeeringDB
// serves entries with a null ASN; those are skipped entirely by the engine.
// Either address may be empty.
type MembershipRecord struct {
	IXID       int     `json:"ix_id"`
	Name       string  `json:"name"`
	NetixlanID int     `json:"netixlan_id"`
	ASN        *uint32 `json:"asn"`
	IPAddr4    string  `json:"ipaddr4"`
	IPAddr6    string  `json:"ipaddr6"`
}

// NeighborDump is the decoded payload of one looking-glass snapshot file:
// an exact IP address to ASN mapping collected from a route server's
// neighbor tables.
type NeighborDump map[string]uint32
