package lookup

import (
	"context"
	"net/netip"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/ipmeta/ipmeta/config"
	"github.com/ipmeta/ipmeta/dump"
	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/records"
	"github.com/ipmeta/ipmeta/ribdb"
	"github.com/ipmeta/ipmeta/source"
)

func asn(v uint32) *uint32 { return &v }

func testRIB(t *testing.T) *ribdb.Table {
	t.Helper()
	tbl := ribdb.NewTable()
	tbl.Insert(netip.MustParsePrefix("203.0.113.0/24"), 65001)
	tbl.Insert(netip.MustParsePrefix("198.51.100.0/25"), 65002)
	return tbl
}

func exchangeSource(recs ...records.ExchangeRecord) source.Source[records.ExchangeRecord] {
	return source.Slice("test-ix", recs)
}

func membershipSource(recs ...records.MembershipRecord) source.Source[records.MembershipRecord] {
	return source.Slice("test-netixlan", recs)
}

func TestRIBAggregates(t *testing.T) {
	e, err := Build(testRIB(t), exchangeSource(), membershipSource(), "")
	require.NoError(t, err)
	require.True(t, e.Ready())

	vis := e.ASN2Source(65001, IPv4)
	assert.True(t, vis.InRIB)
	assert.False(t, vis.InMembership)
	assert.Equal(t, PrefixStats{PrefixCount: 1, AddressSum: uint128.From64(256)}, vis.RIBStats)

	vis = e.ASN2Source(65002, IPv4)
	assert.True(t, vis.InRIB)
	assert.Equal(t, PrefixStats{PrefixCount: 1, AddressSum: uint128.From64(128)}, vis.RIBStats)
}

func TestRIBAggregates_IPv6Exponent(t *testing.T) {
	rib := ribdb.NewTable()
	rib.Insert(netip.MustParsePrefix("2001:db8::/32"), 65001)
	rib.Insert(netip.MustParsePrefix("2001:db8:1:2::/96"), 65001)

	e, err := Build(rib, exchangeSource(), membershipSource(), "")
	require.NoError(t, err)

	vis := e.ASN2Source(65001, IPv6)
	require.True(t, vis.InRIB)
	// /32 contributes 2^(64-32); the /96 counts as a prefix but spans nothing.
	assert.Equal(t, uint64(2), vis.RIBStats.PrefixCount)
	assert.Equal(t, uint128.From64(1<<32), vis.RIBStats.AddressSum)
}

func TestRIBNodeWithoutASNIsSkipped(t *testing.T) {
	rib := ribdb.NewTable()
	rib.Insert(netip.MustParsePrefix("203.0.113.0/24"), 0)

	e, err := Build(rib, exchangeSource(), membershipSource(), "")
	require.NoError(t, err)

	assert.Empty(t, e.ribStats[IPv4])
	assert.Empty(t, e.ribStats[IPv6])
}

func TestSourcePrecedenceRIBOverMembership(t *testing.T) {
	members := membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "203.0.113.10"},
	)
	e, err := Build(testRIB(t), exchangeSource(), members, "")
	require.NoError(t, err)

	// 203.0.113.10 is covered by the RIB; the override entry must not win.
	assert.Equal(t, "65001", e.IP2ASN("203.0.113.10"))
}

func TestMembershipFallback(t *testing.T) {
	members := membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "192.0.2.10"},
	)
	e, err := Build(testRIB(t), exchangeSource(), members, "")
	require.NoError(t, err)

	assert.Equal(t, "65010", e.IP2ASN("192.0.2.10"))
	assert.Equal(t, "0", e.IP2ASN("8.8.8.8"))
}

func TestOverlayPrecedence(t *testing.T) {
	lgDir := t.TempDir()
	require.NoError(t, dump.WriteJSON(
		filepath.Join(lgDir, "example.20260826.json.gz"),
		records.NeighborDump{"192.0.2.10": 65099},
	))

	members := membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "192.0.2.10"},
	)
	e, err := Build(testRIB(t), exchangeSource(), members, lgDir)
	require.NoError(t, err)

	assert.Equal(t, "65099", e.IP2ASN("192.0.2.10"))

	// Overlay data is visible in lookups but not in visibility counts: the
	// membership statistics still credit the PeeringDB ASN.
	vis := e.ASN2Source(65010, IPv4)
	assert.True(t, vis.InMembership)
	assert.Equal(t, PrefixStats{PrefixCount: 1, AddressSum: uint128.From64(1)}, vis.MembershipStats)
	assert.False(t, e.ASN2Source(65099, IPv4).InMembership)
}

func TestOverlayMergeOrderIsLexical(t *testing.T) {
	lgDir := t.TempDir()
	require.NoError(t, dump.WriteJSON(
		filepath.Join(lgDir, "a.20260826.json.gz"),
		records.NeighborDump{"192.0.2.10": 65091},
	))
	require.NoError(t, dump.WriteJSON(
		filepath.Join(lgDir, "b.20260826.json.gz"),
		records.NeighborDump{"192.0.2.10": 65092},
	))

	e, err := Build(testRIB(t), exchangeSource(), membershipSource(), lgDir)
	require.NoError(t, err)
	assert.Equal(t, "65092", e.IP2ASN("192.0.2.10"))
}

func TestOverlayMissingDirectoryFailsPhase(t *testing.T) {
	e, err := Build(testRIB(t), exchangeSource(), membershipSource(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSourceUnavailable))
	assert.False(t, e.Ready())
}

func TestLongestPrefixMatch(t *testing.T) {
	exchanges := exchangeSource(
		records.ExchangeRecord{IXID: 5, Name: "ExampleIX", Prefix: "192.0.2.0/24"},
		records.ExchangeRecord{IXID: 7, Name: "SpecificIX", Prefix: "192.0.2.0/28"},
	)
	e, err := Build(testRIB(t), exchanges, membershipSource(), "")
	require.NoError(t, err)

	assert.Equal(t, "SpecificIX", e.IP2IXPName("192.0.2.10"))
	assert.Equal(t, 7, e.IP2IXPID("192.0.2.10"))
	assert.Equal(t, "ExampleIX", e.IP2IXPName("192.0.2.200"))
	assert.Equal(t, 5, e.IP2IXPID("192.0.2.200"))
	assert.Equal(t, "", e.IP2IXPName("198.18.0.1"))
	assert.Equal(t, 0, e.IP2IXPID("198.18.0.1"))
}

func TestMalformedExchangeRecordsAreSkipped(t *testing.T) {
	exchanges := exchangeSource(
		records.ExchangeRecord{IXID: 0, Name: "NoID", Prefix: "192.0.2.0/24"},
		records.ExchangeRecord{IXID: 5, Name: "", Prefix: "192.0.2.0/24"},
		records.ExchangeRecord{IXID: 5, Name: "BadPrefix", Prefix: "not-a-prefix"},
		records.ExchangeRecord{IXID: 5, Name: "ExampleIX", Prefix: "192.0.2.0/24"},
	)
	e, err := Build(testRIB(t), exchanges, membershipSource(), "")
	require.NoError(t, err)

	assert.Equal(t, "ExampleIX", e.IP2IXPName("192.0.2.10"))
	assert.Equal(t, 1, e.ixp.Size())
}

func TestIP2Prefix(t *testing.T) {
	exchanges := exchangeSource(
		records.ExchangeRecord{IXID: 5, Name: "ExampleIX", Prefix: "192.0.2.0/24"},
	)
	e, err := Build(testRIB(t), exchanges, membershipSource(), "")
	require.NoError(t, err)

	// RIB prefix preferred.
	assert.Equal(t, "203.0.113.0/24", e.IP2Prefix("203.0.113.10"))
	// Exchange peering LAN as fallback.
	assert.Equal(t, "192.0.2.0/24", e.IP2Prefix("192.0.2.10"))
	// Neither.
	assert.Equal(t, "", e.IP2Prefix("8.8.8.8"))
}

func TestInvalidInputSafety(t *testing.T) {
	e, err := Build(testRIB(t), exchangeSource(), membershipSource(), "")
	require.NoError(t, err)

	assert.Equal(t, "", e.IP2IXPName("not-an-ip"))
	assert.Equal(t, 0, e.IP2IXPID("not-an-ip"))
	assert.Equal(t, "", e.IP2Prefix("not-an-ip"))
	assert.Equal(t, "0", e.IP2ASN("not-an-ip"))
}

func TestUnknownASN(t *testing.T) {
	e, err := Build(testRIB(t), exchangeSource(), membershipSource(), "")
	require.NoError(t, err)

	vis := e.ASN2Source(64999, IPv4)
	assert.False(t, vis.InRIB)
	assert.False(t, vis.InMembership)
	assert.Equal(t, PrefixStats{}, vis.RIBStats)
	assert.Equal(t, PrefixStats{}, vis.MembershipStats)
}

func TestASN2SourceInvalidFamily(t *testing.T) {
	e, err := Build(testRIB(t), exchangeSource(), membershipSource(), "")
	require.NoError(t, err)

	assert.Equal(t, Visibility{}, e.ASN2Source(65001, AddressFamily(9)))
}

func TestMembershipStatsPerFamily(t *testing.T) {
	members := membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010),
			IPAddr4: "192.0.2.10", IPAddr6: "2001:db8::10"},
	)
	e, err := Build(testRIB(t), exchangeSource(), members, "")
	require.NoError(t, err)

	one := PrefixStats{PrefixCount: 1, AddressSum: uint128.From64(1)}
	assert.Equal(t, one, e.ASN2Source(65010, IPv4).MembershipStats)
	assert.Equal(t, one, e.ASN2Source(65010, IPv6).MembershipStats)
}

func TestMembershipReassignmentStats(t *testing.T) {
	// An address moving between ASNs debits the old ASN but does not credit
	// the new one; the membership tables undercount on purpose.
	members := membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "192.0.2.10"},
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 2, ASN: asn(65020), IPAddr4: "192.0.2.10"},
	)
	e, err := Build(testRIB(t), exchangeSource(), members, "")
	require.NoError(t, err)

	assert.Equal(t, "65020", e.IP2ASN("192.0.2.10"))
	assert.Equal(t, PrefixStats{}, e.ASN2Source(65010, IPv4).MembershipStats)
	assert.False(t, e.ASN2Source(65020, IPv4).InMembership)
}

func TestMembershipReassignmentCreditedVariant(t *testing.T) {
	e := newEngine(testRIB(t))
	e.creditReassigned = true
	require.NoError(t, e.buildOverrides(membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "192.0.2.10"},
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 2, ASN: asn(65020), IPAddr4: "192.0.2.10"},
	)))

	assert.Equal(t, PrefixStats{}, e.memberStats[IPv4].get(65010))
	assert.Equal(t, PrefixStats{PrefixCount: 1, AddressSum: uint128.From64(1)}, e.memberStats[IPv4].get(65020))
}

func TestMembershipSameASNRepeatIsNoop(t *testing.T) {
	members := membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "192.0.2.10"},
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 2, ASN: asn(65010), IPAddr4: "192.0.2.10"},
	)
	e, err := Build(testRIB(t), exchangeSource(), members, "")
	require.NoError(t, err)

	assert.Equal(t, PrefixStats{PrefixCount: 1, AddressSum: uint128.From64(1)},
		e.ASN2Source(65010, IPv4).MembershipStats)
}

func TestMembershipNilASNIsSkipped(t *testing.T) {
	members := membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: nil, IPAddr4: "192.0.2.10"},
	)
	e, err := Build(testRIB(t), exchangeSource(), members, "")
	require.NoError(t, err)

	assert.Equal(t, "0", e.IP2ASN("192.0.2.10"))
	assert.Empty(t, e.override)
}

func TestIdempotentReload(t *testing.T) {
	lgDir := t.TempDir()
	require.NoError(t, dump.WriteJSON(
		filepath.Join(lgDir, "example.20260826.json.gz"),
		records.NeighborDump{"192.0.2.99": 65099},
	))

	build := func() *Engine {
		exchanges := exchangeSource(
			records.ExchangeRecord{IXID: 5, Name: "ExampleIX", Prefix: "192.0.2.0/24"},
		)
		members := membershipSource(
			records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "192.0.2.10"},
			records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 2, ASN: asn(65020), IPAddr4: "192.0.2.10"},
			records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 3, ASN: asn(65030), IPAddr6: "2001:db8::30"},
		)
		e, err := Build(testRIB(t), exchanges, members, lgDir)
		require.NoError(t, err)
		return e
	}

	first, second := build(), build()
	assert.Equal(t, first.override, second.override)
	assert.Equal(t, first.ribStats, second.ribStats)
	assert.Equal(t, first.memberStats, second.memberStats)
}

func TestNotReadyEngineReturnsSentinels(t *testing.T) {
	// A failing membership source aborts that phase and leaves the engine
	// not-ready; no query may serve attribution from partial data.
	badMembers := source.File[records.MembershipRecord](filepath.Join(t.TempDir(), "missing.json.gz"))
	e, err := Build(testRIB(t), exchangeSource(), badMembers, "")
	require.Error(t, err)
	require.False(t, e.Ready())

	assert.Equal(t, "0", e.IP2ASN("203.0.113.10"))
	assert.Equal(t, "", e.IP2IXPName("192.0.2.10"))
	assert.Equal(t, 0, e.IP2IXPID("192.0.2.10"))
	assert.Equal(t, "", e.IP2Prefix("203.0.113.10"))
	assert.Equal(t, Visibility{}, e.ASN2Source(65001, IPv4))
}

func TestBuildWithoutRIBIndex(t *testing.T) {
	e, err := Build(nil, exchangeSource(), membershipSource(), "")
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.False(t, e.Ready())
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	ixPath := filepath.Join(dir, "pdb.ix.latest.json.gz")
	netixlanPath := filepath.Join(dir, "pdb.netixlan.latest.json.gz")
	require.NoError(t, dump.WriteRecords(ixPath, []records.ExchangeRecord{
		{IXID: 5, Name: "ExampleIX", Prefix: "192.0.2.0/24"},
	}))
	require.NoError(t, dump.WriteRecords(netixlanPath, []records.MembershipRecord{
		{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "192.0.2.10"},
	}))

	cfg := &config.Config{
		RIB: config.RIBConfig{DB: "unused-by-engine"},
		IXP: config.IXPConfig{IXFile: ixPath, NetixlanFile: netixlanPath},
	}
	e, err := New(context.Background(), cfg, testRIB(t))
	require.NoError(t, err)
	require.True(t, e.Ready())

	assert.Equal(t, "65010", e.IP2ASN("192.0.2.10"))
	assert.Equal(t, "ExampleIX", e.IP2IXPName("192.0.2.10"))
	assert.Equal(t, 5, e.IP2IXPID("192.0.2.10"))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := &config.Config{
		RIB: config.RIBConfig{DB: "db"},
		IXP: config.IXPConfig{IXFile: "a", IXStream: "b", NetixlanFile: "c"},
	}
	e, err := New(context.Background(), cfg, testRIB(t))
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.False(t, e.Ready())
}

func TestConcurrentQueries(t *testing.T) {
	exchanges := exchangeSource(
		records.ExchangeRecord{IXID: 5, Name: "ExampleIX", Prefix: "192.0.2.0/24"},
	)
	members := membershipSource(
		records.MembershipRecord{IXID: 5, Name: "ExampleIX", NetixlanID: 1, ASN: asn(65010), IPAddr4: "192.0.2.10"},
	)
	e, err := Build(testRIB(t), exchanges, members, "")
	require.NoError(t, err)

	done := make(chan struct{})
	for range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 200 {
				_ = e.IP2ASN("192.0.2.10")
				_ = e.IP2IXPName("192.0.2.10")
				_ = e.IP2Prefix("203.0.113.10")
				_ = e.ASN2Source(65001, IPv4)
			}
		}()
	}
	for range 8 {
		<-done
	}
}
