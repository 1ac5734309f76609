// Package lookup implements the IP attribution engine: it merges a
// routing-table-derived ASN index with exchange membership data into a
// single queryable snapshot, maintaining per-ASN visibility statistics for
// both sources.
//
// Construction runs four loading phases synchronously (RIB aggregation,
// exchange prefix index, membership overrides, looking-glass overlay) and
// the engine is immutable afterwards. All query methods are safe for
// concurrent use once Ready reports true. An engine whose construction
// failed stays not-ready and answers every query with its zero sentinel.
package lookup

import (
	"context"
	"net/netip"
	"time"

	"github.com/gaissmai/bart"

	"github.com/ipmeta/ipmeta/config"
	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/internal/httpclient"
	"github.com/ipmeta/ipmeta/records"
	"github.com/ipmeta/ipmeta/ribdb"
	"github.com/ipmeta/ipmeta/source"
)

// ixpEntry is the identity attached to a peering-LAN prefix.
type ixpEntry struct {
	id   int
	name string
}

// Engine attributes IP addresses to ASNs and IXPs.
type Engine struct {
	rib ribdb.Index
	ixp bart.Table[ixpEntry]

	// override maps exact member addresses to the ASN currently attributed
	// to them; looking-glass overlay data wins over PeeringDB membership.
	override map[netip.Addr]uint32

	ribStats    [familyCount]statsTable
	memberStats [familyCount]statsTable

	// creditReassigned controls whether a membership reassignment credits
	// the new ASN's statistics. The default only debits the previous ASN,
	// so the tables undercount over time; see noteMemberAddress.
	creditReassigned bool

	ready bool
}

func newEngine(rib ribdb.Index) *Engine {
	e := &Engine{
		rib:      rib,
		override: make(map[netip.Addr]uint32),
	}
	for f := range familyCount {
		e.ribStats[f] = make(statsTable)
		e.memberStats[f] = make(statsTable)
	}
	return e
}

// New builds an engine from the configuration and an injected RIB index,
// resolving the exchange and membership sources (file or stream) the way
// the configuration prescribes. On error the returned engine is usable but
// not ready.
func New(ctx context.Context, cfg *config.Config, rib ribdb.Index) (*Engine, error) {
	e := newEngine(rib)
	if err := cfg.Validate(); err != nil {
		return e, err
	}

	timeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	client := httpclient.New(timeout)

	var exchanges source.Source[records.ExchangeRecord]
	if cfg.IXP.IXFile != "" {
		exchanges = source.File[records.ExchangeRecord](cfg.IXP.IXFile)
	} else {
		exchanges = source.Stream[records.ExchangeRecord](ctx, cfg.IXP.IXStream, client)
	}

	var memberships source.Source[records.MembershipRecord]
	if cfg.IXP.NetixlanFile != "" {
		memberships = source.File[records.MembershipRecord](cfg.IXP.NetixlanFile)
	} else {
		memberships = source.Stream[records.MembershipRecord](ctx, cfg.IXP.NetixlanStream, client)
	}

	return e.build(exchanges, memberships, cfg.IXP.LGDumpPath)
}

// Build constructs an engine directly from a RIB index and record sources,
// for callers that own their sources. lgDumpPath may be empty to skip the
// looking-glass overlay phase.
func Build(rib ribdb.Index, exchanges source.Source[records.ExchangeRecord], memberships source.Source[records.MembershipRecord], lgDumpPath string) (*Engine, error) {
	return newEngine(rib).build(exchanges, memberships, lgDumpPath)
}

// build runs the four loading phases in order. Any phase error leaves the
// engine not-ready; partial data is never served.
func (e *Engine) build(exchanges source.Source[records.ExchangeRecord], memberships source.Source[records.MembershipRecord], lgDumpPath string) (*Engine, error) {
	if e.rib == nil {
		return e, errors.NewConfigurationError("no RIB index supplied")
	}

	e.loadRIBStats()

	if err := e.buildIXPIndex(exchanges); err != nil {
		return e, err
	}
	if err := e.buildOverrides(memberships); err != nil {
		return e, err
	}
	if lgDumpPath != "" {
		if err := e.mergeNeighborDumps(lgDumpPath); err != nil {
			return e, err
		}
	}

	e.ready = true
	return e, nil
}

// Ready reports whether initialization completed. Callers must check it
// after construction; queries against a not-ready engine return their zero
// sentinels.
func (e *Engine) Ready() bool {
	return e.ready
}
