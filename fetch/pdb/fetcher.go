// Package pdb fetches exchange and membership data from the PeeringDB API
// and writes the dump files the lookup engine consumes.
//
// One run creates three dated files under <output_dir>/data/:
//
//	pdb.ix.YYYYMMDD.json.gz        exchange (peering LAN) records
//	pdb.netixlan.YYYYMMDD.json.gz  membership records
//	pdb.raw.YYYYMMDD.json.gz       unprocessed API replies
//
// and maintains pdb.ix.latest.json.gz / pdb.netixlan.latest.json.gz symlinks
// in the output directory itself.
package pdb

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/ipmeta/ipmeta/config"
	"github.com/ipmeta/ipmeta/dump"
	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/internal/httpclient"
	"github.com/ipmeta/ipmeta/logger"
	"github.com/ipmeta/ipmeta/records"
)

const (
	ixName       = "pdb.ix"
	netixlanName = "pdb.netixlan"
	rawName      = "pdb.raw"
)

// Fetcher retrieves IXP and membership information from PeeringDB.
type Fetcher struct {
	api       string
	outputDir string
	client    *httpclient.Client
	limiter   *rate.Limiter
	now       time.Time

	raw      map[string][]json.RawMessage
	ix       []records.ExchangeRecord
	netixlan []records.MembershipRecord
}

// New creates a Fetcher from the fetch configuration.
func New(cfg config.FetchConfig, client *httpclient.Client) *Fetcher {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	return &Fetcher{
		api:       cfg.PDBAPI,
		outputDir: cfg.OutputDir,
		client:    client,
		// PeeringDB's anonymous API budget is tight; keep a steady pace
		// instead of bursting.
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		now:     time.Now().UTC(),
		raw:     make(map[string][]json.RawMessage),
	}
}

// Run fetches exchange and membership information, writes all dump files,
// and updates the latest symlinks. Phase errors do not stop the run; they
// are combined and reported at the end.
func (f *Fetcher) Run(ctx context.Context) error {
	var errs []error
	if err := f.fetchIXData(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := f.fetchNetixlanData(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := f.dump(); err != nil {
		errs = append(errs, err)
	}
	if err := f.updateSymlinks(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PeeringDB API shapes, reduced to the fields we keep.
type pdbIX struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	NameLong string `json:"name_long"`
	Country  string `json:"country"`
}

type pdbIXLan struct {
	ID   int `json:"id"`
	IXID int `json:"ix_id"`
}

type pdbIXPfx struct {
	ID       int    `json:"id"`
	IXLanID  int    `json:"ixlan_id"`
	Protocol string `json:"protocol"`
	Prefix   string `json:"prefix"`
}

type pdbNetixlan struct {
	ID      int     `json:"id"`
	IXID    int     `json:"ix_id"`
	Name    string  `json:"name"`
	ASN     *uint32 `json:"asn"`
	IPAddr4 string  `json:"ipaddr4"`
	IPAddr6 string  `json:"ipaddr6"`
}

// queryList fetches an endpoint into a typed slice.
func queryList[T any](ctx context.Context, f *Fetcher, endpoint string) ([]T, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "waiting for rate limiter before querying %s", endpoint)
	}
	reqURL := f.api + "/" + endpoint
	logger.Infof("Querying PeeringDB %s", reqURL)

	var resp struct {
		Data []json.RawMessage `json:"data"`
		Meta map[string]any    `json:"meta"`
	}
	if err := f.client.GetJSON(ctx, reqURL, url.Values{"status": {"ok"}}, &resp); err != nil {
		return nil, errors.Wrapf(err, "querying PeeringDB %s", endpoint)
	}
	if len(resp.Meta) > 0 {
		logger.Warnf("There was metadata in the %s reply: %v", endpoint, resp.Meta)
	}
	f.raw[endpoint] = resp.Data

	out := make([]T, 0, len(resp.Data))
	for i, entry := range resp.Data {
		var v T
		if err := json.Unmarshal(entry, &v); err != nil {
			return nil, errors.Wrapf(err, "decoding %s entry %d", endpoint, i)
		}
		out = append(out, v)
	}
	return out, nil
}

// fetchIXData fetches ix, ixlan, and ixpfx data and joins them into one
// ExchangeRecord per peering LAN. Getting from an ixpfx to its ix requires
// the hop over the ixlan; there is no direct link.
func (f *Fetcher) fetchIXData(ctx context.Context) error {
	ixes, err := queryList[pdbIX](ctx, f, "ix")
	if err != nil {
		return err
	}
	ixByID := make(map[int]pdbIX, len(ixes))
	for _, ix := range ixes {
		if _, dup := ixByID[ix.ID]; dup {
			logger.Warnf("Duplicate ix_id: %d. Ignoring entry %+v", ix.ID, ix)
			continue
		}
		ixByID[ix.ID] = ix
	}

	ixlans, err := queryList[pdbIXLan](ctx, f, "ixlan")
	if err != nil {
		return err
	}
	ixlanToIX := make(map[int]int, len(ixlans))
	for _, lan := range ixlans {
		if prev, dup := ixlanToIX[lan.ID]; dup {
			logger.Warnf("Duplicate ixlan_id: %d. Already present for ix_id %d, would overwrite with %d",
				lan.ID, prev, lan.IXID)
			continue
		}
		ixlanToIX[lan.ID] = lan.IXID
	}

	pfxes, err := queryList[pdbIXPfx](ctx, f, "ixpfx")
	if err != nil {
		return err
	}
	for _, pfx := range pfxes {
		if pfx.Protocol != "IPv4" && pfx.Protocol != "IPv6" {
			logger.Warnf("Unknown protocol specified for ixpfx %d: %s", pfx.ID, pfx.Protocol)
			continue
		}
		ixID, ok := ixlanToIX[pfx.IXLanID]
		if !ok {
			logger.Warnf("Failed to find ixlan %d for ixpfx %d.", pfx.IXLanID, pfx.ID)
			continue
		}
		ix, ok := ixByID[ixID]
		if !ok {
			logger.Warnf("Failed to find ix %d for ixlan %d / ixpfx %d.", ixID, pfx.IXLanID, pfx.ID)
			continue
		}
		f.ix = append(f.ix, records.ExchangeRecord{
			IXID:     ixID,
			Name:     ix.Name,
			NameLong: ix.NameLong,
			Country:  ix.Country,
			IXLanID:  pfx.IXLanID,
			IXPfxID:  pfx.ID,
			Protocol: pfx.Protocol,
			Prefix:   pfx.Prefix,
		})
	}
	return nil
}

// fetchNetixlanData fetches membership entries, keeping only the fields the
// engine consumes.
func (f *Fetcher) fetchNetixlanData(ctx context.Context) error {
	entries, err := queryList[pdbNetixlan](ctx, f, "netixlan")
	if err != nil {
		return err
	}
	for _, e := range entries {
		f.netixlan = append(f.netixlan, records.MembershipRecord{
			IXID:       e.IXID,
			Name:       e.Name,
			NetixlanID: e.ID,
			ASN:        e.ASN,
			IPAddr4:    e.IPAddr4,
			IPAddr6:    e.IPAddr6,
		})
	}
	return nil
}

// dump writes all three output files into the data subdirectory.
func (f *Fetcher) dump() error {
	subdir := filepath.Join(f.outputDir, dump.SubdirName)
	var errs []error
	if err := dump.WriteRecords(filepath.Join(subdir, dump.DatedName(ixName, f.now)), f.ix); err != nil {
		errs = append(errs, err)
	}
	if err := dump.WriteRecords(filepath.Join(subdir, dump.DatedName(netixlanName, f.now)), f.netixlan); err != nil {
		errs = append(errs, err)
	}
	if err := dump.WriteJSON(filepath.Join(subdir, dump.DatedName(rawName, f.now)), f.raw); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// updateSymlinks points the latest symlinks at this run's ix and netixlan
// dumps. Targets are relative so the output directory stays relocatable.
func (f *Fetcher) updateSymlinks() error {
	var errs []error
	for _, name := range []string{ixName, netixlanName} {
		target := filepath.Join(dump.SubdirName, dump.DatedName(name, f.now))
		link := filepath.Join(f.outputDir, dump.LatestName(name))
		if err := dump.UpdateSymlink(target, link); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
