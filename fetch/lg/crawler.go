// Package lg crawls alice-lg looking glass APIs and writes neighbor dumps
// mapping peer IP addresses to ASNs.
//
// Each looking glass produces one dated file <name>.YYYYMMDD.json.gz in the
// output directory, holding a single JSON object of address -> ASN.
package lg

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ipmeta/ipmeta/config"
	"github.com/ipmeta/ipmeta/dump"
	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/internal/httpclient"
	"github.com/ipmeta/ipmeta/logger"
	"github.com/ipmeta/ipmeta/records"
)

// flexID tolerates route server IDs that are JSON strings in some alice-lg
// deployments and numbers in others.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.Wrap(err, "decoding route server id")
	}
	*id = flexID(n.String())
	return nil
}

type routeserversReply struct {
	Routeservers []struct {
		ID flexID `json:"id"`
	} `json:"routeservers"`
}

type neighbor struct {
	Address string  `json:"address"`
	ASN     *uint32 `json:"asn"`
}

// neighborsReply accepts both spellings alice-lg has used across versions.
type neighborsReply struct {
	Neighbors  []neighbor `json:"neighbors"`
	Neighbours []neighbor `json:"neighbours"`
}

func (r neighborsReply) entries() []neighbor {
	if len(r.Neighbors) > 0 {
		return r.Neighbors
	}
	return r.Neighbours
}

// Crawler fetches the neighbor tables of every route server behind one
// alice-lg instance and merges them into a single dump.
type Crawler struct {
	name      string
	apiURL    string
	outputDir string
	workers   int
	client    *httpclient.Client

	mu   sync.Mutex
	data records.NeighborDump
}

// New creates a Crawler for one looking glass.
func New(name, apiURL, outputDir string, workers int, client *httpclient.Client) *Crawler {
	if workers <= 0 {
		workers = 4
	}
	return &Crawler{
		name:      name,
		apiURL:    strings.TrimRight(apiURL, "/"),
		outputDir: outputDir,
		workers:   workers,
		client:    client,
		data:      make(records.NeighborDump),
	}
}

// Run crawls all route servers and writes the dump file. A failing
// route server is logged and skipped; only a failing route server list or a
// failed dump write abort the run.
func (c *Crawler) Run(ctx context.Context) error {
	var rs routeserversReply
	if err := c.client.GetJSON(ctx, c.apiURL+"/routeservers", nil, &rs); err != nil {
		return errors.Wrapf(errors.ErrSourceUnavailable,
			"listing route servers of %s: %v", c.name, err)
	}
	logger.Infof("Crawling %d route servers of %s", len(rs.Routeservers), c.name)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, server := range rs.Routeservers {
		g.Go(func() error {
			c.crawlRouteserver(ctx, string(server.ID))
			return nil
		})
	}
	_ = g.Wait()

	path := filepath.Join(c.outputDir, dump.DatedName(c.name, time.Now()))
	return dump.WriteJSON(path, c.data)
}

func (c *Crawler) crawlRouteserver(ctx context.Context, id string) {
	var reply neighborsReply
	url := c.apiURL + "/routeservers/" + id + "/neighbors"
	if err := c.client.GetJSON(ctx, url, nil, &reply); err != nil {
		logger.Errorf("Failed to fetch neighbors of %s route server %s: %v", c.name, id, err)
		return
	}
	c.merge(id, reply.entries())
}

// merge folds one route server's neighbor table into the shared dump.
// Route servers of the same looking glass occasionally disagree on the ASN
// behind an address; the last write wins, but we log the disagreement.
func (c *Crawler) merge(id string, neighbors []neighbor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, n := range neighbors {
		if n.Address == "" || n.ASN == nil {
			logger.Debugf("Ignoring incomplete neighbor entry %+v from %s route server %s", n, c.name, id)
			continue
		}
		if prev, ok := c.data[n.Address]; ok && prev != *n.ASN {
			logger.Warnf("Route servers of %s disagree on %s: AS%d vs AS%d",
				c.name, n.Address, prev, *n.ASN)
		}
		c.data[n.Address] = *n.ASN
	}
}

// RunAll crawls every configured looking glass in name order. Failures are
// collected so one broken looking glass does not block the rest.
func RunAll(ctx context.Context, cfg config.FetchConfig, client *httpclient.Client) error {
	names := make([]string, 0, len(cfg.LookingGlasses))
	for name := range cfg.LookingGlasses {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		lgCfg := cfg.LookingGlasses[name]
		workers := lgCfg.Workers
		if workers <= 0 {
			workers = cfg.Workers
		}
		c := New(name, lgCfg.URL, cfg.OutputDir, workers, client)
		if err := c.Run(ctx); err != nil {
			logger.Errorf("Crawling %s failed: %v", name, err)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return errors.Newf("crawling failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}
