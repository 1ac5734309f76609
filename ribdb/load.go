package ribdb

import (
	"bufio"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/logger"
	"github.com/ipmeta/ipmeta/source"
)

// Entry is the dump-file representation of one RIB prefix.
type Entry struct {
	Prefix string `json:"prefix"`
	ASN    uint32 `json:"asn"`
}

// Load reads a RIB database dump (gzip-compressed NDJSON of Entry values,
// as written by `ipmeta fetch rib`) into a Table. Entries with an
// unparseable prefix are logged and skipped.
func Load(path string) (*Table, error) {
	t := NewTable()
	err := source.File[Entry](path).Each(func(e Entry) bool {
		pfx, err := netip.ParsePrefix(e.Prefix)
		if err != nil {
			logger.Warnf("Skipping RIB entry with bad prefix %q: %v", e.Prefix, err)
			return true
		}
		t.Insert(pfx, e.ASN)
		return true
	})
	if err != nil {
		return nil, errors.Wrapf(err, "loading RIB db %s", path)
	}
	logger.Infof("Loaded RIB db with %d prefixes from %s", t.Size(), path)
	return t, nil
}

// ReadPfx2AS parses a gzip-compressed pfx2as-style dataset: one
// tab-separated "prefix<TAB>length<TAB>asn" line per route. AS sets and
// multi-origin lists ("_" and "," separated) collapse to their first ASN.
func ReadPfx2AS(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "opening pfx2as file %s: %v", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "reading gzip header of %s: %v", path, err)
	}
	defer zr.Close()

	var entries []Entry
	sc := bufio.NewScanner(zr)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) != 3 {
			if len(fields) > 0 {
				logger.Warnf("Skipping malformed pfx2as line %s:%d", path, line)
			}
			continue
		}
		bits, err := strconv.Atoi(fields[1])
		if err != nil {
			logger.Warnf("Skipping pfx2as line %s:%d with bad length %q", path, line, fields[1])
			continue
		}
		addr, err := netip.ParseAddr(fields[0])
		if err != nil {
			logger.Warnf("Skipping pfx2as line %s:%d with bad address %q", path, line, fields[0])
			continue
		}
		pfx, err := addr.Prefix(bits)
		if err != nil {
			logger.Warnf("Skipping pfx2as line %s:%d with bad prefix length %d", path, line, bits)
			continue
		}
		asn, err := firstASN(fields[2])
		if err != nil {
			logger.Warnf("Skipping pfx2as line %s:%d with bad ASN %q", path, line, fields[2])
			continue
		}
		entries = append(entries, Entry{Prefix: pfx.String(), ASN: asn})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading pfx2as file %s", path)
	}
	return entries, nil
}

// firstASN extracts the first ASN from a pfx2as origin field, which may be a
// plain number, an AS set ("1_2_3"), or a multi-origin list ("1,2").
func firstASN(field string) (uint32, error) {
	if i := strings.IndexAny(field, "_,"); i >= 0 {
		field = field[:i]
	}
	asn, err := strconv.ParseUint(field, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(asn), nil
}
