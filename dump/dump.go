// Package dump reads and writes the dated, gzip-compressed JSON dump files
// shared by the fetchers and the lookup engine.
//
// Fetchers write dated files (name.YYYYMMDD.json.gz) into a data/
// subdirectory of their output directory and maintain name.latest.json.gz
// symlinks next to it, so consumers can always open the newest snapshot
// without knowing the date.
package dump

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/logger"
)

const (
	// Suffix is the file suffix of every dump file.
	Suffix = ".json.gz"

	// SubdirName is the subdirectory of an output directory that holds the
	// dated files; the latest symlinks live in the output directory itself.
	SubdirName = "data"

	dateFormat = "20060102"
)

// DatedName returns the dump file name for the given base name and time,
// e.g. "pdb.ix.20260826.json.gz".
func DatedName(name string, t time.Time) string {
	return name + "." + t.UTC().Format(dateFormat) + Suffix
}

// LatestName returns the symlink name pointing at the newest dump for the
// given base name, e.g. "pdb.ix.latest.json.gz".
func LatestName(name string) string {
	return name + ".latest" + Suffix
}

// WriteJSON writes v as gzip-compressed JSON, creating parent directories as
// needed.
func WriteJSON(path string, v any) error {
	logger.Infof("Writing %s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating dump directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating dump file %s", path)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		return errors.Wrapf(err, "encoding dump file %s", path)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "flushing dump file %s", path)
	}
	return f.Close()
}

// ReadJSON decodes a gzip-compressed JSON dump into v.
func ReadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(errors.ErrSourceUnavailable, "opening dump file %s: %v", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "reading gzip header of %s", path)
	}
	defer zr.Close()

	if err := json.NewDecoder(zr).Decode(v); err != nil {
		return errors.Wrapf(err, "decoding dump file %s", path)
	}
	return nil
}

// WriteRecords writes recs as gzip-compressed NDJSON (one JSON object per
// line), the format the record sources consume.
func WriteRecords[T any](path string, recs []T) error {
	logger.Infof("Writing %s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating dump directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating dump file %s", path)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	bw := bufio.NewWriter(zw)
	enc := json.NewEncoder(bw) // Encode terminates every value with \n
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			zw.Close()
			return errors.Wrapf(err, "encoding record in %s", path)
		}
	}
	if err := bw.Flush(); err != nil {
		zw.Close()
		return errors.Wrapf(err, "flushing dump file %s", path)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "flushing dump file %s", path)
	}
	return f.Close()
}

// UpdateSymlink points link at target, replacing an existing symlink.
// It refuses to replace anything that exists but is not a symlink.
func UpdateSymlink(target, link string) error {
	if fi, err := os.Lstat(link); err == nil {
		if fi.Mode()&os.ModeSymlink == 0 {
			return errors.Newf("cannot update symlink %s -> %s: destination exists but is not a symlink", link, target)
		}
		if err := os.Remove(link); err != nil {
			return errors.Wrapf(err, "removing stale symlink %s", link)
		}
	}
	if err := os.Symlink(target, link); err != nil {
		return errors.Wrapf(err, "creating symlink %s -> %s", link, target)
	}
	return nil
}
