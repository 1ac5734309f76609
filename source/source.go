// Package source provides finite, ordered sequences of decoded records for
// the lookup engine's loading phases.
//
// A source is restartable on reload (Each may be called again from the
// start on a fresh load) but not resumable mid-stream. Sources are consumed
// eagerly and completely; cancellation is the responsibility of whoever
// feeds the underlying reader.
//
// Lines that fail to decode are logged and skipped; field-level validation
// of decoded records belongs to the consumer.
package source

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/ipmeta/ipmeta/errors"
	"github.com/ipmeta/ipmeta/internal/httpclient"
	"github.com/ipmeta/ipmeta/logger"
)

// maxLineBytes bounds a single NDJSON line; PeeringDB records are well under
// this, but the default bufio.Scanner limit of 64K is too easy to trip.
const maxLineBytes = 1 << 20

// Source is a finite sequence of decoded records. Each invokes fn for every
// record in order until the sequence is exhausted or fn returns false. The
// returned error reports source-level failure (unreachable file or stream),
// never individual malformed entries.
type Source[T any] interface {
	// Name identifies the source in logs.
	Name() string
	Each(fn func(T) bool) error
}

// File returns a Source reading gzip-compressed NDJSON records from path.
func File[T any](path string) Source[T] {
	return &fileSource[T]{path: path}
}

type fileSource[T any] struct {
	path string
}

func (s *fileSource[T]) Name() string { return s.path }

func (s *fileSource[T]) Each(fn func(T) bool) error {
	f, err := os.Open(s.path)
	if err != nil {
		return errors.Wrapf(errors.ErrSourceUnavailable, "opening record file %s: %v", s.path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(errors.ErrSourceUnavailable, "reading gzip header of %s: %v", s.path, err)
	}
	defer zr.Close()

	return decodeLines(zr, s.path, fn)
}

// Stream returns a Source reading NDJSON records from an HTTP endpoint.
// The body is consumed to exhaustion; the source owns no timeout beyond the
// client's.
func Stream[T any](ctx context.Context, url string, client *httpclient.Client) Source[T] {
	return &streamSource[T]{ctx: ctx, url: url, client: client}
}

type streamSource[T any] struct {
	ctx    context.Context
	url    string
	client *httpclient.Client
}

func (s *streamSource[T]) Name() string { return s.url }

func (s *streamSource[T]) Each(fn func(T) bool) error {
	resp, err := s.client.Get(s.ctx, s.url, nil)
	if err != nil {
		return errors.Wrapf(errors.ErrSourceUnavailable, "opening record stream %s: %v", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		io.Copy(io.Discard, resp.Body)
		return errors.Wrapf(errors.ErrSourceUnavailable, "record stream %s replied with status code %d", s.url, resp.StatusCode)
	}
	return decodeLines(resp.Body, s.url, fn)
}

// Slice returns a Source over an in-memory record slice.
func Slice[T any](name string, recs []T) Source[T] {
	return &sliceSource[T]{name: name, recs: recs}
}

type sliceSource[T any] struct {
	name string
	recs []T
}

func (s *sliceSource[T]) Name() string { return s.name }

func (s *sliceSource[T]) Each(fn func(T) bool) error {
	for _, rec := range s.recs {
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

func decodeLines[T any](r io.Reader, name string, fn func(T) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			logger.Warnf("Skipping entry at %s:%d: %v", name, line,
				errors.Wrapf(errors.ErrMalformedRecord, "%v", err))
			continue
		}
		if !fn(rec) {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(errors.ErrSourceUnavailable, "reading records from %s: %v", name, err)
	}
	return nil
}
