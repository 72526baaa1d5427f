// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/grant-attribution/internal/cache"
	"github.com/pdiddy/grant-attribution/internal/logging"
	"github.com/pdiddy/grant-attribution/internal/names"
	"github.com/pdiddy/grant-attribution/pkg/types"
)

// UnknownPI is the grouping key for projects without a contact PI. It is
// never looked up.
const UnknownPI = "Unknown"

const (
	defaultLookupDelay     = 100 * time.Millisecond
	defaultCheckpointEvery = 10
)

// Conn is a directory connection held for the duration of one batch.
type Conn interface {
	Directory
	io.Closer
}

// Opener acquires a connection. LookupBatch calls it once per batch.
type Opener func(ctx context.Context) (Conn, error)

// BatchSummary holds counts from a lookup run.
type BatchSummary struct {
	Cached      int // already cached and not selected
	Processed   int
	Matched     int
	NotFound    int
	Unparseable int
	QueryErrors int
}

// Select returns the names LookupBatch will process, in input order:
// every name not yet cached, plus, when cfg.Force is set, every cached
// name whose raw name or cached department contains cfg.Filter.
// UnknownPI and duplicates are skipped.
func Select(all []string, c *cache.Cache, cfg types.LookupConfig) []string {
	var out []string
	seen := make(map[string]bool, len(all))
	for _, name := range all {
		if name == UnknownPI || seen[name] {
			continue
		}
		seen[name] = true

		rec, cached := c.Get(name)
		if !cached {
			out = append(out, name)
			continue
		}
		if cfg.Force && forcedMatch(rec, cfg.Filter) {
			out = append(out, name)
		}
	}
	return out
}

func forcedMatch(rec types.PersonRecord, filter string) bool {
	if filter == "" {
		return true
	}
	return names.ContainsFold(rec.RawName, filter) || names.ContainsFold(types.Deref(rec.Department), filter)
}

// LookupBatch resolves the selected names against one directory
// connection, sequentially, pausing cfg.Delay between lookups. New
// records are checkpointed to the cache every cfg.CheckpointEvery
// lookups and once more at the end. The connection is closed on every
// exit path.
//
// A failure to connect, a lost connection, or a cancelled context stops
// the batch and returns an error; the cache then holds whatever the last
// checkpoint wrote. Unparseable names and names without a match are
// recorded as not found.
func LookupBatch(ctx context.Context, open Opener, all []string, c *cache.Cache, cfg types.LookupConfig, w io.Writer) (BatchSummary, error) {
	log := logging.FromContext(ctx)

	delay := cfg.Delay
	if delay <= 0 {
		delay = defaultLookupDelay
	}
	every := cfg.CheckpointEvery
	if every <= 0 {
		every = defaultCheckpointEvery
	}

	todo := Select(all, c, cfg)
	summary := BatchSummary{Cached: countCached(all, c) - countCachedSelected(todo, c)}
	fmt.Fprintf(w, "Total PIs: %d. Already cached: %d. To process: %d\n", len(uniqueNames(all)), c.Len(), len(todo))
	if len(todo) == 0 {
		return summary, nil
	}

	conn, err := open(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return summary, err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("closing directory connection")
		} else {
			log.Info().Msg("directory connection closed")
		}
	}()

	for i, name := range todo {
		if i > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(delay):
			}
		}

		log.Info().Int("n", i+1).Int("total", len(todo)).Str("name", name).Msg("lookup")
		rec, err := lookupOne(ctx, conn, name, &summary)
		if err != nil {
			return summary, fmt.Errorf("looking up %q: %w", name, err)
		}

		if c.Has(name) {
			c.Replace(rec)
		} else if err := c.Put(rec); err != nil {
			return summary, err
		}
		summary.Processed++

		if summary.Processed%every == 0 {
			if err := c.Save(); err != nil {
				return summary, fmt.Errorf("checkpoint: %w", err)
			}
			log.Info().Int("records", summary.Processed).Msg("checkpoint saved")
		}
	}

	if err := c.Save(); err != nil {
		return summary, fmt.Errorf("saving person cache: %w", err)
	}

	fmt.Fprintf(w, "\nLookup summary: %d processed, %d matched, %d not found, %d unparseable, %d query errors\n",
		summary.Processed, summary.Matched, summary.NotFound, summary.Unparseable, summary.QueryErrors)
	return summary, nil
}

func lookupOne(ctx context.Context, dir Directory, raw string, summary *BatchSummary) (types.PersonRecord, error) {
	log := logging.FromContext(ctx)

	n, err := names.Normalize(raw)
	if err != nil {
		log.Warn().Err(err).Msg("unparseable name, recording as not found")
		summary.Unparseable++
		summary.NotFound++
		return types.NewNotFoundRecord(raw), nil
	}

	out, err := Match(ctx, dir, n)
	if err != nil {
		return types.PersonRecord{}, err
	}
	for _, qe := range out.Errors {
		log.Warn().Err(qe.Err).Str("filter", qe.Filter.String()).Msg("search pass failed")
	}
	summary.QueryErrors += len(out.Errors)

	if !out.Found {
		summary.NotFound++
		return types.NewNotFoundRecord(raw), nil
	}
	summary.Matched++
	log.Debug().Str("entry", out.Result.EntryID).Int("score", out.Result.Score).Msg("matched")
	return types.NewMatchedRecord(raw, out.Result), nil
}

func uniqueNames(all []string) map[string]bool {
	u := make(map[string]bool, len(all))
	for _, name := range all {
		u[name] = true
	}
	return u
}

func countCached(all []string, c *cache.Cache) int {
	n := 0
	for name := range uniqueNames(all) {
		if c.Has(name) {
			n++
		}
	}
	return n
}

func countCachedSelected(todo []string, c *cache.Cache) int {
	n := 0
	for _, name := range todo {
		if c.Has(name) {
			n++
		}
	}
	return n
}
