package graphcache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"pipetrace/internal/feedback"
	"pipetrace/internal/graphcache/blob"
	"pipetrace/internal/network"
	"pipetrace/internal/pointer"
)

// Candidate is one cache slot considered during lookup or save, in policy
// order. Origin records why the slot was considered.
type Candidate struct {
	Origin   string
	Location Location
	store    blob.Store
}

// Probe reports whether the slot currently holds a payload, without reading
// it.
func (c Candidate) Probe(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, fmt.Errorf("candidate has no store")
	}
	return c.store.Exists(ctx, c.Location.Address)
}

const (
	OriginPointer = "pointer"
	OriginDefault = "default"
	OriginLocal   = "local"
	OriginRemote  = "remote"
)

// Locator assembles and walks the candidate chain. Stores for the local and
// remote kinds are optional; the disk store always exists because both the
// recorded-pointer fast path and the colocated default resolve to plain
// files.
type Locator struct {
	registry pointer.Registry
	stores   map[string]blob.Store
}

func NewLocator(registry pointer.Registry, disk, local, remote blob.Store) (*Locator, error) {
	if disk == nil {
		return nil, fmt.Errorf("disk store is required")
	}
	stores := map[string]blob.Store{KindDisk: disk}
	if local != nil {
		stores[KindLocal] = local
	}
	if remote != nil {
		stores[KindRemote] = remote
	}
	return &Locator{registry: registry, stores: stores}, nil
}

// SaveTargets returns the slots a rebuilt graph is written to, in order: the
// deterministic default colocated with the source, then the managed local
// directory and the shared remote bucket when configured. The recorded
// pointer is never a save target; it is written back after a save lands.
func (l *Locator) SaveTargets(primarySource string, direction network.Direction, key string) []Candidate {
	if l == nil {
		return nil
	}
	name := FileName(key, direction)
	out := make([]Candidate, 0, 3)
	out = append(out, Candidate{
		Origin:   OriginDefault,
		Location: Location{Kind: KindDisk, Address: DefaultLocation(primarySource, key, direction)},
		store:    l.stores[KindDisk],
	})
	if store, ok := l.stores[KindLocal]; ok {
		out = append(out, Candidate{Origin: OriginLocal, Location: Location{Kind: KindLocal, Address: name}, store: store})
	}
	if store, ok := l.stores[KindRemote]; ok {
		out = append(out, Candidate{Origin: OriginRemote, Location: Location{Kind: KindRemote, Address: name}, store: store})
	}
	return out
}

// Candidates returns the lookup chain for one graph, first match wins: the
// recorded pointer when one exists and its store is configured, then the
// save targets.
func (l *Locator) Candidates(ctx context.Context, primarySource string, direction network.Direction, key string) []Candidate {
	if l == nil {
		return nil
	}
	out := make([]Candidate, 0, 4)
	name := FileName(key, direction)

	if l.registry != nil {
		if recorded, ok := l.registry.Get(ctx, primarySource, direction); ok {
			loc := ParseLocation(recorded)
			store, known := l.stores[loc.Kind]
			// The pointer is keyed by source and direction only. One last
			// written for a different layer variant of the same source names
			// a different digest; it must not hijack this lookup.
			if known && !loc.IsZero() && filepath.Base(loc.Address) == name {
				out = append(out, Candidate{Origin: OriginPointer, Location: loc, store: store})
			}
		}
	}
	out = append(out, l.SaveTargets(primarySource, direction, key)...)

	// The pointer usually names the default location; reading it twice is
	// harmless but noisy, so collapse exact duplicates.
	return dedupe(out)
}

// Find walks the candidates and returns the first readable payload. A failed
// read is a cache miss for that candidate, never an error: broken slots are
// reported and skipped.
func (l *Locator) Find(ctx context.Context, candidates []Candidate, sink feedback.Sink) (Candidate, []byte, bool) {
	for _, c := range candidates {
		raw, err := c.store.Get(ctx, c.Location.Address)
		if err != nil {
			if !errors.Is(err, blob.ErrNotFound) {
				feedback.Warnf(sink, "cache read failed at %s (%s): %v", c.Location, c.Origin, err)
			}
			continue
		}
		feedback.Infof(sink, "found cached graph at %s (%s)", c.Location, c.Origin)
		return c, raw, true
	}
	return Candidate{}, nil, false
}

// Save writes the payload to the first candidate that accepts it. Every
// refusal is a warning; when no candidate accepts, the failure is reported
// non-fatally and the zero Candidate returns; the in-memory graph stays
// usable either way.
func (l *Locator) Save(ctx context.Context, candidates []Candidate, payload []byte, sink feedback.Sink) (Candidate, bool) {
	for _, c := range candidates {
		if err := c.store.Put(ctx, c.Location.Address, payload); err != nil {
			feedback.Warnf(sink, "could not write graph to %s (%s): %v", c.Location, c.Origin, err)
			continue
		}
		feedback.Infof(sink, "saved graph to %s (%s)", c.Location, c.Origin)
		return c, true
	}
	feedback.Errorf(sink, false, "could not persist graph to any cache location")
	return Candidate{}, false
}

// RecordPointer writes the location back to the registry so the next lookup
// takes the fast path. Failures are warnings: the pointer is an optimization
// on top of an optimization.
func (l *Locator) RecordPointer(ctx context.Context, primarySource string, direction network.Direction, loc Location, sink feedback.Sink) {
	if l == nil || l.registry == nil || loc.IsZero() {
		return
	}
	if err := l.registry.Set(ctx, primarySource, direction, loc.String()); err != nil {
		feedback.Warnf(sink, "could not record graph pointer for %s %s: %v",
			strings.TrimSpace(primarySource), direction, err)
	}
}

func dedupe(in []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, c := range in {
		id := c.Location.String()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, c)
	}
	return out
}
