package graphcache

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"pipetrace/internal/feedback"
	"pipetrace/internal/graphcache/blob"
	"pipetrace/internal/network"
	"pipetrace/internal/pointer"
)

// scriptedStore wraps a working store with injectable failures.
type scriptedStore struct {
	blob.Store
	getErr error
	putErr error
}

func (s *scriptedStore) Get(ctx context.Context, address string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.Get(ctx, address)
}

func (s *scriptedStore) Put(ctx context.Context, address string, payload []byte) error {
	if s.putErr != nil {
		return s.putErr
	}
	return s.Store.Put(ctx, address, payload)
}

type failRegistry struct{}

func (failRegistry) Get(context.Context, string, network.Direction) (string, bool) {
	return "", false
}

func (failRegistry) Set(context.Context, string, network.Direction, string) error {
	return fmt.Errorf("registry offline")
}

func testChain(t *testing.T, loc *Locator, dataset string) []Candidate {
	t.Helper()
	key, err := Key([]string{dataset}, network.Downstream, Variant{})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	return loc.Candidates(context.Background(), dataset, network.Downstream, key)
}

func origins(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Origin)
	}
	return out
}

func TestCandidatesOrderWithoutPointer(t *testing.T) {
	loc, err := NewLocator(pointer.NewMemory(), blob.NewMemoryStore(), blob.NewMemoryStore(), blob.NewMemoryStore())
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	got := origins(testChain(t, loc, "/data/mains.csv"))
	want := []string{OriginDefault, OriginLocal, OriginRemote}
	if len(got) != len(want) {
		t.Fatalf("got chain %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got chain %v, want %v", got, want)
		}
	}
}

func TestCandidatesPointerFirst(t *testing.T) {
	reg := pointer.NewMemory()
	loc, err := NewLocator(reg, blob.NewMemoryStore(), blob.NewMemoryStore(), blob.NewMemoryStore())
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	dataset := "/data/mains.csv"
	key, _ := Key([]string{dataset}, network.Downstream, Variant{})
	recorded := Location{Kind: KindDisk, Address: "/elsewhere/" + FileName(key, network.Downstream)}
	if err := reg.Set(context.Background(), dataset, network.Downstream, recorded.String()); err != nil {
		t.Fatalf("seed pointer: %v", err)
	}

	cands := loc.Candidates(context.Background(), dataset, network.Downstream, key)
	if len(cands) != 4 {
		t.Fatalf("expected 4 candidates, got %v", origins(cands))
	}
	if cands[0].Origin != OriginPointer || cands[0].Location != recorded {
		t.Fatalf("pointer must lead the chain, got %v at %v", cands[0].Origin, cands[0].Location)
	}
}

func TestCandidatesSkipPointerForOtherVariant(t *testing.T) {
	reg := pointer.NewMemory()
	loc, err := NewLocator(reg, blob.NewMemoryStore(), nil, nil)
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	dataset := "/data/mains.csv"
	// Pointer written by a two-layer build of the same primary source.
	joined, _ := Key([]string{dataset, "/data/branches.csv"}, network.Downstream, Variant{Layers: 2})
	stale := Location{Kind: KindDisk, Address: "/data/" + FileName(joined, network.Downstream)}
	if err := reg.Set(context.Background(), dataset, network.Downstream, stale.String()); err != nil {
		t.Fatalf("seed pointer: %v", err)
	}

	cands := testChain(t, loc, dataset)
	if len(cands) != 1 || cands[0].Origin != OriginDefault {
		t.Fatalf("other-variant pointer must be skipped, got %v", origins(cands))
	}
}

func TestCandidatesDedupePointerOnDefault(t *testing.T) {
	reg := pointer.NewMemory()
	loc, err := NewLocator(reg, blob.NewMemoryStore(), blob.NewMemoryStore(), blob.NewMemoryStore())
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	dataset := "/data/mains.csv"
	key, _ := Key([]string{dataset}, network.Downstream, Variant{})
	def := Location{Kind: KindDisk, Address: DefaultLocation(dataset, key, network.Downstream)}
	if err := reg.Set(context.Background(), dataset, network.Downstream, def.String()); err != nil {
		t.Fatalf("seed pointer: %v", err)
	}

	cands := loc.Candidates(context.Background(), dataset, network.Downstream, key)
	if len(cands) != 3 {
		t.Fatalf("pointer equal to default must collapse, got %v", origins(cands))
	}
	if cands[0].Origin != OriginPointer {
		t.Fatalf("surviving duplicate keeps the pointer origin, got %v", cands[0].Origin)
	}
}

func TestSaveTargetsExcludePointer(t *testing.T) {
	reg := pointer.NewMemory()
	loc, err := NewLocator(reg, blob.NewMemoryStore(), blob.NewMemoryStore(), blob.NewMemoryStore())
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	dataset := "/data/mains.csv"
	key, _ := Key([]string{dataset}, network.Downstream, Variant{})
	recorded := Location{Kind: KindRemote, Address: FileName(key, network.Downstream)}
	if err := reg.Set(context.Background(), dataset, network.Downstream, recorded.String()); err != nil {
		t.Fatalf("seed pointer: %v", err)
	}

	got := origins(loc.SaveTargets(dataset, network.Downstream, key))
	want := []string{OriginDefault, OriginLocal, OriginRemote}
	if len(got) != len(want) {
		t.Fatalf("save chain %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("save chain %v, want %v", got, want)
		}
	}
	if loc.SaveTargets(dataset, network.Downstream, key)[0].Location.Address != DefaultLocation(dataset, key, network.Downstream) {
		t.Fatal("save chain must lead with the colocated default")
	}
}

func TestCandidatesSkipPointerForMissingStore(t *testing.T) {
	reg := pointer.NewMemory()
	// No remote store configured.
	loc, err := NewLocator(reg, blob.NewMemoryStore(), nil, nil)
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	dataset := "/data/mains.csv"
	key, _ := Key([]string{dataset}, network.Downstream, Variant{})
	recorded := Location{Kind: KindRemote, Address: FileName(key, network.Downstream)}
	if err := reg.Set(context.Background(), dataset, network.Downstream, recorded.String()); err != nil {
		t.Fatalf("seed pointer: %v", err)
	}

	cands := testChain(t, loc, dataset)
	if len(cands) != 1 || cands[0].Origin != OriginDefault {
		t.Fatalf("unreadable pointer kind must be skipped, got %v", origins(cands))
	}
}

func TestNewLocatorRequiresDisk(t *testing.T) {
	if _, err := NewLocator(pointer.NewMemory(), nil, nil, nil); err == nil {
		t.Fatal("expected error without a disk store")
	}
}

func TestFindFirstReadableWins(t *testing.T) {
	local := blob.NewMemoryStore()
	loc, err := NewLocator(pointer.NewMemory(), blob.NewMemoryStore(), local, blob.NewMemoryStore())
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	cands := testChain(t, loc, "/data/mains.csv")
	want := []byte(`{"cached":true}`)
	if err := local.Put(context.Background(), cands[1].Location.Address, want); err != nil {
		t.Fatalf("seed local: %v", err)
	}

	buf := &feedback.Buffer{}
	hit, raw, ok := loc.Find(context.Background(), cands, buf)
	if !ok {
		t.Fatal("expected a hit")
	}
	if hit.Origin != OriginLocal || string(raw) != string(want) {
		t.Fatalf("hit %v with %q", hit.Origin, raw)
	}
	if len(buf.Warnings()) != 0 {
		t.Fatalf("plain misses must stay silent, got %v", buf.Warnings())
	}
}

func TestFindSkipsBrokenCandidate(t *testing.T) {
	broken := &scriptedStore{Store: blob.NewMemoryStore(), getErr: fmt.Errorf("disk on fire")}
	local := blob.NewMemoryStore()
	loc, err := NewLocator(pointer.NewMemory(), broken, local, nil)
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	cands := testChain(t, loc, "/data/mains.csv")
	want := []byte("payload")
	if err := local.Put(context.Background(), cands[1].Location.Address, want); err != nil {
		t.Fatalf("seed local: %v", err)
	}

	buf := &feedback.Buffer{}
	hit, raw, ok := loc.Find(context.Background(), cands, buf)
	if !ok || hit.Origin != OriginLocal || string(raw) != "payload" {
		t.Fatalf("expected to fall through to local, got %v ok=%v", hit.Origin, ok)
	}
	warnings := buf.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "disk on fire") {
		t.Fatalf("broken candidate must warn once, got %v", warnings)
	}
}

func TestFindMissIsSilent(t *testing.T) {
	loc, err := NewLocator(pointer.NewMemory(), blob.NewMemoryStore(), nil, nil)
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	buf := &feedback.Buffer{}
	_, _, ok := loc.Find(context.Background(), testChain(t, loc, "/data/mains.csv"), buf)
	if ok {
		t.Fatal("expected a miss")
	}
	if len(buf.Entries()) != 0 {
		t.Fatalf("a clean miss logs nothing, got %v", buf.Entries())
	}
}

func TestSaveFallsThroughFailures(t *testing.T) {
	full := &scriptedStore{Store: blob.NewMemoryStore(), putErr: fmt.Errorf("read-only mount")}
	local := blob.NewMemoryStore()
	loc, err := NewLocator(pointer.NewMemory(), full, local, nil)
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	cands := testChain(t, loc, "/data/mains.csv")
	buf := &feedback.Buffer{}
	saved, ok := loc.Save(context.Background(), cands, []byte("payload"), buf)
	if !ok || saved.Origin != OriginLocal {
		t.Fatalf("expected save to land on local, got %v ok=%v", saved.Origin, ok)
	}

	raw, err := local.Get(context.Background(), saved.Location.Address)
	if err != nil || string(raw) != "payload" {
		t.Fatalf("saved payload unreadable: %q %v", raw, err)
	}
	warnings := buf.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "read-only mount") {
		t.Fatalf("each refusal warns once, got %v", warnings)
	}
}

func TestSaveAllFailNonFatal(t *testing.T) {
	full := &scriptedStore{Store: blob.NewMemoryStore(), putErr: fmt.Errorf("read-only mount")}
	loc, err := NewLocator(pointer.NewMemory(), full, nil, nil)
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	buf := &feedback.Buffer{}
	_, ok := loc.Save(context.Background(), testChain(t, loc, "/data/mains.csv"), []byte("payload"), buf)
	if ok {
		t.Fatal("expected save to fail")
	}

	var sawError bool
	for _, e := range buf.Entries() {
		if e.Level == "error" {
			sawError = true
			if e.Fatal {
				t.Fatal("a failed save must not be fatal")
			}
		}
	}
	if !sawError {
		t.Fatalf("all-fail must be reported, got %v", buf.Entries())
	}
}

func TestRecordPointer(t *testing.T) {
	reg := pointer.NewMemory()
	loc, err := NewLocator(reg, blob.NewMemoryStore(), nil, nil)
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	target := Location{Kind: KindDisk, Address: "/data/abc.graph.json"}
	loc.RecordPointer(context.Background(), "/data/mains.csv", network.Upstream, target, feedback.Discard{})

	got, ok := reg.Get(context.Background(), "/data/mains.csv", network.Upstream)
	if !ok || got != target.String() {
		t.Fatalf("pointer not recorded: %q ok=%v", got, ok)
	}
}

func TestRecordPointerFailureWarns(t *testing.T) {
	loc, err := NewLocator(failRegistry{}, blob.NewMemoryStore(), nil, nil)
	if err != nil {
		t.Fatalf("new locator: %v", err)
	}

	buf := &feedback.Buffer{}
	loc.RecordPointer(context.Background(), "ds", network.Upstream,
		Location{Kind: KindDisk, Address: "/x"}, buf)

	warnings := buf.Warnings()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "registry offline") {
		t.Fatalf("registry failure must warn, got %v", warnings)
	}
}
