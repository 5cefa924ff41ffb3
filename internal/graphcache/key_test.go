package graphcache

import (
	"path/filepath"
	"strings"
	"testing"

	"pipetrace/internal/network"
)

func TestKeyDeterministic(t *testing.T) {
	first, err := Key([]string{"/data/mains.csv"}, network.Upstream, Variant{})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	second, err := Key([]string{"/data/mains.csv"}, network.Upstream, Variant{})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if first != second {
		t.Fatalf("same inputs keyed differently: %s vs %s", first, second)
	}
}

func TestKeyUsesBasename(t *testing.T) {
	abs, err := Key([]string{"/srv/region-a/mains.csv"}, network.Upstream, Variant{})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	rel, err := Key([]string{"mains.csv"}, network.Upstream, Variant{})
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if abs != rel {
		t.Fatal("identical basenames must key identically regardless of path")
	}
}

func TestKeyVariesByDirection(t *testing.T) {
	up, _ := Key([]string{"mains.csv"}, network.Upstream, Variant{})
	down, _ := Key([]string{"mains.csv"}, network.Downstream, Variant{})
	if up == down {
		t.Fatal("directions must key differently")
	}

	upLoc := DefaultLocation("/data/mains.csv", up, network.Upstream)
	downLoc := DefaultLocation("/data/mains.csv", down, network.Downstream)
	if upLoc == downLoc {
		t.Fatal("directions must resolve to different locations")
	}
}

func TestKeyVariesByVariant(t *testing.T) {
	single, _ := Key([]string{"mains.csv"}, network.Upstream, Variant{Layers: 1})
	joined, _ := Key([]string{"mains.csv"}, network.Upstream, Variant{Layers: 3})
	if single == joined {
		t.Fatal("variants must key differently")
	}

	zero, _ := Key([]string{"mains.csv"}, network.Upstream, Variant{})
	if zero != single {
		t.Fatal("zero variant means a single layer")
	}
}

func TestKeyVariesBySourceSet(t *testing.T) {
	one, _ := Key([]string{"mains.csv"}, network.Upstream, Variant{Layers: 2})
	two, _ := Key([]string{"mains.csv", "branches.csv"}, network.Upstream, Variant{Layers: 2})
	if one == two {
		t.Fatal("joined sources must key differently")
	}
}

func TestKeyValidation(t *testing.T) {
	if _, err := Key(nil, network.Upstream, Variant{}); err == nil {
		t.Fatal("no sources must fail")
	}
	if _, err := Key([]string{"  "}, network.Upstream, Variant{}); err == nil {
		t.Fatal("blank sources must fail")
	}
	if _, err := Key([]string{"x"}, network.Direction("SIDEWAYS"), Variant{}); err == nil {
		t.Fatal("bad direction must fail")
	}
}

func TestDefaultLocationColocated(t *testing.T) {
	key, _ := Key([]string{"/data/region/mains.csv"}, network.Downstream, Variant{})
	loc := DefaultLocation("/data/region/mains.csv", key, network.Downstream)

	if filepath.Dir(loc) != "/data/region" {
		t.Fatalf("location %q is not colocated with the source", loc)
	}
	base := filepath.Base(loc)
	if !strings.HasPrefix(base, key+"-") || !strings.HasSuffix(base, "-DOWNSTREAM.graph.json") {
		t.Fatalf("unexpected file name %q", base)
	}
}

func TestLocationStringRoundTrip(t *testing.T) {
	cases := []Location{
		{Kind: KindDisk, Address: "/data/abc-UPSTREAM.graph.json"},
		{Kind: KindLocal, Address: "abc-UPSTREAM.graph.json"},
		{Kind: KindRemote, Address: "abc-UPSTREAM.graph.json"},
	}
	for _, want := range cases {
		got := ParseLocation(want.String())
		if got != want {
			t.Fatalf("round trip %v -> %v", want, got)
		}
	}
}

func TestParseLocationBarePathReadsAsDisk(t *testing.T) {
	got := ParseLocation("/legacy/pointer/path.graph.json")
	if got.Kind != KindDisk || got.Address != "/legacy/pointer/path.graph.json" {
		t.Fatalf("bare path parsed as %v", got)
	}
	if !ParseLocation("  ").IsZero() {
		t.Fatal("blank parses to zero location")
	}
}
