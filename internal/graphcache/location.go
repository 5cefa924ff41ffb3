package graphcache

import "strings"

// Location is one addressed cache slot: a blob store kind plus the address
// meaningful to that store. Its string form ("disk:/data/x.graph.json",
// "remote:abc-UPSTREAM.graph.json") is what the pointer registry records;
// a bare string with no known kind prefix reads as a disk path, so pointers
// written by hand or by older tooling keep working.
type Location struct {
	Kind    string
	Address string
}

const (
	KindDisk   = "disk"
	KindLocal  = "local"
	KindRemote = "remote"
	KindMemory = "memory"
)

func (l Location) String() string {
	if l.Address == "" {
		return ""
	}
	return l.Kind + ":" + l.Address
}

func (l Location) IsZero() bool { return l.Address == "" }

// ParseLocation reads a recorded location string back into a Location.
func ParseLocation(s string) Location {
	s = strings.TrimSpace(s)
	if s == "" {
		return Location{}
	}
	for _, kind := range []string{KindDisk, KindLocal, KindRemote, KindMemory} {
		prefix := kind + ":"
		if strings.HasPrefix(s, prefix) {
			return Location{Kind: kind, Address: strings.TrimSpace(strings.TrimPrefix(s, prefix))}
		}
	}
	return Location{Kind: KindDisk, Address: s}
}
