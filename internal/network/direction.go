package network

import (
	"fmt"
	"strings"
)

// Direction selects which way the adjacency of a graph is laid out:
// Upstream follows the network against flow, Downstream follows it with flow.
// Fixed at build time and immutable afterwards.
type Direction string

const (
	Upstream   Direction = "UPSTREAM"
	Downstream Direction = "DOWNSTREAM"
)

// ParseDirection normalizes user/wire input into a Direction.
// Accepts the full names case-insensitively plus the single-letter
// shorthands "U" and "D".
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "UPSTREAM", "U":
		return Upstream, nil
	case "DOWNSTREAM", "D":
		return Downstream, nil
	default:
		return "", fmt.Errorf("unknown direction %q", raw)
	}
}

func (d Direction) Valid() bool {
	return d == Upstream || d == Downstream
}

func (d Direction) String() string {
	return string(d)
}
