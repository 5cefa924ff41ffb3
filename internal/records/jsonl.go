package records

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"pipetrace/internal/network"
)

// JSON-lines sources carry one record object per line. Blank lines are
// skipped. Field values may be strings or numbers; numbers keep their source
// literal, so integer ids come out as plain decimal strings.

func decodeLine(line string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func requireValue(obj map[string]any, key, name string, row int) (string, error) {
	v := stringValue(obj[key])
	if v == "" {
		return "", fmt.Errorf("%s: row %d: %s is required", name, row, key)
	}
	return v, nil
}

// ReadEdgesJSONL consumes one edge object per line. Required keys: edge_id,
// start_node, end_node. Optional: external_ref.
func ReadEdgesJSONL(r io.Reader, name string) ([]network.EdgeRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []network.EdgeRecord
	for row := 1; sc.Scan(); row++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		obj, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", name, row, err)
		}
		edgeID, err := requireValue(obj, "edge_id", name, row)
		if err != nil {
			return nil, err
		}
		start, err := requireValue(obj, "start_node", name, row)
		if err != nil {
			return nil, err
		}
		end, err := requireValue(obj, "end_node", name, row)
		if err != nil {
			return nil, err
		}
		out = append(out, network.EdgeRecord{
			EdgeID:      edgeID,
			StartNode:   start,
			EndNode:     end,
			ExternalRef: stringValue(obj["external_ref"]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// ReadLinksJSONL consumes one edge↔secondary association per line. Required
// keys: edge_id, secondary_ref.
func ReadLinksJSONL(r io.Reader, name string) ([]network.LinkRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []network.LinkRecord
	for row := 1; sc.Scan(); row++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		obj, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", name, row, err)
		}
		edgeID, err := requireValue(obj, "edge_id", name, row)
		if err != nil {
			return nil, err
		}
		ref, err := requireValue(obj, "secondary_ref", name, row)
		if err != nil {
			return nil, err
		}
		out = append(out, network.LinkRecord{EdgeID: edgeID, Refs: []string{ref}})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
