package records

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"pipetrace/internal/network"
)

// CSV sources are header-driven: column order never matters, extra columns
// are ignored. GIS exports routinely lead with a UTF-8 BOM, so the first
// header cell is cleaned before matching.

type columns map[string]int

func headerIndex(header []string) columns {
	idx := make(columns, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "﻿")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	return idx
}

func (c columns) require(name, file string) (int, error) {
	i, ok := c[name]
	if !ok {
		return 0, fmt.Errorf("%s: missing required column %q", file, name)
	}
	return i, nil
}

func (c columns) optional(name string) int {
	if i, ok := c[name]; ok {
		return i
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ReadEdgesCSV consumes one edge per row. Required columns: edge_id,
// start_node, end_node. Optional: external_ref.
func ReadEdgesCSV(r io.Reader, name string) ([]network.EdgeRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty source", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	cols := headerIndex(header)
	edgeCol, err := cols.require("edge_id", name)
	if err != nil {
		return nil, err
	}
	startCol, err := cols.require("start_node", name)
	if err != nil {
		return nil, err
	}
	endCol, err := cols.require("end_node", name)
	if err != nil {
		return nil, err
	}
	refCol := cols.optional("external_ref")

	var out []network.EdgeRecord
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// csv.ParseError already names the line.
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		edge := network.EdgeRecord{
			EdgeID:      field(rec, edgeCol),
			StartNode:   field(rec, startCol),
			EndNode:     field(rec, endCol),
			ExternalRef: field(rec, refCol),
		}
		if edge.EdgeID == "" {
			return nil, fmt.Errorf("%s: row %d: edge_id is required", name, row)
		}
		if edge.StartNode == "" {
			return nil, fmt.Errorf("%s: row %d: start_node is required", name, row)
		}
		if edge.EndNode == "" {
			return nil, fmt.Errorf("%s: row %d: end_node is required", name, row)
		}
		out = append(out, edge)
	}
	return out, nil
}

// ReadLinksCSV consumes one edge↔secondary association per row. Required
// columns: edge_id, secondary_ref. Repeats of the same edge_id are fine; the
// builder appends them in order.
func ReadLinksCSV(r io.Reader, name string) ([]network.LinkRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty source", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	cols := headerIndex(header)
	edgeCol, err := cols.require("edge_id", name)
	if err != nil {
		return nil, err
	}
	refCol, err := cols.require("secondary_ref", name)
	if err != nil {
		return nil, err
	}

	var out []network.LinkRecord
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		edgeID := field(rec, edgeCol)
		ref := field(rec, refCol)
		if edgeID == "" {
			return nil, fmt.Errorf("%s: row %d: edge_id is required", name, row)
		}
		if ref == "" {
			return nil, fmt.Errorf("%s: row %d: secondary_ref is required", name, row)
		}
		out = append(out, network.LinkRecord{EdgeID: edgeID, Refs: []string{ref}})
	}
	return out, nil
}
