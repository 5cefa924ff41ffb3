// Package records loads edge and secondary-link records from the flat-file
// exports that feed graph builds. Sources are consumed eagerly: a build sees
// either the whole file or a hard error naming the offending row, never a
// partial record set.
package records

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pipetrace/internal/network"
)

// Supported source formats.
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// ResolveFormat validates an explicit format or, when blank, detects one from
// the file extension.
func ResolveFormat(path, format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" {
		switch format {
		case FormatCSV, FormatJSONL:
			return format, nil
		}
		return "", fmt.Errorf("unknown record format %q", format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("cannot detect record format for %q", path)
}

// LoadEdges reads every edge record from the file at path. Errors carry the
// base name so feedback lines stay readable when sources live in deep trees.
func LoadEdges(path, format string) ([]network.EdgeRecord, error) {
	format, err := ResolveFormat(path, format)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open edge source: %w", err)
	}
	defer f.Close()

	if format == FormatJSONL {
		return ReadEdgesJSONL(f, filepath.Base(path))
	}
	return ReadEdgesCSV(f, filepath.Base(path))
}

// LoadLinks reads every secondary-link record from the file at path.
func LoadLinks(path, format string) ([]network.LinkRecord, error) {
	format, err := ResolveFormat(path, format)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open link source: %w", err)
	}
	defer f.Close()

	if format == FormatJSONL {
		return ReadLinksJSONL(f, filepath.Base(path))
	}
	return ReadLinksCSV(f, filepath.Base(path))
}
