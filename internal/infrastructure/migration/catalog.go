package migration

import (
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
)

// Entry describes one versioned migration available in a source.
type Entry struct {
	Version uint
	Name    string
	HasDown bool
}

// Catalog lists the migrations found at the root of fsys ordered by
// version. An up file is required for every version.
func Catalog(fsys fs.FS) ([]Entry, error) {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	byVersion := make(map[uint]*Entry)
	ups := make(map[uint]bool)
	for _, file := range files {
		version, name, direction, err := parseFileName(file)
		if err != nil {
			return nil, err
		}
		e, ok := byVersion[version]
		if !ok {
			e = &Entry{Version: version, Name: name}
			byVersion[version] = e
		}
		if e.Name != name {
			return nil, fmt.Errorf("migration %d has conflicting names %q and %q", version, e.Name, name)
		}
		switch direction {
		case "up":
			ups[version] = true
		case "down":
			e.HasDown = true
		}
	}

	entries := make([]Entry, 0, len(byVersion))
	for version, e := range byVersion {
		if !ups[version] {
			return nil, fmt.Errorf("migration %d (%s) has no up file", version, e.Name)
		}
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Version < entries[j].Version })
	return entries, nil
}

// Pending returns the entries above the applied version.
func Pending(entries []Entry, applied uint) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Version > applied {
			out = append(out, e)
		}
	}
	return out
}

// parseFileName splits "000001_create_things.up.sql".
func parseFileName(file string) (uint, string, string, error) {
	base := strings.TrimSuffix(file, ".sql")
	dot := strings.LastIndex(base, ".")
	if dot < 0 {
		return 0, "", "", fmt.Errorf("migration %q has no direction", file)
	}
	direction := base[dot+1:]
	if direction != "up" && direction != "down" {
		return 0, "", "", fmt.Errorf("migration %q has unknown direction %q", file, direction)
	}
	base = base[:dot]

	versionPart, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", "", fmt.Errorf("migration %q has no name", file)
	}
	version, err := strconv.ParseUint(versionPart, 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("migration %q has invalid version: %w", file, err)
	}
	return uint(version), name, direction, nil
}
