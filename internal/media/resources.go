// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Resources resolves bundled resource ids to media files. A resource with id
// N is the first file named "N.<ext>" in the assets directory.
type Resources struct {
	dir string
}

// NewResources returns a resolver rooted at dir.
func NewResources(dir string) *Resources {
	return &Resources{dir: dir}
}

// Resolve returns the local source for id.
func (r *Resources) Resolve(id int) (Source, error) {
	if r == nil || r.dir == "" || id <= 0 {
		return Source{}, fmt.Errorf("%w: %d", ErrResourceNotFound, id)
	}
	matches, err := filepath.Glob(filepath.Join(r.dir, strconv.Itoa(id)+".*"))
	if err != nil {
		return Source{}, err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			return Source{Path: m}, nil
		}
	}
	return Source{}, fmt.Errorf("%w: %d", ErrResourceNotFound, id)
}
