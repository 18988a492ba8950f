// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package epoch derives a recording's reference start time from its file name.
package epoch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Layout is the date token the logger embeds in every file name.
const Layout = "2006-01-02"

// ErrInvalidEpochSource is returned when no date can be parsed from a source name.
var ErrInvalidEpochSource = errors.New("invalid epoch source")

// FromPath returns UTC midnight of the date named by path.
//
// The date is the base name up to its first '.', for example
// "/data/seismic/2024-03-17.dat" -> 2024-03-17T00:00:00Z.
func FromPath(path string) (time.Time, error) {
	name := filepath.Base(path)
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if name == "" || name == "/" {
		return time.Time{}, fmt.Errorf("%w: %q has no file name", ErrInvalidEpochSource, path)
	}

	t, err := time.ParseInLocation(Layout, name, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY-MM-DD: %w", ErrInvalidEpochSource, name, err)
	}
	return t, nil
}

// FileName returns the canonical file name for a recording started on day t.
func FileName(t time.Time, ext string) string {
	name := t.UTC().Format(Layout)
	if ext == "" {
		return name
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}
