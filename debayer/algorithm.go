// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package debayer

import (
	"fmt"
	"strings"
)

// Algorithm selects the demosaic kernel.
type Algorithm uint8

// Demosaic algorithms.
const (
	Bilinear Algorithm = iota
	Malvar
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case Bilinear:
		return "bilinear"
	case Malvar:
		return "malvar"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// ParseAlgorithm parses an algorithm name, case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bilinear", "":
		return Bilinear, nil
	case "malvar", "malvar-he-cutler", "mhc":
		return Malvar, nil
	}
	return 0, fmt.Errorf("debayer: unknown algorithm %q", s)
}

// Filter selects the post filter applied after demosaicing.
type Filter uint8

// Post filters.
const (
	FilterNone Filter = iota
	FilterEdgeDetect
)

// String returns the filter name.
func (f Filter) String() string {
	switch f {
	case FilterNone:
		return "none"
	case FilterEdgeDetect:
		return "edge-detect"
	default:
		return fmt.Sprintf("Filter(%d)", uint8(f))
	}
}

// ParseFilter parses a filter name, case-insensitively.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return FilterNone, nil
	case "edge-detect", "edgedetect", "edge", "sobel":
		return FilterEdgeDetect, nil
	}
	return 0, fmt.Errorf("debayer: unknown filter %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(b []byte) error {
	v, err := ParseAlgorithm(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Filter) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Filter) UnmarshalText(b []byte) error {
	v, err := ParseFilter(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
