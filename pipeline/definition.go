// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pipeline holds the named processing configurations shown in the
// viewport grid.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gogpu/camproc/debayer"
)

// ID identifies a pipeline. It is stable across edits.
type ID = uuid.UUID

// NilID is the zero ID. Add assigns a fresh ID to definitions carrying it.
var NilID = uuid.Nil

// Output selects what a cell shows.
type Output uint8

// Cell outputs.
const (
	// OutputImage shows the processed image.
	OutputImage Output = iota

	// OutputHistogram shows per-channel histograms of the processed image.
	OutputHistogram
)

// String returns the output name.
func (o Output) String() string {
	switch o {
	case OutputImage:
		return "image"
	case OutputHistogram:
		return "histogram"
	default:
		return fmt.Sprintf("Output(%d)", uint8(o))
	}
}

// ParseOutput parses an output name, case-insensitively.
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "image", "":
		return OutputImage, nil
	case "histogram":
		return OutputHistogram, nil
	}
	return 0, fmt.Errorf("pipeline: unknown output %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Output) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Output) UnmarshalText(b []byte) error {
	v, err := ParseOutput(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Definition is one processing configuration.
type Definition struct {
	ID         ID
	Name       string
	Debayer    debayer.Algorithm
	PostFilter debayer.Filter
	Output     Output

	// AutoLevel stretches each channel to the full display range before
	// the image is shown.
	AutoLevel bool
}

func (d *Definition) validate() error {
	if d.Debayer != debayer.Bilinear && d.Debayer != debayer.Malvar {
		return fmt.Errorf("%w: debayer %v", ErrInvalidDefinition, d.Debayer)
	}
	if d.PostFilter != debayer.FilterNone && d.PostFilter != debayer.FilterEdgeDetect {
		return fmt.Errorf("%w: post filter %v", ErrInvalidDefinition, d.PostFilter)
	}
	if d.Output != OutputImage && d.Output != OutputHistogram {
		return fmt.Errorf("%w: output %v", ErrInvalidDefinition, d.Output)
	}
	return nil
}

// Summary returns a short description such as "malvar+edge-detect/histogram".
func (d Definition) Summary() string {
	var b strings.Builder
	b.WriteString(d.Debayer.String())
	if d.PostFilter != debayer.FilterNone {
		b.WriteByte('+')
		b.WriteString(d.PostFilter.String())
	}
	if d.AutoLevel {
		b.WriteString("+auto-level")
	}
	if d.Output != OutputImage {
		b.WriteByte('/')
		b.WriteString(d.Output.String())
	}
	return b.String()
}
