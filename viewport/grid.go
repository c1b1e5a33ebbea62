// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package viewport

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/camproc/pipeline"
)

// Grid errors.
var (
	// ErrEmptyRegistry is returned when the grid cannot be filled because
	// no pipeline is registered. The previous grid is kept.
	ErrEmptyRegistry = errors.New("viewport: empty registry")

	// ErrInvalidGrid is returned for a grid with fewer than one row or column.
	ErrInvalidGrid = errors.New("viewport: invalid grid")
)

// Grid is a rows x columns assignment of pipelines to cells, in row-major
// order. A Grid returned by the Scheduler is a copy.
type Grid struct {
	Rows    int
	Columns int
	Cells   []pipeline.ID
}

// Len returns the number of cells.
func (g Grid) Len() int { return g.Rows * g.Columns }

// At returns the pipeline assigned to the cell at row, col.
func (g Grid) At(row, col int) pipeline.ID {
	return g.Cells[row*g.Columns+col]
}

func (g Grid) clone() Grid {
	g.Cells = slices.Clone(g.Cells)
	return g
}

// reconcile returns the assignment for a rows x cols grid against snap.
// Cells that still exist and reference a registered pipeline are kept;
// every other cell i gets ids[i % len(ids)].
func reconcile(prev []pipeline.ID, rows, cols int, snap *pipeline.Snapshot) ([]pipeline.ID, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, rows, cols)
	}
	ids := snap.IDs()
	if len(ids) == 0 {
		return nil, ErrEmptyRegistry
	}

	n := rows * cols
	cells := make([]pipeline.ID, n)
	for i := range cells {
		if i < len(prev) && snap.Contains(prev[i]) {
			cells[i] = prev[i]
			continue
		}
		cells[i] = ids[i%len(ids)]
	}
	return cells, nil
}
