// Copyright 2025 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package mountain

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Table is a measured memory mountain: one row per working-set size in
// descending order, one column per stride in ascending order.
type Table struct {
	Sizes   []int
	Strides []int
	Cells   [][]Cell
}

func newTable(sizes, strides []int) *Table {
	t := &Table{
		Sizes:   sizes,
		Strides: strides,
		Cells:   make([][]Cell, len(sizes)),
	}
	for row := range t.Cells {
		t.Cells[row] = make([]Cell, len(strides))
	}
	return t
}

// Cell returns the cell for the specified size and stride, and whether the
// table has such a cell at all.
func (t *Table) Cell(size, stride int) (Cell, bool) {
	for row, sz := range t.Sizes {
		if sz != size {
			continue
		}
		for col, st := range t.Strides {
			if st == stride {
				return t.Cells[row][col], true
			}
		}
	}
	return Cell{}, false
}

// Faults returns the measurement faults of all cells combined into a single
// error, or nil if all measured cells are fine.
func (t *Table) Faults() error {
	var faults *multierror.Error
	for _, row := range t.Cells {
		for _, cell := range row {
			if cell.Err != nil {
				faults = multierror.Append(faults,
					errors.Wrapf(cell.Err, "cell %s/s%d", cell.Label, cell.Stride))
			}
		}
	}
	return faults.ErrorOrNil()
}

// Cliff is a bandwidth drop between two adjacent working-set sizes.
type Cliff struct {
	Below int     // larger working set still on the fast side
	Above int     // working set on the slow side
	Ratio float64 // bandwidth at Below divided by bandwidth at Above
}

// Cliffs returns the bandwidth drops of at least the specified factor for
// the given stride, ordered by ascending working-set size. Faulted or
// unmeasured cells are skipped.
func (t *Table) Cliffs(stride int, factor float64) []Cliff {
	col := -1
	for c, st := range t.Strides {
		if st == stride {
			col = c
			break
		}
	}
	if col < 0 {
		return nil
	}
	cliffs := []Cliff{}
	// Rows are in descending size order, so walk them backwards.
	var smaller Cell
	for row := len(t.Sizes) - 1; row >= 0; row-- {
		cell := t.Cells[row][col]
		if !cell.OK() || cell.Bandwidth <= 0 {
			continue
		}
		if smaller.OK() {
			ratio := smaller.Bandwidth / cell.Bandwidth
			if ratio >= factor {
				cliffs = append(cliffs, Cliff{
					Below: smaller.Size,
					Above: cell.Size,
					Ratio: ratio,
				})
			}
		}
		smaller = cell
	}
	return cliffs
}
