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

package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/thediveo/mountain"
)

// NotAvailable is rendered in place of the bandwidth of a faulted cell.
const NotAvailable = "n/a"

// WriteTable renders the mountain as a console table, with one column per
// stride labelled “s#” and one row per working-set size, bandwidths in MB/s.
// Cells not measured at all, such as after an interrupted sweep, are left
// empty.
func WriteTable(w io.Writer, t *mountain.Table) {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetBorder(false)
	tw.SetColumnSeparator("")
	tw.SetHeaderLine(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)

	header := make([]string, 0, len(t.Strides)+1)
	header = append(header, "")
	for _, stride := range t.Strides {
		header = append(header, "s"+strconv.Itoa(stride))
	}
	tw.SetHeader(header)

	for row, size := range t.Sizes {
		line := make([]string, 0, len(t.Strides)+1)
		line = append(line, mountain.SizeLabel(size))
		for _, cell := range t.Cells[row] {
			line = append(line, CellText(cell))
		}
		tw.Append(line)
	}
	tw.Render()
}

// CellText returns the text rendering of a single cell's bandwidth.
func CellText(cell mountain.Cell) string {
	switch {
	case cell.Err != nil:
		return NotAvailable
	case cell.Stride == 0:
		return ""
	}
	return strconv.FormatFloat(cell.Bandwidth, 'f', 0, 64)
}

// WritePreamble writes the lines introducing a mountain table.
func WritePreamble(w io.Writer, rate float64, counter string) {
	fmt.Fprintf(w, "Clock frequency is approx. %.1f MHz (%s counter)\n",
		mountain.MHz(rate), counter)
	fmt.Fprintln(w, "Memory mountain (MB/sec)")
}
