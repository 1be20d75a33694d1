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
	"encoding/json"
	"io"

	"github.com/thediveo/mountain"
)

// Document is the JSON representation of a measured mountain.
type Document struct {
	ClockMHz float64    `json:"clock_mhz"`
	Counter  string     `json:"counter"`
	Sizes    []int      `json:"sizes"`
	Strides  []int      `json:"strides"`
	Cells    []JSONCell `json:"cells"`
}

// JSONCell is the JSON representation of a single mountain cell.
type JSONCell struct {
	Size       int      `json:"size"`
	Label      string   `json:"label"`
	Stride     int      `json:"stride"`
	MBps       *float64 `json:"mbps"` // null for faulted cells
	Cycles     float64  `json:"cycles"`
	Trials     int      `json:"trials"`
	Converged  bool     `json:"converged"`
	Interrupts int      `json:"interrupts"`
	Error      string   `json:"error,omitempty"`
}

// NewDocument returns the JSON document for the table, leaving out cells not
// measured.
func NewDocument(t *mountain.Table, rate float64, counter string) Document {
	doc := Document{
		ClockMHz: mountain.MHz(rate),
		Counter:  counter,
		Sizes:    t.Sizes,
		Strides:  t.Strides,
		Cells:    []JSONCell{},
	}
	for _, row := range t.Cells {
		for _, cell := range row {
			if cell.Stride == 0 {
				continue
			}
			jc := JSONCell{
				Size:       cell.Size,
				Label:      cell.Label,
				Stride:     cell.Stride,
				Cycles:     cell.Measurement.Cycles,
				Trials:     cell.Measurement.Trials,
				Converged:  cell.Measurement.Converged,
				Interrupts: cell.Interrupts,
			}
			if cell.Err != nil {
				jc.Error = cell.Err.Error()
			} else {
				mbps := cell.Bandwidth
				jc.MBps = &mbps
			}
			doc.Cells = append(doc.Cells, jc)
		}
	}
	return doc
}

// WriteJSON writes the table as an indented JSON document.
func WriteJSON(w io.Writer, t *mountain.Table, rate float64, counter string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(t, rate, counter))
}
