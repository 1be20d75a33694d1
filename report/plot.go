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
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/thediveo/mountain"
)

// Plot dimensions.
const (
	PlotWidth  = 30 * vg.Centimeter
	PlotHeight = 20 * vg.Centimeter
)

// sizeTicks labels the working-set size axis at exactly the measured sizes.
type sizeTicks []int

func (s sizeTicks) Ticks(min, max float64) []plot.Tick {
	ticks := make([]plot.Tick, 0, len(s))
	for _, size := range s {
		ticks = append(ticks, plot.Tick{
			Value: float64(size),
			Label: mountain.SizeLabel(size),
		})
	}
	return ticks
}

// NewPlot returns a plot of the mountain with one line per stride, showing
// bandwidth over working-set size on a logarithmic size axis. Faulted cells
// leave gaps.
func NewPlot(t *mountain.Table) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Memory mountain"
	p.X.Label.Text = "Working set size"
	p.Y.Label.Text = "Read bandwidth (MB/s)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = sizeTicks(t.Sizes)
	p.Legend.Top = true

	for col, stride := range t.Strides {
		xys := make(plotter.XYs, 0, len(t.Sizes))
		for row, size := range t.Sizes {
			cell := t.Cells[row][col]
			if !cell.OK() {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(size), Y: cell.Bandwidth})
		}
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot plot stride %d", stride)
		}
		line.Color = plotutil.Color(col)
		p.Add(line)
		p.Legend.Add("s"+strconv.Itoa(stride), line)
	}
	return p, nil
}

// SavePlot plots the mountain into the specified file, with the image format
// determined by the file name extension.
func SavePlot(t *mountain.Table, path string) error {
	p, err := NewPlot(t)
	if err != nil {
		return err
	}
	if err := p.Save(PlotWidth, PlotHeight, path); err != nil {
		return errors.Wrapf(err, "cannot save plot to %q", path)
	}
	return nil
}
