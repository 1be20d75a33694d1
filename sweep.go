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
	"context"
	"io"
	"iter"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SweepConfig defines the (size, stride) grid of a memory mountain.
type SweepConfig struct {
	MinBytes         int  // smallest working set, in bytes
	MaxBytes         int  // largest working set, in bytes
	MaxStride        int  // largest stride, in elements
	StrideStep       int  // arithmetic stride increment
	GeometricStrides bool // double strides instead of incrementing them
	Repeat           int  // kernel invocations per timed trial
}

// DefaultSweepConfig returns the classic mountain grid: working sets from 1k
// to 128m, strides 1, 3, 5, ..., 31.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		MinBytes:   1 << 10,
		MaxBytes:   1 << 27,
		MaxStride:  32,
		StrideStep: 2,
		Repeat:     1,
	}
}

// Sizes returns the working-set sizes in descending order, halving from the
// maximum down to the minimum.
func (c SweepConfig) Sizes() []int {
	sizes := []int{}
	for size := c.MaxBytes; size >= c.MinBytes && size > 0; size >>= 1 {
		sizes = append(sizes, size)
	}
	return sizes
}

// Strides returns the strides in ascending order.
func (c SweepConfig) Strides() []int {
	strides := []int{}
	step := max(c.StrideStep, 1)
	for stride := 1; stride <= c.MaxStride; {
		strides = append(strides, stride)
		if c.GeometricStrides {
			stride *= 2
		} else {
			stride += step
		}
	}
	return strides
}

// validate checks the configuration against the buffer it is going to be
// measured on.
func (c SweepConfig) validate(buf *Buffer) error {
	switch {
	case c.MaxStride < 1:
		return errors.Wrapf(ErrConfig, "maximum stride %d below 1", c.MaxStride)
	case c.MinBytes < ElemSize:
		return errors.Wrapf(ErrConfig, "minimum size %d below element size %d",
			c.MinBytes, ElemSize)
	case c.MinBytes > c.MaxBytes:
		return errors.Wrapf(ErrConfig, "minimum size %d exceeds maximum size %d",
			c.MinBytes, c.MaxBytes)
	case c.MinBytes < c.MaxStride*ElemSize:
		return errors.Wrapf(ErrConfig, "minimum size %d too small for maximum stride %d",
			c.MinBytes, c.MaxStride)
	case !buf.Fits(c.MaxBytes):
		return errors.Wrapf(ErrConfig, "maximum size %d exceeds buffer capacity %d",
			c.MaxBytes, buf.Bytes())
	}
	return nil
}

// Cell is the measurement result for a single (size, stride) grid point.
// Cells with a non-nil Err carry no bandwidth.
type Cell struct {
	Size        int     // working-set size in bytes
	Label       string  // human-readable size label
	Stride      int     // stride in elements
	Bandwidth   float64 // MB/s
	Measurement Measurement
	Interrupts  int // interrupts on the measurement CPU, -1 if unknown
	Err         error
}

// OK returns true if the cell has been measured without fault.
func (c Cell) OK() bool { return c.Stride > 0 && c.Err == nil }

// Sweep measures a memory mountain over a working-set buffer.
type Sweep struct {
	buf     *Buffer
	timer   *Timer
	rate    float64
	cfg     SweepConfig
	sizes   []int
	strides []int
	log     logrus.FieldLogger
	noise   *NoiseProbe
	workers int
}

// SweepOption configures a [Sweep].
type SweepOption func(*Sweep)

// WithLogger sets the logger to report progress and cell faults to.
func WithLogger(log logrus.FieldLogger) SweepOption {
	return func(s *Sweep) { s.log = log }
}

// WithNoiseProbe counts the interrupts delivered to the measurement CPU
// during each cell.
func WithNoiseProbe(p *NoiseProbe) SweepOption {
	return func(s *Sweep) { s.noise = p }
}

// WithAggregate switches the sweep into the aggregate bandwidth experiment
// where the specified number of workers traverse disjoint parts of each
// working set in parallel. This is a different measurement from the
// single-thread mountain and never mixed with it.
func WithAggregate(workers int) SweepOption {
	return func(s *Sweep) { s.workers = workers }
}

// NewSweep returns a new sweep over the specified buffer, timing cells with
// the specified timer whose counter ticks at rate ticks per second. NewSweep
// fails with [ErrConfig] if the configuration cannot be measured on this
// buffer.
func NewSweep(buf *Buffer, timer *Timer, rate float64, cfg SweepConfig, opts ...SweepOption) (*Sweep, error) {
	if buf == nil || timer == nil {
		return nil, errors.Wrap(ErrConfig, "sweep needs a buffer and a timer")
	}
	if err := cfg.validate(buf); err != nil {
		return nil, err
	}
	if rate <= 0 {
		return nil, errors.Wrapf(ErrInvalidRate, "%g ticks/s", rate)
	}
	cfg.Repeat = max(cfg.Repeat, 1)
	s := &Sweep{
		buf:     buf,
		timer:   timer,
		rate:    rate,
		cfg:     cfg,
		sizes:   cfg.Sizes(),
		strides: cfg.Strides(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		s.log = discard
	}
	return s, nil
}

// Sizes returns the working-set sizes of this sweep, in descending order.
func (s *Sweep) Sizes() []int { return s.sizes }

// Strides returns the strides of this sweep, in ascending order.
func (s *Sweep) Strides() []int { return s.strides }

// Cells returns a single-use iterator measuring the cells of the mountain in
// row-major order: sizes descending, and for each size the strides
// ascending. The iteration ends early when the context gets cancelled; the
// context is only checked between cells.
func (s *Sweep) Cells(ctx context.Context) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		measure := s.measure
		if s.workers > 0 {
			agg := newAggregator(s.buf, s.workers)
			defer agg.stop()
			measure = agg.measure
		}
		for _, size := range s.sizes {
			for _, stride := range s.strides {
				if ctx.Err() != nil {
					return
				}
				cell := s.probed(size, stride, measure)
				fields := logrus.Fields{
					"size":   cell.Label,
					"stride": stride,
				}
				if cell.Err != nil {
					s.log.WithFields(fields).WithError(cell.Err).Warn("measurement fault")
				} else {
					fields["mbps"] = cell.Bandwidth
					fields["cycles"] = cell.Measurement.Cycles
					fields["trials"] = cell.Measurement.Trials
					fields["converged"] = cell.Measurement.Converged
					s.log.WithFields(fields).Debug("measured")
				}
				if !yield(cell) {
					return
				}
			}
		}
	}
}

// Run measures the complete mountain and returns it as a table. When the
// context gets cancelled, Run returns the partially measured table together
// with the context's error.
func (s *Sweep) Run(ctx context.Context) (*Table, error) {
	t := newTable(s.sizes, s.strides)
	row, col := 0, 0
	for cell := range s.Cells(ctx) {
		t.Cells[row][col] = cell
		col++
		if col == len(s.strides) {
			row, col = row+1, 0
		}
	}
	return t, ctx.Err()
}

type cellMeasurer func(size, stride int) Cell

// probed measures a single cell while counting the interrupts hitting the
// measurement CPU. The interrupt counters are only read outside the timed
// trials.
func (s *Sweep) probed(size, stride int, measure cellMeasurer) Cell {
	var before uint64
	probing := false
	if s.noise != nil {
		before, probing = s.noise.Count()
	}
	cell := measure(size, stride)
	cell.Interrupts = -1
	if probing {
		if after, ok := s.noise.Count(); ok && after >= before {
			cell.Interrupts = int(after - before)
		}
	}
	return cell
}

// measure times a single-thread traversal of the cell's working set.
func (s *Sweep) measure(size, stride int) Cell {
	cell := Cell{
		Size:   size,
		Label:  SizeLabel(size),
		Stride: stride,
	}
	m, err := s.timer.Measure(s.buf.Kernel(size/ElemSize, stride), s.cfg.Repeat)
	cell.Measurement = m
	if err != nil {
		cell.Err = err
		return cell
	}
	cell.Bandwidth, cell.Err = Bandwidth(size, stride, m.Cycles, s.rate)
	return cell
}
