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
	"runtime"
	"sync"
)

// segment is a part of a working set traversed by a single aggregate worker.
type segment struct {
	from, to, stride int
	slot             int
}

// aggregator runs the aggregate bandwidth experiment: a fixed pool of
// workers, each traversing its own disjoint segment of the working set, with
// each round timed by wall clock from fan-out to fan-in. Cycle counters of
// different CPUs are not comparable, so rounds are timed using the monotonic
// clock.
type aggregator struct {
	buf     *Buffer
	workers int
	timer   *Timer
	rate    float64

	// The job queue for the workers; closing it terminates the workers.
	segch chan segment
	// Tracks the segments of the current round not yet done.
	round sync.WaitGroup
	// Per-worker sink slots, so workers never share a sink.
	sinks []int64
}

func newAggregator(buf *Buffer, workers int) *aggregator {
	// The monotonic counter is always at hand and knows its rate, so there
	// are no errors to expect.
	counter := MonotonicCounter()
	timer, _ := NewTimer(counter)
	rate, _ := EstimateRate(counter, 0)
	a := &aggregator{
		buf:     buf,
		workers: workers,
		timer:   timer,
		rate:    rate,
		segch:   make(chan segment, workers),
		sinks:   make([]int64, workers),
	}
	for i := 0; i < workers; i++ {
		go a.work()
	}
	return a
}

func (a *aggregator) work() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for seg := range a.segch {
		a.sinks[seg.slot] += a.buf.TraverseRange(seg.from, seg.to, seg.stride)
		a.round.Done()
	}
}

func (a *aggregator) stop() {
	close(a.segch)
}

// segments splits the first elems elements into per-worker segments, each a
// multiple of the stride long so that the segments together touch the same
// elements a single traversal would. Returns the segments and the number of
// elements they span.
func (a *aggregator) segments(elems, stride int) ([]segment, int) {
	per := elems / a.workers / stride * stride
	if per == 0 {
		// Too small to split; a single worker takes it all.
		return []segment{{from: 0, to: elems, stride: stride}}, elems
	}
	segs := make([]segment, a.workers)
	for i := range segs {
		segs[i] = segment{from: i * per, to: (i + 1) * per, stride: stride, slot: i}
	}
	return segs, per * a.workers
}

// measure times rounds of the workers traversing their segments in parallel,
// using the K-best method over the rounds.
func (a *aggregator) measure(size, stride int) Cell {
	cell := Cell{
		Size:   size,
		Label:  SizeLabel(size),
		Stride: stride,
	}
	segs, spanned := a.segments(size/ElemSize, stride)
	round := func() int64 {
		a.round.Add(len(segs))
		for _, seg := range segs {
			a.segch <- seg
		}
		a.round.Wait()
		var sum int64
		for _, sink := range a.sinks {
			sum += sink
		}
		return sum
	}
	m, err := a.timer.Measure(round, 1)
	cell.Measurement = m
	if err != nil {
		cell.Err = err
		return cell
	}
	cell.Bandwidth, cell.Err = Bandwidth(spanned*ElemSize, stride, m.Cycles, a.rate)
	return cell
}
