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
	"slices"

	"github.com/pkg/errors"
)

// Default K-best timer parameters.
const (
	DefaultK         = 2
	DefaultEpsilon   = 0.01
	DefaultMaxTrials = 20
)

// Measurement is the outcome of timing a kernel with [Timer.Measure].
type Measurement struct {
	Cycles    float64   // best (minimum) cycles per kernel invocation
	Trials    int       // number of timed trials run
	Converged bool      // K best trials agreed within the tolerance
	Best      []float64 // minimum-so-far cycles after each trial
}

// Timer measures the cycles a kernel takes using the K-best method: the
// minimum of repeated trials is the best estimate of the true cost, and
// measuring stops once the K smallest trials agree within a small relative
// tolerance. Larger samples only ever add noise (interrupts, scheduling,
// throttling); nothing makes a trial run faster than its true cost.
//
// A Timer is not safe for concurrent use.
type Timer struct {
	counter   Counter
	k         int
	epsilon   float64
	maxTrials int

	kbest []uint64 // sorted K smallest samples of the current measurement
	sink  int64
}

// TimerOption configures a [Timer].
type TimerOption func(*Timer)

// WithK sets the number of smallest trials that need to agree.
func WithK(k int) TimerOption {
	return func(t *Timer) { t.k = k }
}

// WithEpsilon sets the relative tolerance within which the K smallest trials
// need to agree.
func WithEpsilon(epsilon float64) TimerOption {
	return func(t *Timer) { t.epsilon = epsilon }
}

// WithMaxTrials sets the trial budget of a single measurement.
func WithMaxTrials(n int) TimerOption {
	return func(t *Timer) { t.maxTrials = n }
}

// NewTimer returns a new K-best timer reading the specified counter. It fails
// with [ErrNoCounter] when there is no counter.
func NewTimer(counter Counter, opts ...TimerOption) (*Timer, error) {
	if counter == nil {
		return nil, errors.Wrap(ErrNoCounter, "cannot create timer")
	}
	t := &Timer{
		counter:   counter,
		k:         DefaultK,
		epsilon:   DefaultEpsilon,
		maxTrials: DefaultMaxTrials,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.k = max(t.k, 1)
	t.maxTrials = max(t.maxTrials, t.k)
	t.epsilon = max(t.epsilon, 0)
	t.kbest = make([]uint64, 0, t.k)
	return t, nil
}

// Counter returns the counter this timer reads.
func (t *Timer) Counter() Counter { return t.counter }

// Sink returns the accumulated kernel results. It exists so that the kernel
// results are observably consumed.
func (t *Timer) Sink() int64 { return t.sink }

// Measure times the kernel and returns its best cycle count per invocation.
// The kernel first runs once untimed in order to warm up caches and TLBs.
// Then each trial times repeat back-to-back invocations, so that kernels too
// short for the counter's resolution can be amplified.
//
// Not converging within the trial budget is not an error: Measure then returns
// the best cycle count seen, with Converged false. Measure only fails with
// [ErrNonPositiveCycles] when the counter didn't advance.
func (t *Timer) Measure(kernel func() int64, repeat int) (Measurement, error) {
	repeat = max(repeat, 1)
	m := Measurement{
		Best: make([]float64, 0, t.maxTrials),
	}
	kbest := t.kbest[:0]

	t.sink += kernel()
	for m.Trials < t.maxTrials {
		start := t.counter.Start()
		for r := 0; r < repeat; r++ {
			t.sink += kernel()
		}
		stop := t.counter.Stop()

		var cycles uint64
		if stop > start {
			cycles = stop - start
		}
		kbest = insertKBest(kbest, cycles, t.k)
		m.Trials++
		m.Best = append(m.Best, float64(kbest[0])/float64(repeat))
		if len(kbest) == t.k &&
			float64(kbest[t.k-1]) <= (1+t.epsilon)*float64(kbest[0]) {
			m.Converged = true
			break
		}
	}
	t.kbest = kbest

	m.Cycles = float64(kbest[0]) / float64(repeat)
	if kbest[0] == 0 {
		return m, errors.Wrapf(ErrNonPositiveCycles,
			"%s counter did not advance", t.counter.Name())
	}
	return m, nil
}

// insertKBest inserts the sample into the ascending list of at most k best
// samples, dropping the largest sample if the list would otherwise exceed k
// samples.
func insertKBest(kbest []uint64, sample uint64, k int) []uint64 {
	pos, _ := slices.BinarySearch(kbest, sample)
	if pos >= k {
		return kbest
	}
	if len(kbest) < k {
		kbest = append(kbest, 0)
	}
	copy(kbest[pos+1:], kbest[pos:len(kbest)-1])
	kbest[pos] = sample
	return kbest
}
