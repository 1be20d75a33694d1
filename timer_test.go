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
	"math/rand/v2"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("K-best timer", func() {

	It("needs a counter", func() {
		Expect(NewTimer(nil)).Error().To(MatchError(ErrNoCounter))
	})

	It("sanitizes its parameters", func() {
		t := Successful(NewTimer(&scriptedCounter{deltas: []uint64{1}},
			WithK(0), WithMaxTrials(-5), WithEpsilon(-1)))
		Expect(t.k).To(Equal(1))
		Expect(t.maxTrials).To(Equal(1))
		Expect(t.epsilon).To(BeZero())

		t = Successful(NewTimer(&scriptedCounter{deltas: []uint64{1}},
			WithK(5), WithMaxTrials(3)))
		Expect(t.maxTrials).To(Equal(5))
	})

	It("defaults to K=2, 1% tolerance, and 20 trials", func() {
		t := Successful(NewTimer(MonotonicCounter()))
		Expect(t.k).To(Equal(DefaultK))
		Expect(t.epsilon).To(Equal(DefaultEpsilon))
		Expect(t.maxTrials).To(Equal(DefaultMaxTrials))
		Expect(t.Counter().Name()).To(Equal("monotonic"))
	})

	It("converges as soon as the K best trials agree", func() {
		c := &scriptedCounter{deltas: []uint64{100, 50, 200, 50, 10}}
		t := Successful(NewTimer(c, WithK(2), WithEpsilon(0.01)))
		m := Successful(t.Measure(func() int64 { return 0 }, 1))
		Expect(m.Converged).To(BeTrue())
		Expect(m.Trials).To(Equal(4))
		Expect(m.Cycles).To(Equal(50.0))
		Expect(m.Best).To(Equal([]float64{100, 50, 50, 50}))
	})

	It("accepts trials within the tolerance", func() {
		c := &scriptedCounter{deltas: []uint64{1000, 1010}}
		t := Successful(NewTimer(c, WithK(2), WithEpsilon(0.01)))
		m := Successful(t.Measure(func() int64 { return 0 }, 1))
		Expect(m.Converged).To(BeTrue())
		Expect(m.Trials).To(Equal(2))
		Expect(m.Cycles).To(Equal(1000.0))
	})

	It("returns the minimum when not converging within its budget", func() {
		c := &scriptedCounter{deltas: []uint64{300, 100, 200, 400, 500, 600}}
		t := Successful(NewTimer(c, WithK(2), WithMaxTrials(5)))
		m := Successful(t.Measure(func() int64 { return 0 }, 1))
		Expect(m.Converged).To(BeFalse())
		Expect(m.Trials).To(Equal(5))
		Expect(m.Cycles).To(Equal(100.0))
		Expect(c.stops).To(Equal(5))
	})

	It("reports a non-increasing minimum", func() {
		r := rand.New(rand.NewPCG(42, 0))
		deltas := make([]uint64, DefaultMaxTrials)
		for idx := range deltas {
			deltas[idx] = 1000 + r.Uint64N(1_000_000)
		}
		t := Successful(NewTimer(&scriptedCounter{deltas: deltas},
			WithK(3), WithEpsilon(0)))
		m := Successful(t.Measure(func() int64 { return 0 }, 1))
		Expect(m.Best).To(HaveLen(m.Trials))
		Expect(slices.IsSortedFunc(m.Best, func(a, b float64) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			}
			return 0
		})).To(BeTrue(), "minimum-so-far increased")
		Expect(m.Best[len(m.Best)-1]).To(Equal(m.Cycles))
		Expect(m.Cycles).To(Equal(float64(slices.Min(deltas[:m.Trials]))))
	})

	It("warms up untimed and divides by the repetitions", func() {
		c := &scriptedCounter{deltas: []uint64{300}}
		t := Successful(NewTimer(c))
		calls := 0
		m := Successful(t.Measure(func() int64 { calls++; return 2 }, 3))
		Expect(m.Cycles).To(Equal(100.0))
		Expect(m.Trials).To(Equal(2))
		Expect(calls).To(Equal(1 + 2*3))
		Expect(t.Sink()).To(Equal(int64(2 * calls)))
	})

	It("fails when the counter doesn't advance", func() {
		c := &scriptedCounter{deltas: []uint64{0}}
		t := Successful(NewTimer(c))
		m, err := t.Measure(func() int64 { return 0 }, 1)
		Expect(err).To(MatchError(ErrNonPositiveCycles))
		Expect(m.Cycles).To(BeZero())
	})

	It("measures a real traversal", func() {
		buf := Successful(NewBuffer(64 << 10))
		defer func() { _ = buf.Close() }()
		t := Successful(NewTimer(MonotonicCounter()))
		m := Successful(t.Measure(buf.Kernel(buf.Elems(), 1), 1))
		Expect(m.Cycles).To(BeNumerically(">", 0))
		Expect(m.Trials).To(BeNumerically("<=", DefaultMaxTrials))
		Expect(t.Sink()).To(Equal(int64(buf.Elems() * (1 + m.Trials))))
	})

	It("repeats measurements within a bounded tolerance", func() {
		buf := Successful(NewBuffer(256 << 10))
		defer func() { _ = buf.Close() }()
		t := Successful(NewTimer(MonotonicCounter()))
		kernel := buf.Kernel(buf.Elems(), 1)
		first := Successful(t.Measure(kernel, 4))
		second := Successful(t.Measure(kernel, 4))
		Expect(second.Cycles).To(BeNumerically("~", first.Cycles, first.Cycles*0.5))
	})

	DescribeTable("keeping the K best samples",
		func(kbest []uint64, sample uint64, k int, expected []uint64) {
			Expect(insertKBest(kbest, sample, k)).To(Equal(expected))
		},
		Entry("into empty", []uint64{}, uint64(5), 2, []uint64{5}),
		Entry("ahead", []uint64{5}, uint64(3), 2, []uint64{3, 5}),
		Entry("behind", []uint64{5}, uint64(7), 2, []uint64{5, 7}),
		Entry("displacing the largest", []uint64{3, 5}, uint64(4), 2, []uint64{3, 4}),
		Entry("new minimum", []uint64{3, 5}, uint64(1), 2, []uint64{1, 3}),
		Entry("too large", []uint64{3, 5}, uint64(6), 2, []uint64{3, 5}),
		Entry("duplicate", []uint64{3, 5}, uint64(3), 2, []uint64{3, 3}),
		Entry("K=1", []uint64{3}, uint64(2), 1, []uint64{2}),
	)

})
