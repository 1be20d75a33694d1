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
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("throughput", func() {

	DescribeTable("crediting only touched elements",
		func(size, stride, expected int) {
			Expect(EffectiveBytes(size, stride)).To(Equal(expected))
		},
		Entry(nil, 4096, 1, 4096),
		Entry(nil, 4096, 2, 2048),
		Entry(nil, 4096, 3, 1365),
		Entry(nil, 1<<27, 32, 1<<22),
	)

	It("converts cycles into MB/s", func() {
		Expect(Bandwidth(4096, 1, 1000, 1000)).To(Equal(0.00390625))
		Expect(Bandwidth(1<<20, 1, 1e9, 1e9)).To(Equal(1.0))
		Expect(Bandwidth(1<<20, 4, 1e9, 1e9)).To(Equal(0.25))
	})

	It("rejects nonsense", func() {
		Expect(Bandwidth(4096, 0, 1000, 1000)).Error().To(MatchError(ErrInvalidStride))
		Expect(Bandwidth(4096, 1, 0, 1000)).Error().To(MatchError(ErrNonPositiveCycles))
		Expect(Bandwidth(4096, 1, -1, 1000)).Error().To(MatchError(ErrNonPositiveCycles))
		Expect(Bandwidth(4096, 1, 1000, 0)).Error().To(MatchError(ErrInvalidRate))
	})

	It("never returns negative or non-finite bandwidths", func() {
		for _, size := range []int{1 << 10, 1 << 16, 1 << 27} {
			for _, stride := range []int{1, 3, 31} {
				for _, cycles := range []float64{1, 1e3, 1e12} {
					bw := Successful(Bandwidth(size, stride, cycles, 3e9))
					Expect(bw).To(BeNumerically(">=", 0))
					Expect(math.IsInf(bw, 0) || math.IsNaN(bw)).To(BeFalse())
				}
			}
		}
	})

	It("measures end-to-end with a fixed counter", func() {
		buf := Successful(NewBuffer((1 << 20) * ElemSize))
		defer func() { _ = buf.Close() }()
		timer := Successful(NewTimer(&scriptedCounter{deltas: []uint64{1000}}))
		m := Successful(timer.Measure(buf.Kernel(4096/ElemSize, 1), 1))
		Expect(m.Cycles).To(Equal(1000.0))
		Expect(Bandwidth(4096, 1, m.Cycles, 1000)).To(Equal(0.00390625))
	})

})

var _ = Describe("size labels", func() {

	DescribeTable("labelling working sets",
		func(size int, expected string) {
			Expect(SizeLabel(size)).To(Equal(expected))
		},
		Entry(nil, 1<<10, "1k"),
		Entry(nil, 2<<10, "2k"),
		Entry(nil, 512<<10, "512k"),
		Entry(nil, 1<<20, "1m"),
		Entry(nil, 1536<<10, "1m"),
		Entry(nil, 128<<20, "128m"),
		Entry(nil, 512, "0k"),
	)

})
