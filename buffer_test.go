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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("working-set buffer", func() {

	It("rejects buffers too small for a single element", func() {
		Expect(NewBuffer(0)).Error().To(MatchError(ErrConfig))
		Expect(NewBuffer(ElemSize - 1)).Error().To(MatchError(ErrConfig))
	})

	It("allocates and initializes all elements", func() {
		buf := Successful(NewBuffer(64 << 10))
		defer func() { Expect(buf.Close()).To(Succeed()) }()
		Expect(buf.Elems()).To(Equal((64 << 10) / ElemSize))
		Expect(buf.Bytes()).To(Equal(64 << 10))
		Expect(buf.elems).To(HaveEach(Equal(int32(1))))
	})

	It("knows which working sets fit", func() {
		buf := Successful(NewBuffer(4096))
		defer func() { _ = buf.Close() }()
		Expect(buf.Fits(0)).To(BeTrue())
		Expect(buf.Fits(4096)).To(BeTrue())
		Expect(buf.Fits(4096 + ElemSize)).To(BeFalse())
		Expect(buf.Fits(-1)).To(BeFalse())
	})

	It("clamps initialization to its capacity", func() {
		buf := Successful(NewBuffer(64))
		defer func() { _ = buf.Close() }()
		Expect(func() { buf.Initialize(1000) }).NotTo(Panic())
	})

	It("can be closed twice", func() {
		buf := Successful(NewBuffer(4096))
		Expect(buf.Close()).To(Succeed())
		Expect(buf.Close()).To(Succeed())
		Expect(buf.Elems()).To(BeZero())
	})

	When("traversing", func() {

		var buf *Buffer

		BeforeEach(func() {
			buf = Successful(NewBuffer(64 << 10))
			DeferCleanup(func() { Expect(buf.Close()).To(Succeed()) })
		})

		DescribeTable("reads exactly ⌈elems/stride⌉ elements",
			func(elems, stride int, touched int64) {
				// all elements are 1, so the sum counts the reads.
				Expect(buf.Traverse(elems, stride)).To(Equal(touched))
				Expect(buf.Kernel(elems, stride)()).To(Equal(touched))
			},
			Entry("nothing", 0, 1, int64(0)),
			Entry("single element", 1, 1, int64(1)),
			Entry("stride 1", 1024, 1, int64(1024)),
			Entry("even division", 1024, 4, int64(256)),
			Entry("remainder", 1025, 4, int64(257)),
			Entry("stride exceeding the set", 3, 8, int64(1)),
			Entry("stride 31", 256, 31, int64(9)),
		)

		It("sums the elements read", func() {
			for idx := range buf.elems[:8] {
				buf.elems[idx] = int32(idx)
			}
			Expect(buf.Traverse(8, 1)).To(Equal(int64(0 + 1 + 2 + 3 + 4 + 5 + 6 + 7)))
			Expect(buf.Traverse(8, 3)).To(Equal(int64(0 + 3 + 6)))
		})

		It("never writes", func() {
			before := append([]int32(nil), buf.elems...)
			for _, stride := range []int{1, 2, 7, 32} {
				_ = buf.Traverse(buf.Elems(), stride)
				_ = buf.TraverseRange(100, 200, stride)
			}
			Expect(buf.elems).To(Equal(before))
		})

		It("reads nothing for strides below 1", func() {
			for _, stride := range []int{0, -1, -32} {
				Expect(buf.Traverse(buf.Elems(), stride)).To(BeZero())
				Expect(buf.TraverseRange(0, 100, stride)).To(BeZero())
				Expect(buf.Kernel(buf.Elems(), stride)()).To(BeZero())
			}
		})

		It("traverses ranges", func() {
			Expect(buf.TraverseRange(16, 32, 1)).To(Equal(int64(16)))
			Expect(buf.TraverseRange(16, 32, 5)).To(Equal(int64(4)))
			Expect(buf.TraverseRange(16, 16, 5)).To(BeZero())
		})

	})

})
