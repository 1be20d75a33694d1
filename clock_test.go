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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

// unrated hides the rate of the monotonic counter, so its rate needs
// estimating.
type unrated struct{ Counter }

var _ = Describe("counters and clocks", func() {

	It("provides a monotonic counter", func() {
		c := MonotonicCounter()
		Expect(c.Name()).To(Equal("monotonic"))
		start := c.Start()
		time.Sleep(time.Millisecond)
		Expect(c.Stop()).To(BeNumerically(">", start))
	})

	It("provides a default counter", func() {
		c := DefaultCounter()
		Expect(c).NotTo(BeNil())
		Expect(c.Name()).To(Or(Equal("tsc"), Equal("monotonic")))
	})

	It("reads the time-stamp counter where available", func() {
		c, err := TSCCounter()
		if err != nil {
			Expect(err).To(MatchError(ErrNoCounter))
			Skip("no usable time-stamp counter")
		}
		Expect(c.Name()).To(Equal("tsc"))
		rate := Successful(EstimateRate(c, 10*time.Millisecond))
		Expect(rate).To(BeNumerically(">", 1e6))
	})

	It("knows the monotonic rate without estimating", func() {
		Expect(EstimateRate(MonotonicCounter(), time.Hour)).To(Equal(1e9))
	})

	It("estimates unknown rates", func() {
		rate := Successful(EstimateRate(unrated{MonotonicCounter()}, 20*time.Millisecond))
		Expect(rate).To(BeNumerically("~", 1e9, 0.1e9))
	})

	It("fails without a usable counter", func() {
		Expect(EstimateRate(nil, 0)).Error().To(MatchError(ErrNoCounter))
		Expect(EstimateRate(&scriptedCounter{deltas: []uint64{0}}, time.Millisecond)).Error().To(
			MatchError(ErrNoCounter))
	})

	It("converts rates into MHz", func() {
		Expect(MHz(2.5e9)).To(Equal(2500.0))
	})

})

var _ = Describe("system information", func() {

	It("knows a cache line size", func() {
		info := ProbeSystem(context.Background())
		Expect(info.LineSize()).To(BeNumerically(">=", 16))
		Expect(SystemInfo{}.LineSize()).To(Equal(64))
		Expect(SystemInfo{CacheLine: 128}.LineSize()).To(Equal(128))
	})

	It("finds available memory", func() {
		Expect(ProbeSystem(context.Background()).AvailableMem).To(BeNumerically(">", 0))
	})

})
