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

import "time"

// Counter is a monotonic, high-resolution tick source used to time trials.
// Start is read immediately before and Stop immediately after the timed code;
// implementations may use different serialization for both ends.
type Counter interface {
	Start() uint64
	Stop() uint64
	Name() string
}

// ratedCounter is implemented by counters that know their tick rate exactly,
// so there is no need to estimate it.
type ratedCounter interface {
	Rate() float64
}

// DefaultCounter returns the time-stamp counter if available on this CPU,
// otherwise the monotonic nanosecond clock.
func DefaultCounter() Counter {
	if c, err := TSCCounter(); err == nil {
		return c
	}
	return MonotonicCounter()
}

// MonotonicCounter returns a counter ticking in nanoseconds of the monotonic
// clock.
func MonotonicCounter() Counter {
	return &monotonic{epoch: time.Now()}
}

type monotonic struct {
	epoch time.Time
}

func (m *monotonic) Start() uint64 { return uint64(time.Since(m.epoch)) }
func (m *monotonic) Stop() uint64  { return uint64(time.Since(m.epoch)) }
func (m *monotonic) Name() string  { return "monotonic" }
func (m *monotonic) Rate() float64 { return float64(time.Second) }
