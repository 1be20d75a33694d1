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
	"time"

	"github.com/pkg/errors"
)

// DefaultSettle is the wall-clock window used for estimating a counter's rate.
const DefaultSettle = 100 * time.Millisecond

const rateSamples = 3

// EstimateRate returns the rate of the specified counter in ticks per second.
// Counters knowing their rate answer immediately; otherwise the counter ticks
// elapsing during a wall-clock window of settle length are related to the
// window, taking the median of a few such windows.
func EstimateRate(counter Counter, settle time.Duration) (float64, error) {
	if counter == nil {
		return 0, errors.Wrap(ErrNoCounter, "cannot estimate rate")
	}
	if rc, ok := counter.(ratedCounter); ok {
		return rc.Rate(), nil
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	rates := make([]float64, 0, rateSamples)
	for i := 0; i < rateSamples; i++ {
		wall := time.Now()
		start := counter.Start()
		time.Sleep(settle)
		stop := counter.Stop()
		elapsed := time.Since(wall)
		if stop <= start || elapsed <= 0 {
			continue
		}
		rates = append(rates, float64(stop-start)/elapsed.Seconds())
	}
	if len(rates) == 0 {
		return 0, errors.Wrapf(ErrNoCounter, "%s counter did not advance", counter.Name())
	}
	slices.Sort(rates)
	return rates[len(rates)/2], nil
}

// MHz converts a rate in ticks per second into MHz.
func MHz(rate float64) float64 { return rate / 1e6 }
