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

import "github.com/pkg/errors"

// MiB is the number of bytes per megabyte as used for bandwidths.
const MiB = 1 << 20

// EffectiveBytes returns the number of bytes a traversal of sizeBytes with
// the specified stride is credited with. Only touched elements count, not the
// full span.
func EffectiveBytes(sizeBytes, stride int) int {
	return sizeBytes / stride
}

// Bandwidth converts the cycles spent on a traversal of sizeBytes with the
// specified stride into MB/s, given the counter rate in ticks per second.
func Bandwidth(sizeBytes, stride int, cycles, rate float64) (float64, error) {
	if stride < 1 {
		return 0, errors.Wrapf(ErrInvalidStride, "stride %d", stride)
	}
	if cycles <= 0 {
		return 0, errors.Wrapf(ErrNonPositiveCycles, "%g cycles", cycles)
	}
	if rate <= 0 {
		return 0, errors.Wrapf(ErrInvalidRate, "%g ticks/s", rate)
	}
	elapsed := cycles / rate
	return float64(EffectiveBytes(sizeBytes, stride)) / elapsed / MiB, nil
}
