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

// Latency returns the average time in nanoseconds per access of a read
// traversal of sizeBytes that touches one element per cache line of
// lineBytes. The traversal is timed using the K-best timer whose counter
// ticks at rate ticks per second.
func Latency(buf *Buffer, timer *Timer, rate float64, sizeBytes, lineBytes int) (float64, error) {
	if !buf.Fits(sizeBytes) || sizeBytes < ElemSize {
		return 0, errors.Wrapf(ErrConfig, "size %d outside buffer capacity %d",
			sizeBytes, buf.Bytes())
	}
	if rate <= 0 {
		return 0, errors.Wrapf(ErrInvalidRate, "%g ticks/s", rate)
	}
	stride := max(lineBytes/ElemSize, 1)
	elems := sizeBytes / ElemSize
	touches := (elems + stride - 1) / stride
	m, err := timer.Measure(buf.Kernel(elems, stride), 1)
	if err != nil {
		return 0, err
	}
	return m.Cycles / rate * 1e9 / float64(touches), nil
}

// EstimateCacheSize estimates the size of the first cache level that the
// working sets starting at startBytes outgrow, by doubling the working set
// until the access latency more than doubles compared to the previous size.
// It then returns the previous size. If the latency never doubles, the
// largest size measured is returned.
func EstimateCacheSize(buf *Buffer, timer *Timer, rate float64, startBytes, maxBytes, lineBytes int) (int, error) {
	if startBytes < ElemSize || startBytes > maxBytes {
		return 0, errors.Wrapf(ErrConfig, "invalid size range %d..%d", startBytes, maxBytes)
	}
	var prev float64
	last := startBytes
	for size := startBytes; size <= maxBytes; size *= 2 {
		latency, err := Latency(buf, timer, rate, size, lineBytes)
		if err != nil {
			return 0, err
		}
		if size > startBytes && latency > 2*prev {
			return size / 2, nil
		}
		prev = latency
		last = size
	}
	return last, nil
}
