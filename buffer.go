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
	"unsafe"

	"github.com/pkg/errors"
)

// ElemSize is the size in bytes of a single working-set buffer element.
const ElemSize = int(unsafe.Sizeof(int32(0)))

// Buffer is the working-set buffer all measurements read from. It is sized
// once when created and never grows; sweeps only ever address prefixes of it.
type Buffer struct {
	elems   []int32
	release func() error
}

// NewBuffer returns a new working-set buffer able to host working sets of up
// to maxBytes, with all its elements already initialized. Initialization
// touches every page, so page faults are paid for here and not inside timed
// trials.
func NewBuffer(maxBytes int) (*Buffer, error) {
	if maxBytes < ElemSize {
		return nil, errors.Wrapf(ErrConfig,
			"buffer of %d bytes cannot hold a single element", maxBytes)
	}
	n := maxBytes / ElemSize
	elems, release := allocElems(n)
	b := &Buffer{elems: elems, release: release}
	b.Initialize(n)
	return b, nil
}

// Initialize sets the first n elements to 1, in linear order. n is clamped to
// the buffer's capacity.
func (b *Buffer) Initialize(n int) {
	n = min(n, len(b.elems))
	for i := 0; i < n; i++ {
		b.elems[i] = 1
	}
}

// Elems returns the number of elements in the buffer.
func (b *Buffer) Elems() int { return len(b.elems) }

// Bytes returns the buffer capacity in bytes.
func (b *Buffer) Bytes() int { return len(b.elems) * ElemSize }

// Fits returns true if a working set of sizeBytes can be hosted by this
// buffer.
func (b *Buffer) Fits(sizeBytes int) bool {
	return sizeBytes >= 0 && sizeBytes/ElemSize <= len(b.elems)
}

// Traverse reads every stride-th element of the first elems elements,
// starting with the first element, and returns the sum of the elements read.
// It reads exactly ⌈elems/stride⌉ elements and never writes to the buffer.
// Strides below 1 read nothing and return 0.
//
// Callers must consume the returned sum, otherwise the compiler is free to
// drop the reads altogether.
func (b *Buffer) Traverse(elems, stride int) int64 {
	return traverse(b.elems[:elems], stride)
}

// TraverseRange works like Traverse, but reads every stride-th element from
// the element range [from, to).
func (b *Buffer) TraverseRange(from, to, stride int) int64 {
	return traverse(b.elems[from:to], stride)
}

func traverse(data []int32, stride int) int64 {
	if stride < 1 {
		return 0
	}
	var acc int64
	for i := 0; i < len(data); i += stride {
		acc += int64(data[i])
	}
	return acc
}

// Kernel returns a traversal function for use with [Timer.Measure]. Binding
// the parameters up front keeps any closure allocation outside timed trials.
func (b *Buffer) Kernel(elems, stride int) func() int64 {
	data := b.elems[:elems]
	return func() int64 {
		return traverse(data, stride)
	}
}

// Close releases the buffer's memory. The buffer must not be used anymore
// afterwards.
func (b *Buffer) Close() error {
	b.elems = nil
	if b.release == nil {
		return nil
	}
	release := b.release
	b.release = nil
	return release()
}
