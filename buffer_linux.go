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

	"golang.org/x/sys/unix"
)

// allocElems maps anonymous, pre-populated memory for n elements. If mapping
// fails it falls back to memory from the Go heap.
func allocElems(n int) ([]int32, func() error) {
	mem, err := unix.Mmap(-1, 0, n*ElemSize,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_POPULATE)
	if err != nil || len(mem) == 0 {
		return make([]int32, n), nil
	}
	elems := unsafe.Slice((*int32)(unsafe.Pointer(&mem[0])), n)
	return elems, func() error { return unix.Munmap(mem) }
}
