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

//go:build !linux

package mountain

import (
	"runtime"

	"github.com/pkg/errors"
)

// PinToCPU is not supported on this platform.
func PinToCPU(cpu int) (unpin func(), err error) {
	return nil, errors.Errorf("pinning to CPU %d not supported on %s", cpu, runtime.GOOS)
}

// AllowedCPUs is not supported on this platform.
func AllowedCPUs() ([]int, error) {
	return nil, errors.Errorf("CPU affinity not supported on %s", runtime.GOOS)
}
