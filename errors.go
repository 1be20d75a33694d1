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

// Sentinel errors; callers match them using errors.Is, as they usually come
// wrapped with further context.
var (
	// ErrConfig signals a sweep configuration that cannot be measured, such as
	// a working set larger than the buffer. It is raised before any timing.
	ErrConfig = errors.New("invalid mountain configuration")
	// ErrNoCounter signals that there is no usable cycle counter.
	ErrNoCounter = errors.New("cycle counter unavailable")
	// ErrNonPositiveCycles signals a measurement fault where the counter did
	// not advance across a timed trial.
	ErrNonPositiveCycles = errors.New("non-positive cycle count")
	// ErrInvalidStride signals a stride below one element.
	ErrInvalidStride = errors.New("invalid stride")
	// ErrInvalidRate signals a non-positive clock rate.
	ErrInvalidRate = errors.New("invalid clock rate")
)
