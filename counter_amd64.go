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
	"github.com/dterei/gotsc"
	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
)

// TSCCounter returns a counter reading the CPU's time-stamp counter, with the
// cost of reading the counter itself compensated for. It requires RDTSCP
// support.
func TSCCounter() (Counter, error) {
	if !cpuid.CPU.Has(cpuid.RDTSCP) {
		return nil, errors.Wrap(ErrNoCounter, "CPU lacks RDTSCP")
	}
	return &tsc{overhead: gotsc.TSCOverhead()}, nil
}

type tsc struct {
	overhead uint64
}

func (t *tsc) Start() uint64 { return gotsc.BenchStart() }

// Stop may return less than a preceding Start when the timed code was shorter
// than the counter overhead; the timer treats this as no progress.
func (t *tsc) Stop() uint64 { return gotsc.BenchEnd() - t.overhead }

func (t *tsc) Name() string { return "tsc" }
