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

	"github.com/klauspost/cpuid/v2"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemInfo describes the machine being measured, as far as the CPU and the
// OS are willing to tell. Zero values mean unknown.
type SystemInfo struct {
	Brand        string
	LogicalCores int
	NominalHz    int64   // base frequency as reported by CPUID
	ReportedMHz  float64 // frequency as reported by the OS
	CacheLine    int
	L1D          int
	L2           int
	L3           int
	AvailableMem uint64
}

// ProbeSystem gathers the [SystemInfo] for this machine.
func ProbeSystem(ctx context.Context) SystemInfo {
	info := SystemInfo{
		Brand:        cpuid.CPU.BrandName,
		LogicalCores: cpuid.CPU.LogicalCores,
		NominalHz:    cpuid.CPU.Hz,
		CacheLine:    cpuid.CPU.CacheLine,
		L1D:          max(cpuid.CPU.Cache.L1D, 0),
		L2:           max(cpuid.CPU.Cache.L2, 0),
		L3:           max(cpuid.CPU.Cache.L3, 0),
	}
	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		info.ReportedMHz = infos[0].Mhz
		if info.Brand == "" {
			info.Brand = infos[0].ModelName
		}
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.AvailableMem = vm.Available
	}
	return info
}

// LineSize returns the cache line size, defaulting to 64 bytes when unknown.
func (s SystemInfo) LineSize() int {
	if s.CacheLine > 0 {
		return s.CacheLine
	}
	return 64
}
