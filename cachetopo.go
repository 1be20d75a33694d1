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
	"cmp"
	"iter"
	"slices"
	"strconv"
	"sync"

	"github.com/klauspost/cpuid/v2"
	"github.com/thediveo/faf"
)

// Cache describes a single CPU cache as seen by one or more CPUs.
type Cache struct {
	Level    int      // 1, 2, 3, ...
	Type     string   // “Data”, “Instruction”, or “Unified”
	Size     int      // in bytes
	LineSize int      // coherency line size in bytes, 0 if unknown
	Ways     int      // ways of associativity, 0 if unknown
	CPUs     CPURange // CPUs sharing this cache, nil if unknown
}

// CPURange is a list of CPU [from...to] ranges. CPU numbers start from zero.
type CPURange [][2]uint

// String renders the ranges in kernel CPU list format, such as “0-3,8”.
func (r CPURange) String() string {
	b := []byte{}
	for idx, fromto := range r {
		if idx > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendUint(b, uint64(fromto[0]), 10)
		if fromto[1] != fromto[0] {
			b = append(b, '-')
			b = strconv.AppendUint(b, uint64(fromto[1]), 10)
		}
	}
	return string(b)
}

const (
	sysCPUPath = "/sys/devices/system/cpu/"
	cacheDir   = "/cache/"

	levelNode    = "/level"
	typeNode     = "/type"
	sizeNode     = "/size"
	lineSizeNode = "/coherency_line_size"
	waysNode     = "/ways_of_associativity"
	sharedNode   = "/shared_cpu_list"
)

const topoWorkers = 8

// AllCaches returns an iterator over the caches of all CPUs in the system, as
// published in “/sys/devices/system/cpu/cpu#/cache/index#/”. Caches shared
// between CPUs are produced once per CPU; see [DistinctCaches].
func AllCaches() iter.Seq[Cache] {
	return allCaches("")
}

// allCaches loops over the caches of the CPUs found below the specified root.
//
// The many small pseudo files per cache get read by concurrent workers, one
// CPU directory at a time per worker, so that the kernel can render them on
// multiple CPUs simultaneously.
func allCaches(root string) iter.Seq[Cache] {
	return func(yield func(Cache) bool) {
		// Closing done tells the workers and the feeder to wind down early,
		// when the yield function doesn't want any more caches.
		done := make(chan struct{})
		// Job queue with the CPU directory names, closed by the feeder after
		// the last CPU directory.
		cpuch := make(chan string, topoWorkers)
		// Multi-producer queue of caches found; closed only after all workers
		// have terminated.
		cachech := make(chan Cache, topoWorkers)
		var wg sync.WaitGroup

		readCaches := func() {
			defer wg.Done()
			var contents []byte
			for {
				var cpuname string
				var ok bool
				select {
				case <-done:
					return
				case cpuname, ok = <-cpuch:
					if !ok {
						return
					}
				}
				cpupath := root + sysCPUPath + cpuname + cacheDir
				for entry := range faf.ReadDir(cpupath) {
					if !entry.IsDir() || !isIndexName([]byte(entry.Name)) {
						continue
					}
					var cache Cache
					cache, contents, ok = readCache(cpupath+string(entry.Name), contents)
					if !ok {
						continue
					}
					select {
					case <-done:
						return
					case cachech <- cache:
					}
				}
			}
		}
		wg.Add(topoWorkers)
		for i := 0; i < topoWorkers; i++ {
			go readCaches()
		}
		go func() {
			defer close(cpuch)
			for entry := range faf.ReadDir(root + sysCPUPath) {
				if !entry.IsDir() || !isCPUName([]byte(entry.Name)) {
					continue
				}
				select {
				case <-done:
					return
				case cpuch <- string(entry.Name):
				}
			}
		}()
		go func() {
			wg.Wait()
			close(cachech)
		}()
		for cache := range cachech {
			if !yield(cache) {
				close(done)
				return
			}
		}
	}
}

// readCache reads the details of the cache in the specified index directory,
// reusing the contents buffer, and returns the (possibly reallocated) buffer
// for further reuse.
func readCache(indexpath string, contents []byte) (Cache, []byte, bool) {
	var cache Cache
	var ok bool

	contents, ok = faf.ReadFile(indexpath+levelNode, contents)
	if !ok {
		return cache, contents, false
	}
	level, ok := faf.ParseUint(trimEOL(contents))
	if !ok {
		return cache, contents, false
	}
	cache.Level = int(level)

	contents, ok = faf.ReadFile(indexpath+typeNode, contents)
	if !ok {
		return cache, contents, false
	}
	cache.Type = string(trimEOL(contents))

	contents, ok = faf.ReadFile(indexpath+sizeNode, contents)
	if !ok {
		return cache, contents, false
	}
	cache.Size, ok = parseCacheSize(trimEOL(contents))
	if !ok {
		return cache, contents, false
	}

	// The remaining details are optional, as not all architectures publish
	// them.
	if contents, ok = faf.ReadFile(indexpath+lineSizeNode, contents); ok {
		if linesize, ok := faf.ParseUint(trimEOL(contents)); ok {
			cache.LineSize = int(linesize)
		}
	}
	if contents, ok = faf.ReadFile(indexpath+waysNode, contents); ok {
		if ways, ok := faf.ParseUint(trimEOL(contents)); ok {
			cache.Ways = int(ways)
		}
	}
	if contents, ok = faf.ReadFile(indexpath+sharedNode, contents); ok {
		cache.CPUs = cpuRange(trimEOL(contents))
	}
	return cache, contents, true
}

func trimEOL(b []byte) []byte {
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return b[:len(b)-1]
	}
	return b
}

// isCPUName returns true for “cpu#” directory names, but not for “cpufreq”,
// “cpuidle”, et cetera.
func isCPUName(name []byte) bool {
	return hasNumberSuffix(name, "cpu")
}

// isIndexName returns true for “index#” directory names.
func isIndexName(name []byte) bool {
	return hasNumberSuffix(name, "index")
}

func hasNumberSuffix(name []byte, prefix string) bool {
	if len(name) <= len(prefix) || string(name[:len(prefix)]) != prefix {
		return false
	}
	_, ok := faf.ParseUint(name[len(prefix):])
	return ok
}

// parseCacheSize parses sizes such as “32K” or “16M” into bytes.
func parseCacheSize(b []byte) (int, bool) {
	sl := newScanline(b)
	num, ok := sl.Uint64()
	if !ok {
		return 0, false
	}
	switch {
	case sl.EOL():
		return int(num), true
	case sl.SkipText("K"):
		num <<= 10
	case sl.SkipText("M"):
		num <<= 20
	case sl.SkipText("G"):
		num <<= 30
	default:
		return 0, false
	}
	return int(num), sl.EOL()
}

// cpuRange returns the CPURange from the given CPU list in kernel format,
// such as “0-3,8,10-11”. Parsing stops at the first malformed element,
// returning the ranges parsed so far.
func cpuRange(b []byte) CPURange {
	bstr := faf.NewBytestring(b)
	cpus := CPURange{}
	for !bstr.EOL() {
		from, ok := bstr.Uint64()
		if !ok {
			break
		}
		if bstr.EOL() {
			cpus = append(cpus, [2]uint{uint(from), uint(from)})
			break
		}
		ch, _ := bstr.Next()
		if ch == ',' {
			cpus = append(cpus, [2]uint{uint(from), uint(from)})
			continue
		}
		if ch != '-' {
			break
		}
		to, ok := bstr.Uint64()
		if !ok {
			break
		}
		cpus = append(cpus, [2]uint{uint(from), uint(to)})
		if bstr.EOL() {
			break
		}
		if ch, _ := bstr.Next(); ch != ',' {
			break
		}
	}
	return cpus
}

// DistinctCaches collapses the caches produced by the iterator into the set
// of distinct caches, ordered by level and type. Caches are identical when
// they have the same level, type, and sharing CPUs.
func DistinctCaches(caches iter.Seq[Cache]) []Cache {
	type key struct {
		level int
		typ   string
		cpus  string
	}
	seen := map[key]struct{}{}
	distinct := []Cache{}
	for cache := range caches {
		k := key{level: cache.Level, typ: cache.Type, cpus: cache.CPUs.String()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		distinct = append(distinct, cache)
	}
	slices.SortStableFunc(distinct, func(a, b Cache) int {
		return cmp.Or(
			cmp.Compare(a.Level, b.Level),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.CPUs.String(), b.CPUs.String()))
	})
	return distinct
}

// CPUIDCaches returns the caches as reported by the CPUID instruction, for
// when sysfs isn't available. Unknown cache levels are left out.
func CPUIDCaches() []Cache {
	caches := []Cache{}
	add := func(level int, typ string, size int) {
		if size <= 0 {
			return
		}
		caches = append(caches, Cache{
			Level:    level,
			Type:     typ,
			Size:     size,
			LineSize: max(cpuid.CPU.CacheLine, 0),
		})
	}
	add(1, "Data", cpuid.CPU.Cache.L1D)
	add(1, "Instruction", cpuid.CPU.Cache.L1I)
	add(2, "Unified", cpuid.CPU.Cache.L2)
	add(3, "Unified", cpuid.CPU.Cache.L3)
	return caches
}
