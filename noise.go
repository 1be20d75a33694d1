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
	"bufio"
	"bytes"
	"io"
	"iter"

	"github.com/thediveo/faf"
)

const procInterrupts = "/proc/interrupts"

// interruptLine holds the per-CPU interrupt counters from a single line of
// “/proc/interrupts”. Name and Counters are only valid during the yield call
// producing this line and get reused afterwards.
type interruptLine struct {
	Name     []byte   // IRQ number or architecture-specific name, such as “LOC”
	Counters []uint64 // per-CPU counters
	CPUs     []uint   // numbers of the CPUs currently online
}

// interruptLines returns an iterator over the lines of the “/proc/interrupts”
// formatted text produced by r, yielding the per-CPU counters of numbered as
// well as architecture-specific interrupts. Lines without per-CPU counters,
// such as “ERR” and “MIS”, are skipped.
func interruptLines(r io.Reader) iter.Seq[interruptLine] {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return noLines
	}
	cpus := onlineCPUs(sc.Bytes())
	if len(cpus) == 0 {
		return noLines
	}
	return func(yield func(interruptLine) bool) {
		line := interruptLine{
			CPUs:     cpus,
			Counters: make([]uint64, len(cpus)),
		}
	nextLine:
		for sc.Scan() {
			sl := newScanline(sc.Bytes())
			if sl.SkipSpace() {
				continue
			}
			name, ok := sl.Token(':')
			if !ok || len(name) == 0 {
				continue
			}
			sl.SkipText(":")
			for idx := range line.Counters {
				if sl.SkipSpace() {
					continue nextLine
				}
				count, ok := sl.Uint64()
				if !ok {
					continue nextLine
				}
				line.Counters[idx] = count
			}
			line.Name = name
			if !yield(line) {
				return
			}
		}
	}
}

func noLines(func(interruptLine) bool) {}

// onlineCPUs returns the numbers of the CPUs online according to the header
// line of “/proc/interrupts”, or nil if the header line is malformed.
func onlineCPUs(b []byte) []uint {
	sl := newScanline(b)
	num := sl.NumFields()
	if num == 0 {
		return nil
	}
	cpus := make([]uint, 0, num)
	for !sl.SkipSpace() {
		if !sl.SkipText("CPU") {
			return nil
		}
		cpu, ok := sl.Uint64()
		if !ok {
			return nil
		}
		cpus = append(cpus, uint(cpu))
	}
	if len(cpus) != num {
		return nil
	}
	return cpus
}

// interruptsOn returns the total of all interrupts delivered to the specified
// CPU so far, based on the “/proc/interrupts” formatted text produced by r.
// It returns false if the CPU is not listed.
func interruptsOn(r io.Reader, cpu uint) (total uint64, ok bool) {
	col := -1
	for line := range interruptLines(r) {
		if col < 0 {
			for idx, num := range line.CPUs {
				if num == cpu {
					col = idx
					break
				}
			}
			if col < 0 {
				return 0, false
			}
		}
		total += line.Counters[col]
	}
	return total, col >= 0
}

// NoiseProbe counts the interrupts delivered to a single CPU. Interrupts
// are the main noise source the K-best timer has to reject, so knowing how
// many of them hit the measurement CPU during a cell helps judging a cell's
// quality.
//
// A NoiseProbe is not safe for concurrent use.
type NoiseProbe struct {
	cpu  uint
	path string
	buf  []byte
}

// NewNoiseProbe returns a new probe for interrupts delivered to the CPU with
// the specified number.
func NewNoiseProbe(cpu uint) *NoiseProbe {
	return &NoiseProbe{cpu: cpu, path: procInterrupts}
}

// Count returns the total number of interrupts delivered to the probe's CPU
// since boot, and whether this number is known. Count reuses its read buffer,
// so repeated probing does not churn the heap.
func (p *NoiseProbe) Count() (uint64, bool) {
	contents, ok := faf.ReadFile(p.path, p.buf)
	if !ok {
		return 0, false
	}
	p.buf = contents
	return interruptsOn(bytes.NewReader(contents), p.cpu)
}
