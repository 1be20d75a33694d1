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

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/thediveo/mountain"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("reporting mountains", func() {

	When("rendering tables", func() {

		It("renders cells", func() {
			Expect(CellText(mountain.Cell{Stride: 1, Bandwidth: 41.5})).To(Equal("42"))
			Expect(CellText(mountain.Cell{Stride: 1, Err: mountain.ErrInvalidRate})).To(Equal(NotAvailable))
			Expect(CellText(mountain.Cell{})).To(BeEmpty())
		})

		It("renders the mountain", func() {
			var out bytes.Buffer
			WriteTable(&out, testTable())
			lines := []string{}
			for _, line := range strings.Split(out.String(), "\n") {
				if strings.TrimSpace(line) != "" {
					lines = append(lines, line)
				}
			}
			Expect(lines).To(HaveLen(3))
			Expect(strings.Fields(lines[0])).To(HaveExactElements("s1", "s2"))
			Expect(strings.Fields(lines[1])).To(HaveExactElements("64k", "1234", "617"))
			Expect(strings.Fields(lines[2])).To(HaveExactElements("32k", "4322", "n/a"))
		})

		It("introduces the mountain", func() {
			var out bytes.Buffer
			WritePreamble(&out, 2.5e9, "tsc")
			Expect(out.String()).To(Equal(
				"Clock frequency is approx. 2500.0 MHz (tsc counter)\nMemory mountain (MB/sec)\n"))
		})

	})

	It("writes JSON with null bandwidths for faulted cells", func() {
		var out bytes.Buffer
		Expect(WriteJSON(&out, testTable(), 3e9, "monotonic")).To(Succeed())
		Expect(out.String()).To(ContainSubstring(`"mbps": null`))

		var doc Document
		Expect(json.Unmarshal(out.Bytes(), &doc)).To(Succeed())
		Expect(doc.ClockMHz).To(Equal(3000.0))
		Expect(doc.Cells).To(HaveLen(4))
		Expect(doc.Cells[3].Error).To(ContainSubstring("ouch"))
		Expect(doc.Cells[0].MBps).To(HaveValue(Equal(1234.4)))
	})

	It("leaves out cells never measured", func() {
		t := testTable()
		t.Cells[1][1] = mountain.Cell{}
		Expect(NewDocument(t, 1e9, "monotonic").Cells).To(HaveLen(3))
	})

	It("exports metrics", func() {
		e := NewExporter()
		e.Observe(testTable(), 3e9)
		Expect(testutil.ToFloat64(e.bandwidth.WithLabelValues("64k", "1"))).To(Equal(1234.4))
		Expect(testutil.ToFloat64(e.converged.WithLabelValues("32k", "1"))).To(Equal(1.0))
		Expect(testutil.ToFloat64(e.interrupts.WithLabelValues("64k", "2"))).To(Equal(3.0))
		Expect(testutil.ToFloat64(e.faults)).To(Equal(1.0))
		Expect(testutil.ToFloat64(e.clock)).To(Equal(3000.0))
		Expect(testutil.CollectAndCount(e.bandwidth)).To(Equal(3))

		path := filepath.Join(GinkgoT().TempDir(), "mountain.prom")
		Expect(e.WriteTextfile(path)).To(Succeed())
		Expect(string(Successful(os.ReadFile(path)))).To(
			ContainSubstring(`mountain_read_bandwidth_mbps{size="32k",stride="1"} 4321.6`))
	})

	It("plots the mountain", func() {
		p := Successful(NewPlot(testTable()))
		Expect(p.X.Tick.Marker.Ticks(0, 0)).To(HaveLen(2))

		path := filepath.Join(GinkgoT().TempDir(), "mountain.png")
		Expect(SavePlot(testTable(), path)).To(Succeed())
		Expect(path).To(BeARegularFile())
	})

	It("reports failing to save a plot", func() {
		Expect(SavePlot(testTable(), filepath.Join(GinkgoT().TempDir(), "mountain.xyz"))).
			NotTo(Succeed())
	})

})
