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
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/thediveo/mountain"
)

// Exporter turns measured mountains into Prometheus metrics, for writing
// them as a node exporter textfile.
type Exporter struct {
	reg        *prometheus.Registry
	bandwidth  *prometheus.GaugeVec
	cycles     *prometheus.GaugeVec
	converged  *prometheus.GaugeVec
	interrupts *prometheus.GaugeVec
	faults     prometheus.Gauge
	clock      prometheus.Gauge
}

// NewExporter returns a new exporter with its own registry.
func NewExporter() *Exporter {
	labels := []string{"size", "stride"}
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		bandwidth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mountain_read_bandwidth_mbps",
			Help: "Read bandwidth in MB/s per working-set size and stride",
		}, labels),
		cycles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mountain_traversal_cycles",
			Help: "Best cycle count of a single traversal per working-set size and stride",
		}, labels),
		converged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mountain_converged",
			Help: "1 if the K best trials agreed within tolerance, 0 otherwise",
		}, labels),
		interrupts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mountain_interrupts",
			Help: "Interrupts delivered to the measurement CPU while measuring",
		}, labels),
		faults: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mountain_faulted_cells",
			Help: "Number of cells without bandwidth due to measurement faults",
		}),
		clock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mountain_clock_mhz",
			Help: "Estimated counter rate in MHz",
		}),
	}
	e.reg.MustRegister(e.bandwidth, e.cycles, e.converged, e.interrupts, e.faults, e.clock)
	return e
}

// Registry returns the exporter's registry.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Observe sets the metrics from the measured table.
func (e *Exporter) Observe(t *mountain.Table, rate float64) {
	e.clock.Set(mountain.MHz(rate))
	faults := 0
	for _, row := range t.Cells {
		for _, cell := range row {
			if cell.Stride == 0 {
				continue
			}
			if cell.Err != nil {
				faults++
				continue
			}
			size, stride := mountain.SizeLabel(cell.Size), strconv.Itoa(cell.Stride)
			e.bandwidth.WithLabelValues(size, stride).Set(cell.Bandwidth)
			e.cycles.WithLabelValues(size, stride).Set(cell.Measurement.Cycles)
			converged := 0.0
			if cell.Measurement.Converged {
				converged = 1
			}
			e.converged.WithLabelValues(size, stride).Set(converged)
			if cell.Interrupts >= 0 {
				e.interrupts.WithLabelValues(size, stride).Set(float64(cell.Interrupts))
			}
		}
	}
	e.faults.Set(float64(faults))
}

// WriteTextfile writes the metrics to the specified file in the Prometheus
// text format.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.reg); err != nil {
		return errors.Wrapf(err, "cannot write metrics to %q", path)
	}
	return nil
}
