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

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thediveo/mountain"
	"github.com/thediveo/mountain/report"
)

// options holds the command line flag values of the mountain commands.
type options struct {
	logLevel string
	counter  string
	settle   time.Duration
	cpu      int

	minSize    string
	maxSize    string
	maxStride  int
	strideStep int
	geometric  bool
	repeat     int

	k         int
	epsilon   float64
	maxTrials int

	aggregate int
	noise     bool

	json     bool
	plot     string
	textfile string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "mountain",
		Short: "measure the memory mountain of this machine",
		Long: `mountain measures the read bandwidth across a grid of working-set sizes
and strides, revealing cache sizes and the bandwidth cliffs between cache
levels and main memory.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMountain(cmd, opts)
		},
	}

	def := mountain.DefaultSweepConfig()
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	pf.StringVar(&opts.counter, "counter", "auto", "cycle counter: auto, tsc, monotonic")
	pf.DurationVar(&opts.settle, "settle", mountain.DefaultSettle, "wall-clock window for estimating the counter rate")
	pf.IntVar(&opts.cpu, "cpu", -1, "pin measurements to this CPU; -1 to not pin")
	pf.IntVar(&opts.k, "k", mountain.DefaultK, "number of best trials that need to agree")
	pf.Float64Var(&opts.epsilon, "epsilon", mountain.DefaultEpsilon, "relative tolerance of the best trials")
	pf.IntVar(&opts.maxTrials, "trials", mountain.DefaultMaxTrials, "maximum number of trials per measurement")
	pf.StringVar(&opts.maxSize, "max-size", humanize.IBytes(uint64(def.MaxBytes)), "largest working set")

	f := cmd.Flags()
	f.StringVar(&opts.minSize, "min-size", humanize.IBytes(uint64(def.MinBytes)), "smallest working set")
	f.IntVar(&opts.maxStride, "max-stride", def.MaxStride, "largest stride, in elements")
	f.IntVar(&opts.strideStep, "stride-step", def.StrideStep, "stride increment")
	f.BoolVar(&opts.geometric, "geometric", false, "double strides instead of incrementing them")
	f.IntVar(&opts.repeat, "repeat", def.Repeat, "kernel invocations per timed trial")
	f.IntVar(&opts.aggregate, "aggregate", 0, "measure aggregate bandwidth using this many parallel workers instead")
	f.BoolVar(&opts.noise, "noise", true, "count interrupts on the pinned CPU per cell")
	f.BoolVar(&opts.json, "json", false, "write the mountain as JSON instead of a table")
	f.StringVar(&opts.plot, "plot", "", "also plot the mountain into this image file")
	f.StringVar(&opts.textfile, "metrics-textfile", "", "also write the mountain as Prometheus metrics into this file")

	cmd.AddCommand(
		newTopologyCommand(opts),
		newCacheSizeCommand(opts),
		newStorageCommand(opts),
	)
	return cmd
}

// newLogger returns the logger for the specified level, logging to w.
func newLogger(w io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "invalid log level")
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(lvl)
	return log, nil
}

// parseSize parses a human-readable byte size, such as “128MiB” or “1k”.
func parseSize(flag, value string) (int, error) {
	size, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, errors.Wrapf(mountain.ErrConfig, "invalid --%s %q", flag, value)
	}
	return int(size), nil
}

// newCounter returns the counter selected by name.
func newCounter(name string) (mountain.Counter, error) {
	switch name {
	case "auto":
		return mountain.DefaultCounter(), nil
	case "tsc":
		return mountain.TSCCounter()
	case "monotonic":
		return mountain.MonotonicCounter(), nil
	}
	return nil, errors.Wrapf(mountain.ErrNoCounter, "unknown counter %q", name)
}

// session is the measurement setup shared by the mountain commands: a timer
// with its estimated counter rate, optionally pinned to a CPU.
type session struct {
	log   *logrus.Logger
	timer *mountain.Timer
	rate  float64
	unpin func()
}

func (s *session) close() {
	if s.unpin != nil {
		s.unpin()
	}
}

// newSession pins the calling goroutine if asked to, and then sets up the
// timer, estimating the counter rate while already pinned.
func newSession(cmd *cobra.Command, opts *options) (*session, error) {
	log, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
	if err != nil {
		return nil, err
	}
	s := &session{log: log}
	if opts.cpu >= 0 {
		s.unpin, err = mountain.PinToCPU(opts.cpu)
		if err != nil {
			return nil, err
		}
		log.WithField("cpu", opts.cpu).Debug("pinned")
	}
	counter, err := newCounter(opts.counter)
	if err != nil {
		s.close()
		return nil, err
	}
	s.timer, err = mountain.NewTimer(counter,
		mountain.WithK(opts.k),
		mountain.WithEpsilon(opts.epsilon),
		mountain.WithMaxTrials(opts.maxTrials))
	if err != nil {
		s.close()
		return nil, err
	}
	s.rate, err = mountain.EstimateRate(counter, opts.settle)
	if err != nil {
		s.close()
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"counter": counter.Name(),
		"mhz":     mountain.MHz(s.rate),
	}).Debug("counter rate estimated")
	return s, nil
}

// newBuffer allocates the working-set buffer, refusing sizes beyond the
// memory currently available.
func newBuffer(cmd *cobra.Command, log logrus.FieldLogger, maxBytes int) (*mountain.Buffer, error) {
	sys := mountain.ProbeSystem(cmd.Context())
	if sys.AvailableMem > 0 && uint64(maxBytes) > sys.AvailableMem {
		return nil, errors.Wrapf(mountain.ErrConfig,
			"buffer of %s exceeds available memory of %s",
			humanize.IBytes(uint64(maxBytes)), humanize.IBytes(sys.AvailableMem))
	}
	log.WithField("size", humanize.IBytes(uint64(maxBytes))).Debug("allocating buffer")
	return mountain.NewBuffer(maxBytes)
}

func runMountain(cmd *cobra.Command, opts *options) error {
	minBytes, err := parseSize("min-size", opts.minSize)
	if err != nil {
		return err
	}
	maxBytes, err := parseSize("max-size", opts.maxSize)
	if err != nil {
		return err
	}
	cfg := mountain.SweepConfig{
		MinBytes:         minBytes,
		MaxBytes:         maxBytes,
		MaxStride:        opts.maxStride,
		StrideStep:       opts.strideStep,
		GeometricStrides: opts.geometric,
		Repeat:           opts.repeat,
	}

	s, err := newSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close()

	buf, err := newBuffer(cmd, s.log, maxBytes)
	if err != nil {
		return err
	}
	defer buf.Close()

	sweepOpts := []mountain.SweepOption{mountain.WithLogger(s.log)}
	if opts.aggregate > 0 {
		sweepOpts = append(sweepOpts, mountain.WithAggregate(opts.aggregate))
	} else if opts.noise && opts.cpu >= 0 {
		sweepOpts = append(sweepOpts, mountain.WithNoiseProbe(mountain.NewNoiseProbe(uint(opts.cpu))))
	}
	sweep, err := mountain.NewSweep(buf, s.timer, s.rate, cfg, sweepOpts...)
	if err != nil {
		return err
	}

	table, err := sweep.Run(cmd.Context())
	if err != nil {
		s.log.WithError(err).Warn("sweep interrupted")
	}
	counterName := s.timer.Counter().Name()
	out := cmd.OutOrStdout()
	if opts.json {
		if err := report.WriteJSON(out, table, s.rate, counterName); err != nil {
			return errors.Wrap(err, "cannot write JSON")
		}
	} else {
		report.WritePreamble(out, s.rate, counterName)
		report.WriteTable(out, table)
		for _, cliff := range table.Cliffs(1, 2) {
			fmt.Fprintf(out, "Cliff between %s and %s: %.1fx\n",
				mountain.SizeLabel(cliff.Below), mountain.SizeLabel(cliff.Above), cliff.Ratio)
		}
	}
	if faults := table.Faults(); faults != nil {
		s.log.WithError(faults).Warn("cells without bandwidth")
	}
	if opts.plot != "" {
		if err := report.SavePlot(table, opts.plot); err != nil {
			return err
		}
	}
	if opts.textfile != "" {
		exporter := report.NewExporter()
		exporter.Observe(table, s.rate)
		if err := exporter.WriteTextfile(opts.textfile); err != nil {
			return err
		}
	}
	return err
}
