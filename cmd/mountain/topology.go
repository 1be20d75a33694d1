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
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/thediveo/mountain"
)

func newTopologyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:          "topology",
		Short:        "show the CPU caches as published by the system",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}
			sys := mountain.ProbeSystem(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "CPU: %s, %d logical cores\n", sys.Brand, sys.LogicalCores)
			if sys.NominalHz > 0 {
				fmt.Fprintf(out, "Nominal frequency: %.0f MHz\n", mountain.MHz(float64(sys.NominalHz)))
			}
			if sys.ReportedMHz > 0 {
				fmt.Fprintf(out, "Reported frequency: %.0f MHz\n", sys.ReportedMHz)
			}

			caches := mountain.DistinctCaches(mountain.AllCaches())
			if len(caches) == 0 {
				log.Info("no cache topology in sysfs, falling back to CPUID")
				caches = mountain.CPUIDCaches()
			}
			tw := tablewriter.NewWriter(out)
			tw.SetHeader([]string{"Level", "Type", "Size", "Line", "Ways", "CPUs"})
			for _, cache := range caches {
				tw.Append([]string{
					strconv.Itoa(cache.Level),
					cache.Type,
					humanize.IBytes(uint64(cache.Size)),
					strconv.Itoa(cache.LineSize),
					strconv.Itoa(cache.Ways),
					cache.CPUs.String(),
				})
			}
			tw.Render()
			return nil
		},
	}
}
