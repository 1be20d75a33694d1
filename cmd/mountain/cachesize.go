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

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thediveo/mountain"
)

func newCacheSizeCommand(opts *options) *cobra.Command {
	var startSize string
	cmd := &cobra.Command{
		Use:          "cachesize",
		Short:        "estimate the cache size from access latencies",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			startBytes, err := parseSize("start-size", startSize)
			if err != nil {
				return err
			}
			maxBytes, err := parseSize("max-size", opts.maxSize)
			if err != nil {
				return err
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

			line := mountain.ProbeSystem(cmd.Context()).LineSize()
			size, err := mountain.EstimateCacheSize(buf, s.timer, s.rate, startBytes, maxBytes, line)
			if err != nil {
				return err
			}
			latency, err := mountain.Latency(buf, s.timer, s.rate, size, line)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache size: %s\n", humanize.IBytes(uint64(size)))
			fmt.Fprintf(out, "Latency: %.2f ns\n", latency)
			return nil
		},
	}
	cmd.Flags().StringVar(&startSize, "start-size", "1KiB", "smallest working set")
	return cmd
}
