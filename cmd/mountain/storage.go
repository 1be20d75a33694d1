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
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/thediveo/mountain/storage"
)

func newStorageCommand(opts *options) *cobra.Command {
	var dir, size string
	cmd := &cobra.Command{
		Use:          "storage",
		Short:        "measure the write bandwidth of a scratch file",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
			if err != nil {
				return err
			}
			sizeBytes, err := parseSize("size", size)
			if err != nil {
				return err
			}
			mbps, err := storage.WriteBandwidth(afero.NewOsFs(), dir, sizeBytes)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{"dir": dir, "mbps": mbps}).Debug("measured scratch file")
			fmt.Fprintf(cmd.OutOrStdout(), "Storage write bandwidth: %.1f MB/s\n", mbps)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", os.TempDir(), "directory for the scratch file")
	cmd.Flags().StringVar(&size, "size", "64MiB", "scratch file size")
	return cmd
}
