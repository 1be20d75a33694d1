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

// Package storage measures the write bandwidth of a storage location, as a
// side experiment to memory mountains.
package storage

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

const chunkSize = 1 << 20

// ErrTooFast signals a write that completed faster than the clock could
// resolve.
var ErrTooFast = errors.New("write too fast to measure")

// WriteBandwidth writes sizeBytes of arbitrary data into a new scratch file
// in dir, syncs it, and returns the achieved bandwidth in MB/s. The scratch
// file is removed afterwards; failing to remove it is not reported.
func WriteBandwidth(fs afero.Fs, dir string, sizeBytes int) (float64, error) {
	if sizeBytes <= 0 {
		return 0, errors.Errorf("invalid scratch size %d", sizeBytes)
	}
	f, err := afero.TempFile(fs, dir, "mountain-scratch-*")
	if err != nil {
		return 0, errors.Wrap(err, "cannot create scratch file")
	}
	defer func() { _ = fs.Remove(f.Name()) }()

	chunk := make([]byte, min(chunkSize, sizeBytes))
	for i := range chunk {
		chunk[i] = byte(i)
	}
	start := time.Now()
	for written := 0; written < sizeBytes; {
		n, err := f.Write(chunk[:min(len(chunk), sizeBytes-written)])
		if err != nil {
			f.Close()
			return 0, errors.Wrapf(err, "cannot write scratch file %q", f.Name())
		}
		written += n
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return 0, errors.Wrapf(err, "cannot sync scratch file %q", f.Name())
	}
	if err := f.Close(); err != nil {
		return 0, errors.Wrapf(err, "cannot close scratch file %q", f.Name())
	}
	elapsed := time.Since(start)
	if elapsed <= 0 {
		return 0, ErrTooFast
	}
	return float64(sizeBytes) / elapsed.Seconds() / (1 << 20), nil
}
