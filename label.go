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

import "strconv"

// SizeLabel returns the human-readable label for a working-set size: in "k"
// for sizes under 1 MiB, in "m" otherwise.
func SizeLabel(sizeBytes int) string {
	if sizeBytes >= MiB {
		return strconv.Itoa(sizeBytes/MiB) + "m"
	}
	return strconv.Itoa(sizeBytes/1024) + "k"
}
