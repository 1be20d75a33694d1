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

import "bytes"

// scanline scans a single text line of a pseudo file without allocating,
// keeping a position within the line. The line contents stay owned by the
// caller and must not change while scanning.
type scanline struct {
	b   []byte
	pos int
}

func newScanline(b []byte) *scanline {
	return &scanline{b: b}
}

// EOL returns true if the position has reached the end of the line.
func (s *scanline) EOL() (eol bool) { return s.pos >= len(s.b) }

// SkipSpace advances over space characters, returning true if this reaches
// the end of the line.
func (s *scanline) SkipSpace() (eol bool) {
	for s.pos < len(s.b) && s.b[s.pos] == ' ' {
		s.pos++
	}
	return s.pos >= len(s.b)
}

// SkipText advances over the text t if it is found at the current position,
// returning true. Otherwise, the position is left unchanged.
func (s *scanline) SkipText(t string) (ok bool) {
	if len(t) > len(s.b)-s.pos {
		return false
	}
	if string(s.b[s.pos:s.pos+len(t)]) != t {
		return false
	}
	s.pos += len(t)
	return true
}

// Token returns the text from the current position up to, but excluding, the
// next occurrence of delim, advancing the position to delim. If there is no
// delim in the remaining line, Token returns false and leaves the position
// unchanged.
func (s *scanline) Token(delim byte) (token []byte, ok bool) {
	idx := bytes.IndexByte(s.b[s.pos:], delim)
	if idx < 0 {
		return nil, false
	}
	token = s.b[s.pos : s.pos+idx]
	s.pos += idx
	return token, true
}

// Uint64 parses the decimal number at the current position, stopping at the
// first non-digit. There must be at least one digit, otherwise Uint64 returns
// false.
func (s *scanline) Uint64() (num uint64, ok bool) {
	start := s.pos
	for s.pos < len(s.b) {
		ch := s.b[s.pos]
		if ch < '0' || ch > '9' {
			break
		}
		num = num*10 + uint64(ch-'0')
		s.pos++
	}
	return num, s.pos > start
}

// NumFields returns the number of space-separated fields from the current
// position on, without changing the position.
func (s *scanline) NumFields() (num int) {
	infield := false
	for _, ch := range s.b[s.pos:] {
		if ch == ' ' {
			infield = false
			continue
		}
		if !infield {
			num++
			infield = true
		}
	}
	return num
}
