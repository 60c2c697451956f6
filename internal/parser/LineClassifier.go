// Copyright 2025 Jack Bister
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"strconv"
	"strings"
)

// LineKind tags a raw line with the kind of record it carries. Classification
// only looks at the leading token, the rest of the line stays undecoded.
type LineKind int

const (
	LineUnknown LineKind = iota
	LineEmpty
	LineHeader
	LineSample
	LineMessage
	LineSaccadeEnd
	LineFixationEnd
	LineBlinkEnd
	// LineEventStart is an SSACC/SFIX/SBLINK marker. The trackers write these
	// paired with the end markers, which carry all the data, so start markers
	// are recognized but never tabulated.
	LineEventStart
	LineInput
	LineButton
	LineBlockStart
	LineBlockEnd
)

// ClassifiedLine is a tagged line. Fields holds the whitespace separated
// tokens including the leading keyword, Raw is the line verbatim.
type ClassifiedLine struct {
	Kind   LineKind
	Raw    string
	Fields []string
}

// Classify tags one line of an ASC log. It is a pure function. headerPhase
// must be true until the first block start has been seen: lines matching no
// known marker are header candidates in the preamble, unknown (and skipped)
// afterwards.
func Classify(line string, headerPhase bool) ClassifiedLine {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ClassifiedLine{Kind: LineEmpty, Raw: line}
	}
	ret := ClassifiedLine{Raw: line, Fields: fields}
	switch fields[0] {
	case "MSG":
		ret.Kind = LineMessage
	case "START":
		ret.Kind = LineBlockStart
	case "END":
		ret.Kind = LineBlockEnd
	case "ESACC":
		ret.Kind = LineSaccadeEnd
	case "EFIX":
		ret.Kind = LineFixationEnd
	case "EBLINK":
		ret.Kind = LineBlinkEnd
	case "SSACC", "SFIX", "SBLINK":
		ret.Kind = LineEventStart
	case "INPUT":
		ret.Kind = LineInput
	case "BUTTON":
		ret.Kind = LineButton
	case "SAMPLES", "EVENTS", "PUPIL":
		// Recording configuration lines. Part of the header vocabulary
		// regardless of where they appear, the engine decides whether they
		// still matter.
		ret.Kind = LineHeader
	default:
		if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
			// A line led by a bare timestamp is a raw sample.
			ret.Kind = LineSample
		} else if headerPhase {
			ret.Kind = LineHeader
		} else {
			ret.Kind = LineUnknown
		}
	}
	return ret
}
