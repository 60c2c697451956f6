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

package records

// AnomalyKind classifies the recoverable oddities a field-recorded log can
// contain. None of these stop a parse, getting as much data as possible out
// of a slightly corrupt recording beats strict rejection.
type AnomalyKind int

const (
	// AnomalyUnknownLine is a line matching no known marker after the header
	// phase. Tracker software is known to emit free-form diagnostic lines.
	AnomalyUnknownLine AnomalyKind = iota
	// AnomalyBlockImbalance is a block end without an open block or a block
	// start while one is already open.
	AnomalyBlockImbalance
	// AnomalyTruncatedBlock is end of input with a block still open.
	AnomalyTruncatedBlock
	// AnomalyBadToken is a token that failed numeric coercion and was not
	// the tracker's missing-data placeholder.
	AnomalyBadToken
	// AnomalyLateHeader is a header-vocabulary line seen after the schemas
	// were resolved. It is ignored, settings do not change mid-session.
	AnomalyLateHeader
	// AnomalyDataBeforeBlock is a data line seen before the first block
	// start, while the schema was not yet resolved.
	AnomalyDataBeforeBlock
)

func (k AnomalyKind) String() string {
	switch k {
	case AnomalyUnknownLine:
		return "unknown-line"
	case AnomalyBlockImbalance:
		return "block-imbalance"
	case AnomalyTruncatedBlock:
		return "truncated-block"
	case AnomalyBadToken:
		return "bad-token"
	case AnomalyLateHeader:
		return "late-header"
	case AnomalyDataBeforeBlock:
		return "data-before-block"
	}
	return "unknown"
}

// Anomaly is one recorded occurrence with its source location.
type Anomaly struct {
	Line int
	Kind AnomalyKind
	Text string
}

const maxAnomalySamples = 25

// AnomalyLog counts anomalies per kind and keeps a bounded sample of
// occurrences so that a multi-million line file with a systematic problem
// does not blow up memory.
type AnomalyLog struct {
	Counts  map[AnomalyKind]int
	Samples []Anomaly
}

// Record counts an anomaly and stores it if the sample buffer is not full.
// It reports whether the occurrence was stored.
func (l *AnomalyLog) Record(kind AnomalyKind, line int, text string) bool {
	if l.Counts == nil {
		l.Counts = map[AnomalyKind]int{}
	}
	l.Counts[kind]++
	if len(l.Samples) >= maxAnomalySamples {
		return false
	}
	l.Samples = append(l.Samples, Anomaly{Line: line, Kind: kind, Text: text})
	return true
}

// Total is the number of anomalies recorded across all kinds.
func (l *AnomalyLog) Total() int {
	total := 0
	for _, c := range l.Counts {
		total += c
	}
	return total
}
