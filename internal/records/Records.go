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

// Rows use NaN for a field whose token was the tracker's missing-data
// placeholder or could not be decoded. Block is the index of the recording
// block the row was seen in, counting from 1, or the previous block index
// plus 0.5 for rows seen outside any block when out-of-block retention is
// enabled.

// RawTable holds decoded sample lines in columnar form. Columns lists the
// numeric columns in row order. The corneal reflection and remote status
// fields are short diagnostic strings rather than numbers, so they are kept
// in side slices parallel to Rows when the schema includes them.
type RawTable struct {
	Columns []string
	Rows    [][]float64

	HasCR      bool
	HasRemote  bool
	CRInfo     []string
	RemoteInfo []string
}

// NewRawTable creates an empty table laid out according to the resolved
// sample schema.
func NewRawTable(schema Schema) *RawTable {
	t := &RawTable{
		HasCR:     schema.Has("cr.info"),
		HasRemote: schema.Has("remote.info"),
	}
	for _, c := range schema.Columns {
		if c == "cr.info" || c == "remote.info" {
			continue
		}
		t.Columns = append(t.Columns, c)
	}
	return t
}

// Column returns the values of the named numeric column, or false if the
// table has no such column.
func (t *RawTable) Column(name string) ([]float64, bool) {
	for i, c := range t.Columns {
		if c != name {
			continue
		}
		out := make([]float64, len(t.Rows))
		for j, row := range t.Rows {
			out[j] = row[i]
		}
		return out, true
	}
	return nil, false
}

// Saccade is a decoded ESACC event. The Href fields are only populated when
// the recording declared HREF event data; the tracker then writes both the
// angle-based and the pixel-based value for each field. The two are reported
// verbatim, no attempt is made to derive one from the other.
type Saccade struct {
	Block float64
	Eye   string
	STime float64
	ETime float64
	Dur   float64

	HrefSxp  float64
	HrefSyp  float64
	HrefExp  float64
	HrefEyp  float64
	HrefAmpl float64
	HrefPv   float64

	Sxp  float64
	Syp  float64
	Exp  float64
	Eyp  float64
	Ampl float64
	Pv   float64

	Xr float64
	Yr float64
}

// Fixation is a decoded EFIX event.
type Fixation struct {
	Block float64
	Eye   string
	STime float64
	ETime float64
	Dur   float64

	HrefAxp float64
	HrefAyp float64

	Axp float64
	Ayp float64
	Aps float64

	Xr float64
	Yr float64
}

// Blink is a decoded EBLINK event. The layout is fixed regardless of any
// session flags.
type Blink struct {
	Block float64
	Eye   string
	STime float64
	ETime float64
	Dur   float64
}

// Message is a decoded MSG line. Text is the payload verbatim, it is never
// parsed further.
type Message struct {
	Block float64
	Time  float64
	Text  string
}

// Input is a decoded INPUT port event.
type Input struct {
	Block float64
	Time  float64
	Value float64
}

// Button is a decoded BUTTON event. Button number and state are kept as
// floats so a malformed token can round-trip as NaN like every other field.
type Button struct {
	Block  float64
	Time   float64
	Button float64
	State  float64
}

// Result is everything reconstructed from one ASC log. It is owned
// exclusively by the caller of the parse, no part of it is shared with any
// other parse.
type Result struct {
	Info    Info
	Schemas Schemas

	Raw       *RawTable
	Saccades  []Saccade
	Fixations []Fixation
	Blinks    []Blink
	Messages  []Message
	Inputs    []Input
	Buttons   []Button

	Anomalies AnomalyLog
}
