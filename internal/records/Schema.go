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

// Schema is the resolved positional column layout for one line kind. It is
// computed once from the Info record before the first data line is decoded
// and never changes for the remainder of a parse. Tracker settings are
// constant for a session, so a header-like line appearing later that would
// contradict the resolved layout is ignored.
type Schema struct {
	Columns []string
}

// Has reports whether the schema contains a column with the given name.
func (s Schema) Has(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Schemas holds the three variable-layout schemas of a recording. Blinks,
// messages, inputs and buttons have fixed layouts and need no schema.
type Schemas struct {
	Sample   Schema
	Saccade  Schema
	Fixation Schema
}

// ResolveSchemas derives the positional column layouts from the recording
// metadata. Column order matches the order the tracker writes fields in:
// time, per-eye position and pupil size, per-eye velocity, resolution,
// input port, button state, corneal reflection status and finally the head
// target block in remote mode.
func ResolveSchemas(info Info) Schemas {
	sample := []string{"block", "time"}
	if info.Mono {
		sample = append(sample, "xp", "yp", "ps")
	} else {
		sample = append(sample, "xpl", "ypl", "psl", "xpr", "ypr", "psr")
	}
	if info.Velocity {
		if info.Mono {
			sample = append(sample, "xv", "yv")
		} else {
			sample = append(sample, "xvl", "yvl", "xvr", "yvr")
		}
	}
	if info.Resolution {
		sample = append(sample, "xr", "yr")
	}
	if info.Input {
		sample = append(sample, "input")
	}
	if info.Buttons {
		sample = append(sample, "buttons")
	}
	if info.CornealReflection {
		sample = append(sample, "cr.info")
	}
	if info.HeadTarget {
		sample = append(sample, "tx", "ty", "td", "remote.info")
	}

	saccade := []string{"block", "eye", "stime", "etime", "dur"}
	if info.EventUnit == UnitHref {
		saccade = append(saccade, "href.sxp", "href.syp", "href.exp", "href.eyp", "href.ampl", "href.pv")
	}
	saccade = append(saccade, "sxp", "syp", "exp", "eyp", "ampl", "pv")
	if info.Resolution {
		saccade = append(saccade, "xr", "yr")
	}

	fixation := []string{"block", "eye", "stime", "etime", "dur"}
	if info.EventUnit == UnitHref {
		fixation = append(fixation, "href.axp", "href.ayp")
	}
	fixation = append(fixation, "axp", "ayp", "aps")
	if info.Resolution {
		fixation = append(fixation, "xr", "yr")
	}

	return Schemas{
		Sample:   Schema{Columns: sample},
		Saccade:  Schema{Columns: saccade},
		Fixation: Schema{Columns: fixation},
	}
}
