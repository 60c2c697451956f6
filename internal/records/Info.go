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

import "time"

// DataUnit is the unit the tracker reported sample and event positions in.
type DataUnit int

const (
	UnitUnknown DataUnit = iota
	// UnitGaze is screen pixel coordinates
	UnitGaze
	// UnitHref is head-referenced eye rotation angle
	UnitHref
	// UnitPupil is raw pupil camera coordinates
	UnitPupil
)

func (u DataUnit) String() string {
	switch u {
	case UnitGaze:
		return "GAZE"
	case UnitHref:
		return "HREF"
	case UnitPupil:
		return "PUPIL"
	}
	return "UNKNOWN"
}

// PupilUnit is the unit pupil size was recorded in.
type PupilUnit int

const (
	PupilUnknown PupilUnit = iota
	PupilArea
	PupilDiameter
)

func (u PupilUnit) String() string {
	switch u {
	case PupilArea:
		return "AREA"
	case PupilDiameter:
		return "DIAMETER"
	}
	return "UNKNOWN"
}

// Info is the recording metadata extracted from the preamble of an ASC log.
// It is fully determined by the time the first recording block opens and is
// never modified after that.
type Info struct {
	// Date is the recording date as reported by the tracker, or nil if the
	// preamble contained no DATE line.
	Date *time.Time
	// Model is a human readable tracker model name, or "unknown".
	Model string
	// Version is the raw VERSION string from the preamble.
	Version string

	// SampleRate is the sampling rate in Hz.
	SampleRate float64
	// CornealReflection is true if the tracker ran in corneal reflection
	// mode, which adds a diagnostic column to every sample.
	CornealReflection bool

	Left  bool
	Right bool
	// Mono is true when exactly one eye was tracked. Always equal to
	// !(Left && Right).
	Mono bool

	// ScreenWidth and ScreenHeight are in pixels. They are nil if the
	// preamble never reported display coordinates, which is distinct from a
	// zero-sized display.
	ScreenWidth  *int
	ScreenHeight *int

	// Mount is a human readable description of the camera mount, or "" if
	// the preamble contained no mount configuration message.
	Mount string
	// FilterLevel is the heuristic filter level (0, 1 or 2).
	FilterLevel int

	SampleUnit DataUnit
	EventUnit  DataUnit
	PupilData  PupilUnit

	// Presence flags for the optional per-sample column groups.
	Velocity   bool
	Resolution bool
	HeadTarget bool
	Input      bool
	Buttons    bool
}

var mountDescriptions = map[string]string{
	"MTABLER":  "Desktop / Stabilized head / Monocular",
	"BTABLER":  "Desktop / Stabilized head / Binocular or monocular",
	"RTABLER":  "Desktop remote / Target sticker / Monocular",
	"RBTABLER": "Desktop remote / Target sticker / Binocular or monocular",
	"AMTABLER": "Arm mount / Stabilized head / Monocular",
	"ABTABLER": "Arm mount / Stabilized head / Binocular or monocular",
	"ARTABLER": "Arm mount remote / Target sticker / Monocular",
	"ABRTABLE": "Arm mount remote / Target sticker / Binocular or monocular",
	"BTOWER":   "Binocular tower mount / Stabilized head / Binocular or monocular",
	"TOWER":    "Tower mount / Stabilized head / Binocular",
	"MPRIM":    "Primate mount / Stabilized head / Monocular",
	"BPRIM":    "Primate mount / Stabilized head / Binocular or monocular",
	"MLRR":     "Long range mount / Stabilized head / Monocular / Camera level",
	"BLRR":     "Long range mount / Stabilized head / Binocular / Camera angled",
}

// MountDescription translates a mount configuration code from an ELCLCFG
// message into a human readable description. Unknown codes are returned
// verbatim so the information is not lost.
func MountDescription(code string) string {
	if desc, ok := mountDescriptions[code]; ok {
		return desc
	}
	return code
}
