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
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/jackbister/asclog/internal/records"
)

// ErrMissingMetadata is returned when the preamble ends without the minimum
// metadata needed to resolve the sample layout. This is the only fatal
// condition during a parse.
var ErrMissingMetadata = errors.New("recording preamble is missing required metadata")

var trackerVersionRegexp = regexp.MustCompile(`v(\d+)\.\d+`)

// headerResolver accumulates preamble lines until the first block start and
// produces the Info record. Lines outside the recognized vocabulary are
// ignored.
type headerResolver struct {
	info    records.Info
	sawRate bool
	sawEye  bool

	logger *slog.Logger
}

func newHeaderResolver(logger *slog.Logger) *headerResolver {
	return &headerResolver{
		info:   records.Info{Model: "unknown"},
		logger: logger,
	}
}

func (h *headerResolver) consume(cl ClassifiedLine) {
	f := cl.Fields
	switch f[0] {
	case "**":
		h.consumeComment(f)
	case "SAMPLES":
		h.applyDeclaration(f[1:], true)
	case "EVENTS":
		h.applyDeclaration(f[1:], false)
	case "PUPIL":
		if len(f) > 1 && f[1] == "AREA" {
			h.info.PupilData = records.PupilArea
		} else if len(f) > 1 && f[1] == "DIAMETER" {
			h.info.PupilData = records.PupilDiameter
		}
	}
}

// consumeComment handles the "**"-prefixed preamble lines the tracker writes
// before any recording configuration.
func (h *headerResolver) consumeComment(f []string) {
	if len(f) < 2 {
		return
	}
	switch f[1] {
	case "DATE:":
		raw := strings.Join(f[2:], " ")
		t, err := dateparse.ParseStrict(raw)
		if err != nil {
			h.logger.Warn("could not parse DATE line in preamble, the date will be unset",
				slog.String("date", raw), slog.Any("error", err))
			return
		}
		h.info.Date = &t
	case "VERSION:":
		h.info.Version = strings.Join(f[2:], " ")
		if strings.Contains(h.info.Version, "EYELINK II") {
			h.info.Model = "EyeLink II"
		}
	default:
		// Lines like "** EYELINK II CL v5.04 ..." identify the camera
		// hardware more precisely than the VERSION line does.
		if f[1] == "EYELINK" {
			h.info.Model = modelFromCameraLine(strings.Join(f[1:], " "))
		}
	}
}

func modelFromCameraLine(line string) string {
	m := trackerVersionRegexp.FindStringSubmatch(line)
	if m == nil {
		return "unknown"
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return "unknown"
	}
	switch {
	case major < 3:
		return "EyeLink II"
	case major < 5:
		return "EyeLink 1000"
	case major == 5:
		return "EyeLink 1000 Plus"
	case major == 6:
		return "EyeLink Portable Duo"
	}
	return "unknown"
}

// consumeMessage inspects the payload of a MSG line seen before the first
// block start. Display geometry and mount configuration only ever arrive as
// messages.
func (h *headerResolver) consumeMessage(cl ClassifiedLine) {
	f := cl.Fields
	if len(f) < 3 {
		return
	}
	switch f[2] {
	case "DISPLAY_COORDS", "GAZE_COORDS":
		if len(f) < 7 {
			return
		}
		x0, err0 := strconv.ParseFloat(f[3], 64)
		y0, err1 := strconv.ParseFloat(f[4], 64)
		x1, err2 := strconv.ParseFloat(f[5], 64)
		y1, err3 := strconv.ParseFloat(f[6], 64)
		if err0 != nil || err1 != nil || err2 != nil || err3 != nil {
			h.logger.Warn("could not parse display coordinates in preamble",
				slog.String("line", cl.Raw))
			return
		}
		w := int(x1-x0) + 1
		hgt := int(y1-y0) + 1
		h.info.ScreenWidth = &w
		h.info.ScreenHeight = &hgt
	case "ELCLCFG":
		if len(f) > 3 {
			h.info.Mount = records.MountDescription(f[3])
		}
	case "!MODE":
		// "!MODE RECORD CR 1000 2 1 R" duplicates the recording settings.
		// Used as a fallback when no SAMPLES/EVENTS line was written.
		if len(f) < 9 || f[3] != "RECORD" {
			return
		}
		if f[4] == "CR" {
			h.info.CornealReflection = true
		}
		if !h.sawRate {
			if rate, err := strconv.ParseFloat(f[5], 64); err == nil {
				h.info.SampleRate = rate
				h.sawRate = true
			}
		}
		if !h.sawEye {
			eye := f[8]
			h.info.Left = strings.Contains(eye, "L")
			h.info.Right = strings.Contains(eye, "R")
			h.sawEye = h.info.Left || h.info.Right
		}
	}
}

// applyDeclaration decodes the token list of a SAMPLES or EVENTS line. The
// same toggles appear on both, the leading unit token is the only part that
// differs in meaning.
func (h *headerResolver) applyDeclaration(tokens []string, isSample bool) {
	i := 0
	if len(tokens) > 0 {
		if unit, ok := parseDataUnit(tokens[0]); ok {
			if isSample {
				h.info.SampleUnit = unit
			} else {
				h.info.EventUnit = unit
			}
			i++
		}
	}
	for ; i < len(tokens); i++ {
		switch tokens[i] {
		case "LEFT":
			h.info.Left = true
			h.sawEye = true
		case "RIGHT":
			h.info.Right = true
			h.sawEye = true
		case "RATE":
			if i+1 < len(tokens) {
				i++
				if rate, err := strconv.ParseFloat(tokens[i], 64); err == nil {
					h.info.SampleRate = rate
					h.sawRate = true
				}
			}
		case "TRACKING":
			if i+1 < len(tokens) {
				i++
				h.info.CornealReflection = tokens[i] == "CR"
			}
		case "FILTER":
			if i+1 < len(tokens) {
				i++
				if lvl, err := strconv.Atoi(tokens[i]); err == nil {
					h.info.FilterLevel = lvl
				}
			}
		case "VEL":
			h.info.Velocity = true
		case "RES":
			h.info.Resolution = true
		case "HTARGET":
			h.info.HeadTarget = true
		case "INPUT":
			h.info.Input = true
		case "BUTTONS":
			h.info.Buttons = true
		}
	}
}

func parseDataUnit(token string) (records.DataUnit, bool) {
	switch token {
	case "GAZE":
		return records.UnitGaze, true
	case "HREF":
		return records.UnitHref, true
	case "PUPIL":
		return records.UnitPupil, true
	}
	return records.UnitUnknown, false
}

// finalize produces the immutable Info record. line is the location of the
// first block start, used for error context.
func (h *headerResolver) finalize(line int) (records.Info, error) {
	if !h.sawRate {
		return records.Info{}, fmt.Errorf("line %d: %w: no sample rate declared before first block", line, ErrMissingMetadata)
	}
	if !h.sawEye {
		return records.Info{}, fmt.Errorf("line %d: %w: no tracked eye declared before first block", line, ErrMissingMetadata)
	}
	h.info.Mono = !(h.info.Left && h.info.Right)
	return h.info, nil
}
