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
	"bufio"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackbister/asclog/internal/records"
)

// Options are the caller-level switches of a parse.
type Options struct {
	// RetainOutOfBlock keeps records seen outside any recording block,
	// assigning them the previous block index plus 0.5. When false such
	// records are dropped entirely.
	RetainOutOfBlock bool
	// ImportSamples decodes raw sample lines. Turning it off skips sample
	// lines entirely, which saves most of the memory for event-only
	// analyses. Event lines are always decoded.
	ImportSamples bool
}

// DefaultOptions imports samples and drops out-of-block records.
func DefaultOptions() Options {
	return Options{ImportSamples: true}
}

// Parser is the single-pass ASC parse engine. A Parser holds no state
// between calls, each Parse owns its result exclusively, so independent
// files may be parsed concurrently with one Parser per goroutine or a shared
// one, whichever is convenient.
type Parser struct {
	Opts Options

	Logger *slog.Logger
}

const maxLineLength = 1024 * 1024

// Parse consumes the line stream in one pass and returns the reconstructed
// tables and recording metadata. The input must already be decompressed.
// The only fatal condition is a preamble without the minimum metadata,
// everything else a slightly corrupt recording can contain is decoded on a
// best-effort basis and surfaced through the result's anomaly log.
func (p *Parser) Parse(r io.Reader) (*records.Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := &records.Result{}
	hr := newHeaderResolver(logger)
	bt := &blockTracker{}

	// Builders for the fixed-layout kinds exist from the start so that
	// preamble messages can be retained in out-of-block mode. The
	// schema-dependent builders are created when the first block opens.
	messages := &messageBuilder{out: &res.Messages}
	inputs := &inputBuilder{out: &res.Inputs}
	buttons := &buttonBuilder{out: &res.Buttons}
	blinks := &blinkBuilder{out: &res.Blinks}
	var raw *rawBuilder
	var saccades *saccadeBuilder
	var fixations *fixationBuilder

	headerPhase := true
	lineNo := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		lineNo++
		cl := Classify(scanner.Text(), headerPhase)

		if headerPhase {
			switch cl.Kind {
			case LineEmpty:
				continue
			case LineHeader:
				hr.consume(cl)
				continue
			case LineMessage:
				// Display geometry and mount configuration arrive as
				// messages, so the resolver gets a look before the line is
				// treated as an ordinary out-of-block message.
				hr.consumeMessage(cl)
				if block, ok := bt.blockValue(p.Opts.RetainOutOfBlock); ok {
					messages.append(cl, block, lineNo, &res.Anomalies)
				}
				continue
			case LineInput, LineButton, LineBlinkEnd, LineEventStart:
				// Fixed-layout events before the first block are decodable
				// without a schema.
				if block, ok := bt.blockValue(p.Opts.RetainOutOfBlock); ok {
					switch cl.Kind {
					case LineInput:
						inputs.append(cl, block, lineNo, &res.Anomalies)
					case LineButton:
						buttons.append(cl, block, lineNo, &res.Anomalies)
					case LineBlinkEnd:
						blinks.append(cl, block, lineNo, &res.Anomalies)
					}
				}
				continue
			case LineSample, LineSaccadeEnd, LineFixationEnd:
				// The layout of these depends on metadata that has not been
				// finalized yet.
				res.Anomalies.Record(records.AnomalyDataBeforeBlock, lineNo, "schema-dependent line before first block start")
				continue
			case LineBlockStart:
				info, err := hr.finalize(lineNo)
				if err != nil {
					return nil, err
				}
				res.Info = info
				res.Schemas = records.ResolveSchemas(info)
				raw = newRawBuilder(res.Schemas.Sample)
				res.Raw = raw.table
				saccades = &saccadeBuilder{
					hasHref: info.EventUnit == records.UnitHref,
					hasRes:  info.Resolution,
					out:     &res.Saccades,
				}
				fixations = &fixationBuilder{
					hasHref: info.EventUnit == records.UnitHref,
					hasRes:  info.Resolution,
					out:     &res.Fixations,
				}
				headerPhase = false
				bt.start(lineNo, &res.Anomalies)
				logger.Debug("recording metadata finalized",
					slog.Float64("sampleRate", info.SampleRate),
					slog.Bool("mono", info.Mono),
					slog.Int("sampleColumns", len(res.Schemas.Sample.Columns)))
				continue
			default:
				continue
			}
		}

		switch cl.Kind {
		case LineEmpty, LineEventStart:
			continue
		case LineBlockStart:
			bt.start(lineNo, &res.Anomalies)
		case LineBlockEnd:
			bt.end(lineNo, &res.Anomalies)
		case LineHeader:
			// Settings are constant for a session. A configuration line
			// appearing mid-file is noted and otherwise ignored.
			res.Anomalies.Record(records.AnomalyLateHeader, lineNo, "configuration line after schema resolution")
		case LineUnknown:
			res.Anomalies.Record(records.AnomalyUnknownLine, lineNo, "unrecognized line")
		default:
			block, ok := bt.blockValue(p.Opts.RetainOutOfBlock)
			if !ok {
				continue
			}
			switch cl.Kind {
			case LineSample:
				if p.Opts.ImportSamples {
					raw.append(cl, block, lineNo, &res.Anomalies)
				}
			case LineMessage:
				messages.append(cl, block, lineNo, &res.Anomalies)
			case LineSaccadeEnd:
				saccades.append(cl, block, lineNo, &res.Anomalies)
			case LineFixationEnd:
				fixations.append(cl, block, lineNo, &res.Anomalies)
			case LineBlinkEnd:
				blinks.append(cl, block, lineNo, &res.Anomalies)
			case LineInput:
				inputs.append(cl, block, lineNo, &res.Anomalies)
			case LineButton:
				buttons.append(cl, block, lineNo, &res.Anomalies)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input around line %d: %w", lineNo, err)
	}

	if headerPhase {
		return nil, fmt.Errorf("line %d: %w: no block start found in input", lineNo, ErrMissingMetadata)
	}
	if bt.inBlock {
		// Truncated recording, common on abnormal session termination. The
		// tables are finalized as-is.
		res.Anomalies.Record(records.AnomalyTruncatedBlock, lineNo, "end of input with a block still open")
	}

	if res.Anomalies.Total() > 0 {
		logger.Warn("recording parsed with anomalies",
			slog.Int("anomalies", res.Anomalies.Total()),
			slog.Int("lines", lineNo))
	}
	return res, nil
}
