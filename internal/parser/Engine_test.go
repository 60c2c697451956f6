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
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/jackbister/asclog/internal/records"
)

const binocularRecording = `** DATE: Wed Mar  4 10:15:20 2015
** VERSION: EYELINK II 1
** EYELINK II CL v5.04 Jan 25 2018
MSG	900 DISPLAY_COORDS 0 0 1023 767
SAMPLES	GAZE	LEFT	RIGHT	RES	RATE	500.00	TRACKING	CR	FILTER	2
EVENTS	GAZE	LEFT	RIGHT	RATE	500.00	TRACKING	CR	FILTER	2
PUPIL	AREA
START	1000 	LEFT	RIGHT	SAMPLES	EVENTS
1000	  512.3	  384.2	 1050.0	  514.0	  385.0	 1030.0	  35.10	  35.20	.....
1001	  512.5	  384.1	 1049.0	  514.1	  385.2	 1029.0	  35.10	  35.20	.....
1002	  512.7	  384.0	 1048.0	  514.2	  385.4	 1028.0	  35.10	  35.20	.....
EBLINK L 200	350	150
END	1003 	SAMPLES	EVENTS
START	2000 	LEFT	RIGHT	SAMPLES	EVENTS
MSG	500 blank_screen onset
END	2100 	SAMPLES	EVENTS
`

const monocularRecording = `** DATE: Wed Mar  4 10:15:20 2015
SAMPLES	GAZE	LEFT	RATE	500.00	TRACKING	CR	FILTER	2
EVENTS	GAZE	LEFT	RATE	500.00	TRACKING	CR	FILTER	2
PUPIL	AREA
START	1000 	LEFT	SAMPLES	EVENTS
1000	  512.3	  384.2	 1050.0	...
1001	  .	  .	    0.0	...
1002	  512.7	  384.0	 1048.0	...
EFIX L   1000	1500	500	  512.5	  384.1	 1049
END	1503 	SAMPLES	EVENTS
1504	  512.9	  384.0	 1047.0	...
MSG	1505 between_blocks
START	2000 	LEFT	SAMPLES	EVENTS
2000	  513.0	  383.9	 1046.0	...
END	2001 	SAMPLES	EVENTS
`

func parseString(t *testing.T, input string, opts Options) *records.Result {
	t.Helper()
	p := &Parser{Opts: opts}
	res, err := p.Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("got error when parsing: %v", err)
	}
	return res
}

func TestParseBinocularWithResolution(t *testing.T) {
	res := parseString(t, binocularRecording, DefaultOptions())

	if res.Info.Mono {
		t.Errorf("expected mono=false for a binocular recording")
	}
	if res.Info.SampleRate != 500 {
		t.Errorf("got sample rate %v, expected 500", res.Info.SampleRate)
	}
	if len(res.Raw.Rows) != 3 {
		t.Fatalf("got %v raw rows, expected 3", len(res.Raw.Rows))
	}
	blocks, _ := res.Raw.Column("block")
	for i, b := range blocks {
		if b != 1 {
			t.Errorf("got block %v for raw row %v, expected 1", b, i)
		}
	}
	for _, col := range []string{"xpl", "ypl", "psl", "xpr", "ypr", "psr", "xr", "yr"} {
		vals, ok := res.Raw.Column(col)
		if !ok {
			t.Fatalf("raw table is missing column %v", col)
		}
		for i, v := range vals {
			if math.IsNaN(v) {
				t.Errorf("got NaN in column %v row %v, expected a value", col, i)
			}
		}
	}
	if len(res.Raw.CRInfo) != 3 || res.Raw.CRInfo[0] != "....." {
		t.Errorf("got unexpected cr.info %v", res.Raw.CRInfo)
	}
}

func TestParseMessageInSecondBlock(t *testing.T) {
	res := parseString(t, binocularRecording, DefaultOptions())

	if len(res.Messages) != 1 {
		t.Fatalf("got %v messages, expected 1", len(res.Messages))
	}
	m := res.Messages[0]
	if m.Block != 2 || m.Time != 500 || m.Text != "blank_screen onset" {
		t.Errorf("got message %+v, expected block=2 time=500 text=\"blank_screen onset\"", m)
	}
}

func TestParseBlinkFixedLayout(t *testing.T) {
	res := parseString(t, binocularRecording, DefaultOptions())

	if len(res.Blinks) != 1 {
		t.Fatalf("got %v blinks, expected 1", len(res.Blinks))
	}
	b := res.Blinks[0]
	if b.Eye != "L" || b.STime != 200 || b.ETime != 350 || b.Dur != 150 {
		t.Errorf("got blink %+v, expected eye=L stime=200 etime=350 dur=150", b)
	}
}

func TestParseMissingPlaceholderBecomesNaN(t *testing.T) {
	res := parseString(t, monocularRecording, DefaultOptions())

	xs, ok := res.Raw.Column("xp")
	if !ok {
		t.Fatalf("raw table is missing column xp")
	}
	if !math.IsNaN(xs[1]) {
		t.Errorf("got %v for the untracked sample, expected NaN", xs[1])
	}
	if xs[0] != 512.3 || xs[2] != 512.7 {
		t.Errorf("got unexpected xp values %v", xs)
	}
	if res.Anomalies.Counts[records.AnomalyBadToken] != 0 {
		t.Errorf("the missing-data placeholder should not count as an anomaly, got %v", res.Anomalies.Counts[records.AnomalyBadToken])
	}
}

func TestParseMonocularSchema(t *testing.T) {
	res := parseString(t, monocularRecording, DefaultOptions())

	if !res.Info.Mono {
		t.Errorf("expected mono=true")
	}
	for _, c := range []string{"xpl", "xpr", "psl", "psr"} {
		if res.Schemas.Sample.Has(c) {
			t.Errorf("monocular sample schema should not contain %v", c)
		}
	}
	if len(res.Fixations) != 1 {
		t.Fatalf("got %v fixations, expected 1", len(res.Fixations))
	}
	f := res.Fixations[0]
	if f.Block != 1 || f.Axp != 512.5 || f.Ayp != 384.1 || f.Aps != 1049 {
		t.Errorf("got fixation %+v", f)
	}
	if !math.IsNaN(f.HrefAxp) || !math.IsNaN(f.Xr) {
		t.Errorf("href and resolution fields should be NaN when the recording has neither, got %+v", f)
	}
}

func TestParseOutOfBlockDropped(t *testing.T) {
	res := parseString(t, monocularRecording, DefaultOptions())

	if len(res.Raw.Rows) != 4 {
		t.Fatalf("got %v raw rows, expected 4 (the out-of-block sample dropped)", len(res.Raw.Rows))
	}
	blocks, _ := res.Raw.Column("block")
	for i, b := range blocks {
		if b != math.Trunc(b) {
			t.Errorf("got fractional block %v in row %v with retention off", b, i)
		}
	}
	for _, m := range res.Messages {
		if m.Text == "between_blocks" {
			t.Errorf("out-of-block message should be dropped with retention off")
		}
	}
}

func TestParseOutOfBlockRetained(t *testing.T) {
	res := parseString(t, monocularRecording, Options{RetainOutOfBlock: true, ImportSamples: true})

	if len(res.Raw.Rows) != 5 {
		t.Fatalf("got %v raw rows, expected 5", len(res.Raw.Rows))
	}
	blocks, _ := res.Raw.Column("block")
	times, _ := res.Raw.Column("time")
	found := false
	for i := range blocks {
		if times[i] == 1504 {
			found = true
			if blocks[i] != 1.5 {
				t.Errorf("got block %v for the out-of-block sample, expected 1.5", blocks[i])
			}
		}
	}
	if !found {
		t.Errorf("the out-of-block sample is missing from the raw table")
	}
	foundMsg := false
	for _, m := range res.Messages {
		if m.Text == "between_blocks" {
			foundMsg = true
			if m.Block != 1.5 {
				t.Errorf("got block %v for the out-of-block message, expected 1.5", m.Block)
			}
		}
	}
	if !foundMsg {
		t.Errorf("the out-of-block message is missing")
	}
}

func TestParsePreambleMessageRetainedWithHalfBlock(t *testing.T) {
	res := parseString(t, binocularRecording, Options{RetainOutOfBlock: true, ImportSamples: true})

	if len(res.Messages) != 2 {
		t.Fatalf("got %v messages, expected 2", len(res.Messages))
	}
	first := res.Messages[0]
	if first.Block != 0.5 {
		t.Errorf("got block %v for the preamble message, expected 0.5", first.Block)
	}
	if first.Text != "DISPLAY_COORDS 0 0 1023 767" {
		t.Errorf("got text %q for the preamble message", first.Text)
	}
}

func TestParseSkipSamples(t *testing.T) {
	res := parseString(t, monocularRecording, Options{ImportSamples: false})

	if len(res.Raw.Rows) != 0 {
		t.Errorf("got %v raw rows with sample import off, expected 0", len(res.Raw.Rows))
	}
	if len(res.Fixations) != 1 {
		t.Errorf("got %v fixations, events should still be imported", len(res.Fixations))
	}
}

func TestParseHrefEvents(t *testing.T) {
	input := `SAMPLES	GAZE	LEFT	RATE	500.00
EVENTS	HREF	LEFT	RATE	500.00
START	1000 	LEFT	SAMPLES	EVENTS
ESACC L  1000	1020	20	  10.0	  11.0	  12.0	  13.0	2.50	300	  110.0	  111.0	  112.0	  113.0	3.50	310
END	1100 	SAMPLES	EVENTS
`
	res := parseString(t, input, DefaultOptions())

	if !res.Schemas.Saccade.Has("href.sxp") {
		t.Fatalf("saccade schema should contain href columns for HREF events")
	}
	if len(res.Saccades) != 1 {
		t.Fatalf("got %v saccades, expected 1", len(res.Saccades))
	}
	s := res.Saccades[0]
	if s.HrefSxp != 10 || s.HrefAmpl != 2.5 || s.HrefPv != 300 {
		t.Errorf("got unexpected href fields in %+v", s)
	}
	if s.Sxp != 110 || s.Ampl != 3.5 || s.Pv != 310 {
		t.Errorf("got unexpected gaze fields in %+v", s)
	}
}

func TestParseDeterminism(t *testing.T) {
	res1 := parseString(t, binocularRecording, Options{RetainOutOfBlock: true, ImportSamples: true})
	res2 := parseString(t, binocularRecording, Options{RetainOutOfBlock: true, ImportSamples: true})
	if !reflect.DeepEqual(res1, res2) {
		t.Errorf("two parses of the same input produced different results")
	}
}

func TestParseUnknownLinesAreSkipped(t *testing.T) {
	input := `SAMPLES	GAZE	LEFT	RATE	500.00
START	1000 	LEFT	SAMPLES	EVENTS
1000	  512.3	  384.2	 1050.0
some diagnostic output from the vendor tool
1001	  512.5	  384.1	 1049.0
END	1002 	SAMPLES	EVENTS
`
	res := parseString(t, input, DefaultOptions())

	if len(res.Raw.Rows) != 2 {
		t.Errorf("got %v raw rows, expected 2", len(res.Raw.Rows))
	}
	if res.Anomalies.Counts[records.AnomalyUnknownLine] != 1 {
		t.Errorf("got %v unknown-line anomalies, expected 1", res.Anomalies.Counts[records.AnomalyUnknownLine])
	}
}

func TestParseTruncatedRecording(t *testing.T) {
	input := `SAMPLES	GAZE	LEFT	RATE	500.00
START	1000 	LEFT	SAMPLES	EVENTS
1000	  512.3	  384.2	 1050.0
1001	  512.5	  384.1	 1049.0
`
	res := parseString(t, input, DefaultOptions())

	if len(res.Raw.Rows) != 2 {
		t.Errorf("got %v raw rows from the truncated block, expected 2", len(res.Raw.Rows))
	}
	if res.Anomalies.Counts[records.AnomalyTruncatedBlock] != 1 {
		t.Errorf("got %v truncated-block anomalies, expected 1", res.Anomalies.Counts[records.AnomalyTruncatedBlock])
	}
}

func TestParseLateHeaderIgnored(t *testing.T) {
	input := `SAMPLES	GAZE	LEFT	RATE	500.00
START	1000 	LEFT	SAMPLES	EVENTS
SAMPLES	GAZE	LEFT	RIGHT	RATE	1000.00
1000	  512.3	  384.2	 1050.0
END	1001 	SAMPLES	EVENTS
`
	res := parseString(t, input, DefaultOptions())

	if res.Info.SampleRate != 500 || !res.Info.Mono {
		t.Errorf("a late configuration line must not change the resolved metadata, got %+v", res.Info)
	}
	if res.Anomalies.Counts[records.AnomalyLateHeader] != 1 {
		t.Errorf("got %v late-header anomalies, expected 1", res.Anomalies.Counts[records.AnomalyLateHeader])
	}
	if len(res.Raw.Rows) != 1 {
		t.Errorf("got %v raw rows, expected 1", len(res.Raw.Rows))
	}
}

func TestParseMissingMetadata(t *testing.T) {
	input := `** DATE: Wed Mar  4 10:15:20 2015
START	1000 	LEFT	SAMPLES	EVENTS
END	1001
`
	p := &Parser{Opts: DefaultOptions()}
	_, err := p.Parse(strings.NewReader(input))
	if !errors.Is(err, ErrMissingMetadata) {
		t.Fatalf("got err=%v, expected ErrMissingMetadata", err)
	}
}

func TestParseNoBlocks(t *testing.T) {
	input := `** DATE: Wed Mar  4 10:15:20 2015
SAMPLES	GAZE	LEFT	RATE	500.00
`
	p := &Parser{Opts: DefaultOptions()}
	_, err := p.Parse(strings.NewReader(input))
	if !errors.Is(err, ErrMissingMetadata) {
		t.Fatalf("got err=%v, expected ErrMissingMetadata for a file with no blocks", err)
	}
}

func TestParseBadTokenBecomesNaNWithAnomaly(t *testing.T) {
	input := `SAMPLES	GAZE	LEFT	RATE	500.00
START	1000 	LEFT	SAMPLES	EVENTS
1000	  garbage	  384.2	 1050.0
END	1001 	SAMPLES	EVENTS
`
	res := parseString(t, input, DefaultOptions())

	xs, _ := res.Raw.Column("xp")
	if len(xs) != 1 || !math.IsNaN(xs[0]) {
		t.Errorf("got %v, expected one NaN xp value", xs)
	}
	ys, _ := res.Raw.Column("yp")
	if len(ys) != 1 || ys[0] != 384.2 {
		t.Errorf("got %v, expected the rest of the row decoded", ys)
	}
	if res.Anomalies.Counts[records.AnomalyBadToken] != 1 {
		t.Errorf("got %v bad-token anomalies, expected 1", res.Anomalies.Counts[records.AnomalyBadToken])
	}
}

func TestPayloadAfterTokens(t *testing.T) {
	if got := payloadAfterTokens("MSG\t500   blank_screen  onset ", 2); got != "blank_screen  onset" {
		t.Errorf("got %q, expected interior whitespace preserved", got)
	}
	if got := payloadAfterTokens("MSG\t500", 2); got != "" {
		t.Errorf("got %q, expected empty payload", got)
	}
}
