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
	"math"
	"strconv"
	"strings"

	"github.com/jackbister/asclog/internal/records"
)

// missingToken is what the tracker writes for an untracked or invalid value,
// for example the position fields of a sample during a blink. It decodes to
// NaN and is not an anomaly.
const missingToken = "."

// tokenCursor walks the tokens of one line positionally. Running out of
// tokens or failing a numeric coercion yields NaN and records an anomaly, it
// never aborts the parse.
type tokenCursor struct {
	fields    []string
	i         int
	line      int
	anomalies *records.AnomalyLog

	reportedShort bool
}

func (c *tokenCursor) next() (string, bool) {
	if c.i >= len(c.fields) {
		return "", false
	}
	tok := c.fields[c.i]
	c.i++
	return tok, true
}

func (c *tokenCursor) str() string {
	tok, _ := c.next()
	return tok
}

func (c *tokenCursor) num() float64 {
	tok, ok := c.next()
	if !ok {
		if !c.reportedShort {
			c.reportedShort = true
			c.anomalies.Record(records.AnomalyBadToken, c.line, "line has fewer tokens than the resolved layout expects")
		}
		return math.NaN()
	}
	if tok == missingToken {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		c.anomalies.Record(records.AnomalyBadToken, c.line, "token "+strconv.Quote(tok)+" is not numeric")
		return math.NaN()
	}
	return v
}

// rawBuilder decodes sample lines into the columnar raw table following the
// resolved sample schema.
type rawBuilder struct {
	schema records.Schema
	table  *records.RawTable
}

func newRawBuilder(schema records.Schema) *rawBuilder {
	return &rawBuilder{
		schema: schema,
		table:  records.NewRawTable(schema),
	}
}

func (b *rawBuilder) append(cl ClassifiedLine, block float64, line int, anomalies *records.AnomalyLog) {
	c := &tokenCursor{fields: cl.Fields, line: line, anomalies: anomalies}
	row := make([]float64, 0, len(b.table.Columns))
	row = append(row, block)
	var crInfo, remoteInfo string
	for _, col := range b.schema.Columns[1:] {
		switch col {
		case "cr.info":
			crInfo = c.str()
		case "remote.info":
			remoteInfo = c.str()
		default:
			row = append(row, c.num())
		}
	}
	b.table.Rows = append(b.table.Rows, row)
	if b.table.HasCR {
		b.table.CRInfo = append(b.table.CRInfo, crInfo)
	}
	if b.table.HasRemote {
		b.table.RemoteInfo = append(b.table.RemoteInfo, remoteInfo)
	}
}

// saccadeBuilder decodes ESACC lines. When the recording declared HREF event
// data the tracker writes an angle-based copy of every positional field
// before the pixel-based one, both are kept verbatim.
type saccadeBuilder struct {
	hasHref bool
	hasRes  bool
	out     *[]records.Saccade
}

func (b *saccadeBuilder) append(cl ClassifiedLine, block float64, line int, anomalies *records.AnomalyLog) {
	c := &tokenCursor{fields: cl.Fields[1:], line: line, anomalies: anomalies}
	nan := math.NaN()
	s := records.Saccade{
		Block: block,
		Eye:   c.str(),
		STime: c.num(),
		ETime: c.num(),
		Dur:   c.num(),

		HrefSxp: nan, HrefSyp: nan, HrefExp: nan, HrefEyp: nan,
		HrefAmpl: nan, HrefPv: nan,
		Xr: nan, Yr: nan,
	}
	if b.hasHref {
		s.HrefSxp = c.num()
		s.HrefSyp = c.num()
		s.HrefExp = c.num()
		s.HrefEyp = c.num()
		s.HrefAmpl = c.num()
		s.HrefPv = c.num()
	}
	s.Sxp = c.num()
	s.Syp = c.num()
	s.Exp = c.num()
	s.Eyp = c.num()
	s.Ampl = c.num()
	s.Pv = c.num()
	if b.hasRes {
		s.Xr = c.num()
		s.Yr = c.num()
	}
	*b.out = append(*b.out, s)
}

// fixationBuilder decodes EFIX lines.
type fixationBuilder struct {
	hasHref bool
	hasRes  bool
	out     *[]records.Fixation
}

func (b *fixationBuilder) append(cl ClassifiedLine, block float64, line int, anomalies *records.AnomalyLog) {
	c := &tokenCursor{fields: cl.Fields[1:], line: line, anomalies: anomalies}
	nan := math.NaN()
	f := records.Fixation{
		Block: block,
		Eye:   c.str(),
		STime: c.num(),
		ETime: c.num(),
		Dur:   c.num(),

		HrefAxp: nan, HrefAyp: nan,
		Xr: nan, Yr: nan,
	}
	if b.hasHref {
		f.HrefAxp = c.num()
		f.HrefAyp = c.num()
	}
	f.Axp = c.num()
	f.Ayp = c.num()
	f.Aps = c.num()
	if b.hasRes {
		f.Xr = c.num()
		f.Yr = c.num()
	}
	*b.out = append(*b.out, f)
}

// blinkBuilder decodes EBLINK lines. The layout is fixed, session flags never
// change it.
type blinkBuilder struct {
	out *[]records.Blink
}

func (b *blinkBuilder) append(cl ClassifiedLine, block float64, line int, anomalies *records.AnomalyLog) {
	c := &tokenCursor{fields: cl.Fields[1:], line: line, anomalies: anomalies}
	*b.out = append(*b.out, records.Blink{
		Block: block,
		Eye:   c.str(),
		STime: c.num(),
		ETime: c.num(),
		Dur:   c.num(),
	})
}

// messageBuilder decodes MSG lines. The payload is stored as an opaque
// string with its interior whitespace intact, any matching against message
// contents is the consumer's business.
type messageBuilder struct {
	out *[]records.Message
}

func (b *messageBuilder) append(cl ClassifiedLine, block float64, line int, anomalies *records.AnomalyLog) {
	c := &tokenCursor{fields: cl.Fields[1:], line: line, anomalies: anomalies}
	*b.out = append(*b.out, records.Message{
		Block: block,
		Time:  c.num(),
		Text:  payloadAfterTokens(cl.Raw, 2),
	})
}

// payloadAfterTokens returns the remainder of raw after skipping n
// whitespace separated tokens, with surrounding whitespace trimmed.
func payloadAfterTokens(raw string, n int) string {
	s := strings.TrimLeft(raw, " \t")
	for t := 0; t < n; t++ {
		idx := strings.IndexAny(s, " \t")
		if idx < 0 {
			return ""
		}
		s = strings.TrimLeft(s[idx:], " \t")
	}
	return strings.TrimRight(s, " \t\r")
}

// inputBuilder decodes INPUT port lines.
type inputBuilder struct {
	out *[]records.Input
}

func (b *inputBuilder) append(cl ClassifiedLine, block float64, line int, anomalies *records.AnomalyLog) {
	c := &tokenCursor{fields: cl.Fields[1:], line: line, anomalies: anomalies}
	*b.out = append(*b.out, records.Input{
		Block: block,
		Time:  c.num(),
		Value: c.num(),
	})
}

// buttonBuilder decodes BUTTON lines.
type buttonBuilder struct {
	out *[]records.Button
}

func (b *buttonBuilder) append(cl ClassifiedLine, block float64, line int, anomalies *records.AnomalyLog) {
	c := &tokenCursor{fields: cl.Fields[1:], line: line, anomalies: anomalies}
	*b.out = append(*b.out, records.Button{
		Block:  block,
		Time:   c.num(),
		Button: c.num(),
		State:  c.num(),
	})
}
