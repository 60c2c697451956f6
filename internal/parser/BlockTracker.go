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

import "github.com/jackbister/asclog/internal/records"

// blockTracker follows START/END markers through the file. current counts
// block starts and never decreases, 0 means "before the first block".
// Trackers are known to emit duplicated or missing markers when a session
// ends abnormally, so an imbalanced marker is recorded as an anomaly and the
// state is forced to what the marker implies rather than aborting.
type blockTracker struct {
	current int
	inBlock bool
}

func (b *blockTracker) start(line int, anomalies *records.AnomalyLog) {
	if b.inBlock {
		anomalies.Record(records.AnomalyBlockImbalance, line, "block start while a block is already open")
	}
	b.current++
	b.inBlock = true
}

func (b *blockTracker) end(line int, anomalies *records.AnomalyLog) {
	if !b.inBlock {
		anomalies.Record(records.AnomalyBlockImbalance, line, "block end without an open block")
	}
	b.inBlock = false
}

// blockValue returns the block value to assign to a record seen now. Inside
// a block that is the integer block index. Outside a block it is the index
// of the previous block plus 0.5 when out-of-block retention is on, and
// ok=false otherwise, which tells the builders to drop the record.
func (b *blockTracker) blockValue(retainOutOfBlock bool) (float64, bool) {
	if b.inBlock {
		return float64(b.current), true
	}
	if retainOutOfBlock {
		return float64(b.current) + 0.5, true
	}
	return 0, false
}
