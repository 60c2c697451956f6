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

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackbister/asclog/internal/records"
	"go.uber.org/zap"
)

// RecordingSummary is one ingested recording as stored in the database.
type RecordingSummary struct {
	Id           string       `json:"id"`
	Source       string       `json:"source"`
	ParsedAt     time.Time    `json:"parsedAt"`
	AnomalyCount int          `json:"anomalyCount"`
	Info         records.Info `json:"info"`
}

// TableSlice is a page of rows from one of the record tables, in a shape
// that serializes directly to the API.
type TableSlice struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// TableKinds are the table names accepted by Repository.Table.
var TableKinds = []string{"samples", "saccades", "fixations", "blinks", "messages", "inputs", "buttons"}

// ErrUnknownTableKind is returned by Repository.Table for a kind outside
// TableKinds. Callers can use it to tell a bad request apart from a real
// database failure.
var ErrUnknownTableKind = errors.New("unknown table kind")

// Repository persists parse results.
type Repository interface {
	Add(source string, res *records.Result) (string, error)
	List() ([]RecordingSummary, error)
	Get(id string) (*RecordingSummary, error)
	Table(id string, kind string, limit, offset int) (*TableSlice, error)
}

type sqliteRepository struct {
	db *sql.DB

	logger *zap.Logger
}

// sampleColumns is the full sample column set. A recording only populates
// the subset its resolved schema contains, the rest stays NULL.
var sampleColumns = []string{
	"block", "time",
	"xp", "yp", "ps",
	"xpl", "ypl", "psl", "xpr", "ypr", "psr",
	"xv", "yv", "xvl", "yvl", "xvr", "yvr",
	"xr", "yr", "input", "buttons",
	"cr_info", "tx", "ty", "td", "remote_info",
}

var saccadeColumns = []string{
	"block", "eye", "stime", "etime", "dur",
	"href_sxp", "href_syp", "href_exp", "href_eyp", "href_ampl", "href_pv",
	"sxp", "syp", "exp", "eyp", "ampl", "pv", "xr", "yr",
}

var fixationColumns = []string{
	"block", "eye", "stime", "etime", "dur",
	"href_axp", "href_ayp", "axp", "ayp", "aps", "xr", "yr",
}

var blinkColumns = []string{"block", "eye", "stime", "etime", "dur"}
var messageColumns = []string{"block", "time", "text"}
var inputColumns = []string{"block", "time", "value"}
var buttonColumns = []string{"block", "time", "button", "state"}

var createStatements = []string{
	"CREATE TABLE IF NOT EXISTS Recordings (id TEXT NOT NULL PRIMARY KEY, source TEXT NOT NULL, parsed_at DATETIME NOT NULL, anomaly_count INTEGER NOT NULL, info TEXT NOT NULL);",
	"CREATE TABLE IF NOT EXISTS Samples (recording_id TEXT NOT NULL, block REAL, time REAL, xp REAL, yp REAL, ps REAL, xpl REAL, ypl REAL, psl REAL, xpr REAL, ypr REAL, psr REAL, xv REAL, yv REAL, xvl REAL, yvl REAL, xvr REAL, yvr REAL, xr REAL, yr REAL, input REAL, buttons REAL, cr_info TEXT, tx REAL, ty REAL, td REAL, remote_info TEXT);",
	"CREATE INDEX IF NOT EXISTS IX_Samples_Recording ON Samples(recording_id);",
	"CREATE TABLE IF NOT EXISTS Saccades (recording_id TEXT NOT NULL, block REAL, eye TEXT, stime REAL, etime REAL, dur REAL, href_sxp REAL, href_syp REAL, href_exp REAL, href_eyp REAL, href_ampl REAL, href_pv REAL, sxp REAL, syp REAL, exp REAL, eyp REAL, ampl REAL, pv REAL, xr REAL, yr REAL);",
	"CREATE TABLE IF NOT EXISTS Fixations (recording_id TEXT NOT NULL, block REAL, eye TEXT, stime REAL, etime REAL, dur REAL, href_axp REAL, href_ayp REAL, axp REAL, ayp REAL, aps REAL, xr REAL, yr REAL);",
	"CREATE TABLE IF NOT EXISTS Blinks (recording_id TEXT NOT NULL, block REAL, eye TEXT, stime REAL, etime REAL, dur REAL);",
	"CREATE TABLE IF NOT EXISTS Messages (recording_id TEXT NOT NULL, block REAL, time REAL, text TEXT);",
	"CREATE TABLE IF NOT EXISTS Inputs (recording_id TEXT NOT NULL, block REAL, time REAL, value REAL);",
	"CREATE TABLE IF NOT EXISTS Buttons (recording_id TEXT NOT NULL, block REAL, time REAL, button REAL, state REAL);",
	"CREATE TABLE IF NOT EXISTS Anomalies (recording_id TEXT NOT NULL, line INTEGER NOT NULL, kind TEXT NOT NULL, text TEXT NOT NULL);",
}

// NewSqliteRepository creates the tables if needed and returns a Repository
// backed by the given database.
func NewSqliteRepository(db *sql.DB, logger *zap.Logger) (Repository, error) {
	for _, stmt := range createStatements {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("error creating asclog tables: %w", err)
		}
	}
	return &sqliteRepository{db: db, logger: logger}, nil
}

func (repo *sqliteRepository) Add(source string, res *records.Result) (string, error) {
	startTime := time.Now()
	id := uuid.NewString()
	infoJson, err := json.Marshal(res.Info)
	if err != nil {
		return "", fmt.Errorf("error serializing info record for source=%s: %w", source, err)
	}

	tx, err := repo.db.Begin()
	if err != nil {
		return "", fmt.Errorf("error starting transaction for source=%s: %w", source, err)
	}
	_, err = tx.Exec("INSERT INTO Recordings (id, source, parsed_at, anomaly_count, info) VALUES (?, ?, ?, ?, ?)",
		id, source, time.Now(), res.Anomalies.Total(), string(infoJson))
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("error inserting recording row for source=%s: %w", source, err)
	}

	if res.Raw != nil && len(res.Raw.Rows) > 0 {
		if err = repo.addSamples(tx, id, res.Raw); err != nil {
			tx.Rollback()
			return "", err
		}
	}

	if err = repo.addEvents(tx, id, res); err != nil {
		tx.Rollback()
		return "", err
	}

	anomalyRows := make([][]any, 0, len(res.Anomalies.Samples))
	for _, a := range res.Anomalies.Samples {
		anomalyRows = append(anomalyRows, []any{a.Line, a.Kind.String(), a.Text})
	}
	if err = repo.insertBatch(tx, id, "Anomalies", []string{"line", "kind", "text"}, anomalyRows); err != nil {
		tx.Rollback()
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("error committing recording for source=%s: %w", source, err)
	}
	numSamples := 0
	if res.Raw != nil {
		numSamples = len(res.Raw.Rows)
	}
	repo.logger.Info("added recording",
		zap.String("id", id),
		zap.String("source", source),
		zap.Int("numSamples", numSamples),
		zap.Int("numMessages", len(res.Messages)),
		zap.Duration("duration", time.Since(startTime)))
	return id, nil
}

// addSamples writes the raw table with one prepared statement inside the
// transaction. The raw table can run to millions of rows, building batch SQL
// strings for it costs more than it saves.
func (repo *sqliteRepository) addSamples(tx *sql.Tx, id string, raw *records.RawTable) error {
	q := "INSERT INTO Samples (recording_id, " + strings.Join(sampleColumns, ", ") + ") VALUES (?" + strings.Repeat(", ?", len(sampleColumns)) + ")"
	stmt, err := tx.Prepare(q)
	if err != nil {
		return fmt.Errorf("error preparing sample insert: %w", err)
	}
	defer stmt.Close()

	// Position of each database column within the recording's resolved
	// schema, -1 for columns this recording does not have.
	colIdx := make([]int, len(sampleColumns))
	for i, col := range sampleColumns {
		colIdx[i] = -1
		for j, have := range raw.Columns {
			if have == col {
				colIdx[i] = j
				break
			}
		}
	}

	args := make([]any, len(sampleColumns)+1)
	args[0] = id
	for rowNum, row := range raw.Rows {
		for i, col := range sampleColumns {
			switch {
			case col == "cr_info":
				if raw.HasCR {
					args[i+1] = raw.CRInfo[rowNum]
				} else {
					args[i+1] = nil
				}
			case col == "remote_info":
				if raw.HasRemote {
					args[i+1] = raw.RemoteInfo[rowNum]
				} else {
					args[i+1] = nil
				}
			case colIdx[i] >= 0:
				args[i+1] = nullable(row[colIdx[i]])
			default:
				args[i+1] = nil
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("error inserting sample row %d: %w", rowNum, err)
		}
	}
	return nil
}

func (repo *sqliteRepository) addEvents(tx *sql.Tx, id string, res *records.Result) error {
	saccades := make([][]any, 0, len(res.Saccades))
	for _, s := range res.Saccades {
		saccades = append(saccades, []any{
			s.Block, s.Eye, nullable(s.STime), nullable(s.ETime), nullable(s.Dur),
			nullable(s.HrefSxp), nullable(s.HrefSyp), nullable(s.HrefExp), nullable(s.HrefEyp), nullable(s.HrefAmpl), nullable(s.HrefPv),
			nullable(s.Sxp), nullable(s.Syp), nullable(s.Exp), nullable(s.Eyp), nullable(s.Ampl), nullable(s.Pv),
			nullable(s.Xr), nullable(s.Yr),
		})
	}
	if err := repo.insertBatch(tx, id, "Saccades", saccadeColumns, saccades); err != nil {
		return err
	}

	fixations := make([][]any, 0, len(res.Fixations))
	for _, f := range res.Fixations {
		fixations = append(fixations, []any{
			f.Block, f.Eye, nullable(f.STime), nullable(f.ETime), nullable(f.Dur),
			nullable(f.HrefAxp), nullable(f.HrefAyp), nullable(f.Axp), nullable(f.Ayp), nullable(f.Aps),
			nullable(f.Xr), nullable(f.Yr),
		})
	}
	if err := repo.insertBatch(tx, id, "Fixations", fixationColumns, fixations); err != nil {
		return err
	}

	blinks := make([][]any, 0, len(res.Blinks))
	for _, b := range res.Blinks {
		blinks = append(blinks, []any{b.Block, b.Eye, nullable(b.STime), nullable(b.ETime), nullable(b.Dur)})
	}
	if err := repo.insertBatch(tx, id, "Blinks", blinkColumns, blinks); err != nil {
		return err
	}

	messages := make([][]any, 0, len(res.Messages))
	for _, m := range res.Messages {
		messages = append(messages, []any{m.Block, nullable(m.Time), m.Text})
	}
	if err := repo.insertBatch(tx, id, "Messages", messageColumns, messages); err != nil {
		return err
	}

	inputs := make([][]any, 0, len(res.Inputs))
	for _, in := range res.Inputs {
		inputs = append(inputs, []any{in.Block, nullable(in.Time), nullable(in.Value)})
	}
	if err := repo.insertBatch(tx, id, "Inputs", inputColumns, inputs); err != nil {
		return err
	}

	buttons := make([][]any, 0, len(res.Buttons))
	for _, b := range res.Buttons {
		buttons = append(buttons, []any{b.Block, nullable(b.Time), nullable(b.Button), nullable(b.State)})
	}
	return repo.insertBatch(tx, id, "Buttons", buttonColumns, buttons)
}

// SQLite allows at most 999 bound variables per statement by default.
const maxBatchVariables = 999

// insertBatch writes rows with multi-row INSERT statements built into a
// pre-grown string builder, chunked to stay under the variable limit.
func (repo *sqliteRepository) insertBatch(tx *sql.Tx, id string, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	perRow := len(cols) + 1
	chunkSize := maxBatchVariables / perRow
	base := "INSERT INTO " + table + " (recording_id, " + strings.Join(cols, ", ") + ") VALUES "
	tuple := "(?" + strings.Repeat(", ?", len(cols)) + ")"

	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		var sb strings.Builder
		sb.Grow(len(base) + (len(tuple)+1)*len(chunk))
		sb.WriteString(base)
		args := make([]any, 0, perRow*len(chunk))
		for i, row := range chunk {
			sb.WriteString(tuple)
			if i != len(chunk)-1 {
				sb.WriteRune(',')
			}
			args = append(args, id)
			args = append(args, row...)
		}
		if _, err := tx.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("error inserting batch into %s: %w", table, err)
		}
	}
	return nil
}

func (repo *sqliteRepository) List() ([]RecordingSummary, error) {
	rows, err := repo.db.Query("SELECT id, source, parsed_at, anomaly_count, info FROM Recordings ORDER BY parsed_at")
	if err != nil {
		return nil, fmt.Errorf("error listing recordings: %w", err)
	}
	defer rows.Close()
	ret := []RecordingSummary{}
	for rows.Next() {
		s, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *s)
	}
	return ret, rows.Err()
}

func (repo *sqliteRepository) Get(id string) (*RecordingSummary, error) {
	row := repo.db.QueryRow("SELECT id, source, parsed_at, anomaly_count, info FROM Recordings WHERE id = ?", id)
	return scanSummary(row.Scan)
}

func scanSummary(scan func(...any) error) (*RecordingSummary, error) {
	var s RecordingSummary
	var infoJson string
	if err := scan(&s.Id, &s.Source, &s.ParsedAt, &s.AnomalyCount, &infoJson); err != nil {
		return nil, fmt.Errorf("error scanning recording row: %w", err)
	}
	if err := json.Unmarshal([]byte(infoJson), &s.Info); err != nil {
		return nil, fmt.Errorf("error deserializing info record for recording=%s: %w", s.Id, err)
	}
	return &s, nil
}

var tableQueries = map[string]struct {
	table string
	cols  []string
}{
	"samples":   {"Samples", sampleColumns},
	"saccades":  {"Saccades", saccadeColumns},
	"fixations": {"Fixations", fixationColumns},
	"blinks":    {"Blinks", blinkColumns},
	"messages":  {"Messages", messageColumns},
	"inputs":    {"Inputs", inputColumns},
	"buttons":   {"Buttons", buttonColumns},
}

func (repo *sqliteRepository) Table(id string, kind string, limit, offset int) (*TableSlice, error) {
	tq, ok := tableQueries[kind]
	if !ok {
		return nil, fmt.Errorf("%w %s, expected one of %s", ErrUnknownTableKind, kind, strings.Join(TableKinds, ", "))
	}
	q := "SELECT " + strings.Join(tq.cols, ", ") + " FROM " + tq.table + " WHERE recording_id = ? LIMIT ? OFFSET ?"
	rows, err := repo.db.Query(q, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying %s for recording=%s: %w", tq.table, id, err)
	}
	defer rows.Close()

	ret := &TableSlice{Columns: tq.cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(tq.cols))
		ptrs := make([]any, len(tq.cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("error scanning %s row: %w", tq.table, err)
		}
		for i, v := range vals {
			// TEXT affinity columns come back as []byte
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		ret.Rows = append(ret.Rows, vals)
	}
	return ret, rows.Err()
}

// nullable maps NaN, the in-memory missing-value marker, to NULL.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
