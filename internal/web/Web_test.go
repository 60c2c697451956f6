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

package web

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackbister/asclog/internal/config"
	"github.com/jackbister/asclog/internal/records"
	"github.com/jackbister/asclog/internal/store"
)

type stubRepository struct {
	tableSlice *store.TableSlice
	tableErr   error
}

func (s *stubRepository) Add(source string, res *records.Result) (string, error) {
	return "", nil
}

func (s *stubRepository) List() ([]store.RecordingSummary, error) {
	return []store.RecordingSummary{}, nil
}

func (s *stubRepository) Get(id string) (*store.RecordingSummary, error) {
	return nil, sql.ErrNoRows
}

func (s *stubRepository) Table(id string, kind string, limit, offset int) (*store.TableSlice, error) {
	if s.tableErr != nil {
		return nil, s.tableErr
	}
	return s.tableSlice, nil
}

func serveRequest(repo store.Repository, url string) *httptest.ResponseRecorder {
	wi := webImpl{
		cfg:    &config.Config{HttpAddr: ":0"},
		repo:   repo,
		logger: slog.Default(),
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", url, nil)
	wi.handler().ServeHTTP(w, req)
	return w
}

func TestTablesUnknownKindIsBadRequest(t *testing.T) {
	repo := &stubRepository{tableErr: fmt.Errorf("%w nope, expected one of samples", store.ErrUnknownTableKind)}
	w := serveRequest(repo, "/api/v1/recordings/abc/tables/nope")
	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %v for an unknown table kind, expected %v", w.Code, http.StatusBadRequest)
	}
}

func TestTablesRepositoryErrorIsInternalError(t *testing.T) {
	repo := &stubRepository{tableErr: errors.New("disk I/O error")}
	w := serveRequest(repo, "/api/v1/recordings/abc/tables/samples")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("got status %v for a database failure, expected %v", w.Code, http.StatusInternalServerError)
	}
}

func TestTablesOkReturnsSlice(t *testing.T) {
	repo := &stubRepository{tableSlice: &store.TableSlice{Columns: []string{"block"}, Rows: [][]any{}}}
	w := serveRequest(repo, "/api/v1/recordings/abc/tables/samples")
	if w.Code != http.StatusOK {
		t.Errorf("got status %v, expected %v", w.Code, http.StatusOK)
	}
}

func TestInfoMissingRecordingIsNotFound(t *testing.T) {
	w := serveRequest(&stubRepository{}, "/api/v1/recordings/abc/info")
	if w.Code != http.StatusNotFound {
		t.Errorf("got status %v for a missing recording, expected %v", w.Code, http.StatusNotFound)
	}
}
