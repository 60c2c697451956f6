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

package sources

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const testContent = "** DATE: Wed Mar  4 10:15:20 2015\nSTART\t1000\n"

func readAll(t *testing.T, path string) string {
	t.Helper()
	rc, err := Open(path)
	if err != nil {
		t.Fatalf("got error when opening %v: %v", path, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("got error when reading %v: %v", path, err)
	}
	return string(b)
}

func TestOpenPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.asc")
	if err := os.WriteFile(path, []byte(testContent), 0644); err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, path); got != testContent {
		t.Errorf("got %q, expected the file content unchanged", got)
	}
}

func TestOpenGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.asc.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	gz.Write([]byte(testContent))
	gz.Close()
	f.Close()

	if got := readAll(t, path); got != testContent {
		t.Errorf("got %q, expected the decompressed content", got)
	}
}

func TestOpenZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.asc.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		t.Fatal(err)
	}
	zw.Write([]byte(testContent))
	zw.Close()
	f.Close()

	if got := readAll(t, path); got != testContent {
		t.Errorf("got %q, expected the decompressed content", got)
	}
}

func TestOpenZipPrefersAscEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("readme.txt")
	w.Write([]byte("not the recording"))
	w, _ = zw.Create("rec.asc")
	w.Write([]byte(testContent))
	zw.Close()
	f.Close()

	if got := readAll(t, path); got != testContent {
		t.Errorf("got %q, expected the .asc entry", got)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope.asc")); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}
