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

// Package sources opens recording files as plain text streams, applying
// whatever decompression the file extension calls for. The parse engine only
// ever sees decoded lines.
package sources

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Open returns a reader over the decoded bytes of the recording at path.
// Supported compressed containers are .gz, .zst, .bz2, .xz and .zip, any
// other extension is read as-is. For .zip the first .asc entry is used, or
// the first entry if none is named .asc.
func Open(path string) (io.ReadCloser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".zip" {
		return openZip(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening recording file %s: %w", path, err)
	}
	switch ext {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("error opening gzip stream in %s: %w", path, err)
		}
		return &decodedStream{r: gz, closers: []io.Closer{gz, f}}, nil
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("error opening zstd stream in %s: %w", path, err)
		}
		return &decodedStream{r: zr, closers: []io.Closer{closerFunc(func() error { zr.Close(); return nil }), f}}, nil
	case ".bz2":
		bz, err := bzip2.NewReader(f, nil)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("error opening bzip2 stream in %s: %w", path, err)
		}
		return &decodedStream{r: bz, closers: []io.Closer{bz, f}}, nil
	case ".xz":
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("error opening xz stream in %s: %w", path, err)
		}
		return &decodedStream{r: xr, closers: []io.Closer{f}}, nil
	default:
		return f, nil
	}
}

func openZip(path string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("error opening zip archive %s: %w", path, err)
	}
	if len(zr.File) == 0 {
		zr.Close()
		return nil, fmt.Errorf("zip archive %s contains no files", path)
	}
	entry := zr.File[0]
	for _, f := range zr.File {
		if strings.EqualFold(filepath.Ext(f.Name), ".asc") {
			entry = f
			break
		}
	}
	rc, err := entry.Open()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("error opening entry %s in zip archive %s: %w", entry.Name, path, err)
	}
	return &decodedStream{r: rc, closers: []io.Closer{rc, zr}}, nil
}

type decodedStream struct {
	r       io.Reader
	closers []io.Closer
}

func (d *decodedStream) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func (d *decodedStream) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}
