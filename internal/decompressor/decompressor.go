// Copyright 2021 The LegDB Authors. All rights reserved.
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

package decompressor

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"path/filepath"
)

var (
	gzipMagic  = []byte("\x1f\x8b")
	bzip2Magic = []byte("BZh")
)

// New returns a reader that transparently decompresses gzip and bzip2 streams.
// Other input, including input shorter than any magic, is returned as is.
func New(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	buf, err := br.Peek(len(bzip2Magic))
	if err != nil && err != io.EOF {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(buf, gzipMagic):
		return gzip.NewReader(br)
	case bytes.HasPrefix(buf, bzip2Magic):
		return bzip2.NewReader(br), nil
	}
	return br, nil
}

// IsCompressed reports if a file name has an extension of a compressed format.
func IsCompressed(name string) bool {
	switch filepath.Ext(name) {
	case ".gz", ".bz2":
		return len(name) > len(filepath.Ext(name))
	}
	return false
}
