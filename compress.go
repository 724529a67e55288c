// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// Compression container tags, as they appear in the one-byte prefix of
// an on-disk archive payload.
const (
	CompressionNone  byte = 0
	CompressionGzip  byte = 1
	CompressionBzip2 byte = 2
	CompressionLzma  byte = 3
)

// Decompress unwraps a stored archive payload: a one-byte container
// tag, a big-endian uint32 decompressed length, and (for non-None tags)
// a big-endian uint32 compressed length followed by the compressed
// bytes. For CompressionNone, the decompressed-length bytes follow
// directly. It is a pure function; it performs no I/O of its own.
func Decompress(payload []byte) ([]byte, error) {
	r := NewByteReader(payload)
	tag, err := r.U8()
	if err != nil {
		return nil, errDecompression(err)
	}
	decompressedLen, err := r.U32()
	if err != nil {
		return nil, errDecompression(err)
	}

	if tag == CompressionNone {
		data, err := r.Bytes(int(decompressedLen))
		if err != nil {
			return nil, errDecompression(err)
		}
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	compressedLen, err := r.U32()
	if err != nil {
		return nil, errDecompression(err)
	}
	compressed, err := r.Bytes(int(compressedLen))
	if err != nil {
		return nil, errDecompression(err)
	}

	var rc io.Reader
	switch tag {
	case CompressionGzip:
		gz, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, errDecompression(err)
		}
		defer gz.Close()
		rc = gz
	case CompressionBzip2:
		rc = bzip2.NewReader(bytes.NewReader(compressed))
	case CompressionLzma:
		lz, err := lzma.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, errDecompression(err)
		}
		rc = lz
	default:
		return nil, errDecompression(errUnknownContainer(tag))
	}

	out := make([]byte, decompressedLen)
	if _, err := io.ReadFull(rc, out); err != nil {
		return nil, errDecompression(err)
	}
	return out, nil
}

type unknownContainerError byte

func (e unknownContainerError) Error() string {
	return "unknown compression container tag"
}

func errUnknownContainer(tag byte) error {
	return unknownContainerError(tag)
}
