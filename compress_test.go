// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

import (
	"bytes"
	"compress/gzip"
	"testing"
)

func TestDecompressNone(t *testing.T) {
	raw := []byte("the quick brown fox")

	var payload []byte
	payload = append(payload, CompressionNone)
	payload = append(payload, u32(uint32(len(raw)))...)
	payload = append(payload, raw...)

	got, err := Decompress(payload)
	if err != nil {
		t.Fatalf("Decompress() error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("Decompress() = %q, want %q", got, raw)
	}
}

func TestDecompressGzip(t *testing.T) {
	raw := []byte("jumps over the lazy dog, jumps over the lazy dog")

	var compressed bytes.Buffer
	gz := gzip.NewWriter(&compressed)
	if _, err := gz.Write(raw); err != nil {
		t.Fatal(err)
	}
	gz.Close()

	var payload []byte
	payload = append(payload, CompressionGzip)
	payload = append(payload, u32(uint32(len(raw)))...)
	payload = append(payload, u32(uint32(compressed.Len()))...)
	payload = append(payload, compressed.Bytes()...)

	got, err := Decompress(payload)
	if err != nil {
		t.Fatalf("Decompress() error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Errorf("Decompress() = %q, want %q", got, raw)
	}
}

func TestDecompressUnknownTag(t *testing.T) {
	payload := []byte{0x7F, 0, 0, 0, 1, 0, 0, 0, 1, 0xAB}
	if _, err := Decompress(payload); err == nil {
		t.Errorf("Decompress() with unknown tag: want error, got nil")
	}
}

func TestDecompressTruncated(t *testing.T) {
	payload := []byte{CompressionNone, 0, 0, 0, 10, 1, 2} // declares 10 bytes, gives 2
	if _, err := Decompress(payload); err == nil {
		t.Errorf("Decompress() truncated: want error, got nil")
	}
}
