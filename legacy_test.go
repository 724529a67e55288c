// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

import (
	"os"
	"path/filepath"
	"testing"
)

// legacyFixture builds a minimal, valid main_file_cache.dat / .idx{A}
// tree for tests. It is hand-rolled rather than reusing the package's
// own reader, since this package never writes caches, only reads them.
type legacyFixture struct {
	dir        string
	dat        []byte
	nextSector uint32
	idx        map[uint32]map[uint32][2]uint32 // indexID -> archiveID -> (length, firstSector)
}

func newLegacyFixture(t *testing.T) *legacyFixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return &legacyFixture{
		dir:        dir,
		dat:        make([]byte, 520), // sector 0 reserved, empty
		nextSector: 1,
		idx:        make(map[uint32]map[uint32][2]uint32),
	}
}

// put writes payload as archive (indexID, archiveID) into the sector
// chain, using the same header layout readSectors expects: an archive
// id echo, part number, next-sector pointer, and index id echo ahead
// of each sector's body bytes.
func (f *legacyFixture) put(indexID, archiveID uint32, payload []byte) {
	headerLen, bodyCap := smallIDHeader, sectorSize-smallIDHeader
	if archiveID >= 0xFFFF {
		headerLen, bodyCap = largeIDHeader, sectorSize-largeIDHeader
	}

	numParts := 1
	if len(payload) > 0 {
		numParts = (len(payload) + bodyCap - 1) / bodyCap
	}

	firstSector := f.nextSector
	read := 0
	for part := 0; part < numParts; part++ {
		sector := f.nextSector
		f.nextSector++

		needed := int(sector+1) * sectorSize
		if len(f.dat) < needed {
			f.dat = append(f.dat, make([]byte, needed-len(f.dat))...)
		}
		base := int(sector) * sectorSize
		off := base

		if headerLen == largeIDHeader {
			putU32(f.dat, off, archiveID)
			off += 4
		} else {
			putU16(f.dat, off, uint16(archiveID))
			off += 2
		}
		putU16(f.dat, off, uint16(part))
		off += 2

		var next uint32
		if part < numParts-1 {
			next = f.nextSector
		}
		putU24(f.dat, off, next)
		off += 3

		f.dat[off] = 0 // index_echo, deliberately never validated
		off++

		body := bodyCap
		if remaining := len(payload) - read; remaining < body {
			body = remaining
		}
		copy(f.dat[off:off+body], payload[read:read+body])
		read += body
	}

	if f.idx[indexID] == nil {
		f.idx[indexID] = make(map[uint32][2]uint32)
	}
	f.idx[indexID][archiveID] = [2]uint32{uint32(len(payload)), firstSector}
}

func putU16(b []byte, off int, v uint16) {
	b[off] = byte(v >> 8)
	b[off+1] = byte(v)
}

func putU24(b []byte, off int, v uint32) {
	b[off] = byte(v >> 16)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v)
}

func putU32(b []byte, off int, v uint32) {
	b[off] = byte(v >> 24)
	b[off+1] = byte(v >> 16)
	b[off+2] = byte(v >> 8)
	b[off+3] = byte(v)
}

// finish writes the accumulated dat buffer and every idx{A} file to
// disk and returns the CachePath root (the fixture's dir is {root}/cache).
func (f *legacyFixture) finish(t *testing.T) *CachePath {
	t.Helper()
	if err := os.WriteFile(filepath.Join(f.dir, "main_file_cache.dat"), f.dat, 0o644); err != nil {
		t.Fatal(err)
	}
	for indexID, archives := range f.idx {
		maxArchive := uint32(0)
		for a := range archives {
			if a > maxArchive {
				maxArchive = a
			}
		}
		buf := make([]byte, (maxArchive+1)*indexEntrySize)
		for a, entry := range archives {
			off := int(a) * indexEntrySize
			putU24(buf, off, entry[0])
			putU24(buf, off+3, entry[1])
		}
		name := "main_file_cache.idx"
		if indexID == pseudoIndexMeta {
			name += "255"
		} else {
			name += itoa(indexID)
		}
		if err := os.WriteFile(filepath.Join(f.dir, name), buf, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewCachePath(filepath.Dir(f.dir))
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

// compressNone wraps raw payload bytes in the CompressionNone container.
func compressNone(raw []byte) []byte {
	out := append([]byte{CompressionNone}, u32(uint32(len(raw)))...)
	return append(out, raw...)
}

func TestLegacyReadSectorsSingleSector(t *testing.T) {
	fx := newLegacyFixture(t)
	fx.put(4, 10, []byte("small archive body"))
	path := fx.finish(t)

	b, err := openLegacyBackend(4, path, nil)
	if err != nil {
		t.Fatalf("openLegacyBackend() error: %v", err)
	}
	defer b.close()

	data, err := b.readSectors(4, 10)
	if err != nil {
		t.Fatalf("readSectors() error: %v", err)
	}
	if string(data) != "small archive body" {
		t.Errorf("readSectors() = %q, want %q", data, "small archive body")
	}
}

func TestLegacyReadSectorsMultiSector(t *testing.T) {
	fx := newLegacyFixture(t)
	payload := make([]byte, 1500)
	for i := range payload {
		payload[i] = byte(i)
	}
	fx.put(4, 20, payload)
	path := fx.finish(t)

	b, err := openLegacyBackend(4, path, nil)
	if err != nil {
		t.Fatalf("openLegacyBackend() error: %v", err)
	}
	defer b.close()

	data, err := b.readSectors(4, 20)
	if err != nil {
		t.Fatalf("readSectors() error: %v", err)
	}
	if len(data) != len(payload) {
		t.Fatalf("len(data) = %d, want %d", len(data), len(payload))
	}
	for i := range payload {
		if data[i] != payload[i] {
			t.Fatalf("data[%d] = %d, want %d", i, data[i], payload[i])
		}
	}
}

func TestLegacyArchiveMissing(t *testing.T) {
	fx := newLegacyFixture(t)
	fx.put(4, 1, []byte("x"))
	path := fx.finish(t)

	b, err := openLegacyBackend(4, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.close()

	if _, err := b.readSectors(4, 999); err == nil {
		t.Errorf("readSectors() for missing archive: want error, got nil")
	}
}

func TestLegacyCacheNotFound(t *testing.T) {
	path := NewCachePath(t.TempDir())
	if _, err := openLegacyBackend(0, path, nil); err == nil {
		t.Errorf("openLegacyBackend() on empty dir: want error, got nil")
	}
}
