// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

import "testing"

// buildNamedMetadataBlob builds a protocol-5, named-index metadata blob
// for a single archive with the given child ids and name hashes.
func buildNamedMetadataBlob(archiveID uint32, childIDs, childNameHashes []uint32) []byte {
	buf := []byte{5, 0x01}
	buf = append(buf, u16(1)...)
	buf = append(buf, u16(uint16(archiveID))...)
	buf = append(buf, u32(0)...) // archive name hash, unused here
	buf = append(buf, u32(1)...) // crc
	buf = append(buf, u32(1)...) // version
	buf = append(buf, u16(uint16(len(childIDs)))...)

	prev := int64(-1)
	for _, c := range childIDs {
		if prev < 0 {
			buf = append(buf, u16(uint16(c))...)
		} else {
			buf = append(buf, u16(uint16(int64(c)-prev))...)
		}
		prev = int64(c)
	}
	for _, h := range childNameHashes {
		buf = append(buf, u32(h)...)
	}
	return buf
}

func TestReadMapCatalog(t *testing.T) {
	mapIndexHash := NameHash("map_index")
	mapVersionHash := NameHash("map_version")

	metaBlob := buildNamedMetadataBlob(mapIndexArchiveID, []uint32{0, 1}, []uint32{mapIndexHash, mapVersionHash})

	// Two map-square records: (50, 50) and (0, 1).
	record := func(i, j uint8, mapfile, locfile uint16, f2p bool) []byte {
		mapsquare := uint16(i)<<8 | uint16(j)
		f2pByte := byte(0)
		if f2p {
			f2pByte = 1
		}
		out := append([]byte{}, u16(mapsquare)...)
		out = append(out, u16(mapfile)...)
		out = append(out, u16(locfile)...)
		out = append(out, f2pByte)
		return out
	}
	mapIndex := append(record(50, 50, 1001, 2002, true), record(0, 1, 3003, 4004, false)...)
	archivePayload := buildMultiChildArchive([][][]byte{{mapIndex, []byte("v1")}})

	fx := newLegacyFixture(t)
	fx.put(pseudoIndexMeta, 0, compressNone(metaBlob))
	fx.put(0, mapIndexArchiveID, compressNone(archivePayload))
	path := fx.finish(t)

	catalog, err := ReadMapCatalog(path, nil)
	if err != nil {
		t.Fatalf("ReadMapCatalog() error: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("len(catalog) = %d, want 2", len(catalog))
	}

	m, ok := catalog[[2]uint8{50, 50}]
	if !ok {
		t.Fatalf("catalog missing (50,50)")
	}
	if m.Mapfile != 1001 || m.Locfile != 2002 || !m.F2P {
		t.Errorf("(50,50) = %+v, want Mapfile=1001 Locfile=2002 F2P=true", m)
	}
	i, j := m.Coord()
	if i != 50 || j != 50 {
		t.Errorf("Coord() = (%d,%d), want (50,50)", i, j)
	}

	m2, ok := catalog[[2]uint8{0, 1}]
	if !ok || m2.F2P {
		t.Errorf("(0,1) = %+v, want F2P=false present", m2)
	}
}

func TestMapsquareArchiveID(t *testing.T) {
	if got := MapsquareArchiveID(50, 50); got != 6450 {
		t.Errorf("MapsquareArchiveID(50,50) = %d, want 6450", got)
	}
}
