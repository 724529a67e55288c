// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

// MapsquareMeta describes one map-square's backing archive ids, as
// decoded from the "map_index" sub-file of archive 5 in index 0.
type MapsquareMeta struct {
	Mapsquare uint16
	Mapfile   uint16
	Locfile   uint16
	F2P       bool
}

// Coord returns the (i, j) map-square coordinate this record belongs
// to: i = mapsquare >> 8, j = mapsquare & 0xFF. i is always < 0x80.
func (m MapsquareMeta) Coord() (i, j uint8) {
	return uint8(m.Mapsquare >> 8), uint8(m.Mapsquare & 0xFF)
}

const mapIndexArchiveID = 5

// MapsquareArchiveID returns the archive id of map-square (i, j) within
// the rendering cache's map-geometry index, i | (j << 7). For example,
// (50, 50) resolves to archive 6450.
func MapsquareArchiveID(i, j uint8) uint32 {
	return uint32(i) | uint32(j)<<7
}

// ReadMapCatalog opens a scoped, throwaway CacheIndex against index 0
// of path, retrieves archive 5, and decodes its "map_index" child into
// an ordered (i, j) -> MapsquareMeta map. This applies only to the
// legacy dat/idx format.
//
// This is a free function rather than a method that temporarily
// re-scopes an already-open CacheIndex to index 0 and back: mutating a
// live CacheIndex's index id out from under concurrent callers would
// make it briefly return the wrong archives for its own index, so a
// self-contained CacheIndex scoped to index 0 is opened instead.
func ReadMapCatalog(path *CachePath, opts *Options) (map[[2]uint8]MapsquareMeta, error) {
	idx0, err := Open(0, path, opts)
	if err != nil {
		return nil, err
	}
	defer idx0.Close()

	a, err := idx0.Archive(mapIndexArchiveID)
	if err != nil {
		return nil, err
	}

	indexFile, err := a.FileNamed("map_index")
	if err != nil {
		return nil, err
	}
	// map_version and map_crc accompany map_index but are not validated
	// here; downstream coherence checks cover them.

	if len(indexFile)%7 != 0 {
		return nil, errCorrupt(0, mapIndexArchiveID, errMapIndexLength())
	}

	out := make(map[[2]uint8]MapsquareMeta, len(indexFile)/7)
	r := NewByteReader(indexFile)
	for r.Len() > 0 {
		mapsquare, err := r.U16()
		if err != nil {
			return nil, errCorrupt(0, mapIndexArchiveID, err)
		}
		mapfile, err := r.U16()
		if err != nil {
			return nil, errCorrupt(0, mapIndexArchiveID, err)
		}
		locfile, err := r.U16()
		if err != nil {
			return nil, errCorrupt(0, mapIndexArchiveID, err)
		}
		f2p, err := r.U8()
		if err != nil {
			return nil, errCorrupt(0, mapIndexArchiveID, err)
		}

		meta := MapsquareMeta{Mapsquare: mapsquare, Mapfile: mapfile, Locfile: locfile, F2P: f2p != 0}
		i, j := meta.Coord()
		out[[2]uint8{i, j}] = meta
	}

	return out, nil
}

type mapIndexLengthError struct{}

func (mapIndexLengthError) Error() string { return "map_index length is not a multiple of 7" }
func errMapIndexLength() error            { return mapIndexLengthError{} }
