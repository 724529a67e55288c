// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

// ArchiveMeta is the per-archive record decoded from an index's
// metadata blob: identity, name hash (if the index is named),
// integrity fields, and the archive's child-file table.
type ArchiveMeta struct {
	IndexID   uint32
	ArchiveID uint32
	NameHash  *uint32
	Crc       uint32
	Version   uint32
	ChildIDs  []uint32
	// ChildNameHashes holds the per-child name hash, parallel to ChildIDs,
	// when the owning index is named. Nil when the index does not use names.
	ChildNameHashes []uint32
}

// ChildCount returns the number of child files declared for this archive.
func (m *ArchiveMeta) ChildCount() int {
	return len(m.ChildIDs)
}

// IndexMetadata is an ordered, immutable archive_id -> ArchiveMeta
// mapping built once when a CacheIndex is opened.
type IndexMetadata struct {
	indexID uint32
	order   []uint32
	byID    map[uint32]*ArchiveMeta
}

// IDs returns the archive ids in ascending order.
func (m *IndexMetadata) IDs() []uint32 {
	return m.order
}

// Get returns the ArchiveMeta for id, or nil if id is not present.
func (m *IndexMetadata) Get(id uint32) *ArchiveMeta {
	return m.byID[id]
}

// Len returns the number of archives described by this metadata.
func (m *IndexMetadata) Len() int {
	return len(m.order)
}

const (
	protocolNoVersion  = 5
	protocolWithVer    = 6
	flagNamed    uint8 = 0x01
	flagLargeIDs uint8 = 0x80
)

// DecodeIndexMetadata parses a decompressed index-metadata blob into an
// IndexMetadata: a protocol byte, an optional version field, a flags
// byte (named / large-id), delta-coded archive ids, optional name
// hashes, per-archive crc/version arrays, and per-archive child-id
// tables with their own optional name hashes.
func DecodeIndexMetadata(indexID uint32, blob []byte) (*IndexMetadata, error) {
	r := NewByteReader(blob)

	protocol, err := r.U8()
	if err != nil {
		return nil, errCorrupt(indexID, 0, err)
	}
	switch protocol {
	case protocolNoVersion:
		// no trailing version field
	case protocolWithVer:
		if _, err := r.U32(); err != nil {
			return nil, errCorrupt(indexID, 0, err)
		}
	default:
		return nil, errCorrupt(indexID, 0, errUnknownProtocol(protocol))
	}

	flags, err := r.U8()
	if err != nil {
		return nil, errCorrupt(indexID, 0, err)
	}
	named := flags&flagNamed != 0
	largeIDs := flags&flagLargeIDs != 0

	readCount := func() (uint32, error) {
		if largeIDs {
			return r.U32()
		}
		v, err := r.U16()
		return uint32(v), err
	}
	readDelta := func() (uint32, error) {
		if largeIDs {
			return r.U32()
		}
		v, err := r.U16()
		return uint32(v), err
	}

	archiveCount, err := readCount()
	if err != nil {
		return nil, errCorrupt(indexID, 0, err)
	}

	archiveIDs := make([]uint32, archiveCount)
	var acc int64 = -1
	for i := range archiveIDs {
		var id uint32
		if i == 0 {
			id, err = readDelta()
		} else {
			var delta uint32
			delta, err = readDelta()
			if err == nil {
				id = uint32(acc) + delta
			}
		}
		if err != nil {
			return nil, errCorrupt(indexID, 0, err)
		}
		if int64(id) <= acc {
			return nil, errCorrupt(indexID, id, errNonMonotonic())
		}
		acc = int64(id)
		archiveIDs[i] = id
	}

	metas := make([]*ArchiveMeta, archiveCount)
	for i, id := range archiveIDs {
		metas[i] = &ArchiveMeta{IndexID: indexID, ArchiveID: id}
	}

	if named {
		for i := range metas {
			h, err := r.U32()
			if err != nil {
				return nil, errCorrupt(indexID, metas[i].ArchiveID, err)
			}
			hh := h
			metas[i].NameHash = &hh
		}
	}

	for i := range metas {
		crc, err := r.U32()
		if err != nil {
			return nil, errCorrupt(indexID, metas[i].ArchiveID, err)
		}
		metas[i].Crc = crc
	}

	for i := range metas {
		version, err := r.U32()
		if err != nil {
			return nil, errCorrupt(indexID, metas[i].ArchiveID, err)
		}
		metas[i].Version = version
	}

	childCounts := make([]uint32, archiveCount)
	for i := range childCounts {
		c, err := readCount()
		if err != nil {
			return nil, errCorrupt(indexID, metas[i].ArchiveID, err)
		}
		childCounts[i] = c
	}

	for i, count := range childCounts {
		ids := make([]uint32, count)
		var cacc int64 = -1
		for j := range ids {
			delta, err := readDelta()
			if err != nil {
				return nil, errCorrupt(indexID, metas[i].ArchiveID, err)
			}
			var id uint32
			if j == 0 {
				id = delta
			} else {
				id = uint32(cacc) + delta
			}
			if int64(id) <= cacc {
				return nil, errCorrupt(indexID, metas[i].ArchiveID, errNonMonotonic())
			}
			cacc = int64(id)
			ids[j] = id
		}
		metas[i].ChildIDs = ids
	}

	if named {
		for i, count := range childCounts {
			hashes := make([]uint32, count)
			for j := uint32(0); j < count; j++ {
				h, err := r.U32()
				if err != nil {
					return nil, errCorrupt(indexID, metas[i].ArchiveID, err)
				}
				hashes[j] = h
			}
			metas[i].ChildNameHashes = hashes
		}
	}

	byID := make(map[uint32]*ArchiveMeta, len(metas))
	for _, m := range metas {
		byID[m.ArchiveID] = m
	}

	return &IndexMetadata{indexID: indexID, order: archiveIDs, byID: byID}, nil
}

type protocolError uint8

func (e protocolError) Error() string { return "unrecognized index metadata protocol" }
func errUnknownProtocol(p uint8) error { return protocolError(p) }

type monotonicError struct{}

func (monotonicError) Error() string { return "delta-encoded id sequence is not strictly increasing" }
func errNonMonotonic() error         { return monotonicError{} }
