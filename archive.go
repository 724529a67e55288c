// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

// Archive is a materialized, decompressed archive plus the ArchiveMeta
// that describes it. It is owned independently by its caller once
// returned from CacheIndex.Archive.
type Archive struct {
	Meta *ArchiveMeta
	Data []byte

	children map[uint32][]byte
	split    bool
}

// File returns the decompressed bytes of the child with the given id,
// splitting the archive payload on first use and caching the result.
func (a *Archive) File(childID uint32) ([]byte, error) {
	if err := a.ensureSplit(); err != nil {
		return nil, err
	}
	b, ok := a.children[childID]
	if !ok {
		return nil, errFileNotFound(a.Meta.IndexID, a.Meta.ArchiveID, childID)
	}
	return b, nil
}

// FileNamed returns the decompressed bytes of the child whose name
// hashes to NameHash(name). It requires the owning index to be named.
func (a *Archive) FileNamed(name string) ([]byte, error) {
	if err := a.ensureSplit(); err != nil {
		return nil, err
	}
	target := NameHash(name)
	for i, h := range a.Meta.ChildNameHashes {
		if h == target {
			return a.File(a.Meta.ChildIDs[i])
		}
	}
	return nil, errFileNotFound(a.Meta.IndexID, a.Meta.ArchiveID, 0)
}

func (a *Archive) ensureSplit() error {
	if a.split {
		return nil
	}
	children, err := Split(a.Meta, a.Data)
	if err != nil {
		return err
	}
	a.children = children
	a.split = true
	return nil
}

// Split divides a decompressed archive payload into its constituent
// child files using the child-file table in meta, per the chunk-major
// interleaved layout: a trailing chunk-count byte, preceded by a
// chunks x child_count table of signed size deltas (chunk-major,
// child-major), preceded by the file bodies in the same order.
//
// When meta.ChildCount() == 1 the entire payload is the single file,
// assigned child id 0 (or meta.ChildIDs[0] if present).
func Split(meta *ArchiveMeta, payload []byte) (map[uint32][]byte, error) {
	childCount := meta.ChildCount()
	if childCount <= 1 {
		id := uint32(0)
		if childCount == 1 {
			id = meta.ChildIDs[0]
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return map[uint32][]byte{id: out}, nil
	}

	if len(payload) < 1 {
		return nil, errCorrupt(meta.IndexID, meta.ArchiveID, errTruncatedArchive())
	}
	chunks := int(payload[len(payload)-1])
	tableLen := chunks * childCount * 4
	if len(payload) < 1+tableLen {
		return nil, errCorrupt(meta.IndexID, meta.ArchiveID, errTruncatedArchive())
	}

	table := NewByteReader(payload[len(payload)-1-tableLen : len(payload)-1])
	sizes := make([][]int32, chunks)
	for c := 0; c < chunks; c++ {
		sizes[c] = make([]int32, childCount)
		for ch := 0; ch < childCount; ch++ {
			d, err := table.I32()
			if err != nil {
				return nil, errCorrupt(meta.IndexID, meta.ArchiveID, err)
			}
			sizes[c][ch] = d
		}
	}

	// Running sum per child across chunks gives each chunk's contribution.
	running := make([]int64, childCount)
	chunkSizes := make([][]int64, chunks)
	for c := 0; c < chunks; c++ {
		chunkSizes[c] = make([]int64, childCount)
		for ch := 0; ch < childCount; ch++ {
			running[ch] += int64(sizes[c][ch])
			if running[ch] < 0 {
				return nil, errCorrupt(meta.IndexID, meta.ArchiveID, errNegativeRunningSize())
			}
			chunkSizes[c][ch] = running[ch]
		}
	}

	body := payload[:len(payload)-1-tableLen]
	buffers := make([][]byte, childCount)
	for ch := 0; ch < childCount; ch++ {
		buffers[ch] = make([]byte, 0, chunks)
	}

	pos := 0
	for c := 0; c < chunks; c++ {
		for ch := 0; ch < childCount; ch++ {
			n := int(chunkSizes[c][ch])
			if pos+n > len(body) {
				return nil, errCorrupt(meta.IndexID, meta.ArchiveID, errTruncatedArchive())
			}
			buffers[ch] = append(buffers[ch], body[pos:pos+n]...)
			pos += n
		}
	}

	out := make(map[uint32][]byte, childCount)
	for i, id := range meta.ChildIDs {
		out[id] = buffers[i]
	}
	return out, nil
}

type truncatedArchiveError struct{}

func (truncatedArchiveError) Error() string { return "archive payload truncated before its chunk table" }
func errTruncatedArchive() error            { return truncatedArchiveError{} }

type negativeRunningSizeError struct{}

func (negativeRunningSizeError) Error() string {
	return "chunk size delta table produced a negative running size"
}
func errNegativeRunningSize() error { return negativeRunningSizeError{} }
