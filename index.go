// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

import "go.uber.org/zap"

// backend hides the legacy dat/idx format and the jcache database format
// behind a single archive-lookup contract. CacheIndex composes exactly
// one of these plus the decoded IndexMetadata.
type backend interface {
	// metadataBlob returns the raw (still compressed) index-metadata
	// payload for this backend's index.
	metadataBlob() ([]byte, error)
	// readRaw returns the raw (still compressed, still encrypted)
	// archive payload for archiveID, or an ArchiveNotFound/Crc/Version
	// CacheError.
	readRaw(meta *ArchiveMeta) ([]byte, error)
	// checkCoherence validates crc+version for a single archive without
	// materializing its payload.
	checkCoherence(meta *ArchiveMeta) error
	// close releases the backend's file handle or database connection.
	close() error
}

// Options configures a CacheIndex. The zero value is a valid Options
// using a no-op logger.
type Options struct {
	// Logger receives diagnostic messages. Nil selects a no-op logger.
	Logger *zap.Logger
}

func (o *Options) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// CacheIndex is the uniform facade over a single logical index,
// regardless of which on-disk format backs it.
type CacheIndex struct {
	path     *CachePath
	indexID  uint32
	metadata *IndexMetadata
	backend  backend
	log      *zap.Logger
}

// Open constructs a CacheIndex for indexID against path, auto-detecting
// the on-disk format: a jcache database (js5-{indexID}.jcache) takes
// precedence when present, otherwise the legacy dat/idx format is used.
// It loads and decompresses the index's metadata blob at open time.
func Open(indexID uint32, path *CachePath, opts *Options) (*CacheIndex, error) {
	log := opts.logger()

	b, err := openBackend(indexID, path, log)
	if err != nil {
		return nil, err
	}

	blob, err := b.metadataBlob()
	if err != nil {
		b.close()
		return nil, err
	}
	raw, err := Decompress(blob)
	if err != nil {
		b.close()
		return nil, err
	}
	metadata, err := DecodeIndexMetadata(indexID, raw)
	if err != nil {
		b.close()
		return nil, err
	}

	log.Debug("opened cache index", zap.Uint32("index_id", indexID), zap.Int("archive_count", metadata.Len()))

	return &CacheIndex{path: path, indexID: indexID, metadata: metadata, backend: b, log: log}, nil
}

// Close releases the backend's file handle or database connection.
func (ci *CacheIndex) Close() error {
	return ci.backend.close()
}

// IndexID returns the logical index this CacheIndex was opened against.
func (ci *CacheIndex) IndexID() uint32 {
	return ci.indexID
}

// Path returns the shared CachePath this CacheIndex was opened against.
func (ci *CacheIndex) Path() *CachePath {
	return ci.path
}

// Metadatas returns the index's decoded metadata mapping. The returned
// value is immutable and safe to read from multiple goroutines.
func (ci *CacheIndex) Metadatas() *IndexMetadata {
	return ci.metadata
}

// Archive retrieves, decompresses, and attaches metadata to archiveID.
func (ci *CacheIndex) Archive(archiveID uint32) (*Archive, error) {
	return ci.ArchiveWithXTEA(archiveID, nil)
}

// ArchiveWithXTEA is identical to Archive but, when key is non-nil,
// pipes the raw bytes through decrypt before decompression. decrypt is
// an external collaborator: the XTEA keystore and cipher are out of
// scope for this package.
func (ci *CacheIndex) ArchiveWithXTEA(archiveID uint32, key *XTEAKey) (*Archive, error) {
	meta := ci.metadata.Get(archiveID)
	if meta == nil {
		return nil, errArchiveNotFound(ci.indexID, archiveID)
	}

	raw, err := ci.backend.readRaw(meta)
	if err != nil {
		return nil, err
	}

	if key != nil {
		raw, err = Decrypt(raw, *key)
		if err != nil {
			return nil, errDecompression(err)
		}
	}

	data, err := Decompress(raw)
	if err != nil {
		return nil, err
	}

	return &Archive{Meta: meta, Data: data}, nil
}

// ArchiveByName computes NameHash(name), scans the index's metadata for
// the first archive whose NameHash matches, and returns its raw
// (decompressed, unsplit) bytes.
func (ci *CacheIndex) ArchiveByName(name string) ([]byte, error) {
	target := NameHash(name)
	for _, id := range ci.metadata.order {
		meta := ci.metadata.byID[id]
		if meta.NameHash != nil && *meta.NameHash == target {
			a, err := ci.Archive(id)
			if err != nil {
				return nil, err
			}
			return a.Data, nil
		}
	}
	return nil, errArchiveNotFound(ci.indexID, 0)
}

// GetFile fetches a raw payload for the archive described by meta: for
// index 0 the payload is returned undecompressed (its container is the
// caller's concern, historically a nested .jag archive); for every
// other index the payload is decompressed.
func (ci *CacheIndex) GetFile(meta *ArchiveMeta) ([]byte, error) {
	raw, err := ci.backend.readRaw(meta)
	if err != nil {
		return nil, err
	}
	if ci.indexID == 0 {
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	}
	return Decompress(raw)
}

// AssertCoherence iterates every archive in Metadatas and validates
// crc+version without materializing payloads. It returns the first
// mismatch encountered. Indices that may legally be incomplete (e.g.
// audio, textures) are the caller's responsibility to skip or ignore
// ArchiveNotFound errors for.
func (ci *CacheIndex) AssertCoherence() error {
	for _, id := range ci.metadata.order {
		meta := ci.metadata.byID[id]
		if err := ci.backend.checkCoherence(meta); err != nil {
			return err
		}
	}
	return nil
}

// XTEAKey is the 128-bit symmetric key used by some map-tile archives.
type XTEAKey [4]uint32

// Decrypt is the XTEA decryption primitive, specified by the core as an
// opaque collaborator: decrypt(bytes, key) -> bytes. The keystore that
// supplies keys, and the XTEA cipher itself, are external to this
// package (see spec Non-goals); callers that need encrypted archives
// must assign their own implementation to this variable before calling
// ArchiveWithXTEA with a non-nil key.
var Decrypt func(data []byte, key XTEAKey) ([]byte, error) = func([]byte, XTEAKey) ([]byte, error) {
	return nil, errNoDecrypter()
}

type noDecrypterError struct{}

func (noDecrypterError) Error() string {
	return "rscache.Decrypt is not configured: XTEA decryption is an external collaborator of this package"
}
func errNoDecrypter() error { return noDecrypterError{} }
