// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

import "fmt"

// Kind classifies a CacheError. Callers that need to distinguish error
// categories should switch on Kind rather than string-matching Error().
type Kind int

const (
	// KindCacheNotFound means the expected cache file or directory is absent.
	KindCacheNotFound Kind = iota
	// KindArchiveNotFound means the archive id is not in metadata, its row
	// is reserved-but-empty, or its sector chain is missing.
	KindArchiveNotFound
	// KindFileNotFound means a requested child id is not in an archive's
	// child table.
	KindFileNotFound
	// KindCrc means the metadata CRC does not match the stored CRC.
	KindCrc
	// KindVersion means the metadata version does not match the stored version.
	KindVersion
	// KindDecompression means a compressed container was malformed or unsupported.
	KindDecompression
	// KindEndOfInput means a buffer read ran past its end.
	KindEndOfInput
	// KindIo means an unexpected I/O failure not covered by the other kinds.
	KindIo
	// KindDatabase means the jcache backend's database driver returned an error.
	KindDatabase
	// KindCorrupt means a decoded structure violated one of its invariants
	// (non-monotonic ids, truncated buffer, negative running chunk size, ...).
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindCacheNotFound:
		return "cache not found"
	case KindArchiveNotFound:
		return "archive not found"
	case KindFileNotFound:
		return "file not found"
	case KindCrc:
		return "crc mismatch"
	case KindVersion:
		return "version mismatch"
	case KindDecompression:
		return "decompression failed"
	case KindEndOfInput:
		return "end of input"
	case KindIo:
		return "i/o error"
	case KindDatabase:
		return "database error"
	case KindCorrupt:
		return "corrupt data"
	default:
		return "unknown error"
	}
}

// CacheError is the error type returned by every fallible operation in
// this package. It carries enough context (index/archive/child ids,
// expected/actual integrity values) for a caller to decide whether to
// retry, skip, or abort without parsing the message text.
type CacheError struct {
	Kind     Kind
	IndexID  uint32
	// ArchiveID and ChildID are only meaningful for the Kinds that name
	// an archive or child file; zero otherwise.
	ArchiveID uint32
	ChildID   uint32
	Path      string
	Expected  int64
	Actual    int64
	Err       error
}

func (e *CacheError) Error() string {
	switch e.Kind {
	case KindCacheNotFound:
		return fmt.Sprintf("cache not found: %s: %v", e.Path, e.Err)
	case KindArchiveNotFound:
		return fmt.Sprintf("archive not found: index %d archive %d", e.IndexID, e.ArchiveID)
	case KindFileNotFound:
		return fmt.Sprintf("file not found: index %d archive %d child %d", e.IndexID, e.ArchiveID, e.ChildID)
	case KindCrc:
		return fmt.Sprintf("crc mismatch: index %d archive %d: expected %d, got %d", e.IndexID, e.ArchiveID, e.Expected, e.Actual)
	case KindVersion:
		return fmt.Sprintf("version mismatch: index %d archive %d: expected %d, got %d", e.IndexID, e.ArchiveID, e.Expected, e.Actual)
	case KindDecompression:
		return fmt.Sprintf("decompression failed: %v", e.Err)
	case KindEndOfInput:
		return "end of input"
	case KindIo:
		return fmt.Sprintf("io error: %s: %v", e.Path, e.Err)
	case KindDatabase:
		return fmt.Sprintf("database error: %v", e.Err)
	case KindCorrupt:
		return fmt.Sprintf("corrupt data: index %d archive %d: %v", e.IndexID, e.ArchiveID, e.Err)
	default:
		return "cache error"
	}
}

func (e *CacheError) Unwrap() error { return e.Err }

// Is reports whether target is a *CacheError of the same Kind, so
// callers can write errors.Is(err, &CacheError{Kind: KindArchiveNotFound}).
func (e *CacheError) Is(target error) bool {
	t, ok := target.(*CacheError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func errCacheNotFound(path string, cause error) error {
	return &CacheError{Kind: KindCacheNotFound, Path: path, Err: cause}
}

func errArchiveNotFound(indexID, archiveID uint32) error {
	return &CacheError{Kind: KindArchiveNotFound, IndexID: indexID, ArchiveID: archiveID}
}

func errFileNotFound(indexID, archiveID, childID uint32) error {
	return &CacheError{Kind: KindFileNotFound, IndexID: indexID, ArchiveID: archiveID, ChildID: childID}
}

func errCrc(indexID, archiveID uint32, expected, actual int64) error {
	return &CacheError{Kind: KindCrc, IndexID: indexID, ArchiveID: archiveID, Expected: expected, Actual: actual}
}

func errVersion(indexID, archiveID uint32, expected, actual int64) error {
	return &CacheError{Kind: KindVersion, IndexID: indexID, ArchiveID: archiveID, Expected: expected, Actual: actual}
}

func errDecompression(cause error) error {
	return &CacheError{Kind: KindDecompression, Err: cause}
}

// ErrEndOfInput is returned by every ByteReader primitive that would read
// past the end of the underlying buffer.
var ErrEndOfInput = &CacheError{Kind: KindEndOfInput}

func errIo(path string, cause error) error {
	return &CacheError{Kind: KindIo, Path: path, Err: cause}
}

func errDatabase(cause error) error {
	return &CacheError{Kind: KindDatabase, Err: cause}
}

func errCorrupt(indexID, archiveID uint32, cause error) error {
	return &CacheError{Kind: KindCorrupt, IndexID: indexID, ArchiveID: archiveID, Err: cause}
}
