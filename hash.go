// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

import "path/filepath"

// NameHash computes the 32-bit folded name hash used to locate archives
// and child files by name: h = 0; for each byte b: h = h*31 + b, with
// wrapping 32-bit arithmetic. Callers are expected to pass already
// normalized (case-correct) names; the hash is byte-exact.
func NameHash(name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*31 + uint32(name[i])
	}
	return h
}

// CachePath is an immutable, shareable handle to a cache directory on
// disk. Multiple CacheIndex instances may be constructed against the
// same CachePath; it holds no file handles of its own.
type CachePath struct {
	root string
}

// NewCachePath wraps root. It performs no I/O; non-existence of root is
// surfaced lazily by the first CacheIndex opened against it.
func NewCachePath(root string) *CachePath {
	return &CachePath{root: root}
}

// Root returns the underlying directory path.
func (p *CachePath) Root() string {
	return p.root
}

// Join joins the cache root with the given path elements.
func (p *CachePath) Join(elem ...string) string {
	return filepath.Join(append([]string{p.root}, elem...)...)
}
