// Copyright 2026 The rscache Authors. All rights reserved.
// Use of this source code is governed by an Apache v2 license
// that can be found in the LICENSE file.

package rscache

import (
	"os"

	"go.uber.org/zap"
)

// openBackend auto-detects the on-disk format for indexID against path:
// a jcache database takes precedence when present, otherwise the legacy
// dat/idx format is used.
func openBackend(indexID uint32, path *CachePath, log *zap.Logger) (backend, error) {
	jcachePath := path.Join(jcacheFileName(indexID))
	if _, err := os.Stat(jcachePath); err == nil {
		return openJcacheBackend(indexID, path, log)
	}

	return openLegacyBackend(indexID, path, log)
}
