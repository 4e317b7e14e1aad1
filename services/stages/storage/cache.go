// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const reportPrefix = "report/"

// Key hashes inputs into a cache key. Each input is length-prefixed, so
// moving bytes between adjacent inputs changes the key.
func Key(inputs ...[]byte) string {
	h := sha256.New()
	var n [8]byte
	for _, in := range inputs {
		binary.BigEndian.PutUint64(n[:], uint64(len(in)))
		h.Write(n[:])
		h.Write(in)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ReportCache stores JSON-encoded reports by key.
//
// Thread Safety: Safe for concurrent use.
type ReportCache struct {
	db     *DB
	logger *slog.Logger
}

// NewReportCache wraps db. A nil logger means slog.Default().
func NewReportCache(db *DB, logger *slog.Logger) *ReportCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportCache{db: db, logger: logger}
}

// Get decodes the entry stored under key into into.
//
// Outputs:
//
//	bool - False with a nil error on a miss or an expired entry.
//	error - Read or decode failure.
func (c *ReportCache) Get(ctx context.Context, key string, into any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportPrefix + key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.logger.Debug("report cache miss", slog.String("key", key))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cached report: %w", err)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return false, fmt.Errorf("decode cached report: %w", err)
	}
	c.logger.Debug("report cache hit", slog.String("key", key), slog.Int("bytes", len(raw)))
	return true, nil
}

// Put stores v under key. A non-positive ttl keeps the entry until it is
// overwritten.
func (c *ReportCache) Put(ctx context.Context, key string, v any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	entry := badger.NewEntry([]byte(reportPrefix+key), raw)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		return fmt.Errorf("write cached report: %w", err)
	}
	return nil
}
