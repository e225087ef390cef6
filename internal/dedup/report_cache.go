package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/p-n-ai/mentora/internal/content"
	"github.com/p-n-ai/mentora/internal/platform/cache"
)

const reportVersionKey = "dedup:reports:version"

// CacheBackend is the subset of cache.Cache used for detection reports.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Version(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) (int64, error)
}

// ReportCache stores detection reports keyed by filter and threshold. Keys
// embed a version counter; bumping it after a deletion orphans every cached
// report at once.
type ReportCache struct {
	backend CacheBackend
	ttl     time.Duration
}

// NewReportCache creates a report cache over backend.
func NewReportCache(backend CacheBackend, ttl time.Duration) *ReportCache {
	return &ReportCache{backend: backend, ttl: ttl}
}

// Key returns the cache key for f and threshold under the current version.
// Detect takes the key before reading candidates so a report computed while
// a deletion commits is written under the old version and never read.
func (c *ReportCache) Key(ctx context.Context, f content.Filter, threshold float64) (string, error) {
	v, err := c.backend.Version(ctx, reportVersionKey)
	if err != nil {
		return "", err
	}
	level := "*"
	if f.ClassLevel != nil {
		level = strconv.Itoa(*f.ClassLevel)
	}
	sum := sha256.Sum256([]byte(level + "|" + f.SubjectID + "|" + strconv.FormatFloat(threshold, 'g', -1, 64)))
	return fmt.Sprintf("dedup:reports:v%d:%s", v, hex.EncodeToString(sum[:12])), nil
}

// Get returns the report cached under key. The bool is false on a miss.
func (c *ReportCache) Get(ctx context.Context, key string) (Report, bool, error) {
	data, err := c.backend.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return Report{}, false, nil
	}
	if err != nil {
		return Report{}, false, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, false, fmt.Errorf("decode cached report: %w", err)
	}
	return r, true, nil
}

// Put caches r under key.
func (c *ReportCache) Put(ctx context.Context, key string, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return c.backend.Set(ctx, key, data, c.ttl)
}

// Invalidate drops every cached report.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	_, err := c.backend.Bump(ctx, reportVersionKey)
	return err
}
