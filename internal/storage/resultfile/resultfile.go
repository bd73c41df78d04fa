// Package resultfile persists classification results as the JSON array that
// doubles as the next run's cache.
//
// The file is read once at start and replaced once at the end. Two runs
// pointed at the same file are not coordinated: the last writer wins.
package resultfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"playlistomatic/internal/domain"
	"playlistomatic/internal/storage/atomicfile"
)

// Cache indexes prior results by normalized id. The first entry for an id
// wins, matching the order the results were written in.
type Cache struct {
	byID  map[string]domain.ClassificationResult
	order []string
}

func NewCache(results []domain.ClassificationResult) *Cache {
	c := &Cache{byID: make(map[string]domain.ClassificationResult, len(results))}
	c.Add(results...)
	return c
}

// Add inserts results whose normalized id is not cached yet.
func (c *Cache) Add(results ...domain.ClassificationResult) {
	for _, r := range results {
		key := domain.NormalizeID(r.ID)
		if key == "" {
			continue
		}
		if _, ok := c.byID[key]; ok {
			continue
		}
		c.byID[key] = r
		c.order = append(c.order, key)
	}
}

func (c *Cache) Lookup(normalizedID string) (domain.ClassificationResult, bool) {
	if c == nil {
		return domain.ClassificationResult{}, false
	}
	r, ok := c.byID[normalizedID]
	return r, ok
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}

// Results returns cached entries in insertion order.
func (c *Cache) Results() []domain.ClassificationResult {
	out := make([]domain.ClassificationResult, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.byID[key])
	}
	return out
}

// Read decodes a result file. Unlike Load it reports every problem.
func Read(path string) ([]domain.ClassificationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results []domain.ClassificationResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return results, nil
}

// Load returns the cache for path. A missing or unparsable file yields an
// empty cache together with a *domain.CacheReadError the caller may log.
func Load(path string) (*Cache, error) {
	results, err := Read(path)
	if err != nil {
		return NewCache(nil), &domain.CacheReadError{Path: path, Err: err}
	}
	return NewCache(results), nil
}

// Save replaces path with results, pretty-printed with two-space indent.
func Save(path string, results []domain.ClassificationResult) error {
	if results == nil {
		results = []domain.ClassificationResult{}
	}
	return atomicfile.WriteFile(path, func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(results)
	})
}
