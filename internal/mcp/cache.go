package mcp

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tatami-inc/eminem-sub000/internal/cursor"
	"github.com/tatami-inc/eminem-sub000/internal/parser"
	"github.com/tatami-inc/eminem-sub000/pkg/types"
)

// DefaultPreambleCacheSize is the number of files whose preamble is kept.
const DefaultPreambleCacheSize = 256

// preamble is the parsed banner and size line of one file
type preamble struct {
	desc        types.Descriptor
	dims        types.Dimensions
	compression cursor.Compression

	size    int64
	modTime time.Time
}

// preambleCache remembers preambles by path. An entry is stale once the
// file's size or modification time changes.
type preambleCache struct {
	cache *lru.Cache[string, *preamble]
}

func newPreambleCache(size int) *preambleCache {
	cache, err := lru.New[string, *preamble](size)
	if err != nil {
		// Only a non-positive size fails
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &preambleCache{cache: cache}
}

// get returns the preamble of path, parsing the file on a miss. Parse
// failures are returned as-is and never cached.
func (c *preambleCache) get(path string) (*preamble, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}

	if entry, found := c.cache.Get(path); found {
		if entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
			return entry, true, nil
		}
		c.cache.Remove(path)
	}

	entry, err := readPreamble(path)
	if err != nil {
		return nil, false, err
	}
	entry.size = info.Size()
	entry.modTime = info.ModTime()

	c.cache.Add(path, entry)
	return entry, false, nil
}

func readPreamble(path string) (*preamble, error) {
	f, err := cursor.Open(path, cursor.Options{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	p := parser.New(f, nil)
	if err := p.ScanPreamble(); err != nil {
		return nil, err
	}
	desc, _ := p.Descriptor()
	dims, _ := p.Dimensions()

	return &preamble{desc: desc, dims: dims, compression: f.Compression}, nil
}
