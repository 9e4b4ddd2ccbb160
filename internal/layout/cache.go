package layout

import (
	"github.com/puzpuzpuz/xsync"
	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	Layout Layout
	Err    *LayoutError
}

// cache memoizes record layouts by tag key. Reads take the reader side of an
// RBMutex; each key is computed at most once through the singleflight group.
type cache struct {
	mu     xsync.RBMutex
	byName map[string]cacheEntry
	group  singleflight.Group
}

func newCache() *cache {
	return &cache{byName: make(map[string]cacheEntry, 64)}
}

func (c *cache) get(key string) (cacheEntry, bool) {
	tk := c.mu.RLock()
	l, ok := c.byName[key]
	c.mu.RUnlock(tk)
	return l, ok
}

func (c *cache) put(key string, l cacheEntry) {
	c.mu.Lock()
	c.byName[key] = l
	c.mu.Unlock()
}

// do returns the cached entry for key, computing it once.
func (c *cache) do(key string, compute func() cacheEntry) cacheEntry {
	if l, ok := c.get(key); ok {
		return l
	}
	v, _, _ := c.group.Do(key, func() (any, error) {
		if l, ok := c.get(key); ok {
			return l, nil
		}
		l := compute()
		c.put(key, l)
		return l, nil
	})
	return v.(cacheEntry)
}

func (c *cache) len() int {
	tk := c.mu.RLock()
	n := len(c.byName)
	c.mu.RUnlock(tk)
	return n
}
