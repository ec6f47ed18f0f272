package stroke

import "sync"

// Cache maps a path identity to its resolved geometry. Entries are created on
// first use and live until Clear; a failed parse is remembered as a nil entry
// so malformed data is not re-parsed every frame.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Geometry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Geometry)}
}

// Resolve returns the geometry for id, parsing data on the first call.
// ok is false when the data could not be parsed.
func (c *Cache) Resolve(id, data string) (g *Geometry, ok bool) {
	key := id
	if key == "" {
		key = data
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if g, hit := c.entries[key]; hit {
		return g, g != nil
	}

	pts, err := ParsePoints(data)
	if err != nil {
		c.entries[key] = nil
		return nil, false
	}
	g = NewGeometry(pts)
	c.entries[key] = g
	return g, true
}

// Len reports the number of cached entries, including failed ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*Geometry)
	c.mu.Unlock()
}
