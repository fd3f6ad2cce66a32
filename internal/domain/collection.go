package domain

import (
	"fmt"
	"strings"
)

// Collection is a topic-partitioned subset of the corpus. Defined once at startup.
type Collection struct {
	ID          string
	DisplayName string
	Description string
	Keywords    []string
}

// Catalog is the immutable, ordered set of collections known to the process.
// Order is the configuration order and serves as the routing tie-break.
type Catalog struct {
	collections []Collection
	index       map[string]int
}

// NewCatalog validates and freezes the collection list.
func NewCatalog(collections []Collection) (*Catalog, error) {
	if len(collections) == 0 {
		return nil, fmt.Errorf("%w: at least one collection is required", ErrInvalidCatalog)
	}

	c := &Catalog{
		collections: make([]Collection, len(collections)),
		index:       make(map[string]int, len(collections)),
	}
	for i, col := range collections {
		id := strings.TrimSpace(col.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: collection %d has no id", ErrInvalidCatalog, i)
		}
		if _, dup := c.index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate collection id %q", ErrInvalidCatalog, id)
		}
		if strings.TrimSpace(col.Description) == "" {
			return nil, fmt.Errorf("%w: collection %q has no description", ErrInvalidCatalog, id)
		}
		col.ID = id
		col.Keywords = append([]string(nil), col.Keywords...)
		c.collections[i] = col
		c.index[id] = i
	}
	return c, nil
}

// Len returns the number of collections.
func (c *Catalog) Len() int { return len(c.collections) }

// All returns the collections in catalog order. The slice is a copy.
func (c *Catalog) All() []Collection {
	out := make([]Collection, len(c.collections))
	copy(out, c.collections)
	return out
}

// Get looks up a collection by id.
func (c *Catalog) Get(id string) (Collection, bool) {
	i, ok := c.index[id]
	if !ok {
		return Collection{}, false
	}
	return c.collections[i], true
}

// Has reports whether id is a known collection.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// DisplayName returns the human-readable name, falling back to the id.
func (c *Catalog) DisplayName(id string) string {
	if col, ok := c.Get(id); ok && col.DisplayName != "" {
		return col.DisplayName
	}
	return id
}

// Descriptions returns collection descriptions in catalog order.
func (c *Catalog) Descriptions() []string {
	out := make([]string, len(c.collections))
	for i, col := range c.collections {
		out[i] = col.Description
	}
	return out
}
