package loader

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/leeforge/globaltree/errors"
)

// Catalog is an in-process Source populated with Register.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]*Module
}

func NewCatalog() *Catalog {
	return &Catalog{modules: make(map[string]*Module)}
}

// Register adds or replaces module id.
func (c *Catalog) Register(id string, m Module) {
	exports := make(map[string]Constructor, len(m.Exports))
	for k, v := range m.Exports {
		exports[k] = v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.modules[id] = &Module{ID: id, Exports: exports}
}

func (c *Catalog) Module(_ context.Context, id string) (*Module, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.modules[id]
	if !ok {
		return nil, apperrors.NewNotFound("plugin module", id)
	}
	return m, nil
}

// IDs lists registered module ids, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.modules))
	for id := range c.modules {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Chain consults each source in order. A source reporting not_found passes
// to the next; any other error stops the search.
type Chain []Source

func (c Chain) Module(ctx context.Context, id string) (*Module, error) {
	for _, src := range c {
		m, err := src.Module(ctx, id)
		if err == nil {
			return m, nil
		}
		if apperrors.TypeOf(err) != apperrors.ErrorTypeNotFound {
			return nil, err
		}
	}
	return nil, apperrors.NewNotFound("plugin module", id)
}

var (
	_ Source = (*Catalog)(nil)
	_ Source = Chain(nil)
)
