package plugins

import (
	"fmt"
	"sync"

	"github.com/platinummonkey/extpoint/pkg/symref"
)

// Catalog holds the name tables used to resolve symbolic references
// to live module, class and extension point handles.
type Catalog struct {
	Modules *symref.Table
	Classes *symref.Table
	Points  *symref.Table

	mu   sync.RWMutex
	live []*Module
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.Modules = symref.NewTable(c.locateModule)
	c.Classes = symref.NewTable(c.locateClass)
	c.Points = symref.NewTable(c.locatePoint)
	return c
}

// Add makes modules visible to resolution. A module whose name is
// already present is ignored.
func (c *Catalog) Add(modules ...*Module) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range modules {
		if c.find(m.ref.Name) != nil {
			continue
		}
		c.live = append(c.live, m)
	}
}

// LiveModules returns the modules added to the catalog, in insertion order
func (c *Catalog) LiveModules() []*Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Module(nil), c.live...)
}

// ResolveModule resolves a module reference
func (c *Catalog) ResolveModule(ref symref.Ref) (*Module, error) {
	return symref.ResolveAs[*Module](c.Modules, ref)
}

// ResolveClass resolves an extension class reference
func (c *Catalog) ResolveClass(ref symref.Ref) (*Class, error) {
	return symref.ResolveAs[*Class](c.Classes, ref)
}

// ResolvePoint resolves an extension point reference
func (c *Catalog) ResolvePoint(ref symref.Ref) (*PointDecl, error) {
	return symref.ResolveAs[*PointDecl](c.Points, ref)
}

// Reset forgets every module and memoized handle
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.live = nil
	c.mu.Unlock()

	c.Modules.Reset()
	c.Classes.Reset()
	c.Points.Reset()
}

func (c *Catalog) find(name string) *Module {
	for _, m := range c.live {
		if m.ref.Name == name {
			return m
		}
	}
	return nil
}

func (c *Catalog) locateModule(name string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if m := c.find(name); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("no module named %s", name)
}

func (c *Catalog) locateClass(name string) (any, error) {
	for _, m := range c.LiveModules() {
		if class, ok := m.class(name); ok {
			return class, nil
		}
	}
	return nil, fmt.Errorf("no module declares class %s", name)
}

func (c *Catalog) locatePoint(name string) (any, error) {
	for _, m := range c.LiveModules() {
		if p, ok := m.point(name); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no module declares extension point %s", name)
}
