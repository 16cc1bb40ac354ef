package plugins

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/platinummonkey/extpoint/pkg/symref"
)

// Module is a live handle to a loaded module
type Module struct {
	ref  symref.Ref
	path string
	desc *Descriptor

	once  sync.Once
	decls *declarations
}

// NewModule wraps a descriptor loaded from path. Host modules have no path.
func NewModule(path string, desc *Descriptor) *Module {
	return &Module{
		ref:  symref.New(desc.Name),
		path: path,
		desc: desc,
	}
}

// Ref returns the module's symbolic reference
func (m *Module) Ref() symref.Ref {
	return m.ref
}

// Path returns the module file path, empty for host modules
func (m *Module) Path() string {
	return m.path
}

// Descriptor returns the module marker
func (m *Module) Descriptor() *Descriptor {
	return m.desc
}

// declarations runs Register once and indexes its output
func (m *Module) declarations() *declarations {
	m.once.Do(func() {
		m.decls = runRegister(m)
	})
	return m.decls
}

// class returns a concrete class declared by the module
func (m *Module) class(name string) (*Class, bool) {
	c, ok := m.declarations().classes[name]
	return c, ok
}

// point returns a valid extension point declared by the module
func (m *Module) point(name string) (*PointDecl, bool) {
	p, ok := m.declarations().pointsByName[name]
	return p, ok
}

type rejectedPoint struct {
	name   string
	reason string
}

type declarations struct {
	err          error
	points       []*PointDecl
	pointsByName map[string]*PointDecl
	rejected     []rejectedPoint
	extensions   []extensionDeclaration
	classes      map[string]*Class
}

func runRegister(m *Module) (d *declarations) {
	d = &declarations{
		pointsByName: make(map[string]*PointDecl),
		classes:      make(map[string]*Class),
	}

	if m.desc.Register == nil {
		return d
	}

	b := &Builder{}
	if err := safeRegister(m.desc.Register, b); err != nil {
		d.err = err
		return d
	}

	for _, pd := range b.points {
		switch {
		case pd.name == "":
			d.rejected = append(d.rejected, rejectedPoint{name: pd.name, reason: "extension point name is empty"})
		case pd.capability.Kind() != reflect.Interface:
			d.rejected = append(d.rejected, rejectedPoint{
				name:   pd.name,
				reason: fmt.Sprintf("capability %s is not an interface type", TypeName(pd.capability)),
			})
		case d.pointsByName[pd.name] != nil:
			d.rejected = append(d.rejected, rejectedPoint{name: pd.name, reason: "extension point declared twice"})
		default:
			p := &PointDecl{
				Name:       pd.name,
				Capability: pd.capability,
				Module:     m.ref,
				Meta:       pd.meta,
			}
			d.points = append(d.points, p)
			d.pointsByName[p.Name] = p
		}
	}

	d.extensions = b.extensions
	for _, ed := range b.extensions {
		if !isConcrete(ed) {
			continue
		}
		if c, ok := d.classes[ed.className]; ok {
			c.markers = append(c.markers, ed.meta.Markers...)
			continue
		}
		d.classes[ed.className] = &Class{
			Name:    ed.className,
			Type:    ed.typ,
			Module:  m.ref,
			ctor:    ed.ctor,
			markers: append([]Marker(nil), ed.meta.Markers...),
		}
	}

	return d
}

func safeRegister(register func(*Builder), b *Builder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module registration panicked: %v\n%s", r, debug.Stack())
		}
	}()
	register(b)
	return nil
}

func isConcrete(ed extensionDeclaration) bool {
	return ed.ctor != nil && ed.typ.Kind() != reflect.Interface
}

// PointDecl is a live handle to a validated extension point declaration
type PointDecl struct {
	Name       string
	Capability reflect.Type
	Module     symref.Ref
	Meta       PointMeta
}

// Class is a live handle to a concrete extension type
type Class struct {
	Name    string
	Type    reflect.Type
	Module  symref.Ref
	ctor    func() (any, error)
	markers []Marker
}

// NewClass builds a class handle from a typed constructor. Used by
// factories that bypass module discovery.
func NewClass[T any](name string, ctor func() (T, error), markers ...Marker) *Class {
	typ := reflect.TypeFor[T]()
	if name == "" {
		name = TypeName(typ)
	}

	var wrapped func() (any, error)
	if ctor != nil {
		wrapped = func() (any, error) {
			return ctor()
		}
	}

	return &Class{Name: name, Type: typ, ctor: wrapped, markers: markers}
}

// Markers returns the markers attached to the class
func (c *Class) Markers() []Marker {
	return append([]Marker(nil), c.markers...)
}

// AssignableTo reports whether values of the class satisfy t
func (c *Class) AssignableTo(t reflect.Type) bool {
	if t == nil || c.Type == nil {
		return false
	}
	if t.Kind() == reflect.Interface {
		return c.Type.Implements(t)
	}
	return c.Type.AssignableTo(t)
}

// New calls the constructor. A panic is reported as an error.
func (c *Class) New() (instance any, err error) {
	if c.ctor == nil {
		return nil, fmt.Errorf("class %s has no constructor", c.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("constructor of %s panicked: %v", c.Name, r)
		}
	}()

	return c.ctor()
}
