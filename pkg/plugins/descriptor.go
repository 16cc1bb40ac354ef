package plugins

import (
	"reflect"
)

// MarkerSymbol is the exported variable a plugin module must define.
// It must be a Descriptor or a pointer to one.
const MarkerSymbol = "Plugin"

// Descriptor is the module-level marker. Register declares the module's
// points and extensions; it is called at most once per loaded Module and
// must not have other side effects.
type Descriptor struct {
	Name        string
	DisplayName string
	Description string
	Icon        string
	Register    func(b *Builder)
}

// PointMeta carries display metadata for an extension point
type PointMeta struct {
	Name        string
	Description string
}

// ExtensionMeta carries registration metadata for an extension
type ExtensionMeta struct {
	Name         string
	Description  string
	Disabled     bool
	FeatureToken string
	Markers      []Marker

	// ClassName overrides the name derived from the Go type
	ClassName string
}

// Builder records declarations made by a module's Register function
type Builder struct {
	points     []pointDeclaration
	extensions []extensionDeclaration
}

type pointDeclaration struct {
	name       string
	capability reflect.Type
	meta       PointMeta
}

type extensionDeclaration struct {
	point     string
	className string
	typ       reflect.Type
	ctor      func() (any, error)
	meta      ExtensionMeta
}

// DeclarePoint declares an extension point whose extensions must implement C.
// C has to be an interface type; other declarations are rejected at extraction.
func DeclarePoint[C any](b *Builder, name string, meta PointMeta) {
	b.points = append(b.points, pointDeclaration{
		name:       name,
		capability: reflect.TypeFor[C](),
		meta:       meta,
	})
}

// Extend registers T against the named point. A type may be registered
// against several points; each registration is validated separately.
func Extend[T any](b *Builder, point string, ctor func() (T, error), meta ExtensionMeta) {
	typ := reflect.TypeFor[T]()

	var wrapped func() (any, error)
	if ctor != nil {
		wrapped = func() (any, error) {
			return ctor()
		}
	}

	className := meta.ClassName
	if className == "" {
		className = TypeName(typ)
	}

	b.extensions = append(b.extensions, extensionDeclaration{
		point:     point,
		className: className,
		typ:       typ,
		ctor:      wrapped,
		meta:      meta,
	})
}

// TypeName returns the fully qualified name of t, ignoring pointer indirection
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if t.PkgPath() == "" || t.Name() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
