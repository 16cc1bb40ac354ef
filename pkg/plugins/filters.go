package plugins

import (
	"reflect"
)

// Filter selects extensions during lookup and instantiation
type Filter interface {
	Test(ext ExtensionInfo) bool
}

// PredicateFilter adapts a function to the Filter interface
type PredicateFilter func(ext ExtensionInfo) bool

// Test calls f(ext)
func (f PredicateFilter) Test(ext ExtensionInfo) bool {
	return f(ext)
}

// ClassNameFilter accepts extensions whose class has exactly this name
type ClassNameFilter struct {
	Name string
}

// Test reports whether ext's class name matches
func (f ClassNameFilter) Test(ext ExtensionInfo) bool {
	return ext.ClassName() == f.Name
}

// CapabilitySetFilter accepts extensions whose class is assignable to
// every listed type
type CapabilitySetFilter struct {
	Types []reflect.Type
}

// CapabilityOf returns the type used to filter for capability T
func CapabilityOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Capabilities builds a CapabilitySetFilter from explicit types
func Capabilities(types ...reflect.Type) CapabilitySetFilter {
	return CapabilitySetFilter{Types: types}
}

// Test resolves ext's class and checks it against each type
func (f CapabilitySetFilter) Test(ext ExtensionInfo) bool {
	class, err := ext.Class()
	if err != nil {
		return false
	}
	for _, t := range f.Types {
		if !class.AssignableTo(t) {
			return false
		}
	}
	return true
}

// MarkerMatchFilter accepts extensions carrying an equivalent marker of
// the same kind for every supplied marker
type MarkerMatchFilter struct {
	Markers []Marker
}

// Test resolves ext's class and matches its markers
func (f MarkerMatchFilter) Test(ext ExtensionInfo) bool {
	class, err := ext.Class()
	if err != nil {
		return false
	}

	have := class.Markers()
	for _, want := range f.Markers {
		if !hasMatchingMarker(have, want) {
			return false
		}
	}
	return true
}

func hasMatchingMarker(have []Marker, want Marker) bool {
	for _, m := range have {
		if m.Matches(want) {
			return true
		}
	}
	return false
}

type allFilter []Filter

func (a allFilter) Test(ext ExtensionInfo) bool {
	for _, f := range a {
		if !f.Test(ext) {
			return false
		}
	}
	return true
}

// All combines filters so an extension must pass each of them.
// Nil filters are ignored; with no filters every extension passes.
func All(filters ...Filter) Filter {
	combined := make(allFilter, 0, len(filters))
	for _, f := range filters {
		if f != nil {
			combined = append(combined, f)
		}
	}
	return combined
}

func accepts(f Filter, ext ExtensionInfo) bool {
	return f == nil || f.Test(ext)
}
