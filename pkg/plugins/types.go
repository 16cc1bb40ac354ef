package plugins

import (
	"errors"
	"reflect"

	"github.com/platinummonkey/extpoint/pkg/symref"
)

// ModuleInfo describes one discovered module
type ModuleInfo struct {
	Ref             symref.Ref
	Path            string
	DisplayName     string
	Description     string
	Icon            string
	ExtensionPoints []ExtensionPointInfo
	Extensions      []ExtensionInfo
}

// ExtensionPointInfo describes a declared extension point
type ExtensionPointInfo struct {
	PointRef      symref.Ref
	CapabilityRef symref.Ref
	Name          string
	Description   string
}

// ExtensionInfo describes one registration of a class against a point
type ExtensionInfo struct {
	ExtensionRef symref.Ref
	PointRef     symref.Ref
	ModuleRef    symref.Ref
	Name         string
	Description  string
	Enabled      bool
	FeatureToken string

	// catalog resolves ExtensionRef; set when the info is published
	catalog *Catalog
}

// ClassName returns the fully qualified name of the extension type
func (e ExtensionInfo) ClassName() string {
	return e.ExtensionRef.Name
}

// Authorized reports whether the feature token, if any, is licensed
func (e ExtensionInfo) Authorized(auth Authorizer) bool {
	if e.FeatureToken == "" {
		return true
	}
	if auth == nil {
		return false
	}
	return auth.IsFeatureAuthorized(e.FeatureToken)
}

// Class resolves the extension type handle
func (e ExtensionInfo) Class() (*Class, error) {
	if e.catalog == nil {
		return nil, &symref.ResolutionError{Name: e.ExtensionRef.Name, Err: errors.New("extension is not bound to a catalog")}
	}
	return e.catalog.ResolveClass(e.ExtensionRef)
}

// bind attaches the catalog used to resolve the extension's class
func (e ExtensionInfo) bind(c *Catalog) ExtensionInfo {
	e.catalog = c
	return e
}

// Marker is a declarative tag attached to an extension class. Equivalent
// decides whether two marker values match; nil means reflect.DeepEqual.
type Marker struct {
	Kind       string
	Value      any
	Equivalent func(a, b any) bool
}

// Matches reports whether other is of the same kind and equivalent to m.
// m's Equivalent is used first, then other's.
func (m Marker) Matches(other Marker) bool {
	if m.Kind != other.Kind {
		return false
	}
	if m.Equivalent != nil {
		return m.Equivalent(m.Value, other.Value)
	}
	if other.Equivalent != nil {
		return other.Equivalent(other.Value, m.Value)
	}
	return reflect.DeepEqual(m.Value, other.Value)
}
