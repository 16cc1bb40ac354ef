package plugins

import (
	"reflect"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/extpoint/pkg/symref"
)

// ExtensionPoint is a typed view of one extension point whose
// extensions provide capability C
type ExtensionPoint[C any] struct {
	ref     symref.Ref
	factory ExtensionFactory
}

// NewExtensionPoint returns a view that uses the process-wide factory
func NewExtensionPoint[C any](name string) *ExtensionPoint[C] {
	return &ExtensionPoint[C]{ref: symref.New(name)}
}

// NewExtensionPointWith returns a view backed by an explicit factory
func NewExtensionPointWith[C any](f ExtensionFactory, name string) *ExtensionPoint[C] {
	return &ExtensionPoint[C]{ref: symref.New(name), factory: f}
}

// Ref returns the point's symbolic reference
func (p *ExtensionPoint[C]) Ref() symref.Ref {
	return p.ref
}

// Name returns the point name
func (p *ExtensionPoint[C]) Name() string {
	return p.ref.Name
}

func (p *ExtensionPoint[C]) source() ExtensionFactory {
	if p.factory != nil {
		return p.factory
	}
	return CurrentFactory()
}

// List returns every available extension of the point
func (p *ExtensionPoint[C]) List() ([]ExtensionInfo, error) {
	return p.source().ListExtensions(p.ref, nil)
}

// ListFiltered returns the available extensions accepted by filter
func (p *ExtensionPoint[C]) ListFiltered(filter Filter) ([]ExtensionInfo, error) {
	return p.source().ListExtensions(p.ref, filter)
}

// ListWhere returns the available extensions for which pred is true
func (p *ExtensionPoint[C]) ListWhere(pred func(ExtensionInfo) bool) ([]ExtensionInfo, error) {
	return p.ListFiltered(predicate(pred))
}

// Create returns the first extension that can be created
func (p *ExtensionPoint[C]) Create() (C, error) {
	return p.CreateFiltered(nil)
}

// CreateFiltered returns the first extension accepted by filter that can be created
func (p *ExtensionPoint[C]) CreateFiltered(filter Filter) (C, error) {
	var zero C

	instances, err := p.createAll(filter, true)
	if err != nil {
		return zero, err
	}
	if len(instances) == 0 {
		return zero, &NoExtensionsCreatedError{Point: p.ref.Name}
	}
	return instances[0], nil
}

// CreateWhere returns the first extension matching pred that can be created
func (p *ExtensionPoint[C]) CreateWhere(pred func(ExtensionInfo) bool) (C, error) {
	return p.CreateFiltered(predicate(pred))
}

// CreateAll creates every available extension. No results is not an error.
func (p *ExtensionPoint[C]) CreateAll() ([]C, error) {
	return p.createAll(nil, false)
}

// CreateAllFiltered creates every available extension accepted by filter
func (p *ExtensionPoint[C]) CreateAllFiltered(filter Filter) ([]C, error) {
	return p.createAll(filter, false)
}

// CreateAllWhere creates every available extension matching pred
func (p *ExtensionPoint[C]) CreateAllWhere(pred func(ExtensionInfo) bool) ([]C, error) {
	return p.createAll(predicate(pred), false)
}

func (p *ExtensionPoint[C]) createAll(filter Filter, justOne bool) ([]C, error) {
	if t := reflect.TypeFor[C](); t.Kind() == reflect.Interface {
		filter = All(filter, Capabilities(t))
	}

	instances, err := p.source().CreateExtensions(p.ref, filter, justOne)
	if err != nil {
		return nil, err
	}

	typed := make([]C, 0, len(instances))
	for _, instance := range instances {
		c, ok := instance.(C)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"point":      p.ref.Name,
				"capability": TypeName(reflect.TypeFor[C]()),
			}).Warnf("Dropping extension of type %T that does not provide the capability", instance)
			continue
		}
		typed = append(typed, c)
	}
	return typed, nil
}

func predicate(pred func(ExtensionInfo) bool) Filter {
	if pred == nil {
		return nil
	}
	return PredicateFilter(pred)
}
