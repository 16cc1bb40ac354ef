package plugins

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/extpoint/pkg/symref"
)

// ExtensionFactory lists and instantiates extensions of a point
type ExtensionFactory interface {
	ListExtensions(point symref.Ref, filter Filter) ([]ExtensionInfo, error)
	CreateExtensions(point symref.Ref, filter Filter, justOne bool) ([]any, error)
}

var (
	factoryMu sync.RWMutex
	factory   ExtensionFactory
)

// SetExtensionFactory replaces the process-wide factory
func SetExtensionFactory(f ExtensionFactory) error {
	if f == nil {
		return &ArgumentError{Argument: "factory", Message: "extension factory must not be nil"}
	}

	factoryMu.Lock()
	defer factoryMu.Unlock()
	factory = f
	return nil
}

// ResetExtensionFactory restores the factory backed by the default registry
func ResetExtensionFactory() {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factory = nil
}

// CurrentFactory returns the process-wide factory
func CurrentFactory() ExtensionFactory {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	if factory == nil {
		return registryFactory{}
	}
	return factory
}

// registryFactory delegates to whichever registry is the default at call time
type registryFactory struct{}

func (registryFactory) ListExtensions(point symref.Ref, filter Filter) ([]ExtensionInfo, error) {
	return Default().ListExtensions(point, filter)
}

func (registryFactory) CreateExtensions(point symref.Ref, filter Filter, justOne bool) ([]any, error) {
	return Default().CreateExtensions(point, filter, justOne)
}

// TableFactory serves extensions from an explicit table instead of
// discovered modules. Intended for tests.
type TableFactory struct {
	mu      sync.RWMutex
	catalog *Catalog
	entries []ExtensionInfo
	auth    Authorizer
	log     logrus.FieldLogger
}

// NewTableFactory creates an empty table that authorizes every feature
func NewTableFactory() *TableFactory {
	return &TableFactory{
		catalog: NewCatalog(),
		auth:    AllowAll,
		log:     logrus.StandardLogger(),
	}
}

// SetAuthorizer replaces the authorizer used to filter licensed extensions
func (f *TableFactory) SetAuthorizer(auth Authorizer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if auth == nil {
		auth = AllowAll
	}
	f.auth = auth
}

// Add registers class against point. Entries keep insertion order.
func (f *TableFactory) Add(point string, class *Class, meta ExtensionMeta) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ref := symref.New(class.Name)
	f.catalog.Classes.Bind(ref, class)

	entry := ExtensionInfo{
		ExtensionRef: ref,
		PointRef:     symref.New(point),
		ModuleRef:    symref.New("table"),
		Name:         meta.Name,
		Description:  meta.Description,
		Enabled:      !meta.Disabled,
		FeatureToken: meta.FeatureToken,
	}
	f.entries = append(f.entries, entry.bind(f.catalog))
}

// AddExtension registers a typed constructor against point
func AddExtension[T any](f *TableFactory, point string, ctor func() (T, error), meta ExtensionMeta) {
	f.Add(point, NewClass(meta.ClassName, ctor, meta.Markers...), meta)
}

// ListExtensions returns enabled, authorized entries of point accepted by filter
func (f *TableFactory) ListExtensions(point symref.Ref, filter Filter) ([]ExtensionInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var matches []ExtensionInfo
	for _, ext := range f.entries {
		if ext.PointRef.Equal(point) && ext.Enabled && ext.Authorized(f.auth) && accepts(filter, ext) {
			matches = append(matches, ext)
		}
	}
	return matches, nil
}

// CreateExtensions instantiates matching entries in order
func (f *TableFactory) CreateExtensions(point symref.Ref, filter Filter, justOne bool) ([]any, error) {
	exts, err := f.ListExtensions(point, filter)
	if err != nil {
		return nil, err
	}
	return instantiate(f.log, nil, point, exts, justOne), nil
}
