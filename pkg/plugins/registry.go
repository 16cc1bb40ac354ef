package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/platinummonkey/extpoint/pkg/symref"
)

// Options configures a Registry
type Options struct {
	// ModuleRoot is scanned recursively for plugin modules. Empty means
	// only host descriptors are registered.
	ModuleRoot string

	// Pattern is the module file suffix, DefaultPattern when empty
	Pattern string

	// CacheFile stores extracted metadata between runs. Empty disables the cache.
	CacheFile string

	// Ordering entries take precedence over entries read from OrderingFile
	Ordering     []OrderEntry
	OrderingFile string

	// Host descriptors are modules compiled into the binary
	Host []*Descriptor

	Opener      Opener
	Authorizer  Authorizer
	Logger      logrus.FieldLogger
	Metrics     *observability.Metrics
	Parallelism int
}

type registryState struct {
	modules    []*ModuleInfo
	points     []ExtensionPointInfo
	extensions []ExtensionInfo
	files      []ModuleFile
	fromCache  bool
	builtAt    time.Time
}

// Registry discovers modules once and serves extension lookups
type Registry struct {
	opts      Options
	log       logrus.FieldLogger
	metrics   *observability.Metrics
	auth      Authorizer
	catalog   *Catalog
	scanner   *Scanner
	extractor *Extractor
	cache     *MetadataCache

	mu       sync.Mutex
	built    atomic.Bool
	state    atomic.Pointer[registryState]
	buildErr error
}

// NewRegistry creates a registry. Nothing is discovered until the first
// lookup or an explicit EnsureBuilt.
func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 4
	}

	auth := opts.Authorizer
	if auth == nil {
		auth = AllowAll
	}

	log := opts.Logger
	catalog := NewCatalog()

	return &Registry{
		opts:      opts,
		log:       log,
		metrics:   opts.Metrics,
		auth:      auth,
		catalog:   catalog,
		scanner:   NewScanner(opts.Pattern, opts.Opener, log, opts.Metrics),
		extractor: NewExtractor(catalog, log, opts.Metrics),
		cache:     NewMetadataCache(log, opts.Metrics),
	}
}

// Catalog returns the name tables backing the registry
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// EnsureBuilt builds the registry on first call. Concurrent callers
// wait for the single build; its error is returned to every later caller.
func (r *Registry) EnsureBuilt() error {
	if r.built.Load() {
		return r.buildErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.built.Load() {
		return r.buildErr
	}

	state, err := r.build()
	r.buildErr = err
	if err == nil {
		r.state.Store(state)
	}
	r.built.Store(true)

	return err
}

// Reset drops the built state and every memoized handle. The next lookup
// rebuilds from scratch.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Store(nil)
	r.buildErr = nil
	r.built.Store(false)
	r.catalog.Reset()
}

func (r *Registry) build() (*registryState, error) {
	start := time.Now()
	order := r.loadOrdering()

	host := r.hostModules()
	r.catalog.Add(host...)

	var (
		files   []ModuleFile
		modules []*Module
	)
	if r.opts.ModuleRoot != "" {
		var err error
		files, err = r.scanner.ModuleFiles(r.opts.ModuleRoot)
		if err != nil {
			return nil, err
		}
		modules = r.withoutHostNames(host, r.scanner.Load(files))
		r.catalog.Add(modules...)
	}

	pluginInfos, fromCache := r.pluginMetadata(modules, files)

	infos := make([]*ModuleInfo, 0, len(host)+len(pluginInfos))
	for _, m := range host {
		info, err := r.extractor.Extract(m)
		if err != nil {
			r.log.WithField("module", m.ref.Name).Errorf("Failed to extract host module: %v", err)
			continue
		}
		infos = append(infos, info)
	}
	infos = append(infos, pluginInfos...)

	state := &registryState{
		modules:   infos,
		files:     files,
		fromCache: fromCache,
	}

	var extensions []ExtensionInfo
	for _, info := range infos {
		state.points = append(state.points, info.ExtensionPoints...)
		for _, ext := range info.Extensions {
			extensions = append(extensions, ext.bind(r.catalog))
		}
	}
	state.extensions = ApplyOrdering(applyEnabled(extensions, order), order)
	state.builtAt = time.Now()

	elapsed := time.Since(start)
	r.metrics.ObserveBuild(elapsed, len(state.extensions), len(state.points))
	r.log.WithFields(logrus.Fields{
		"modules":    len(state.modules),
		"points":     len(state.points),
		"extensions": len(state.extensions),
		"cached":     fromCache,
		"duration":   elapsed,
	}).Info("Built extension registry")

	return state, nil
}

func (r *Registry) loadOrdering() []OrderEntry {
	order := append([]OrderEntry(nil), r.opts.Ordering...)
	if r.opts.OrderingFile == "" {
		return order
	}

	loaded, err := LoadOrdering(r.opts.OrderingFile)
	if err != nil {
		r.log.WithField("path", r.opts.OrderingFile).Warnf("Ignoring extension ordering: %v", err)
		return order
	}
	return append(order, loaded...)
}

func (r *Registry) hostModules() []*Module {
	modules := make([]*Module, 0, len(r.opts.Host))
	seen := make(map[string]bool, len(r.opts.Host))
	for _, desc := range r.opts.Host {
		if desc == nil || desc.Name == "" {
			r.log.Warn("Skipping host descriptor without a name")
			continue
		}
		if seen[desc.Name] {
			r.log.WithField("module", desc.Name).Warn("Skipping duplicate host descriptor")
			continue
		}
		seen[desc.Name] = true
		modules = append(modules, NewModule("", desc))
	}
	return modules
}

func (r *Registry) withoutHostNames(host, modules []*Module) []*Module {
	names := make(map[string]bool, len(host))
	for _, m := range host {
		names[m.ref.Name] = true
	}

	kept := modules[:0]
	for _, m := range modules {
		if names[m.ref.Name] {
			r.log.WithFields(logrus.Fields{
				"module": m.ref.Name,
				"path":   m.path,
			}).Warn("Plugin module has the same name as a host module, skipping")
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// pluginMetadata reads the cache or extracts every module and refreshes it
func (r *Registry) pluginMetadata(modules []*Module, files []ModuleFile) ([]*ModuleInfo, bool) {
	if r.opts.ModuleRoot == "" {
		return nil, false
	}

	if r.opts.CacheFile != "" {
		infos, err := r.cache.Read(r.opts.CacheFile, files, r.pluginResolver(modules))
		if err == nil {
			return infos, true
		}
		log := r.log.WithField("path", r.opts.CacheFile)
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("No metadata cache, extracting modules")
		} else {
			log.Infof("Metadata cache not used, extracting modules: %v", err)
		}
	}

	infos := r.extractAll(modules)

	if r.opts.CacheFile != "" {
		if err := r.cache.Write(r.opts.CacheFile, infos, files); err != nil {
			r.log.WithField("path", r.opts.CacheFile).Warnf("Failed to write metadata cache: %v", err)
		}
	}

	return infos, false
}

func (r *Registry) pluginResolver(modules []*Module) ModuleResolver {
	return func(name string) (*Module, error) {
		for _, m := range modules {
			if m.ref.Name == name {
				return r.catalog.ResolveModule(m.ref)
			}
		}
		return nil, fmt.Errorf("no plugin module named %s", name)
	}
}

// extractAll extracts modules concurrently and returns results in input order
func (r *Registry) extractAll(modules []*Module) []*ModuleInfo {
	results := make([]*ModuleInfo, len(modules))

	var g errgroup.Group
	g.SetLimit(r.opts.Parallelism)
	for i, m := range modules {
		g.Go(func() error {
			info, err := r.extractor.Extract(m)
			if err != nil {
				r.log.WithFields(logrus.Fields{
					"module": m.ref.Name,
					"path":   m.path,
				}).Errorf("Failed to extract module metadata: %v", err)
				return nil
			}
			results[i] = info
			return nil
		})
	}
	_ = g.Wait()

	infos := make([]*ModuleInfo, 0, len(results))
	for _, info := range results {
		if info != nil {
			infos = append(infos, info)
		}
	}
	return infos
}

func (r *Registry) current() (*registryState, error) {
	if err := r.EnsureBuilt(); err != nil {
		return nil, err
	}
	state := r.state.Load()
	if state == nil {
		return nil, errors.New("extension registry was reset during lookup")
	}
	return state, nil
}

// Modules returns metadata for every module, host modules first
func (r *Registry) Modules() ([]*ModuleInfo, error) {
	state, err := r.current()
	if err != nil {
		return nil, err
	}
	return append([]*ModuleInfo(nil), state.modules...), nil
}

// ExtensionPoints returns every declared extension point
func (r *Registry) ExtensionPoints() ([]ExtensionPointInfo, error) {
	state, err := r.current()
	if err != nil {
		return nil, err
	}
	return append([]ExtensionPointInfo(nil), state.points...), nil
}

// Extensions returns every registration in global order, including
// disabled and unauthorized ones
func (r *Registry) Extensions() ([]ExtensionInfo, error) {
	state, err := r.current()
	if err != nil {
		return nil, err
	}
	return append([]ExtensionInfo(nil), state.extensions...), nil
}

// ModuleFiles returns the module files seen by the last build
func (r *Registry) ModuleFiles() ([]ModuleFile, error) {
	state, err := r.current()
	if err != nil {
		return nil, err
	}
	return append([]ModuleFile(nil), state.files...), nil
}

// FromCache reports whether plugin metadata of the last build came from the cache
func (r *Registry) FromCache() (bool, error) {
	state, err := r.current()
	if err != nil {
		return false, err
	}
	return state.fromCache, nil
}

// ListExtensions returns enabled, authorized extensions of point accepted
// by filter, in global order. A nil filter accepts everything.
func (r *Registry) ListExtensions(point symref.Ref, filter Filter) ([]ExtensionInfo, error) {
	state, err := r.current()
	if err != nil {
		return nil, err
	}

	var matches []ExtensionInfo
	for _, ext := range state.extensions {
		if !ext.PointRef.Equal(point) || !ext.Enabled || !ext.Authorized(r.auth) {
			continue
		}
		if !accepts(filter, ext) {
			continue
		}
		matches = append(matches, ext)
	}
	return matches, nil
}

// CreateExtensions instantiates matching extensions in order. Failures are
// logged and skipped; with justOne it stops after the first success.
func (r *Registry) CreateExtensions(point symref.Ref, filter Filter, justOne bool) ([]any, error) {
	exts, err := r.ListExtensions(point, filter)
	if err != nil {
		return nil, err
	}

	return instantiate(r.log, r.metrics, point, exts, justOne), nil
}

// CreateExtension returns the first matching extension that can be created
func (r *Registry) CreateExtension(point symref.Ref, filter Filter) (any, error) {
	instances, err := r.CreateExtensions(point, filter, true)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, &NoExtensionsCreatedError{Point: point.Name}
	}
	return instances[0], nil
}

// FindByClassName picks one extension of point by class name. An exact
// match wins; otherwise the name must be a case-insensitive suffix of
// exactly one class.
func (r *Registry) FindByClassName(point symref.Ref, name string) (ExtensionInfo, error) {
	exts, err := r.ListExtensions(point, nil)
	if err != nil {
		return ExtensionInfo{}, err
	}

	for _, ext := range exts {
		if ext.ClassName() == name {
			return ext, nil
		}
	}

	lower := strings.ToLower(name)
	var (
		found   []ExtensionInfo
		classes = make(map[string]bool)
	)
	for _, ext := range exts {
		class := ext.ClassName()
		if classes[class] || !strings.HasSuffix(strings.ToLower(class), lower) {
			continue
		}
		classes[class] = true
		found = append(found, ext)
	}

	switch len(found) {
	case 0:
		return ExtensionInfo{}, fmt.Errorf("%w %q for extension point %s", ErrNoClassMatch, name, point.Name)
	case 1:
		return found[0], nil
	default:
		names := make([]string, 0, len(found))
		for _, ext := range found {
			names = append(names, ext.ClassName())
		}
		return ExtensionInfo{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousClass, name, strings.Join(names, ", "))
	}
}

// CacheStatus describes the metadata cache against the current module files
func (r *Registry) CacheStatus() (*CacheStatus, error) {
	if r.opts.CacheFile == "" {
		return nil, errors.New("metadata cache is disabled")
	}

	var files []ModuleFile
	if r.opts.ModuleRoot != "" {
		var err error
		files, err = r.scanner.ModuleFiles(r.opts.ModuleRoot)
		if err != nil {
			return nil, err
		}
	}

	return r.cache.Status(r.opts.CacheFile, files)
}

// InvalidateCache removes the metadata cache file
func (r *Registry) InvalidateCache() error {
	if r.opts.CacheFile == "" {
		return nil
	}
	return r.cache.Invalidate(r.opts.CacheFile)
}

// instantiate calls the constructor of each extension in order. Failures
// are logged at debug and skipped.
func instantiate(log logrus.FieldLogger, metrics *observability.Metrics, point symref.Ref, exts []ExtensionInfo, justOne bool) []any {
	var instances []any
	for _, ext := range exts {
		instance, err := newInstance(ext)
		if err != nil {
			log.WithFields(logrus.Fields{
				"point": point.Name,
				"class": ext.ClassName(),
			}).Debugf("Failed to create extension: %v", err)
			metrics.RecordInstantiation(point.Name, false)
			continue
		}

		metrics.RecordInstantiation(point.Name, true)
		instances = append(instances, instance)
		if justOne {
			break
		}
	}
	return instances
}

func newInstance(ext ExtensionInfo) (any, error) {
	class, err := ext.Class()
	if err != nil {
		return nil, err
	}
	return class.New()
}
