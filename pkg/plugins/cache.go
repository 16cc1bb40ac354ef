package plugins

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/extpoint/pkg/fslock"
	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/platinummonkey/extpoint/pkg/symref"
)

// CacheFormatVersion is bumped whenever the cache document layout changes
const CacheFormatVersion = 1

// ModuleResolver returns the live module for a cached module name
type ModuleResolver func(name string) (*Module, error)

type cacheDocument struct {
	Version    int            `yaml:"version"`
	Generation string         `yaml:"generation"`
	WrittenAt  time.Time      `yaml:"written_at"`
	Files      []ModuleFile   `yaml:"files"`
	Modules    []cachedModule `yaml:"modules"`
}

type cachedModule struct {
	Name        string            `yaml:"name"`
	DisplayName string            `yaml:"display_name,omitempty"`
	Description string            `yaml:"description,omitempty"`
	Icon        string            `yaml:"icon,omitempty"`
	Points      []cachedPoint     `yaml:"points,omitempty"`
	Extensions  []cachedExtension `yaml:"extensions,omitempty"`
}

type cachedPoint struct {
	Point       string `yaml:"point"`
	Capability  string `yaml:"capability"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type cachedExtension struct {
	Class        string `yaml:"class"`
	Point        string `yaml:"point"`
	Name         string `yaml:"name,omitempty"`
	Description  string `yaml:"description,omitempty"`
	Enabled      bool   `yaml:"enabled"`
	FeatureToken string `yaml:"feature_token,omitempty"`
}

// CacheStatus summarizes a cache file on disk
type CacheStatus struct {
	Path       string
	Generation string
	WrittenAt  time.Time
	Modules    int
	Files      int
	Stale      bool
	Reason     string
}

// MetadataCache persists extracted module metadata between runs
type MetadataCache struct {
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// NewMetadataCache creates a metadata cache
func NewMetadataCache(log logrus.FieldLogger, metrics *observability.Metrics) *MetadataCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MetadataCache{log: log, metrics: metrics}
}

// Write replaces the cache file with modules extracted from files.
// It returns ErrCacheLocked without waiting if the file is in use.
func (c *MetadataCache) Write(path string, modules []*ModuleInfo, files []ModuleFile) error {
	err := c.write(path, modules, files)
	switch {
	case err == nil:
		c.metrics.RecordCache("write", observability.CacheWritten)
	case errors.Is(err, ErrCacheLocked):
		c.metrics.RecordCache("write", observability.CacheLocked)
	default:
		c.metrics.RecordCache("write", observability.CacheError)
	}
	return err
}

func (c *MetadataCache) write(path string, modules []*ModuleInfo, files []ModuleFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	if err := fslock.TryLock(f, fslock.Exclusive); err != nil {
		if errors.Is(err, fslock.ErrLocked) {
			return fmt.Errorf("%w: %s", ErrCacheLocked, path)
		}
		return fmt.Errorf("lock cache file: %w", err)
	}
	defer fslock.Unlock(f)

	doc := cacheDocument{
		Version:    CacheFormatVersion,
		Generation: uuid.NewString(),
		WrittenAt:  time.Now().UTC(),
		Files:      files,
		Modules:    make([]cachedModule, 0, len(modules)),
	}
	for _, m := range modules {
		doc.Modules = append(doc.Modules, toCachedModule(m))
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate cache file: %w", err)
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync cache file: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"path":       path,
		"generation": doc.Generation,
		"modules":    len(doc.Modules),
	}).Debug("Wrote metadata cache")

	return nil
}

// Read returns the cached metadata if it is still valid for files.
// Every cached module is bound back to its live module through resolve.
func (c *MetadataCache) Read(path string, files []ModuleFile, resolve ModuleResolver) ([]*ModuleInfo, error) {
	modules, err := c.read(path, files, resolve)
	switch {
	case err == nil:
		c.metrics.RecordCache("read", observability.CacheHit)
	case errors.Is(err, fs.ErrNotExist):
		c.metrics.RecordCache("read", observability.CacheMiss)
	case errors.Is(err, ErrCacheStale):
		c.metrics.RecordCache("read", observability.CacheStale)
	case errors.Is(err, ErrCacheLocked):
		c.metrics.RecordCache("read", observability.CacheLocked)
	default:
		c.metrics.RecordCache("read", observability.CacheError)
	}
	return modules, err
}

func (c *MetadataCache) read(path string, files []ModuleFile, resolve ModuleResolver) ([]*ModuleInfo, error) {
	doc, modTime, err := loadCacheDocument(path)
	if err != nil {
		return nil, err
	}

	if reason := staleReason(doc, modTime, files); reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrCacheStale, reason)
	}

	modules := make([]*ModuleInfo, 0, len(doc.Modules))
	for _, cm := range doc.Modules {
		live, err := resolve(cm.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: module %s: %w", ErrCacheStale, cm.Name, err)
		}
		modules = append(modules, fromCachedModule(cm, live.Path()))
	}

	c.log.WithFields(logrus.Fields{
		"path":       path,
		"generation": doc.Generation,
		"modules":    len(modules),
	}).Debug("Loaded metadata cache")

	return modules, nil
}

// Status inspects the cache file without resolving modules
func (c *MetadataCache) Status(path string, files []ModuleFile) (*CacheStatus, error) {
	doc, modTime, err := loadCacheDocument(path)
	if err != nil {
		return nil, err
	}

	reason := staleReason(doc, modTime, files)
	return &CacheStatus{
		Path:       path,
		Generation: doc.Generation,
		WrittenAt:  doc.WrittenAt,
		Modules:    len(doc.Modules),
		Files:      len(doc.Files),
		Stale:      reason != "",
		Reason:     reason,
	}, nil
}

// Invalidate removes the cache file. A missing file is not an error.
func (c *MetadataCache) Invalidate(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.metrics.RecordCache("invalidate", observability.CacheError)
		return fmt.Errorf("remove cache file: %w", err)
	}
	c.metrics.RecordCache("invalidate", observability.CacheMiss)
	c.log.WithField("path", path).Debug("Invalidated metadata cache")
	return nil
}

func loadCacheDocument(path string) (*cacheDocument, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	if err := fslock.TryLock(f, fslock.Shared); err != nil {
		if errors.Is(err, fslock.ErrLocked) {
			return nil, time.Time{}, fmt.Errorf("%w: %s", ErrCacheLocked, path)
		}
		return nil, time.Time{}, fmt.Errorf("lock cache file: %w", err)
	}
	defer fslock.Unlock(f)

	info, err := f.Stat()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("stat cache file: %w", err)
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read cache file: %w", err)
	}

	var doc cacheDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
	}
	if doc.Version == 0 && doc.Generation == "" {
		return nil, time.Time{}, fmt.Errorf("%w: empty document", ErrCacheCorrupt)
	}

	return &doc, info.ModTime(), nil
}

// staleReason returns why doc no longer describes files, or "" if it does
func staleReason(doc *cacheDocument, cacheModTime time.Time, files []ModuleFile) string {
	if doc.Version != CacheFormatVersion {
		return fmt.Sprintf("format version %d, want %d", doc.Version, CacheFormatVersion)
	}

	if !slices.Equal(filePaths(doc.Files), filePaths(files)) {
		return "module file set changed"
	}

	for _, f := range files {
		if f.ModTime.After(cacheModTime) {
			return fmt.Sprintf("%s is newer than the cache", f.Path)
		}
	}

	return ""
}

func filePaths(files []ModuleFile) []string {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	slices.Sort(paths)
	return paths
}

func toCachedModule(m *ModuleInfo) cachedModule {
	cm := cachedModule{
		Name:        m.Ref.Name,
		DisplayName: m.DisplayName,
		Description: m.Description,
		Icon:        m.Icon,
	}
	for _, p := range m.ExtensionPoints {
		cm.Points = append(cm.Points, cachedPoint{
			Point:       p.PointRef.Name,
			Capability:  p.CapabilityRef.Name,
			Name:        p.Name,
			Description: p.Description,
		})
	}
	for _, e := range m.Extensions {
		cm.Extensions = append(cm.Extensions, cachedExtension{
			Class:        e.ExtensionRef.Name,
			Point:        e.PointRef.Name,
			Name:         e.Name,
			Description:  e.Description,
			Enabled:      e.Enabled,
			FeatureToken: e.FeatureToken,
		})
	}
	return cm
}

func fromCachedModule(cm cachedModule, path string) *ModuleInfo {
	m := &ModuleInfo{
		Ref:         symref.New(cm.Name),
		Path:        path,
		DisplayName: cm.DisplayName,
		Description: cm.Description,
		Icon:        cm.Icon,
	}
	for _, p := range cm.Points {
		m.ExtensionPoints = append(m.ExtensionPoints, ExtensionPointInfo{
			PointRef:      symref.New(p.Point),
			CapabilityRef: symref.New(p.Capability),
			Name:          p.Name,
			Description:   p.Description,
		})
	}
	for _, e := range cm.Extensions {
		m.Extensions = append(m.Extensions, ExtensionInfo{
			ExtensionRef: symref.New(e.Class),
			PointRef:     symref.New(e.Point),
			ModuleRef:    m.Ref,
			Name:         e.Name,
			Description:  e.Description,
			Enabled:      e.Enabled,
			FeatureToken: e.FeatureToken,
		})
	}
	return m
}
