package plugins

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/extpoint/pkg/fslock"
	"github.com/platinummonkey/extpoint/pkg/observability"
)

type cacheFixture struct {
	cache     *MetadataCache
	path      string
	files     []ModuleFile
	modules   []*ModuleInfo
	live      map[string]*Module
	moduleDir string
}

func newCacheFixture(t *testing.T, metrics *observability.Metrics) *cacheFixture {
	t.Helper()

	dir := t.TempDir()
	moduleDir := filepath.Join(dir, "modules")
	writeModuleFiles(t, moduleDir, "shapes.so")

	opener := newMemOpener()
	opener.modules["shapes.so"] = shapesDescriptor()

	scanner := NewScanner("", opener, quietLogger(), nil)
	files, err := scanner.ModuleFiles(moduleDir)
	require.NoError(t, err)

	modules := scanner.Load(files)
	catalog := NewCatalog()
	catalog.Add(modules...)

	info, err := NewExtractor(catalog, quietLogger(), nil).Extract(modules[0])
	require.NoError(t, err)

	return &cacheFixture{
		cache:     NewMetadataCache(quietLogger(), metrics),
		path:      filepath.Join(dir, "cache", "metadata.cache"),
		files:     files,
		modules:   []*ModuleInfo{info},
		live:      map[string]*Module{"shapes": modules[0]},
		moduleDir: moduleDir,
	}
}

func (f *cacheFixture) resolve(name string) (*Module, error) {
	if m, ok := f.live[name]; ok {
		return m, nil
	}
	return nil, errors.New("not loaded")
}

func TestMetadataCache_RoundTrip(t *testing.T) {
	f := newCacheFixture(t, nil)
	require.NoError(t, f.cache.Write(f.path, f.modules, f.files))

	got, err := f.cache.Read(f.path, f.files, f.resolve)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := f.modules[0]
	assert.Equal(t, want.Ref, got[0].Ref)
	assert.Equal(t, want.Path, got[0].Path)
	assert.Equal(t, want.DisplayName, got[0].DisplayName)
	assert.Equal(t, want.ExtensionPoints, got[0].ExtensionPoints)
	assert.Equal(t, classNames(want.Extensions), classNames(got[0].Extensions))
	for i := range want.Extensions {
		assert.Equal(t, want.Extensions[i].PointRef, got[0].Extensions[i].PointRef)
		assert.Equal(t, want.Extensions[i].ModuleRef, got[0].Extensions[i].ModuleRef)
		assert.Equal(t, want.Extensions[i].Enabled, got[0].Extensions[i].Enabled)
		assert.Equal(t, want.Extensions[i].FeatureToken, got[0].Extensions[i].FeatureToken)
	}
}

func TestMetadataCache_Staleness(t *testing.T) {
	tests := []struct {
		name   string
		change func(t *testing.T, f *cacheFixture) []ModuleFile
	}{
		{
			name: "module file newer than cache",
			change: func(t *testing.T, f *cacheFixture) []ModuleFile {
				future := time.Now().Add(time.Hour)
				require.NoError(t, os.Chtimes(f.files[0].Path, future, future))
				files, err := NewScanner("", nil, quietLogger(), nil).ModuleFiles(f.moduleDir)
				require.NoError(t, err)
				return files
			},
		},
		{
			name: "module file added",
			change: func(t *testing.T, f *cacheFixture) []ModuleFile {
				writeModuleFiles(t, f.moduleDir, "extra.so")
				past := time.Now().Add(-time.Hour)
				require.NoError(t, os.Chtimes(filepath.Join(f.moduleDir, "extra.so"), past, past))
				files, err := NewScanner("", nil, quietLogger(), nil).ModuleFiles(f.moduleDir)
				require.NoError(t, err)
				return files
			},
		},
		{
			name: "module file removed",
			change: func(t *testing.T, f *cacheFixture) []ModuleFile {
				return nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCacheFixture(t, nil)
			require.NoError(t, f.cache.Write(f.path, f.modules, f.files))

			files := tt.change(t, f)
			_, err := f.cache.Read(f.path, files, f.resolve)
			assert.ErrorIs(t, err, ErrCacheStale)

			status, err := f.cache.Status(f.path, files)
			require.NoError(t, err)
			assert.True(t, status.Stale)
			assert.NotEmpty(t, status.Reason)
		})
	}
}

func TestMetadataCache_UnresolvableModuleIsStale(t *testing.T) {
	f := newCacheFixture(t, nil)
	require.NoError(t, f.cache.Write(f.path, f.modules, f.files))

	delete(f.live, "shapes")
	_, err := f.cache.Read(f.path, f.files, f.resolve)
	assert.ErrorIs(t, err, ErrCacheStale)
}

func TestMetadataCache_ReadErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		f := newCacheFixture(t, nil)
		_, err := f.cache.Read(f.path, f.files, f.resolve)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("corrupt", func(t *testing.T) {
		f := newCacheFixture(t, nil)
		require.NoError(t, os.MkdirAll(filepath.Dir(f.path), 0o755))
		require.NoError(t, os.WriteFile(f.path, []byte("{{not yaml"), 0o644))

		_, err := f.cache.Read(f.path, f.files, f.resolve)
		assert.ErrorIs(t, err, ErrCacheCorrupt)
	})

	t.Run("version mismatch", func(t *testing.T) {
		f := newCacheFixture(t, nil)
		require.NoError(t, os.MkdirAll(filepath.Dir(f.path), 0o755))
		require.NoError(t, os.WriteFile(f.path, []byte("version: 99\ngeneration: abc\n"), 0o644))

		_, err := f.cache.Read(f.path, f.files, f.resolve)
		assert.ErrorIs(t, err, ErrCacheStale)
	})
}

func TestMetadataCache_LockContention(t *testing.T) {
	f := newCacheFixture(t, nil)
	require.NoError(t, f.cache.Write(f.path, f.modules, f.files))

	holder, err := os.OpenFile(f.path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer holder.Close()
	require.NoError(t, fslock.TryLock(holder, fslock.Exclusive))

	_, err = f.cache.Read(f.path, f.files, f.resolve)
	assert.ErrorIs(t, err, ErrCacheLocked)

	err = f.cache.Write(f.path, f.modules, f.files)
	assert.ErrorIs(t, err, ErrCacheLocked)

	require.NoError(t, fslock.Unlock(holder))
	_, err = f.cache.Read(f.path, f.files, f.resolve)
	assert.NoError(t, err)
}

func TestMetadataCache_Invalidate(t *testing.T) {
	f := newCacheFixture(t, nil)
	require.NoError(t, f.cache.Write(f.path, f.modules, f.files))

	require.NoError(t, f.cache.Invalidate(f.path))
	_, err := os.Stat(f.path)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	assert.NoError(t, f.cache.Invalidate(f.path))
}

func TestMetadataCache_Status(t *testing.T) {
	f := newCacheFixture(t, nil)
	require.NoError(t, f.cache.Write(f.path, f.modules, f.files))

	status, err := f.cache.Status(f.path, f.files)
	require.NoError(t, err)
	assert.False(t, status.Stale)
	assert.Equal(t, 1, status.Modules)
	assert.Equal(t, 1, status.Files)
	assert.Len(t, status.Generation, 36)
	assert.False(t, status.WrittenAt.IsZero())
}

func TestMetadataCache_Metrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	f := newCacheFixture(t, metrics)

	_, _ = f.cache.Read(f.path, f.files, f.resolve)
	require.NoError(t, f.cache.Write(f.path, f.modules, f.files))
	_, err := f.cache.Read(f.path, f.files, f.resolve)
	require.NoError(t, err)

	ops := metrics.CacheOperationsTotal
	assert.Equal(t, float64(1), testutil.ToFloat64(ops.WithLabelValues("read", observability.CacheMiss)))
	assert.Equal(t, float64(1), testutil.ToFloat64(ops.WithLabelValues("write", observability.CacheWritten)))
	assert.Equal(t, float64(1), testutil.ToFloat64(ops.WithLabelValues("read", observability.CacheHit)))
}
