package plugins

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const shapePoint = "shapes.Shape"

type Shape interface {
	Area() float64
}

type Resizable interface {
	Resize(factor float64)
}

type Circle struct{ Radius float64 }

func (c *Circle) Area() float64 { return 3 * c.Radius * c.Radius }

type Square struct{ Side float64 }

func (s *Square) Area() float64         { return s.Side * s.Side }
func (s *Square) Resize(factor float64) { s.Side *= factor }

// Triangle does not implement Shape
type Triangle struct{}

func newCircle() (*Circle, error) { return &Circle{Radius: 1}, nil }
func newSquare() (*Square, error) { return &Square{Side: 2}, nil }

func className[T any]() string {
	return TypeName(reflect.TypeFor[T]())
}

func shapesDescriptor() *Descriptor {
	return &Descriptor{
		Name:        "shapes",
		DisplayName: "Shapes",
		Register: func(b *Builder) {
			DeclarePoint[Shape](b, shapePoint, PointMeta{Name: "Shape", Description: "Drawable shapes"})
			Extend(b, shapePoint, newCircle, ExtensionMeta{Name: "Circle"})
			Extend(b, shapePoint, newSquare, ExtensionMeta{Name: "Square"})
		},
	}
}

// memOpener serves descriptors by file base name and counts opens
type memOpener struct {
	mu      sync.Mutex
	modules map[string]*Descriptor
	errs    map[string]error
	opens   int
}

func newMemOpener() *memOpener {
	return &memOpener{
		modules: make(map[string]*Descriptor),
		errs:    make(map[string]error),
	}
}

func (o *memOpener) Open(path string) (*Descriptor, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++

	base := filepath.Base(path)
	if err, ok := o.errs[base]; ok {
		return nil, err
	}
	if desc, ok := o.modules[base]; ok {
		return desc, nil
	}
	return nil, &LoadError{Path: path, Kind: KindNotModule, Err: errors.New("no marker symbol")}
}

func (o *memOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// writeModuleFiles creates empty files under root and returns their paths
func writeModuleFiles(t *testing.T, root string, names ...string) []string {
	t.Helper()

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("module"), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func hookedLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func classNames(exts []ExtensionInfo) []string {
	names := make([]string, 0, len(exts))
	for _, e := range exts {
		names = append(names, e.ClassName())
	}
	return names
}

func hasEntry(hook *test.Hook, level logrus.Level, field, value string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && e.Data[field] == value {
			return true
		}
	}
	return false
}
