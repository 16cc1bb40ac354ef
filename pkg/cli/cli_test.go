package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/extpoint/pkg/config"
	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/platinummonkey/extpoint/pkg/plugins"
)

type shape interface {
	Area() float64
}

type circle struct{ r float64 }

func (c circle) Area() float64 { return 3 * c.r * c.r }
func (c circle) String() string { return "circle" }

type square struct{ side float64 }

func (s square) Area() float64 { return s.side * s.side }

const shapePoint = "shapes.Shape"

func shapesHost() *plugins.Descriptor {
	return &plugins.Descriptor{
		Name:        "shapes",
		DisplayName: "Shapes",
		Register: func(b *plugins.Builder) {
			plugins.DeclarePoint[shape](b, shapePoint, plugins.PointMeta{Name: "Shape", Description: "Plane figures"})
			plugins.Extend(b, shapePoint, func() (circle, error) { return circle{r: 1}, nil }, plugins.ExtensionMeta{Name: "Circle"})
			plugins.Extend(b, shapePoint, func() (square, error) { return square{side: 2}, nil }, plugins.ExtensionMeta{Name: "Square", FeatureToken: "polygons"})
		},
	}
}

func className[T any]() string {
	return plugins.TypeName(reflect.TypeFor[T]())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "plugins"), 0o755))

	return &config.Config{
		Plugins: config.PluginConfig{
			ModuleDir:          filepath.Join(dir, "plugins"),
			ModulePattern:      ".so",
			Parallelism:        2,
			AuthorizedFeatures: []string{"*"},
		},
		Cache: config.CacheConfig{
			Enabled: true,
			File:    filepath.Join(dir, "cache", "metadata.cache"),
		},
		Observability: config.ObservabilityConfig{
			LogLevel:  observability.InfoLevel,
			LogFormat: observability.FormatText,
		},
		Admin: config.AdminConfig{
			Addr:            "127.0.0.1:0",
			ShutdownTimeout: time.Second,
		},
	}
}

func testApp(cfg *config.Config) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(io.Discard)

	return &App{
		Out:        out,
		Logger:     log,
		Host:       []*plugins.Descriptor{shapesHost()},
		LoadConfig: func() (*config.Config, error) { return cfg, nil },
	}, out
}

func run(app *App, args ...string) error {
	return NewRootCommand(app).ExecuteArgs(args)
}
