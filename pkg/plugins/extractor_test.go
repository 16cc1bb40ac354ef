package plugins

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_Extract(t *testing.T) {
	m := NewModule("/modules/shapes.so", shapesDescriptor())
	c := NewCatalog()
	c.Add(m)

	info, err := NewExtractor(c, quietLogger(), nil).Extract(m)
	require.NoError(t, err)

	assert.Equal(t, "shapes", info.Ref.Name)
	assert.Equal(t, "/modules/shapes.so", info.Path)
	assert.Equal(t, "Shapes", info.DisplayName)

	require.Len(t, info.ExtensionPoints, 1)
	assert.Equal(t, shapePoint, info.ExtensionPoints[0].PointRef.Name)
	assert.Equal(t, className[Shape](), info.ExtensionPoints[0].CapabilityRef.Name)
	assert.Equal(t, "Drawable shapes", info.ExtensionPoints[0].Description)

	require.Len(t, info.Extensions, 2)
	assert.Equal(t, []string{className[*Circle](), className[*Square]()}, classNames(info.Extensions))
	for _, ext := range info.Extensions {
		assert.Equal(t, shapePoint, ext.PointRef.Name)
		assert.Equal(t, "shapes", ext.ModuleRef.Name)
		assert.True(t, ext.Enabled)
	}
}

func TestExtractor_DropsInvalidRegistrations(t *testing.T) {
	m := NewModule("", &Descriptor{
		Name: "mixed",
		Register: func(b *Builder) {
			DeclarePoint[Shape](b, shapePoint, PointMeta{})
			DeclarePoint[Resizable](b, "shapes.Resizable", PointMeta{})
			Extend(b, shapePoint, func() (*Triangle, error) { return &Triangle{}, nil }, ExtensionMeta{})
			Extend[Shape](b, shapePoint, func() (Shape, error) { return &Circle{}, nil }, ExtensionMeta{})
			Extend[*Circle](b, shapePoint, nil, ExtensionMeta{})
			Extend(b, "unknown.Point", newCircle, ExtensionMeta{})
			Extend(b, "", newCircle, ExtensionMeta{})
			Extend(b, shapePoint, newSquare, ExtensionMeta{Disabled: true, FeatureToken: "premium"})
			Extend(b, "shapes.Resizable", newSquare, ExtensionMeta{})
			Extend(b, "shapes.Resizable", newCircle, ExtensionMeta{})
		},
	})
	c := NewCatalog()
	c.Add(m)

	log, hook := hookedLogger()
	info, err := NewExtractor(c, log, nil).Extract(m)
	require.NoError(t, err)

	require.Len(t, info.Extensions, 2)
	assert.Equal(t, shapePoint, info.Extensions[0].PointRef.Name)
	assert.Equal(t, className[*Square](), info.Extensions[0].ClassName())
	assert.False(t, info.Extensions[0].Enabled)
	assert.Equal(t, "premium", info.Extensions[0].FeatureToken)
	assert.Equal(t, "shapes.Resizable", info.Extensions[1].PointRef.Name)

	var capabilityErrors int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["capability"] != nil {
			capabilityErrors++
		}
	}
	assert.Equal(t, 2, capabilityErrors)
	assert.True(t, hasEntry(hook, logrus.ErrorLevel, "capability", className[Resizable]()))
	assert.True(t, hasEntry(hook, logrus.ErrorLevel, "point", "unknown.Point"))
}

func TestExtractor_ResolvesPointsFromOtherModules(t *testing.T) {
	host := NewModule("", &Descriptor{
		Name: "host",
		Register: func(b *Builder) {
			DeclarePoint[Shape](b, shapePoint, PointMeta{})
		},
	})
	plugin := NewModule("/modules/round.so", &Descriptor{
		Name: "round",
		Register: func(b *Builder) {
			Extend(b, shapePoint, newCircle, ExtensionMeta{Name: "Circle"})
		},
	})

	c := NewCatalog()
	c.Add(host, plugin)

	info, err := NewExtractor(c, quietLogger(), nil).Extract(plugin)
	require.NoError(t, err)
	assert.Empty(t, info.ExtensionPoints)
	require.Len(t, info.Extensions, 1)
	assert.Equal(t, "round", info.Extensions[0].ModuleRef.Name)
}

func TestExtractor_RegisterPanic(t *testing.T) {
	m := NewModule("", &Descriptor{Name: "broken", Register: func(b *Builder) { panic("init failed") }})
	c := NewCatalog()
	c.Add(m)

	_, err := NewExtractor(c, quietLogger(), nil).Extract(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
