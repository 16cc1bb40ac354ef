package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/extpoint/pkg/symref"
)

func TestCatalog_ResolvesAcrossModules(t *testing.T) {
	points := NewModule("", &Descriptor{
		Name: "points",
		Register: func(b *Builder) {
			DeclarePoint[Shape](b, shapePoint, PointMeta{})
		},
	})
	impls := NewModule("/modules/impls.so", &Descriptor{
		Name: "impls",
		Register: func(b *Builder) {
			Extend(b, shapePoint, newCircle, ExtensionMeta{})
		},
	})

	c := NewCatalog()
	c.Add(points, impls)

	p, err := c.ResolvePoint(symref.New(shapePoint))
	require.NoError(t, err)
	assert.Equal(t, points.Ref(), p.Module)

	class, err := c.ResolveClass(symref.New(className[*Circle]()))
	require.NoError(t, err)
	assert.Equal(t, impls.Ref(), class.Module)

	m, err := c.ResolveModule(symref.New("impls"))
	require.NoError(t, err)
	assert.Same(t, impls, m)
}

func TestCatalog_Unresolved(t *testing.T) {
	c := NewCatalog()
	c.Add(NewModule("", shapesDescriptor()))

	_, err := c.ResolvePoint(symref.New("missing.Point"))
	require.Error(t, err)
	assert.ErrorIs(t, err, symref.ErrUnresolved)

	_, err = c.ResolveModule(symref.New("missing"))
	assert.ErrorIs(t, err, symref.ErrUnresolved)
}

func TestCatalog_AddIgnoresDuplicateNames(t *testing.T) {
	first := NewModule("/a.so", shapesDescriptor())
	second := NewModule("/b.so", shapesDescriptor())

	c := NewCatalog()
	c.Add(first, second)

	live := c.LiveModules()
	require.Len(t, live, 1)
	assert.Same(t, first, live[0])
}

func TestCatalog_Reset(t *testing.T) {
	c := NewCatalog()
	c.Add(NewModule("", shapesDescriptor()))

	_, err := c.ResolvePoint(symref.New(shapePoint))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Points.Len())

	c.Reset()

	assert.Empty(t, c.LiveModules())
	assert.Equal(t, 0, c.Points.Len())
	_, err = c.ResolvePoint(symref.New(shapePoint))
	assert.Error(t, err)
}
