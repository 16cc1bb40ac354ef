// Package plugins discovers modules that extend an application and serves
// their extensions by extension point.
//
// # Overview
//
// A module is a Go plugin (built with -buildmode=plugin) or a descriptor
// compiled into the host. Either way it is described by a Descriptor whose
// Register function declares extension points and extensions:
//
//	var Plugin = plugins.Descriptor{
//		Name: "shapes",
//		Register: func(b *plugins.Builder) {
//			plugins.DeclarePoint[Shape](b, "shapes.Shape", plugins.PointMeta{Name: "Shape"})
//			plugins.Extend(b, "shapes.Shape", NewCircle, plugins.ExtensionMeta{Name: "Circle"})
//		},
//	}
//
// # Discovery
//
// Scanner: walks the module root and opens every file matching the pattern
// Extractor: validates declarations and produces ModuleInfo
// MetadataCache: stores ModuleInfo between runs, guarded by file locks
// Registry: builds once on first use and answers lookups lock free
//
// # Lookup
//
// Extensions are returned in a global order. Classes named in the ordering
// configuration come first, the rest follow in discovery order. Lookups
// only return extensions that are enabled and whose feature token, if any,
// is authorized.
//
//	shapes := plugins.NewExtensionPoint[Shape]("shapes.Shape")
//	all, err := shapes.CreateAll()
//
// Filters narrow a lookup and combine with All:
//
//	filter := plugins.All(
//		plugins.Capabilities(plugins.CapabilityOf[Resizable]()),
//		plugins.MarkerMatchFilter{Markers: []plugins.Marker{{Kind: "modality", Value: "CT"}}},
//	)
//
// # Testing
//
// TableFactory replaces discovery with an explicit table:
//
//	f := plugins.NewTableFactory()
//	plugins.AddExtension(f, "shapes.Shape", NewSquare, plugins.ExtensionMeta{})
//	_ = plugins.SetExtensionFactory(f)
//	defer plugins.ResetExtensionFactory()
//
// # Related Packages
//
//   - pkg/symref: symbolic references and resolution tables
//   - pkg/fslock: advisory file locks for the metadata cache
//   - pkg/admin: HTTP introspection of a registry
package plugins
