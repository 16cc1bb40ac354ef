package plugins

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/extpoint/pkg/observability"
	"github.com/platinummonkey/extpoint/pkg/symref"
)

// Extractor turns a module's declarations into ModuleInfo. Extension
// points named by registrations are resolved through the catalog, so
// they may live in another module.
type Extractor struct {
	catalog *Catalog
	log     logrus.FieldLogger
	metrics *observability.Metrics
}

// NewExtractor creates an extractor resolving points through catalog
func NewExtractor(catalog *Catalog, log logrus.FieldLogger, metrics *observability.Metrics) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{catalog: catalog, log: log, metrics: metrics}
}

// Extract runs the module's registration and validates every declaration.
// Invalid declarations are logged and left out of the result.
func (x *Extractor) Extract(m *Module) (*ModuleInfo, error) {
	decls := m.declarations()
	if decls.err != nil {
		return nil, fmt.Errorf("extract module %s: %w", m.ref.Name, decls.err)
	}

	log := x.log.WithField("module", m.ref.Name)
	desc := m.desc

	info := &ModuleInfo{
		Ref:         m.ref,
		Path:        m.path,
		DisplayName: desc.DisplayName,
		Description: desc.Description,
		Icon:        desc.Icon,
	}
	if info.DisplayName == "" {
		info.DisplayName = desc.Name
	}

	for _, rp := range decls.rejected {
		log.WithField("point", rp.name).Errorf("Invalid extension point declaration: %s", rp.reason)
		x.metrics.RecordRejected("point")
	}

	for _, p := range decls.points {
		info.ExtensionPoints = append(info.ExtensionPoints, ExtensionPointInfo{
			PointRef:      symref.New(p.Name),
			CapabilityRef: symref.New(TypeName(p.Capability)),
			Name:          p.Meta.Name,
			Description:   p.Meta.Description,
		})
	}

	for _, ed := range decls.extensions {
		ext, ok := x.extension(log, m, ed)
		if !ok {
			x.metrics.RecordRejected("extension")
			continue
		}
		info.Extensions = append(info.Extensions, ext)
	}

	return info, nil
}

func (x *Extractor) extension(log logrus.FieldLogger, m *Module, ed extensionDeclaration) (ExtensionInfo, bool) {
	log = log.WithFields(logrus.Fields{
		"class": ed.className,
		"point": ed.point,
	})

	if !isConcrete(ed) {
		log.Errorf("Extension type %s is not a concrete type with a constructor", TypeName(ed.typ))
		return ExtensionInfo{}, false
	}
	if ed.point == "" {
		log.Error("Extension registration does not name an extension point")
		return ExtensionInfo{}, false
	}

	point, err := x.catalog.ResolvePoint(symref.New(ed.point))
	if err != nil {
		log.Errorf("Extension point of registration cannot be resolved: %v", err)
		return ExtensionInfo{}, false
	}

	if !ed.typ.Implements(point.Capability) {
		log.WithField("capability", TypeName(point.Capability)).
			Errorf("Extension type %s does not implement the capability required by the extension point", TypeName(ed.typ))
		return ExtensionInfo{}, false
	}

	return ExtensionInfo{
		ExtensionRef: symref.New(ed.className),
		PointRef:     symref.New(point.Name),
		ModuleRef:    m.ref,
		Name:         ed.meta.Name,
		Description:  ed.meta.Description,
		Enabled:      !ed.meta.Disabled,
		FeatureToken: ed.meta.FeatureToken,
	}, true
}
