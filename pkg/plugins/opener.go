package plugins

import (
	"fmt"
	"plugin"
	"regexp"
	"strings"
)

// Opener loads the module marker from a candidate file. Failures are
// returned as *LoadError so the scanner can classify them.
type Opener interface {
	Open(path string) (*Descriptor, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(path string) (*Descriptor, error)

// Open calls f(path)
func (f OpenerFunc) Open(path string) (*Descriptor, error) {
	return f(path)
}

// GoPluginOpener opens modules built with -buildmode=plugin
type GoPluginOpener struct{}

// Open loads the shared object and looks up the marker symbol
func (GoPluginOpener) Open(path string) (*Descriptor, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}

	sym, err := p.Lookup(MarkerSymbol)
	if err != nil {
		return nil, &LoadError{Path: path, Kind: KindNotModule, Err: err}
	}

	return descriptorFromSymbol(path, sym)
}

// descriptorFromSymbol accepts the marker as declared by a module: Lookup
// yields a pointer to the variable, so both *Descriptor and **Descriptor are valid.
func descriptorFromSymbol(path string, sym any) (*Descriptor, error) {
	var desc *Descriptor
	switch v := sym.(type) {
	case *Descriptor:
		desc = v
	case **Descriptor:
		if v != nil {
			desc = *v
		}
	case Descriptor:
		desc = &v
	default:
		return nil, &LoadError{
			Path: path,
			Kind: KindNotModule,
			Err:  fmt.Errorf("symbol %s has type %T, want plugins.Descriptor", MarkerSymbol, sym),
		}
	}

	if desc == nil {
		return nil, &LoadError{Path: path, Kind: KindNotModule, Err: fmt.Errorf("symbol %s is nil", MarkerSymbol)}
	}
	if desc.Name == "" {
		return nil, &LoadError{Path: path, Kind: KindBadFormat, Err: fmt.Errorf("module descriptor has no name")}
	}

	return desc, nil
}

var (
	differentVersionRe = regexp.MustCompile(`different version of package ([^\s:]+)`)
	missingLibraryRe   = regexp.MustCompile(`([^\s:]+): cannot open shared object file`)
)

var badFormatMarkers = []string{
	"invalid ELF header",
	"file too short",
	"not a dynamic executable",
	"wrong ELF class",
	"not a mach-o file",
	"slice is not valid mach-o file",
}

func classifyOpenError(path string, err error) *LoadError {
	msg := err.Error()

	var deps []string
	for _, m := range differentVersionRe.FindAllStringSubmatch(msg, -1) {
		deps = append(deps, m[1])
	}
	for _, m := range missingLibraryRe.FindAllStringSubmatch(msg, -1) {
		if !strings.HasSuffix(path, m[1]) {
			deps = append(deps, m[1])
		}
	}
	if len(deps) > 0 {
		return &LoadError{Path: path, Kind: KindMissingDependency, Dependencies: deps, Err: err}
	}

	for _, marker := range badFormatMarkers {
		if strings.Contains(msg, marker) {
			return &LoadError{Path: path, Kind: KindBadFormat, Err: err}
		}
	}

	return &LoadError{Path: path, Kind: KindOther, Err: err}
}
