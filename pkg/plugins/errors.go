package plugins

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModuleRootMissing is returned when the module root does not exist
	ErrModuleRootMissing = errors.New("module root does not exist")

	// ErrNotPluginModule is matched by load errors for files without the module marker
	ErrNotPluginModule = errors.New("file is not a plugin module")

	// ErrCacheLocked is returned when another process holds a conflicting cache lock
	ErrCacheLocked = errors.New("metadata cache is locked")

	// ErrCacheStale is returned when the cache no longer matches the module set
	ErrCacheStale = errors.New("metadata cache is stale")

	// ErrCacheCorrupt is returned when the cache file cannot be decoded
	ErrCacheCorrupt = errors.New("metadata cache is corrupt")

	// ErrNoExtensionsCreated is matched by every NoExtensionsCreatedError
	ErrNoExtensionsCreated = errors.New("no extensions created")

	// ErrNoClassMatch is returned when no extension class matches a name
	ErrNoClassMatch = errors.New("no extension class matches")

	// ErrAmbiguousClass is returned when several extension classes match a partial name
	ErrAmbiguousClass = errors.New("extension class name is ambiguous")

	// ErrInvalidArgument is matched by every ArgumentError
	ErrInvalidArgument = errors.New("invalid argument")
)

// LoadErrorKind classifies why a candidate module could not be loaded
type LoadErrorKind int

const (
	KindOther LoadErrorKind = iota
	KindNotModule
	KindBadFormat
	KindMissingDependency
)

func (k LoadErrorKind) String() string {
	switch k {
	case KindNotModule:
		return "not_module"
	case KindBadFormat:
		return "bad_format"
	case KindMissingDependency:
		return "missing_dependency"
	default:
		return "other"
	}
}

// LoadError describes a candidate module file that failed to load
type LoadError struct {
	Path         string
	Kind         LoadErrorKind
	Dependencies []string
	Err          error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load module %s (%s)", e.Path, e.Kind)
	if len(e.Dependencies) > 0 {
		msg += ": missing " + strings.Join(e.Dependencies, ", ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches ErrNotPluginModule for KindNotModule errors
func (e *LoadError) Is(target error) bool {
	return target == ErrNotPluginModule && e.Kind == KindNotModule
}

// NoExtensionsCreatedError reports that a point produced no instance
type NoExtensionsCreatedError struct {
	Point string
}

func (e *NoExtensionsCreatedError) Error() string {
	return fmt.Sprintf("no extensions created for extension point %s", e.Point)
}

// Is makes every NoExtensionsCreatedError match ErrNoExtensionsCreated
func (e *NoExtensionsCreatedError) Is(target error) bool {
	return target == ErrNoExtensionsCreated
}

// ArgumentError reports an invalid value passed to the package
type ArgumentError struct {
	Argument string
	Message  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Argument, e.Message)
}

// Is makes every ArgumentError match ErrInvalidArgument
func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}
