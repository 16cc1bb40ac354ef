package symref

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnresolved is matched by every ResolutionError
var ErrUnresolved = errors.New("symbol cannot be resolved")

// ResolutionError reports a name that could not be located
type ResolutionError struct {
	Name string
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unable to resolve %q", e.Name)
	}
	return fmt.Sprintf("unable to resolve %q: %v", e.Name, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Is makes every ResolutionError match ErrUnresolved
func (e *ResolutionError) Is(target error) bool {
	return target == ErrUnresolved
}

// Ref is a symbolic reference to a named type or module.
// Equality and ordering depend on the name only.
type Ref struct {
	Name string `yaml:"name" json:"name"`
}

// New creates a reference for name
func New(name string) Ref {
	return Ref{Name: name}
}

// IsZero reports whether the reference has no name
func (r Ref) IsZero() bool {
	return r.Name == ""
}

// Equal reports whether both references name the same symbol
func (r Ref) Equal(other Ref) bool {
	return r.Name == other.Name
}

// Less orders references by name
func (r Ref) Less(other Ref) bool {
	return r.Name < other.Name
}

func (r Ref) String() string {
	return r.Name
}

// Compare orders a and b by name, for use with slices.SortFunc
func Compare(a, b Ref) int {
	return strings.Compare(a.Name, b.Name)
}

// LocateFunc finds the handle for a name. It is called at most once per
// name per table unless it fails.
type LocateFunc func(name string) (any, error)

// Table memoizes name to handle resolution
type Table struct {
	mu      sync.Mutex
	locate  LocateFunc
	entries map[string]any
}

// NewTable creates a table that locates unknown names with locate
func NewTable(locate LocateFunc) *Table {
	return &Table{
		locate:  locate,
		entries: make(map[string]any),
	}
}

// SetLocator replaces the locate function. Memoized entries are kept.
func (t *Table) SetLocator(locate LocateFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locate = locate
}

// Resolve returns the handle for ref, locating it on first use.
// The lock is held across check, locate and insert so concurrent first
// resolutions of a name locate it once.
func (t *Table) Resolve(ref Ref) (any, error) {
	if ref.IsZero() {
		return nil, &ResolutionError{Name: ref.Name, Err: errors.New("empty name")}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if handle, ok := t.entries[ref.Name]; ok {
		return handle, nil
	}

	if t.locate == nil {
		return nil, &ResolutionError{Name: ref.Name, Err: errors.New("no locator configured")}
	}

	handle, err := t.locate(ref.Name)
	if err != nil {
		return nil, &ResolutionError{Name: ref.Name, Err: err}
	}
	if handle == nil {
		return nil, &ResolutionError{Name: ref.Name}
	}

	t.entries[ref.Name] = handle
	return handle, nil
}

// Bind records a known handle for a name without calling the locator
func (t *Table) Bind(ref Ref, handle any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[ref.Name] = handle
}

// Lookup returns a memoized handle without locating it
func (t *Table) Lookup(ref Ref) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	handle, ok := t.entries[ref.Name]
	return handle, ok
}

// Len returns the number of memoized handles
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Reset drops every memoized handle
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]any)
}

// ResolveAs resolves ref in table and asserts the handle type
func ResolveAs[H any](table *Table, ref Ref) (H, error) {
	var zero H

	handle, err := table.Resolve(ref)
	if err != nil {
		return zero, err
	}

	typed, ok := handle.(H)
	if !ok {
		return zero, &ResolutionError{Name: ref.Name, Err: fmt.Errorf("unexpected handle type %T", handle)}
	}

	return typed, nil
}
