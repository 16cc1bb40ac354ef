// Package symref provides lazily-resolved symbolic references.
//
// # Overview
//
// A Ref names a module, an extension class or an extension point without
// forcing it to be loaded. Resolution goes through a Table, a process-wide
// name to handle map guarded by a mutex. Every Ref with the same name shares
// the same memoized handle, so a name is located at most once per table.
//
// # Usage Example
//
//	table := symref.NewTable(func(name string) (any, error) {
//		return lookupClass(name)
//	})
//
//	handle, err := table.Resolve(symref.New("shapes.Circle"))
//	if err != nil {
//		var resErr *symref.ResolutionError
//		if errors.As(err, &resErr) {
//			log.Printf("cannot resolve %s", resErr.Name)
//		}
//	}
//
// Locating may have side effects, for example running a module's
// registration function the first time one of its classes is referenced.
package symref
