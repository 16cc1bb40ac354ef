// Package fslock applies non-blocking advisory locks to open files.
//
// Locks serialize cooperating processes as well as goroutines. Contention
// never blocks: TryLock returns ErrLocked immediately so callers can fall
// back to doing the work without the locked resource.
package fslock
