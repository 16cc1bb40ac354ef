package fslock

import (
	"errors"
	"os"
)

// ErrLocked is returned when another holder owns a conflicting lock
var ErrLocked = errors.New("file is locked by another holder")

// Mode selects shared or exclusive locking
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

// TryLock locks f without blocking
func TryLock(f *os.File, mode Mode) error {
	if f == nil {
		return errors.New("lock target is not open")
	}
	return tryLock(f, mode)
}

// Unlock releases a lock taken with TryLock
func Unlock(f *os.File) error {
	if f == nil {
		return nil
	}
	return unlock(f)
}
