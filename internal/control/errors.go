package control

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when the current state could not be
	// read or written. Nothing observable changed for a failed write.
	ErrStoreUnavailable = errors.New("control: state store unavailable")

	// ErrHistoryAppend marks a write whose state landed but whose history
	// record did not. It is reported through PartialWriteError.
	ErrHistoryAppend = errors.New("control: history append failed")

	// ErrNotificationFailed wraps sink errors in logs. It is never returned.
	ErrNotificationFailed = errors.New("control: notification failed")
)

// PartialWriteError is returned alongside a WriteResult when the new state
// was stored but its history record was lost.
type PartialWriteError struct {
	Path string
	Err  error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("state updated but history append to %s failed: %v", e.Path, e.Err)
}

// Unwrap lets errors.Is match both ErrHistoryAppend and the store error.
func (e *PartialWriteError) Unwrap() []error {
	return []error{ErrHistoryAppend, e.Err}
}
