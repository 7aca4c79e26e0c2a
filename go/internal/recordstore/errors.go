package recordstore

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when a read, update or subscribe against the store fails
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when a point read matches no row
	ErrNotFound = errors.New("record not found")
	// ErrClosed is returned when subscribing to a closed hub
	ErrClosed = errors.New("change feed closed")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
