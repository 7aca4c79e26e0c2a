package session

import (
	"errors"

	"github.com/mcdev12/draftroom/go/internal/recordstore"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current phase
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrStoreUnavailable is returned when the record store read or write failed
	ErrStoreUnavailable = recordstore.ErrStoreUnavailable
)
