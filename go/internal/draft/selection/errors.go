package selection

import (
	"errors"

	"github.com/mcdev12/draftroom/go/internal/recordstore"
)

var (
	ErrNotYourTurn       = errors.New("not your turn")
	ErrPlayerUnavailable = errors.New("player is not available")
	ErrStoreUnavailable  = recordstore.ErrStoreUnavailable
)
