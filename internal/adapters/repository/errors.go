package repository

import (
	"errors"
	"fmt"

	"github.com/okian/carematch/internal/domain/model"
)

// Sentinel kinds for repository errors. Not-found and conflict wrap the domain
// kinds so callers may classify with either.
var (
	ErrNotFound      = fmt.Errorf("repository: %w", model.ErrNotFound)
	ErrConflict      = fmt.Errorf("repository: %w", model.ErrConflict)
	ErrDuplicate     = errors.New("repository: duplicate id")
	ErrInvalidRecord = errors.New("repository: invalid record")
)
