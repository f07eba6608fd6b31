package content

import (
	"errors"
	"fmt"
)

// Query errors. All not-found variants wrap ErrNotFound.
var (
	ErrNotFound           = errors.New("not found")
	ErrNovenaNotFound     = fmt.Errorf("novena %w", ErrNotFound)
	ErrDayNotFound        = fmt.Errorf("day %w", ErrNotFound)
	ErrGlobalTextNotFound = fmt.Errorf("global text %w", ErrNotFound)

	// ErrInvalidDay is returned for day numbers outside [1, daysCount].
	ErrInvalidDay = errors.New("invalid day number")
)

// Data errors. These describe a bad content definition, never bad user input.
var (
	ErrDanglingRef    = errors.New("dangling script reference")
	ErrInvalidBlock   = errors.New("invalid block")
	ErrInvalidContent = errors.New("invalid content")
)

// LoadError reports which document failed to load.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("content: %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
