package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuantity rejects non-positive additions and multipliers.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrStockConflict means a concurrent writer invalidated this
	// transaction; the caller may retry.
	ErrStockConflict = errors.New("concurrent stock conflict")

	// ErrDuplicateRequest means a request id was already consumed.
	ErrDuplicateRequest = errors.New("duplicate request")

	// ErrPartExists means a part with the same id already exists.
	ErrPartExists = errors.New("part already exists")

	// ErrInvalidPart rejects malformed part definitions at authoring time.
	ErrInvalidPart = errors.New("invalid part")
)

type PartNotFoundError struct {
	PartID string
}

func (e *PartNotFoundError) Error() string {
	return fmt.Sprintf("part %s not found", e.PartID)
}

// CircularDependencyError carries the resolution path that closed the loop.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency: " + strings.Join(e.Path, " -> ")
}

type InsufficientStockError struct {
	PartID    string
	Required  int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient quantity - %s (required %d, available %d)", e.PartID, e.Required, e.Available)
}
