package port

import (
	"context"

	"github.com/Dhruvmer/assemblyParts/internal/core/domain"
)

// PartReader is the read surface shared by the store and its transactions.
type PartReader interface {
	// Get retrieves a part by id. Returns (nil, nil) when the part does not exist.
	Get(ctx context.Context, id string) (*domain.Part, error)
}

// PartTx is the handle passed to a transactional function. Writes become
// visible only when the function returns nil.
type PartTx interface {
	PartReader

	// ApplyDelta adjusts a part's quantity by a signed delta within the
	// transaction. A delta that would drive the quantity negative fails
	// with domain.ErrStockConflict; a missing part fails with
	// domain.PartNotFoundError.
	ApplyDelta(ctx context.Context, id string, delta int64) error
}

// PartStore is the persistence contract for parts.
type PartStore interface {
	PartReader

	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]domain.Part, error)
	Create(ctx context.Context, part domain.Part) error
	SetQuantity(ctx context.Context, id string, quantity int64) error
	Delete(ctx context.Context, id string) error

	// CountByName counts parts whose name matches case-insensitively.
	// Used to derive sequential human-readable part ids.
	CountByName(ctx context.Context, name string) (int64, error)

	// Transactionally runs fn against a transaction handle, committing
	// every write on a nil return and discarding all of them otherwise.
	Transactionally(ctx context.Context, fn func(tx PartTx) error) error
}
