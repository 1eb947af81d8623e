package guard

import (
	"context"
	"errors"

	"fooddelivery/pkg/models"
)

// ErrReferenced is returned by a Store when the database refused a write
// because another row still points at the target.
var ErrReferenced = errors.New("record is referenced by other data")

// Child is a row owned by a parent, as seen by the ownership check.
type Child struct {
	ID   uint
	Name string
}

// Store is the slice of the entity store the guard needs. Implementations
// must translate foreign-key violations into ErrReferenced.
type Store interface {
	Count(ctx context.Context, kind models.Kind, column string, value uint) (int64, error)
	DeleteWhere(ctx context.Context, kind models.Kind, column string, value uint) (int64, error)
	DeleteByID(ctx context.Context, kind models.Kind, id uint) (int64, error)
	Exists(ctx context.Context, kind models.Kind, id uint) (bool, error)
	// Children returns rows of kind whose column equals value, ordered by id.
	Children(ctx context.Context, kind models.Kind, column string, value uint) ([]Child, error)
	// Transaction runs fn against a Store bound to a single transaction.
	// A non-nil error from fn rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// Notifier is told about every committed deletion.
type Notifier interface {
	Deleted(ctx context.Context, kind models.Kind, id uint) error
}
