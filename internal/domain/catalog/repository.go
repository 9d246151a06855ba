package catalog

import "context"

type Repository interface {
	// GetItem loads an item joined with its biblio and item-status flags.
	// Returns apperrors.ErrNotFound when the item code is unknown.
	GetItem(ctx context.Context, itemCode string) (*Item, error)
}
