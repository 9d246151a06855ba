package reservation

import "context"

type Repository interface {
	// ListByItem returns the item's reservation queue ordered by
	// reservation timestamp ascending. An empty slice means no holds.
	ListByItem(ctx context.Context, itemCode string) ([]Reservation, error)

	// DeleteForMember removes the member's reservation on the item, if
	// any. Called when a checkout satisfies the hold.
	DeleteForMember(ctx context.Context, memberID, itemCode string) error
}
