package reservation

import (
	"context"
	"fmt"
	"log/slog"
)

// PriorityGuard arbitrates competing reservations: a member may take or
// renew an item only when nobody else holds an older reservation on it.
type PriorityGuard struct {
	repo   Repository
	logger *slog.Logger
}

func NewPriorityGuard(repo Repository, logger *slog.Logger) *PriorityGuard {
	return &PriorityGuard{repo: repo, logger: logger.With("component", "ReservationPriorityGuard")}
}

// MayTake reports whether the member is entitled to the item. Permitted
// when the queue is empty or its earliest reservation belongs to the
// member.
func (g *PriorityGuard) MayTake(ctx context.Context, itemCode, memberID string) (bool, error) {
	queue, err := g.repo.ListByItem(ctx, itemCode)
	if err != nil {
		return false, fmt.Errorf("listing reservations for item %s: %w", itemCode, err)
	}
	if len(queue) == 0 {
		return true, nil
	}
	if queue[0].MemberID == memberID {
		return true, nil
	}
	g.logger.DebugContext(ctx, "Item reserved by another member",
		"item_code", itemCode,
		"requested_by", memberID,
		"held_by", queue[0].MemberID,
	)
	return false, nil
}

// HeldByOther reports whether any member other than memberID has a
// reservation on the item. Used as the informational post-check on
// returns and the blocking pre-check on renewals.
func (g *PriorityGuard) HeldByOther(ctx context.Context, itemCode, memberID string) (bool, error) {
	queue, err := g.repo.ListByItem(ctx, itemCode)
	if err != nil {
		return false, fmt.Errorf("listing reservations for item %s: %w", itemCode, err)
	}
	for _, r := range queue {
		if r.MemberID != memberID {
			return true, nil
		}
	}
	return false, nil
}
