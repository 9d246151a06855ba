package reservation

import "time"

// Reservation is an outstanding hold on an item. The queue per item is
// ordered by ReservedAt ascending; the earliest entry has priority.
// Reservations are created outside this engine and consumed by it on a
// successful checkout.
type Reservation struct {
	ID         int64
	ItemCode   string
	MemberID   string
	ReservedAt time.Time
}
