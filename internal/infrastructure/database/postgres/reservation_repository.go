package postgres

import (
	"circulation-engine/internal/domain/reservation"
	"circulation-engine/internal/pkg/apperrors"
	"context"
	"fmt"
	"log/slog"
)

type ReservationRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ reservation.Repository = (*ReservationRepository)(nil)

func NewReservationRepository(db DBPool, logger *slog.Logger) *ReservationRepository {
	return &ReservationRepository{db: db, logger: logger.With("component", "ReservationRepository")}
}

func (r *ReservationRepository) ListByItem(ctx context.Context, itemCode string) ([]reservation.Reservation, error) {
	query := `
        SELECT reserve_id, item_code, member_id, reserve_date
        FROM reservations
        WHERE item_code = $1
        ORDER BY reserve_date ASC`

	rows, err := r.db.Query(ctx, query, itemCode)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query reservations", "item_code", itemCode, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	holds := make([]reservation.Reservation, 0)
	for rows.Next() {
		var h reservation.Reservation
		if err := rows.Scan(&h.ID, &h.ItemCode, &h.MemberID, &h.ReservedAt); err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan reservation row", "item_code", itemCode, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		holds = append(holds, h)
	}

	if err = rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating reservation rows", "item_code", itemCode, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	return holds, nil
}

// DeleteForMember is a no-op when the member holds no reservation on the
// item, so a checkout without a hold stays clean.
func (r *ReservationRepository) DeleteForMember(ctx context.Context, memberID, itemCode string) error {
	sql := `DELETE FROM reservations WHERE member_id = $1 AND item_code = $2`

	cmdTag, err := r.db.Exec(ctx, sql, memberID, itemCode)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete reservation", "member_id", memberID, "item_code", itemCode, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() > 0 {
		r.logger.InfoContext(ctx, "Reservation consumed by checkout", "member_id", memberID, "item_code", itemCode)
	}
	return nil
}
