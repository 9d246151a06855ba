package postgres

import (
	"circulation-engine/internal/domain/member"
	"circulation-engine/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

type MemberRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ member.Repository = (*MemberRepository)(nil)

func NewMemberRepository(db DBPool, logger *slog.Logger) *MemberRepository {
	return &MemberRepository{db: db, logger: logger.With("component", "MemberRepository")}
}

// GetMember joins the member-type row in so the baseline loan
// properties travel with the member.
func (r *MemberRepository) GetMember(ctx context.Context, memberID string) (*member.Member, error) {
	query := `
        SELECT m.member_id, m.member_name, m.member_type_id, mt.member_type_name,
               m.is_pending, m.expire_date,
               mt.loan_limit, mt.loan_periode, mt.reborrow_limit, mt.fine_each_day, mt.grace_periode
        FROM members m
        JOIN member_types mt ON mt.member_type_id = m.member_type_id
        WHERE m.member_id = $1`

	var m member.Member
	err := r.db.QueryRow(ctx, query, memberID).Scan(
		&m.ID, &m.Name, &m.TypeID, &m.TypeName,
		&m.Pending, &m.ExpireDate,
		&m.LoanLimit, &m.LoanPeriod, &m.ReborrowLimit, &m.FinePerDay, &m.GracePeriod,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Member not found", "member_id", memberID)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get member", "member_id", memberID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &m, nil
}
