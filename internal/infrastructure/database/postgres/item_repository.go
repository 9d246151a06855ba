package postgres

import (
	"circulation-engine/internal/domain/catalog"
	"circulation-engine/internal/pkg/apperrors"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

type ItemRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ catalog.Repository = (*ItemRepository)(nil)

func NewItemRepository(db DBPool, logger *slog.Logger) *ItemRepository {
	return &ItemRepository{db: db, logger: logger.With("component", "ItemRepository")}
}

// GetItem loads a copy with its title and the no-loan flag of its item
// status. An item without an explicit status row is loanable.
func (r *ItemRepository) GetItem(ctx context.Context, itemCode string) (*catalog.Item, error) {
	query := `
        SELECT i.item_code, i.biblio_id, b.title, b.classification, i.call_number,
               i.coll_type_id, b.gmd_id,
               COALESCE(ist.no_loan, FALSE)
        FROM items i
        JOIN biblio b ON b.biblio_id = i.biblio_id
        LEFT JOIN item_statuses ist ON ist.item_status_id = i.item_status_id
        WHERE i.item_code = $1`

	var it catalog.Item
	err := r.db.QueryRow(ctx, query, itemCode).Scan(
		&it.Code, &it.BiblioID, &it.Title, &it.Classification, &it.CallNumber,
		&it.CollTypeID, &it.GMDID, &it.LoanForbidden,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.WarnContext(ctx, "Item not found", "item_code", itemCode)
			return nil, apperrors.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get item", "item_code", itemCode, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &it, nil
}
