package member

import "context"

type Repository interface {
	// GetMember loads a member with its member-type baseline loan
	// properties. Returns apperrors.ErrNotFound for unknown ids.
	GetMember(ctx context.Context, memberID string) (*Member, error)
}
