package port

import (
	"context"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
)

// UserRepository exposes the user-lookup collaborator owned by the surrounding
// portal. The gateway only reads subjects during authentication.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
