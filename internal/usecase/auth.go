package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
	"github.com/wwicak/kom-sabu-sub000/internal/infra/security"
	"github.com/wwicak/kom-sabu-sub000/internal/repository"
)

var (
	// ErrUnauthenticated is returned for every credential failure. A missing
	// token, a bad signature, an expired token, an unknown subject, a
	// deactivated account and an unrecognized role all collapse into this one
	// error so responses cannot be used to enumerate accounts.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrPermissionDenied indicates the principal lacks the required
	// permission or role for the requested operation.
	ErrPermissionDenied = errors.New("permission denied")
)

// AuthService resolves bearer credentials to an authenticated principal.
type AuthService struct {
	verifier *security.TokenVerifier
	users    port.UserRepository
}

// NewAuthService constructs an AuthService.
func NewAuthService(verifier *security.TokenVerifier, users port.UserRepository) *AuthService {
	return &AuthService{verifier: verifier, users: users}
}

// Authenticate validates the Authorization header value and loads the live
// user record. The role on the stored record is authoritative, not the role
// claim baked into the token.
func (s *AuthService) Authenticate(ctx context.Context, authorization string) (*domain.Principal, error) {
	raw := strings.TrimSpace(authorization)
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		raw = strings.TrimSpace(raw[7:])
	}

	claims, err := s.verifier.Verify(raw)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUnauthenticated
	}

	role, err := domain.ParseRole(user.Role)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return &domain.Principal{
		ID:       user.ID,
		Username: user.Username,
		Role:     role,
		IsActive: user.IsActive,
	}, nil
}

// Authorize checks that the principal holds the required permission.
func (s *AuthService) Authorize(principal *domain.Principal, permission domain.Permission) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if !principal.Role.HasPermission(permission) {
		return ErrPermissionDenied
	}
	return nil
}

// AuthorizeAny checks that the principal holds at least one of the given
// permissions.
func (s *AuthService) AuthorizeAny(principal *domain.Principal, permissions ...domain.Permission) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if !principal.Role.HasAnyPermission(permissions...) {
		return ErrPermissionDenied
	}
	return nil
}

// AuthorizeRoleChange checks that the actor may assign or revoke the target
// role. Actors can only manage roles strictly below their own.
func (s *AuthService) AuthorizeRoleChange(principal *domain.Principal, target domain.Role) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if !domain.CanManageRole(principal.Role, target) {
		return ErrPermissionDenied
	}
	return nil
}
