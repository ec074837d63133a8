package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/lpusphere/sphere-server/internal/store"
)

// ErrInvalidCredentials is returned when regNo/password don't match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service issues and verifies member identities. The rest of the server
// treats the claims it produces as trusted; nothing downstream re-checks
// credentials.
type Service struct {
	users     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(users store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		users:     users,
		jwtConfig: jwtConfig,
	}
}

// Login validates credentials and returns a token plus the member record.
// Accounts are provisioned by roster import; there is no self-registration.
func (s *Service) Login(ctx context.Context, regNo, password string) (string, *store.User, error) {
	user, err := s.users.GetUserByRegNo(ctx, regNo)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig, user)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, user, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}
