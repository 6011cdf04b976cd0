package services

import (
	"context"
	"errors"

	"spsc-mbanking/internal/adapters/persistence/models"
	"spsc-mbanking/internal/adapters/persistence/repositories"
	"spsc-mbanking/internal/config"
	"spsc-mbanking/internal/core/domain"
	"spsc-mbanking/internal/pkg/jwt"
	"spsc-mbanking/internal/pkg/pincode"

	"gorm.io/gorm"
)

// AuthService mints session tokens. The login credential store is a
// separate concern from the transaction PIN; this service only exists so
// the authorization endpoints have an authenticated identity to work with.
type AuthService struct {
	identityRepo *repositories.IdentityRepository
	cfg          *config.Config
}

// NewAuthService creates a new auth service
func NewAuthService(identityRepo *repositories.IdentityRepository, cfg *config.Config) *AuthService {
	return &AuthService{identityRepo: identityRepo, cfg: cfg}
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginOutput represents login output
type LoginOutput struct {
	AccessToken string                   `json:"access_token"`
	Identity    *models.IdentityResponse `json:"identity"`
}

// Login verifies the login password and returns an access token
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	identity, err := s.identityRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	if !pincode.Verify(input.Password, identity.Password) {
		return nil, domain.ErrUnauthenticated
	}

	token, err := jwt.GenerateAccessToken(identity.ID, identity.Email, "USER",
		s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	if err != nil {
		return nil, err
	}

	return &LoginOutput{
		AccessToken: token,
		Identity:    identity.ToResponse(),
	}, nil
}
