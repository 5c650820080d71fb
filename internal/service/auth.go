package service

import (
	"context"
	"fmt"

	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
)

// Auth validates bearer credentials and issues access tokens.
type Auth struct {
	tokenManager model.TokenManager
	logger       *logger.Logger
}

// NewAuth creates a new Auth service.
func NewAuth(tokenManager model.TokenManager, logger *logger.Logger) *Auth {
	return &Auth{
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// Authenticate verifies a bearer token and returns the caller's identity.
func (s *Auth) Authenticate(ctx context.Context, tokenString string) (model.Identity, error) {
	if tokenString == "" {
		return model.Identity{}, model.ErrUnauthenticated
	}

	userID, err := s.tokenManager.ParseAccessToken(tokenString)
	if err != nil {
		s.logger.Debug("token validation failed", "error", err)
		return model.Identity{}, model.ErrUnauthenticated
	}

	return model.Identity{UserID: userID}, nil
}

// IssueToken mints a signed access token for the given user ID.
func (s *Auth) IssueToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", model.NewInvalidInputError("user_id must not be empty")
	}

	tokenString, err := s.tokenManager.GenerateAccessToken(userID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return tokenString, nil
}
