package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
)

// AuthService issues access tokens.
type AuthService interface {
	IssueToken(ctx context.Context, userID string) (string, error)
}

// Auth handles the token-mint endpoint used by development clients.
type Auth struct {
	authService AuthService
	logger      *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, logger *logger.Logger) *Auth {
	return &Auth{
		authService: authService,
		logger:      logger,
	}
}

type tokenRequest struct {
	UserID string `json:"user_id"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Token mints a signed bearer token for the requested user ID.
func (h *Auth) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, model.NewInvalidInputError("request body must be JSON with a user_id field"))
		return
	}

	tokenString, err := h.authService.IssueToken(r.Context(), req.UserID)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: tokenString, TokenType: "bearer"})
}
