package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/textsnap/textsnap-server/internal/api/http/handler"
	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
)

// AuthService verifies bearer credentials.
type AuthService interface {
	Authenticate(ctx context.Context, token string) (model.Identity, error)
}

// Authenticate validates bearer tokens and injects the user ID into the
// request context.
type Authenticate struct {
	authService    AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(authService AuthService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{authService: authService, contextManager: contextManager, logger: logger}
}

// Handle parses the Authorization header, validates the token and calls
// next with the identity on the context. Failures answer 401 with the
// expected credential scheme.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r.Header.Get("Authorization"))

		identity, err := m.authService.Authenticate(r.Context(), tokenString)
		if err != nil {
			handler.WriteError(w, model.ErrUnauthenticated)
			return
		}

		ctx := m.contextManager.SetUserIDToContext(r.Context(), identity.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
