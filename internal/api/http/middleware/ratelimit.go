package middleware

import (
	"net"
	"net/http"

	"github.com/textsnap/textsnap-server/internal/api/http/handler"
	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
	"github.com/textsnap/textsnap-server/internal/ratelimit"
)

// Admitter decides whether a request for a key may proceed.
type Admitter interface {
	Admit(key string) ratelimit.Decision
}

// RateLimit rejects requests exceeding the per-client admission window.
// It runs before authentication, keyed on the client network address.
type RateLimit struct {
	limiter Admitter
	logger  *logger.Logger
}

// NewRateLimit creates a new RateLimit middleware instance.
func NewRateLimit(limiter Admitter, logger *logger.Logger) *RateLimit {
	return &RateLimit{limiter: limiter, logger: logger}
}

// Handle admits or rejects the request. Rejections answer 429 with a
// Retry-After hint in seconds and never touch storage or extraction.
func (m *RateLimit) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)

		decision := m.limiter.Admit(key)
		if !decision.Allowed {
			m.logger.Debug("request rejected by rate limiter", "key", key)
			handler.WriteError(w, &model.RateLimitError{RetryAfter: decision.RetryAfter})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
