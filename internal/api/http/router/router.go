package router

import (
	"net/http"

	"github.com/textsnap/textsnap-server/internal/api/http/handler"
	"github.com/textsnap/textsnap-server/internal/api/http/middleware"
	"github.com/textsnap/textsnap-server/internal/logger"
	"github.com/textsnap/textsnap-server/internal/model"
	"github.com/textsnap/textsnap-server/internal/service"
)

// Router wires handlers and middleware into an http.Handler.
type Router struct {
	imageService   *service.Image
	authService    *service.Auth
	limiter        middleware.Admitter
	contextManager model.ContextManager
	maxUpload      int64
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	imageService *service.Image,
	authService *service.Auth,
	limiter middleware.Admitter,
	contextManager model.ContextManager,
	maxUpload int64,
	logger *logger.Logger,
) *Router {
	return &Router{
		imageService:   imageService,
		authService:    authService,
		limiter:        limiter,
		contextManager: contextManager,
		maxUpload:      maxUpload,
		logger:         logger,
	}
}

// Register builds the route table. Admission control runs before
// authentication on every route except the health probe.
func (r *Router) Register() http.Handler {
	imageHandler := handler.NewImage(r.imageService, r.contextManager, r.maxUpload, r.logger)
	authHandler := handler.NewAuth(r.authService, r.logger)
	healthHandler := handler.NewHealth()

	logging := middleware.NewLogging(r.logger)
	rateLimit := middleware.NewRateLimit(r.limiter, r.logger)
	authenticate := middleware.NewAuthenticate(r.authService, r.contextManager, r.logger)

	authed := func(h http.HandlerFunc) http.Handler {
		return rateLimit.Handle(authenticate.Handle(h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /images", authed(imageHandler.Create))
	mux.Handle("GET /images", authed(imageHandler.List))
	mux.Handle("GET /images/search", authed(imageHandler.Search))
	mux.Handle("GET /images/{id}", authed(imageHandler.Get))
	mux.Handle("GET /images/{id}/raw", authed(imageHandler.GetRaw))
	mux.Handle("POST /auth/token", rateLimit.Handle(http.HandlerFunc(authHandler.Token)))
	mux.Handle("GET /health", http.HandlerFunc(healthHandler.Check))

	return logging.Handle(mux)
}
