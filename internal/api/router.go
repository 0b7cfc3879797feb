package api

import (
	"net/http"
	"time"

	"finance_users/internal/api/handler"
	"finance_users/internal/api/middleware"
	"finance_users/internal/common/security"
	"finance_users/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type Dependencies struct {
	Users   handler.UserService
	Auth    handler.AuthService
	Emails  handler.EmailService
	Issuer  *security.TokenIssuer
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
}

// PublicRoutes lists every endpoint served without a bearer token.
var PublicRoutes = middleware.NewPublicRoutes(
	middleware.Route{Method: http.MethodPost, Path: "/user/register"},
	middleware.Route{Method: http.MethodPost, Path: "/auth/login"},
	middleware.Route{Method: http.MethodGet, Path: "/Health"},
	middleware.Route{Method: http.MethodGet, Path: "/metrics"},
)

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{Logger: deps.Logger, NoColor: true}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.Authenticator(deps.Issuer, PublicRoutes, deps.Logger))

	r.Get("/Health", handler.Health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	userHandler := handler.NewUserHandler(deps.Users, deps.Logger)
	r.Route("/user", userHandler.RegisterRoutes)

	authHandler := handler.NewAuthHandler(deps.Auth)
	r.Route("/auth", authHandler.RegisterRoutes)

	emailHandler := handler.NewEmailHandler(deps.Emails)
	r.Route("/emails", emailHandler.RegisterRoutes)

	return r
}
