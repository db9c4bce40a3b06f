package router

import (
	_ "go-auth-api/docs"
	"go-auth-api/handler"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func NewRouter(authHandler *handler.AuthHandler, userHandler *handler.UserHandler, validator handler.TokenValidator) http.Handler {
	mux := http.NewServeMux()
	authenticated := handler.AuthMiddleware(validator)
	h := handler.ErrorHandlingMiddleware

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	mux.Handle("POST /auth/register", h(authHandler.Register))
	mux.Handle("POST /auth/login", h(authHandler.Login))
	mux.Handle("POST /auth/google", h(authHandler.GoogleLogin))
	mux.Handle("GET /auth/google/url", h(authHandler.GoogleAuthURL))
	mux.Handle("GET /auth/google/callback", h(authHandler.GoogleCallback))
	mux.Handle("POST /auth/refresh", h(authHandler.Refresh))
	mux.Handle("POST /auth/logout", h(authHandler.Logout))
	mux.Handle("POST /auth/validate", h(authHandler.Validate))

	mux.Handle("GET /auth/me", authenticated(h(authHandler.Me)))
	mux.Handle("GET /auth/users/{id}", authenticated(h(userHandler.GetUser)))

	// Admin
	mux.Handle("GET /auth/users", authenticated(handler.AdminMiddleware(h(userHandler.ListUsers))))
	mux.Handle("PATCH /auth/users/{id}/role", authenticated(handler.AdminMiddleware(h(userHandler.UpdateUserRole))))

	return handler.LoggingMiddleware(mux)
}
