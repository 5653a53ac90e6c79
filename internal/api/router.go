package api

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/prompt-gallery/internal/blob"
	"github.com/prompt-gallery/internal/middleware"
)

// NewRouter creates a new HTTP router with all routes. blobs may be nil;
// a local store with a path URL is served from its prefix.
func NewRouter(h *Handler, auth *middleware.AuthMiddleware, blobs blob.Store, log logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	if local, ok := blobs.(*blob.Local); ok && strings.HasPrefix(local.Prefix(), "/") {
		mux.Handle("GET "+local.Prefix(), local.Handler())
	}

	// Pages
	mux.Handle("GET /{$}", middleware.Gate(http.HandlerFunc(h.HomePage)))
	mux.Handle("GET /prompt/{id}", middleware.Gate(http.HandlerFunc(h.PromptPage)))
	mux.Handle("GET /submit-prompt", middleware.Gate(http.HandlerFunc(h.SubmitPage)))
	mux.Handle("GET /login", middleware.Gate(http.HandlerFunc(h.AuthPage)))
	mux.Handle("GET /signup", middleware.Gate(http.HandlerFunc(h.AuthPage)))
	mux.Handle("GET /admin", middleware.Gate(http.HandlerFunc(h.AdminPage)))
	mux.Handle("GET /admin/login", middleware.Gate(http.HandlerFunc(h.AuthPage)))

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/admin/login", h.AdminLogin)
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/categories", h.ListCategories)
	mux.HandleFunc("GET /api/v1/ads", h.AdCodes)
	mux.HandleFunc("POST /api/v1/prompts/{id}/copy", h.CopyPrompt)

	// User routes
	mux.Handle("GET /api/v1/auth/me", middleware.RequireAuth(http.HandlerFunc(h.Me)))
	mux.Handle("POST /api/v1/prompts", middleware.RequireAuth(http.HandlerFunc(h.SubmitPrompt)))
	mux.Handle("POST /api/v1/prompts/{id}/favorite", middleware.RequireAuth(http.HandlerFunc(h.ToggleFavorite)))

	// Admin routes
	mux.Handle("POST /api/v1/admin/prompts/{id}/approve", middleware.RequireAdmin(http.HandlerFunc(h.ApprovePrompt)))
	mux.Handle("POST /api/v1/admin/prompts/{id}/reject", middleware.RequireAdmin(http.HandlerFunc(h.RejectPrompt)))
	mux.Handle("DELETE /api/v1/admin/prompts/{id}", middleware.RequireAdmin(http.HandlerFunc(h.DeletePrompt)))
	mux.Handle("POST /api/v1/admin/categories", middleware.RequireAdmin(http.HandlerFunc(h.CreateCategory)))
	mux.Handle("PUT /api/v1/admin/categories/{id}", middleware.RequireAdmin(http.HandlerFunc(h.UpdateCategory)))
	mux.Handle("DELETE /api/v1/admin/categories/{id}", middleware.RequireAdmin(http.HandlerFunc(h.DeleteCategory)))
	mux.Handle("PUT /api/v1/admin/ads/{id}", middleware.RequireAdmin(http.HandlerFunc(h.UpdateAdCode)))

	// Apply global middleware
	return middleware.Chain(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
		auth.Authenticate,
	)(mux)
}
