package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prompt-gallery/internal/account"
	"github.com/prompt-gallery/internal/cache"
	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/moderation"
	"github.com/prompt-gallery/internal/scheduler"
	"github.com/prompt-gallery/internal/session"
	"github.com/prompt-gallery/internal/storage"
	"github.com/prompt-gallery/internal/view"
)

// Services are the collaborators the handlers need. Cache and Scheduler may
// be nil when disabled.
type Services struct {
	Store         *storage.Store
	Accounts      *account.Service
	Moderation    *moderation.Service
	Views         *view.Composer
	Sessions      *session.Manager
	Cache         *cache.Cache
	Scheduler     *scheduler.Scheduler
	MaxImageBytes int64
	Log           logrus.FieldLogger
}

// Handler contains all API handlers
type Handler struct {
	store         *storage.Store
	accounts      *account.Service
	moderation    *moderation.Service
	views         *view.Composer
	sessions      *session.Manager
	cache         *cache.Cache
	scheduler     *scheduler.Scheduler
	maxImageBytes int64
	log           logrus.FieldLogger
}

// NewHandler creates a new API handler
func NewHandler(s Services) *Handler {
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		store:         s.Store,
		accounts:      s.Accounts,
		moderation:    s.Moderation,
		views:         s.Views,
		sessions:      s.Sessions,
		cache:         s.Cache,
		scheduler:     s.Scheduler,
		maxImageBytes: s.MaxImageBytes,
		log:           log.WithField("component", "api"),
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps service errors onto status codes. Validation errors are
// returned whole so every field message reaches the client.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := model.AsValidation(err); ok {
		respondJSON(w, http.StatusUnprocessableEntity, verr)
		return
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid email or password.")
	case errors.Is(err, model.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, model.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, model.ErrConflict):
		respondError(w, http.StatusConflict, "An account with this email already exists.")
	case errors.Is(err, model.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		h.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// HealthResponse reports the state of each dependency.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Cache     string `json:"cache"`
	Scheduler string `json:"scheduler"`
	Time      string `json:"time"`
}

// Health godoc
// @Summary Health check
// @Description Check the database, view cache and scheduler
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse "Database unavailable"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Database:  "ok",
		Cache:     "disabled",
		Scheduler: "disabled",
		Time:      time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.store.Ping != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			h.log.WithError(err).Warn("database ping failed")
			resp.Database = "unavailable"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if h.cache.IsEmbedded() {
			resp.Cache = "embedded"
		}
		if err := h.cache.Ping(r.Context()); err != nil {
			resp.Cache = "unavailable"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		}
	}

	if h.scheduler != nil {
		resp.Scheduler = "stopped"
		if h.scheduler.IsRunning() {
			resp.Scheduler = "running"
		}
	}

	respondJSON(w, status, resp)
}
