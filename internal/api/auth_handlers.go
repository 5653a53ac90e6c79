package api

import (
	"net/http"
	"time"

	"github.com/prompt-gallery/internal/model"
)

func (h *Handler) signIn(w http.ResponseWriter, status int, resp *model.LoginResponse) {
	h.sessions.SetCookie(w, resp.Token, time.Unix(resp.ExpiresAt, 0))
	respondJSON(w, status, resp)
}

// Signup godoc
// @Summary Create an account
// @Description Create an account and sign it in. The first account becomes an admin.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body model.SignupRequest true "Signup details"
// @Success 201 {object} model.LoginResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 409 {object} map[string]string "Email already registered"
// @Failure 422 {object} model.ValidationError "Field errors"
// @Router /auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.accounts.Signup(r.Context(), &req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.signIn(w, http.StatusCreated, resp)
}

// Login godoc
// @Summary User login
// @Description Authenticate and set the session cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login credentials"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 422 {object} model.ValidationError "Field errors"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.accounts.Login(r.Context(), &req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.signIn(w, http.StatusOK, resp)
}

// AdminLogin godoc
// @Summary Admin login
// @Description Authenticate an admin account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Login credentials"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Invalid credentials or not an admin"
// @Router /auth/admin/login [post]
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.accounts.AdminLogin(r.Context(), &req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.signIn(w, http.StatusOK, resp)
}

// Logout godoc
// @Summary Sign out
// @Description Clear the session cookie
// @Tags Authentication
// @Success 204
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me godoc
// @Summary Current user
// @Description Get the signed-in account
// @Tags Authentication
// @Produce json
// @Success 200 {object} model.User
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "User not found"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Me(r.Context(), model.ClaimsFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
